package handlers

import (
	"net/http"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/jobs"
	"github.com/sirupsen/logrus"
)

// AdminHandler exposes operator endpoints.
type AdminHandler struct {
	Sweeper *jobs.ExpirationSweeper
}

// NewAdminHandler creates a new instance of AdminHandler.
func NewAdminHandler(sweeper *jobs.ExpirationSweeper) *AdminHandler {
	return &AdminHandler{
		Sweeper: sweeper,
	}
}

// SweepHandler runs an on-demand expiration sweep.
func (h *AdminHandler) SweepHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.Sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		logrus.WithError(err).Error("On-demand sweep failed")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"expired": count})
}
