package handlers

import (
	"net/http"

	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/gorilla/mux"
)

// WasteHandler serves the read-only waste-type catalog.
type WasteHandler struct {
	Service *services.WasteService
}

// NewWasteHandler creates a new instance of WasteHandler.
func NewWasteHandler(service *services.WasteService) *WasteHandler {
	return &WasteHandler{
		Service: service,
	}
}

// ListWasteTypesHandler returns the full catalog.
func (h *WasteHandler) ListWasteTypesHandler(w http.ResponseWriter, r *http.Request) {
	wastes, err := h.Service.ListWasteTypes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, wastes)
}

// GetWasteTypeHandler returns one catalog entry.
func (h *WasteHandler) GetWasteTypeHandler(w http.ResponseWriter, r *http.Request) {
	waste, err := h.Service.GetWasteType(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, waste)
}
