package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/ecoleta/ecoleta-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScoreHandler handles HTTP requests related to participation ledgers.
type ScoreHandler struct {
	Service *services.ScoreService
}

// NewScoreHandler creates a new instance of ScoreHandler.
func NewScoreHandler(service *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{
		Service: service,
	}
}

type enrollRequest struct {
	GoalID string `json:"goal_id" validate:"required"`
}

type progressRequest struct {
	WasteTypeID string  `json:"waste_type_id" validate:"required"`
	Quantity    float64 `json:"quantity"`
}

// EnrollHandler enrolls the caller in a goal.
func (h *ScoreHandler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, err)
		return
	}
	defer r.Body.Close()

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	score, err := h.Service.Enroll(r.Context(), userID, req.GoalID)
	if err != nil {
		respondError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID": claims.UserID,
		"goalID": req.GoalID,
	}).Info("User enrolled in goal")
	respondJSON(w, http.StatusCreated, score)
}

// GetScoresHandler lists the caller's ledgers, optionally by status.
func (h *ScoreHandler) GetScoresHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	scores, err := h.Service.GetScores(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, scores)
}

// GetScoreHandler fetches one of the caller's ledgers.
func (h *ScoreHandler) GetScoreHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	score, err := h.Service.GetScore(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, score)
}

// UpdateScoreHandler is the single-challenge progress path kept for callers
// that report one waste line at a time.
func (h *ScoreHandler) UpdateScoreHandler(w http.ResponseWriter, r *http.Request) {
	scoreID := mux.Vars(r)["id"]
	log := logrus.WithField("scoreID", scoreID)

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		log.Warn("Unauthorized score update attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, err)
		return
	}
	defer r.Body.Close()

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	score, err := h.Service.ApplyChallengeProgress(r.Context(), userID, scoreID, req.WasteTypeID, req.Quantity, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info("Score progress updated")
	respondJSON(w, http.StatusOK, score)
}

// SummaryHandler returns the caller's accumulated points.
func (h *ScoreHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusInternalServerError)
		return
	}

	total, err := h.Service.TotalEarnedPoints(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"total_points": total})
}
