package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/ecoleta/ecoleta-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// GoalHandler handles HTTP requests related to the goal catalog.
type GoalHandler struct {
	Service *services.GoalService
}

// NewGoalHandler creates a new instance of GoalHandler.
func NewGoalHandler(service *services.GoalService) *GoalHandler {
	return &GoalHandler{
		Service: service,
	}
}

// CreateGoalHandler handles admin creation of a new goal.
func (h *GoalHandler) CreateGoalHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var goal models.Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during goal creation")
		respondValidationError(w, err)
		return
	}
	defer r.Body.Close()

	created, err := h.Service.CreateGoal(r.Context(), &goal)
	if err != nil {
		respondError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID": claims.UserID,
		"goalID": created.ID.Hex(),
	}).Info("Goal successfully created")
	respondJSON(w, http.StatusCreated, created)
}

// GetGoalHandler fetches a goal with its embedded challenges.
func (h *GoalHandler) GetGoalHandler(w http.ResponseWriter, r *http.Request) {
	goal, err := h.Service.GetGoal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goal)
}

// GetGoalsHandler lists goals open for enrollment.
func (h *GoalHandler) GetGoalsHandler(w http.ResponseWriter, r *http.Request) {
	goals, err := h.Service.GetActiveGoals(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, goals)
}

// UpdateGoalHandler handles admin edits of an existing goal.
func (h *GoalHandler) UpdateGoalHandler(w http.ResponseWriter, r *http.Request) {
	goalID := mux.Vars(r)["id"]
	log := logrus.WithField("goalID", goalID)

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		log.Warn("Unauthorized goal update attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var goal models.Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		log.WithError(err).Warn("Invalid update payload")
		respondValidationError(w, err)
		return
	}
	defer r.Body.Close()

	updated, err := h.Service.UpdateGoal(r.Context(), goalID, &goal)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info("Goal successfully updated")
	respondJSON(w, http.StatusOK, updated)
}
