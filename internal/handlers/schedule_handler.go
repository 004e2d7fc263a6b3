package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleHandler handles HTTP requests related to pickup requests.
type ScheduleHandler struct {
	Service *services.ScheduleService
}

// NewScheduleHandler creates a new instance of ScheduleHandler.
func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		Service: service,
	}
}

type wasteItemRequest struct {
	WasteTypeID string  `json:"waste_type_id" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Weight      float64 `json:"weight" validate:"gte=0"`
}

type createScheduleRequest struct {
	CollectionPointID string             `json:"collection_point_id" validate:"required"`
	ScheduledFor      time.Time          `json:"scheduled_for" validate:"required"`
	Wastes            []wasteItemRequest `json:"wastes" validate:"required,min=1,dive"`
}

type updateScheduleRequest struct {
	Status      models.ScheduleStatus `json:"status" validate:"required"`
	Collector   string                `json:"collector,omitempty"`
	CollectedAt time.Time             `json:"collected_at,omitempty"`
	Wastes      []wasteItemRequest    `json:"wastes,omitempty"`
}

// collectedScheduleResponse embeds the per-ledger outcomes so callers can
// retry only the ledgers that failed.
type collectedScheduleResponse struct {
	Schedule         *models.Schedule             `json:"schedule"`
	Progress         []services.ScoreUpdateResult `json:"progress"`
	AggregationError string                       `json:"aggregation_error,omitempty"`
}

// CreateScheduleHandler handles the creation of a new pickup request.
func (h *ScheduleHandler) CreateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during schedule creation")
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
	pointID, err := primitive.ObjectIDFromHex(req.CollectionPointID)
	if err != nil {
		respondError(w, apperrors.Newf(apperrors.KindValidation, "invalid collection point ID: %v", err))
		return
	}

	wastes, err := toWasteItems(req.Wastes)
	if err != nil {
		respondError(w, err)
		return
	}

	schedule := &models.Schedule{
		UserID:            userID,
		CollectionPointID: pointID,
		ScheduledFor:      req.ScheduledFor,
		RequestedWastes:   wastes,
	}

	created, err := h.Service.CreateSchedule(r.Context(), schedule)
	if err != nil {
		respondError(w, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":     claims.UserID,
		"scheduleID": created.ID.Hex(),
	}).Info("Schedule successfully created")
	respondJSON(w, http.StatusCreated, created)
}

// GetScheduleHandler handles fetching a single pickup request.
func (h *ScheduleHandler) GetScheduleHandler(w http.ResponseWriter, r *http.Request) {
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

	schedule, err := h.Service.GetSchedule(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, schedule)
}

// GetSchedulesHandler lists the caller's pickup requests.
func (h *ScheduleHandler) GetSchedulesHandler(w http.ResponseWriter, r *http.Request) {
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

	schedules, err := h.Service.GetSchedules(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, schedules)
}

// UpdateScheduleHandler applies the state-machine transition matching the
// requested target status.
func (h *ScheduleHandler) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["id"]
	log := logrus.WithField("scheduleID", scheduleID)

	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		log.Warn("Unauthorized schedule transition attempt")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("Invalid transition payload")
		respondValidationError(w, err)
		return
	}
	defer r.Body.Close()

	switch req.Status {
	case models.ScheduleStatusConfirmed:
		schedule, err := h.Service.Confirm(r.Context(), scheduleID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, schedule)

	case models.ScheduleStatusCancelled:
		schedule, err := h.Service.Cancel(r.Context(), scheduleID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, schedule)

	case models.ScheduleStatusCollected:
		wastes, err := toWasteItems(req.Wastes)
		if err != nil {
			respondError(w, err)
			return
		}

		schedule, results, err := h.Service.MarkCollected(r.Context(), scheduleID, wastes, req.Collector, req.CollectedAt)
		if err != nil && schedule == nil {
			respondError(w, err)
			return
		}

		response := collectedScheduleResponse{Schedule: schedule, Progress: results}
		if err != nil {
			// The transition committed; surface the aggregation failure so
			// the caller can retry the affected ledgers.
			response.AggregationError = err.Error()
		}
		respondJSON(w, http.StatusOK, response)

	default:
		respondError(w, apperrors.Newf(apperrors.KindValidation, "unsupported target status %q", req.Status))
	}
}

func toWasteItems(reqs []wasteItemRequest) ([]models.WasteItem, error) {
	items := make([]models.WasteItem, 0, len(reqs))
	for _, req := range reqs {
		wasteID, err := primitive.ObjectIDFromHex(req.WasteTypeID)
		if err != nil {
			return nil, apperrors.Newf(apperrors.KindValidation, "invalid waste type ID %q", req.WasteTypeID)
		}
		items = append(items, models.WasteItem{
			WasteTypeID: wasteID,
			Quantity:    req.Quantity,
			Weight:      req.Weight,
		})
	}
	return items, nil
}
