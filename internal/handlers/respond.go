package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// validate is shared by all handlers for request payload checks.
var validate = validator.New()

// errorResponse is the wire shape of every error: a machine-readable kind
// plus a human message.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)

	var status int
	switch kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindInvalidTransition:
		status = http.StatusUnprocessableEntity
	case apperrors.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		logrus.WithError(err).Error("Internal server error")
		respondJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal",
			Message: "internal server error",
		})
		return
	}

	respondJSON(w, status, errorResponse{Error: string(kind), Message: err.Error()})
}

func respondValidationError(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:   string(apperrors.KindValidation),
		Message: err.Error(),
	})
}
