package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressAggregator distributes a collected waste batch into the user's
// active ledgers. Satisfied by ScoreService.
type ProgressAggregator interface {
	ApplyCollectedWastes(ctx context.Context, userID primitive.ObjectID, items []models.WasteItem, now time.Time) ([]ScoreUpdateResult, error)
}

// ScheduleService owns the pickup request lifecycle. All status changes go
// through the transition table; the collected transition additionally
// triggers progress distribution.
type ScheduleService struct {
	repo       ScheduleStore
	aggregator ProgressAggregator
}

// NewScheduleService creates a new instance of ScheduleService.
func NewScheduleService(repo ScheduleStore, aggregator ProgressAggregator) *ScheduleService {
	return &ScheduleService{
		repo:       repo,
		aggregator: aggregator,
	}
}

// CreateSchedule validates and stores a new pickup request in the initial
// awaiting_confirmation status.
func (s *ScheduleService) CreateSchedule(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	if len(schedule.RequestedWastes) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "at least one waste item is required")
	}
	if err := validateWasteItems(schedule.RequestedWastes); err != nil {
		return nil, err
	}

	schedule.Status = models.ScheduleStatusAwaitingConfirmation
	schedule.CollectedWastes = nil
	schedule.Collector = ""
	schedule.CollectedAt = nil

	created, err := s.repo.CreateSchedule(ctx, schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule: %v", err)
	}
	return created, nil
}

// GetSchedule retrieves one of the user's pickup requests.
func (s *ScheduleService) GetSchedule(ctx context.Context, userID primitive.ObjectID, scheduleID string) (*models.Schedule, error) {
	objID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid schedule ID: %v", err)
	}

	schedule, err := s.repo.GetScheduleByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if schedule.UserID != userID {
		return nil, apperrors.Newf(apperrors.KindNotFound, "schedule %s not found", scheduleID)
	}
	return schedule, nil
}

// GetSchedules lists the user's pickup requests, optionally by status.
func (s *ScheduleService) GetSchedules(ctx context.Context, userID primitive.ObjectID, status string) ([]models.Schedule, error) {
	scheduleStatus := models.ScheduleStatus(status)
	if status != "" && !models.ValidScheduleStatus(scheduleStatus) {
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown schedule status %q", status)
	}

	schedules, err := s.repo.GetSchedulesByUser(ctx, userID, scheduleStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules: %v", err)
	}
	return schedules, nil
}

// Confirm moves a pickup request from awaiting_confirmation to confirmed.
func (s *ScheduleService) Confirm(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	return s.transition(ctx, scheduleID, models.ScheduleStatusConfirmed, nil)
}

// Cancel moves a pickup request to cancelled. Legal from
// awaiting_confirmation and confirmed only.
func (s *ScheduleService) Cancel(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	return s.transition(ctx, scheduleID, models.ScheduleStatusCancelled, nil)
}

// transition reads the request, validates the move against the transition
// table and commits it with a compare-and-swap on the observed status.
func (s *ScheduleService) transition(ctx context.Context, scheduleID string, to models.ScheduleStatus, set bson.M) (*models.Schedule, error) {
	objID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid schedule ID: %v", err)
	}

	schedule, err := s.repo.GetScheduleByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(schedule.Status, to) {
		return nil, apperrors.Newf(apperrors.KindInvalidTransition,
			"cannot move schedule from %q to %q", schedule.Status, to)
	}

	updated, err := s.repo.TransitionStatus(ctx, objID, schedule.Status, to, set)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkCollected records the actually gathered waste and moves the request
// from confirmed to collected, then hands the batch to the progress
// aggregator exactly once. A lost status race and a re-collection both fail
// with Conflict. When aggregation fails the status change is kept and the
// error is surfaced so the caller can retry the failed ledgers.
func (s *ScheduleService) MarkCollected(ctx context.Context, scheduleID string, items []models.WasteItem, collector string, collectedAt time.Time) (*models.Schedule, []ScoreUpdateResult, error) {
	if len(items) == 0 {
		return nil, nil, apperrors.New(apperrors.KindValidation, "collected waste items must not be empty")
	}
	if err := validateWasteItems(items); err != nil {
		return nil, nil, err
	}
	if collector == "" {
		return nil, nil, apperrors.New(apperrors.KindValidation, "collector name is required")
	}
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	objID, err := primitive.ObjectIDFromHex(scheduleID)
	if err != nil {
		return nil, nil, apperrors.Newf(apperrors.KindValidation, "invalid schedule ID: %v", err)
	}

	schedule, err := s.repo.GetScheduleByID(ctx, objID)
	if err != nil {
		return nil, nil, err
	}
	if schedule.Status == models.ScheduleStatusCollected {
		// Idempotency guard: re-submitting a collection must not credit
		// progress twice.
		return nil, nil, apperrors.Newf(apperrors.KindConflict, "schedule %s is already collected", scheduleID)
	}
	if !models.CanTransition(schedule.Status, models.ScheduleStatusCollected) {
		return nil, nil, apperrors.Newf(apperrors.KindInvalidTransition,
			"cannot move schedule from %q to %q", schedule.Status, models.ScheduleStatusCollected)
	}

	updated, err := s.repo.TransitionStatus(ctx, objID, schedule.Status, models.ScheduleStatusCollected, bson.M{
		"collected_wastes": items,
		"collector":        collector,
		"collected_at":     collectedAt,
	})
	if err != nil {
		return nil, nil, err
	}

	// The transition is committed; aggregation failures are reported but
	// never roll the status back.
	results, aggErr := s.aggregator.ApplyCollectedWastes(ctx, updated.UserID, items, collectedAt)
	if aggErr != nil {
		logrus.WithError(aggErr).WithField("schedule_id", scheduleID).Error("Progress aggregation failed after collection")
		return updated, results, apperrors.Wrap(apperrors.KindUnavailable,
			"pickup collected but progress aggregation failed", aggErr)
	}

	logger.Log.WithFields(map[string]interface{}{
		"schedule_id": scheduleID,
		"collector":   collector,
		"ledgers":     len(results),
	}).Info("Pickup collected and progress distributed")
	return updated, results, nil
}

func validateWasteItems(items []models.WasteItem) error {
	for _, item := range items {
		if item.WasteTypeID.IsZero() {
			return apperrors.New(apperrors.KindValidation, "waste item is missing its waste type")
		}
		if item.Quantity < 0 || item.Weight < 0 {
			return apperrors.New(apperrors.KindValidation, "waste quantities and weights must not be negative")
		}
	}
	return nil
}
