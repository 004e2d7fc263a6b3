package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ScheduleRepository handles database operations related to pickup requests.
type ScheduleRepository struct {
	collection *mongo.Collection
}

// NewScheduleRepository creates a new instance of ScheduleRepository.
func NewScheduleRepository(db *mongo.Database) *ScheduleRepository {
	return &ScheduleRepository{
		collection: db.Collection("schedules"),
	}
}

// CreateSchedule inserts a new pickup request.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, schedule)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert schedule")
		return nil, wrapMongoErr(err, "failed to insert schedule")
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted schedule ID")
		return nil, errors.New("failed to cast inserted schedule ID")
	}
	schedule.ID = insertedID

	logger.Log.WithField("schedule_id", schedule.ID.Hex()).Info("Schedule created successfully")
	return schedule, nil
}

// GetScheduleByID fetches a pickup request by its ID.
func (r *ScheduleRepository) GetScheduleByID(ctx context.Context, id primitive.ObjectID) (*models.Schedule, error) {
	var schedule models.Schedule

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&schedule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "schedule %s not found", id.Hex())
		}
		logger.Log.WithError(err).WithField("schedule_id", id.Hex()).Error("Failed to find schedule by ID")
		return nil, wrapMongoErr(err, "failed to find schedule")
	}

	return &schedule, nil
}

// GetSchedulesByUser fetches a user's pickup requests, optionally filtered
// by status.
func (r *ScheduleRepository) GetSchedulesByUser(ctx context.Context, userID primitive.ObjectID, status models.ScheduleStatus) ([]models.Schedule, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch schedules")
		return nil, wrapMongoErr(err, "failed to fetch schedules")
	}
	defer cursor.Close(ctx)

	var schedules []models.Schedule
	for cursor.Next(ctx) {
		var schedule models.Schedule
		if err := cursor.Decode(&schedule); err != nil {
			logger.Log.WithError(err).Error("Failed to decode schedule")
			return nil, wrapMongoErr(err, "failed to decode schedule")
		}
		schedules = append(schedules, schedule)
	}

	return schedules, nil
}

// TransitionStatus moves a pickup request from an expected prior status to a
// new one with a compare-and-swap: the filter matches both id and the prior
// status, so of two concurrent transitions only one lands. The loser gets
// Conflict, a missing document gets NotFound. Extra fields (collector,
// collected wastes) ride along in set.
func (r *ScheduleRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ScheduleStatus, set bson.M) (*models.Schedule, error) {
	if set == nil {
		set = bson.M{}
	}
	set["status"] = to
	set["updated_at"] = time.Now()

	var updated models.Schedule
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Filter missed: either the schedule is gone or its status moved
			// under us. Re-read to tell the two apart.
			if _, getErr := r.GetScheduleByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, apperrors.Newf(apperrors.KindConflict,
				"schedule %s is no longer in status %q", id.Hex(), from)
		}
		logger.Log.WithError(err).WithField("schedule_id", id.Hex()).Error("Failed to transition schedule status")
		return nil, wrapMongoErr(err, "failed to transition schedule status")
	}

	logger.Log.WithFields(map[string]interface{}{
		"schedule_id": id.Hex(),
		"from":        from,
		"to":          to,
	}).Info("Schedule status transitioned")
	return &updated, nil
}
