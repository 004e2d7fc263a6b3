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
)

// GoalRepository handles database operations related to goals.
type GoalRepository struct {
	collection *mongo.Collection
}

// NewGoalRepository creates a new instance of GoalRepository.
func NewGoalRepository(db *mongo.Database) *GoalRepository {
	return &GoalRepository{
		collection: db.Collection("goals"),
	}
}

// CreateGoal inserts a new goal into the database.
func (r *GoalRepository) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = time.Now()

	// Challenges get their ids here so progress entries can reference them.
	for i := range goal.Challenges {
		if goal.Challenges[i].ID.IsZero() {
			goal.Challenges[i].ID = primitive.NewObjectID()
		}
	}

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert goal")
		return nil, wrapMongoErr(err, "failed to insert goal")
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted goal ID")
		return nil, errors.New("failed to cast inserted goal ID")
	}
	goal.ID = insertedID

	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal created successfully")
	return goal, nil
}

// GetGoalByID fetches a goal by its ID.
func (r *GoalRepository) GetGoalByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error) {
	var goal models.Goal

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&goal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "goal %s not found", id.Hex())
		}
		logger.Log.WithError(err).WithField("goal_id", id.Hex()).Error("Failed to find goal by ID")
		return nil, wrapMongoErr(err, "failed to find goal")
	}

	return &goal, nil
}

// UpdateGoal replaces the mutable fields of an existing goal.
func (r *GoalRepository) UpdateGoal(ctx context.Context, id primitive.ObjectID, goal *models.Goal) (*models.Goal, error) {
	goal.UpdatedAt = time.Now()

	for i := range goal.Challenges {
		if goal.Challenges[i].ID.IsZero() {
			goal.Challenges[i].ID = primitive.NewObjectID()
		}
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": goal},
	)
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", id.Hex()).Error("Failed to update goal")
		return nil, wrapMongoErr(err, "failed to update goal")
	}
	if result.MatchedCount == 0 {
		return nil, apperrors.Newf(apperrors.KindNotFound, "goal %s not found", id.Hex())
	}

	logger.Log.WithField("goal_id", id.Hex()).Info("Goal updated successfully")
	return goal, nil
}

// GetGoalsByStatus fetches all goals with the given status.
func (r *GoalRepository) GetGoalsByStatus(ctx context.Context, status models.GoalStatus) ([]models.Goal, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"status": status})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch goals by status")
		return nil, wrapMongoErr(err, "failed to fetch goals")
	}
	defer cursor.Close(ctx)

	var goals []models.Goal
	for cursor.Next(ctx) {
		var goal models.Goal
		if err := cursor.Decode(&goal); err != nil {
			logger.Log.WithError(err).Error("Failed to decode goal")
			return nil, wrapMongoErr(err, "failed to decode goal")
		}
		goals = append(goals, goal)
	}

	return goals, nil
}

// ExpireGoals flips every active goal whose validity window closed at or
// before now to expired. Already-expired goals are untouched, so repeated
// sweeps are no-ops.
func (r *GoalRepository) ExpireGoals(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"status":      models.GoalStatusActive,
			"valid_until": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{
			"status":     models.GoalStatusExpired,
			"updated_at": now,
		}},
	)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to expire goals")
		return 0, wrapMongoErr(err, "failed to expire goals")
	}

	return result.ModifiedCount, nil
}

// GetExpiredGoalIDs returns the ids of goals that are expired or past their
// validity window as of now. Used by the sweeper to drag enrollments along.
func (r *GoalRepository) GetExpiredGoalIDs(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	filter := bson.M{"$or": []bson.M{
		{"status": models.GoalStatusExpired},
		{"valid_until": bson.M{"$lte": now}},
	}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch expired goal IDs")
		return nil, wrapMongoErr(err, "failed to fetch expired goals")
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, wrapMongoErr(err, "failed to decode expired goal")
		}
		ids = append(ids, doc.ID)
	}

	return ids, nil
}
