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

// ScoreRepository handles database operations related to participation
// ledgers.
type ScoreRepository struct {
	collection *mongo.Collection
}

// NewScoreRepository creates a new instance of ScoreRepository.
func NewScoreRepository(db *mongo.Database) *ScoreRepository {
	return &ScoreRepository{
		collection: db.Collection("scores"),
	}
}

// CreateScore inserts a new participation ledger.
func (r *ScoreRepository) CreateScore(ctx context.Context, score *models.Score) (*models.Score, error) {
	score.CreatedAt = time.Now()
	score.UpdatedAt = time.Now()
	score.Version = 1

	result, err := r.collection.InsertOne(ctx, score)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert score")
		return nil, wrapMongoErr(err, "failed to insert score")
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted score ID")
		return nil, errors.New("failed to cast inserted score ID")
	}
	score.ID = insertedID

	logger.Log.WithFields(map[string]interface{}{
		"score_id": score.ID.Hex(),
		"user_id":  score.UserID.Hex(),
		"goal_id":  score.GoalID.Hex(),
	}).Info("Score created successfully")
	return score, nil
}

// GetScoreByID fetches a participation ledger by its ID.
func (r *ScoreRepository) GetScoreByID(ctx context.Context, id primitive.ObjectID) (*models.Score, error) {
	var score models.Score

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&score)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.Newf(apperrors.KindNotFound, "score %s not found", id.Hex())
		}
		logger.Log.WithError(err).WithField("score_id", id.Hex()).Error("Failed to find score by ID")
		return nil, wrapMongoErr(err, "failed to find score")
	}

	return &score, nil
}

// GetScoresByUser fetches a user's ledgers, optionally filtered by status.
func (r *ScoreRepository) GetScoresByUser(ctx context.Context, userID primitive.ObjectID, status models.ScoreStatus) ([]models.Score, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch scores")
		return nil, wrapMongoErr(err, "failed to fetch scores")
	}
	defer cursor.Close(ctx)

	var scores []models.Score
	for cursor.Next(ctx) {
		var score models.Score
		if err := cursor.Decode(&score); err != nil {
			logger.Log.WithError(err).Error("Failed to decode score")
			return nil, wrapMongoErr(err, "failed to decode score")
		}
		scores = append(scores, score)
	}

	return scores, nil
}

// GetActiveScore fetches the active ledger for a (user, goal) pair, if any.
func (r *ScoreRepository) GetActiveScore(ctx context.Context, userID, goalID primitive.ObjectID) (*models.Score, error) {
	var score models.Score

	err := r.collection.FindOne(ctx, bson.M{
		"user_id": userID,
		"goal_id": goalID,
		"status":  models.ScoreStatusActive,
	}).Decode(&score)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.New(apperrors.KindNotFound, "no active score for user and goal")
		}
		return nil, wrapMongoErr(err, "failed to find active score")
	}

	return &score, nil
}

// UpdateScoreProgress persists progress, status and earned points with an
// optimistic version check: the write only lands if nobody touched the
// ledger since it was read. A lost race surfaces as Conflict so the caller
// can reload and retry.
func (r *ScoreRepository) UpdateScoreProgress(ctx context.Context, score *models.Score) error {
	now := time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": score.ID, "version": score.Version},
		bson.M{
			"$set": bson.M{
				"progress":      score.Progress,
				"status":        score.Status,
				"earned_points": score.EarnedPoints,
				"updated_at":    now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		logger.Log.WithError(err).WithField("score_id", score.ID.Hex()).Error("Failed to update score progress")
		return wrapMongoErr(err, "failed to update score progress")
	}
	if result.MatchedCount == 0 {
		return apperrors.Newf(apperrors.KindConflict, "score %s was modified concurrently", score.ID.Hex())
	}

	score.Version++
	score.UpdatedAt = now
	return nil
}

// ExpireByDeadline flips every active ledger whose snapshotted deadline has
// passed to expired. Repeated sweeps are no-ops.
func (r *ScoreRepository) ExpireByDeadline(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"status":     models.ScoreStatusActive,
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{
			"$set": bson.M{
				"status":     models.ScoreStatusExpired,
				"updated_at": now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to expire scores by deadline")
		return 0, wrapMongoErr(err, "failed to expire scores")
	}

	return result.ModifiedCount, nil
}

// ExpireByGoalIDs flips active ledgers enrolled in the given goals to
// expired. Covers goals whose window was shortened after enrollment.
func (r *ScoreRepository) ExpireByGoalIDs(ctx context.Context, goalIDs []primitive.ObjectID, now time.Time) (int64, error) {
	if len(goalIDs) == 0 {
		return 0, nil
	}

	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"status":  models.ScoreStatusActive,
			"goal_id": bson.M{"$in": goalIDs},
		},
		bson.M{
			"$set": bson.M{
				"status":     models.ScoreStatusExpired,
				"updated_at": now,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to expire scores by goal")
		return 0, wrapMongoErr(err, "failed to expire scores")
	}

	return result.ModifiedCount, nil
}

// SumEarnedPoints totals the points a user has earned across completed
// ledgers.
func (r *ScoreRepository) SumEarnedPoints(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$earned_points"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to sum earned points")
		return 0, wrapMongoErr(err, "failed to sum earned points")
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, wrapMongoErr(err, "failed to decode points total")
		}
	}

	return result.Total, nil
}
