package services

import (
	"context"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The store interfaces are what the services need from persistence. The
// repository package satisfies them; tests substitute in-memory fakes.

type GoalStore interface {
	CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	GetGoalByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error)
	UpdateGoal(ctx context.Context, id primitive.ObjectID, goal *models.Goal) (*models.Goal, error)
	GetGoalsByStatus(ctx context.Context, status models.GoalStatus) ([]models.Goal, error)
	ExpireGoals(ctx context.Context, now time.Time) (int64, error)
	GetExpiredGoalIDs(ctx context.Context, now time.Time) ([]primitive.ObjectID, error)
}

type ScoreStore interface {
	CreateScore(ctx context.Context, score *models.Score) (*models.Score, error)
	GetScoreByID(ctx context.Context, id primitive.ObjectID) (*models.Score, error)
	GetScoresByUser(ctx context.Context, userID primitive.ObjectID, status models.ScoreStatus) ([]models.Score, error)
	GetActiveScore(ctx context.Context, userID, goalID primitive.ObjectID) (*models.Score, error)
	UpdateScoreProgress(ctx context.Context, score *models.Score) error
	ExpireByDeadline(ctx context.Context, now time.Time) (int64, error)
	ExpireByGoalIDs(ctx context.Context, goalIDs []primitive.ObjectID, now time.Time) (int64, error)
	SumEarnedPoints(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule *models.Schedule) (*models.Schedule, error)
	GetScheduleByID(ctx context.Context, id primitive.ObjectID) (*models.Schedule, error)
	GetSchedulesByUser(ctx context.Context, userID primitive.ObjectID, status models.ScheduleStatus) ([]models.Schedule, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ScheduleStatus, set bson.M) (*models.Schedule, error)
}

type WasteStore interface {
	GetAllWasteTypes(ctx context.Context) ([]models.WasteType, error)
	GetWasteTypeByID(ctx context.Context, id primitive.ObjectID) (*models.WasteType, error)
}
