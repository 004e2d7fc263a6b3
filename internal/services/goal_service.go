package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GoalService encapsulates the business logic for the goal catalog.
type GoalService struct {
	repo GoalStore
}

// NewGoalService creates a new instance of GoalService.
func NewGoalService(repo GoalStore) *GoalService {
	return &GoalService{
		repo: repo,
	}
}

// CreateGoal validates and stores a new admin-authored goal.
func (s *GoalService) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	if err := validateGoal(goal); err != nil {
		return nil, err
	}

	if goal.Status == "" {
		goal.Status = models.GoalStatusActive
	}
	if goal.Status == models.GoalStatusExpired {
		return nil, apperrors.New(apperrors.KindValidation, "a goal cannot be created expired")
	}

	created, err := s.repo.CreateGoal(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %v", err)
	}

	logger.Log.WithField("goal_id", created.ID.Hex()).Info("Goal created in service layer")
	return created, nil
}

// GetGoal retrieves a goal with its embedded challenges.
func (s *GoalService) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid goal ID: %v", err)
	}

	goal, err := s.repo.GetGoalByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// UpdateGoal replaces a goal's definition. Expired goals are frozen: the
// expired status never reverts.
func (s *GoalService) UpdateGoal(ctx context.Context, id string, updated *models.Goal) (*models.Goal, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid goal ID: %v", err)
	}
	if err := validateGoal(updated); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetGoalByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.GoalStatusExpired {
		return nil, apperrors.Newf(apperrors.KindConflict, "goal %s is expired and cannot be edited", id)
	}
	if updated.Status == models.GoalStatusExpired {
		return nil, apperrors.New(apperrors.KindValidation, "goals expire via the sweeper, not via edits")
	}

	updated.ID = objID
	updated.CreatedAt = existing.CreatedAt
	if updated.Status == "" {
		updated.Status = existing.Status
	}

	goal, err := s.repo.UpdateGoal(ctx, objID, updated)
	if err != nil {
		return nil, err
	}

	logger.Log.WithField("goal_id", id).Info("Goal updated in service layer")
	return goal, nil
}

// GetActiveGoals lists the goals currently open for enrollment.
func (s *GoalService) GetActiveGoals(ctx context.Context) ([]models.Goal, error) {
	goals, err := s.repo.GetGoalsByStatus(ctx, models.GoalStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch goals: %v", err)
	}
	return goals, nil
}

// ExpireGoals is the sweeper hook for goals past their validity window.
func (s *GoalService) ExpireGoals(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ExpireGoals(ctx, now)
}

// ExpiredGoalIDs is the sweeper hook listing goals whose enrollments must be
// dragged into expiry.
func (s *GoalService) ExpiredGoalIDs(ctx context.Context, now time.Time) ([]primitive.ObjectID, error) {
	return s.repo.GetExpiredGoalIDs(ctx, now)
}

func validateGoal(goal *models.Goal) error {
	if goal.Title == "" {
		return apperrors.New(apperrors.KindValidation, "goal title is required")
	}
	if goal.Points <= 0 {
		return apperrors.New(apperrors.KindValidation, "goal points must be positive")
	}
	if goal.InitialDate.IsZero() || goal.ValidUntil.IsZero() || !goal.ValidUntil.After(goal.InitialDate) {
		return apperrors.New(apperrors.KindValidation, "goal validity window is malformed")
	}
	if len(goal.Challenges) == 0 {
		return apperrors.New(apperrors.KindValidation, "a goal needs at least one challenge")
	}
	for _, ch := range goal.Challenges {
		if ch.WasteTypeID.IsZero() {
			return apperrors.New(apperrors.KindValidation, "challenge is missing its waste type")
		}
		if ch.Kind != models.ChallengeKindQuantity && ch.Kind != models.ChallengeKindWeight {
			return apperrors.Newf(apperrors.KindValidation, "unknown challenge kind %q", ch.Kind)
		}
		if ch.Target <= 0 {
			return apperrors.New(apperrors.KindValidation, "challenge target must be positive")
		}
	}
	return nil
}
