package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/services"
	"github.com/sirupsen/logrus"
)

// ExpirationSweeper flips goals and participation ledgers past their
// deadline into the expired status. Expiry is one-way, so running the sweep
// repeatedly or concurrently only ever re-matches nothing.
type ExpirationSweeper struct {
	GoalService  *services.GoalService
	ScoreService *services.ScoreService
}

// NewExpirationSweeper creates a new instance of ExpirationSweeper.
func NewExpirationSweeper(goalService *services.GoalService, scoreService *services.ScoreService) *ExpirationSweeper {
	return &ExpirationSweeper{
		GoalService:  goalService,
		ScoreService: scoreService,
	}
}

// Sweep expires overdue goals, then the ledgers they drag along, all against
// a single now snapshot. Returns the number of records transitioned.
func (s *ExpirationSweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	expiredGoals, err := s.GoalService.ExpireGoals(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire goals: %v", err)
	}

	expiredScores, err := s.ScoreService.ExpireByDeadline(ctx, now)
	if err != nil {
		return expiredGoals, fmt.Errorf("failed to expire scores by deadline: %v", err)
	}

	// Ledgers of goals that expired through an admin edit carry a stale
	// deadline snapshot; catch them through the goal side.
	goalIDs, err := s.GoalService.ExpiredGoalIDs(ctx, now)
	if err != nil {
		return expiredGoals + expiredScores, fmt.Errorf("failed to list expired goals: %v", err)
	}
	draggedScores, err := s.ScoreService.ExpireByGoalIDs(ctx, goalIDs, now)
	if err != nil {
		return expiredGoals + expiredScores, fmt.Errorf("failed to expire scores by goal: %v", err)
	}

	total := expiredGoals + expiredScores + draggedScores
	logrus.WithFields(logrus.Fields{
		"goals_expired":  expiredGoals,
		"scores_expired": expiredScores + draggedScores,
	}).Info("Expiration sweep completed")
	return total, nil
}
