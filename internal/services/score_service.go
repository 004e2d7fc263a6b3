package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/ecoleta/ecoleta-api/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// progressUpdateRetries bounds the reload-and-reapply loop when a versioned
// score write loses a race.
const progressUpdateRetries = 3

// ScoreUpdateOutcome describes what happened to one ledger during a
// progress-distribution pass.
type ScoreUpdateOutcome string

const (
	ScoreOutcomeUpdated   ScoreUpdateOutcome = "updated"
	ScoreOutcomeCompleted ScoreUpdateOutcome = "completed"
	ScoreOutcomeSkipped   ScoreUpdateOutcome = "skipped"
	ScoreOutcomeUnchanged ScoreUpdateOutcome = "unchanged"
	ScoreOutcomeFailed    ScoreUpdateOutcome = "failed"
)

// ScoreUpdateResult is the per-ledger report of a batch distribution.
// Callers retry only the failed subset.
type ScoreUpdateResult struct {
	ScoreID primitive.ObjectID `json:"score_id"`
	GoalID  primitive.ObjectID `json:"goal_id"`
	Outcome ScoreUpdateOutcome `json:"outcome"`
	Error   string             `json:"error,omitempty"`
}

// ScoreService encapsulates enrollment and progress distribution for
// participation ledgers. It is the only writer of ledger progress.
type ScoreService struct {
	repo     ScoreStore
	goalRepo GoalStore
}

// NewScoreService creates a new instance of ScoreService.
func NewScoreService(repo ScoreStore, goalRepo GoalStore) *ScoreService {
	return &ScoreService{
		repo:     repo,
		goalRepo: goalRepo,
	}
}

// Enroll creates a participation ledger for the user in the given goal.
// Fails with Conflict when an active ledger already exists for the pair and
// with NotFound when the goal is missing, inactive or past its window.
func (s *ScoreService) Enroll(ctx context.Context, userID primitive.ObjectID, goalID string) (*models.Score, error) {
	objID, err := primitive.ObjectIDFromHex(goalID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid goal ID: %v", err)
	}

	goal, err := s.goalRepo.GetGoalByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if goal.Status != models.GoalStatusActive || goal.ExpiredAt(time.Now()) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "goal %s is not open for enrollment", goalID)
	}

	if existing, err := s.repo.GetActiveScore(ctx, userID, objID); err == nil && existing != nil {
		return nil, apperrors.Newf(apperrors.KindConflict, "user already enrolled in goal %s", goalID)
	} else if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, fmt.Errorf("failed to check existing enrollment: %v", err)
	}

	score := &models.Score{
		UserID:    userID,
		GoalID:    goal.ID,
		Status:    models.ScoreStatusActive,
		Progress:  make([]models.ChallengeProgress, 0, len(goal.Challenges)),
		ExpiresAt: goal.ValidUntil,
	}
	for _, ch := range goal.Challenges {
		score.Progress = append(score.Progress, models.ChallengeProgress{ChallengeID: ch.ID})
	}

	created, err := s.repo.CreateScore(ctx, score)
	if err != nil {
		return nil, fmt.Errorf("failed to create score: %v", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": userID.Hex(),
		"goal_id": goalID,
	}).Info("User enrolled in goal")
	return created, nil
}

// ApplyCollectedWastes distributes a collected waste batch into every active
// ledger of the user. Ledgers whose goal has expired are skipped silently;
// each ledger is persisted independently so one failure never blocks the
// rest. The returned slice carries one result per ledger.
func (s *ScoreService) ApplyCollectedWastes(ctx context.Context, userID primitive.ObjectID, items []models.WasteItem, now time.Time) ([]ScoreUpdateResult, error) {
	scores, err := s.repo.GetScoresByUser(ctx, userID, models.ScoreStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active scores: %v", err)
	}

	results := make([]ScoreUpdateResult, 0, len(scores))
	for i := range scores {
		result := s.applyToScore(ctx, &scores[i], items, now)
		if result.Outcome == ScoreOutcomeFailed {
			logrus.WithFields(logrus.Fields{
				"score_id": result.ScoreID.Hex(),
				"error":    result.Error,
			}).Warn("Failed to apply collected wastes to score")
		}
		results = append(results, result)
	}

	return results, nil
}

// applyToScore applies the batch to a single ledger, retrying on version
// races. The goal is re-read per invocation so the expiry check and the
// progress application share the same definition.
func (s *ScoreService) applyToScore(ctx context.Context, score *models.Score, items []models.WasteItem, now time.Time) ScoreUpdateResult {
	result := ScoreUpdateResult{ScoreID: score.ID, GoalID: score.GoalID}

	goal, err := s.goalRepo.GetGoalByID(ctx, score.GoalID)
	if err != nil {
		result.Outcome = ScoreOutcomeFailed
		result.Error = err.Error()
		return result
	}
	if goal.Status != models.GoalStatusActive || goal.ExpiredAt(now) {
		// The sweeper owns flipping this ledger to expired.
		result.Outcome = ScoreOutcomeSkipped
		return result
	}

	_, outcome, err := s.persistWithRetry(ctx, score, goal, items)
	result.Outcome = outcome
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// ApplyChallengeProgress is the single-line-item entry point kept for
// callers that report one waste type at a time. It funnels through the same
// clamping and completion rules as the batch path.
func (s *ScoreService) ApplyChallengeProgress(ctx context.Context, userID primitive.ObjectID, scoreID, wasteTypeID string, quantity float64, now time.Time) (*models.Score, error) {
	objID, err := primitive.ObjectIDFromHex(scoreID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid score ID: %v", err)
	}
	wasteObjID, err := primitive.ObjectIDFromHex(wasteTypeID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid waste type ID: %v", err)
	}
	if quantity < 0 {
		return nil, apperrors.New(apperrors.KindValidation, "quantity must not be negative")
	}

	score, err := s.repo.GetScoreByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if score.UserID != userID {
		return nil, apperrors.Newf(apperrors.KindNotFound, "score %s not found", scoreID)
	}

	switch score.Status {
	case models.ScoreStatusActive:
	case models.ScoreStatusCompleted:
		// Re-applying progress to a completed ledger is a no-op.
		return score, nil
	default:
		return nil, apperrors.Newf(apperrors.KindConflict, "score %s is %s", scoreID, score.Status)
	}

	goal, err := s.goalRepo.GetGoalByID(ctx, score.GoalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != models.GoalStatusActive || goal.ExpiredAt(now) {
		// Same policy as the batch path: expired goals absorb nothing.
		return score, nil
	}

	items := []models.WasteItem{{WasteTypeID: wasteObjID, Quantity: quantity}}
	updated, outcome, err := s.persistWithRetry(ctx, score, goal, items)
	if outcome == ScoreOutcomeFailed {
		return nil, fmt.Errorf("failed to apply progress: %v", err)
	}
	return updated, nil
}

// persistWithRetry applies items to the ledger and writes it back under the
// optimistic version check, reloading and reapplying on a lost race.
func (s *ScoreService) persistWithRetry(ctx context.Context, score *models.Score, goal *models.Goal, items []models.WasteItem) (*models.Score, ScoreUpdateOutcome, error) {
	current := score
	var err error

	for attempt := 0; attempt < progressUpdateRetries; attempt++ {
		if !applyCollectedToScore(current, goal, items) {
			return current, ScoreOutcomeUnchanged, nil
		}
		completedNow := completeIfDone(current, goal)

		err = s.repo.UpdateScoreProgress(ctx, current)
		if err == nil {
			if completedNow {
				logger.Log.WithFields(map[string]interface{}{
					"score_id": current.ID.Hex(),
					"goal_id":  goal.ID.Hex(),
					"points":   goal.Points,
				}).Info("Score completed, points awarded")
				return current, ScoreOutcomeCompleted, nil
			}
			return current, ScoreOutcomeUpdated, nil
		}
		if !apperrors.IsKind(err, apperrors.KindConflict) {
			break
		}

		reloaded, loadErr := s.repo.GetScoreByID(ctx, current.ID)
		if loadErr != nil {
			err = loadErr
			break
		}
		current = reloaded
		if current.Status != models.ScoreStatusActive {
			// Someone else completed or expired it meanwhile; nothing to add.
			return current, ScoreOutcomeUnchanged, nil
		}
	}

	return current, ScoreOutcomeFailed, err
}

// applyCollectedToScore folds every matching line item into the ledger's
// progress. A line item is not consumed by a match: the same item may feed
// several challenges and, across ledgers, several goals.
func applyCollectedToScore(score *models.Score, goal *models.Goal, items []models.WasteItem) bool {
	changed := false
	for _, ch := range goal.Challenges {
		for _, item := range items {
			if item.WasteTypeID != ch.WasteTypeID {
				continue
			}
			var delta float64
			switch ch.Kind {
			case models.ChallengeKindQuantity:
				delta = item.Quantity
			case models.ChallengeKindWeight:
				delta = item.Weight
			}
			if applyProgress(score, ch, delta) {
				changed = true
			}
		}
	}
	return changed
}

// applyProgress adds delta to one challenge's progress, clamped to the
// challenge target. Every progress mutation in the system goes through here.
func applyProgress(score *models.Score, ch models.Challenge, delta float64) bool {
	if score.Status != models.ScoreStatusActive || delta <= 0 {
		return false
	}

	entry := score.ProgressFor(ch.ID)
	if entry == nil {
		score.Progress = append(score.Progress, models.ChallengeProgress{ChallengeID: ch.ID})
		entry = &score.Progress[len(score.Progress)-1]
	}

	next := entry.Current + delta
	if next > ch.Target {
		next = ch.Target
	}
	if next <= entry.Current {
		return false
	}
	entry.Current = next
	return true
}

// completeIfDone flips the ledger to completed and awards the goal's points
// once every challenge has reached its target. An already-completed ledger
// is never touched, so points are awarded exactly once.
func completeIfDone(score *models.Score, goal *models.Goal) bool {
	if score.Status != models.ScoreStatusActive {
		return false
	}
	for _, ch := range goal.Challenges {
		entry := score.ProgressFor(ch.ID)
		if entry == nil || entry.Current < ch.Target {
			return false
		}
	}

	score.Status = models.ScoreStatusCompleted
	score.EarnedPoints = goal.Points
	return true
}

// GetScore retrieves one of the user's ledgers by ID.
func (s *ScoreService) GetScore(ctx context.Context, userID primitive.ObjectID, scoreID string) (*models.Score, error) {
	objID, err := primitive.ObjectIDFromHex(scoreID)
	if err != nil {
		return nil, apperrors.Newf(apperrors.KindValidation, "invalid score ID: %v", err)
	}

	score, err := s.repo.GetScoreByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if score.UserID != userID {
		return nil, apperrors.Newf(apperrors.KindNotFound, "score %s not found", scoreID)
	}
	return score, nil
}

// GetScores lists the user's ledgers, optionally filtered by status.
func (s *ScoreService) GetScores(ctx context.Context, userID primitive.ObjectID, status string) ([]models.Score, error) {
	scoreStatus := models.ScoreStatus(status)
	if status != "" {
		switch scoreStatus {
		case models.ScoreStatusActive, models.ScoreStatusCompleted,
			models.ScoreStatusExpired, models.ScoreStatusInactive:
		default:
			return nil, apperrors.Newf(apperrors.KindValidation, "unknown score status %q", status)
		}
	}

	scores, err := s.repo.GetScoresByUser(ctx, userID, scoreStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scores: %v", err)
	}
	return scores, nil
}

// TotalEarnedPoints sums the points the user earned across ledgers.
func (s *ScoreService) TotalEarnedPoints(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	total, err := s.repo.SumEarnedPoints(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum earned points: %v", err)
	}
	return total, nil
}

// ExpireByDeadline is the sweeper hook for ledgers past their snapshotted
// deadline.
func (s *ScoreService) ExpireByDeadline(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.ExpireByDeadline(ctx, now)
}

// ExpireByGoalIDs is the sweeper hook for ledgers of already-expired goals.
func (s *ScoreService) ExpireByGoalIDs(ctx context.Context, goalIDs []primitive.ObjectID, now time.Time) (int64, error) {
	return s.repo.ExpireByGoalIDs(ctx, goalIDs, now)
}
