package services

import (
	"context"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stores backing the service tests.

type fakeGoalStore struct {
	goals  map[primitive.ObjectID]*models.Goal
	getErr error
}

func newFakeGoalStore(goals ...*models.Goal) *fakeGoalStore {
	store := &fakeGoalStore{goals: make(map[primitive.ObjectID]*models.Goal)}
	for _, g := range goals {
		store.goals[g.ID] = g
	}
	return store
}

func (f *fakeGoalStore) CreateGoal(_ context.Context, goal *models.Goal) (*models.Goal, error) {
	if goal.ID.IsZero() {
		goal.ID = primitive.NewObjectID()
	}
	for i := range goal.Challenges {
		if goal.Challenges[i].ID.IsZero() {
			goal.Challenges[i].ID = primitive.NewObjectID()
		}
	}
	f.goals[goal.ID] = goal
	return goal, nil
}

func (f *fakeGoalStore) GetGoalByID(_ context.Context, id primitive.ObjectID) (*models.Goal, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	goal, ok := f.goals[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "goal %s not found", id.Hex())
	}
	copied := *goal
	return &copied, nil
}

func (f *fakeGoalStore) UpdateGoal(_ context.Context, id primitive.ObjectID, goal *models.Goal) (*models.Goal, error) {
	if _, ok := f.goals[id]; !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "goal %s not found", id.Hex())
	}
	goal.ID = id
	f.goals[id] = goal
	return goal, nil
}

func (f *fakeGoalStore) GetGoalsByStatus(_ context.Context, status models.GoalStatus) ([]models.Goal, error) {
	var goals []models.Goal
	for _, g := range f.goals {
		if g.Status == status {
			goals = append(goals, *g)
		}
	}
	return goals, nil
}

func (f *fakeGoalStore) ExpireGoals(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, g := range f.goals {
		if g.Status == models.GoalStatusActive && !g.ValidUntil.After(now) {
			g.Status = models.GoalStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakeGoalStore) GetExpiredGoalIDs(_ context.Context, now time.Time) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	for _, g := range f.goals {
		if g.Status == models.GoalStatusExpired || !g.ValidUntil.After(now) {
			ids = append(ids, g.ID)
		}
	}
	return ids, nil
}

type fakeScoreStore struct {
	scores        map[primitive.ObjectID]*models.Score
	updateErrs    map[primitive.ObjectID]error
	conflictsLeft map[primitive.ObjectID]int
	updateCalls   int
}

func newFakeScoreStore(scores ...*models.Score) *fakeScoreStore {
	store := &fakeScoreStore{
		scores:        make(map[primitive.ObjectID]*models.Score),
		updateErrs:    make(map[primitive.ObjectID]error),
		conflictsLeft: make(map[primitive.ObjectID]int),
	}
	for _, s := range scores {
		store.scores[s.ID] = s
	}
	return store
}

func copyScore(s *models.Score) *models.Score {
	copied := *s
	copied.Progress = append([]models.ChallengeProgress(nil), s.Progress...)
	return &copied
}

func (f *fakeScoreStore) CreateScore(_ context.Context, score *models.Score) (*models.Score, error) {
	if score.ID.IsZero() {
		score.ID = primitive.NewObjectID()
	}
	score.Version = 1
	f.scores[score.ID] = copyScore(score)
	return score, nil
}

func (f *fakeScoreStore) GetScoreByID(_ context.Context, id primitive.ObjectID) (*models.Score, error) {
	score, ok := f.scores[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "score %s not found", id.Hex())
	}
	return copyScore(score), nil
}

func (f *fakeScoreStore) GetScoresByUser(_ context.Context, userID primitive.ObjectID, status models.ScoreStatus) ([]models.Score, error) {
	var scores []models.Score
	for _, s := range f.scores {
		if s.UserID != userID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		scores = append(scores, *copyScore(s))
	}
	return scores, nil
}

func (f *fakeScoreStore) GetActiveScore(_ context.Context, userID, goalID primitive.ObjectID) (*models.Score, error) {
	for _, s := range f.scores {
		if s.UserID == userID && s.GoalID == goalID && s.Status == models.ScoreStatusActive {
			return copyScore(s), nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "no active score for user and goal")
}

func (f *fakeScoreStore) UpdateScoreProgress(_ context.Context, score *models.Score) error {
	f.updateCalls++
	if err := f.updateErrs[score.ID]; err != nil {
		return err
	}
	if f.conflictsLeft[score.ID] > 0 {
		f.conflictsLeft[score.ID]--
		// Emulate a concurrent writer bumping the stored version.
		f.scores[score.ID].Version++
		return apperrors.Newf(apperrors.KindConflict, "score %s was modified concurrently", score.ID.Hex())
	}

	stored, ok := f.scores[score.ID]
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "score %s not found", score.ID.Hex())
	}
	if stored.Version != score.Version {
		return apperrors.Newf(apperrors.KindConflict, "score %s was modified concurrently", score.ID.Hex())
	}

	updated := copyScore(score)
	updated.Version++
	f.scores[score.ID] = updated
	score.Version++
	return nil
}

func (f *fakeScoreStore) ExpireByDeadline(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, s := range f.scores {
		if s.Status == models.ScoreStatusActive && !s.ExpiresAt.After(now) {
			s.Status = models.ScoreStatusExpired
			count++
		}
	}
	return count, nil
}

func (f *fakeScoreStore) ExpireByGoalIDs(_ context.Context, goalIDs []primitive.ObjectID, _ time.Time) (int64, error) {
	var count int64
	for _, s := range f.scores {
		if s.Status != models.ScoreStatusActive {
			continue
		}
		for _, id := range goalIDs {
			if s.GoalID == id {
				s.Status = models.ScoreStatusExpired
				count++
				break
			}
		}
	}
	return count, nil
}

func (f *fakeScoreStore) SumEarnedPoints(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var total int64
	for _, s := range f.scores {
		if s.UserID == userID {
			total += s.EarnedPoints
		}
	}
	return total, nil
}

type fakeScheduleStore struct {
	schedules     map[primitive.ObjectID]*models.Schedule
	transitionErr error
}

func newFakeScheduleStore(schedules ...*models.Schedule) *fakeScheduleStore {
	store := &fakeScheduleStore{schedules: make(map[primitive.ObjectID]*models.Schedule)}
	for _, s := range schedules {
		store.schedules[s.ID] = s
	}
	return store
}

func (f *fakeScheduleStore) CreateSchedule(_ context.Context, schedule *models.Schedule) (*models.Schedule, error) {
	if schedule.ID.IsZero() {
		schedule.ID = primitive.NewObjectID()
	}
	f.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (f *fakeScheduleStore) GetScheduleByID(_ context.Context, id primitive.ObjectID) (*models.Schedule, error) {
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "schedule %s not found", id.Hex())
	}
	copied := *schedule
	return &copied, nil
}

func (f *fakeScheduleStore) GetSchedulesByUser(_ context.Context, userID primitive.ObjectID, status models.ScheduleStatus) ([]models.Schedule, error) {
	var schedules []models.Schedule
	for _, s := range f.schedules {
		if s.UserID != userID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		schedules = append(schedules, *s)
	}
	return schedules, nil
}

func (f *fakeScheduleStore) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.ScheduleStatus, set bson.M) (*models.Schedule, error) {
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "schedule %s not found", id.Hex())
	}
	if schedule.Status != from {
		return nil, apperrors.Newf(apperrors.KindConflict, "schedule %s is no longer in status %q", id.Hex(), from)
	}

	schedule.Status = to
	if items, ok := set["collected_wastes"].([]models.WasteItem); ok {
		schedule.CollectedWastes = items
	}
	if collector, ok := set["collector"].(string); ok {
		schedule.Collector = collector
	}
	if at, ok := set["collected_at"].(time.Time); ok {
		schedule.CollectedAt = &at
	}

	copied := *schedule
	return &copied, nil
}
