package services

import (
	"context"
	"testing"
	"time"

	"github.com/ecoleta/ecoleta-api/internal/models"
	"github.com/ecoleta/ecoleta-api/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAggregator struct {
	calls    int
	gotUser  primitive.ObjectID
	gotItems []models.WasteItem
	results  []ScoreUpdateResult
	err      error
}

func (f *fakeAggregator) ApplyCollectedWastes(_ context.Context, userID primitive.ObjectID, items []models.WasteItem, _ time.Time) ([]ScoreUpdateResult, error) {
	f.calls++
	f.gotUser = userID
	f.gotItems = items
	return f.results, f.err
}

func pendingSchedule(status models.ScheduleStatus) *models.Schedule {
	return &models.Schedule{
		ID:                primitive.NewObjectID(),
		UserID:            primitive.NewObjectID(),
		CollectionPointID: primitive.NewObjectID(),
		ScheduledFor:      time.Now().Add(24 * time.Hour),
		Status:            status,
		RequestedWastes: []models.WasteItem{
			{WasteTypeID: primitive.NewObjectID(), Quantity: 2, Weight: 1.5},
		},
	}
}

func TestConfirm(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusAwaitingConfirmation)
	svc := NewScheduleService(newFakeScheduleStore(schedule), &fakeAggregator{})

	updated, err := svc.Confirm(context.Background(), schedule.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusConfirmed, updated.Status)

	// Confirming twice is an illegal transition.
	_, err = svc.Confirm(context.Background(), schedule.ID.Hex())
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestCancel(t *testing.T) {
	awaiting := pendingSchedule(models.ScheduleStatusAwaitingConfirmation)
	confirmed := pendingSchedule(models.ScheduleStatusConfirmed)
	collected := pendingSchedule(models.ScheduleStatusCollected)

	svc := NewScheduleService(newFakeScheduleStore(awaiting, confirmed, collected), &fakeAggregator{})

	updated, err := svc.Cancel(context.Background(), awaiting.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, updated.Status)

	updated, err = svc.Cancel(context.Background(), confirmed.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, updated.Status)

	// Terminal states stay put.
	_, err = svc.Cancel(context.Background(), collected.ID.Hex())
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
}

func TestMarkCollected(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusConfirmed)
	store := newFakeScheduleStore(schedule)
	aggregator := &fakeAggregator{results: []ScoreUpdateResult{
		{ScoreID: primitive.NewObjectID(), Outcome: ScoreOutcomeUpdated},
	}}
	svc := NewScheduleService(store, aggregator)

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	collectedAt := time.Now()

	updated, results, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "Carlos", collectedAt)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCollected, updated.Status)
	assert.Equal(t, "Carlos", updated.Collector)
	assert.Equal(t, items, updated.CollectedWastes)
	require.NotNil(t, updated.CollectedAt)
	require.Len(t, results, 1)

	// Aggregator ran exactly once, for the schedule's owner.
	assert.Equal(t, 1, aggregator.calls)
	assert.Equal(t, schedule.UserID, aggregator.gotUser)
	assert.Equal(t, items, aggregator.gotItems)
}

func TestMarkCollectedIsGuardedAgainstReplay(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusCollected)
	aggregator := &fakeAggregator{}
	svc := NewScheduleService(newFakeScheduleStore(schedule), aggregator)

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	_, _, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "Carlos", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Zero(t, aggregator.calls)
}

func TestMarkCollectedRequiresConfirmedStatus(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusAwaitingConfirmation)
	aggregator := &fakeAggregator{}
	svc := NewScheduleService(newFakeScheduleStore(schedule), aggregator)

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	_, _, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "Carlos", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
	assert.Zero(t, aggregator.calls)
}

func TestMarkCollectedValidation(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusConfirmed)
	aggregator := &fakeAggregator{}
	svc := NewScheduleService(newFakeScheduleStore(schedule), aggregator)

	_, _, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), nil, "Carlos", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	negative := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: -1}}
	_, _, err = svc.MarkCollected(context.Background(), schedule.ID.Hex(), negative, "Carlos", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	_, _, err = svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	assert.Zero(t, aggregator.calls)
}

func TestMarkCollectedLosesStatusRace(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusConfirmed)
	store := newFakeScheduleStore(schedule)
	store.transitionErr = apperrors.Newf(apperrors.KindConflict, "schedule %s is no longer in status %q", schedule.ID.Hex(), schedule.Status)
	aggregator := &fakeAggregator{}
	svc := NewScheduleService(store, aggregator)

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	_, _, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "Carlos", time.Now())
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Zero(t, aggregator.calls)
}

func TestMarkCollectedKeepsStatusWhenAggregationFails(t *testing.T) {
	schedule := pendingSchedule(models.ScheduleStatusConfirmed)
	store := newFakeScheduleStore(schedule)
	aggregator := &fakeAggregator{err: apperrors.New(apperrors.KindUnavailable, "score store timeout")}
	svc := NewScheduleService(store, aggregator)

	items := []models.WasteItem{{WasteTypeID: primitive.NewObjectID(), Weight: 6}}
	updated, _, err := svc.MarkCollected(context.Background(), schedule.ID.Hex(), items, "Carlos", time.Now())

	// The failure is surfaced, but the transition is not rolled back.
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
	require.NotNil(t, updated)
	assert.Equal(t, models.ScheduleStatusCollected, updated.Status)

	stored, getErr := store.GetScheduleByID(context.Background(), schedule.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.ScheduleStatusCollected, stored.Status)
}

func TestCreateSchedule(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleStore(), &fakeAggregator{})

	schedule := pendingSchedule("")
	created, err := svc.CreateSchedule(context.Background(), schedule)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusAwaitingConfirmation, created.Status)
	assert.Empty(t, created.CollectedWastes)

	empty := pendingSchedule("")
	empty.RequestedWastes = nil
	_, err = svc.CreateSchedule(context.Background(), empty)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
