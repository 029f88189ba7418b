package stats

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitclub/internal/outbox"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context, userID int) (*UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserStats), args.Error(1)
}

func (m *MockRepository) Apply(ctx context.Context, eventID int64, userID int, fn func(UserStats) UserStats) error {
	return m.Called(ctx, eventID, userID, fn).Error(0)
}

// memRepository keeps rows in memory and skips event ids it has seen.
type memRepository struct {
	mu      sync.Mutex
	rows    map[int]UserStats
	applied map[int64]bool
}

func newMemRepository() *memRepository {
	return &memRepository{rows: map[int]UserStats{}, applied: map[int64]bool{}}
}

func (r *memRepository) Get(ctx context.Context, userID int) (*UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[userID]
	if !ok {
		return nil, ErrStatsNotFound
	}
	return &s, nil
}

func (r *memRepository) Apply(ctx context.Context, eventID int64, userID int, fn func(UserStats) UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied[eventID] {
		return ErrAlreadyApplied
	}
	r.applied[eventID] = true
	r.rows[userID] = fn(r.rows[userID])
	return nil
}

var fixedNow = time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

func lastWorkout(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		before UserStats
		action Action
		check  func(t *testing.T, after UserStats)
	}{
		{
			name:   "booking created increments total",
			before: UserStats{TotalBookings: 2},
			action: ActionBookingCreated,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 3, after.TotalBookings)
			},
		},
		{
			name:   "cancel decrements total",
			before: UserStats{TotalBookings: 2},
			action: ActionBookingCancelled,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 1, after.TotalBookings)
			},
		},
		{
			name:   "cancel never goes below zero",
			before: UserStats{TotalBookings: 0},
			action: ActionBookingCancelled,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 0, after.TotalBookings)
			},
		},
		{
			name: "workout after yesterday extends streak",
			before: UserStats{
				CompletedWorkouts: 4,
				CurrentStreakDays: 3,
				BestStreakDays:    3,
				TotalHoursTrained: 6,
				LastWorkoutDate:   lastWorkout(fixedNow.AddDate(0, 0, -1).Add(-5 * time.Hour)),
			},
			action: ActionWorkoutCompleted,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 5, after.CompletedWorkouts)
				assert.Equal(t, 4, after.CurrentStreakDays)
				assert.Equal(t, 4, after.BestStreakDays)
				assert.InDelta(t, 7.5, after.TotalHoursTrained, 0.001)
				assert.True(t, after.LastWorkoutDate.Time.Equal(fixedNow))
			},
		},
		{
			name: "workout after a gap resets streak",
			before: UserStats{
				CurrentStreakDays: 6,
				BestStreakDays:    6,
				LastWorkoutDate:   lastWorkout(fixedNow.AddDate(0, 0, -3)),
			},
			action: ActionWorkoutCompleted,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 1, after.CurrentStreakDays)
				assert.Equal(t, 6, after.BestStreakDays)
			},
		},
		{
			name: "second workout on the same day resets streak",
			before: UserStats{
				CurrentStreakDays: 2,
				BestStreakDays:    2,
				LastWorkoutDate:   lastWorkout(fixedNow.Add(-2 * time.Hour)),
			},
			action: ActionWorkoutCompleted,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 1, after.CurrentStreakDays)
				assert.Equal(t, 2, after.BestStreakDays)
			},
		},
		{
			name:   "first workout starts streak",
			before: UserStats{},
			action: ActionWorkoutCompleted,
			check: func(t *testing.T, after UserStats) {
				assert.Equal(t, 1, after.CompletedWorkouts)
				assert.Equal(t, 1, after.CurrentStreakDays)
				assert.Equal(t, 1, after.BestStreakDays)
				assert.InDelta(t, 1.5, after.TotalHoursTrained, 0.001)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := Next(tt.before, tt.action, fixedNow)
			tt.check(t, after)
			assert.True(t, after.UpdatedAt.Equal(fixedNow))
		})
	}
}

func TestNext_StreakUsesCalendarDateOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 3, 15, 1, 0, 0, 0, loc)
	// 2024-03-14 20:00 in UTC+3, which is still 2024-03-14 17:00 UTC.
	prev := time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC)

	after := Next(UserStats{CurrentStreakDays: 1, BestStreakDays: 1, LastWorkoutDate: lastWorkout(prev)}, ActionWorkoutCompleted, now)

	assert.Equal(t, 2, after.CurrentStreakDays)
}

func TestUpdater_Apply_MissingRowStartsFromZero(t *testing.T) {
	repo := newMemRepository()
	u := NewUpdater(repo, time.UTC)

	err := u.Apply(context.Background(), 1, 7, ActionBookingCreated, fixedNow)
	require.NoError(t, err)

	s, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, s.UserID)
	assert.Equal(t, 1, s.TotalBookings)
	assert.True(t, s.UpdatedAt.Equal(fixedNow))
}

func TestUpdater_Apply_StreakUsesEventTime(t *testing.T) {
	repo := newMemRepository()
	repo.rows[4] = UserStats{
		UserID:            4,
		CompletedWorkouts: 1,
		CurrentStreakDays: 1,
		BestStreakDays:    1,
		LastWorkoutDate:   lastWorkout(time.Date(2024, 3, 14, 19, 0, 0, 0, time.UTC)),
	}
	u := NewUpdater(repo, time.UTC)
	// Dispatched just after midnight for a workout completed the day before.
	u.now = func() time.Time { return time.Date(2024, 3, 16, 0, 0, 5, 0, time.UTC) }
	completedAt := time.Date(2024, 3, 15, 23, 59, 50, 0, time.UTC)

	err := u.Apply(context.Background(), 9, 4, ActionWorkoutCompleted, completedAt)
	require.NoError(t, err)

	s, err := repo.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentStreakDays)
	assert.Equal(t, 2, s.BestStreakDays)
	assert.Equal(t, "2024-03-15", s.LastWorkoutDate.Time.Format(dayLayout))
}

func TestUpdater_Apply_ZeroTimeFallsBackToClock(t *testing.T) {
	repo := newMemRepository()
	u := NewUpdater(repo, time.UTC)
	u.now = func() time.Time { return fixedNow }

	require.NoError(t, u.Apply(context.Background(), 1, 7, ActionWorkoutCompleted, time.Time{}))

	s, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, s.LastWorkoutDate.Time.Equal(fixedNow))
}

func TestUpdater_Apply_ReplayedEventCountsOnce(t *testing.T) {
	repo := newMemRepository()
	u := NewUpdater(repo, time.UTC)

	require.NoError(t, u.Apply(context.Background(), 42, 7, ActionWorkoutCompleted, fixedNow))
	require.NoError(t, u.Apply(context.Background(), 42, 7, ActionWorkoutCompleted, fixedNow))

	s, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CompletedWorkouts)
	assert.InDelta(t, 1.5, s.TotalHoursTrained, 0.001)
}

func TestUpdater_Apply_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	u := NewUpdater(repo, time.UTC)

	repo.On("Apply", mock.Anything, int64(1), 7, mock.Anything).Return(errors.New("disk full"))

	err := u.Apply(context.Background(), 1, 7, ActionBookingCancelled, fixedNow)

	assert.ErrorContains(t, err, "disk full")
}

func TestUpdater_OutboxHandler(t *testing.T) {
	repo := newMemRepository()
	repo.rows[3] = UserStats{UserID: 3, TotalBookings: 1}
	u := NewUpdater(repo, time.UTC)

	h := u.OutboxHandler(ActionBookingCancelled)
	err := h(context.Background(), outbox.Event{
		ID:        1,
		Type:      outbox.EventBookingCancelled,
		Payload:   []byte(`{"booking_id":10,"user_id":3}`),
		CreatedAt: fixedNow,
	})

	require.NoError(t, err)
	s, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalBookings)
	assert.True(t, s.UpdatedAt.Equal(fixedNow))
}

func TestUpdater_OutboxHandler_BadPayload(t *testing.T) {
	repo := new(MockRepository)
	u := NewUpdater(repo, time.UTC)

	h := u.OutboxHandler(ActionBookingCreated)
	err := h(context.Background(), outbox.Event{Type: outbox.EventBookingCreated, Payload: []byte(`not json`)})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type outboxRepo struct {
	mock.Mock
}

func (m *outboxRepo) ClaimDue(ctx context.Context, limit, maxAttempts int, lease time.Duration) ([]outbox.Event, error) {
	args := m.Called(ctx, limit, maxAttempts, lease)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]outbox.Event), args.Error(1)
}

func (m *outboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *outboxRepo) MarkFailed(ctx context.Context, id int64, reason string, nextAttemptAt time.Time) error {
	return m.Called(ctx, id, reason, nextAttemptAt).Error(0)
}

func TestUpdater_RedeliveryAfterMarkProcessedFailure(t *testing.T) {
	ev := outbox.Event{
		ID:        5,
		Type:      outbox.EventWorkoutCompleted,
		Payload:   []byte(`{"booking_id":10,"user_id":3}`),
		CreatedAt: fixedNow,
	}
	obx := new(outboxRepo)
	obx.On("ClaimDue", mock.Anything, 10, 3, time.Minute).Return([]outbox.Event{ev}, nil).Twice()
	obx.On("MarkProcessed", mock.Anything, int64(5)).Return(errors.New("connection reset")).Once()
	obx.On("MarkProcessed", mock.Anything, int64(5)).Return(nil).Once()

	repo := newMemRepository()
	u := NewUpdater(repo, time.UTC)
	d := outbox.NewDispatcher(obx, nil, outbox.Options{BatchSize: 10, MaxAttempts: 3, BaseBackoff: time.Second})
	d.Register(outbox.EventWorkoutCompleted, u.OutboxHandler(ActionWorkoutCompleted))

	for i := 0; i < 2; i++ {
		n, err := d.ProcessBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	s, err := repo.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CompletedWorkouts)
	assert.Equal(t, 1, s.CurrentStreakDays)
	obx.AssertExpectations(t)
	obx.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
