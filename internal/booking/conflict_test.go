package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockConflictStore struct {
	mock.Mock
}

func (m *MockConflictStore) ClassSnapshot(ctx context.Context, classID int) (*ClassSnapshot, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ClassSnapshot), args.Error(1)
}

func (m *MockConflictStore) HasBookingAt(ctx context.Context, classID int, at time.Time, excludeBookingID *int) (bool, error) {
	args := m.Called(ctx, classID, at, excludeBookingID)
	return args.Bool(0), args.Error(1)
}

var (
	classStart = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	classEnd   = classStart.Add(time.Hour)
)

func openClass(booked, capacity int) *ClassSnapshot {
	return &ClassSnapshot{ID: 1, GymID: 5, StartTime: classStart, EndTime: classEnd, Capacity: capacity, BookedCount: booked}
}

func TestConflictChecker_Check(t *testing.T) {
	excluded := 77

	tests := []struct {
		name      string
		at        time.Time
		exclude   *int
		setupMock func(*MockConflictStore)
		conflict  bool
	}{
		{
			name: "free seat and free time",
			at:   classStart,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(3, 10), nil)
				m.On("HasBookingAt", mock.Anything, 1, classStart, (*int)(nil)).Return(false, nil)
			},
			conflict: false,
		},
		{
			name: "full class conflicts regardless of time",
			at:   classStart.Add(30 * time.Minute),
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(10, 10), nil)
			},
			conflict: true,
		},
		{
			name: "before class start",
			at:   classStart.Add(-time.Minute),
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(0, 10), nil)
			},
			conflict: true,
		},
		{
			name: "after class end",
			at:   classEnd.Add(time.Second),
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(0, 10), nil)
			},
			conflict: true,
		},
		{
			name: "end bound is inclusive",
			at:   classEnd,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(0, 10), nil)
				m.On("HasBookingAt", mock.Anything, 1, classEnd, (*int)(nil)).Return(false, nil)
			},
			conflict: false,
		},
		{
			name: "same time already booked",
			at:   classStart,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(1, 10), nil)
				m.On("HasBookingAt", mock.Anything, 1, classStart, (*int)(nil)).Return(true, nil)
			},
			conflict: true,
		},
		{
			name:    "excluded booking is ignored",
			at:      classStart,
			exclude: &excluded,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(1, 10), nil)
				m.On("HasBookingAt", mock.Anything, 1, classStart, &excluded).Return(false, nil)
			},
			conflict: false,
		},
		{
			name: "missing class fails closed",
			at:   classStart,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(nil, errors.New("sql: no rows in result set"))
			},
			conflict: true,
		},
		{
			name: "booking lookup failure fails closed",
			at:   classStart,
			setupMock: func(m *MockConflictStore) {
				m.On("ClassSnapshot", mock.Anything, 1).Return(openClass(0, 10), nil)
				m.On("HasBookingAt", mock.Anything, 1, classStart, (*int)(nil)).Return(false, errors.New("timeout"))
			},
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockConflictStore)
			tt.setupMock(store)

			got := NewConflictChecker(store).Check(context.Background(), 1, tt.at, tt.exclude)

			assert.Equal(t, tt.conflict, got)
			store.AssertExpectations(t)
		})
	}
}

// Both callers read the same snapshot with one seat left, so both pass the
// pre-check. TestAdmit_LastSeatAdmitsOnce shows the write admitting only one.
func TestConflictChecker_LastSeatRace(t *testing.T) {
	store := new(MockConflictStore)
	store.On("ClassSnapshot", mock.Anything, 1).Return(openClass(9, 10), nil)
	store.On("HasBookingAt", mock.Anything, 1, mock.Anything, (*int)(nil)).Return(false, nil)

	checker := NewConflictChecker(store)

	var (
		wg      sync.WaitGroup
		results [2]bool
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = checker.Check(context.Background(), 1, classStart.Add(time.Duration(i)*time.Minute), nil)
		}(i)
	}
	wg.Wait()

	assert.False(t, results[0])
	assert.False(t, results[1])
}
