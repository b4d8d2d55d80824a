package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorkLogRepo struct {
	active   *model.WorkLog
	employee *model.Employee
	created  []model.WorkLog
}

func (s *stubWorkLogRepo) CreateWorkLog(_ context.Context, w *model.WorkLog) error {
	w.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *w)
	s.active = w
	return nil
}

func (s *stubWorkLogRepo) GetActiveWorkLog(context.Context, int64) (*model.WorkLog, error) {
	if s.active == nil {
		return nil, repository.ErrNotClockedIn
	}
	return s.active, nil
}

func (s *stubWorkLogRepo) CloseWorkLog(_ context.Context, _ int64, closeFn func(w *model.WorkLog) error) (*model.WorkLog, error) {
	if s.active == nil {
		return nil, repository.ErrNotClockedIn
	}
	w := *s.active
	if err := closeFn(&w); err != nil {
		return nil, err
	}
	s.active = nil
	return &w, nil
}

func (s *stubWorkLogRepo) ListWorkLogs(context.Context, int64, *time.Time, *time.Time) ([]model.WorkLog, error) {
	return s.created, nil
}

func (s *stubWorkLogRepo) GetEmployeeByUserID(context.Context, int64) (*model.Employee, error) {
	if s.employee == nil {
		return nil, repository.ErrEmployeeNotFound
	}
	return s.employee, nil
}

func TestClockInOut(t *testing.T) {
	repo := &stubWorkLogRepo{}
	svc := NewWorkLogService(repo)

	in := time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC)
	svc.clock = fixedClock(in)

	w, err := svc.ClockIn(context.Background(), 7, " morning ")
	require.NoError(t, err)
	assert.Equal(t, model.WorkClockedIn, w.Status)
	assert.Equal(t, "morning", w.Notes)
	assert.Equal(t, time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), w.WorkDate)

	_, err = svc.ClockIn(context.Background(), 7, "")
	if !errors.Is(err, repository.ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}

	svc.clock = fixedClock(in.Add(9*time.Hour + 30*time.Minute))
	w, err = svc.ClockOut(context.Background(), 7, 30, "done")
	require.NoError(t, err)
	require.NotNil(t, w.TotalHoursWorked)
	assert.Equal(t, 9.0, *w.TotalHoursWorked)
	assert.Equal(t, 1.0, w.OvertimeHours)
	assert.Equal(t, model.WorkClockedOut, w.Status)
	assert.Equal(t, "morning\ndone", w.Notes)

	_, err = svc.ClockOut(context.Background(), 7, 0, "")
	if !errors.Is(err, repository.ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn, got %v", err)
	}
}

func TestClockIn_LateAndEarlyLeave(t *testing.T) {
	repo := &stubWorkLogRepo{employee: &model.Employee{ShiftStart: "08:00", ShiftEnd: "16:00"}}
	svc := NewWorkLogService(repo)

	in := time.Date(2025, 5, 5, 8, 20, 0, 0, time.UTC)
	svc.clock = fixedClock(in)
	w, err := svc.ClockIn(context.Background(), 7, "")
	require.NoError(t, err)
	assert.Equal(t, model.WorkLate, w.Status)

	svc.clock = fixedClock(time.Date(2025, 5, 5, 15, 0, 0, 0, time.UTC))
	w, err = svc.ClockOut(context.Background(), 7, 0, "")
	require.NoError(t, err)
	assert.Equal(t, model.WorkEarlyLeave, w.Status)
}

func TestClockOut_ValidatesBreak(t *testing.T) {
	svc := NewWorkLogService(&stubWorkLogRepo{})

	_, err := svc.ClockOut(context.Background(), 7, -5, "")
	var fields validation.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
