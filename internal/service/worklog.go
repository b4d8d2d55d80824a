package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

// maxBreakMinutes ограничивает длительность перерыва одной сменой.
const maxBreakMinutes = 24 * 60

// WorkLogRepository описывает доступ к учёту рабочего времени.
type WorkLogRepository interface {
	CreateWorkLog(ctx context.Context, w *model.WorkLog) error
	GetActiveWorkLog(ctx context.Context, userID int64) (*model.WorkLog, error)
	CloseWorkLog(ctx context.Context, userID int64, closeFn func(w *model.WorkLog) error) (*model.WorkLog, error)
	ListWorkLogs(ctx context.Context, userID int64, from, to *time.Time) ([]model.WorkLog, error)
	GetEmployeeByUserID(ctx context.Context, userID int64) (*model.Employee, error)
}

// WorkLogService ведёт учёт смен сотрудников.
type WorkLogService struct {
	repo  WorkLogRepository
	clock clock
}

// NewWorkLogService создаёт сервис учёта рабочего времени.
func NewWorkLogService(repo WorkLogRepository) *WorkLogService {
	return &WorkLogService{repo: repo}
}

// ClockIn открывает смену. У сотрудника может быть только одна открытая смена.
// Приход позже начала смены по графику отмечается статусом LATE.
func (s *WorkLogService) ClockIn(ctx context.Context, userID int64, notes string) (*model.WorkLog, error) {
	_, err := s.repo.GetActiveWorkLog(ctx, userID)
	if err == nil {
		return nil, repository.ErrAlreadyClockedIn
	}
	if !errors.Is(err, repository.ErrNotClockedIn) {
		return nil, err
	}

	shift, err := s.shift(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	y, m, d := now.Date()
	w := &model.WorkLog{
		UserID:      userID,
		ClockInTime: now,
		WorkDate:    time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		Notes:       strings.TrimSpace(notes),
		Status:      model.WorkClockedIn,
	}
	if shift != nil {
		w.Status = model.ClockInStatus(now, shift.ShiftStart)
	}

	if err := s.repo.CreateWorkLog(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ClockOut закрывает открытую смену, вычитая перерыв из отработанного времени.
// Уход раньше конца смены по графику отмечается статусом EARLY_LEAVE.
func (s *WorkLogService) ClockOut(ctx context.Context, userID int64, breakMinutes int, notes string) (*model.WorkLog, error) {
	if breakMinutes < 0 || breakMinutes > maxBreakMinutes {
		return nil, validation.Field("breakDurationMinutes", "must be between 0 and 1440")
	}

	shift, err := s.shift(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	return s.repo.CloseWorkLog(ctx, userID, func(w *model.WorkLog) error {
		if err := w.ClockOut(now, breakMinutes); err != nil {
			return validation.Field("clockOutTime", err.Error())
		}
		if extra := strings.TrimSpace(notes); extra != "" {
			if w.Notes != "" {
				w.Notes += "\n"
			}
			w.Notes += extra
		}
		if shift != nil {
			w.MarkEarlyLeave(shift.ShiftEnd)
		}
		return nil
	})
}

// shift возвращает кадровую запись с графиком смены или nil, если её нет.
func (s *WorkLogService) shift(ctx context.Context, userID int64) (*model.Employee, error) {
	e, err := s.repo.GetEmployeeByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Active возвращает открытую смену сотрудника.
func (s *WorkLogService) Active(ctx context.Context, userID int64) (*model.WorkLog, error) {
	return s.repo.GetActiveWorkLog(ctx, userID)
}

// List возвращает смены сотрудника, при заданных границах только за период.
func (s *WorkLogService) List(ctx context.Context, userID int64, from, to *time.Time) ([]model.WorkLog, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.repo.ListWorkLogs(ctx, userID, from, to)
}
