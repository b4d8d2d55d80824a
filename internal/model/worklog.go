package model

import (
	"errors"
	"time"
)

// StandardWorkDayHours — продолжительность рабочего дня, сверх которой часы считаются переработкой.
const StandardWorkDayHours = 8.0

// ShiftGrace — допустимое отклонение от начала и конца смены.
const ShiftGrace = 5 * time.Minute

// ErrClockOutBeforeClockIn возвращается, если время ухода раньше времени прихода.
var ErrClockOutBeforeClockIn = errors.New("clock-out time is before clock-in time")

// WorkStatus описывает состояние записи рабочего времени.
type WorkStatus string

const (
	WorkClockedIn  WorkStatus = "CLOCKED_IN"
	WorkOnBreak    WorkStatus = "ON_BREAK"
	WorkClockedOut WorkStatus = "CLOCKED_OUT"
	WorkAbsent     WorkStatus = "ABSENT"
	WorkLate       WorkStatus = "LATE"
	WorkEarlyLeave WorkStatus = "EARLY_LEAVE"
)

// WorkLog — запись о рабочей смене сотрудника.
type WorkLog struct {
	ID                   int64
	UserID               int64
	ClockInTime          time.Time
	ClockOutTime         *time.Time
	WorkDate             time.Time
	TotalHoursWorked     *float64
	BreakDurationMinutes int
	OvertimeHours        float64
	Notes                string
	Status               WorkStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsActive сообщает, что смена ещё не закрыта.
func (w *WorkLog) IsActive() bool {
	return w.ClockOutTime == nil
}

// ClockOut закрывает смену и рассчитывает отработанные часы и переработку.
func (w *WorkLog) ClockOut(at time.Time, breakMinutes int) error {
	if at.Before(w.ClockInTime) {
		return ErrClockOutBeforeClockIn
	}
	if breakMinutes < 0 {
		breakMinutes = 0
	}

	w.ClockOutTime = &at
	w.BreakDurationMinutes = breakMinutes
	w.Status = WorkClockedOut
	w.calculateHours()
	return nil
}

func (w *WorkLog) calculateHours() {
	if w.ClockOutTime == nil {
		return
	}

	minutes := int(w.ClockOutTime.Sub(w.ClockInTime).Minutes()) - w.BreakDurationMinutes
	if minutes < 0 {
		minutes = 0
	}

	hours := float64(minutes) / 60.0
	w.TotalHoursWorked = &hours

	w.OvertimeHours = 0
	if hours > StandardWorkDayHours {
		w.OvertimeHours = hours - StandardWorkDayHours
	}
}

// ShiftMoment возвращает момент "HH:MM" в день day. ok=false, если время не задано или некорректно.
func ShiftMoment(day time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, day.Location()), true
}

// ClockInStatus возвращает LATE, если приход позже начала смены с учётом ShiftGrace.
func ClockInStatus(at time.Time, shiftStart string) WorkStatus {
	start, ok := ShiftMoment(at, shiftStart)
	if ok && at.After(start.Add(ShiftGrace)) {
		return WorkLate
	}
	return WorkClockedIn
}

// MarkEarlyLeave помечает закрытую смену как EARLY_LEAVE, если уход раньше конца смены.
func (w *WorkLog) MarkEarlyLeave(shiftEnd string) {
	if w.ClockOutTime == nil {
		return
	}
	end, ok := ShiftMoment(w.ClockInTime, shiftEnd)
	if !ok {
		return
	}
	// ночные смены, заканчивающиеся на следующий день, не оцениваются
	if !end.After(w.ClockInTime) {
		return
	}
	if w.ClockOutTime.Before(end.Add(-ShiftGrace)) {
		w.Status = WorkEarlyLeave
	}
}
