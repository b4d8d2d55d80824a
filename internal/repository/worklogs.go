package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

const workLogColumns = `w.id, w.user_id, w.clock_in_time, w.clock_out_time, w.work_date, w.total_hours_worked,
	w.break_duration_minutes, w.overtime_hours, w.notes, w.status, w.created_at, w.updated_at`

func scanWorkLog(row scanner, w *model.WorkLog) error {
	var status string
	err := row.Scan(
		&w.ID, &w.UserID, &w.ClockInTime, &w.ClockOutTime, &w.WorkDate, &w.TotalHoursWorked,
		&w.BreakDurationMinutes, &w.OvertimeHours, &w.Notes, &status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return err
	}
	w.Status = model.WorkStatus(status)
	return nil
}

// CreateWorkLog открывает смену. Вторая открытая смена того же сотрудника
// отклоняется уникальным индексом с ErrAlreadyClockedIn.
func (r *PostgresRepository) CreateWorkLog(ctx context.Context, w *model.WorkLog) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO work_logs (user_id, clock_in_time, work_date, break_duration_minutes, notes, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		w.UserID, w.ClockInTime, w.WorkDate, w.BreakDurationMinutes, w.Notes, string(w.Status),
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return mapConstraint(err, "insert work log")
	}
	return nil
}

// GetActiveWorkLog возвращает открытую смену сотрудника.
func (r *PostgresRepository) GetActiveWorkLog(ctx context.Context, userID int64) (*model.WorkLog, error) {
	var w model.WorkLog
	err := scanWorkLog(r.pool.QueryRow(ctx,
		`SELECT `+workLogColumns+` FROM work_logs w WHERE w.user_id = $1 AND w.clock_out_time IS NULL`,
		userID,
	), &w)
	if err != nil {
		return nil, notFound(err, ErrNotClockedIn, "get active work log")
	}
	return &w, nil
}

// CloseWorkLog блокирует открытую смену, применяет closeFn и сохраняет результат.
func (r *PostgresRepository) CloseWorkLog(ctx context.Context, userID int64, closeFn func(w *model.WorkLog) error) (*model.WorkLog, error) {
	var res model.WorkLog
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var w model.WorkLog
		err := scanWorkLog(tx.QueryRow(ctx,
			`SELECT `+workLogColumns+` FROM work_logs w
			 WHERE w.user_id = $1 AND w.clock_out_time IS NULL
			 FOR UPDATE`,
			userID,
		), &w)
		if err != nil {
			return notFound(err, ErrNotClockedIn, "lock work log")
		}

		if err := closeFn(&w); err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`UPDATE work_logs SET clock_out_time = $2, total_hours_worked = $3, break_duration_minutes = $4,
				overtime_hours = $5, notes = $6, status = $7, updated_at = now()
			 WHERE id = $1
			 RETURNING updated_at`,
			w.ID, w.ClockOutTime, w.TotalHoursWorked, w.BreakDurationMinutes,
			w.OvertimeHours, w.Notes, string(w.Status),
		).Scan(&w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update work log: %w", err)
		}

		res = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListWorkLogs возвращает смены сотрудника, при заданных границах только за период work_date.
func (r *PostgresRepository) ListWorkLogs(ctx context.Context, userID int64, from, to *time.Time) ([]model.WorkLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+workLogColumns+` FROM work_logs w
		 WHERE w.user_id = $1
		   AND ($2::date IS NULL OR w.work_date >= $2)
		   AND ($3::date IS NULL OR w.work_date <= $3)
		 ORDER BY w.clock_in_time DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select work logs: %w", err)
	}
	defer rows.Close()

	var res []model.WorkLog
	for rows.Next() {
		var w model.WorkLog
		if err := scanWorkLog(rows, &w); err != nil {
			return nil, fmt.Errorf("scan work log: %w", err)
		}
		res = append(res, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
