package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// StaffFilter задаёт необязательные условия выборки сотрудников.
type StaffFilter struct {
	Active     *bool
	Department *string
	Role       *model.Role
}

const employeeColumns = `e.id, e.employee_id, e.hire_date, e.employment_type, e.salary_cents, e.hourly_rate_cents,
	e.emergency_contact_name, e.emergency_contact_phone, e.address, e.phone, e.birth_date,
	e.social_security_number, e.bank_account_number, e.bank_routing_number,
	e.performance_rating, e.last_performance_review, e.next_performance_review,
	e.notes, e.position, e.department, e.shift_start, e.shift_end,
	e.sick_days_total, e.sick_days_used, e.vacation_days_total, e.vacation_days_used,
	e.is_active, e.created_at, e.updated_at`

const employeeSelect = `SELECT ` + userColumns + `, ` + employeeColumns + `
	FROM employee_information e JOIN users u ON u.id = e.user_id`

func scanEmployee(row scanner, e *model.Employee) error {
	var role, sex, employment string
	err := row.Scan(
		&e.User.ID, &e.User.FirstName, &e.User.LastName, &e.User.Username, &e.User.Email, &e.User.PasswordHash,
		&role, &sex, &e.User.Avatar, &e.User.PhoneNumber, &e.User.Points, &e.User.IsActive, &e.User.CreatedAt, &e.User.UpdatedAt,
		&e.ID, &e.EmployeeID, &e.HireDate, &employment, &e.SalaryCents, &e.HourlyRateCents,
		&e.EmergencyContactName, &e.EmergencyContactPhone, &e.Address, &e.Phone, &e.BirthDate,
		&e.SocialSecurityNumber, &e.BankAccountNumber, &e.BankRoutingNumber,
		&e.PerformanceRating, &e.LastPerformanceReview, &e.NextPerformanceReview,
		&e.Notes, &e.Position, &e.Department, &e.ShiftStart, &e.ShiftEnd,
		&e.SickDaysTotal, &e.SickDaysUsed, &e.VacationDaysTotal, &e.VacationDaysUsed,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.User.Role = model.Role(role)
	e.User.Sex = model.Sex(sex)
	e.EmploymentType = model.EmploymentType(employment)
	return nil
}

// CreateEmployee создаёт учётную запись и кадровую запись сотрудника в одной транзакции.
func (r *PostgresRepository) CreateEmployee(ctx context.Context, e *model.Employee) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, &e.User); err != nil {
			return err
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO employee_information (
				user_id, employee_id, hire_date, employment_type, salary_cents, hourly_rate_cents,
				emergency_contact_name, emergency_contact_phone, address, phone, birth_date,
				social_security_number, bank_account_number, bank_routing_number,
				performance_rating, last_performance_review, next_performance_review,
				notes, position, department, shift_start, shift_end,
				sick_days_total, sick_days_used, vacation_days_total, vacation_days_used, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
				$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
			 RETURNING id, created_at, updated_at`,
			e.User.ID, e.EmployeeID, e.HireDate, string(e.EmploymentType), e.SalaryCents, e.HourlyRateCents,
			e.EmergencyContactName, e.EmergencyContactPhone, e.Address, e.Phone, e.BirthDate,
			e.SocialSecurityNumber, e.BankAccountNumber, e.BankRoutingNumber,
			e.PerformanceRating, e.LastPerformanceReview, e.NextPerformanceReview,
			e.Notes, e.Position, e.Department, e.ShiftStart, e.ShiftEnd,
			e.SickDaysTotal, e.SickDaysUsed, e.VacationDaysTotal, e.VacationDaysUsed, e.IsActive,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return mapConstraint(err, "insert employee")
		}
		return nil
	})
}

func (r *PostgresRepository) getEmployee(ctx context.Context, where string, arg any) (*model.Employee, error) {
	var e model.Employee
	err := scanEmployee(r.pool.QueryRow(ctx, employeeSelect+` WHERE `+where, arg), &e)
	if err != nil {
		return nil, notFound(err, ErrEmployeeNotFound, "get employee")
	}
	return &e, nil
}

// GetEmployee возвращает сотрудника по идентификатору кадровой записи.
func (r *PostgresRepository) GetEmployee(ctx context.Context, id int64) (*model.Employee, error) {
	return r.getEmployee(ctx, `e.id = $1`, id)
}

// GetEmployeeByEmployeeID возвращает сотрудника по табельному номеру.
func (r *PostgresRepository) GetEmployeeByEmployeeID(ctx context.Context, employeeID string) (*model.Employee, error) {
	return r.getEmployee(ctx, `e.employee_id = $1`, employeeID)
}

// GetEmployeeByUserID возвращает сотрудника по идентификатору учётной записи.
func (r *PostgresRepository) GetEmployeeByUserID(ctx context.Context, userID int64) (*model.Employee, error) {
	return r.getEmployee(ctx, `e.user_id = $1`, userID)
}

// EmployeeIDTaken сообщает, занят ли табельный номер другой кадровой записью, чем exceptID.
func (r *PostgresRepository) EmployeeIDTaken(ctx context.Context, employeeID string, exceptID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM employee_information WHERE employee_id = $1 AND id <> $2)`,
		employeeID, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check employee id: %w", err)
	}
	return taken, nil
}

// ListEmployees возвращает сотрудников, отфильтрованных по f.
func (r *PostgresRepository) ListEmployees(ctx context.Context, f StaffFilter) ([]model.Employee, error) {
	var role *string
	if f.Role != nil {
		s := string(*f.Role)
		role = &s
	}

	rows, err := r.pool.Query(ctx,
		employeeSelect+`
		 WHERE ($1::boolean IS NULL OR e.is_active = $1)
		   AND ($2::text IS NULL OR lower(e.department) = lower($2))
		   AND ($3::text IS NULL OR u.role = $3)
		 ORDER BY e.id`,
		f.Active, f.Department, role,
	)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()

	var res []model.Employee
	for rows.Next() {
		var e model.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateEmployee сохраняет учётную и кадровую запись сотрудника.
func (r *PostgresRepository) UpdateEmployee(ctx context.Context, e *model.Employee) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET first_name = $2, last_name = $3, username = $4, email = $5, role = $6,
				sex = $7, avatar = $8, phone_number = $9, is_active = $10, updated_at = now()
			 WHERE id = $1`,
			e.User.ID, e.User.FirstName, e.User.LastName, e.User.Username, e.User.Email, string(e.User.Role),
			string(e.User.Sex), e.User.Avatar, e.User.PhoneNumber, e.User.IsActive,
		)
		if err != nil {
			return mapConstraint(err, "update user")
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		err = tx.QueryRow(ctx,
			`UPDATE employee_information SET
				employee_id = $2, hire_date = $3, employment_type = $4, salary_cents = $5, hourly_rate_cents = $6,
				emergency_contact_name = $7, emergency_contact_phone = $8, address = $9, phone = $10, birth_date = $11,
				social_security_number = $12, bank_account_number = $13, bank_routing_number = $14,
				performance_rating = $15, last_performance_review = $16, next_performance_review = $17,
				notes = $18, position = $19, department = $20, shift_start = $21, shift_end = $22,
				sick_days_total = $23, sick_days_used = $24, vacation_days_total = $25, vacation_days_used = $26,
				is_active = $27, updated_at = now()
			 WHERE id = $1
			 RETURNING updated_at`,
			e.ID, e.EmployeeID, e.HireDate, string(e.EmploymentType), e.SalaryCents, e.HourlyRateCents,
			e.EmergencyContactName, e.EmergencyContactPhone, e.Address, e.Phone, e.BirthDate,
			e.SocialSecurityNumber, e.BankAccountNumber, e.BankRoutingNumber,
			e.PerformanceRating, e.LastPerformanceReview, e.NextPerformanceReview,
			e.Notes, e.Position, e.Department, e.ShiftStart, e.ShiftEnd,
			e.SickDaysTotal, e.SickDaysUsed, e.VacationDaysTotal, e.VacationDaysUsed,
			e.IsActive,
		).Scan(&e.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrEmployeeNotFound
			}
			return mapConstraint(err, "update employee")
		}
		return nil
	})
}

// DeactivateEmployee снимает флаг активности с кадровой и учётной записи.
func (r *PostgresRepository) DeactivateEmployee(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx,
			`UPDATE employee_information SET is_active = FALSE, updated_at = now() WHERE id = $1 RETURNING user_id`,
			id,
		).Scan(&userID)
		if err != nil {
			return notFound(err, ErrEmployeeNotFound, "deactivate employee")
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("deactivate user: %w", err)
		}
		return nil
	})
}

// DeleteEmployee удаляет кадровую запись, а затем учётную запись сотрудника.
func (r *PostgresRepository) DeleteEmployee(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `DELETE FROM employee_information WHERE id = $1 RETURNING user_id`, id).Scan(&userID)
		if err != nil {
			return notFound(err, ErrEmployeeNotFound, "delete employee")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}
