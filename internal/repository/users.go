package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

const userColumns = `u.id, u.first_name, u.last_name, u.username, u.email, u.password_hash,
	u.role, u.sex, u.avatar, u.phone_number, u.points, u.is_active, u.created_at, u.updated_at`

var userSortColumns = map[string]string{
	"id":        "u.id",
	"firstName": "u.first_name",
	"lastName":  "u.last_name",
	"username":  "u.username",
	"email":     "u.email",
	"points":    "u.points",
	"createdAt": "u.created_at",
}

func scanUser(row scanner, u *model.User) error {
	var role, sex string
	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash,
		&role, &sex, &u.Avatar, &u.PhoneNumber, &u.Points, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return err
	}
	u.Role = model.Role(role)
	u.Sex = model.Sex(sex)
	return nil
}

func insertUser(ctx context.Context, q querier, u *model.User) error {
	err := q.QueryRow(ctx,
		`INSERT INTO users (first_name, last_name, username, email, password_hash, role, sex, avatar, phone_number, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, points, created_at, updated_at`,
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash,
		string(u.Role), string(u.Sex), u.Avatar, u.PhoneNumber, u.IsActive,
	).Scan(&u.ID, &u.Points, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapConstraint(err, "insert user")
	}
	return nil
}

// CreateUser создаёт учётную запись и заполняет её идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		return insertUser(ctx, r.pool, u)
	})
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id), &u)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "get user")
	}
	return &u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email), &u)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "get user by email")
	}
	return &u, nil
}

// EmailTaken сообщает, занят ли email другой учётной записью, чем exceptID.
func (r *PostgresRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND id <> $2)`,
		email, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return taken, nil
}

// UsernameTaken сообщает, занято ли имя пользователя другой учётной записью, чем exceptID.
func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`,
		username, exceptID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

// ListCustomers возвращает клиентов, при active != nil только с указанным флагом активности.
func (r *PostgresRepository) ListCustomers(ctx context.Context, active *bool) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE u.role = $1 AND ($2::boolean IS NULL OR u.is_active = $2)
		 ORDER BY u.id`,
		string(model.RoleClient), active,
	)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	return collectUsers(rows)
}

// PageCustomers возвращает страницу клиентов.
func (r *PostgresRepository) PageCustomers(ctx context.Context, active *bool, page model.PageRequest) (model.Page[model.User], error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users u WHERE u.role = $1 AND ($2::boolean IS NULL OR u.is_active = $2)`,
		string(model.RoleClient), active,
	).Scan(&total)
	if err != nil {
		return model.Page[model.User]{}, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users u
		 WHERE u.role = $1 AND ($2::boolean IS NULL OR u.is_active = $2)`+
			orderClause(userSortColumns, page.SortBy, page.SortDir, "u.id", "u.id")+
			` LIMIT $3 OFFSET $4`,
		string(model.RoleClient), active, page.Size, page.Offset(),
	)
	if err != nil {
		return model.Page[model.User]{}, fmt.Errorf("select customers page: %w", err)
	}

	users, err := collectUsers(rows)
	if err != nil {
		return model.Page[model.User]{}, err
	}
	return model.NewPage(users, page, total), nil
}

// SetUserActive меняет флаг активности учётной записи.
func (r *PostgresRepository) SetUserActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return fmt.Errorf("update user active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]model.User, error) {
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}
