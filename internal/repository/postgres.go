// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Базовые ошибки, по которым вызывающий код выбирает HTTP-статус.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушено условие уникальности.
	ErrAlreadyExists = errors.New("already exists")
)

var (
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrEmployeeNotFound  = fmt.Errorf("employee %w", ErrNotFound)
	ErrMenuItemNotFound  = fmt.Errorf("menu item %w", ErrNotFound)
	ErrPromotionNotFound = fmt.Errorf("promotion %w", ErrNotFound)
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrHistoryNotFound   = fmt.Errorf("purchase history %w", ErrNotFound)
	// ErrNotClockedIn возвращается, если у сотрудника нет открытой смены.
	ErrNotClockedIn = fmt.Errorf("active work log %w", ErrNotFound)

	ErrEmailExists       = fmt.Errorf("email %w", ErrAlreadyExists)
	ErrUsernameExists    = fmt.Errorf("username %w", ErrAlreadyExists)
	ErrEmployeeIDExists  = fmt.Errorf("employee id %w", ErrAlreadyExists)
	ErrPromotionExists   = fmt.Errorf("promotion name %w", ErrAlreadyExists)
	ErrPromoCodeExists   = fmt.Errorf("promo code %w", ErrAlreadyExists)
	ErrOrderNumberExists = fmt.Errorf("order number %w", ErrAlreadyExists)
	// ErrAlreadyClockedIn возвращается при попытке открыть вторую смену.
	ErrAlreadyClockedIn = fmt.Errorf("active work log %w", ErrAlreadyExists)

	// ErrMenuItemOutOfStock возвращается, если позиции нет в наличии.
	ErrMenuItemOutOfStock = errors.New("menu item is out of stock")
	// ErrPromotionExhausted возвращается, если лимит использований акции исчерпан.
	ErrPromotionExhausted = errors.New("promotion usage limit reached")
	// ErrReferenceNotFound возвращается, если запись ссылается на несуществующую строку.
	ErrReferenceNotFound = fmt.Errorf("referenced record: %w", ErrNotFound)
	// ErrMenuItemInUse возвращается при удалении позиции, на которую ссылаются заказы.
	ErrMenuItemInUse = errors.New("menu item is referenced by orders")
)

// constraintErrors сопоставляет имя нарушенного ограничения с доменной ошибкой.
var constraintErrors = map[string]error{
	"users_email_key":                      ErrEmailExists,
	"users_username_key":                   ErrUsernameExists,
	"employee_information_employee_id_key": ErrEmployeeIDExists,
	"promos_name_key":                      ErrPromotionExists,
	"promos_promo_code_key":                ErrPromoCodeExists,
	"orders_order_number_key":              ErrOrderNumberExists,
	"work_logs_active_user_idx":            ErrAlreadyClockedIn,
}

const (
	retryBase  = 200 * time.Millisecond
	maxRetries = 3
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	retryBase time.Duration
}

// querier объединяет pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner объединяет pgx.Row и pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, retryBase: retryBase}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// withRetry повторяет fn при временных ошибках БД с фибоначчиевой задержкой.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(r.retryBase))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// inTx выполняет fn в транзакции. Вся транзакция повторяется целиком,
// поэтому fn не должна иметь побочных эффектов вне tx.
func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.pool, fn)
	})
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}

	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// mapConstraint переводит нарушения уникальности и внешних ключей в доменные ошибки.
// Остальные ошибки оборачиваются с префиксом op.
func mapConstraint(err error, op string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return mapped
		}
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%s: %w (%s)", op, ErrReferenceNotFound, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound заменяет pgx.ErrNoRows на sentinel, остальные ошибки оборачивает.
func notFound(err error, sentinel error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

// orderClause строит ORDER BY по белому списку колонок. Неизвестное поле
// заменяется колонкой по умолчанию, idCol задаёт стабильный порядок.
func orderClause(columns map[string]string, sortBy, sortDir, fallback, idCol string) string {
	col, ok := columns[sortBy]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s %s", col, dir, idCol, dir)
}
