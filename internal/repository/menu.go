package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// MenuRanking задаёт порядок выборки популярных позиций.
type MenuRanking int

const (
	// RankByBuys — по числу покупок за месяц, затем за неделю.
	RankByBuys MenuRanking = iota
	// RankByRating — по рейтингу, затем по числу отзывов.
	RankByRating
)

const menuColumns = `m.id, m.name, m.description, m.price_cents, m.original_price_cents, m.type, m.image,
	m.rating, m.reviews_count, m.weekly_reviews, m.monthly_reviews, m.weekly_buys, m.monthly_buys,
	m.positive_reviews_weekly, m.positive_reviews_monthly, m.tags, m.in_stock, m.is_on_sale, m.is_combo,
	m.created_at, m.updated_at`

// menuSortColumns — допустимые значения sortBy для списка меню.
var menuSortColumns = map[string]string{
	"name":        "m.name",
	"price":       "m.price_cents",
	"rating":      "m.rating",
	"createdAt":   "m.created_at",
	"monthlyBuys": "m.monthly_buys",
	"weeklyBuys":  "m.weekly_buys",
}

// SortableMenuField сообщает, можно ли сортировать меню по полю.
func SortableMenuField(field string) bool {
	_, ok := menuSortColumns[field]
	return ok
}

// menuWhere — условия MenuFilter; promoType проверяется через связанные акции.
const menuWhere = ` WHERE ($1::text IS NULL OR m.type = $1)
	AND ($2::boolean IS NULL OR m.in_stock = $2)
	AND ($3::boolean IS NULL OR m.is_on_sale = $3)
	AND ($4::boolean IS NULL OR m.is_combo = $4)
	AND ($5::text IS NULL OR EXISTS (
		SELECT 1 FROM menu_item_promos mp JOIN promos p ON p.id = mp.promo_id
		WHERE mp.menu_item_id = m.id AND p.promo_type = $5))`

func menuFilterArgs(f model.MenuFilter) []any {
	var itemType, promoType *string
	if f.Type != nil {
		s := string(*f.Type)
		itemType = &s
	}
	if f.PromoType != nil {
		s := string(*f.PromoType)
		promoType = &s
	}
	return []any{itemType, f.InStock, f.IsOnSale, f.IsCombo, promoType}
}

func scanMenuItem(row scanner, m *model.MenuItem) error {
	var itemType string
	err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.PriceCents, &m.OriginalPriceCents, &itemType, &m.Image,
		&m.Rating, &m.ReviewsCount, &m.WeeklyReviews, &m.MonthlyReviews, &m.WeeklyBuys, &m.MonthlyBuys,
		&m.PositiveReviewsWeekly, &m.PositiveReviewsMonthly, &m.Tags, &m.InStock, &m.IsOnSale, &m.IsCombo,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	m.Type = model.ItemType(itemType)
	return nil
}

func collectMenuItems(rows pgx.Rows) ([]model.MenuItem, error) {
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := scanMenuItem(rows, &m); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// CreateMenuItem сохраняет новую позицию меню.
func (r *PostgresRepository) CreateMenuItem(ctx context.Context, m *model.MenuItem) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO menu_items (name, description, price_cents, original_price_cents, type, image, rating,
			tags, in_stock, is_on_sale, is_combo)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		m.Name, m.Description, m.PriceCents, m.OriginalPriceCents, string(m.Type), m.Image, m.Rating,
		m.Tags, m.InStock, m.IsOnSale, m.IsCombo,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

// GetMenuItem возвращает позицию меню по идентификатору.
func (r *PostgresRepository) GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error) {
	var m model.MenuItem
	err := scanMenuItem(r.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM menu_items m WHERE m.id = $1`, id), &m)
	if err != nil {
		return nil, notFound(err, ErrMenuItemNotFound, "get menu item")
	}
	return &m, nil
}

// UpdateMenuItem полностью перезаписывает редактируемые поля позиции.
func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, m *model.MenuItem) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE menu_items SET name = $2, description = $3, price_cents = $4, original_price_cents = $5,
			type = $6, image = $7, rating = $8, tags = $9, in_stock = $10, is_on_sale = $11, is_combo = $12,
			updated_at = now()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Description, m.PriceCents, m.OriginalPriceCents,
		string(m.Type), m.Image, m.Rating, m.Tags, m.InStock, m.IsOnSale, m.IsCombo,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return notFound(err, ErrMenuItemNotFound, "update menu item")
	}
	return nil
}

// SetMenuItemStock меняет признак наличия позиции и возвращает обновлённую запись.
func (r *PostgresRepository) SetMenuItemStock(ctx context.Context, id int64, inStock bool) (*model.MenuItem, error) {
	var m model.MenuItem
	err := scanMenuItem(r.pool.QueryRow(ctx,
		`UPDATE menu_items m SET in_stock = $2, updated_at = now() WHERE m.id = $1 RETURNING `+menuColumns,
		id, inStock,
	), &m)
	if err != nil {
		return nil, notFound(err, ErrMenuItemNotFound, "update menu item stock")
	}
	return &m, nil
}

// DeleteMenuItem удаляет позицию меню.
func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrMenuItemInUse
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

// ListMenuItems возвращает все позиции, удовлетворяющие фильтру, по названию.
func (r *PostgresRepository) ListMenuItems(ctx context.Context, f model.MenuFilter) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m`+menuWhere+` ORDER BY m.name, m.id`,
		menuFilterArgs(f)...,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}
	return collectMenuItems(rows)
}

// PageMenuItems возвращает страницу позиций меню с фильтром и сортировкой.
func (r *PostgresRepository) PageMenuItems(ctx context.Context, f model.MenuFilter, page model.PageRequest) (model.Page[model.MenuItem], error) {
	args := menuFilterArgs(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM menu_items m`+menuWhere, args...).Scan(&total); err != nil {
		return model.Page[model.MenuItem]{}, fmt.Errorf("count menu items: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m`+menuWhere+
			orderClause(menuSortColumns, page.SortBy, page.SortDir, "m.name", "m.id")+
			` LIMIT $6 OFFSET $7`,
		append(args, page.Size, page.Offset())...,
	)
	if err != nil {
		return model.Page[model.MenuItem]{}, fmt.Errorf("select menu items page: %w", err)
	}

	items, err := collectMenuItems(rows)
	if err != nil {
		return model.Page[model.MenuItem]{}, err
	}
	return model.NewPage(items, page, total), nil
}

// TopMenuItems возвращает limit самых популярных позиций в наличии.
func (r *PostgresRepository) TopMenuItems(ctx context.Context, rank MenuRanking, limit int) ([]model.MenuItem, error) {
	order := ` ORDER BY m.monthly_buys DESC, m.weekly_buys DESC, m.id`
	if rank == RankByRating {
		order = ` ORDER BY m.rating DESC, m.reviews_count DESC, m.id`
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m WHERE m.in_stock`+order+` LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select top menu items: %w", err)
	}
	return collectMenuItems(rows)
}

// PromotionalMenuItems возвращает позиции в наличии, которые продаются со скидкой
// или привязаны к действующей акции.
func (r *PostgresRepository) PromotionalMenuItems(ctx context.Context, now time.Time, limit int) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m
		 WHERE m.in_stock AND (m.is_on_sale OR EXISTS (
			SELECT 1 FROM menu_item_promos mp JOIN promos p ON p.id = mp.promo_id
			WHERE mp.menu_item_id = m.id AND p.is_active
			  AND p.start_date <= $1 AND p.end_date >= $1
			  AND (p.usage_limit IS NULL OR p.current_usage < p.usage_limit)))
		 ORDER BY m.monthly_buys DESC, m.id
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select promotional menu items: %w", err)
	}
	return collectMenuItems(rows)
}

// loadMenuItems загружает позиции по идентификаторам.
func loadMenuItems(ctx context.Context, q querier, ids []int64) (map[int64]model.MenuItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+menuColumns+` FROM menu_items m WHERE m.id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu items: %w", err)
	}

	items, err := collectMenuItems(rows)
	if err != nil {
		return nil, err
	}

	res := make(map[int64]model.MenuItem, len(items))
	for _, m := range items {
		res[m.ID] = m
	}
	return res, nil
}
