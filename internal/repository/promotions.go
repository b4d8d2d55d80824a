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

const promoColumns = `p.id, p.name, p.description, p.promo_type, p.discount_percentage_bp, p.discount_amount_cents,
	p.start_date, p.end_date, p.is_active, p.usage_limit, p.current_usage,
	p.minimum_order_amount_cents, p.maximum_discount_amount_cents, p.promo_code, p.applicable_to,
	COALESCE((SELECT array_agg(mp.menu_item_id ORDER BY mp.menu_item_id)
		FROM menu_item_promos mp WHERE mp.promo_id = p.id), '{}'::bigint[]),
	p.created_at, p.updated_at`

// usableWhere — акция действует в момент $1.
const usableWhere = ` p.is_active AND p.start_date <= $1 AND p.end_date >= $1
	AND (p.usage_limit IS NULL OR p.current_usage < p.usage_limit)`

func scanPromotion(row scanner, p *model.Promotion) error {
	var promoType *string
	var applicable string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &promoType, &p.DiscountPercentageBP, &p.DiscountAmountCents,
		&p.StartDate, &p.EndDate, &p.IsActive, &p.UsageLimit, &p.CurrentUsage,
		&p.MinimumOrderAmountCents, &p.MaximumDiscountAmountCents, &p.PromoCode, &applicable,
		&p.MenuItemIDs,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if promoType != nil {
		t := model.PromoType(*promoType)
		p.PromoType = &t
	}
	p.ApplicableTo = model.ApplicableTo(applicable)
	return nil
}

func collectPromotions(rows pgx.Rows) ([]model.Promotion, error) {
	defer rows.Close()

	var res []model.Promotion
	for rows.Next() {
		var p model.Promotion
		if err := scanPromotion(rows, &p); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreatePromotion сохраняет акцию вместе с привязанными позициями меню.
func (r *PostgresRepository) CreatePromotion(ctx context.Context, p *model.Promotion) error {
	var promoType *string
	if p.PromoType != nil {
		s := string(*p.PromoType)
		promoType = &s
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO promos (name, description, promo_type, discount_percentage_bp, discount_amount_cents,
				start_date, end_date, is_active, usage_limit, minimum_order_amount_cents,
				maximum_discount_amount_cents, promo_code, applicable_to)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 RETURNING id, current_usage, created_at, updated_at`,
			p.Name, p.Description, promoType, p.DiscountPercentageBP, p.DiscountAmountCents,
			p.StartDate, p.EndDate, p.IsActive, p.UsageLimit, p.MinimumOrderAmountCents,
			p.MaximumDiscountAmountCents, p.PromoCode, string(p.ApplicableTo),
		).Scan(&p.ID, &p.CurrentUsage, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return mapConstraint(err, "insert promotion")
		}

		return linkMenuItems(ctx, tx, p.ID, p.MenuItemIDs)
	})
}

func linkMenuItems(ctx context.Context, q querier, promoID int64, menuItemIDs []int64) error {
	if len(menuItemIDs) == 0 {
		return nil
	}

	_, err := q.Exec(ctx,
		`INSERT INTO menu_item_promos (menu_item_id, promo_id)
		 SELECT unnest($2::bigint[]), $1
		 ON CONFLICT DO NOTHING`,
		promoID, menuItemIDs,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			if pgErr.ConstraintName == "menu_item_promos_promo_id_fkey" {
				return ErrPromotionNotFound
			}
			return ErrMenuItemNotFound
		}
		return fmt.Errorf("link menu items: %w", err)
	}
	return nil
}

// LinkMenuItems привязывает позиции меню к акции и возвращает обновлённую акцию.
func (r *PostgresRepository) LinkMenuItems(ctx context.Context, promoID int64, menuItemIDs []int64) (*model.Promotion, error) {
	err := r.withRetry(ctx, func(ctx context.Context) error {
		return linkMenuItems(ctx, r.pool, promoID, menuItemIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.GetPromotion(ctx, promoID)
}

// GetPromotion возвращает акцию по идентификатору.
func (r *PostgresRepository) GetPromotion(ctx context.Context, id int64) (*model.Promotion, error) {
	var p model.Promotion
	err := scanPromotion(r.pool.QueryRow(ctx, `SELECT `+promoColumns+` FROM promos p WHERE p.id = $1`, id), &p)
	if err != nil {
		return nil, notFound(err, ErrPromotionNotFound, "get promotion")
	}
	return &p, nil
}

// GetPromotionByCode возвращает акцию по промокоду без учёта регистра.
func (r *PostgresRepository) GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error) {
	var p model.Promotion
	err := scanPromotion(r.pool.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promos p WHERE upper(p.promo_code) = upper($1)`, code), &p)
	if err != nil {
		return nil, notFound(err, ErrPromotionNotFound, "get promotion by code")
	}
	return &p, nil
}

// ListPromotions возвращает все акции по дате начала.
func (r *PostgresRepository) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+promoColumns+` FROM promos p ORDER BY p.start_date DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("select promotions: %w", err)
	}
	return collectPromotions(rows)
}

// ListUsablePromotions возвращает акции, действующие в момент now.
func (r *PostgresRepository) ListUsablePromotions(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+promoColumns+` FROM promos p WHERE`+usableWhere+` ORDER BY p.end_date, p.id`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("select usable promotions: %w", err)
	}
	return collectPromotions(rows)
}

// SetPromotionActive меняет флаг активности акции.
func (r *PostgresRepository) SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE promos SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return nil, fmt.Errorf("update promotion active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPromotionNotFound
	}
	return r.GetPromotion(ctx, id)
}

// lockPromotionByCode загружает акцию по промокоду и блокирует строку до конца транзакции.
func lockPromotionByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Promotion, error) {
	var p model.Promotion
	err := scanPromotion(tx.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promos p WHERE upper(p.promo_code) = upper($1) FOR UPDATE OF p`, code), &p)
	if err != nil {
		return nil, notFound(err, ErrPromotionNotFound, "lock promotion")
	}
	return &p, nil
}

// redeemPromotion увеличивает счётчик использований, если лимит не исчерпан.
func redeemPromotion(ctx context.Context, tx pgx.Tx, id int64) error {
	tag, err := tx.Exec(ctx,
		`UPDATE promos SET current_usage = current_usage + 1, updated_at = now()
		 WHERE id = $1 AND (usage_limit IS NULL OR current_usage < usage_limit)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("redeem promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromotionExhausted
	}
	return nil
}
