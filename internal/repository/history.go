package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// HistoryFilter задаёт необязательные условия выборки истории покупок.
// Границы периода применяются к дате заказа включительно.
type HistoryFilter struct {
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

const historySelect = `SELECT h.id, h.customer_id, trim(u.first_name || ' ' || u.last_name), u.email, h.notes,
	h.created_at, h.updated_at, ` + orderColumns + `
	FROM purchase_history h
	JOIN orders o ON o.id = h.order_id
	JOIN users u ON u.id = h.customer_id`

const historyWhere = ` WHERE ($1::bigint IS NULL OR h.customer_id = $1)
	AND ($2::timestamptz IS NULL OR o.order_date >= $2)
	AND ($3::timestamptz IS NULL OR o.order_date <= $3)`

var historySortColumns = map[string]string{
	"orderDate": "o.order_date",
	"total":     "o.total_cents",
	"createdAt": "h.created_at",
}

func scanHistory(row scanner, h *model.PurchaseHistory) error {
	var o model.Order
	var status, resume string
	var payment *string
	err := row.Scan(
		&h.ID, &h.CustomerID, &h.CustomerName, &h.CustomerEmail, &h.Notes, &h.CreatedAt, &h.UpdatedAt,
		&o.ID, &o.OrderNumber, &o.QueueNumber, &o.CustomerID, &o.CustomerName, &o.ItemCount,
		&o.SubtotalCents, &o.DiscountCents, &o.TaxCents, &o.TotalCents, &status, &resume, &payment, &o.PromoID,
		&o.PointsEarned, &o.PointsUsed, &o.AssignedTo, &o.CompletedBy, &o.SpecialInstructions, &o.Notes,
		&o.OrderDate, &o.EstimatedReadyTime, &o.ReadyTime, &o.CompletedTime, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	o.Status = model.OrderStatus(status)
	o.ResumeStatus = model.OrderStatus(resume)
	if payment != nil {
		pm := model.PaymentMethod(*payment)
		o.PaymentMethod = &pm
	}
	h.Order = o
	return nil
}

func collectHistory(rows pgx.Rows) ([]model.PurchaseHistory, error) {
	defer rows.Close()

	var res []model.PurchaseHistory
	for rows.Next() {
		var h model.PurchaseHistory
		if err := scanHistory(rows, &h); err != nil {
			return nil, fmt.Errorf("scan purchase history: %w", err)
		}
		res = append(res, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListPurchaseHistory возвращает записи истории по фильтру, новые первыми.
func (r *PostgresRepository) ListPurchaseHistory(ctx context.Context, f HistoryFilter) ([]model.PurchaseHistory, error) {
	rows, err := r.pool.Query(ctx,
		historySelect+historyWhere+` ORDER BY o.order_date DESC, h.id DESC`,
		f.CustomerID, f.From, f.To,
	)
	if err != nil {
		return nil, fmt.Errorf("select purchase history: %w", err)
	}
	return collectHistory(rows)
}

// PagePurchaseHistory возвращает страницу истории покупок.
func (r *PostgresRepository) PagePurchaseHistory(ctx context.Context, f HistoryFilter, page model.PageRequest) (model.Page[model.PurchaseHistory], error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM purchase_history h JOIN orders o ON o.id = h.order_id`+historyWhere,
		f.CustomerID, f.From, f.To,
	).Scan(&total)
	if err != nil {
		return model.Page[model.PurchaseHistory]{}, fmt.Errorf("count purchase history: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		historySelect+historyWhere+
			orderClause(historySortColumns, page.SortBy, page.SortDir, "o.order_date", "h.id")+
			` LIMIT $4 OFFSET $5`,
		f.CustomerID, f.From, f.To, page.Size, page.Offset(),
	)
	if err != nil {
		return model.Page[model.PurchaseHistory]{}, fmt.Errorf("select purchase history page: %w", err)
	}

	res, err := collectHistory(rows)
	if err != nil {
		return model.Page[model.PurchaseHistory]{}, err
	}
	return model.NewPage(res, page, total), nil
}

func (r *PostgresRepository) getHistory(ctx context.Context, where string, arg any) (*model.PurchaseHistory, error) {
	var h model.PurchaseHistory
	if err := scanHistory(r.pool.QueryRow(ctx, historySelect+` WHERE `+where, arg), &h); err != nil {
		return nil, notFound(err, ErrHistoryNotFound, "get purchase history")
	}

	orders := []model.Order{h.Order}
	if err := loadOrderItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	h.Order = orders[0]
	return &h, nil
}

// GetPurchaseHistory возвращает запись истории со строками заказа.
func (r *PostgresRepository) GetPurchaseHistory(ctx context.Context, id int64) (*model.PurchaseHistory, error) {
	return r.getHistory(ctx, `h.id = $1`, id)
}

// GetPurchaseHistoryByOrderNumber возвращает запись истории по номеру заказа.
func (r *PostgresRepository) GetPurchaseHistoryByOrderNumber(ctx context.Context, number string) (*model.PurchaseHistory, error) {
	return r.getHistory(ctx, `o.order_number = $1`, number)
}

// CustomerPurchaseStats возвращает число покупок клиента и потраченную сумму в центах.
func (r *PostgresRepository) CustomerPurchaseStats(ctx context.Context, customerID int64) (int64, int64, error) {
	var count, spent int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(SUM(o.total_cents), 0)
		 FROM purchase_history h JOIN orders o ON o.id = h.order_id
		 WHERE h.customer_id = $1`,
		customerID,
	).Scan(&count, &spent)
	if err != nil {
		return 0, 0, fmt.Errorf("purchase stats: %w", err)
	}
	return count, spent, nil
}
