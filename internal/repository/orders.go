package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// OrderPricer рассчитывает скидку и итоги заказа внутри транзакции.
// promo равен nil, если промокод не указан.
type OrderPricer func(o *model.Order, promo *model.Promotion) error

// OrderMutator изменяет заблокированный заказ внутри транзакции.
type OrderMutator func(o *model.Order) error

// OrderFilter задаёт необязательные условия выборки заказов.
type OrderFilter struct {
	Status     *model.OrderStatus
	CustomerID *int64
}

const orderColumns = `o.id, o.order_number, o.queue_number, o.customer_id, o.customer_name, o.item_count,
	o.subtotal_cents, o.discount_cents, o.tax_cents, o.total_cents, o.status, o.resume_status, o.payment_method, o.promo_id,
	o.points_earned, o.points_used, o.assigned_to, o.completed_by, o.special_instructions, o.notes,
	o.order_date, o.estimated_ready_time, o.ready_time, o.completed_time, o.created_at, o.updated_at`

var orderSortColumns = map[string]string{
	"orderDate":   "o.order_date",
	"total":       "o.total_cents",
	"status":      "o.status",
	"queueNumber": "o.queue_number",
	"createdAt":   "o.created_at",
}

func scanOrder(row scanner, o *model.Order) error {
	var status, resume string
	var payment *string
	err := row.Scan(
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
	return nil
}

// loadOrderItems загружает строки заказов и раскладывает их по заказам.
func loadOrderItems(ctx context.Context, q querier, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	rows, err := q.Query(ctx,
		`SELECT oi.id, oi.order_id, oi.menu_item_id, m.name, oi.quantity, oi.unit_price_cents,
			oi.discount_cents, oi.subtotal_cents, oi.special_instructions, oi.created_at, oi.updated_at
		 FROM order_items oi JOIN menu_items m ON m.id = oi.menu_item_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.MenuItemID, &it.MenuItemName, &it.Quantity, &it.UnitPriceCents,
			&it.DiscountCents, &it.SubtotalCents, &it.SpecialInstructions, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func insertOrderItem(ctx context.Context, q querier, orderID int64, it *model.OrderItem) error {
	it.OrderID = orderID
	err := q.QueryRow(ctx,
		`INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price_cents, discount_cents,
			subtotal_cents, special_instructions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		orderID, it.MenuItemID, it.Quantity, it.UnitPriceCents, it.DiscountCents,
		it.SubtotalCents, it.SpecialInstructions,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// priceItems подставляет цену и название из меню. Отсутствующие позиции
// и позиции не в наличии отклоняются.
func priceItems(ctx context.Context, q querier, items []model.OrderItem) error {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MenuItemID)
	}

	menu, err := loadMenuItems(ctx, q, ids)
	if err != nil {
		return err
	}

	for i := range items {
		m, ok := menu[items[i].MenuItemID]
		if !ok {
			return fmt.Errorf("%w: %d", ErrMenuItemNotFound, items[i].MenuItemID)
		}
		if !m.InStock {
			return fmt.Errorf("%w: %s", ErrMenuItemOutOfStock, m.Name)
		}
		items[i].UnitPriceCents = m.PriceCents
		items[i].MenuItemName = m.Name
		items[i].CalculateSubtotal()
	}
	return nil
}

// bumpBuyCounters увеличивает счётчики покупок позиций на количество в строках.
func bumpBuyCounters(ctx context.Context, q querier, items []model.OrderItem) error {
	ids := make([]int64, len(items))
	qty := make([]int32, len(items))
	for i, it := range items {
		ids[i] = it.MenuItemID
		qty[i] = int32(it.Quantity)
	}

	_, err := q.Exec(ctx,
		`UPDATE menu_items m
		 SET weekly_buys = m.weekly_buys + x.qty, monthly_buys = m.monthly_buys + x.qty, updated_at = now()
		 FROM (SELECT id, sum(q)::int AS qty FROM unnest($1::bigint[], $2::int[]) AS t(id, q) GROUP BY id) x
		 WHERE m.id = x.id`,
		ids, qty,
	)
	if err != nil {
		return fmt.Errorf("bump buy counters: %w", err)
	}
	return nil
}

// nextQueueNumber выдаёт следующий номер очереди за день заказа. Advisory-блокировка
// сериализует выдачу номеров между параллельными транзакциями.
func nextQueueNumber(ctx context.Context, tx pgx.Tx, o *model.Order) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('orders_queue_number'))`); err != nil {
		return 0, fmt.Errorf("lock queue number: %w", err)
	}

	var n int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(queue_number), 0) + 1 FROM orders
		 WHERE order_date >= date_trunc('day', $1::timestamptz)
		   AND order_date < date_trunc('day', $1::timestamptz) + interval '1 day'`,
		o.OrderDate,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next queue number: %w", err)
	}
	return n, nil
}

// CreateOrder сохраняет заказ в одной транзакции: цены берутся из меню, акция
// блокируется и погашается, выдаётся номер очереди, растут счётчики покупок.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order, promoCode string, price OrderPricer) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := priceItems(ctx, tx, o.Items); err != nil {
			return err
		}

		var promo *model.Promotion
		if promoCode != "" {
			p, err := lockPromotionByCode(ctx, tx, promoCode)
			if err != nil {
				return err
			}
			promo = p
		}

		o.PromoID = nil
		o.DiscountCents = 0
		if err := price(o, promo); err != nil {
			return err
		}

		if o.PromoID != nil {
			if err := redeemPromotion(ctx, tx, *o.PromoID); err != nil {
				return err
			}
		}

		queue, err := nextQueueNumber(ctx, tx, o)
		if err != nil {
			return err
		}
		o.QueueNumber = queue

		err = tx.QueryRow(ctx,
			`INSERT INTO orders (order_number, queue_number, customer_id, customer_name, item_count,
				subtotal_cents, discount_cents, tax_cents, total_cents, status, payment_method, promo_id,
				points_earned, points_used, special_instructions, notes, order_date, estimated_ready_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			 RETURNING id, created_at, updated_at`,
			o.OrderNumber, o.QueueNumber, o.CustomerID, o.CustomerName, o.ItemCount,
			o.SubtotalCents, o.DiscountCents, o.TaxCents, o.TotalCents, string(o.Status), paymentArg(o.PaymentMethod), o.PromoID,
			o.PointsEarned, o.PointsUsed, o.SpecialInstructions, o.Notes, o.OrderDate, o.EstimatedReadyTime,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return mapConstraint(err, "insert order")
		}

		for i := range o.Items {
			if err := insertOrderItem(ctx, tx, o.ID, &o.Items[i]); err != nil {
				return err
			}
		}

		return bumpBuyCounters(ctx, tx, o.Items)
	})
}

func paymentArg(pm *model.PaymentMethod) *string {
	if pm == nil {
		return nil
	}
	s := string(*pm)
	return &s
}

func lockOrder(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	var o model.Order
	err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id), &o)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "lock order")
	}

	orders := []model.Order{o}
	if err := loadOrderItems(ctx, tx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func saveOrderHeader(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	err := tx.QueryRow(ctx,
		`UPDATE orders SET item_count = $2, subtotal_cents = $3, discount_cents = $4, tax_cents = $5,
			total_cents = $6, status = $7, payment_method = $8, points_earned = $9, points_used = $10,
			assigned_to = $11, completed_by = $12, special_instructions = $13, notes = $14,
			estimated_ready_time = $15, ready_time = $16, completed_time = $17, resume_status = $18,
			updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		o.ID, o.ItemCount, o.SubtotalCents, o.DiscountCents, o.TaxCents,
		o.TotalCents, string(o.Status), paymentArg(o.PaymentMethod), o.PointsEarned, o.PointsUsed,
		o.AssignedTo, o.CompletedBy, o.SpecialInstructions, o.Notes,
		o.EstimatedReadyTime, o.ReadyTime, o.CompletedTime, string(o.ResumeStatus),
	).Scan(&o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

// AddOrderItem добавляет строку к заказу. apply проверяет состояние заказа
// и пересчитывает итоги после добавления строки.
func (r *PostgresRepository) AddOrderItem(ctx context.Context, orderID int64, item model.OrderItem, apply OrderMutator) (*model.Order, error) {
	var res *model.Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		added := []model.OrderItem{item}
		if err := priceItems(ctx, tx, added); err != nil {
			return err
		}
		o.Items = append(o.Items, added[0])

		if err := apply(o); err != nil {
			return err
		}

		last := &o.Items[len(o.Items)-1]
		if err := insertOrderItem(ctx, tx, o.ID, last); err != nil {
			return err
		}
		if err := saveOrderHeader(ctx, tx, o); err != nil {
			return err
		}
		if err := bumpBuyCounters(ctx, tx, []model.OrderItem{*last}); err != nil {
			return err
		}

		res = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateOrder блокирует заказ, применяет mutate и сохраняет заголовок. При переходе
// в COMPLETE для заказа клиента в той же транзакции создаётся запись истории покупок.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, orderID int64, mutate OrderMutator) (*model.Order, error) {
	var res *model.Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if err := mutate(o); err != nil {
			return err
		}

		if err := saveOrderHeader(ctx, tx, o); err != nil {
			return err
		}

		if o.Status == model.OrderStatusComplete && o.CustomerID != nil {
			tag, err := tx.Exec(ctx,
				`INSERT INTO purchase_history (customer_id, order_id) VALUES ($1, $2)
				 ON CONFLICT (order_id) DO NOTHING`,
				*o.CustomerID, o.ID,
			)
			if err != nil {
				return fmt.Errorf("insert purchase history: %w", err)
			}

			// баллы начисляются один раз, вместе с первой записью истории
			if tag.RowsAffected() > 0 && o.PointsEarned > 0 {
				_, err = tx.Exec(ctx,
					`UPDATE users SET points = points + $2, updated_at = now() WHERE id = $1`,
					*o.CustomerID, o.PointsEarned,
				)
				if err != nil {
					return fmt.Errorf("credit points: %w", err)
				}
			}
		}

		res = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *PostgresRepository) getOrder(ctx context.Context, where string, arg any) (*model.Order, error) {
	var o model.Order
	err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE `+where, arg), &o)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound, "get order")
	}

	orders := []model.Order{o}
	if err := loadOrderItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// GetOrder возвращает заказ со строками по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOrder(ctx, `o.id = $1`, id)
}

// GetOrderByNumber возвращает заказ со строками по номеру заказа.
func (r *PostgresRepository) GetOrderByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.getOrder(ctx, `o.order_number = $1`, number)
}

// PageOrders возвращает страницу заказов со строками.
func (r *PostgresRepository) PageOrders(ctx context.Context, f OrderFilter, page model.PageRequest) (model.Page[model.Order], error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	const where = ` WHERE ($1::text IS NULL OR o.status = $1) AND ($2::bigint IS NULL OR o.customer_id = $2)`

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders o`+where, status, f.CustomerID).Scan(&total); err != nil {
		return model.Page[model.Order]{}, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o`+where+
			orderClause(orderSortColumns, page.SortBy, page.SortDir, "o.order_date", "o.id")+
			` LIMIT $3 OFFSET $4`,
		status, f.CustomerID, page.Size, page.Offset(),
	)
	if err != nil {
		return model.Page[model.Order]{}, fmt.Errorf("select orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return model.Page[model.Order]{}, err
	}

	if err := loadOrderItems(ctx, r.pool, orders); err != nil {
		return model.Page[model.Order]{}, err
	}

	return model.NewPage(orders, page, total), nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
