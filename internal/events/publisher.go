// Package events публикует события заказов в RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmeshcher/coffeeshop-system/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — topic-exchange, в который публикуются события заказов.
const Exchange = "coffeeshop.orders"

// Ключи маршрутизации событий.
const (
	KeyOrderCreated       = "order.created"
	KeyOrderStatusChanged = "order.status_changed"
	KeyPromotionRedeemed  = "promotion.redeemed"
)

// OrderEvent — тело события заказа.
type OrderEvent struct {
	OrderID        int64             `json:"orderId"`
	OrderNumber    string            `json:"orderNumber"`
	QueueNumber    int               `json:"queueNumber"`
	CustomerID     *int64            `json:"customerId,omitempty"`
	Status         model.OrderStatus `json:"status"`
	PreviousStatus model.OrderStatus `json:"previousStatus,omitempty"`
	Total          float64           `json:"total"`
	Discount       float64           `json:"discount"`
	PromoID        *int64            `json:"promoId,omitempty"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher публикует события в RabbitMQ. Канал AMQP не потокобезопасен,
// поэтому публикации сериализуются мьютексом.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string

	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

// Dial подключается к брокеру и объявляет exchange событий.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	p := newPublisher(ch, Exchange)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Publish сериализует payload в JSON и публикует его с ключом key.
func (p *Publisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		MessageId:    p.newID(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		ContentType:  "application/json",
		Type:         key,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// OrderCreated публикует событие создания заказа и, если применена акция, событие её погашения.
func (p *Publisher) OrderCreated(ctx context.Context, o *model.Order) error {
	ev := p.orderEvent(o, "")
	if err := p.Publish(ctx, KeyOrderCreated, ev); err != nil {
		return err
	}
	if o.PromoID != nil {
		return p.Publish(ctx, KeyPromotionRedeemed, ev)
	}
	return nil
}

// OrderStatusChanged публикует событие смены статуса заказа.
func (p *Publisher) OrderStatusChanged(ctx context.Context, o *model.Order, previous model.OrderStatus) error {
	return p.Publish(ctx, KeyOrderStatusChanged, p.orderEvent(o, previous))
}

func (p *Publisher) orderEvent(o *model.Order, previous model.OrderStatus) OrderEvent {
	return OrderEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		QueueNumber:    o.QueueNumber,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		Total:          model.CentsToFloat(o.TotalCents),
		Discount:       model.CentsToFloat(o.DiscountCents),
		PromoID:        o.PromoID,
		OccurredAt:     p.now().UTC(),
	}
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
