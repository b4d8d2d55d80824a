package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubOrderRepo повторяет поведение транзакции создания заказа без БД:
// подставляет цены меню, находит акцию по коду и вызывает pricer.
type stubOrderRepo struct {
	menu   map[int64]model.MenuItem
	promos map[string]*model.Promotion
	users  map[int64]*model.User
	order  *model.Order

	numberCollisions int
	createCalls      int
	redeemed         int
}

func (s *stubOrderRepo) CreateOrder(_ context.Context, o *model.Order, promoCode string, price repository.OrderPricer) error {
	s.createCalls++
	if s.numberCollisions > 0 {
		s.numberCollisions--
		return repository.ErrOrderNumberExists
	}

	for i := range o.Items {
		m, ok := s.menu[o.Items[i].MenuItemID]
		if !ok {
			return repository.ErrMenuItemNotFound
		}
		if !m.InStock {
			return repository.ErrMenuItemOutOfStock
		}
		o.Items[i].UnitPriceCents = m.PriceCents
		o.Items[i].MenuItemName = m.Name
	}

	var promo *model.Promotion
	if promoCode != "" {
		p, ok := s.promos[promoCode]
		if !ok {
			return repository.ErrPromotionNotFound
		}
		promo = p
	}

	o.PromoID = nil
	o.DiscountCents = 0
	if err := price(o, promo); err != nil {
		return err
	}
	if o.PromoID != nil {
		s.redeemed++
	}

	o.ID = 100
	o.QueueNumber = 1
	s.order = o
	return nil
}

func (s *stubOrderRepo) AddOrderItem(_ context.Context, _ int64, item model.OrderItem, apply repository.OrderMutator) (*model.Order, error) {
	m, ok := s.menu[item.MenuItemID]
	if !ok {
		return nil, repository.ErrMenuItemNotFound
	}
	item.UnitPriceCents = m.PriceCents

	o := *s.order
	o.Items = append(append([]model.OrderItem(nil), s.order.Items...), item)
	if err := apply(&o); err != nil {
		return nil, err
	}
	s.order = &o
	return &o, nil
}

func (s *stubOrderRepo) UpdateOrder(_ context.Context, _ int64, mutate repository.OrderMutator) (*model.Order, error) {
	if s.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	o := *s.order
	if err := mutate(&o); err != nil {
		return nil, err
	}
	s.order = &o
	return &o, nil
}

func (s *stubOrderRepo) GetOrder(context.Context, int64) (*model.Order, error) {
	if s.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) GetOrderByNumber(_ context.Context, number string) (*model.Order, error) {
	if s.order == nil || s.order.OrderNumber != number {
		return nil, repository.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) PageOrders(_ context.Context, _ repository.OrderFilter, page model.PageRequest) (model.Page[model.Order], error) {
	return model.NewPage[model.Order](nil, page, 0), nil
}

func (s *stubOrderRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

type recordedEvent struct {
	kind string
	prev model.OrderStatus
}

type stubEvents struct {
	events []recordedEvent
	err    error
}

func (s *stubEvents) OrderCreated(context.Context, *model.Order) error {
	s.events = append(s.events, recordedEvent{kind: "created"})
	return s.err
}

func (s *stubEvents) OrderStatusChanged(_ context.Context, _ *model.Order, prev model.OrderStatus) error {
	s.events = append(s.events, recordedEvent{kind: "status", prev: prev})
	return s.err
}

var orderNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func newOrderFixture(t *testing.T) (*OrderService, *stubOrderRepo, *stubEvents) {
	t.Helper()

	pct := int64(1000)
	code := "SUMMER10"
	repo := &stubOrderRepo{
		menu: map[int64]model.MenuItem{
			1: {ID: 1, Name: "Latte", PriceCents: 450, InStock: true},
			2: {ID: 2, Name: "Croissant", PriceCents: 300, InStock: true},
			3: {ID: 3, Name: "Seasonal Pie", PriceCents: 500, InStock: false},
		},
		promos: map[string]*model.Promotion{
			code: {
				ID:                   7,
				DiscountPercentageBP: &pct,
				StartDate:            orderNow.AddDate(0, 0, -1),
				EndDate:              orderNow.AddDate(0, 0, 1),
				IsActive:             true,
				PromoCode:            &code,
				ApplicableTo:         model.ApplicableAllItems,
			},
		},
		users: map[int64]*model.User{
			42: {ID: 42, FirstName: "Anna", LastName: "Smith", Role: model.RoleClient, IsActive: true},
			9:  {ID: 9, FirstName: "Ben", Role: model.RoleBarista, IsActive: true},
		},
	}
	events := &stubEvents{}

	svc := NewOrderService(repo, events, decimal.NewFromInt(10), zaptest.NewLogger(t))
	svc.clock = fixedClock(orderNow)
	return svc, repo, events
}

func TestCreateOrder(t *testing.T) {
	svc, repo, events := newOrderFixture(t)
	customer := int64(42)

	o, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerID: &customer,
		Items: []OrderItemInput{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 1},
		},
		PromoCode: " SUMMER10 ",
	})
	require.NoError(t, err)

	// 2×4.50 + 3.00 = 12.00; налог 10% = 1.20; скидка 10% = 1.20
	assert.Equal(t, int64(1200), o.SubtotalCents)
	assert.Equal(t, int64(120), o.TaxCents)
	assert.Equal(t, int64(120), o.DiscountCents)
	assert.Equal(t, int64(1200), o.TotalCents)
	assert.Equal(t, 3, o.ItemCount)
	assert.Equal(t, 12, o.PointsEarned)
	assert.Equal(t, "Anna Smith", o.CustomerName)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	require.NotNil(t, o.PromoID)
	assert.Equal(t, int64(7), *o.PromoID)
	assert.True(t, validation.IsValidOrderNumber(o.OrderNumber), "order number %q", o.OrderNumber)
	require.NotNil(t, o.EstimatedReadyTime)
	assert.Equal(t, orderNow.Add(9*time.Minute), *o.EstimatedReadyTime)

	assert.Equal(t, 1, repo.redeemed)
	assert.Equal(t, []recordedEvent{{kind: "created"}}, events.events)
}

func TestCreateOrder_RetriesNumberCollision(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)
	repo.numberCollisions = 2

	_, err := svc.Create(context.Background(), CreateOrderInput{
		CustomerName: "Walk-in",
		Items:        []OrderItemInput{{MenuItemID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.createCalls)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      CreateOrderInput
		wantErr error
	}{
		{
			name:    "out of stock",
			in:      CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 3, Quantity: 1}}},
			wantErr: ErrItemUnavailable,
		},
		{
			name:    "unknown item",
			in:      CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 99, Quantity: 1}}},
			wantErr: ErrItemUnavailable,
		},
		{
			name:    "unknown promo code",
			in:      CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}, PromoCode: "NOPE"},
			wantErr: ErrPromoNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, events := newOrderFixture(t)

			_, err := svc.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(events.events) != 0 {
				t.Fatalf("no event expected for failed order, got %v", events.events)
			}
		})
	}
}

func TestCreateOrder_ValidatesItems(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	_, err := svc.Create(context.Background(), CreateOrderInput{})
	var fields validation.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "items")

	_, err = svc.Create(context.Background(), CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 0}}})
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "items[0].quantity")
}

func TestCreateOrder_ExpiredPromotion(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)
	repo.promos["SUMMER10"].EndDate = orderNow.Add(-time.Hour)

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Items:     []OrderItemInput{{MenuItemID: 1, Quantity: 1}},
		PromoCode: "SUMMER10",
	})
	if !errors.Is(err, ErrPromoNotApplicable) {
		t.Fatalf("expected ErrPromoNotApplicable, got %v", err)
	}
	if repo.redeemed != 0 {
		t.Fatalf("expired promotion must not be redeemed")
	}
}

func TestCreateOrder_RejectsInvalidCustomer(t *testing.T) {
	tests := []struct {
		name       string
		customerID int64
	}{
		{name: "unknown customer", customerID: 404},
		{name: "staff account", customerID: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newOrderFixture(t)
			id := tt.customerID

			_, err := svc.Create(context.Background(), CreateOrderInput{
				CustomerID:   &id,
				CustomerName: "Front desk",
				Items:        []OrderItemInput{{MenuItemID: 1, Quantity: 1}},
			})
			var fields validation.FieldErrors
			require.ErrorAs(t, err, &fields)
			assert.Contains(t, fields, "customerId")
			assert.Equal(t, 0, repo.createCalls)
		})
	}
}

func TestCreateOrder_ExhaustedPromotion(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)
	limit := 5
	repo.promos["SUMMER10"].UsageLimit = &limit
	repo.promos["SUMMER10"].CurrentUsage = 5

	_, err := svc.Create(context.Background(), CreateOrderInput{
		Items:     []OrderItemInput{{MenuItemID: 1, Quantity: 1}},
		PromoCode: "SUMMER10",
	})
	if !errors.Is(err, repository.ErrPromotionExhausted) {
		t.Fatalf("expected ErrPromotionExhausted, got %v", err)
	}
	assert.Equal(t, 0, repo.redeemed)
}

func TestCreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	svc, _, events := newOrderFixture(t)
	events.err = errors.New("broker down")

	_, err := svc.Create(context.Background(), CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 2, Quantity: 1}}})
	require.NoError(t, err)
}

func TestAddItem(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)

	_, err := svc.Create(context.Background(), CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}})
	require.NoError(t, err)

	o, err := svc.AddItem(context.Background(), 100, OrderItemInput{MenuItemID: 2, Quantity: 2})
	require.NoError(t, err)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, int64(1050), o.SubtotalCents)
	assert.Equal(t, int64(105), o.TaxCents)
	assert.Equal(t, o.SubtotalCents+o.TaxCents-o.DiscountCents, o.TotalCents)

	repo.order.Status = model.OrderStatusInProgress
	_, err = svc.AddItem(context.Background(), 100, OrderItemInput{MenuItemID: 2, Quantity: 1})
	if !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("expected ErrOrderLocked, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, repo, events := newOrderFixture(t)
	customer := int64(42)
	_, err := svc.Create(context.Background(), CreateOrderInput{CustomerID: &customer, Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}})
	require.NoError(t, err)

	o, err := svc.UpdateStatus(context.Background(), 100, model.OrderStatusInProgress, 9)
	require.NoError(t, err)
	require.NotNil(t, o.AssignedTo)
	assert.Equal(t, int64(9), *o.AssignedTo)

	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusPending, 9)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	o, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusReady, 9)
	require.NoError(t, err)
	require.NotNil(t, o.ReadyTime)

	o, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusComplete, 9)
	require.NoError(t, err)
	require.NotNil(t, o.CompletedTime)
	require.NotNil(t, o.CompletedBy)
	assert.Equal(t, int64(9), *o.CompletedBy)
	assert.Equal(t, model.OrderStatusComplete, repo.order.Status)

	assert.Equal(t, []recordedEvent{
		{kind: "created"},
		{kind: "status", prev: model.OrderStatusPending},
		{kind: "status", prev: model.OrderStatusInProgress},
		{kind: "status", prev: model.OrderStatusReady},
	}, events.events)
}

func TestUpdateStatus_DetourResumesWhereItLeft(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)
	_, err := svc.Create(context.Background(), CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusHasProblem, 9)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, repo.order.ResumeStatus)

	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusReady, 9)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	o, err := svc.UpdateStatus(context.Background(), 100, model.OrderStatusInProgress, 9)
	require.NoError(t, err)
	require.NotNil(t, o.AssignedTo)
	assert.Empty(t, o.ResumeStatus)

	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusReady, 9)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusDelayed, 9)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusInProgress, 9)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	_, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusCancelled, 9)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	o, err = svc.UpdateStatus(context.Background(), 100, model.OrderStatusComplete, 9)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusComplete, o.Status)
}

func TestAssign(t *testing.T) {
	svc, repo, _ := newOrderFixture(t)
	_, err := svc.Create(context.Background(), CreateOrderInput{Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}})
	require.NoError(t, err)

	o, err := svc.Assign(context.Background(), 100, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), *o.AssignedTo)

	var fields validation.FieldErrors
	_, err = svc.Assign(context.Background(), 100, 42)
	require.ErrorAs(t, err, &fields)

	repo.order.Status = model.OrderStatusCancelled
	_, err = svc.Assign(context.Background(), 100, 9)
	if !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("expected ErrOrderLocked, got %v", err)
	}
}

func TestGetByNumber_RejectsMalformed(t *testing.T) {
	svc, _, _ := newOrderFixture(t)

	_, err := svc.GetByNumber(context.Background(), "ORD-12345")
	var fields validation.FieldErrors
	if !errors.As(err, &fields) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
