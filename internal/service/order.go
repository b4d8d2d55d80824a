package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// orderNumberAttempts — сколько раз пробовать новый номер заказа при коллизии.
	orderNumberAttempts = 3
	// prepTimePerItem — ориентировочное время приготовления одной позиции.
	prepTimePerItem = 3 * time.Minute
	minPrepTime     = 5 * time.Minute
)

// OrderRepository описывает доступ к заказам.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *model.Order, promoCode string, price repository.OrderPricer) error
	AddOrderItem(ctx context.Context, orderID int64, item model.OrderItem, apply repository.OrderMutator) (*model.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, mutate repository.OrderMutator) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*model.Order, error)
	PageOrders(ctx context.Context, f repository.OrderFilter, page model.PageRequest) (model.Page[model.Order], error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// OrderItemInput — строка нового заказа.
type OrderItemInput struct {
	MenuItemID          int64
	Quantity            int
	SpecialInstructions string
}

// CreateOrderInput — данные нового заказа. CustomerID пуст для гостевых заказов.
type CreateOrderInput struct {
	CustomerID          *int64
	CustomerName        string
	Items               []OrderItemInput
	PromoCode           string
	PaymentMethod       *model.PaymentMethod
	SpecialInstructions string
	Notes               string
}

// OrderService управляет заказами.
type OrderService struct {
	repo    OrderRepository
	events  EventPublisher
	taxRate decimal.Decimal
	logger  *zap.Logger
	clock   clock
}

// NewOrderService создаёт сервис заказов. taxRate задаётся в процентах.
// events и logger необязательны.
func NewOrderService(repo OrderRepository, events EventPublisher, taxRate decimal.Decimal, logger *zap.Logger) *OrderService {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{repo: repo, events: events, taxRate: taxRate, logger: logger}
}

// Create оформляет заказ: цены копируются из меню, применяется промокод, начисляется налог.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, validation.Field("items", "must contain at least 1 element(s)")
	}

	now := s.clock.now()
	o := &model.Order{
		CustomerID:          in.CustomerID,
		CustomerName:        strings.TrimSpace(in.CustomerName),
		Status:              model.OrderStatusPending,
		PaymentMethod:       in.PaymentMethod,
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
		Notes:               strings.TrimSpace(in.Notes),
		OrderDate:           now,
	}

	count := 0
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, validation.Field(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		o.Items = append(o.Items, model.OrderItem{
			MenuItemID:          it.MenuItemID,
			Quantity:            it.Quantity,
			SpecialInstructions: strings.TrimSpace(it.SpecialInstructions),
		})
		count += it.Quantity
	}
	ready := now.Add(max(minPrepTime, time.Duration(count)*prepTimePerItem))
	o.EstimatedReadyTime = &ready

	if o.CustomerID != nil {
		u, err := s.repo.GetUserByID(ctx, *o.CustomerID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, validation.Field("customerId", "unknown customer")
			}
			return nil, err
		}
		if u.Role != model.RoleClient {
			return nil, validation.Field("customerId", "must be a customer account")
		}
		if o.CustomerName == "" {
			o.CustomerName = u.Name()
		}
	}

	promoCode := strings.TrimSpace(in.PromoCode)

	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.OrderNumber = validation.NewOrderNumber(now)
		err = s.repo.CreateOrder(ctx, o, promoCode, s.pricer(now))
		if !errors.Is(err, repository.ErrOrderNumberExists) {
			break
		}
	}
	if err != nil {
		return nil, orderError(err)
	}

	if err := s.events.OrderCreated(ctx, o); err != nil {
		s.logger.Warn("publish order created", zap.Error(err), zap.Int64("order_id", o.ID))
	}
	return o, nil
}

// pricer применяет акцию к уже оценённым строкам и считает итоги заказа.
func (s *OrderService) pricer(now time.Time) repository.OrderPricer {
	return func(o *model.Order, promo *model.Promotion) error {
		o.Recalculate(s.taxRate)

		if promo != nil {
			if promo.Exhausted() {
				return repository.ErrPromotionExhausted
			}
			if !promo.IsUsable(now) {
				return ErrPromoNotApplicable
			}
			discount := promo.CalculateDiscount(promo.EligibleAmount(o.Items), now)
			if discount == 0 {
				return ErrPromoNotApplicable
			}
			o.DiscountCents = discount
			o.PromoID = &promo.ID
			o.Recalculate(s.taxRate)
		}

		o.PointsEarned = earnedPoints(o)
		return nil
	}
}

// earnedPoints начисляет клиенту балл за каждую целую денежную единицу итога.
func earnedPoints(o *model.Order) int {
	if o.CustomerID == nil || o.TotalCents <= 0 {
		return 0
	}
	return int(o.TotalCents / 100)
}

// orderError приводит ошибки оценки заказа к ошибкам сервиса.
func orderError(err error) error {
	switch {
	case errors.Is(err, repository.ErrMenuItemNotFound), errors.Is(err, repository.ErrMenuItemOutOfStock):
		return fmt.Errorf("%w: %w", ErrItemUnavailable, err)
	case errors.Is(err, repository.ErrPromotionNotFound):
		return fmt.Errorf("%w: unknown promo code", ErrPromoNotApplicable)
	}
	return err
}

// AddItem добавляет строку к заказу, пока он в статусе PENDING.
func (s *OrderService) AddItem(ctx context.Context, orderID int64, in OrderItemInput) (*model.Order, error) {
	if in.Quantity <= 0 {
		return nil, validation.Field("quantity", "must be greater than 0")
	}

	item := model.OrderItem{
		MenuItemID:          in.MenuItemID,
		Quantity:            in.Quantity,
		SpecialInstructions: strings.TrimSpace(in.SpecialInstructions),
	}

	o, err := s.repo.AddOrderItem(ctx, orderID, item, func(o *model.Order) error {
		if o.Status != model.OrderStatusPending {
			return ErrOrderLocked
		}
		o.Recalculate(s.taxRate)
		o.PointsEarned = earnedPoints(o)
		return nil
	})
	if err != nil {
		return nil, orderError(err)
	}
	return o, nil
}

// Get возвращает заказ по идентификатору.
func (s *OrderService) Get(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// GetByNumber возвращает заказ по номеру. Номер проверяется по контрольной цифре.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !validation.IsValidOrderNumber(number) {
		return nil, validation.Field("orderNumber", "is not a valid order number")
	}
	return s.repo.GetOrderByNumber(ctx, number)
}

// Page возвращает страницу заказов с фильтром по статусу и клиенту.
func (s *OrderService) Page(ctx context.Context, f repository.OrderFilter, page model.PageRequest) (model.Page[model.Order], error) {
	return s.repo.PageOrders(ctx, f, page.Normalize())
}

// UpdateStatus переводит заказ в статус to. actorID — сотрудник, выполняющий переход.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, to model.OrderStatus, actorID int64) (*model.Order, error) {
	var prev model.OrderStatus

	o, err := s.repo.UpdateOrder(ctx, orderID, func(o *model.Order) error {
		prev = o.Status
		if !o.MoveTo(to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, to)
		}

		now := s.clock.now()
		switch to {
		case model.OrderStatusInProgress:
			if o.AssignedTo == nil {
				o.AssignedTo = &actorID
			}
		case model.OrderStatusReady:
			o.ReadyTime = &now
		case model.OrderStatusComplete:
			if o.ReadyTime == nil {
				o.ReadyTime = &now
			}
			o.CompletedTime = &now
			o.CompletedBy = &actorID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.OrderStatusChanged(ctx, o, prev); err != nil {
		s.logger.Warn("publish order status changed", zap.Error(err), zap.Int64("order_id", o.ID))
	}
	return o, nil
}

// Assign назначает заказ сотруднику staffUserID.
func (s *OrderService) Assign(ctx context.Context, orderID, staffUserID int64) (*model.Order, error) {
	u, err := s.repo.GetUserByID(ctx, staffUserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, validation.Field("staffId", "unknown staff member")
		}
		return nil, err
	}
	if !u.Role.IsStaff() || !u.IsActive {
		return nil, validation.Field("staffId", "must be an active staff member")
	}

	return s.repo.UpdateOrder(ctx, orderID, func(o *model.Order) error {
		switch o.Status {
		case model.OrderStatusComplete, model.OrderStatusCancelled, model.OrderStatusReturn:
			return ErrOrderLocked
		}
		o.AssignedTo = &staffUserID
		return nil
	})
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, *model.Order) error { return nil }
func (nopPublisher) OrderStatusChanged(context.Context, *model.Order, model.OrderStatus) error {
	return nil
}
