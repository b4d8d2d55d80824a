package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusReady      OrderStatus = "READY"
	OrderStatusComplete   OrderStatus = "COMPLETE"
	OrderStatusHasProblem OrderStatus = "HAS_PROBLEM"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusReturn     OrderStatus = "RETURN"
	OrderStatusDelayed    OrderStatus = "DELAYED"
)

// ParseOrderStatus разбирает статус без учёта регистра.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderTransitions[st]; ok {
		return st, true
	}
	return "", false
}

// Основная линия PENDING → IN_PROGRESS → READY → COMPLETE идёт только вперёд.
// HAS_PROBLEM и DELAYED переходят только друг в друга: выход из них решает
// Order.CanMoveTo по статусу, с которого заказ ушёл в отклонение.
// CANCELLED и RETURN терминальны.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusInProgress, OrderStatusCancelled, OrderStatusDelayed, OrderStatusHasProblem},
	OrderStatusInProgress: {OrderStatusReady, OrderStatusCancelled, OrderStatusDelayed, OrderStatusHasProblem},
	OrderStatusReady:      {OrderStatusComplete, OrderStatusDelayed, OrderStatusHasProblem},
	OrderStatusComplete:   {OrderStatusReturn},
	OrderStatusHasProblem: {OrderStatusDelayed},
	OrderStatusDelayed:    {OrderStatusHasProblem},
	OrderStatusCancelled:  nil,
	OrderStatusReturn:     nil,
}

// CanTransition сообщает, допустим ли переход статуса заказа из from в to
// без учёта истории заказа.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsDetour сообщает, является ли статус отклонением от основной линии.
func (s OrderStatus) IsDetour() bool {
	return s == OrderStatusHasProblem || s == OrderStatusDelayed
}

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "CASH"
	PaymentCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard     PaymentMethod = "DEBIT_CARD"
	PaymentDigitalWallet PaymentMethod = "DIGITAL_WALLET"
	PaymentPoints        PaymentMethod = "POINTS"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
)

// ParsePaymentMethod разбирает способ оплаты без учёта регистра.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	pm := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	switch pm {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentDigitalWallet, PaymentPoints, PaymentBankTransfer:
		return pm, true
	}
	return "", false
}

// OrderItem описывает строку заказа.
type OrderItem struct {
	ID                  int64
	OrderID             int64
	MenuItemID          int64
	MenuItemName        string
	Quantity            int
	UnitPriceCents      int64
	DiscountCents       int64
	SubtotalCents       int64
	SpecialInstructions string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CalculateSubtotal пересчитывает сумму строки: цена × количество − скидка строки.
func (i *OrderItem) CalculateSubtotal() {
	i.SubtotalCents = i.UnitPriceCents*int64(i.Quantity) - i.DiscountCents
}

// Order — агрегат заказа вместе со строками.
type Order struct {
	ID                  int64
	OrderNumber         string
	QueueNumber         int
	CustomerID          *int64
	CustomerName        string
	Items               []OrderItem
	ItemCount           int
	SubtotalCents       int64
	DiscountCents       int64
	TaxCents            int64
	TotalCents          int64
	Status              OrderStatus
	ResumeStatus        OrderStatus
	PaymentMethod       *PaymentMethod
	PromoID             *int64
	PointsEarned        int
	PointsUsed          int
	AssignedTo          *int64
	CompletedBy         *int64
	SpecialInstructions string
	Notes               string
	OrderDate           time.Time
	EstimatedReadyTime  *time.Time
	ReadyTime           *time.Time
	CompletedTime       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CanMoveTo сообщает, можно ли перевести заказ в статус to.
// Из HAS_PROBLEM и DELAYED заказ возвращается в статус, с которого ушёл,
// или в следующий за ним. Отмена разрешена, только если она была допустима до отклонения.
func (o *Order) CanMoveTo(to OrderStatus) bool {
	if !o.Status.IsDetour() {
		return CanTransition(o.Status, to)
	}
	if to.IsDetour() {
		return CanTransition(o.Status, to)
	}
	resume := o.ResumeStatus
	if resume == "" {
		resume = OrderStatusPending
	}
	return to == resume || CanTransition(resume, to)
}

// MoveTo переводит заказ в статус to и запоминает статус, с которого заказ ушёл в отклонение.
func (o *Order) MoveTo(to OrderStatus) bool {
	if !o.CanMoveTo(to) {
		return false
	}
	switch {
	case to.IsDetour() && !o.Status.IsDetour():
		o.ResumeStatus = o.Status
	case !to.IsDetour():
		o.ResumeStatus = ""
	}
	o.Status = to
	return true
}

// Recalculate пересчитывает итоги заказа по строкам:
// total = subtotal + tax − discount, налог берётся от subtotal.
func (o *Order) Recalculate(taxRatePercent decimal.Decimal) {
	var subtotal int64
	count := 0
	for i := range o.Items {
		o.Items[i].CalculateSubtotal()
		subtotal += o.Items[i].SubtotalCents
		count += o.Items[i].Quantity
	}

	o.SubtotalCents = subtotal
	o.ItemCount = count
	o.TaxCents = TaxFor(subtotal, taxRatePercent)
	o.TotalCents = o.SubtotalCents + o.TaxCents - o.DiscountCents
}
