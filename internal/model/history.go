package model

import "time"

// PurchaseHistory — запись истории покупок клиента, один к одному с завершённым заказом.
// Производные поля не хранятся отдельно и читаются через связанный заказ.
type PurchaseHistory struct {
	ID            int64
	CustomerID    int64
	CustomerName  string
	CustomerEmail string
	Notes         string
	Order         Order
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (h *PurchaseHistory) OrderNumber() string { return h.Order.OrderNumber }
func (h *PurchaseHistory) Status() OrderStatus { return h.Order.Status }
func (h *PurchaseHistory) TotalCents() int64 { return h.Order.TotalCents }
func (h *PurchaseHistory) DiscountCents() int64 { return h.Order.DiscountCents }
func (h *PurchaseHistory) ItemsCount() int { return h.Order.ItemCount }
func (h *PurchaseHistory) OrderDate() time.Time { return h.Order.OrderDate }
func (h *PurchaseHistory) PaymentMethod() *PaymentMethod { return h.Order.PaymentMethod }
func (h *PurchaseHistory) PointsEarned() int { return h.Order.PointsEarned }
func (h *PurchaseHistory) PointsUsed() int { return h.Order.PointsUsed }
