package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/service"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

type orderItemRequest struct {
	MenuItemID          int64  `json:"menuItemId" validate:"gt=0"`
	Quantity            int    `json:"quantity" validate:"gt=0,lte=100"`
	SpecialInstructions string `json:"specialInstructions" validate:"max=500"`
}

func (req orderItemRequest) toInput() service.OrderItemInput {
	return service.OrderItemInput{
		MenuItemID:          req.MenuItemID,
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	}
}

type createOrderRequest struct {
	CustomerID          *int64             `json:"customerId" validate:"omitempty,gt=0"`
	CustomerName        string             `json:"customerName" validate:"max=100"`
	Items               []orderItemRequest `json:"items" validate:"min=1,dive"`
	PromoCode           string             `json:"promoCode" validate:"max=50"`
	PaymentMethod       string             `json:"paymentMethod" validate:"omitempty,oneof=CASH CREDIT_CARD DEBIT_CARD DIGITAL_WALLET POINTS BANK_TRANSFER"`
	SpecialInstructions string             `json:"specialInstructions" validate:"max=1000"`
	Notes               string             `json:"notes" validate:"max=1000"`
}

// CreateOrder оформляет заказ. Клиент всегда оформляет заказ на себя,
// сотрудник может указать клиента или оформить гостевой заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create order", err)
		return
	}

	in := service.CreateOrderInput{
		CustomerID:          req.CustomerID,
		CustomerName:        req.CustomerName,
		PromoCode:           req.PromoCode,
		SpecialInstructions: req.SpecialInstructions,
		Notes:               req.Notes,
	}
	if !claims.Role.IsStaff() {
		in.CustomerID = &claims.UserID
	}
	if req.PaymentMethod != "" {
		pm := model.PaymentMethod(req.PaymentMethod)
		in.PaymentMethod = &pm
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, it.toInput())
	}

	o, err := h.services.Orders.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

// AddOrderItem добавляет позицию в заказ, пока он ожидает приготовления.
func (h *Handler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "add order item", err)
		return
	}

	var req orderItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "add order item", err)
		return
	}

	current, err := h.services.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "add order item", err)
		return
	}
	if !canSeeOrder(r, current) {
		h.writeError(w, r, "add order item", errForbidden)
		return
	}

	o, err := h.services.Orders.AddItem(r.Context(), id, req.toInput())
	if err != nil {
		h.writeError(w, r, "add order item", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}

	o, err := h.services.Orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	if !canSeeOrder(r, o) {
		h.writeError(w, r, "get order", errForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.services.Orders.GetByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeError(w, r, "get order by number", err)
		return
	}
	if !canSeeOrder(r, o) {
		h.writeError(w, r, "get order by number", errForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// ListOrders возвращает страницу всех заказов с необязательным фильтром по статусу.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var f repository.OrderFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := model.ParseOrderStatus(raw)
		if !ok {
			h.writeError(w, r, "list orders", validation.Field("status", "is invalid"))
			return
		}
		f.Status = &st
	}
	h.pageOrders(w, r, f)
}

// MyOrders возвращает страницу заказов текущего клиента.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	h.pageOrders(w, r, repository.OrderFilter{CustomerID: &claims.UserID})
}

func (h *Handler) pageOrders(w http.ResponseWriter, r *http.Request, f repository.OrderFilter) {
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}

	res, err := h.services.Orders.Page(r.Context(), f, page)
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, model.MapPage(res, toOrderResponse))
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus переводит заказ в новый статус от имени текущего сотрудника.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}
	st, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		h.writeError(w, r, "update order status", validation.Field("status", "is invalid"))
		return
	}

	o, err := h.services.Orders.UpdateStatus(r.Context(), id, st, claims.UserID)
	if err != nil {
		h.writeError(w, r, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

type assignOrderRequest struct {
	StaffID int64 `json:"staffId" validate:"gt=0"`
}

func (h *Handler) AssignOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "assign order", err)
		return
	}

	var req assignOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "assign order", err)
		return
	}

	o, err := h.services.Orders.Assign(r.Context(), id, req.StaffID)
	if err != nil {
		h.writeError(w, r, "assign order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// canSeeOrder: гостевые заказы видны только сотрудникам.
func canSeeOrder(r *http.Request, o *model.Order) bool {
	if o.CustomerID == nil {
		claims, ok := currentUser(r)
		return ok && claims.Role.IsStaff()
	}
	return canSeeCustomer(r, *o.CustomerID)
}
