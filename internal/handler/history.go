package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.services.History.List(r.Context())
	if err != nil {
		h.writeError(w, r, "list purchase history", err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponses(list))
}

// customerParam читает customerId из пути и проверяет, что текущий пользователь имеет к нему доступ.
func customerParam(r *http.Request) (int64, error) {
	id, err := pathID(r, "customerId")
	if err != nil {
		return 0, err
	}
	if !canSeeCustomer(r, id) {
		return 0, errForbidden
	}
	return id, nil
}

func (h *Handler) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerParam(r)
	if err != nil {
		h.writeError(w, r, "customer purchase history", err)
		return
	}

	list, err := h.services.History.ByCustomer(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, "customer purchase history", err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponses(list))
}

func (h *Handler) PageCustomerHistory(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerParam(r)
	if err != nil {
		h.writeError(w, r, "page customer purchase history", err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, "page customer purchase history", err)
		return
	}

	res, err := h.services.History.PageByCustomer(r.Context(), customerID, page)
	if err != nil {
		h.writeError(w, r, "page customer purchase history", err)
		return
	}

	writeJSON(w, http.StatusOK, model.MapPage(res, toHistoryResponse))
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get purchase history", err)
		return
	}

	rec, err := h.services.History.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get purchase history", err)
		return
	}
	if !canSeeCustomer(r, rec.CustomerID) {
		h.writeError(w, r, "get purchase history", errForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponse(*rec))
}

func (h *Handler) HistoryByOrderNumber(w http.ResponseWriter, r *http.Request) {
	rec, err := h.services.History.ByOrderNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeError(w, r, "purchase history by order", err)
		return
	}
	if !canSeeCustomer(r, rec.CustomerID) {
		h.writeError(w, r, "purchase history by order", errForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponse(*rec))
}

type purchaseCountResponse struct {
	CustomerID int64 `json:"customerId"`
	Count      int64 `json:"count"`
}

type totalSpentResponse struct {
	CustomerID int64   `json:"customerId"`
	TotalSpent float64 `json:"totalSpent"`
}

func (h *Handler) CustomerPurchaseCount(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerParam(r)
	if err != nil {
		h.writeError(w, r, "customer purchase count", err)
		return
	}

	st, err := h.services.History.Stats(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, "customer purchase count", err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseCountResponse{CustomerID: st.CustomerID, Count: st.PurchaseCount})
}

func (h *Handler) CustomerTotalSpent(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerParam(r)
	if err != nil {
		h.writeError(w, r, "customer total spent", err)
		return
	}

	st, err := h.services.History.Stats(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, "customer total spent", err)
		return
	}

	writeJSON(w, http.StatusOK, totalSpentResponse{
		CustomerID: st.CustomerID,
		TotalSpent: model.CentsToFloat(st.TotalSpentCents),
	})
}

// HistoryDateRange возвращает покупки всех клиентов за период; для клиента — только его собственные.
func (h *Handler) HistoryDateRange(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var customerID *int64
	if !claims.Role.IsStaff() {
		customerID = &claims.UserID
	}
	h.historyRange(w, r, customerID)
}

func (h *Handler) CustomerHistoryDateRange(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerParam(r)
	if err != nil {
		h.writeError(w, r, "customer purchase history by date", err)
		return
	}
	h.historyRange(w, r, &customerID)
}

func (h *Handler) historyRange(w http.ResponseWriter, r *http.Request, customerID *int64) {
	from, to, err := dateRange(r)
	if err != nil {
		h.writeError(w, r, "purchase history by date", err)
		return
	}

	list, err := h.services.History.DateRange(r.Context(), from, to, customerID)
	if err != nil {
		h.writeError(w, r, "purchase history by date", err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryResponses(list))
}

// dateRange читает обязательные startDate и endDate.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	errs := validation.FieldErrors{}
	from := requiredDate(r, "startDate", errs)
	to := requiredDate(r, "endDate", errs)

	if len(errs) > 0 {
		return time.Time{}, time.Time{}, errs
	}
	return from, to, nil
}

func requiredDate(r *http.Request, name string, errs validation.FieldErrors) time.Time {
	if r.URL.Query().Get(name) == "" {
		errs[name] = "is required"
		return time.Time{}
	}
	t, err := queryDate(r, name)
	if err != nil {
		errs[name] = "must be a date in format YYYY-MM-DD"
		return time.Time{}
	}
	return *t
}
