package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
)

// ListCustomers возвращает клиентов, при необходимости только активных или неактивных.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		h.writeError(w, r, "list customers", err)
		return
	}

	users, err := h.services.Accounts.ListCustomers(r.Context(), active)
	if err != nil {
		h.writeError(w, r, "list customers", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponses(users))
}

// PageCustomers возвращает страницу клиентов.
func (h *Handler) PageCustomers(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		h.writeError(w, r, "page customers", err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, "page customers", err)
		return
	}

	res, err := h.services.Accounts.PageCustomers(r.Context(), active, page)
	if err != nil {
		h.writeError(w, r, "page customers", err)
		return
	}

	writeJSON(w, http.StatusOK, model.MapPage(res, toUserResponse))
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get customer", err)
		return
	}

	u, err := h.services.Accounts.GetCustomer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get customer", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

func (h *Handler) GetCustomerByEmail(w http.ResponseWriter, r *http.Request) {
	u, err := h.services.Accounts.GetCustomerByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(w, r, "get customer by email", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*u))
}

// ActivateCustomer и DeactivateCustomer переключают флаг активности клиента.
func (h *Handler) ActivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setCustomerActive(w, r, true)
}

func (h *Handler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	h.setCustomerActive(w, r, false)
}

func (h *Handler) setCustomerActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "set customer active", err)
		return
	}

	u, err := h.services.Accounts.SetCustomerActive(r.Context(), id, active)
	if err != nil {
		h.writeError(w, r, "set customer active", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(*u))
}
