package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

const itemTypes = "COFFEE, PASTRIES, DRINKS, BUNDLES, VEGETARIAN, INSTANT, COMBO"

type menuItemRequest struct {
	Name          string   `json:"name" validate:"notblank,max=100"`
	Description   string   `json:"description" validate:"notblank,max=1000"`
	Price         float64  `json:"price" validate:"gte=0.01,lte=999.99"`
	OriginalPrice *float64 `json:"originalPrice" validate:"omitempty,gte=0.01,lte=999.99"`
	Type          string   `json:"type" validate:"required,oneof=COFFEE PASTRIES DRINKS BUNDLES VEGETARIAN INSTANT COMBO"`
	Image         string   `json:"image" validate:"notblank,max=500"`
	Rating        float64  `json:"rating" validate:"gte=0,lte=5"`
	Tags          string   `json:"tags" validate:"max=500"`
	InStock       *bool    `json:"inStock"`
	IsOnSale      bool     `json:"isOnSale"`
	IsCombo       bool     `json:"isCombo"`
}

func (req *menuItemRequest) toModel() *model.MenuItem {
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	return &model.MenuItem{
		Name:               req.Name,
		Description:        req.Description,
		PriceCents:         model.FloatToCents(req.Price),
		OriginalPriceCents: floatCents(req.OriginalPrice),
		Type:               model.ItemType(req.Type),
		Image:              req.Image,
		Rating:             req.Rating,
		Tags:               req.Tags,
		InStock:            inStock,
		IsOnSale:           req.IsOnSale,
		IsCombo:            req.IsCombo,
	}
}

// parseMenuFilter читает фильтры списка меню. Публичный список поддерживает только тип.
func parseMenuFilter(r *http.Request, full bool) (model.MenuFilter, error) {
	var f model.MenuFilter
	q := r.URL.Query()

	if raw := q.Get("type"); raw != "" {
		t, ok := model.ParseItemType(raw)
		if !ok {
			return f, validation.Field("type", "must be one of: "+itemTypes)
		}
		f.Type = &t
	}
	if !full {
		return f, nil
	}

	if raw := q.Get("promoType"); raw != "" {
		pt, ok := model.ParsePromoType(raw)
		if !ok {
			return f, validation.Field("promoType", "is invalid")
		}
		f.PromoType = &pt
	}

	var err error
	if f.InStock, err = queryBool(r, "inStock"); err != nil {
		return f, err
	}
	if f.IsOnSale, err = queryBool(r, "isOnSale"); err != nil {
		return f, err
	}
	if f.IsCombo, err = queryBool(r, "isCombo"); err != nil {
		return f, err
	}
	return f, nil
}

// PublicMenu возвращает страницу меню с фильтром по типу.
func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	h.pageMenu(w, r, false)
}

// SecureMenu возвращает страницу меню со всеми фильтрами.
func (h *Handler) SecureMenu(w http.ResponseWriter, r *http.Request) {
	h.pageMenu(w, r, true)
}

func (h *Handler) pageMenu(w http.ResponseWriter, r *http.Request, full bool) {
	f, err := parseMenuFilter(r, full)
	if err != nil {
		h.writeError(w, r, "list menu", err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		h.writeError(w, r, "list menu", err)
		return
	}

	res, err := h.services.Menu.Page(r.Context(), f, page)
	if err != nil {
		h.writeError(w, r, "list menu", err)
		return
	}

	writeJSON(w, http.StatusOK, model.MapPage(res, toMenuItemResponse))
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get menu item", err)
		return
	}

	m, err := h.services.Menu.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(*m))
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create menu item", err)
		return
	}

	m, err := h.services.Menu.Create(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, r, "create menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(*m))
}

// UpdateMenuItem полностью заменяет редактируемые поля позиции; счётчики продаж и отзывов сохраняются.
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "update menu item", err)
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "update menu item", err)
		return
	}

	m, err := h.services.Menu.Update(r.Context(), id, req.toModel())
	if err != nil {
		h.writeError(w, r, "update menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(*m))
}

type stockRequest struct {
	InStock *bool `json:"inStock" validate:"required"`
}

func (h *Handler) SetMenuItemStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "set menu item stock", err)
		return
	}

	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "set menu item stock", err)
		return
	}

	m, err := h.services.Menu.SetStock(r.Context(), id, *req.InStock)
	if err != nil {
		h.writeError(w, r, "set menu item stock", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(*m))
}

// DiscontinueMenuItem снимает позицию с продажи, не удаляя её.
func (h *Handler) DiscontinueMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "discontinue menu item", err)
		return
	}

	m, err := h.services.Menu.Discontinue(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "discontinue menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(*m))
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "delete menu item", err)
		return
	}

	if err := h.services.Menu.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, "delete menu item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MenuByType принимает тип из пути или из параметра type.
func (h *Handler) MenuByType(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "type")
	if raw == "" {
		raw = r.URL.Query().Get("type")
	}
	t, ok := model.ParseItemType(raw)
	if !ok {
		h.writeError(w, r, "list menu by type", validation.Field("type", "must be one of: "+itemTypes))
		return
	}

	items, err := h.services.Menu.ByType(r.Context(), t)
	if err != nil {
		h.writeError(w, r, "list menu by type", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

func (h *Handler) MenuOnSale(w http.ResponseWriter, r *http.Request) {
	items, err := h.services.Menu.OnSale(r.Context())
	if err != nil {
		h.writeError(w, r, "list menu on sale", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

func (h *Handler) MenuCombos(w http.ResponseWriter, r *http.Request) {
	items, err := h.services.Menu.Combos(r.Context())
	if err != nil {
		h.writeError(w, r, "list combos", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}

// Рейтинги меню: limit ≤ 0 означает значение по умолчанию для конкретной подборки.

func (h *Handler) TopBought(w http.ResponseWriter, r *http.Request) {
	h.rankedMenu(w, r, "top bought", h.services.Menu.TopBought)
}

func (h *Handler) TopRated(w http.ResponseWriter, r *http.Request) {
	h.rankedMenu(w, r, "top rated", h.services.Menu.TopRated)
}

func (h *Handler) PromotionalMenu(w http.ResponseWriter, r *http.Request) {
	h.rankedMenu(w, r, "promotional menu", h.services.Menu.Promotional)
}

func (h *Handler) rankedMenu(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fetch func(ctx context.Context, limit int) ([]model.MenuItem, error),
) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}

	items, err := fetch(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponses(items))
}
