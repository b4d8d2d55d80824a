package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

type promotionRequest struct {
	Name                  string    `json:"name" validate:"notblank,max=100"`
	Description           string    `json:"description" validate:"max=1000"`
	PromoType             string    `json:"promoType" validate:"omitempty,oneof=PERCENTAGE_DISCOUNT FIXED_AMOUNT_DISCOUNT BUY_ONE_GET_ONE SEASONAL_SPECIAL LOYALTY_REWARD WELCOME_BACK_SCHOOL HAPPY_HOUR STUDENT_DISCOUNT EMPLOYEE_DISCOUNT"`
	DiscountPercentage    *float64  `json:"discountPercentage" validate:"omitempty,gt=0,lte=100"`
	DiscountAmount        *float64  `json:"discountAmount" validate:"omitempty,gt=0"`
	StartDate             time.Time `json:"startDate" validate:"required"`
	EndDate               time.Time `json:"endDate" validate:"required"`
	IsActive              *bool     `json:"isActive"`
	UsageLimit            *int      `json:"usageLimit" validate:"omitempty,gt=0"`
	MinimumOrderAmount    *float64  `json:"minimumOrderAmount" validate:"omitempty,gte=0"`
	MaximumDiscountAmount *float64  `json:"maximumDiscountAmount" validate:"omitempty,gt=0"`
	PromoCode             *string   `json:"promoCode" validate:"omitempty,max=50"`
	ApplicableTo          string    `json:"applicableTo" validate:"omitempty,oneof=ALL_ITEMS SPECIFIC_ITEMS CATEGORY_BASED MINIMUM_ORDER"`
	MenuItemIDs           []int64   `json:"menuItemIds" validate:"dive,gt=0"`
}

func (req *promotionRequest) toModel() *model.Promotion {
	p := &model.Promotion{
		Name:                       req.Name,
		Description:                req.Description,
		DiscountAmountCents:        floatCents(req.DiscountAmount),
		StartDate:                  req.StartDate,
		EndDate:                    req.EndDate,
		IsActive:                   true,
		UsageLimit:                 req.UsageLimit,
		MinimumOrderAmountCents:    floatCents(req.MinimumOrderAmount),
		MaximumDiscountAmountCents: floatCents(req.MaximumDiscountAmount),
		PromoCode:                  req.PromoCode,
		ApplicableTo:               model.ApplicableTo(req.ApplicableTo),
		MenuItemIDs:                req.MenuItemIDs,
	}
	if req.PromoType != "" {
		pt := model.PromoType(req.PromoType)
		p.PromoType = &pt
	}
	if req.DiscountPercentage != nil {
		bp := model.PercentToBasisPoints(*req.DiscountPercentage)
		p.DiscountPercentageBP = &bp
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create promotion", err)
		return
	}

	p, err := h.services.Promotions.Create(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, r, "create promotion", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPromotionResponse(*p))
}

// ListPromotions возвращает все акции; с active=true только действующие сейчас.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		h.writeError(w, r, "list promotions", err)
		return
	}

	list, err := h.services.Promotions.List(r.Context(), active != nil && *active)
	if err != nil {
		h.writeError(w, r, "list promotions", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponses(list))
}

// ActivePromotions — публичный список действующих акций.
func (h *Handler) ActivePromotions(w http.ResponseWriter, r *http.Request) {
	list, err := h.services.Promotions.List(r.Context(), true)
	if err != nil {
		h.writeError(w, r, "list active promotions", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponses(list))
}

func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "get promotion", err)
		return
	}

	p, err := h.services.Promotions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get promotion", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(*p))
}

func (h *Handler) GetPromotionByCode(w http.ResponseWriter, r *http.Request) {
	p, err := h.services.Promotions.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, "get promotion by code", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(*p))
}

func (h *Handler) ActivatePromotion(w http.ResponseWriter, r *http.Request) {
	h.setPromotionActive(w, r, true)
}

func (h *Handler) DeactivatePromotion(w http.ResponseWriter, r *http.Request) {
	h.setPromotionActive(w, r, false)
}

func (h *Handler) setPromotionActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "set promotion active", err)
		return
	}

	p, err := h.services.Promotions.SetActive(r.Context(), id, active)
	if err != nil {
		h.writeError(w, r, "set promotion active", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(*p))
}

type linkMenuItemsRequest struct {
	MenuItemIDs []int64 `json:"menuItemIds" validate:"min=1,dive,gt=0"`
}

// LinkPromotionMenuItems привязывает позиции меню к акции.
func (h *Handler) LinkPromotionMenuItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "link promotion items", err)
		return
	}

	var req linkMenuItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, "link promotion items", err)
		return
	}

	p, err := h.services.Promotions.LinkMenuItems(r.Context(), id, req.MenuItemIDs)
	if err != nil {
		h.writeError(w, r, "link promotion items", err)
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(*p))
}

// QuotePromotion считает скидку акции для суммы из параметра amount.
func (h *Handler) QuotePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, "quote promotion", err)
		return
	}

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil {
		h.writeError(w, r, "quote promotion", validation.Field("amount", "must be a number"))
		return
	}

	q, err := h.services.Promotions.Quote(r.Context(), id, model.FloatToCents(amount))
	if err != nil {
		h.writeError(w, r, "quote promotion", err)
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		PromotionID: q.PromotionID,
		Amount:      model.CentsToFloat(q.AmountCents),
		Discount:    model.CentsToFloat(q.DiscountCents),
		FinalAmount: model.CentsToFloat(q.FinalCents),
		Usable:      q.Usable,
	})
}
