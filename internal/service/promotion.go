package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

// maxPercentageBP — 100% в базисных пунктах.
const maxPercentageBP = 10000

// PromotionRepository описывает доступ к акциям.
type PromotionRepository interface {
	CreatePromotion(ctx context.Context, p *model.Promotion) error
	GetPromotion(ctx context.Context, id int64) (*model.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	ListUsablePromotions(ctx context.Context, now time.Time) ([]model.Promotion, error)
	SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error)
	LinkMenuItems(ctx context.Context, promoID int64, menuItemIDs []int64) (*model.Promotion, error)
}

// DiscountQuote — расчёт скидки по акции для суммы заказа.
type DiscountQuote struct {
	PromotionID   int64
	AmountCents   int64
	DiscountCents int64
	FinalCents    int64
	Usable        bool
}

// PromotionService управляет акциями.
type PromotionService struct {
	repo  PromotionRepository
	clock clock
}

// NewPromotionService создаёт сервис акций.
func NewPromotionService(repo PromotionRepository) *PromotionService {
	return &PromotionService{repo: repo}
}

// Create создаёт акцию. Должен быть задан ровно один вид скидки, окончание позже начала.
func (s *PromotionService) Create(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.PromoCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*p.PromoCode))
		if code == "" {
			p.PromoCode = nil
		} else {
			p.PromoCode = &code
		}
	}
	if p.ApplicableTo == "" {
		p.ApplicableTo = model.ApplicableAllItems
	}
	p.MenuItemIDs = uniqueIDs(p.MenuItemIDs)

	if err := checkPromotion(p); err != nil {
		return nil, err
	}

	if err := s.repo.CreatePromotion(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func checkPromotion(p *model.Promotion) error {
	errs := validation.FieldErrors{}

	switch {
	case p.DiscountPercentageBP == nil && p.DiscountAmountCents == nil:
		errs["discountPercentage"] = "either discountPercentage or discountAmount is required"
	case p.DiscountPercentageBP != nil && p.DiscountAmountCents != nil:
		errs["discountPercentage"] = "only one of discountPercentage and discountAmount may be set"
	case p.DiscountPercentageBP != nil && (*p.DiscountPercentageBP <= 0 || *p.DiscountPercentageBP > maxPercentageBP):
		errs["discountPercentage"] = "must be greater than 0 and at most 100"
	case p.DiscountAmountCents != nil && *p.DiscountAmountCents <= 0:
		errs["discountAmount"] = "must be greater than 0"
	}

	if !p.EndDate.After(p.StartDate) {
		errs["endDate"] = "must be after startDate"
	}
	if p.UsageLimit != nil && *p.UsageLimit <= 0 {
		errs["usageLimit"] = "must be greater than 0"
	}
	if p.MinimumOrderAmountCents != nil && *p.MinimumOrderAmountCents < 0 {
		errs["minimumOrderAmount"] = "must not be negative"
	}
	if p.MaximumDiscountAmountCents != nil && *p.MaximumDiscountAmountCents <= 0 {
		errs["maximumDiscountAmount"] = "must be greater than 0"
	}
	if p.ApplicableTo == model.ApplicableMinimumOrder && p.MinimumOrderAmountCents == nil {
		errs["minimumOrderAmount"] = "is required for MINIMUM_ORDER promotions"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// List возвращает все акции или, при activeOnly, только действующие сейчас.
func (s *PromotionService) List(ctx context.Context, activeOnly bool) ([]model.Promotion, error) {
	if activeOnly {
		return s.repo.ListUsablePromotions(ctx, s.clock.now())
	}
	return s.repo.ListPromotions(ctx)
}

// Get возвращает акцию по идентификатору.
func (s *PromotionService) Get(ctx context.Context, id int64) (*model.Promotion, error) {
	return s.repo.GetPromotion(ctx, id)
}

// GetByCode возвращает акцию по промокоду.
func (s *PromotionService) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	return s.repo.GetPromotionByCode(ctx, strings.TrimSpace(code))
}

// SetActive включает или выключает акцию.
func (s *PromotionService) SetActive(ctx context.Context, id int64, active bool) (*model.Promotion, error) {
	return s.repo.SetPromotionActive(ctx, id, active)
}

// LinkMenuItems привязывает позиции меню к акции.
func (s *PromotionService) LinkMenuItems(ctx context.Context, id int64, menuItemIDs []int64) (*model.Promotion, error) {
	ids := uniqueIDs(menuItemIDs)
	if len(ids) == 0 {
		return nil, validation.Field("menuItemIds", "must contain at least 1 element(s)")
	}
	return s.repo.LinkMenuItems(ctx, id, ids)
}

// Quote рассчитывает скидку акции id для суммы amountCents на текущий момент.
func (s *PromotionService) Quote(ctx context.Context, id int64, amountCents int64) (*DiscountQuote, error) {
	if amountCents <= 0 {
		return nil, validation.Field("amount", "must be greater than 0")
	}

	p, err := s.repo.GetPromotion(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	discount := p.CalculateDiscount(amountCents, now)
	return &DiscountQuote{
		PromotionID:   p.ID,
		AmountCents:   amountCents,
		DiscountCents: discount,
		FinalCents:    amountCents - discount,
		Usable:        p.IsUsable(now),
	}, nil
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
