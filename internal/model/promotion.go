package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PromoType описывает вид акции.
type PromoType string

const (
	PromoPercentageDiscount  PromoType = "PERCENTAGE_DISCOUNT"
	PromoFixedAmountDiscount PromoType = "FIXED_AMOUNT_DISCOUNT"
	PromoBuyOneGetOne        PromoType = "BUY_ONE_GET_ONE"
	PromoSeasonalSpecial     PromoType = "SEASONAL_SPECIAL"
	PromoLoyaltyReward       PromoType = "LOYALTY_REWARD"
	PromoWelcomeBackSchool   PromoType = "WELCOME_BACK_SCHOOL"
	PromoHappyHour           PromoType = "HAPPY_HOUR"
	PromoStudentDiscount     PromoType = "STUDENT_DISCOUNT"
	PromoEmployeeDiscount    PromoType = "EMPLOYEE_DISCOUNT"
)

// ParsePromoType разбирает вид акции без учёта регистра.
func ParsePromoType(s string) (PromoType, bool) {
	t := PromoType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case PromoPercentageDiscount, PromoFixedAmountDiscount, PromoBuyOneGetOne,
		PromoSeasonalSpecial, PromoLoyaltyReward, PromoWelcomeBackSchool,
		PromoHappyHour, PromoStudentDiscount, PromoEmployeeDiscount:
		return t, true
	}
	return "", false
}

// ApplicableTo описывает, к какой части заказа применяется акция.
type ApplicableTo string

const (
	ApplicableAllItems      ApplicableTo = "ALL_ITEMS"
	ApplicableSpecificItems ApplicableTo = "SPECIFIC_ITEMS"
	ApplicableCategoryBased ApplicableTo = "CATEGORY_BASED"
	ApplicableMinimumOrder  ApplicableTo = "MINIMUM_ORDER"
)

// ParseApplicableTo разбирает область применения без учёта регистра.
func ParseApplicableTo(s string) (ApplicableTo, bool) {
	a := ApplicableTo(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ApplicableAllItems, ApplicableSpecificItems, ApplicableCategoryBased, ApplicableMinimumOrder:
		return a, true
	}
	return "", false
}

// Promotion описывает правило скидки. Ровно одно из DiscountPercentageBP и
// DiscountAmountCents задано.
type Promotion struct {
	ID                         int64
	Name                       string
	Description                string
	PromoType                  *PromoType
	DiscountPercentageBP       *int64
	DiscountAmountCents        *int64
	StartDate                  time.Time
	EndDate                    time.Time
	IsActive                   bool
	UsageLimit                 *int
	CurrentUsage               int
	MinimumOrderAmountCents    *int64
	MaximumDiscountAmountCents *int64
	PromoCode                  *string
	ApplicableTo               ApplicableTo
	MenuItemIDs                []int64
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// IsUsable сообщает, можно ли применить акцию в момент now.
func (p *Promotion) IsUsable(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	return !p.Exhausted()
}

// Exhausted сообщает, достигнут ли лимит использований акции.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit != nil && p.CurrentUsage >= *p.UsageLimit
}

// CalculateDiscount возвращает скидку в центах для суммы заказа amountCents.
func (p *Promotion) CalculateDiscount(amountCents int64, now time.Time) int64 {
	if amountCents <= 0 || !p.IsUsable(now) {
		return 0
	}
	if p.MinimumOrderAmountCents != nil && amountCents < *p.MinimumOrderAmountCents {
		return 0
	}

	amount := decimal.New(amountCents, 0)
	discount := decimal.Zero

	switch {
	case p.DiscountPercentageBP != nil:
		discount = amount.Mul(decimal.New(*p.DiscountPercentageBP, -4))
	case p.DiscountAmountCents != nil:
		discount = decimal.New(*p.DiscountAmountCents, 0)
	}

	if p.MaximumDiscountAmountCents != nil {
		discount = decimal.Min(discount, decimal.New(*p.MaximumDiscountAmountCents, 0))
	}
	discount = decimal.Min(discount, amount)

	if discount.IsNegative() {
		return 0
	}
	return discount.Round(0).IntPart()
}

// EligibleAmount возвращает часть суммы позиций, на которую распространяется акция.
// Для SPECIFIC_ITEMS учитываются только привязанные к акции позиции меню.
func (p *Promotion) EligibleAmount(items []OrderItem) int64 {
	if p.ApplicableTo != ApplicableSpecificItems {
		var total int64
		for _, it := range items {
			total += it.SubtotalCents
		}
		return total
	}

	linked := make(map[int64]struct{}, len(p.MenuItemIDs))
	for _, id := range p.MenuItemIDs {
		linked[id] = struct{}{}
	}

	var total int64
	for _, it := range items {
		if _, ok := linked[it.MenuItemID]; ok {
			total += it.SubtotalCents
		}
	}
	return total
}
