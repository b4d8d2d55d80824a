package model

import (
	"strings"
	"time"
)

// ItemType описывает категорию позиции меню.
type ItemType string

const (
	ItemCoffee     ItemType = "COFFEE"
	ItemPastries   ItemType = "PASTRIES"
	ItemDrinks     ItemType = "DRINKS"
	ItemBundles    ItemType = "BUNDLES"
	ItemVegetarian ItemType = "VEGETARIAN"
	ItemInstant    ItemType = "INSTANT"
	ItemCombo      ItemType = "COMBO"
)

// ParseItemType разбирает категорию без учёта регистра.
func ParseItemType(s string) (ItemType, bool) {
	t := ItemType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ItemCoffee, ItemPastries, ItemDrinks, ItemBundles, ItemVegetarian, ItemInstant, ItemCombo:
		return t, true
	}
	return "", false
}

// MenuItem представляет позицию меню.
type MenuItem struct {
	ID                     int64
	Name                   string
	Description            string
	PriceCents             int64
	OriginalPriceCents     *int64
	Type                   ItemType
	Image                  string
	Rating                 float64
	ReviewsCount           int
	WeeklyReviews          int
	MonthlyReviews         int
	WeeklyBuys             int
	MonthlyBuys            int
	PositiveReviewsWeekly  int
	PositiveReviewsMonthly int
	Tags                   string
	InStock                bool
	IsOnSale               bool
	IsCombo                bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// OnSale сообщает, продаётся ли позиция со скидкой относительно исходной цены.
func (m *MenuItem) OnSale() bool {
	return m.IsOnSale && m.OriginalPriceCents != nil
}

// MenuFilter задаёт необязательные фильтры списка меню. nil означает «без фильтра».
type MenuFilter struct {
	Type      *ItemType
	PromoType *PromoType
	InStock   *bool
	IsOnSale  *bool
	IsCombo   *bool
}
