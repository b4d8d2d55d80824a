package service

import (
	"context"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

const (
	defaultRecommendations = 6
	defaultFavorites       = 3
	defaultPromotional     = 3
)

// MenuRepository описывает доступ к меню.
type MenuRepository interface {
	CreateMenuItem(ctx context.Context, m *model.MenuItem) error
	GetMenuItem(ctx context.Context, id int64) (*model.MenuItem, error)
	UpdateMenuItem(ctx context.Context, m *model.MenuItem) error
	SetMenuItemStock(ctx context.Context, id int64, inStock bool) (*model.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	ListMenuItems(ctx context.Context, f model.MenuFilter) ([]model.MenuItem, error)
	PageMenuItems(ctx context.Context, f model.MenuFilter, page model.PageRequest) (model.Page[model.MenuItem], error)
	TopMenuItems(ctx context.Context, rank repository.MenuRanking, limit int) ([]model.MenuItem, error)
	PromotionalMenuItems(ctx context.Context, now time.Time, limit int) ([]model.MenuItem, error)
}

// MenuService управляет позициями меню.
type MenuService struct {
	repo  MenuRepository
	clock clock
}

// NewMenuService создаёт сервис меню.
func NewMenuService(repo MenuRepository) *MenuService {
	return &MenuService{repo: repo}
}

// Page возвращает страницу меню. sortBy проверяется по списку допустимых полей.
func (s *MenuService) Page(ctx context.Context, f model.MenuFilter, page model.PageRequest) (model.Page[model.MenuItem], error) {
	if err := checkSort(&page, repository.SortableMenuField, "name"); err != nil {
		return model.Page[model.MenuItem]{}, err
	}
	return s.repo.PageMenuItems(ctx, f, page)
}

// Get возвращает позицию меню.
func (s *MenuService) Get(ctx context.Context, id int64) (*model.MenuItem, error) {
	return s.repo.GetMenuItem(ctx, id)
}

// Create добавляет позицию меню.
func (s *MenuService) Create(ctx context.Context, m *model.MenuItem) (*model.MenuItem, error) {
	normalizeMenuItem(m)
	if err := checkMenuItem(m); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMenuItem(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update полностью заменяет редактируемые поля позиции id. Счётчики покупок и отзывов не меняются.
func (s *MenuService) Update(ctx context.Context, id int64, m *model.MenuItem) (*model.MenuItem, error) {
	normalizeMenuItem(m)
	if err := checkMenuItem(m); err != nil {
		return nil, err
	}

	current, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Name = m.Name
	current.Description = m.Description
	current.PriceCents = m.PriceCents
	current.OriginalPriceCents = m.OriginalPriceCents
	current.Type = m.Type
	current.Image = m.Image
	current.Rating = m.Rating
	current.Tags = m.Tags
	current.InStock = m.InStock
	current.IsOnSale = m.IsOnSale
	current.IsCombo = m.IsCombo

	if err := s.repo.UpdateMenuItem(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SetStock меняет наличие позиции.
func (s *MenuService) SetStock(ctx context.Context, id int64, inStock bool) (*model.MenuItem, error) {
	return s.repo.SetMenuItemStock(ctx, id, inStock)
}

// Discontinue снимает позицию с продажи, запись остаётся для истории заказов.
func (s *MenuService) Discontinue(ctx context.Context, id int64) (*model.MenuItem, error) {
	return s.repo.SetMenuItemStock(ctx, id, false)
}

// Delete удаляет позицию меню.
func (s *MenuService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteMenuItem(ctx, id)
}

// ByType возвращает позиции категории.
func (s *MenuService) ByType(ctx context.Context, t model.ItemType) ([]model.MenuItem, error) {
	return s.repo.ListMenuItems(ctx, model.MenuFilter{Type: &t})
}

// OnSale возвращает позиции со скидкой.
func (s *MenuService) OnSale(ctx context.Context) ([]model.MenuItem, error) {
	yes := true
	return s.repo.ListMenuItems(ctx, model.MenuFilter{IsOnSale: &yes})
}

// Combos возвращает комбо-наборы.
func (s *MenuService) Combos(ctx context.Context) ([]model.MenuItem, error) {
	yes := true
	return s.repo.ListMenuItems(ctx, model.MenuFilter{IsCombo: &yes})
}

// TopBought возвращает самые покупаемые позиции.
func (s *MenuService) TopBought(ctx context.Context, limit int) ([]model.MenuItem, error) {
	return s.repo.TopMenuItems(ctx, repository.RankByBuys, clampLimit(limit, defaultRecommendations))
}

// TopRated возвращает позиции с самым высоким рейтингом.
func (s *MenuService) TopRated(ctx context.Context, limit int) ([]model.MenuItem, error) {
	return s.repo.TopMenuItems(ctx, repository.RankByRating, clampLimit(limit, defaultFavorites))
}

// Promotional возвращает позиции со скидкой или действующей акцией.
func (s *MenuService) Promotional(ctx context.Context, limit int) ([]model.MenuItem, error) {
	return s.repo.PromotionalMenuItems(ctx, s.clock.now(), clampLimit(limit, defaultPromotional))
}

func normalizeMenuItem(m *model.MenuItem) {
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	m.Image = strings.TrimSpace(m.Image)
	m.Tags = strings.TrimSpace(m.Tags)
	if m.Type == model.ItemCombo {
		m.IsCombo = true
	}
}

func checkMenuItem(m *model.MenuItem) error {
	errs := validation.FieldErrors{}
	if m.PriceCents <= 0 {
		errs["price"] = "must be greater than 0"
	}
	if m.Rating < 0 || m.Rating > 5 {
		errs["rating"] = "must be between 0 and 5"
	}
	if m.OriginalPriceCents != nil && *m.OriginalPriceCents <= 0 {
		errs["originalPrice"] = "must be greater than 0"
	}
	if m.IsOnSale && m.OriginalPriceCents == nil {
		errs["originalPrice"] = "is required for items on sale"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
