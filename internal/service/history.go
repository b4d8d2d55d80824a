package service

import (
	"context"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
)

// HistoryRepository описывает доступ к истории покупок.
type HistoryRepository interface {
	ListPurchaseHistory(ctx context.Context, f repository.HistoryFilter) ([]model.PurchaseHistory, error)
	PagePurchaseHistory(ctx context.Context, f repository.HistoryFilter, page model.PageRequest) (model.Page[model.PurchaseHistory], error)
	GetPurchaseHistory(ctx context.Context, id int64) (*model.PurchaseHistory, error)
	GetPurchaseHistoryByOrderNumber(ctx context.Context, number string) (*model.PurchaseHistory, error)
	CustomerPurchaseStats(ctx context.Context, customerID int64) (int64, int64, error)
}

// CustomerStats — сводка покупок клиента.
type CustomerStats struct {
	CustomerID      int64
	PurchaseCount   int64
	TotalSpentCents int64
}

// HistoryService предоставляет историю покупок клиентов.
type HistoryService struct {
	repo HistoryRepository
}

// NewHistoryService создаёт сервис истории покупок.
func NewHistoryService(repo HistoryRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

// List возвращает всю историю покупок.
func (s *HistoryService) List(ctx context.Context) ([]model.PurchaseHistory, error) {
	return s.repo.ListPurchaseHistory(ctx, repository.HistoryFilter{})
}

// ByCustomer возвращает историю покупок клиента.
func (s *HistoryService) ByCustomer(ctx context.Context, customerID int64) ([]model.PurchaseHistory, error) {
	return s.repo.ListPurchaseHistory(ctx, repository.HistoryFilter{CustomerID: &customerID})
}

// PageByCustomer возвращает страницу истории покупок клиента.
func (s *HistoryService) PageByCustomer(ctx context.Context, customerID int64, page model.PageRequest) (model.Page[model.PurchaseHistory], error) {
	return s.repo.PagePurchaseHistory(ctx, repository.HistoryFilter{CustomerID: &customerID}, page.Normalize())
}

// Get возвращает запись истории по идентификатору.
func (s *HistoryService) Get(ctx context.Context, id int64) (*model.PurchaseHistory, error) {
	return s.repo.GetPurchaseHistory(ctx, id)
}

// ByOrderNumber возвращает запись истории по номеру заказа.
func (s *HistoryService) ByOrderNumber(ctx context.Context, number string) (*model.PurchaseHistory, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if !validation.IsValidOrderNumber(number) {
		return nil, validation.Field("orderNumber", "is not a valid order number")
	}
	return s.repo.GetPurchaseHistoryByOrderNumber(ctx, number)
}

// Stats возвращает число покупок клиента и потраченную сумму.
func (s *HistoryService) Stats(ctx context.Context, customerID int64) (*CustomerStats, error) {
	count, spent, err := s.repo.CustomerPurchaseStats(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &CustomerStats{CustomerID: customerID, PurchaseCount: count, TotalSpentCents: spent}, nil
}

// DateRange возвращает покупки за период дат [from, to] включительно,
// при заданном customerID только этого клиента.
func (s *HistoryService) DateRange(ctx context.Context, from, to time.Time, customerID *int64) ([]model.PurchaseHistory, error) {
	start, end := dayBounds(from, to)
	if err := checkRange(&start, &end); err != nil {
		return nil, err
	}
	return s.repo.ListPurchaseHistory(ctx, repository.HistoryFilter{
		CustomerID: customerID,
		From:       &start,
		To:         &end,
	})
}

// dayBounds расширяет период до начала дня from и конца дня to.
func dayBounds(from, to time.Time) (time.Time, time.Time) {
	y, m, d := from.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	y, m, d = to.Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
