package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/repository"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPromotionRepo struct {
	created *model.Promotion
	promo   *model.Promotion
	usable  bool
	linked  []int64
}

func (s *stubPromotionRepo) CreatePromotion(_ context.Context, p *model.Promotion) error {
	p.ID = 1
	s.created = p
	return nil
}

func (s *stubPromotionRepo) GetPromotion(context.Context, int64) (*model.Promotion, error) {
	if s.promo == nil {
		return nil, repository.ErrPromotionNotFound
	}
	return s.promo, nil
}

func (s *stubPromotionRepo) GetPromotionByCode(context.Context, string) (*model.Promotion, error) {
	return s.GetPromotion(context.Background(), 0)
}

func (s *stubPromotionRepo) ListPromotions(context.Context) ([]model.Promotion, error) {
	return []model.Promotion{{ID: 1}, {ID: 2}}, nil
}

func (s *stubPromotionRepo) ListUsablePromotions(context.Context, time.Time) ([]model.Promotion, error) {
	s.usable = true
	return []model.Promotion{{ID: 2}}, nil
}

func (s *stubPromotionRepo) SetPromotionActive(_ context.Context, _ int64, active bool) (*model.Promotion, error) {
	s.promo.IsActive = active
	return s.promo, nil
}

func (s *stubPromotionRepo) LinkMenuItems(_ context.Context, _ int64, ids []int64) (*model.Promotion, error) {
	s.linked = ids
	return s.promo, nil
}

func ptr[T any](v T) *T { return &v }

func TestCreatePromotion(t *testing.T) {
	repo := &stubPromotionRepo{}
	svc := NewPromotionService(repo)
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	p, err := svc.Create(context.Background(), &model.Promotion{
		Name:                 " Back to school ",
		DiscountPercentageBP: ptr(int64(1500)),
		StartDate:            start,
		EndDate:              start.AddDate(0, 1, 0),
		IsActive:             true,
		PromoCode:            ptr(" school15 "),
		MenuItemIDs:          []int64{3, 1, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, "Back to school", p.Name)
	assert.Equal(t, "SCHOOL15", *p.PromoCode)
	assert.Equal(t, model.ApplicableAllItems, p.ApplicableTo)
	assert.Equal(t, []int64{1, 3}, p.MenuItemIDs)
	assert.Same(t, p, repo.created)
}

func TestCreatePromotion_Validation(t *testing.T) {
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		promo model.Promotion
		field string
	}{
		{
			name:  "no discount",
			promo: model.Promotion{StartDate: start, EndDate: start.Add(time.Hour)},
			field: "discountPercentage",
		},
		{
			name: "both discounts",
			promo: model.Promotion{
				DiscountPercentageBP: ptr(int64(100)), DiscountAmountCents: ptr(int64(100)),
				StartDate: start, EndDate: start.Add(time.Hour),
			},
			field: "discountPercentage",
		},
		{
			name:  "over 100 percent",
			promo: model.Promotion{DiscountPercentageBP: ptr(int64(10001)), StartDate: start, EndDate: start.Add(time.Hour)},
			field: "discountPercentage",
		},
		{
			name:  "end before start",
			promo: model.Promotion{DiscountAmountCents: ptr(int64(100)), StartDate: start, EndDate: start},
			field: "endDate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewPromotionService(&stubPromotionRepo{})
			_, err := svc.Create(context.Background(), &tt.promo)

			var fields validation.FieldErrors
			if !errors.As(err, &fields) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := fields[tt.field]; !ok {
				t.Fatalf("expected error for %q, got %v", tt.field, fields)
			}
		})
	}
}

func TestListPromotions(t *testing.T) {
	repo := &stubPromotionRepo{}
	svc := NewPromotionService(repo)

	all, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.False(t, repo.usable)

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.True(t, repo.usable)
}

func TestQuote(t *testing.T) {
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	repo := &stubPromotionRepo{promo: &model.Promotion{
		ID:                         4,
		DiscountPercentageBP:       ptr(int64(2000)),
		MaximumDiscountAmountCents: ptr(int64(300)),
		StartDate:                  now.AddDate(0, 0, -1),
		EndDate:                    now.AddDate(0, 0, 1),
		IsActive:                   true,
	}}
	svc := NewPromotionService(repo)
	svc.clock = fixedClock(now)

	q, err := svc.Quote(context.Background(), 4, 2500)
	require.NoError(t, err)
	assert.True(t, q.Usable)
	assert.Equal(t, int64(300), q.DiscountCents)
	assert.Equal(t, int64(2200), q.FinalCents)

	_, err = svc.Quote(context.Background(), 4, 0)
	var fields validation.FieldErrors
	assert.ErrorAs(t, err, &fields)
}

func TestLinkMenuItems(t *testing.T) {
	repo := &stubPromotionRepo{promo: &model.Promotion{ID: 1}}
	svc := NewPromotionService(repo)

	_, err := svc.LinkMenuItems(context.Background(), 1, []int64{5, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, repo.linked)

	_, err = svc.LinkMenuItems(context.Background(), 1, nil)
	var fields validation.FieldErrors
	assert.ErrorAs(t, err, &fields)
}
