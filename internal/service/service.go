// Package service реализует бизнес-логику сервиса кофейни: учётные записи,
// персонал, меню, акции, заказы, историю покупок и учёт рабочего времени.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/coffeeshop-system/internal/model"
	"github.com/mmeshcher/coffeeshop-system/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials возвращается при неизвестном email или неверном пароле.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountInactive возвращается при входе в деактивированную учётную запись.
	ErrAccountInactive = errors.New("account is deactivated")
	// ErrInvalidTransition возвращается при недопустимой смене статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrItemUnavailable возвращается, если позиция заказа не существует или её нет в наличии.
	ErrItemUnavailable = errors.New("menu item is unavailable")
	// ErrPromoNotApplicable возвращается, если промокод нельзя применить к заказу.
	ErrPromoNotApplicable = errors.New("promotion is not applicable")
	// ErrOrderLocked возвращается при попытке изменить заказ в неподходящем статусе.
	ErrOrderLocked = errors.New("order can no longer be modified")
)

// TokenIssuer выпускает токены доступа для учётных записей.
type TokenIssuer interface {
	IssueToken(u *model.User) (string, time.Time, error)
}

// EventPublisher публикует доменные события заказов.
type EventPublisher interface {
	OrderCreated(ctx context.Context, o *model.Order) error
	OrderStatusChanged(ctx context.Context, o *model.Order, prev model.OrderStatus) error
}

// clock подменяется в тестах.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

const (
	defaultListLimit = 3
	maxListLimit     = 50
)

// clampLimit приводит limit к диапазону [1, maxListLimit], 0 и меньше заменяются на def.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkSort проверяет поле сортировки по списку допустимых.
func checkSort(page *model.PageRequest, allowed func(string) bool, fallback string) error {
	*page = page.Normalize()
	if page.SortBy == "" {
		page.SortBy = fallback
		return nil
	}
	if !allowed(page.SortBy) {
		return validation.Field("sortBy", fmt.Sprintf("unsupported sort field %q", page.SortBy))
	}
	return nil
}

// checkRange проверяет, что начало периода не позже конца.
func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return validation.Field("startDate", "must not be after endDate")
	}
	return nil
}

// hashPassword хеширует пароль. Слишком длинный для bcrypt пароль
// возвращается как ошибка валидации поля password.
func hashPassword(password string, cost int) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, validation.Field("password", fmt.Sprintf("must be at most %d bytes", validation.MaxPasswordBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
