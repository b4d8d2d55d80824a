// Package validation содержит функции валидации входных данных.
package validation

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"
)

// OrderNumberPrefix — префикс номера заказа.
const OrderNumberPrefix = "ORD-"

// NewOrderNumber формирует номер заказа ORD-<дата><случайная часть><контрольная цифра>.
// Контрольная цифра вычисляется по алгоритму Луна.
func NewOrderNumber(now time.Time) string {
	payload := now.UTC().Format("060102") + fmt.Sprintf("%06d", rand.IntN(1_000_000))
	return OrderNumberPrefix + payload + string(rune('0'+luhnCheckDigit(payload)))
}

// IsValidOrderNumber проверяет формат номера заказа и его контрольную цифру.
func IsValidOrderNumber(number string) bool {
	digits, ok := strings.CutPrefix(number, OrderNumberPrefix)
	if !ok || len(digits) < 2 {
		return false
	}
	return isValidLuhn(digits)
}

// isValidLuhn проверяет строку цифр по алгоритму Луна.
func isValidLuhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// luhnCheckDigit возвращает цифру, которую нужно дописать к payload,
// чтобы строка прошла проверку Луна.
func luhnCheckDigit(payload string) int {
	sum := 0
	double := true

	for i := len(payload) - 1; i >= 0; i-- {
		digit := int(payload[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return (10 - sum%10) % 10
}
