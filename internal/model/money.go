package model

import "github.com/shopspring/decimal"

// Денежные суммы хранятся в центах (int64), проценты скидок в базисных пунктах
// (1250 = 12.50%). Преобразования выполняются через decimal, чтобы не терять
// копейки на округлении float64.

// CentsToFloat переводит сумму в центах в денежные единицы для JSON-ответов.
func CentsToFloat(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// FloatToCents переводит сумму из денежных единиц в центы с округлением.
func FloatToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// PercentToBasisPoints переводит процент (12.5) в базисные пункты (1250).
func PercentToBasisPoints(percent float64) int64 {
	return decimal.NewFromFloat(percent).Shift(2).Round(0).IntPart()
}

// BasisPointsToPercent выполняет обратное преобразование.
func BasisPointsToPercent(bp int64) float64 {
	return decimal.New(bp, -2).InexactFloat64()
}

// TaxFor вычисляет налог с суммы по ставке в процентах.
func TaxFor(amountCents int64, ratePercent decimal.Decimal) int64 {
	if ratePercent.IsZero() || amountCents <= 0 {
		return 0
	}
	return decimal.New(amountCents, 0).
		Mul(ratePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
