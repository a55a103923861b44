package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-market/internal/pkg/apperror"
)

// MoneyScale количество знаков после запятой у денежных сумм.
const MoneyScale = 2

// NewMoney проверяет сумму и приводит её к двум знакам.
func NewMoney(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма должна содержать не более двух знаков после запятой")
	}
	return amount.Round(MoneyScale), nil
}

// NewPositiveMoney как NewMoney, но ноль тоже запрещён.
func NewPositiveMoney(amount decimal.Decimal) (decimal.Decimal, error) {
	m, err := NewMoney(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !m.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма должна быть больше нуля")
	}
	return m, nil
}

// RoundRating округляет средний рейтинг до одного знака.
func RoundRating(avg decimal.Decimal) decimal.Decimal {
	return avg.Round(1)
}
