package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in a specific currency. The amount is quantized
// to the currency's precision at construction, so no Money value ever carries
// more precision than its currency allows.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney builds a Money value, quantizing the amount to the currency's
// precision with half-even rounding. Negative amounts are rejected.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if amount.IsNegative() {
		return Money{}, &NegativeAmountError{Amount: amount}
	}
	return Money{Amount: currency.Quantize(amount), Currency: currency}, nil
}

// NewMoneyFromString parses the amount and builds a Money value.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoney(parsed, currency)
}

// Equal reports whether two Money values have the same currency and the same
// quantized amount.
func (m Money) Equal(other Money) bool {
	return m.Currency.Code == other.Currency.Code && m.Amount.Equal(other.Amount)
}

// Add returns the sum of two Money values of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency.Code != other.Currency.Code {
		return Money{}, fmt.Errorf(
			"cannot add different currencies: %s + %s",
			m.Currency.Code, other.Currency.Code,
		)
	}
	return NewMoney(m.Amount.Add(other.Amount), m.Currency)
}

// Sub returns the difference of two Money values of the same currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency.Code != other.Currency.Code {
		return Money{}, fmt.Errorf(
			"cannot subtract different currencies: %s - %s",
			m.Currency.Code, other.Currency.Code,
		)
	}
	return NewMoney(m.Amount.Sub(other.Amount), m.Currency)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String formats the amount with the currency symbol and the currency's full
// decimal precision, e.g. "$101.00" or "0.00123456 BTC".
func (m Money) String() string {
	fixed := m.Amount.StringFixed(m.Currency.Decimals)
	if m.Currency.Symbol != "" {
		return m.Currency.Symbol + fixed
	}
	return fixed + " " + m.Currency.Code
}
