package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate expresses 1 unit of the base currency in quote currency units,
// e.g. EUR/USD = 1.08 means 1 EUR = 1.08 USD. Rates derived by inverting a
// stored rate carry an "(inverse)" source tag and are not independently
// authoritative.
type ExchangeRate struct {
	RateID        string           `json:"rate_id"`
	BaseCurrency  string           `json:"base_currency"`
	QuoteCurrency string           `json:"quote_currency"`
	Rate          decimal.Decimal  `json:"rate"`
	Timestamp     time.Time        `json:"timestamp"`
	Source        string           `json:"source"`
	Bid           *decimal.Decimal `json:"bid,omitempty"`
	Ask           *decimal.Decimal `json:"ask,omitempty"`
}

// Pair returns the currency pair notation, e.g. "EUR/USD".
func (r *ExchangeRate) Pair() string {
	return fmt.Sprintf("%s/%s", r.BaseCurrency, r.QuoteCurrency)
}

// InverseRate returns 1/rate.
func (r *ExchangeRate) InverseRate() decimal.Decimal {
	return decimal.NewFromInt(1).Div(r.Rate)
}

// Spread returns the bid-ask spread as a percentage of the mid rate, or nil
// when bid/ask are not set.
func (r *ExchangeRate) Spread() *decimal.Decimal {
	if r.Bid == nil || r.Ask == nil {
		return nil
	}
	spread := r.Ask.Sub(*r.Bid).Div(r.Rate).Mul(decimal.NewFromInt(100)).RoundBank(4)
	return &spread
}

// Age returns how old the rate is.
func (r *ExchangeRate) Age() time.Duration {
	return time.Since(r.Timestamp)
}

// IsStale reports whether the rate is older than maxAge.
func (r *ExchangeRate) IsStale(maxAge time.Duration) bool {
	return r.Age() > maxAge
}

// ConversionResult is the full record of one currency conversion. Every
// conversion performed by the engine produces one and appends it to the
// retrievable audit history.
type ConversionResult struct {
	ConversionID string        `json:"conversion_id"`
	SourceMoney  Money         `json:"source"`
	TargetMoney  Money         `json:"target"`
	RateUsed     *ExchangeRate `json:"rate_used"`
	ConvertedAt  time.Time     `json:"converted_at"`
}

// EffectiveRate returns target/source, the rate actually realized after
// quantizing to the target currency's precision.
func (c *ConversionResult) EffectiveRate() decimal.Decimal {
	if c.SourceMoney.Amount.IsZero() {
		return decimal.Zero
	}
	return c.TargetMoney.Amount.Div(c.SourceMoney.Amount)
}
