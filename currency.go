/*
Copyright 2026 ChainBridge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bank

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/chainbridge/bank/config"
	"github.com/chainbridge/bank/model"
)

// CurrencyEngine manages exchange rates and currency conversion. Precision is
// enforced at one place only: a conversion quantizes at the target currency's
// precision, nothing in between. Every conversion carries the exact rate used
// and lands in a retrievable history.
type CurrencyEngine struct {
	registry   *model.CurrencyRegistry
	maxRateAge time.Duration

	mu               sync.RWMutex
	rates            map[string]*model.ExchangeRate // pair -> rate
	conversions      []*model.ConversionResult
	totalConversions int
}

// NewCurrencyEngine creates an engine over the given registry. A nil registry
// gets the standard seeded one. Maximum rate age comes from configuration.
func NewCurrencyEngine(registry *model.CurrencyRegistry) (*CurrencyEngine, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = model.NewCurrencyRegistry()
	}
	return &CurrencyEngine{
		registry:   registry,
		maxRateAge: time.Duration(cnf.Currency.MaxRateAgeHours) * time.Hour,
		rates:      make(map[string]*model.ExchangeRate),
	}, nil
}

// Registry exposes the engine's currency registry.
func (e *CurrencyEngine) Registry() *model.CurrencyRegistry {
	return e.registry
}

// RateOption customizes a rate being set.
type RateOption func(*model.ExchangeRate)

// WithBidAsk attaches bid/ask prices to the rate.
func WithBidAsk(bid, ask decimal.Decimal) RateOption {
	return func(r *model.ExchangeRate) {
		r.Bid = &bid
		r.Ask = &ask
	}
}

// WithTimestamp overrides the rate timestamp.
func WithTimestamp(ts time.Time) RateOption {
	return func(r *model.ExchangeRate) {
		r.Timestamp = ts.UTC()
	}
}

// WithSource overrides the rate source tag (default "manual").
func WithSource(source string) RateOption {
	return func(r *model.ExchangeRate) {
		r.Source = source
	}
}

// SetRate stores an exchange rate: 1 base = rate quote units. The derived
// inverse pair is stored alongside, tagged "(inverse)", with bid/ask swapped
// and inverted when present.
func (e *CurrencyEngine) SetRate(baseCurrency, quoteCurrency string, rate decimal.Decimal, opts ...RateOption) (*model.ExchangeRate, error) {
	base, err := e.registry.Get(baseCurrency)
	if err != nil {
		return nil, err
	}
	quote, err := e.registry.Get(quoteCurrency)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, errors.Errorf("exchange rate must be positive: %s", rate)
	}

	exchangeRate := &model.ExchangeRate{
		RateID:        model.GenerateUUIDWithSuffix("rate"),
		BaseCurrency:  base.Code,
		QuoteCurrency: quote.Code,
		Rate:          rate,
		Timestamp:     time.Now().UTC(),
		Source:        "manual",
	}
	for _, opt := range opts {
		opt(exchangeRate)
	}

	inverse := &model.ExchangeRate{
		RateID:        model.GenerateUUIDWithSuffix("rate"),
		BaseCurrency:  quote.Code,
		QuoteCurrency: base.Code,
		Rate:          exchangeRate.InverseRate(),
		Timestamp:     exchangeRate.Timestamp,
		Source:        exchangeRate.Source + " (inverse)",
	}
	one := decimal.NewFromInt(1)
	if exchangeRate.Ask != nil {
		bid := one.Div(*exchangeRate.Ask)
		inverse.Bid = &bid
	}
	if exchangeRate.Bid != nil {
		ask := one.Div(*exchangeRate.Bid)
		inverse.Ask = &ask
	}

	e.mu.Lock()
	e.rates[exchangeRate.Pair()] = exchangeRate
	e.rates[inverse.Pair()] = inverse
	e.mu.Unlock()

	return exchangeRate, nil
}

// GetRate returns the rate for a pair, rejecting rates older than the
// configured maximum age. Identity pairs synthesize a fresh rate of 1.
func (e *CurrencyEngine) GetRate(baseCurrency, quoteCurrency string) (*model.ExchangeRate, error) {
	return e.getRate(baseCurrency, quoteCurrency, true)
}

// GetRateUnchecked returns the rate for a pair without the staleness check.
func (e *CurrencyEngine) GetRateUnchecked(baseCurrency, quoteCurrency string) (*model.ExchangeRate, error) {
	return e.getRate(baseCurrency, quoteCurrency, false)
}

func (e *CurrencyEngine) getRate(baseCurrency, quoteCurrency string, validateFreshness bool) (*model.ExchangeRate, error) {
	base := strings.ToUpper(baseCurrency)
	quote := strings.ToUpper(quoteCurrency)

	if base == quote {
		return &model.ExchangeRate{
			RateID:        model.GenerateUUIDWithSuffix("rate"),
			BaseCurrency:  base,
			QuoteCurrency: quote,
			Rate:          decimal.NewFromInt(1),
			Timestamp:     time.Now().UTC(),
			Source:        "identity",
		}, nil
	}

	e.mu.RLock()
	rate, ok := e.rates[base+"/"+quote]
	e.mu.RUnlock()
	if !ok {
		return nil, &model.ExchangeRateNotFoundError{BaseCurrency: base, QuoteCurrency: quote}
	}
	if validateFreshness && rate.IsStale(e.maxRateAge) {
		return nil, &model.StaleExchangeRateError{
			Pair:   rate.Pair(),
			Age:    rate.Age(),
			MaxAge: e.maxRateAge,
		}
	}
	return rate, nil
}

// ListRates returns all stored rates, derived inverses included.
func (e *CurrencyEngine) ListRates() []*model.ExchangeRate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rates := make([]*model.ExchangeRate, 0, len(e.rates))
	for _, rate := range e.rates {
		rates = append(rates, rate)
	}
	return rates
}

// Convert converts a Money value into the target currency, quantizing at the
// target currency's precision only.
func (e *CurrencyEngine) Convert(source model.Money, targetCurrency string) (*model.ConversionResult, error) {
	rate, err := e.GetRate(source.Currency.Code, targetCurrency)
	if err != nil {
		return nil, err
	}
	return e.ConvertWithRate(source, targetCurrency, rate)
}

// ConvertWithRate converts using an explicitly supplied rate, bypassing the
// stored table and its staleness check.
func (e *CurrencyEngine) ConvertWithRate(source model.Money, targetCurrency string, rate *model.ExchangeRate) (*model.ConversionResult, error) {
	target, err := e.registry.Get(targetCurrency)
	if err != nil {
		return nil, err
	}

	targetMoney, err := model.NewMoney(source.Amount.Mul(rate.Rate), target)
	if err != nil {
		return nil, err
	}

	result := &model.ConversionResult{
		ConversionID: model.GenerateUUIDWithSuffix("conv"),
		SourceMoney:  source,
		TargetMoney:  targetMoney,
		RateUsed:     rate,
		ConvertedAt:  time.Now().UTC(),
	}

	e.mu.Lock()
	e.conversions = append(e.conversions, result)
	e.totalConversions++
	e.mu.Unlock()

	return result, nil
}

// ConvertAmount converts a raw decimal amount between currency codes.
func (e *CurrencyEngine) ConvertAmount(amount decimal.Decimal, sourceCurrency, targetCurrency string) (*model.ConversionResult, error) {
	money, err := e.CreateMoney(amount, sourceCurrency)
	if err != nil {
		return nil, err
	}
	return e.Convert(money, targetCurrency)
}

// ConvertToBase converts any Money into a base reporting currency.
func (e *CurrencyEngine) ConvertToBase(source model.Money, baseCurrency string) (*model.ConversionResult, error) {
	if baseCurrency == "" {
		baseCurrency = "USD"
	}
	return e.Convert(source, baseCurrency)
}

// CreateMoney builds a Money value in a registered currency.
func (e *CurrencyEngine) CreateMoney(amount decimal.Decimal, currencyCode string) (model.Money, error) {
	currency, err := e.registry.Get(currencyCode)
	if err != nil {
		return model.Money{}, err
	}
	return model.NewMoney(amount, currency)
}

// FormatMoney formats an amount with the currency's symbol and precision.
func (e *CurrencyEngine) FormatMoney(amount decimal.Decimal, currencyCode string) (string, error) {
	money, err := e.CreateMoney(amount, currencyCode)
	if err != nil {
		return "", err
	}
	return money.String(), nil
}

// GetCurrency returns currency details by code.
func (e *CurrencyEngine) GetCurrency(code string) (model.Currency, error) {
	return e.registry.Get(code)
}

// CurrencyMetrics aggregates currency engine activity.
type CurrencyMetrics struct {
	TotalConversions    int `json:"total_conversions"`
	RatesStored         int `json:"rates_stored"`
	CurrenciesSupported int `json:"currencies_supported"`
	FiatCurrencies      int `json:"fiat_currencies"`
	CryptoCurrencies    int `json:"crypto_currencies"`
}

// GetMetrics returns a snapshot of engine activity.
func (e *CurrencyEngine) GetMetrics() CurrencyMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return CurrencyMetrics{
		TotalConversions:    e.totalConversions,
		RatesStored:         len(e.rates),
		CurrenciesSupported: len(e.registry.ListAll()),
		FiatCurrencies:      len(e.registry.ListFiat()),
		CryptoCurrencies:    len(e.registry.ListCrypto()),
	}
}

// GetConversionHistory returns up to limit most recent conversions, oldest
// first.
func (e *CurrencyEngine) GetConversionHistory(limit int) []*model.ConversionResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if limit <= 0 || limit > len(e.conversions) {
		limit = len(e.conversions)
	}
	history := make([]*model.ConversionResult, limit)
	copy(history, e.conversions[len(e.conversions)-limit:])
	return history
}

// SeedDefaultRates loads an approximate set of major fiat and crypto rates,
// all tagged "default" and timestamped now. Production deployments replace
// these from a rate feed.
func (e *CurrencyEngine) SeedDefaultRates() error {
	now := time.Now().UTC()
	seeds := []struct {
		base  string
		quote string
		rate  string
	}{
		{"EUR", "USD", "1.08"},
		{"GBP", "USD", "1.27"},
		{"USD", "JPY", "148.50"},
		{"USD", "CHF", "0.88"},
		{"USD", "CAD", "1.36"},
		{"USD", "AUD", "1.54"},
		{"USD", "CNY", "7.24"},
		{"USD", "INR", "83.50"},
		{"USD", "MXN", "17.20"},
		{"USD", "BRL", "4.95"},
		{"USD", "KRW", "1320.00"},
		{"BTC", "USD", "97500.00"},
		{"ETH", "USD", "3450.00"},
		{"USDT", "USD", "1.00"},
		{"USDC", "USD", "1.00"},
	}
	for _, seed := range seeds {
		rate, err := decimal.NewFromString(seed.rate)
		if err != nil {
			return err
		}
		if _, err := e.SetRate(seed.base, seed.quote, rate, WithSource("default"), WithTimestamp(now)); err != nil {
			return err
		}
	}
	return nil
}
