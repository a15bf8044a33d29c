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
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainbridge/bank/model"
)

func newTestCurrencyEngine(t *testing.T) *CurrencyEngine {
	t.Helper()
	engine, err := NewCurrencyEngine(nil)
	require.NoError(t, err)
	return engine
}

func TestSetRate_StoresInverse(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	rate, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"))
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", rate.Pair())
	assert.Equal(t, "manual", rate.Source)

	inverse, err := engine.GetRate("USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "manual (inverse)", inverse.Source)
	assert.True(t, inverse.Rate.Equal(rate.InverseRate()))
}

func TestSetRate_UnknownCurrency(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "WAT", decimal.NewFromInt(1))
	var unknown *model.UnknownCurrencyError
	require.ErrorAs(t, err, &unknown)
}

func TestSetRate_NonPositive(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "USD", decimal.Zero)
	assert.EqualError(t, err, "exchange rate must be positive: 0")
}

func TestGetRate_Identity(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	rate, err := engine.GetRate("USD", "usd")
	require.NoError(t, err)
	assert.Equal(t, "identity", rate.Source)
	assert.True(t, rate.Rate.Equal(decimal.NewFromInt(1)))
}

func TestGetRate_NotFound(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	_, err := engine.GetRate("GBP", "JPY")
	var notFound *model.ExchangeRateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "GBP", notFound.BaseCurrency)
	assert.Equal(t, "JPY", notFound.QuoteCurrency)
}

func TestGetRate_Stale(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	_, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"),
		WithTimestamp(time.Now().UTC().Add(-25*time.Hour)))
	require.NoError(t, err)

	_, err = engine.GetRate("EUR", "USD")
	var stale *model.StaleExchangeRateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "EUR/USD", stale.Pair)
	assert.Equal(t, 24*time.Hour, stale.MaxAge)

	// The unchecked accessor still serves it.
	rate, err := engine.GetRateUnchecked("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.08", rate.Rate.String())
}

func TestSetRate_BidAsk(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	rate, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"),
		WithBidAsk(decimal.RequireFromString("1.079"), decimal.RequireFromString("1.081")))
	require.NoError(t, err)
	require.NotNil(t, rate.Spread())
	assert.True(t, rate.Spread().IsPositive())

	// The stored inverse swaps and inverts bid/ask.
	inverse, err := engine.GetRate("USD", "EUR")
	require.NoError(t, err)
	require.NotNil(t, inverse.Bid)
	require.NotNil(t, inverse.Ask)
	assert.True(t, inverse.Bid.LessThan(*inverse.Ask))
}

func TestConvert_QuantizesAtTargetPrecision(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"))
	require.NoError(t, err)

	result, err := engine.ConvertAmount(decimal.RequireFromString("100.00"), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "108", result.TargetMoney.Amount.String())
	assert.Equal(t, "USD", result.TargetMoney.Currency.Code)
	assert.Equal(t, "EUR", result.SourceMoney.Currency.Code)
	assert.NotEmpty(t, result.ConversionID)
}

func TestConvert_ZeroDecimalTarget(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("USD", "JPY", decimal.RequireFromString("148.50"))
	require.NoError(t, err)

	// 10.10 USD * 148.50 = 1499.85 → JPY has no decimals → 1500.
	result, err := engine.ConvertAmount(decimal.RequireFromString("10.10"), "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, "1500", result.TargetMoney.Amount.String())
}

func TestConvert_RoundTripThroughInverse(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"))
	require.NoError(t, err)

	forward, err := engine.ConvertAmount(decimal.RequireFromString("100.00"), "EUR", "USD")
	require.NoError(t, err)
	back, err := engine.Convert(forward.TargetMoney, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "100", back.TargetMoney.Amount.String())
}

func TestConvert_MissingRate(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.ConvertAmount(decimal.NewFromInt(5), "GBP", "CHF")
	var notFound *model.ExchangeRateNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestConvertWithRate_BypassesStaleness(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	rate := &model.ExchangeRate{
		RateID:        model.GenerateUUIDWithSuffix("rate"),
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		Rate:          decimal.RequireFromString("1.10"),
		Timestamp:     time.Now().UTC().Add(-48 * time.Hour),
		Source:        "historical",
	}
	money, err := engine.CreateMoney(decimal.RequireFromString("50.00"), "EUR")
	require.NoError(t, err)

	result, err := engine.ConvertWithRate(money, "USD", rate)
	require.NoError(t, err)
	assert.Equal(t, "55", result.TargetMoney.Amount.String())
	assert.Equal(t, "historical", result.RateUsed.Source)
}

func TestConvertToBase_DefaultsToUSD(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("GBP", "USD", decimal.RequireFromString("1.27"))
	require.NoError(t, err)

	money, err := engine.CreateMoney(decimal.RequireFromString("10.00"), "GBP")
	require.NoError(t, err)
	result, err := engine.ConvertToBase(money, "")
	require.NoError(t, err)
	assert.Equal(t, "USD", result.TargetMoney.Currency.Code)
	assert.Equal(t, "12.7", result.TargetMoney.Amount.String())
}

func TestConversionHistory(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := engine.ConvertAmount(decimal.NewFromInt(int64(i*10)), "EUR", "USD")
		require.NoError(t, err)
	}

	history := engine.GetConversionHistory(10)
	require.Len(t, history, 3)
	assert.Equal(t, "10", history[0].SourceMoney.Amount.String())
	assert.Equal(t, "30", history[2].SourceMoney.Amount.String())

	limited := engine.GetConversionHistory(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "20", limited[0].SourceMoney.Amount.String())
}

func TestCurrencyMetrics(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.SetRate("EUR", "USD", decimal.RequireFromString("1.08"))
	require.NoError(t, err)
	_, err = engine.ConvertAmount(decimal.NewFromInt(1), "EUR", "USD")
	require.NoError(t, err)

	metrics := engine.GetMetrics()
	assert.Equal(t, 1, metrics.TotalConversions)
	assert.Equal(t, 2, metrics.RatesStored) // direct + inverse
	assert.Equal(t, metrics.CurrenciesSupported, metrics.FiatCurrencies+metrics.CryptoCurrencies)
}

func TestSeedDefaultRates(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	require.NoError(t, engine.SeedDefaultRates())

	rate, err := engine.GetRate("EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.08", rate.Rate.String())
	assert.Equal(t, "default", rate.Source)

	btc, err := engine.GetRate("BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, "97500", btc.Rate.String())

	// Inverses come along for every seeded pair.
	usdeur, err := engine.GetRate("USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "default (inverse)", usdeur.Source)
}

func TestFormatMoney(t *testing.T) {
	engine := newTestCurrencyEngine(t)

	formatted, err := engine.FormatMoney(decimal.RequireFromString("1234.5"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "$1234.50", formatted)

	formatted, err = engine.FormatMoney(decimal.RequireFromString("0.5"), "BTC")
	require.NoError(t, err)
	assert.Equal(t, "₿0.50000000", formatted)
}

func TestCreateMoney_RejectsNegative(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	_, err := engine.CreateMoney(decimal.RequireFromString("-1.00"), "USD")
	var negative *model.NegativeAmountError
	require.ErrorAs(t, err, &negative)
}

func TestRegisterCustomCurrency(t *testing.T) {
	engine := newTestCurrencyEngine(t)
	engine.Registry().Register(model.Currency{
		Code:     "xyz",
		Name:     "Test Token",
		Decimals: 4,
		IsCrypto: true,
	})

	currency, err := engine.GetCurrency("XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", currency.Code)
	assert.Equal(t, "0.0001", currency.AtomicUnit().String())
}
