package model

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Currency describes a currency and its precision rules. Fiat entries follow
// ISO 4217; crypto entries use their conventional atomic-unit precision.
// Currency values are immutable once registered.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
	Symbol   string `json:"symbol"`
	IsCrypto bool   `json:"is_crypto"`
}

// AtomicUnit returns the smallest representable unit of this currency,
// e.g. 0.01 for USD, 1 for JPY, 0.00000001 for BTC.
func (c Currency) AtomicUnit() decimal.Decimal {
	return decimal.New(1, -c.Decimals)
}

// Quantize rounds an amount to this currency's precision using half-even
// (banker's) rounding. This is the only rounding mode used anywhere in the
// engine, and it is applied only at currency precision boundaries.
func (c Currency) Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(c.Decimals)
}

// ValidAmount reports whether an amount already respects this currency's
// precision, i.e. quantizing it is a no-op.
func (c Currency) ValidAmount(amount decimal.Decimal) bool {
	return amount.Equal(c.Quantize(amount))
}

// CurrencyRegistry holds the set of known currencies. A registry is seeded
// with the standard fiat and crypto table; custom currencies can be added
// with Register. Lookups are case-insensitive.
type CurrencyRegistry struct {
	mu         sync.RWMutex
	currencies map[string]Currency
}

// NewCurrencyRegistry returns a registry seeded with the supported fiat and
// crypto currencies.
func NewCurrencyRegistry() *CurrencyRegistry {
	registry := &CurrencyRegistry{currencies: make(map[string]Currency)}
	for _, c := range seedCurrencies {
		registry.currencies[c.Code] = c
	}
	return registry
}

// Get returns the currency for a code. The code is case-insensitive.
func (r *CurrencyRegistry) Get(code string) (Currency, error) {
	code = strings.ToUpper(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	currency, ok := r.currencies[code]
	if !ok {
		return Currency{}, &UnknownCurrencyError{CurrencyCode: code}
	}
	return currency, nil
}

// Register adds a custom currency, replacing any existing entry for the code.
func (r *CurrencyRegistry) Register(currency Currency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	currency.Code = strings.ToUpper(currency.Code)
	r.currencies[currency.Code] = currency
}

// ListAll returns all registered currency codes, sorted.
func (r *CurrencyRegistry) ListAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ListFiat returns all fiat currency codes, sorted.
func (r *CurrencyRegistry) ListFiat() []string {
	return r.listWhere(false)
}

// ListCrypto returns all cryptocurrency codes, sorted.
func (r *CurrencyRegistry) ListCrypto() []string {
	return r.listWhere(true)
}

func (r *CurrencyRegistry) listWhere(crypto bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.currencies))
	for code, currency := range r.currencies {
		if currency.IsCrypto == crypto {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

var seedCurrencies = []Currency{
	// Major fiat
	{Code: "USD", Name: "US Dollar", Decimals: 2, Symbol: "$"},
	{Code: "EUR", Name: "Euro", Decimals: 2, Symbol: "€"},
	{Code: "GBP", Name: "British Pound", Decimals: 2, Symbol: "£"},
	{Code: "JPY", Name: "Japanese Yen", Decimals: 0, Symbol: "¥"},
	{Code: "CHF", Name: "Swiss Franc", Decimals: 2, Symbol: "CHF"},
	{Code: "CAD", Name: "Canadian Dollar", Decimals: 2, Symbol: "C$"},
	{Code: "AUD", Name: "Australian Dollar", Decimals: 2, Symbol: "A$"},
	{Code: "NZD", Name: "New Zealand Dollar", Decimals: 2, Symbol: "NZ$"},

	// Asia
	{Code: "CNY", Name: "Chinese Yuan", Decimals: 2, Symbol: "¥"},
	{Code: "HKD", Name: "Hong Kong Dollar", Decimals: 2, Symbol: "HK$"},
	{Code: "SGD", Name: "Singapore Dollar", Decimals: 2, Symbol: "S$"},
	{Code: "KRW", Name: "South Korean Won", Decimals: 0, Symbol: "₩"},
	{Code: "INR", Name: "Indian Rupee", Decimals: 2, Symbol: "₹"},

	// Other majors
	{Code: "MXN", Name: "Mexican Peso", Decimals: 2, Symbol: "$"},
	{Code: "BRL", Name: "Brazilian Real", Decimals: 2, Symbol: "R$"},
	{Code: "ZAR", Name: "South African Rand", Decimals: 2, Symbol: "R"},
	{Code: "RUB", Name: "Russian Ruble", Decimals: 2, Symbol: "₽"},
	{Code: "TRY", Name: "Turkish Lira", Decimals: 2, Symbol: "₺"},
	{Code: "PLN", Name: "Polish Zloty", Decimals: 2, Symbol: "zł"},
	{Code: "SEK", Name: "Swedish Krona", Decimals: 2, Symbol: "kr"},
	{Code: "NOK", Name: "Norwegian Krone", Decimals: 2, Symbol: "kr"},
	{Code: "DKK", Name: "Danish Krone", Decimals: 2, Symbol: "kr"},

	// Middle East
	{Code: "AED", Name: "UAE Dirham", Decimals: 2, Symbol: "د.إ"},
	{Code: "SAR", Name: "Saudi Riyal", Decimals: 2, Symbol: "﷼"},
	{Code: "ILS", Name: "Israeli Shekel", Decimals: 2, Symbol: "₪"},

	// Three-decimal dinars
	{Code: "KWD", Name: "Kuwaiti Dinar", Decimals: 3, Symbol: "د.ك"},
	{Code: "BHD", Name: "Bahraini Dinar", Decimals: 3, Symbol: ".د.ب"},
	{Code: "OMR", Name: "Omani Rial", Decimals: 3, Symbol: "﷼"},

	// Crypto
	{Code: "BTC", Name: "Bitcoin", Decimals: 8, Symbol: "₿", IsCrypto: true},
	{Code: "ETH", Name: "Ethereum", Decimals: 18, Symbol: "Ξ", IsCrypto: true},
	{Code: "USDT", Name: "Tether", Decimals: 6, Symbol: "₮", IsCrypto: true},
	{Code: "USDC", Name: "USD Coin", Decimals: 6, Symbol: "USDC", IsCrypto: true},
	{Code: "SOL", Name: "Solana", Decimals: 9, Symbol: "◎", IsCrypto: true},
	{Code: "XRP", Name: "Ripple", Decimals: 6, Symbol: "XRP", IsCrypto: true},
	{Code: "ADA", Name: "Cardano", Decimals: 6, Symbol: "₳", IsCrypto: true},
	{Code: "DOGE", Name: "Dogecoin", Decimals: 8, Symbol: "Ð", IsCrypto: true},
}
