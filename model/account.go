package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the standard accounting classification of an account.
// The accounting equation: Assets + Expenses = Liabilities + Equity + Revenue.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"

	// Platform-specific classifications.
	AccountTypeSettlement AccountType = "settlement"  // pending settlements (asset-like)
	AccountTypeEscrow     AccountType = "escrow"      // held funds between authorize and capture
	AccountTypeFeeRevenue AccountType = "fee_revenue" // platform fees
	AccountTypeSuspense   AccountType = "suspense"    // unclassified entries, temporary
)

// DebitIncreasesBalance reports whether a debit entry increases balances of
// this account type. Asset-like types grow on debit; liability, equity and
// revenue types grow on credit.
func (t AccountType) DebitIncreasesBalance() bool {
	switch t {
	case AccountTypeAsset, AccountTypeExpense, AccountTypeSettlement, AccountTypeEscrow:
		return true
	}
	return false
}

// Account is a ledger account holding a balance in a single currency.
// Accounts are created once and mutated only as a side effect of posting a
// balanced transaction that references them.
type Account struct {
	AccountID     string                 `json:"account_id"`
	Name          string                 `json:"name"`
	Type          AccountType            `json:"account_type"`
	Currency      Currency               `json:"currency"`
	Balance       decimal.Decimal        `json:"balance"`
	CreatedAt     time.Time              `json:"created_at"`
	IsActive      bool                   `json:"is_active"`
	AllowNegative bool                   `json:"allow_negative"`
	MetaData      map[string]interface{} `json:"meta_data,omitempty"`
}

// ApplyDebit applies a debit to the account and returns the new balance,
// quantized to the account currency's precision.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	if a.Type.DebitIncreasesBalance() {
		a.Balance = a.Balance.Add(amount)
	} else {
		a.Balance = a.Balance.Sub(amount)
	}
	a.Balance = a.Currency.Quantize(a.Balance)
	return a.Balance
}

// ApplyCredit applies a credit to the account and returns the new balance.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	if a.Type.DebitIncreasesBalance() {
		a.Balance = a.Balance.Sub(amount)
	} else {
		a.Balance = a.Balance.Add(amount)
	}
	a.Balance = a.Currency.Quantize(a.Balance)
	return a.Balance
}

// ProjectedChange returns the signed balance change an entry of the given
// direction and amount would cause on this account.
func (a *Account) ProjectedChange(direction EntryDirection, amount decimal.Decimal) decimal.Decimal {
	increases := a.Type.DebitIncreasesBalance()
	if direction == EntryDirectionDebit == increases {
		return amount
	}
	return amount.Neg()
}
