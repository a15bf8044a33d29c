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
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chainbridge/bank/internal/lock"
	"github.com/chainbridge/bank/model"
)

const postLockWait = time.Minute

// Ledger is the double-entry ledger at the heart of the financial core.
//
// It enforces two invariants at every observable point:
//   - Conservation of value: sum(debits) == sum(credits) for every posted
//     transaction, per currency, and for the ledger globally.
//   - Immutability: posted transactions never change; correction happens
//     only through a reversing transaction.
//
// All amounts are decimals quantized to each account currency's precision;
// the hash chain over posted transactions makes the history verifiable
// end-to-end. The ledger is purely in-memory; durability is the caller's
// concern.
type Ledger struct {
	LedgerID    string
	CreatedAt   time.Time
	GenesisHash string

	registry *model.CurrencyRegistry
	locks    *lock.Registry

	mu                 sync.RWMutex
	accounts           map[string]*model.Account
	transactions       map[string]*model.Transaction
	posted             []string // ordered, for chain verification
	lastHash           string
	totalDebitsPosted  decimal.Decimal
	totalCreditsPosted decimal.Decimal
}

// NewLedger creates an empty ledger resolving currency codes against the
// given registry.
func NewLedger(registry *model.CurrencyRegistry) *Ledger {
	ledgerID := model.GenerateUUIDWithSuffix("ldg")
	createdAt := time.Now().UTC()
	genesis := model.GenesisHash(ledgerID, createdAt)
	return &Ledger{
		LedgerID:           ledgerID,
		CreatedAt:          createdAt,
		GenesisHash:        genesis,
		registry:           registry,
		locks:              lock.NewRegistry(),
		accounts:           make(map[string]*model.Account),
		transactions:       make(map[string]*model.Transaction),
		lastHash:           genesis,
		totalDebitsPosted:  decimal.Zero,
		totalCreditsPosted: decimal.Zero,
	}
}

// AccountSpec describes a new account. AccountID is optional; one is
// generated when empty.
type AccountSpec struct {
	AccountID     string
	Name          string
	Type          model.AccountType
	Currency      string
	AllowNegative bool
	MetaData      map[string]interface{}
}

// CreateAccount registers a new account with a zero balance.
func (l *Ledger) CreateAccount(spec AccountSpec) (*model.Account, error) {
	currency, err := l.registry.Get(spec.Currency)
	if err != nil {
		return nil, err
	}

	accountID := spec.AccountID
	if accountID == "" {
		accountID = model.GenerateUUIDWithSuffix("acc")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[accountID]; exists {
		return nil, &model.DuplicateAccountError{AccountID: accountID}
	}

	account := &model.Account{
		AccountID:     accountID,
		Name:          spec.Name,
		Type:          spec.Type,
		Currency:      currency,
		Balance:       decimal.Zero,
		CreatedAt:     time.Now().UTC(),
		IsActive:      true,
		AllowNegative: spec.AllowNegative,
		MetaData:      spec.MetaData,
	}
	l.accounts[accountID] = account
	return account, nil
}

// GetAccount returns an account by id.
func (l *Ledger) GetAccount(accountID string) (*model.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getAccount(accountID)
}

func (l *Ledger) getAccount(accountID string) (*model.Account, error) {
	account, ok := l.accounts[accountID]
	if !ok {
		return nil, &model.AccountNotFoundError{AccountID: accountID}
	}
	return account, nil
}

// GetBalance returns an account's current balance.
func (l *Ledger) GetBalance(accountID string) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	account, err := l.getAccount(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// CreateTransaction starts a new pending transaction. Populate it with
// balanced entries via Debit/Credit, then commit it with PostTransaction.
func (l *Ledger) CreateTransaction(description, reference string, metadata map[string]interface{}) *model.Transaction {
	transaction := &model.Transaction{
		TransactionID: model.GenerateUUIDWithSuffix("txn"),
		Description:   description,
		Reference:     reference,
		Status:        model.StatusPending,
		CreatedAt:     time.Now().UTC(),
		MetaData:      metadata,
	}
	l.mu.Lock()
	l.transactions[transaction.TransactionID] = transaction
	l.mu.Unlock()
	return transaction
}

// GetTransaction returns a transaction by id.
func (l *Ledger) GetTransaction(transactionID string) (*model.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	transaction, ok := l.transactions[transactionID]
	if !ok {
		return nil, &model.TransactionNotFoundError{TransactionID: transactionID}
	}
	return transaction, nil
}

// PostTransaction atomically commits a pending transaction:
//
//  1. quantizes every entry to its account currency's precision
//  2. validates the transaction balances per currency
//  3. checks sufficient funds for every touched account, all before any
//     balance is mutated
//  4. applies all entries
//  5. links the transaction into the hash chain and marks it POSTED
//
// Validation failures leave the transaction PENDING with no balance change,
// so the caller can fix the entries and retry the post.
func (l *Ledger) PostTransaction(ctx context.Context, transactionID string) (*model.Transaction, error) {
	locker := lock.NewLocker(l.locks, l.LedgerID, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, postLockWait); err != nil {
		return nil, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("post lock release error: ", err)
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	transaction, ok := l.transactions[transactionID]
	if !ok {
		return nil, &model.TransactionNotFoundError{TransactionID: transactionID}
	}
	if transaction.Status == model.StatusPosted || transaction.Status == model.StatusReversed {
		return nil, &model.ImmutabilityViolationError{TransactionID: transactionID}
	}
	if len(transaction.Entries) == 0 {
		return nil, errors.New("cannot post empty transaction")
	}

	// Quantize entries at their account currency's precision. Entries are
	// still mutable at this point; the amounts that get hashed and applied
	// are the quantized ones.
	for _, entry := range transaction.Entries {
		account, err := l.getAccount(entry.AccountID)
		if err != nil {
			return nil, err
		}
		entry.Amount = account.Currency.Quantize(entry.Amount)
	}

	if err := l.validateBalancedPerCurrency(transaction); err != nil {
		logrus.Errorf("post rejected for %s: %v", transactionID, err)
		return nil, err
	}
	if err := l.validateSufficientFunds(transaction); err != nil {
		logrus.Errorf("post rejected for %s: %v", transactionID, err)
		return nil, err
	}

	// Commit pass: all checks passed, apply every entry.
	for _, entry := range transaction.Entries {
		account := l.accounts[entry.AccountID]
		if entry.Direction == model.EntryDirectionDebit {
			account.ApplyDebit(entry.Amount)
		} else {
			account.ApplyCredit(entry.Amount)
		}
	}

	transaction.PreviousHash = l.lastHash
	transaction.Hash = transaction.ComputeHash()
	l.lastHash = transaction.Hash

	now := time.Now().UTC()
	transaction.Status = model.StatusPosted
	transaction.PostedAt = &now
	l.posted = append(l.posted, transactionID)

	l.totalDebitsPosted = l.totalDebitsPosted.Add(transaction.TotalDebits())
	l.totalCreditsPosted = l.totalCreditsPosted.Add(transaction.TotalCredits())

	return transaction, nil
}

// validateBalancedPerCurrency checks sum(debits) == sum(credits) for every
// currency touched by the transaction.
func (l *Ledger) validateBalancedPerCurrency(transaction *model.Transaction) error {
	type currencyTotals struct {
		debits  decimal.Decimal
		credits decimal.Decimal
	}
	totals := make(map[string]*currencyTotals)
	order := make([]string, 0, 2)

	for _, entry := range transaction.Entries {
		account := l.accounts[entry.AccountID]
		code := account.Currency.Code
		t, ok := totals[code]
		if !ok {
			t = &currencyTotals{debits: decimal.Zero, credits: decimal.Zero}
			totals[code] = t
			order = append(order, code)
		}
		if entry.Direction == model.EntryDirectionDebit {
			t.debits = t.debits.Add(entry.Amount)
		} else {
			t.credits = t.credits.Add(entry.Amount)
		}
	}

	for _, code := range order {
		t := totals[code]
		if !t.debits.Equal(t.credits) {
			return &model.BalanceViolationError{
				Currency: code,
				Debits:   t.debits,
				Credits:  t.credits,
			}
		}
	}
	return nil
}

// validateSufficientFunds projects the balance change for every touched
// account and rejects the whole transaction if any projected balance goes
// negative without permission. Runs before any mutation: all-or-nothing.
func (l *Ledger) validateSufficientFunds(transaction *model.Transaction) error {
	changes := make(map[string]decimal.Decimal)
	order := make([]string, 0, len(transaction.Entries))

	for _, entry := range transaction.Entries {
		account := l.accounts[entry.AccountID]
		change, seen := changes[entry.AccountID]
		if !seen {
			change = decimal.Zero
			order = append(order, entry.AccountID)
		}
		changes[entry.AccountID] = change.Add(account.ProjectedChange(entry.Direction, entry.Amount))
	}

	for _, accountID := range order {
		account := l.accounts[accountID]
		change := changes[accountID]
		projected := account.Balance.Add(change)
		if projected.IsNegative() && !account.AllowNegative {
			return &model.InsufficientFundsError{
				AccountID: accountID,
				Required:  change.Abs(),
				Available: account.Balance,
			}
		}
	}
	return nil
}

// Transfer builds and posts a balanced two-entry transaction moving amount
// from one account to another.
func (l *Ledger) Transfer(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal, description, reference string) (*model.Transaction, error) {
	if !amount.IsPositive() {
		return nil, &model.NegativeAmountError{Amount: amount}
	}

	transaction := l.CreateTransaction(description, reference, nil)
	if _, err := transaction.Debit(toAccount, amount, "Received from "+fromAccount); err != nil {
		return nil, err
	}
	if _, err := transaction.Credit(fromAccount, amount, "Sent to "+toAccount); err != nil {
		return nil, err
	}
	return l.PostTransaction(ctx, transaction.TransactionID)
}

// ReverseTransaction posts a new transaction with every entry's direction
// flipped, undoing a posted transaction's balance effect. The original is
// never modified beyond being marked REVERSED; its entries and hash stand.
func (l *Ledger) ReverseTransaction(ctx context.Context, transactionID, reason string) (*model.Transaction, error) {
	// Serialized per transaction so two concurrent reversals cannot both
	// observe POSTED and each post a reversal.
	locker := lock.NewLocker(l.locks, "reverse:"+transactionID, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, postLockWait); err != nil {
		return nil, err
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("reverse lock release error: ", err)
		}
	}()

	l.mu.RLock()
	original, ok := l.transactions[transactionID]
	var status model.TransactionStatus
	if ok {
		status = original.Status
	}
	l.mu.RUnlock()
	if !ok {
		return nil, &model.TransactionNotFoundError{TransactionID: transactionID}
	}
	if status == model.StatusReversed {
		return nil, errors.Errorf("transaction %s already reversed", transactionID)
	}
	if status != model.StatusPosted {
		return nil, errors.New("can only reverse posted transactions")
	}

	description := "REVERSAL: " + original.Description
	if reason != "" {
		description = "REVERSAL: " + reason
	}
	reversal := l.CreateTransaction(description, "REV-"+transactionID, map[string]interface{}{
		"reverses": transactionID,
		"reason":   reason,
	})
	for _, entry := range original.Entries {
		direction := model.EntryDirectionDebit
		if entry.Direction == model.EntryDirectionDebit {
			direction = model.EntryDirectionCredit
		}
		if _, err := reversal.AddEntry(entry.AccountID, entry.Amount, direction, "Reversal of "+entry.EntryID); err != nil {
			return nil, err
		}
	}

	posted, err := l.PostTransaction(ctx, reversal.TransactionID)
	if err != nil {
		return nil, errors.Wrap(err, "posting reversal")
	}

	l.mu.Lock()
	original.Status = model.StatusReversed
	if original.MetaData == nil {
		original.MetaData = make(map[string]interface{})
	}
	original.MetaData["reversed_by"] = posted.TransactionID
	l.mu.Unlock()

	return posted, nil
}

// VerifyChainIntegrity recomputes the hash chain over all posted
// transactions in order and reports whether it is intact.
func (l *Ledger) VerifyChainIntegrity() (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.posted) == 0 {
		return true, "no transactions to verify"
	}

	expected := l.GenesisHash
	for _, transactionID := range l.posted {
		transaction := l.transactions[transactionID]
		if transaction.PreviousHash != expected {
			return false, "chain broken at " + transactionID + ": previous_hash mismatch"
		}
		if transaction.ComputeHash() != transaction.Hash {
			return false, "chain broken at " + transactionID + ": transaction_hash mismatch"
		}
		expected = transaction.Hash
	}
	return true, "chain valid: " + strconv.Itoa(len(l.posted)) + " transactions verified"
}

// VerifyConservation checks that total posted debits equal total posted
// credits across the whole ledger's history.
func (l *Ledger) VerifyConservation() (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.totalDebitsPosted.Equal(l.totalCreditsPosted) {
		return false, "conservation violated: debits=" + l.totalDebitsPosted.String() +
			", credits=" + l.totalCreditsPosted.String()
	}
	return true, "conservation verified: " + l.totalDebitsPosted.String() + " in balanced transactions"
}

// AuditSummary aggregates the ledger's verification state.
type AuditSummary struct {
	LedgerID            string    `json:"ledger_id"`
	CreatedAt           time.Time `json:"created_at"`
	GenesisHash         string    `json:"genesis_hash"`
	LastHash            string    `json:"last_hash"`
	TotalAccounts       int       `json:"total_accounts"`
	TotalTransactions   int       `json:"total_transactions"`
	PostedTransactions  int       `json:"posted_transactions"`
	TotalDebits         string    `json:"total_debits"`
	TotalCredits        string    `json:"total_credits"`
	ChainValid          bool      `json:"chain_valid"`
	ChainMessage        string    `json:"chain_message"`
	ConservationValid   bool      `json:"conservation_valid"`
	ConservationMessage string    `json:"conservation_message"`
}

// GetAuditSummary runs both verifications and returns the aggregate state.
func (l *Ledger) GetAuditSummary() AuditSummary {
	chainValid, chainMessage := l.VerifyChainIntegrity()
	conservationValid, conservationMessage := l.VerifyConservation()

	l.mu.RLock()
	defer l.mu.RUnlock()
	return AuditSummary{
		LedgerID:            l.LedgerID,
		CreatedAt:           l.CreatedAt,
		GenesisHash:         l.GenesisHash,
		LastHash:            l.lastHash,
		TotalAccounts:       len(l.accounts),
		TotalTransactions:   len(l.transactions),
		PostedTransactions:  len(l.posted),
		TotalDebits:         l.totalDebitsPosted.String(),
		TotalCredits:        l.totalCreditsPosted.String(),
		ChainValid:          chainValid,
		ChainMessage:        chainMessage,
		ConservationValid:   conservationValid,
		ConservationMessage: conservationMessage,
	}
}
