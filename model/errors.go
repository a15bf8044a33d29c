package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrorCode classifies engine failures for callers that need to map them onto
// an outer surface (HTTP, queue DLQ, operator console). The core only raises;
// translation is a caller concern.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInsufficient ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeImmutability ErrorCode = "IMMUTABILITY_VIOLATION"
	ErrCodeLifecycle    ErrorCode = "LIFECYCLE_VIOLATION"
	ErrCodeIdempotency  ErrorCode = "IDEMPOTENCY_VIOLATION"
	ErrCodeStaleRate    ErrorCode = "STALE_EXCHANGE_RATE"
	ErrCodeFeeViolation ErrorCode = "FEE_VIOLATION"
	ErrCodeConservation ErrorCode = "CONSERVATION_VIOLATION"
)

// DuplicateAccountError is raised when creating an account whose id is taken.
type DuplicateAccountError struct {
	AccountID string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account %s already exists", e.AccountID)
}

func (e *DuplicateAccountError) Code() ErrorCode { return ErrCodeConflict }

// AccountNotFoundError is raised when referencing a non-existent account.
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account not found: %s", e.AccountID)
}

func (e *AccountNotFoundError) Code() ErrorCode { return ErrCodeNotFound }

// TransactionNotFoundError is raised when referencing an unknown transaction.
type TransactionNotFoundError struct {
	TransactionID string
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction not found: %s", e.TransactionID)
}

func (e *TransactionNotFoundError) Code() ErrorCode { return ErrCodeNotFound }

// BalanceViolationError is raised when a transaction's debits do not equal its
// credits. The transaction is left PENDING; the caller may fix the entries and
// retry the post.
type BalanceViolationError struct {
	Currency string
	Debits   decimal.Decimal
	Credits  decimal.Decimal
}

func (e *BalanceViolationError) Error() string {
	return fmt.Sprintf(
		"balance violation for %s: debits (%s) != credits (%s)",
		e.Currency, e.Debits, e.Credits,
	)
}

func (e *BalanceViolationError) Code() ErrorCode { return ErrCodeConservation }

// InsufficientFundsError is raised when a post would drive an account below
// zero and the account does not allow negative balances.
type InsufficientFundsError struct {
	AccountID string
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds in account %s: required %s, available %s",
		e.AccountID, e.Required, e.Available,
	)
}

func (e *InsufficientFundsError) Code() ErrorCode { return ErrCodeInsufficient }

// ImmutabilityViolationError is raised on any attempt to modify a posted
// transaction. Callers should treat this as a programming defect, not a
// retryable condition. Correction happens via reversal only.
type ImmutabilityViolationError struct {
	TransactionID string
}

func (e *ImmutabilityViolationError) Error() string {
	return fmt.Sprintf("cannot modify posted transaction %s, use a reversal instead", e.TransactionID)
}

func (e *ImmutabilityViolationError) Code() ErrorCode { return ErrCodeImmutability }

// NegativeAmountError is raised when an operation receives a negative amount.
type NegativeAmountError struct {
	Amount decimal.Decimal
}

func (e *NegativeAmountError) Error() string {
	return fmt.Sprintf("amounts must be positive: %s", e.Amount)
}

func (e *NegativeAmountError) Code() ErrorCode { return ErrCodeInvalidInput }

// IdempotencyViolationError is raised when an idempotency key is replayed with
// different parameters than the original request.
type IdempotencyViolationError struct {
	IdempotencyKey   string
	OriginalIntentID string
}

func (e *IdempotencyViolationError) Error() string {
	return fmt.Sprintf(
		"idempotency key %q already used for intent %q with different parameters",
		e.IdempotencyKey, e.OriginalIntentID,
	)
}

func (e *IdempotencyViolationError) Code() ErrorCode { return ErrCodeIdempotency }

// LifecycleViolationError is raised on an illegal payment-intent state
// transition, e.g. capturing an intent that was never authorized.
type LifecycleViolationError struct {
	IntentID        string
	CurrentState    IntentStatus
	AttemptedAction string
}

func (e *LifecycleViolationError) Error() string {
	return fmt.Sprintf(
		"cannot %s intent %q in state %q",
		e.AttemptedAction, e.IntentID, e.CurrentState,
	)
}

func (e *LifecycleViolationError) Code() ErrorCode { return ErrCodeLifecycle }

// IntentNotFoundError is raised when referencing a non-existent payment intent.
type IntentNotFoundError struct {
	IntentID string
}

func (e *IntentNotFoundError) Error() string {
	return fmt.Sprintf("payment intent not found: %s", e.IntentID)
}

func (e *IntentNotFoundError) Code() ErrorCode { return ErrCodeNotFound }

// AmountExceedsAuthorizationError is raised when a capture requests more than
// the amount held by the authorization.
type AmountExceedsAuthorizationError struct {
	IntentID   string
	Authorized decimal.Decimal
	Requested  decimal.Decimal
}

func (e *AmountExceedsAuthorizationError) Error() string {
	return fmt.Sprintf(
		"capture amount %s exceeds authorization %s for intent %q",
		e.Requested, e.Authorized, e.IntentID,
	)
}

func (e *AmountExceedsAuthorizationError) Code() ErrorCode { return ErrCodeInvalidInput }

// FeeExceedsAmountError is raised when a calculated fee would consume more
// than the gross amount, which would leave a negative net.
type FeeExceedsAmountError struct {
	Gross decimal.Decimal
	Fee   decimal.Decimal
}

func (e *FeeExceedsAmountError) Error() string {
	return fmt.Sprintf("fee (%s) exceeds transaction amount (%s)", e.Fee, e.Gross)
}

func (e *FeeExceedsAmountError) Code() ErrorCode { return ErrCodeFeeViolation }

// UnknownCurrencyError is raised when referencing an unregistered currency code.
type UnknownCurrencyError struct {
	CurrencyCode string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency code: %s", e.CurrencyCode)
}

func (e *UnknownCurrencyError) Code() ErrorCode { return ErrCodeNotFound }

// ExchangeRateNotFoundError is raised when no rate exists for a currency pair,
// in either direction.
type ExchangeRateNotFoundError struct {
	BaseCurrency  string
	QuoteCurrency string
}

func (e *ExchangeRateNotFoundError) Error() string {
	return fmt.Sprintf("no exchange rate found for %s/%s", e.BaseCurrency, e.QuoteCurrency)
}

func (e *ExchangeRateNotFoundError) Code() ErrorCode { return ErrCodeNotFound }

// StaleExchangeRateError is raised when a rate is older than the maximum age
// the engine is configured to accept.
type StaleExchangeRateError struct {
	Pair   string
	Age    time.Duration
	MaxAge time.Duration
}

func (e *StaleExchangeRateError) Error() string {
	return fmt.Sprintf(
		"exchange rate for %s is stale: age=%s, max_allowed=%s",
		e.Pair, e.Age, e.MaxAge,
	)
}

func (e *StaleExchangeRateError) Code() ErrorCode { return ErrCodeStaleRate }
