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
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/chainbridge/bank/config"
	"github.com/chainbridge/bank/internal/lock"
	"github.com/chainbridge/bank/model"
)

const intentLockWait = time.Minute

// SettlementEngine manages the payment lifecycle with two-phase commit
// semantics on top of the ledger:
//
//	CreateIntent  — declare the payment, no funds move
//	Authorize     — hold funds: source → escrow
//	Capture       — settle: escrow → destination
//	Void          — cancel: escrow → source
//
// Every replay of a completed phase is idempotent and leaves an audit event
// on the intent. Funds in flight always live in a per-currency escrow
// account, so every state of the machine is a balanced ledger state.
type SettlementEngine struct {
	ledger *Ledger
	locks  *lock.Registry

	escrowBaseID string
	authTTL      time.Duration

	// mu guards the maps, the totals and every intent field write. Writers
	// additionally hold the per-intent lock, so GetMetrics and GetAuditLog
	// read a consistent snapshot under mu alone.
	mu               sync.RWMutex
	intents          map[string]*model.PaymentIntent
	idempotencyIndex map[string]string // key -> intent_id

	totalAuthorized decimal.Decimal
	totalCaptured   decimal.Decimal
	totalVoided     decimal.Decimal
}

// NewSettlementEngine creates a settlement engine bound to a ledger. Escrow
// account naming and the default authorization TTL come from configuration.
func NewSettlementEngine(ledger *Ledger) (*SettlementEngine, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &SettlementEngine{
		ledger:           ledger,
		locks:            lock.NewRegistry(),
		escrowBaseID:     cnf.Settlement.EscrowAccountID,
		authTTL:          time.Duration(cnf.Settlement.AuthTTLHours) * time.Hour,
		intents:          make(map[string]*model.PaymentIntent),
		idempotencyIndex: make(map[string]string),
		totalAuthorized:  decimal.Zero,
		totalCaptured:    decimal.Zero,
		totalVoided:      decimal.Zero,
	}, nil
}

// escrowAccountID returns the escrow account for a currency. Escrow is
// per-currency so hold and release transfers stay single-currency balanced.
func (s *SettlementEngine) escrowAccountID(currencyCode string) string {
	return s.escrowBaseID + "-" + currencyCode
}

func (s *SettlementEngine) ensureEscrowAccount(currency model.Currency) (string, error) {
	escrowID := s.escrowAccountID(currency.Code)
	if _, err := s.ledger.GetAccount(escrowID); err == nil {
		return escrowID, nil
	}
	_, err := s.ledger.CreateAccount(AccountSpec{
		AccountID: escrowID,
		Name:      "System Escrow (" + currency.Code + ")",
		Type:      model.AccountTypeEscrow,
		Currency:  currency.Code,
	})
	if err != nil {
		var dup *model.DuplicateAccountError
		if errors.As(err, &dup) {
			return escrowID, nil
		}
		return "", err
	}
	return escrowID, nil
}

// IntentSpec describes a payment to be created. IdempotencyKey is optional;
// one is generated when empty, which makes the request non-replayable.
type IntentSpec struct {
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
	IdempotencyKey     string
	Description        string
	Reference          string
	MetaData           map[string]interface{}
}

// CreateIntent declares a payment. No funds move. Replaying the same
// idempotency key with identical parameters returns the original intent;
// replaying it with different parameters fails.
func (s *SettlementEngine) CreateIntent(spec IntentSpec) (*model.PaymentIntent, error) {
	currencyCode := spec.Currency
	if currencyCode == "" {
		currencyCode = "USD"
	}
	currency, err := s.ledger.registry.Get(currencyCode)
	if err != nil {
		return nil, err
	}
	amount := currency.Quantize(spec.Amount)
	if !amount.IsPositive() {
		return nil, &model.NegativeAmountError{Amount: amount}
	}

	idempotencyKey := spec.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = model.GenerateUUIDWithSuffix("idk")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.checkIdempotency(idempotencyKey, spec.SourceAccount, spec.DestinationAccount, currency.Code, amount); err != nil {
		return nil, err
	} else if existing != nil {
		existing.AddEvent("idempotent_replay", map[string]interface{}{"action": "create_intent"})
		return existing, nil
	}

	if _, err := s.ledger.GetAccount(spec.SourceAccount); err != nil {
		return nil, err
	}
	if _, err := s.ledger.GetAccount(spec.DestinationAccount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	intent := &model.PaymentIntent{
		IntentID:           model.GenerateUUIDWithSuffix("int"),
		IdempotencyKey:     idempotencyKey,
		SourceAccount:      spec.SourceAccount,
		DestinationAccount: spec.DestinationAccount,
		Amount:             amount,
		Currency:           currency.Code,
		Status:             model.IntentStatusCreated,
		Description:        spec.Description,
		Reference:          spec.Reference,
		CreatedAt:          now,
		UpdatedAt:          now,
		MetaData:           spec.MetaData,
	}
	intent.AddEvent("created", map[string]interface{}{
		"source":      spec.SourceAccount,
		"destination": spec.DestinationAccount,
		"amount":      amount.String(),
	})

	s.intents[intent.IntentID] = intent
	s.idempotencyIndex[idempotencyKey] = intent.IntentID
	return intent, nil
}

// checkIdempotency returns the existing intent when the key was already used
// with identical parameters. Caller holds s.mu.
func (s *SettlementEngine) checkIdempotency(key, source, destination, currencyCode string, amount decimal.Decimal) (*model.PaymentIntent, error) {
	existingID, used := s.idempotencyIndex[key]
	if !used {
		return nil, nil
	}
	existing := s.intents[existingID]
	if existing.SourceAccount != source ||
		existing.DestinationAccount != destination ||
		existing.Currency != currencyCode ||
		!existing.Amount.Equal(amount) {
		return nil, &model.IdempotencyViolationError{
			IdempotencyKey:   key,
			OriginalIntentID: existingID,
		}
	}
	return existing, nil
}

// Authorize holds the intent's amount in escrow using the configured
// authorization TTL.
func (s *SettlementEngine) Authorize(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.AuthorizeWithTTL(ctx, intentID, s.authTTL)
}

// AuthorizeWithTTL holds the intent's amount in escrow. The TTL only stamps
// authorization_expires_at for the caller to act on; the engine never expires
// an authorization on its own.
func (s *SettlementEngine) AuthorizeWithTTL(ctx context.Context, intentID string, authTTL time.Duration) (*model.PaymentIntent, error) {
	release, err := s.lockIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	defer release()

	intent, err := s.GetIntent(intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status != model.IntentStatusCreated {
		if intent.Status == model.IntentStatusAuthorized {
			s.mu.Lock()
			intent.AddEvent("idempotent_replay", map[string]interface{}{"action": "authorize"})
			s.mu.Unlock()
			return intent, nil
		}
		return nil, &model.LifecycleViolationError{
			IntentID:        intentID,
			CurrentState:    intent.Status,
			AttemptedAction: "authorize",
		}
	}

	currency, err := s.ledger.registry.Get(intent.Currency)
	if err != nil {
		return nil, err
	}
	escrowID, err := s.ensureEscrowAccount(currency)
	if err != nil {
		return nil, err
	}

	transaction, err := s.ledger.Transfer(ctx,
		intent.SourceAccount, escrowID, intent.Amount,
		"Authorization hold for "+intentID, "AUTH-"+intentID)
	if err != nil {
		var insufficient *model.InsufficientFundsError
		if errors.As(err, &insufficient) {
			s.mu.Lock()
			intent.Status = model.IntentStatusFailed
			intent.AddEvent("authorization_failed", map[string]interface{}{"reason": "insufficient_funds"})
			s.mu.Unlock()
			logrus.Errorf("authorization failed for %s: %v", intentID, err)
		}
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(authTTL)
	s.mu.Lock()
	intent.Status = model.IntentStatusAuthorized
	intent.AuthorizedAt = &now
	intent.AuthorizationExpiresAt = &expiresAt
	intent.HoldTransactionID = transaction.TransactionID
	intent.AddEvent("authorized", map[string]interface{}{
		"hold_transaction_id": transaction.TransactionID,
		"expires_at":          expiresAt.Format(time.RFC3339Nano),
	})
	s.totalAuthorized = s.totalAuthorized.Add(intent.Amount)
	s.mu.Unlock()

	return intent, nil
}

// Capture settles the full authorized amount.
func (s *SettlementEngine) Capture(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	return s.capture(ctx, intentID, nil)
}

// CaptureAmount settles part of the authorized amount and releases the
// remainder from escrow back to the source.
func (s *SettlementEngine) CaptureAmount(ctx context.Context, intentID string, amount decimal.Decimal) (*model.PaymentIntent, error) {
	return s.capture(ctx, intentID, &amount)
}

func (s *SettlementEngine) capture(ctx context.Context, intentID string, amount *decimal.Decimal) (*model.PaymentIntent, error) {
	release, err := s.lockIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	defer release()

	intent, err := s.GetIntent(intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status == model.IntentStatusCaptured {
		s.mu.Lock()
		intent.AddEvent("idempotent_replay", map[string]interface{}{"action": "capture"})
		s.mu.Unlock()
		return intent, nil
	}
	if intent.Status != model.IntentStatusAuthorized {
		return nil, &model.LifecycleViolationError{
			IntentID:        intentID,
			CurrentState:    intent.Status,
			AttemptedAction: "capture",
		}
	}

	currency, err := s.ledger.registry.Get(intent.Currency)
	if err != nil {
		return nil, err
	}

	captureAmount := intent.Amount
	if amount != nil {
		captureAmount = currency.Quantize(*amount)
	}
	if !captureAmount.IsPositive() {
		return nil, &model.NegativeAmountError{Amount: captureAmount}
	}
	if captureAmount.GreaterThan(intent.RemainingCapturable()) {
		return nil, &model.AmountExceedsAuthorizationError{
			IntentID:   intentID,
			Authorized: intent.RemainingCapturable(),
			Requested:  captureAmount,
		}
	}

	escrowID := s.escrowAccountID(intent.Currency)
	transaction, err := s.ledger.Transfer(ctx,
		escrowID, intent.DestinationAccount, captureAmount,
		"Capture for "+intentID, "CAP-"+intentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	captureType := "full"
	if !captureAmount.Equal(intent.Amount) {
		captureType = "partial"
	}
	s.mu.Lock()
	intent.Status = model.IntentStatusCaptured
	intent.CapturedAt = &now
	intent.CapturedAmount = &captureAmount
	intent.CaptureTransactionID = transaction.TransactionID
	intent.AddEvent("captured", map[string]interface{}{
		"capture_transaction_id": transaction.TransactionID,
		"amount":                 captureAmount.String(),
		"capture_type":           captureType,
	})
	s.totalCaptured = s.totalCaptured.Add(captureAmount)
	s.mu.Unlock()

	// Partial capture: return the un-captured remainder to the source.
	remaining := intent.Amount.Sub(captureAmount)
	if remaining.IsPositive() {
		if _, err := s.ledger.Transfer(ctx,
			escrowID, intent.SourceAccount, remaining,
			"Partial release for "+intentID, "PREL-"+intentID); err != nil {
			return nil, err
		}
		s.mu.Lock()
		intent.AddEvent("partial_release", map[string]interface{}{"amount": remaining.String()})
		s.mu.Unlock()
	}

	return intent, nil
}

// Void cancels an intent, releasing any held funds back to the source.
func (s *SettlementEngine) Void(ctx context.Context, intentID, reason string) (*model.PaymentIntent, error) {
	release, err := s.lockIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	defer release()

	intent, err := s.GetIntent(intentID)
	if err != nil {
		return nil, err
	}

	if intent.Status == model.IntentStatusVoided {
		s.mu.Lock()
		intent.AddEvent("idempotent_replay", map[string]interface{}{"action": "void"})
		s.mu.Unlock()
		return intent, nil
	}
	if !intent.CanVoid() {
		return nil, &model.LifecycleViolationError{
			IntentID:        intentID,
			CurrentState:    intent.Status,
			AttemptedAction: "void",
		}
	}

	var voidTransactionID string
	if intent.Status == model.IntentStatusAuthorized {
		escrowID := s.escrowAccountID(intent.Currency)
		description := "Release escrow"
		if reason != "" {
			description = "Release escrow: " + reason
		}
		transaction, err := s.ledger.Transfer(ctx,
			escrowID, intent.SourceAccount, intent.Amount,
			description, "REL-"+intentID)
		if err != nil {
			return nil, err
		}
		voidTransactionID = transaction.TransactionID
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if voidTransactionID != "" {
		intent.VoidTransactionID = voidTransactionID
	}
	intent.Status = model.IntentStatusVoided
	intent.VoidedAt = &now
	intent.VoidReason = reason
	intent.AddEvent("voided", map[string]interface{}{"reason": reason})
	s.totalVoided = s.totalVoided.Add(intent.Amount)
	s.mu.Unlock()

	return intent, nil
}

// AuthorizeAndCapture creates, authorizes and captures in one call, for
// immediate payments where no hold period is needed.
func (s *SettlementEngine) AuthorizeAndCapture(ctx context.Context, spec IntentSpec) (*model.PaymentIntent, error) {
	intent, err := s.CreateIntent(spec)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, intent.IntentID); err != nil {
		return nil, err
	}
	return s.Capture(ctx, intent.IntentID)
}

// GetIntent returns an intent by id.
func (s *SettlementEngine) GetIntent(intentID string) (*model.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return nil, &model.IntentNotFoundError{IntentID: intentID}
	}
	return intent, nil
}

// GetIntentByIdempotencyKey returns the intent created under the given key,
// or nil when the key is unused.
func (s *SettlementEngine) GetIntentByIdempotencyKey(key string) *model.PaymentIntent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intentID, ok := s.idempotencyIndex[key]
	if !ok {
		return nil
	}
	return s.intents[intentID]
}

// GetAuditLog returns a copy of the complete event trail for an intent.
func (s *SettlementEngine) GetAuditLog(intentID string) ([]model.IntentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[intentID]
	if !ok {
		return nil, &model.IntentNotFoundError{IntentID: intentID}
	}
	events := make([]model.IntentEvent, len(intent.Events))
	copy(events, intent.Events)
	return events, nil
}

// SettlementMetrics aggregates settlement engine activity.
type SettlementMetrics struct {
	TotalIntents    int                        `json:"total_intents"`
	ByStatus        map[model.IntentStatus]int `json:"by_status"`
	TotalAuthorized decimal.Decimal            `json:"total_authorized"`
	TotalCaptured   decimal.Decimal            `json:"total_captured"`
	TotalVoided     decimal.Decimal            `json:"total_voided"`
}

// GetMetrics returns a snapshot of engine activity.
func (s *SettlementEngine) GetMetrics() SettlementMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStatus := make(map[model.IntentStatus]int)
	for _, intent := range s.intents {
		byStatus[intent.Status]++
	}
	return SettlementMetrics{
		TotalIntents:    len(s.intents),
		ByStatus:        byStatus,
		TotalAuthorized: s.totalAuthorized,
		TotalCaptured:   s.totalCaptured,
		TotalVoided:     s.totalVoided,
	}
}

// lockIntent serializes the status-check-then-post section per intent, so a
// capture and a void racing on the same intent cannot interleave.
func (s *SettlementEngine) lockIntent(ctx context.Context, intentID string) (func(), error) {
	locker := lock.NewLocker(s.locks, intentID, model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, intentLockWait); err != nil {
		return nil, err
	}
	return func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("intent lock release error: ", err)
		}
	}, nil
}
