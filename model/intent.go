package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntentStatus is the payment-intent state machine.
//
//	CREATED → AUTHORIZED → CAPTURED (terminal)
//	CREATED | AUTHORIZED → VOIDED (terminal)
//	any → FAILED (terminal)
//
// No other transition is legal.
type IntentStatus string

const (
	IntentStatusCreated    IntentStatus = "CREATED"
	IntentStatusAuthorized IntentStatus = "AUTHORIZED"
	IntentStatusCaptured   IntentStatus = "CAPTURED"
	IntentStatusVoided     IntentStatus = "VOIDED"
	IntentStatusFailed     IntentStatus = "FAILED"
)

// IsTerminal reports whether the status is final.
func (s IntentStatus) IsTerminal() bool {
	switch s {
	case IntentStatusCaptured, IntentStatusVoided, IntentStatusFailed:
		return true
	}
	return false
}

// IntentEvent is one entry in a payment intent's audit trail.
type IntentEvent struct {
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// PaymentIntent is the lifecycle object for one logical payment, from
// creation through settlement or cancellation. Funds move in two phases:
// authorize holds the amount in escrow, capture releases it to the
// destination. Void releases the hold back to the source.
type PaymentIntent struct {
	IntentID           string          `json:"intent_id"`
	IdempotencyKey     string          `json:"idempotency_key"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Status             IntentStatus    `json:"status"`

	AuthorizedAt           *time.Time `json:"authorized_at,omitempty"`
	AuthorizationExpiresAt *time.Time `json:"authorization_expires_at,omitempty"`
	HoldTransactionID      string     `json:"hold_transaction_id,omitempty"`

	CapturedAt           *time.Time       `json:"captured_at,omitempty"`
	CapturedAmount       *decimal.Decimal `json:"captured_amount,omitempty"`
	CaptureTransactionID string           `json:"capture_transaction_id,omitempty"`

	VoidedAt          *time.Time `json:"voided_at,omitempty"`
	VoidReason        string     `json:"void_reason,omitempty"`
	VoidTransactionID string     `json:"void_transaction_id,omitempty"`

	Description string                 `json:"description,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	MetaData    map[string]interface{} `json:"meta_data,omitempty"`

	Events []IntentEvent `json:"events"`
}

// AddEvent records an event in the intent's audit trail.
func (i *PaymentIntent) AddEvent(eventType string, details map[string]interface{}) {
	now := time.Now().UTC()
	i.Events = append(i.Events, IntentEvent{
		EventType: eventType,
		Timestamp: now,
		Details:   details,
	})
	i.UpdatedAt = now
}

// CanVoid reports whether the intent can still be voided.
func (i *PaymentIntent) CanVoid() bool {
	return i.Status == IntentStatusCreated || i.Status == IntentStatusAuthorized
}

// RemainingCapturable is the amount still available to capture. Zero unless
// the intent is currently authorized.
func (i *PaymentIntent) RemainingCapturable() decimal.Decimal {
	if i.Status != IntentStatusAuthorized {
		return decimal.Zero
	}
	captured := decimal.Zero
	if i.CapturedAmount != nil {
		captured = *i.CapturedAmount
	}
	return i.Amount.Sub(captured)
}
