package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a ledger transaction.
type TransactionStatus string

const (
	// StatusPending marks a mutable transaction builder that has not been
	// posted. Entries may still be added and the post may be retried.
	StatusPending TransactionStatus = "PENDING"
	// StatusPosted marks a committed, permanently immutable transaction.
	StatusPosted TransactionStatus = "POSTED"
	// StatusReversed marks a posted transaction that a later reversing
	// transaction has undone. Its entries remain untouched.
	StatusReversed TransactionStatus = "REVERSED"
)

// EntryDirection marks an entry as a debit or a credit.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

// Entry is a single debit or credit line within a transaction. Entries never
// exist outside a transaction.
type Entry struct {
	EntryID       string                 `json:"entry_id"`
	TransactionID string                 `json:"transaction_id"`
	AccountID     string                 `json:"account_id"`
	Amount        decimal.Decimal        `json:"amount"`
	Direction     EntryDirection         `json:"direction"`
	Memo          string                 `json:"memo,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	MetaData      map[string]interface{} `json:"meta_data,omitempty"`
}

func (e *Entry) canonical() map[string]interface{} {
	return map[string]interface{}{
		"entry_id":   e.EntryID,
		"account_id": e.AccountID,
		"amount":     e.Amount.String(),
		"direction":  string(e.Direction),
		"memo":       e.Memo,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Transaction is an atomic unit of value transfer containing balanced entries.
// While PENDING it is a mutable builder; once POSTED its entries can never
// change and correction happens only via a reversing transaction.
type Transaction struct {
	TransactionID string                 `json:"id"`
	Description   string                 `json:"description"`
	Reference     string                 `json:"reference"`
	Entries       []*Entry               `json:"entries"`
	Status        TransactionStatus      `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
	PostedAt      *time.Time             `json:"posted_at,omitempty"`
	PreviousHash  string                 `json:"previous_hash"`
	Hash          string                 `json:"hash"`
	MetaData      map[string]interface{} `json:"meta_data,omitempty"`
}

// AddEntry appends an entry to a pending transaction. Posting freezes the
// transaction; any later append fails with ImmutabilityViolationError.
func (t *Transaction) AddEntry(accountID string, amount decimal.Decimal, direction EntryDirection, memo string) (*Entry, error) {
	if t.Status == StatusPosted || t.Status == StatusReversed {
		return nil, &ImmutabilityViolationError{TransactionID: t.TransactionID}
	}
	if amount.IsNegative() {
		return nil, &NegativeAmountError{Amount: amount}
	}
	entry := &Entry{
		EntryID:       GenerateUUIDWithSuffix("ent"),
		TransactionID: t.TransactionID,
		AccountID:     accountID,
		Amount:        amount,
		Direction:     direction,
		Memo:          memo,
		CreatedAt:     time.Now().UTC(),
	}
	t.Entries = append(t.Entries, entry)
	return entry, nil
}

// Debit appends a debit entry.
func (t *Transaction) Debit(accountID string, amount decimal.Decimal, memo string) (*Entry, error) {
	return t.AddEntry(accountID, amount, EntryDirectionDebit, memo)
}

// Credit appends a credit entry.
func (t *Transaction) Credit(accountID string, amount decimal.Decimal, memo string) (*Entry, error) {
	return t.AddEntry(accountID, amount, EntryDirectionCredit, memo)
}

// TotalDebits sums all debit entries.
func (t *Transaction) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range t.Entries {
		if entry.Direction == EntryDirectionDebit {
			total = total.Add(entry.Amount)
		}
	}
	return total
}

// TotalCredits sums all credit entries.
func (t *Transaction) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range t.Entries {
		if entry.Direction == EntryDirectionCredit {
			total = total.Add(entry.Amount)
		}
	}
	return total
}

// IsBalanced reports whether total debits equal total credits.
func (t *Transaction) IsBalanced() bool {
	return t.TotalDebits().Equal(t.TotalCredits())
}

// ComputeHash computes the SHA-256 hash of the transaction's canonical
// content plus the previous chain hash. The canonical form is sorted-key
// JSON over the content fields; transaction status is deliberately excluded
// so a later reversal mark does not break the chain.
func (t *Transaction) ComputeHash() string {
	entries := make([]interface{}, len(t.Entries))
	for i, entry := range t.Entries {
		entries[i] = entry.canonical()
	}
	return canonicalHash(map[string]interface{}{
		"transaction_id": t.TransactionID,
		"entries":        entries,
		"description":    t.Description,
		"reference":      t.Reference,
		"created_at":     t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":  t.PreviousHash,
	})
}

// GenesisHash computes the chain anchor for a new ledger.
func GenesisHash(ledgerID string, createdAt time.Time) string {
	return canonicalHash(map[string]interface{}{
		"ledger_id":  ledgerID,
		"created_at": createdAt.UTC().Format(time.RFC3339Nano),
		"message":    "IN THE BEGINNING, THERE WAS THE LEDGER",
	})
}
