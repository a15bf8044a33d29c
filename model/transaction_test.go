package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingTransaction() *Transaction {
	return &Transaction{
		TransactionID: GenerateUUIDWithSuffix("txn"),
		Description:   "test",
		Reference:     "ref",
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestTransaction_AddEntry(t *testing.T) {
	transaction := pendingTransaction()

	entry, err := transaction.Debit("acc-1", decimal.RequireFromString("10.00"), "memo")
	require.NoError(t, err)
	assert.Equal(t, transaction.TransactionID, entry.TransactionID)
	assert.Equal(t, EntryDirectionDebit, entry.Direction)
	assert.Contains(t, entry.EntryID, "ent_")

	_, err = transaction.Credit("acc-2", decimal.RequireFromString("10.00"), "")
	require.NoError(t, err)
	assert.True(t, transaction.IsBalanced())
}

func TestTransaction_AddEntry_NegativeAmount(t *testing.T) {
	transaction := pendingTransaction()
	_, err := transaction.Debit("acc-1", decimal.RequireFromString("-1.00"), "")
	var negative *NegativeAmountError
	require.ErrorAs(t, err, &negative)
}

func TestTransaction_AddEntry_AfterPost(t *testing.T) {
	transaction := pendingTransaction()
	transaction.Status = StatusPosted

	_, err := transaction.Debit("acc-1", decimal.NewFromInt(1), "")
	var immutable *ImmutabilityViolationError
	require.ErrorAs(t, err, &immutable)
	assert.Equal(t, transaction.TransactionID, immutable.TransactionID)
}

func TestTransaction_Totals(t *testing.T) {
	transaction := pendingTransaction()
	_, err := transaction.Debit("a", decimal.RequireFromString("30.00"), "")
	require.NoError(t, err)
	_, err = transaction.Debit("b", decimal.RequireFromString("20.00"), "")
	require.NoError(t, err)
	_, err = transaction.Credit("c", decimal.RequireFromString("50.00"), "")
	require.NoError(t, err)

	assert.Equal(t, "50", transaction.TotalDebits().String())
	assert.Equal(t, "50", transaction.TotalCredits().String())
	assert.True(t, transaction.IsBalanced())
}

func TestTransaction_HashDeterministic(t *testing.T) {
	transaction := pendingTransaction()
	_, err := transaction.Debit("a", decimal.NewFromInt(5), "")
	require.NoError(t, err)
	transaction.PreviousHash = GenesisHash("ldg_x", time.Now().UTC())

	first := transaction.ComputeHash()
	second := transaction.ComputeHash()
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestTransaction_HashCoversContent(t *testing.T) {
	transaction := pendingTransaction()
	_, err := transaction.Debit("a", decimal.NewFromInt(5), "")
	require.NoError(t, err)

	before := transaction.ComputeHash()
	transaction.Entries[0].Amount = decimal.NewFromInt(6)
	assert.NotEqual(t, before, transaction.ComputeHash())
}

func TestTransaction_HashExcludesStatus(t *testing.T) {
	transaction := pendingTransaction()
	_, err := transaction.Debit("a", decimal.NewFromInt(5), "")
	require.NoError(t, err)

	before := transaction.ComputeHash()
	transaction.Status = StatusReversed
	assert.Equal(t, before, transaction.ComputeHash())
}

func TestGenesisHash_Deterministic(t *testing.T) {
	createdAt := time.Now().UTC()
	assert.Equal(t, GenesisHash("ldg_1", createdAt), GenesisHash("ldg_1", createdAt))
	assert.NotEqual(t, GenesisHash("ldg_1", createdAt), GenesisHash("ldg_2", createdAt))
}

func TestAccountType_DebitIncreasesBalance(t *testing.T) {
	increases := []AccountType{AccountTypeAsset, AccountTypeExpense, AccountTypeSettlement, AccountTypeEscrow}
	decreases := []AccountType{AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeFeeRevenue, AccountTypeSuspense}

	for _, at := range increases {
		assert.True(t, at.DebitIncreasesBalance(), string(at))
	}
	for _, at := range decreases {
		assert.False(t, at.DebitIncreasesBalance(), string(at))
	}
}

func TestAccount_ApplyEntries(t *testing.T) {
	registry := NewCurrencyRegistry()
	currency, err := registry.Get("USD")
	require.NoError(t, err)

	asset := &Account{AccountID: "a", Type: AccountTypeAsset, Currency: currency, Balance: decimal.Zero}
	asset.ApplyDebit(decimal.RequireFromString("100.00"))
	asset.ApplyCredit(decimal.RequireFromString("40.00"))
	assert.Equal(t, "60", asset.Balance.String())

	liability := &Account{AccountID: "l", Type: AccountTypeLiability, Currency: currency, Balance: decimal.Zero}
	liability.ApplyCredit(decimal.RequireFromString("100.00"))
	liability.ApplyDebit(decimal.RequireFromString("40.00"))
	assert.Equal(t, "60", liability.Balance.String())
}

func TestAccount_ProjectedChange(t *testing.T) {
	registry := NewCurrencyRegistry()
	currency, _ := registry.Get("USD")
	amount := decimal.NewFromInt(10)

	asset := &Account{Type: AccountTypeAsset, Currency: currency}
	assert.Equal(t, "10", asset.ProjectedChange(EntryDirectionDebit, amount).String())
	assert.Equal(t, "-10", asset.ProjectedChange(EntryDirectionCredit, amount).String())

	revenue := &Account{Type: AccountTypeRevenue, Currency: currency}
	assert.Equal(t, "-10", revenue.ProjectedChange(EntryDirectionDebit, amount).String())
	assert.Equal(t, "10", revenue.ProjectedChange(EntryDirectionCredit, amount).String())
}

func TestPaymentIntent_Lifecycle(t *testing.T) {
	intent := &PaymentIntent{
		IntentID: GenerateUUIDWithSuffix("int"),
		Amount:   decimal.RequireFromString("100.00"),
		Status:   IntentStatusCreated,
	}
	assert.True(t, intent.CanVoid())
	assert.False(t, intent.Status.IsTerminal())
	assert.True(t, intent.RemainingCapturable().IsZero())

	intent.Status = IntentStatusAuthorized
	assert.True(t, intent.CanVoid())
	assert.Equal(t, "100", intent.RemainingCapturable().String())

	captured := decimal.RequireFromString("60.00")
	intent.CapturedAmount = &captured
	assert.Equal(t, "40", intent.RemainingCapturable().String())

	intent.Status = IntentStatusCaptured
	assert.True(t, intent.Status.IsTerminal())
	assert.False(t, intent.CanVoid())
}

func TestPaymentIntent_AddEvent(t *testing.T) {
	intent := &PaymentIntent{IntentID: GenerateUUIDWithSuffix("int")}
	before := intent.UpdatedAt

	intent.AddEvent("created", map[string]interface{}{"amount": "10"})
	require.Len(t, intent.Events, 1)
	assert.Equal(t, "created", intent.Events[0].EventType)
	assert.True(t, intent.UpdatedAt.After(before))
}

func TestNewFeeBreakdown_EnforcesConservation(t *testing.T) {
	_, err := NewFeeBreakdown(
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("97.00"),
		decimal.RequireFromString("3.00"),
		nil, "test")
	require.NoError(t, err)

	_, err = NewFeeBreakdown(
		decimal.RequireFromString("100.00"),
		decimal.RequireFromString("97.00"),
		decimal.RequireFromString("2.00"),
		nil, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revenue conservation violated")
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("txn")
	assert.Contains(t, id, "txn_")
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("txn"))
}
