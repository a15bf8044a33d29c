package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FeeComponent is one line of a fee breakdown, e.g. the percentage part of a
// composite strategy.
type FeeComponent struct {
	Type          string           `json:"type"`
	Rate          *decimal.Decimal `json:"rate,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Description   string           `json:"description,omitempty"`
	TierThreshold *decimal.Decimal `json:"tier_threshold,omitempty"`
}

// FeeBreakdown is the complete result of a fee calculation. It always holds
// gross == net + fee exactly; construction fails otherwise.
type FeeBreakdown struct {
	CalculationID string          `json:"calculation_id"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	Components    []FeeComponent  `json:"fee_components"`
	StrategyName  string          `json:"strategy_name"`
	CalculatedAt  time.Time       `json:"calculated_at"`
}

// NewFeeBreakdown builds a breakdown and enforces revenue conservation.
// Amounts are expected to be quantized already; the check is exact.
func NewFeeBreakdown(gross, net, fee decimal.Decimal, components []FeeComponent, strategyName string) (*FeeBreakdown, error) {
	if !gross.Equal(net.Add(fee)) {
		return nil, fmt.Errorf(
			"revenue conservation violated: gross (%s) != net (%s) + fee (%s)",
			gross, net, fee,
		)
	}
	return &FeeBreakdown{
		CalculationID: GenerateUUIDWithSuffix("fee"),
		GrossAmount:   gross,
		NetAmount:     net,
		TotalFee:      fee,
		Components:    components,
		StrategyName:  strategyName,
		CalculatedAt:  time.Now().UTC(),
	}, nil
}

// FeePercentage returns the effective fee as a percentage of gross.
func (b *FeeBreakdown) FeePercentage() decimal.Decimal {
	if b.GrossAmount.IsZero() {
		return decimal.Zero
	}
	return b.TotalFee.Div(b.GrossAmount).Mul(decimal.NewFromInt(100)).RoundBank(2)
}
