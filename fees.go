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
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/chainbridge/bank/config"
	"github.com/chainbridge/bank/model"
)

// feePrecision is the fixed precision for fee math. Fees are calculated in
// the ledger's pricing currency at two decimal places, banker's rounding.
const feePrecision int32 = 2

// FeeStrategy calculates the fee for a gross amount. Implementations must be
// deterministic, round half-even, and never return a fee above gross.
type FeeStrategy interface {
	Name() string
	Calculate(amount decimal.Decimal) (*model.FeeBreakdown, error)
}

func validateFeeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.RoundBank(feePrecision)
	if amount.IsNegative() {
		return decimal.Zero, &model.NegativeAmountError{Amount: amount}
	}
	return amount, nil
}

func validateFee(gross, fee decimal.Decimal) (decimal.Decimal, error) {
	fee = fee.RoundBank(feePrecision)
	if fee.GreaterThan(gross) {
		return decimal.Zero, &model.FeeExceedsAmountError{Gross: gross, Fee: fee}
	}
	return fee, nil
}

// FlatFeeStrategy charges a fixed fee regardless of amount.
type FlatFeeStrategy struct {
	flatFee decimal.Decimal
	name    string
}

func NewFlatFeeStrategy(flatFee decimal.Decimal, name string) (*FlatFeeStrategy, error) {
	if flatFee.IsNegative() {
		return nil, errors.Errorf("invalid fee configuration: flat fee cannot be negative: %s", flatFee)
	}
	flatFee = flatFee.RoundBank(feePrecision)
	if name == "" {
		name = "Flat $" + flatFee.StringFixed(feePrecision)
	}
	return &FlatFeeStrategy{flatFee: flatFee, name: name}, nil
}

func (f *FlatFeeStrategy) Name() string { return f.name }

func (f *FlatFeeStrategy) Calculate(amount decimal.Decimal) (*model.FeeBreakdown, error) {
	gross, err := validateFeeAmount(amount)
	if err != nil {
		return nil, err
	}
	fee, err := validateFee(gross, f.flatFee)
	if err != nil {
		return nil, err
	}
	return model.NewFeeBreakdown(gross, gross.Sub(fee), fee, []model.FeeComponent{
		{Type: "flat", Amount: fee, Description: "Flat fee"},
	}, f.name)
}

// PercentageFeeStrategy charges a percentage of the gross amount.
type PercentageFeeStrategy struct {
	percentage decimal.Decimal
	rate       decimal.Decimal
	name       string
}

func NewPercentageFeeStrategy(percentage decimal.Decimal, name string) (*PercentageFeeStrategy, error) {
	if percentage.IsNegative() {
		return nil, errors.Errorf("invalid fee configuration: percentage cannot be negative: %s", percentage)
	}
	if percentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.Errorf("invalid fee configuration: percentage cannot exceed 100%%: %s", percentage)
	}
	if name == "" {
		name = percentage.String() + "% Fee"
	}
	return &PercentageFeeStrategy{
		percentage: percentage,
		rate:       percentage.Div(decimal.NewFromInt(100)),
		name:       name,
	}, nil
}

func (p *PercentageFeeStrategy) Name() string { return p.name }

func (p *PercentageFeeStrategy) Calculate(amount decimal.Decimal) (*model.FeeBreakdown, error) {
	gross, err := validateFeeAmount(amount)
	if err != nil {
		return nil, err
	}
	fee, err := validateFee(gross, gross.Mul(p.rate))
	if err != nil {
		return nil, err
	}
	rate := p.percentage
	return model.NewFeeBreakdown(gross, gross.Sub(fee), fee, []model.FeeComponent{
		{
			Type:        "percentage",
			Rate:        &rate,
			Amount:      fee,
			Description: p.percentage.String() + "% of " + gross.StringFixed(feePrecision),
		},
	}, p.name)
}

// CompositeFeeStrategy sums multiple strategies, each applied to the gross
// amount, e.g. 2.9% + $0.30.
type CompositeFeeStrategy struct {
	strategies []FeeStrategy
	name       string
}

func NewCompositeFeeStrategy(strategies []FeeStrategy, name string) (*CompositeFeeStrategy, error) {
	if len(strategies) == 0 {
		return nil, errors.New("invalid fee configuration: composite strategy requires at least one sub-strategy")
	}
	if name == "" {
		for i, s := range strategies {
			if i > 0 {
				name += " + "
			}
			name += s.Name()
		}
	}
	return &CompositeFeeStrategy{strategies: strategies, name: name}, nil
}

func (c *CompositeFeeStrategy) Name() string { return c.name }

func (c *CompositeFeeStrategy) Calculate(amount decimal.Decimal) (*model.FeeBreakdown, error) {
	gross, err := validateFeeAmount(amount)
	if err != nil {
		return nil, err
	}

	totalFee := decimal.Zero
	var components []model.FeeComponent
	for _, strategy := range c.strategies {
		breakdown, err := strategy.Calculate(gross)
		if err != nil {
			return nil, err
		}
		totalFee = totalFee.Add(breakdown.TotalFee)
		components = append(components, breakdown.Components...)
	}

	totalFee, err = validateFee(gross, totalFee)
	if err != nil {
		return nil, err
	}
	return model.NewFeeBreakdown(gross, gross.Sub(totalFee), totalFee, components, c.name)
}

// FeeTier binds a minimum amount to the strategy applied at and above it.
type FeeTier struct {
	Threshold decimal.Decimal
	Strategy  FeeStrategy
}

// TieredFeeStrategy picks a sub-strategy by amount: the tier with the highest
// threshold not exceeding the gross amount applies.
type TieredFeeStrategy struct {
	tiers []FeeTier
	name  string
}

func NewTieredFeeStrategy(tiers []FeeTier, name string) (*TieredFeeStrategy, error) {
	if len(tiers) == 0 {
		return nil, errors.New("invalid fee configuration: tiered strategy requires at least one tier")
	}
	sorted := make([]FeeTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Threshold.LessThan(sorted[j].Threshold)
	})
	if name == "" {
		name = "Tiered Fee"
	}
	return &TieredFeeStrategy{tiers: sorted, name: name}, nil
}

func (t *TieredFeeStrategy) Name() string { return t.name }

func (t *TieredFeeStrategy) Calculate(amount decimal.Decimal) (*model.FeeBreakdown, error) {
	gross, err := validateFeeAmount(amount)
	if err != nil {
		return nil, err
	}

	applicable := t.tiers[0]
	for _, tier := range t.tiers {
		if gross.GreaterThanOrEqual(tier.Threshold) {
			applicable = tier
		}
	}

	breakdown, err := applicable.Strategy.Calculate(gross)
	if err != nil {
		return nil, err
	}
	threshold := applicable.Threshold
	for i := range breakdown.Components {
		breakdown.Components[i].TierThreshold = &threshold
	}
	return model.NewFeeBreakdown(
		breakdown.GrossAmount, breakdown.NetAmount, breakdown.TotalFee,
		breakdown.Components,
		t.name+" (tier >= "+threshold.String()+")",
	)
}

// FeeEngine calculates fees, keeps an audit history and enforces revenue
// conservation: gross == net + fee on every breakdown it returns.
type FeeEngine struct {
	mu               sync.RWMutex
	builtins         map[string]FeeStrategy
	customStrategies map[string]FeeStrategy
	defaultStrategy  FeeStrategy

	calculations        []*model.FeeBreakdown
	totalFeesCalculated decimal.Decimal
	totalCalculations   int

	netSolveTolerance decimal.Decimal
	netSolveBudget    int
}

// NewFeeEngine creates a fee engine with the built-in strategy registry. A
// nil defaultStrategy falls back to the zero-fee built-in.
func NewFeeEngine(defaultStrategy FeeStrategy) (*FeeEngine, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	tolerance, err := decimal.NewFromString(cnf.FeeEngine.NetSolveTolerance)
	if err != nil {
		return nil, errors.Wrap(err, "parsing net solve tolerance")
	}

	builtins := builtinStrategies()
	if defaultStrategy == nil {
		defaultStrategy = builtins["zero"]
	}
	return &FeeEngine{
		builtins:            builtins,
		customStrategies:    make(map[string]FeeStrategy),
		defaultStrategy:     defaultStrategy,
		totalFeesCalculated: decimal.Zero,
		netSolveTolerance:   tolerance,
		netSolveBudget:      cnf.FeeEngine.NetSolveIterations,
	}, nil
}

// builtinStrategies constructs the standard registry. Inputs are constants,
// so the constructors cannot fail.
func builtinStrategies() map[string]FeeStrategy {
	pct29, _ := NewPercentageFeeStrategy(decimal.RequireFromString("2.9"), "")
	flat30, _ := NewFlatFeeStrategy(decimal.RequireFromString("0.30"), "")
	stripe, _ := NewCompositeFeeStrategy([]FeeStrategy{pct29, flat30}, "Stripe Standard (2.9% + $0.30)")
	wireDomestic, _ := NewFlatFeeStrategy(decimal.RequireFromString("25.00"), "Domestic Wire ($25)")
	wireInternational, _ := NewFlatFeeStrategy(decimal.RequireFromString("45.00"), "International Wire ($45)")
	ach, _ := NewFlatFeeStrategy(decimal.RequireFromString("0.50"), "ACH Standard ($0.50)")
	pct1, _ := NewPercentageFeeStrategy(decimal.RequireFromString("1.0"), "1% Fee")
	pct2, _ := NewPercentageFeeStrategy(decimal.RequireFromString("2.0"), "2% Fee")
	pct3, _ := NewPercentageFeeStrategy(decimal.RequireFromString("3.0"), "3% Fee")
	zero, _ := NewFlatFeeStrategy(decimal.Zero, "No Fee")

	return map[string]FeeStrategy{
		"stripe_standard":    stripe,
		"wire_domestic":      wireDomestic,
		"wire_international": wireInternational,
		"ach_standard":       ach,
		"percentage_1":       pct1,
		"percentage_2":       pct2,
		"percentage_3":       pct3,
		"zero":               zero,
	}
}

// RegisterStrategy adds a custom strategy. Custom names shadow built-ins.
func (e *FeeEngine) RegisterStrategy(name string, strategy FeeStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customStrategies[name] = strategy
}

// GetStrategy resolves a strategy by name, custom registrations first.
func (e *FeeEngine) GetStrategy(name string) (FeeStrategy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if strategy, ok := e.customStrategies[name]; ok {
		return strategy, nil
	}
	if strategy, ok := e.builtins[name]; ok {
		return strategy, nil
	}
	return nil, errors.Errorf("unknown fee strategy: %s", name)
}

// Calculate computes the fee for a gross amount with the given strategy. A
// nil strategy uses the engine default.
func (e *FeeEngine) Calculate(amount decimal.Decimal, strategy FeeStrategy) (*model.FeeBreakdown, error) {
	if strategy == nil {
		strategy = e.defaultStrategy
	}
	breakdown, err := strategy.Calculate(amount)
	if err != nil {
		return nil, err
	}
	e.record(breakdown)
	return breakdown, nil
}

// CalculateByName computes the fee using a registered strategy.
func (e *FeeEngine) CalculateByName(amount decimal.Decimal, strategyName string) (*model.FeeBreakdown, error) {
	strategy, err := e.GetStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	return e.Calculate(amount, strategy)
}

// CalculateForNet finds the gross amount that yields the desired net after
// fees, for payouts where the payee must receive an exact amount. Linear
// strategies converge in one or two steps; for others the search is bounded
// by the configured iteration budget and the result must land within the
// configured tolerance of the desired net.
func (e *FeeEngine) CalculateForNet(desiredNet decimal.Decimal, strategy FeeStrategy) (*model.FeeBreakdown, error) {
	if strategy == nil {
		strategy = e.defaultStrategy
	}
	desiredNet = desiredNet.RoundBank(feePrecision)

	grossEstimate := desiredNet
	for i := 0; i < e.netSolveBudget; i++ {
		breakdown, err := strategy.Calculate(grossEstimate)
		if err != nil {
			return nil, err
		}
		if breakdown.NetAmount.Equal(desiredNet) {
			e.record(breakdown)
			return breakdown, nil
		}
		grossEstimate = grossEstimate.Add(desiredNet.Sub(breakdown.NetAmount))
		if grossEstimate.IsNegative() {
			return nil, errors.Errorf(
				"cannot achieve net amount %s with strategy %s",
				desiredNet, strategy.Name(),
			)
		}
	}

	breakdown, err := strategy.Calculate(grossEstimate)
	if err != nil {
		return nil, err
	}
	if breakdown.NetAmount.Sub(desiredNet).Abs().GreaterThan(e.netSolveTolerance) {
		return nil, errors.Errorf(
			"cannot achieve net amount %s with strategy %s: closest net %s",
			desiredNet, strategy.Name(), breakdown.NetAmount,
		)
	}
	e.record(breakdown)
	return breakdown, nil
}

// CalculateForNetByName is CalculateForNet with a registered strategy name.
func (e *FeeEngine) CalculateForNetByName(desiredNet decimal.Decimal, strategyName string) (*model.FeeBreakdown, error) {
	strategy, err := e.GetStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	return e.CalculateForNet(desiredNet, strategy)
}

func (e *FeeEngine) record(breakdown *model.FeeBreakdown) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calculations = append(e.calculations, breakdown)
	e.totalFeesCalculated = e.totalFeesCalculated.Add(breakdown.TotalFee)
	e.totalCalculations++
}

// FeeMetrics aggregates fee engine activity.
type FeeMetrics struct {
	TotalCalculations    int             `json:"total_calculations"`
	TotalFeesCalculated  decimal.Decimal `json:"total_fees_calculated"`
	AverageFee           decimal.Decimal `json:"average_fee"`
	RegisteredStrategies []string        `json:"registered_strategies"`
	BuiltinStrategies    []string        `json:"builtin_strategies"`
}

// GetMetrics returns a snapshot of engine activity.
func (e *FeeEngine) GetMetrics() FeeMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	average := decimal.Zero
	if e.totalCalculations > 0 {
		average = e.totalFeesCalculated.
			Div(decimal.NewFromInt(int64(e.totalCalculations))).
			RoundBank(feePrecision)
	}
	custom := make([]string, 0, len(e.customStrategies))
	for name := range e.customStrategies {
		custom = append(custom, name)
	}
	builtin := make([]string, 0, len(e.builtins))
	for name := range e.builtins {
		builtin = append(builtin, name)
	}
	sort.Strings(custom)
	sort.Strings(builtin)

	return FeeMetrics{
		TotalCalculations:    e.totalCalculations,
		TotalFeesCalculated:  e.totalFeesCalculated,
		AverageFee:           average,
		RegisteredStrategies: custom,
		BuiltinStrategies:    builtin,
	}
}

// GetCalculationHistory returns up to limit most recent breakdowns, oldest
// first.
func (e *FeeEngine) GetCalculationHistory(limit int) []*model.FeeBreakdown {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if limit <= 0 || limit > len(e.calculations) {
		limit = len(e.calculations)
	}
	history := make([]*model.FeeBreakdown, limit)
	copy(history, e.calculations[len(e.calculations)-limit:])
	return history
}
