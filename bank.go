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

// Package bank is the financial core: a double-entry ledger with a
// hash-chained audit trail, a two-phase settlement engine, a pluggable fee
// engine and a multi-currency engine. All state is in-memory and explicitly
// owned; callers bring their own durability and transport.
package bank

import "github.com/chainbridge/bank/model"

// Bank wires the four engines over one shared currency registry and one
// ledger. Construct with New after config.InitConfig (or config.MockConfig
// in tests).
type Bank struct {
	Currency   *CurrencyEngine
	Fees       *FeeEngine
	Ledger     *Ledger
	Settlement *SettlementEngine
}

// New builds a complete, isolated financial core. Multiple Bank instances
// never share state.
func New() (*Bank, error) {
	registry := model.NewCurrencyRegistry()

	currency, err := NewCurrencyEngine(registry)
	if err != nil {
		return nil, err
	}
	fees, err := NewFeeEngine(nil)
	if err != nil {
		return nil, err
	}
	ledger := NewLedger(registry)
	settlement, err := NewSettlementEngine(ledger)
	if err != nil {
		return nil, err
	}

	return &Bank{
		Currency:   currency,
		Fees:       fees,
		Ledger:     ledger,
		Settlement: settlement,
	}, nil
}
