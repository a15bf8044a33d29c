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

package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/chainbridge/bank"
	"github.com/chainbridge/bank/model"
)

// demoCommands runs a settlement round trip against a fresh in-memory core:
// fund accounts, authorize, partially capture, charge a fee, and print the
// resulting balances.
func demoCommands(b *bankInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a settlement round trip and print the resulting balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), b.bank)
		},
	}
	return cmd
}

func runDemo(ctx context.Context, core *bank.Bank) error {
	ledger := core.Ledger

	for _, spec := range []bank.AccountSpec{
		{AccountID: "customer-1", Name: "Customer Wallet", Type: model.AccountTypeAsset, Currency: "USD"},
		{AccountID: "merchant-1", Name: "Merchant Wallet", Type: model.AccountTypeAsset, Currency: "USD"},
		{AccountID: "treasury", Name: "Treasury", Type: model.AccountTypeEquity, Currency: "USD"},
		{AccountID: "platform-fees", Name: "Platform Fee Collection", Type: model.AccountTypeSettlement, Currency: "USD"},
	} {
		if _, err := ledger.CreateAccount(spec); err != nil {
			return err
		}
	}

	// Fund the customer from treasury.
	funding := ledger.CreateTransaction("Initial funding", "FUND-1", nil)
	if _, err := funding.Debit("customer-1", decimal.RequireFromString("1000.00"), ""); err != nil {
		return err
	}
	if _, err := funding.Credit("treasury", decimal.RequireFromString("1000.00"), ""); err != nil {
		return err
	}
	if _, err := ledger.PostTransaction(ctx, funding.TransactionID); err != nil {
		return err
	}

	// Two-phase settlement with a partial capture.
	intent, err := core.Settlement.CreateIntent(bank.IntentSpec{
		SourceAccount:      "customer-1",
		DestinationAccount: "merchant-1",
		Amount:             decimal.RequireFromString("250.00"),
		Currency:           "USD",
		IdempotencyKey:     "demo-order-1",
		Description:        "Demo order",
	})
	if err != nil {
		return err
	}
	if _, err := core.Settlement.Authorize(ctx, intent.IntentID); err != nil {
		return err
	}
	intent, err = core.Settlement.CaptureAmount(ctx, intent.IntentID, decimal.RequireFromString("200.00"))
	if err != nil {
		return err
	}
	fmt.Printf("intent %s: %s (captured %s)\n", intent.IntentID, intent.Status, intent.CapturedAmount)

	// Charge the merchant the platform fee on the captured amount.
	breakdown, err := core.Fees.CalculateByName(*intent.CapturedAmount, "stripe_standard")
	if err != nil {
		return err
	}
	if _, err := ledger.Transfer(ctx, "merchant-1", "platform-fees", breakdown.TotalFee,
		"Platform fee: "+breakdown.StrategyName, "FEE-1"); err != nil {
		return err
	}
	fmt.Printf("fee: gross %s = net %s + fee %s\n",
		breakdown.GrossAmount, breakdown.NetAmount, breakdown.TotalFee)

	for _, accountID := range []string{"customer-1", "merchant-1", "treasury", "platform-fees"} {
		balance, err := ledger.GetBalance(accountID)
		if err != nil {
			return err
		}
		formatted, err := core.Currency.FormatMoney(balance.Abs(), "USD")
		if err != nil {
			return err
		}
		fmt.Printf("%-15s %s\n", accountID, formatted)
	}

	summary := ledger.GetAuditSummary()
	fmt.Printf("chain: %s\nconservation: %s\n", summary.ChainMessage, summary.ConservationMessage)
	return nil
}
