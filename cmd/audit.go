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
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/chainbridge/bank"
	"github.com/chainbridge/bank/model"
)

// auditCommands exercises the core under load and verifies the hash chain
// and conservation afterwards. A self-check for the verification machinery;
// exits non-zero when either check fails.
func auditCommands(b *bankInstance) *cobra.Command {
	var transactions int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Post a batch of transactions, then verify chain integrity and conservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), b.bank, transactions)
		},
	}
	cmd.Flags().IntVar(&transactions, "transactions", 100, "number of transfers to post before verifying")
	return cmd
}

func runAudit(ctx context.Context, core *bank.Bank, transactions int) error {
	ledger := core.Ledger

	for _, spec := range []bank.AccountSpec{
		{AccountID: "audit-a", Name: "Audit A", Type: model.AccountTypeAsset, Currency: "USD"},
		{AccountID: "audit-b", Name: "Audit B", Type: model.AccountTypeAsset, Currency: "USD"},
		{AccountID: "audit-treasury", Name: "Audit Treasury", Type: model.AccountTypeEquity, Currency: "USD"},
	} {
		if _, err := ledger.CreateAccount(spec); err != nil {
			return err
		}
	}

	funding := ledger.CreateTransaction("Audit funding", "AUDIT-FUND", nil)
	total := decimal.NewFromInt(int64(transactions))
	if _, err := funding.Debit("audit-a", total, ""); err != nil {
		return err
	}
	if _, err := funding.Credit("audit-treasury", total, ""); err != nil {
		return err
	}
	if _, err := ledger.PostTransaction(ctx, funding.TransactionID); err != nil {
		return err
	}

	one := decimal.NewFromInt(1)
	for i := 0; i < transactions; i++ {
		from, to := "audit-a", "audit-b"
		if i%2 == 1 {
			from, to = to, from
		}
		if _, err := ledger.Transfer(ctx, from, to, one, "Audit transfer", fmt.Sprintf("AUDIT-%d", i)); err != nil {
			return err
		}
	}

	summary := ledger.GetAuditSummary()
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !summary.ChainValid {
		return errors.Errorf("chain verification failed: %s", summary.ChainMessage)
	}
	if !summary.ConservationValid {
		return errors.Errorf("conservation verification failed: %s", summary.ConservationMessage)
	}
	return nil
}
