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
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// ratesCommands seeds the default rate table and either lists it or converts
// an amount between two currencies.
func ratesCommands(b *bankInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Seed default exchange rates and list them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := b.bank.Currency.SeedDefaultRates(); err != nil {
				return err
			}
			rates := b.bank.Currency.ListRates()
			sort.Slice(rates, func(i, j int) bool {
				return rates[i].Pair() < rates[j].Pair()
			})
			for _, rate := range rates {
				fmt.Printf("%-10s %-22s %s\n", rate.Pair(), rate.Rate, rate.Source)
			}
			return nil
		},
	}
	cmd.AddCommand(convertCommand(b))
	return cmd
}

func convertCommand(b *bankInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies using the default rates",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return err
			}
			if err := b.bank.Currency.SeedDefaultRates(); err != nil {
				return err
			}
			result, err := b.bank.Currency.ConvertAmount(amount, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Printf("%s = %s (rate %s, source %s)\n",
				result.SourceMoney, result.TargetMoney,
				result.RateUsed.Rate, result.RateUsed.Source)
			return nil
		},
	}
}
