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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chainbridge/bank"
	"github.com/chainbridge/bank/config"
)

// Bank represents the CLI application, encapsulating the root Cobra command.
type Bank struct {
	cmd *cobra.Command
}

// bankInstance holds the Bank instance and its configuration for subcommands.
type bankInstance struct {
	bank *bank.Bank
	cnf  *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and builds the financial core before any
// subcommand runs.
func preRun(app *bankInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newBank, err := bank.New()
		if err != nil {
			log.Fatal(err)
		}

		app.bank = newBank
		app.cnf = cnf
		return nil
	}
}

// NewCLI creates the command-line interface for the financial core.
func NewCLI() *Bank {
	var configFile string
	b := &bankInstance{}

	var rootCmd = &cobra.Command{
		Use:   "bank",
		Short: "In-memory financial core: ledger, settlement, fees, currency",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./bank.json", "Configuration file for the financial core")
	rootCmd.PersistentPreRunE = preRun(b, &configFile)

	rootCmd.AddCommand(demoCommands(b))
	rootCmd.AddCommand(auditCommands(b))
	rootCmd.AddCommand(ratesCommands(b))

	return &Bank{cmd: rootCmd}
}

func (w Bank) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
