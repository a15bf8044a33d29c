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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_ESCROW_ACCOUNT_ID  = "SYSTEM-ESCROW-001"
	DEFAULT_AUTH_TTL_HOURS     = 168 // 7 days
	DEFAULT_MAX_RATE_AGE_HOURS = 24
	DEFAULT_NET_SOLVE_EPSILON  = "0.02"
	DEFAULT_NET_SOLVE_BUDGET   = 10
)

var ConfigStore atomic.Value

type SettlementConfig struct {
	EscrowAccountID string `json:"escrow_account_id" envconfig:"BANK_SETTLEMENT_ESCROW_ACCOUNT_ID"`
	AuthTTLHours    int    `json:"auth_ttl_hours" envconfig:"BANK_SETTLEMENT_AUTH_TTL_HOURS"`
}

type CurrencyConfig struct {
	MaxRateAgeHours int `json:"max_rate_age_hours" envconfig:"BANK_CURRENCY_MAX_RATE_AGE_HOURS"`
}

type FeeEngineConfig struct {
	// NetSolveTolerance bounds how far CalculateForNet's result may land from
	// the requested net amount for non-linear strategies.
	NetSolveTolerance  string `json:"net_solve_tolerance" envconfig:"BANK_FEE_NET_SOLVE_TOLERANCE"`
	NetSolveIterations int    `json:"net_solve_iterations" envconfig:"BANK_FEE_NET_SOLVE_ITERATIONS"`
}

type Configuration struct {
	ProjectName string           `json:"project_name" envconfig:"BANK_PROJECT_NAME"`
	Settlement  SettlementConfig `json:"settlement"`
	Currency    CurrencyConfig   `json:"currency"`
	FeeEngine   FeeEngineConfig  `json:"fee_engine"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("bank", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called bank.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Invisible Bank"
	}
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)

	if cnf.Settlement.EscrowAccountID == "" {
		cnf.Settlement.EscrowAccountID = DEFAULT_ESCROW_ACCOUNT_ID
	}
	cnf.Settlement.EscrowAccountID = strings.TrimSpace(cnf.Settlement.EscrowAccountID)

	if cnf.Settlement.AuthTTLHours == 0 {
		cnf.Settlement.AuthTTLHours = DEFAULT_AUTH_TTL_HOURS
	}
	if cnf.Currency.MaxRateAgeHours == 0 {
		cnf.Currency.MaxRateAgeHours = DEFAULT_MAX_RATE_AGE_HOURS
	}
	if cnf.FeeEngine.NetSolveTolerance == "" {
		cnf.FeeEngine.NetSolveTolerance = DEFAULT_NET_SOLVE_EPSILON
	}
	if cnf.FeeEngine.NetSolveIterations == 0 {
		cnf.FeeEngine.NetSolveIterations = DEFAULT_NET_SOLVE_BUDGET
	}

	err := validation.ValidateStruct(&cnf.Settlement,
		validation.Field(&cnf.Settlement.EscrowAccountID, validation.Required),
		validation.Field(&cnf.Settlement.AuthTTLHours, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	err = validation.ValidateStruct(&cnf.Currency,
		validation.Field(&cnf.Currency.MaxRateAgeHours, validation.Min(1)),
	)
	if err != nil {
		return err
	}
	return validation.ValidateStruct(&cnf.FeeEngine,
		validation.Field(&cnf.FeeEngine.NetSolveTolerance, validation.Required),
		validation.Field(&cnf.FeeEngine.NetSolveIterations, validation.Min(1)),
	)
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if err := mockConfig.validateAndAddDefaults(); err != nil {
		logrus.Fatalf("invalid mock config: %v", err)
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
