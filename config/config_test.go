package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_MissingFileUsesDefaults(t *testing.T) {
	err := InitConfig("does-not-exist.json")
	require.NoError(t, err)

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Invisible Bank", cnf.ProjectName)
	assert.Equal(t, DEFAULT_ESCROW_ACCOUNT_ID, cnf.Settlement.EscrowAccountID)
	assert.Equal(t, DEFAULT_AUTH_TTL_HOURS, cnf.Settlement.AuthTTLHours)
	assert.Equal(t, DEFAULT_MAX_RATE_AGE_HOURS, cnf.Currency.MaxRateAgeHours)
	assert.Equal(t, DEFAULT_NET_SOLVE_EPSILON, cnf.FeeEngine.NetSolveTolerance)
	assert.Equal(t, DEFAULT_NET_SOLVE_BUDGET, cnf.FeeEngine.NetSolveIterations)
}

func TestInitConfig_FromFile(t *testing.T) {
	cnf := Configuration{
		ProjectName: "Test Bank",
		Settlement: SettlementConfig{
			EscrowAccountID: "ESCROW-TEST",
			AuthTTLHours:    48,
		},
	}
	raw, err := json.Marshal(cnf)
	require.NoError(t, err)

	f, err := os.CreateTemp(t.TempDir(), "bank-*.json")
	require.NoError(t, err)
	_, err = f.Write(raw)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, InitConfig(f.Name()))

	loaded, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Test Bank", loaded.ProjectName)
	assert.Equal(t, "ESCROW-TEST", loaded.Settlement.EscrowAccountID)
	assert.Equal(t, 48, loaded.Settlement.AuthTTLHours)
	// Unset sections still get defaults.
	assert.Equal(t, DEFAULT_MAX_RATE_AGE_HOURS, loaded.Currency.MaxRateAgeHours)
}

func TestInitConfig_EnvOverride(t *testing.T) {
	t.Setenv("BANK_SETTLEMENT_ESCROW_ACCOUNT_ID", "ESCROW-FROM-ENV")
	t.Setenv("BANK_SETTLEMENT_AUTH_TTL_HOURS", "12")

	require.NoError(t, InitConfig("does-not-exist.json"))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "ESCROW-FROM-ENV", cnf.Settlement.EscrowAccountID)
	assert.Equal(t, 12, cnf.Settlement.AuthTTLHours)
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "Mocked"})

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Mocked", cnf.ProjectName)
	assert.Equal(t, DEFAULT_ESCROW_ACCOUNT_ID, cnf.Settlement.EscrowAccountID)
}
