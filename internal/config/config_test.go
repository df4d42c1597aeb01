package config

import (
	"os"
	"path/filepath"
	"testing"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, "memory", viper.GetString("storage.driver"))
	assert.Equal(t, "8080", viper.GetString("server.http.port"))

	ledger, err := LedgerSettings()
	require.NoError(t, err)
	assert.Equal(t, "0.15", ledger.VATRate.String())
	assert.True(t, ledger.PricesIncludeVat)
	assert.Equal(t, "UTC", ledger.Location.String())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	yaml := []byte("storage:\n  driver: postgres\nledger:\n  vat_rate: \"0.05\"\n  prices_include_vat: false\n  timezone: Asia/Riyadh\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	require.NoError(t, Load(dir))

	assert.Equal(t, "postgres", viper.GetString("storage.driver"))
	ledger, err := LedgerSettings()
	require.NoError(t, err)
	assert.Equal(t, "0.05", ledger.VATRate.String())
	assert.False(t, ledger.PricesIncludeVat)
	assert.Equal(t, "Asia/Riyadh", ledger.Location.String())
}

func TestLedgerSettings_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	viper.Set("ledger.vat_rate", "fifteen")
	_, err := LedgerSettings()
	require.Error(t, err)

	viper.Set("ledger.vat_rate", "1.5")
	_, err = LedgerSettings()
	require.Error(t, err)

	viper.Set("ledger.vat_rate", "0.15")
	viper.Set("ledger.timezone", "Mars/Olympus")
	_, err = LedgerSettings()
	require.Error(t, err)
}
