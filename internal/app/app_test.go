package app

import (
	"testing"

	"github.com/corray333/backend-labs/ledger/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDefaults(t *testing.T) {
	t.Helper()
	viper.Reset()
	config.SetDefaults()
	t.Cleanup(viper.Reset)
}

func TestMustNewApp_Memory(t *testing.T) {
	withDefaults(t)
	viper.Set("scheduler.eod.enabled", true)
	viper.Set("rabbitmq.enabled", true)

	a := MustNewApp()

	require.NotNil(t, a.transport)
	assert.Nil(t, a.postgresClient)
	assert.Nil(t, a.outboxWorker)
	assert.NotNil(t, a.eodScheduler)
}

func TestMustNewApp_BadConfig(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{key: "storage.driver", value: "sqlite"},
		{key: "sequence.driver", value: "etcd"},
		{key: "ledger.vat_rate", value: "1.5"},
		{key: "compliance.qr.level", value: "extreme"},
		{key: "scheduler.eod.at", value: "25:00"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			withDefaults(t)
			viper.Set("scheduler.eod.enabled", true)
			viper.Set(tt.key, tt.value)

			assert.Panics(t, func() { MustNewApp() })
		})
	}
}
