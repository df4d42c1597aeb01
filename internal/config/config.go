package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/ledger/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}
	if err := Load("/etc/ledger-svc", "."); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

// Load registers defaults and merges config.yaml from the first path that has one.
// A missing file leaves the defaults in place.
func Load(paths ...string) error {
	SetDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, p := range paths {
		viper.AddConfigPath(p)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return err
	}

	return nil
}

func SetDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PATCH", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Content-Type", "X-Actor-Id", "X-Actor-Role", "X-Request-Id"})
	viper.SetDefault("server.http.cors.exposed_headers", []string{"X-Request-Id"})
	viper.SetDefault("server.http.cors.allow_credentials", false)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("sequence.driver", "memory")

	viper.SetDefault("ledger.vat_rate", "0.15")
	viper.SetDefault("ledger.prices_include_vat", true)
	viper.SetDefault("ledger.timezone", "UTC")

	viper.SetDefault("compliance.seller_name", "")
	viper.SetDefault("compliance.vat_number", "")
	viper.SetDefault("compliance.qr.level", "medium")
	viper.SetDefault("compliance.qr.size", 256)

	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.exchange", "ledger.events")
	viper.SetDefault("rabbitmq.routing_key", "")
	viper.SetDefault("rabbitmq.outbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.outbox.batch_size", 100)
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)
	viper.SetDefault("rabbitmq.outbox.lease_seconds", 60)

	viper.SetDefault("scheduler.eod.enabled", false)
	viper.SetDefault("scheduler.eod.at", "00:05")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.service_name", "ledger-svc")
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
	viper.SetDefault("otel.environment", "development")
	viper.SetDefault("otel.sample_ratio", 1.0)
}

func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	handler := logger.NewHandler(&slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// Ledger holds the money and time settings shared by the services.
type Ledger struct {
	VATRate          decimal.Decimal
	PricesIncludeVat bool
	Location         *time.Location
}

// LedgerSettings parses the ledger.* keys.
func LedgerSettings() (Ledger, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(viper.GetString("ledger.vat_rate")))
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to parse ledger.vat_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Ledger{}, fmt.Errorf("ledger.vat_rate must be in [0, 1), got %s", rate)
	}

	loc, err := time.LoadLocation(viper.GetString("ledger.timezone"))
	if err != nil {
		return Ledger{}, fmt.Errorf("failed to load ledger.timezone: %w", err)
	}

	return Ledger{
		VATRate:          rate,
		PricesIncludeVat: viper.GetBool("ledger.prices_include_vat"),
		Location:         loc,
	}, nil
}
