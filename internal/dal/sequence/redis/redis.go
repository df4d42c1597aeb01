// Package redis hands out numbers from a Redis counter.
package redis

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings read from the environment.
type Config struct {
	Addr     string `env:"LEDGER_REDIS_ADDR"     envDefault:"localhost:6379"`
	Password string `env:"LEDGER_REDIS_PASSWORD"`
	DB       int    `env:"LEDGER_REDIS_DB"       envDefault:"0"`
}

// Counter keys.
const (
	OrderNumberKey  = "ledger:seq:order_number"
	ReportNumberKey = "ledger:seq:report_number"
)

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Sequence increments one Redis key. INCR is atomic across every process sharing the key.
type Sequence struct {
	client incrementer
	key    string
}

var _ isequence.ISequence = (*Sequence)(nil)

// MustNewClient connects to Redis using LEDGER_REDIS_* variables.
func MustNewClient(ctx context.Context) *redis.Client {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		panic(fmt.Sprintf("failed to parse redis config: %v", err))
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("failed to ping redis: %v", err))
	}

	return client
}

// NewSequence binds a counter key to a client.
func NewSequence(client *redis.Client, key string) *Sequence {
	return &Sequence{client: client, key: key}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	n, err := s.client.Incr(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", s.key, err)
	}

	return n, nil
}
