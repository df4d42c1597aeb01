package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Config holds the connection settings read from the environment.
type Config struct {
	Host     string `env:"LEDGER_PG_HOST"     envDefault:"localhost"`
	Port     int    `env:"LEDGER_PG_PORT"     envDefault:"5432"`
	User     string `env:"LEDGER_PG_USER"     envDefault:"ledger"`
	Password string `env:"LEDGER_PG_PASSWORD"`
	DB       string `env:"LEDGER_PG_DB"       envDefault:"ledger"`
	SSLMode  string `env:"LEDGER_PG_SSLMODE"  envDefault:"disable"`
}

// DSN renders the config as a libpq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// MustNewClient connects to Postgres and applies the embedded migrations.
func MustNewClient() *Client {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		panic(fmt.Sprintf("failed to parse postgres config: %v", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		panic(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		panic(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		panic(err)
	}

	client := &Client{pool: pool}
	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		panic(err)
	}

	return client
}

// Migrate applies the embedded goose migrations.
func (p *Client) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

// IsConcurrencyConflict reports whether err is a serialization failure or a deadlock.
func IsConcurrencyConflict(err error) bool {
	code := pgCode(err)

	return code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected
}
