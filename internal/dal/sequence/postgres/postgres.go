// Package postgres hands out numbers from a PostgreSQL sequence.
package postgres

import (
	"context"
	"fmt"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/jackc/pgx/v5"
)

const nextvalQuery = "SELECT nextval($1::regclass)"

// Sequences created by the ledger migration.
const (
	OrderNumberSeq  = "order_number_seq"
	ReportNumberSeq = "report_number_seq"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sequence reads nextval of one named sequence.
type Sequence struct {
	conn rowQuerier
	name string
}

var _ isequence.ISequence = (*Sequence)(nil)

// NewSequence binds a sequence name to a connection.
func NewSequence(conn postgres.GenericConn, name string) *Sequence {
	return &Sequence{conn: conn, name: name}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRow(ctx, nextvalQuery, s.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", s.name, err)
	}

	return n, nil
}
