// Package memory implements a single-process sequence.
package memory

import (
	"context"
	"sync"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
)

// Sequence counts up from its start value under a mutex.
type Sequence struct {
	mu   sync.Mutex
	last int64
}

var _ isequence.ISequence = (*Sequence)(nil)

// NewSequence returns a sequence whose first Next yields start+1.
func NewSequence(start int64) *Sequence {
	return &Sequence{last: start}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++

	return s.last, nil
}
