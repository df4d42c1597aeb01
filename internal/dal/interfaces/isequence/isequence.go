package isequence

import "context"

// ISequence hands out increasing numbers. Gaps are allowed, reuse is not.
type ISequence interface {
	Next(ctx context.Context) (int64, error)
}
