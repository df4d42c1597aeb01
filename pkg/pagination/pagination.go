package pagination

import (
	"errors"
	"math"
)

const MaxPageSize = 100

var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
	ErrPageTooLarge    = errors.New("page is out of range")
)

// Params represents page-based pagination input.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Validate rejects out-of-range values. Nothing is clamped.
func (p Params) Validate() error {
	if p.Page < 1 {
		return ErrInvalidPage
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return ErrPageTooLarge
	}

	return nil
}

// Offset calculates the offset for SQL queries. Params that fail Validate give 0.
func (p Params) Offset() int {
	if p.Validate() != nil {
		return 0
	}

	return (p.Page - 1) * p.PageSize
}

// Result is a page of items plus the total number of matches.
type Result[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// NewResult creates a Result for the given params.
func NewResult[T any](items []T, p Params, total int) Result[T] {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(p.PageSize)))
	}
	if items == nil {
		items = []T{}
	}

	return Result[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
	}
}

// Slice returns the window of items selected by p. Pages past the end are empty.
func Slice[T any](items []T, p Params) []T {
	if p.Page < 1 || p.PageSize < 1 {
		return []T{}
	}
	// Compared in pages so that huge page numbers cannot overflow the offset.
	if p.Page-1 >= (len(items)+p.PageSize-1)/p.PageSize {
		return []T{}
	}
	start := (p.Page - 1) * p.PageSize
	end := min(start+p.PageSize, len(items))

	return items[start:end]
}
