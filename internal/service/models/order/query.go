package order

import (
	"strings"
	"time"

	"github.com/corray333/backend-labs/ledger/pkg/pagination"
)

// Filter narrows order reads. Zero values do not filter.
type Filter struct {
	Status       Status    `json:"status,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	From         time.Time `json:"from,omitempty"`
	// To is exclusive.
	To time.Time `json:"to,omitempty"`
}

// Match reports whether o passes the filter.
func (f Filter) Match(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && o.CreatedBy != f.CreatedBy {
		return false
	}
	if f.CustomerName != "" &&
		!strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(f.CustomerName)) {
		return false
	}
	if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
		return false
	}

	return true
}

// QueryOrdersModel represents filter and pagination parameters for listing orders.
type QueryOrdersModel struct {
	Filter
	pagination.Params
}
