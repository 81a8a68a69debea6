// Package store is the record store client. It exposes table-level
// select/insert/update/delete behind a small interface with two
// implementations: an in-memory backend used when no remote store is
// configured, and a PostgreSQL backend built on pgxpool.
package store

import "context"

// Default table names.
const (
	RecordsTable = "support_records"
	AuditTable   = "record_audit"
)

// Row is one table row keyed by column name.
type Row map[string]any

// Clone returns a copy of r. Slice values are copied so callers can mutate
// the result without touching stored state.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string{}, vv...)
		case []any:
			out[k] = append([]any{}, vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Order sorts a Select result by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query holds optional Select modifiers.
type Query struct {
	Order *Order
}

// Filter selects rows whose Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// Eq is shorthand for an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Store is the persistence boundary consumed by the lifecycle controller.
type Store interface {
	// Select returns every row of table, ordered by q.Order when set.
	Select(ctx context.Context, table string, q Query) ([]Row, error)

	// Insert writes rows and returns them as stored, with id and
	// created_at assigned.
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)

	// Update applies patch to every row matching f. Matching no rows is not an error.
	Update(ctx context.Context, table string, f Filter, patch Row) error

	// Delete removes every row matching f. Matching no rows is not an error.
	Delete(ctx context.Context, table string, f Filter) error

	// Kind names the backend ("memory" or "postgres").
	Kind() string

	Close()
}
