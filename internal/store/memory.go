package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the offline backend. Data lives for the process lifetime only.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Row
	now    func() time.Time
	last   time.Time
}

// NewMemory creates an in-memory store with the given tables. Operations on
// any other table fail with CodeUndefinedTable, like a real database would.
func NewMemory(tables ...string) *Memory {
	m := &Memory{
		tables: make(map[string][]Row, len(tables)),
		now:    time.Now,
	}
	for _, t := range tables {
		m.tables[t] = nil
	}
	return m
}

func (m *Memory) Kind() string { return "memory" }

func (m *Memory) Close() {}

func (m *Memory) Select(ctx context.Context, table string, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	rows, ok := m.tables[table]
	if !ok {
		m.mu.RUnlock()
		return nil, undefinedTable(table)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	m.mu.RUnlock()

	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][col], out[j][col])
			if asc {
				return c < 0
			}
			return c > 0
		})
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[table]; !ok {
		return nil, undefinedTable(table)
	}

	inserted := make([]Row, 0, len(rows))
	for _, r := range rows {
		stored := r.Clone()
		if stored == nil {
			stored = Row{}
		}
		if id, _ := stored["id"].(string); id == "" {
			stored["id"] = uuid.NewString()
		}
		if _, ok := stored["created_at"]; !ok {
			stored["created_at"] = m.stamp()
		}
		m.tables[table] = append(m.tables[table], stored)
		inserted = append(inserted, stored.Clone())
	}
	return inserted, nil
}

func (m *Memory) Update(ctx context.Context, table string, f Filter, patch Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return undefinedTable(table)
	}
	for _, r := range rows {
		if !matches(r, f) {
			continue
		}
		for k, v := range patch.Clone() {
			r[k] = v
		}
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, table string, f Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.tables[table]
	if !ok {
		return undefinedTable(table)
	}
	kept := rows[:0]
	for _, r := range rows {
		if !matches(r, f) {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
	return nil
}

// stamp returns a creation time strictly after the previous one so that
// ordering by created_at is total. Caller holds m.mu.
func (m *Memory) stamp() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

func matches(r Row, f Filter) bool {
	v, ok := r[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(f.Value)
}

// compare orders two column values. Times compare chronologically,
// everything else by its string form. nil sorts first.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
