package core

import (
	"slices"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// change is a local mutation that a concurrent FetchAll must not lose.
// A fetch may read rows from before the change reached the store; its
// result is patched with every tracked change before it replaces history.
type change struct {
	id      string
	field   string
	value   any
	deleted bool
	created *record.SupportRecord
	// done marks a change the store accepted while a fetch was running.
	done bool
}

// track registers c as in flight. Callers hold s.mu.
func (s *Service) track(c *change) {
	s.changes = append(s.changes, c)
}

// settle finishes c. A failed change is dropped because the store never
// saw it. An accepted one is kept while a fetch that may predate it is
// still running. Callers hold s.mu.
func (s *Service) settle(c *change, accepted bool) {
	if accepted && s.fetching > 0 {
		c.done = true
		return
	}
	s.changes = slices.DeleteFunc(s.changes, func(x *change) bool { return x == c })
}

// beginFetch counts a running fetch. Callers hold s.mu.
func (s *Service) beginFetch() {
	s.fetching++
}

// endFetch uncounts a fetch and, once none is running, drops accepted
// changes since every later fetch reads them from the store. Callers hold s.mu.
func (s *Service) endFetch() {
	s.fetching--
	if s.fetching == 0 {
		s.changes = slices.DeleteFunc(s.changes, func(c *change) bool { return c.done })
	}
}

// replay applies tracked changes, in issue order, on top of fetched rows.
// Callers hold s.mu.
func (s *Service) replay(history []record.SupportRecord) []record.SupportRecord {
	for _, c := range s.changes {
		i := indexOf(history, c.id)
		switch {
		case c.created != nil:
			if i < 0 {
				history = append([]record.SupportRecord{c.created.Clone()}, history...)
			}
		case c.deleted:
			if i >= 0 {
				history = slices.Delete(history, i, i+1)
			}
		case i >= 0:
			_ = history[i].Set(c.field, c.value)
		}
	}
	return history
}
