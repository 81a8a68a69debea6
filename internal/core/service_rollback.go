package core

import (
	"sync"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// snapshot is the history as it was before an optimistic mutation.
type snapshot struct {
	history []record.SupportRecord
	// version is the history version right after the mutation was applied.
	version uint64
	prev    record.SupportRecord
}

// restore undoes an optimistic mutation of id. If nothing else touched
// history since, the full pre-call history comes back verbatim. Otherwise
// only the record itself is restored so concurrent changes survive.
// Callers hold s.mu.
func (s *Service) restore(snap snapshot, id string) {
	if s.version == snap.version {
		s.history = snap.history
		s.version++
		return
	}
	if i := indexOf(s.history, id); i >= 0 {
		s.history[i] = snap.prev
		s.version++
	}
}

func cloneHistory(h []record.SupportRecord) []record.SupportRecord {
	out := make([]record.SupportRecord, len(h))
	for i, r := range h {
		out[i] = r.Clone()
	}
	return out
}

func indexOf(h []record.SupportRecord, id string) int {
	if id == "" {
		return -1
	}
	for i := range h {
		if h[i].ID == id {
			return i
		}
	}
	return -1
}

// keyedMutex serializes work per key. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size returns the number of keys currently held or waited on.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
