package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hwlog/internal/form"
)

const (
	sessionCookie  = "hwlog_session"
	sessionIdleTTL = 12 * time.Hour
)

// workspace is one browser's form state. A Form is not safe for concurrent
// use, so every access goes through mu.
type workspace struct {
	mu   sync.Mutex
	form *form.Form
	seen time.Time
}

// sessions maps session cookies to workspaces and drops idle ones.
type sessions struct {
	mu   sync.Mutex
	byID map[string]*workspace
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

func newSessions(ttl time.Duration) *sessions {
	s := &sessions{
		byID: make(map[string]*workspace),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// cleanup removes idle workspaces every minute until stop.
func (s *sessions) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.prune(now)
		}
	}
}

func (s *sessions) prune(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ws := range s.byID {
		if now.Sub(ws.seen) > s.ttl {
			delete(s.byID, id)
		}
	}
}

func (s *sessions) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// workspace returns the caller's workspace, issuing a cookie for new ones.
func (s *sessions) workspace(w http.ResponseWriter, r *http.Request) *workspace {
	now := time.Now()
	id := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.byID[id]; ok && id != "" {
		ws.seen = now
		return ws
	}

	id = uuid.NewString()
	ws := &workspace{form: form.New(), seen: now}
	s.byID[id] = ws
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ws
}

// with runs fn while holding the workspace lock.
func (ws *workspace) with(fn func(f *form.Form) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.form)
}
