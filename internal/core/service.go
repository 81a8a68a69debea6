package core

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/report"
	"github.com/JonMunkholm/hwlog/internal/store"
	"github.com/JonMunkholm/hwlog/internal/summary"
)

// DefaultOpTimeout bounds a single store call when Options.OpTimeout is zero.
var DefaultOpTimeout = 15 * time.Second

// Options configures a Service.
type Options struct {
	RecordsTable string
	AuditTable   string
	OpTimeout    time.Duration
	Dates        *summary.DateFormatter
	Now          func() time.Time
}

// Service is the record lifecycle controller. It owns the in-memory
// history and keeps it in step with the store.
type Service struct {
	recordsTable string
	auditTable   string
	opTimeout    time.Duration
	now          func() time.Time

	dates     *summary.DateFormatter
	summaries *summary.Generator
	exporter  *report.Exporter

	storeMu sync.RWMutex
	store   store.Store

	mu       sync.RWMutex
	history  []record.SupportRecord
	version  uint64
	selected string
	banner   *UserMessage

	// changes and fetching keep in-flight mutations visible across a
	// concurrent FetchAll. Guarded by mu.
	changes  []*change
	fetching int

	locks keyedMutex
}

// NewService creates a Service over st. History is empty until FetchAll.
func NewService(st store.Store, opts Options) *Service {
	if opts.RecordsTable == "" {
		opts.RecordsTable = store.RecordsTable
	}
	if opts.AuditTable == "" {
		opts.AuditTable = store.AuditTable
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Dates == nil {
		opts.Dates = summary.NewDateFormatter("")
	}

	return &Service{
		recordsTable: opts.RecordsTable,
		auditTable:   opts.AuditTable,
		opTimeout:    opts.OpTimeout,
		now:          opts.Now,
		dates:        opts.Dates,
		summaries:    summary.NewGenerator(opts.Dates),
		exporter:     report.NewExporter(opts.Dates),
		store:        st,
		history:      []record.SupportRecord{},
	}
}

// backend returns the active store.
func (s *Service) backend() store.Store {
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()
	return s.store
}

// StoreKind names the active backend.
func (s *Service) StoreKind() string {
	return s.backend().Kind()
}

// RecordsTable returns the configured records table name.
func (s *Service) RecordsTable() string {
	return s.recordsTable
}

// SetupSQL returns the script that creates the tables this service uses.
func (s *Service) SetupSQL() string {
	return store.SetupSQL(s.recordsTable, s.auditTable)
}

// Reinitialize swaps the store, closes the previous one, and reloads history
// from the new backend. History and selection start empty, as after a restart.
func (s *Service) Reinitialize(ctx context.Context, next store.Store) error {
	s.storeMu.Lock()
	prev := s.store
	s.store = next
	s.storeMu.Unlock()

	if prev != nil && prev != next {
		prev.Close()
	}

	s.mu.Lock()
	s.history = []record.SupportRecord{}
	s.selected = ""
	s.banner = nil
	s.version++
	s.mu.Unlock()

	return s.FetchAll(ctx)
}

// Close closes the active store.
func (s *Service) Close() {
	if st := s.backend(); st != nil {
		st.Close()
	}
}

// Banner returns the persistent missing-table message, or nil.
func (s *Service) Banner() *UserMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.banner == nil {
		return nil
	}
	b := *s.banner
	return &b
}

// History returns a copy of the loaded records, newest first.
func (s *Service) History() []record.SupportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHistory(s.history)
}

// Get returns the record with id.
func (s *Service) Get(id string) (record.SupportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.history, id); i >= 0 {
		return s.history[i].Clone(), nil
	}
	return record.SupportRecord{}, notFoundError("get", id)
}

// Select marks id as the record shown in the detail view.
func (s *Service) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.history, id) < 0 {
		return notFoundError("select", id)
	}
	s.selected = id
	return nil
}

// Selected returns the selected record, if any.
func (s *Service) Selected() (record.SupportRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.history, s.selected); s.selected != "" && i >= 0 {
		return s.history[i].Clone(), true
	}
	return record.SupportRecord{}, false
}

// ClearSelection closes the detail view.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Search returns records matching term for the records view.
// Technicians may not open the records view.
func (s *Service) Search(ctx context.Context, term string) ([]record.SupportRecord, error) {
	if !identityFrom(ctx).CanEscalate() {
		return nil, permissionError("search", "Técnicos não têm acesso ao histórico de registros.")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []record.SupportRecord{}
	for _, r := range s.history {
		if r.Matches(term) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Dashboard returns the escalation dashboard view and its stats.
func (s *Service) Dashboard(ctx context.Context) ([]record.SupportRecord, record.DashboardStats, error) {
	if !identityFrom(ctx).CanEscalate() {
		return nil, record.DashboardStats{}, permissionError("dashboard", "Técnicos não têm acesso ao painel de escaladas.")
	}
	rows, stats := record.Dashboard(s.History())
	if rows == nil {
		rows = []record.SupportRecord{}
	}
	return rows, stats, nil
}

// Summary renders r in mode with the service's display locale.
func (s *Service) Summary(r record.SupportRecord, mode record.Type) string {
	return s.summaries.Generate(r, mode)
}

// SummaryOf regenerates the summary of a stored record in its own mode.
func (s *Service) SummaryOf(id string) (string, error) {
	r, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return s.Summary(r, r.RecordType), nil
}

// Detail selects id for the detail view and returns it with its summary.
func (s *Service) Detail(ctx context.Context, id string) (record.SupportRecord, string, error) {
	if !identityFrom(ctx).CanEscalate() {
		return record.SupportRecord{}, "", permissionError("detail", "Técnicos não têm acesso ao histórico de registros.")
	}
	if err := s.Select(id); err != nil {
		return record.SupportRecord{}, "", err
	}
	r, err := s.Get(id)
	if err != nil {
		return record.SupportRecord{}, "", err
	}
	return r, s.Summary(r, r.RecordType), nil
}

// FormatDate renders a stored timestamp in the display locale.
func (s *Service) FormatDate(v string) string {
	return s.dates.Format(v)
}

// Locale returns the display locale.
func (s *Service) Locale() string {
	return s.dates.Locale()
}

// opContext bounds a single store call.
func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}
