package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/hwlog/internal/auth"
	"github.com/JonMunkholm/hwlog/internal/form"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/report"
	"github.com/JonMunkholm/hwlog/internal/store"
)

// fakeStore wraps the memory backend and can fail individual operations.
type fakeStore struct {
	*store.Memory

	mu          sync.Mutex
	failSelect  error
	failInsert  error
	failUpdate  error
	failDelete  error
	emptyInsert bool
	// hold, when set, runs before a write reaches the memory store and
	// after a read has taken its rows.
	hold func(op string)

	selects int
	inserts int
	updates int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{Memory: store.NewMemory(store.RecordsTable, store.AuditTable)}
}

func (f *fakeStore) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	f.mu.Lock()
	f.selects++
	err, hold := f.failSelect, f.hold
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows, err := f.Memory.Select(ctx, table, q)
	// Held after the read, so the caller gets rows from before the hold.
	if hold != nil {
		hold("select")
	}
	return rows, err
}

func (f *fakeStore) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	f.mu.Lock()
	err, empty := f.failInsert, f.emptyInsert
	if table == store.RecordsTable {
		f.inserts++
	} else {
		err, empty = nil, false
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out, err := f.Memory.Insert(ctx, table, rows)
	if empty {
		return nil, err
	}
	return out, err
}

func (f *fakeStore) Update(ctx context.Context, table string, flt store.Filter, patch store.Row) error {
	f.mu.Lock()
	f.updates++
	err, hold := f.failUpdate, f.hold
	f.mu.Unlock()
	if hold != nil {
		hold("update")
	}
	if err != nil {
		return err
	}
	return f.Memory.Update(ctx, table, flt, patch)
}

func (f *fakeStore) Delete(ctx context.Context, table string, flt store.Filter) error {
	f.mu.Lock()
	f.deletes++
	err, hold := f.failDelete, f.hold
	f.mu.Unlock()
	if hold != nil {
		hold("delete")
	}
	if err != nil {
		return err
	}
	return f.Memory.Delete(ctx, table, flt)
}

func (f *fakeStore) set(fn func(*fakeStore)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// gate blocks the first op call until release is closed; started is closed
// once that call is waiting.
func gate(st *fakeStore, op string) (started, release chan struct{}) {
	started = make(chan struct{})
	release = make(chan struct{})
	var once sync.Once
	st.set(func(f *fakeStore) {
		f.hold = func(name string) {
			if name != op {
				return
			}
			once.Do(func() {
				close(started)
				<-release
			})
		}
	})
	return started, release
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *Service) trackedChanges() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.changes)
}

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	svc := NewService(st, Options{Now: func() time.Time { return fixedNow }})
	t.Cleanup(svc.Close)
	return svc, st
}

func technician() context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{Subject: "tecnico.joao", Role: auth.RoleTechnician})
}

func generalForm(t *testing.T) *form.Form {
	t.Helper()
	f := form.New()
	fields := map[string]string{
		"analystName":        "Ana",
		"locationName":       "Agencia1",
		"task":               "T1",
		"subject":            "1200 - Dúvida técnica",
		"isEscalated":        record.No,
		"problemDescription": "p",
		"actionTaken":        "a",
		"validCall":          record.Yes,
		"trainingProvided":   record.No,
		"usedAcfs":           record.No,
	}
	for k, v := range fields {
		if err := f.SetField(k, v); err != nil {
			t.Fatalf("SetField(%s) error = %v", k, err)
		}
	}
	return f
}

func mustCreate(t *testing.T, svc *Service, f *form.Form) record.SupportRecord {
	t.Helper()
	r, _, err := svc.Create(context.Background(), f, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return r
}

func TestCreate_PersistsDraft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	f := generalForm(t)
	draft := f.Draft()
	clip := &ClipboardBuffer{}

	saved, text, err := svc.Create(ctx, f, clip)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("saved record has no id")
	}
	if saved.Status != record.StatusOpen || saved.EscalationValidation != record.No {
		t.Errorf("status = %q, escalationValidation = %q", saved.Status, saved.EscalationValidation)
	}
	if saved.EndTime != "2024-03-05T14:30" {
		t.Errorf("EndTime = %q, want filled with now", saved.EndTime)
	}

	if !strings.HasPrefix(text, "=== REGISTRO DE ATENDIMENTO HW ===") {
		t.Errorf("summary = %q", text)
	}
	if !strings.Contains(text, "Analista: Ana") || !strings.Contains(text, "Task: T1") {
		t.Errorf("summary missing fields: %q", text)
	}
	if strings.Contains(text, "Analista do Banco") {
		t.Errorf("summary has bank analyst line for a non-escalated call: %q", text)
	}
	if clip.Text() != text {
		t.Errorf("clipboard = %q, want summary", clip.Text())
	}

	// Draft resets but keeps the analyst.
	after := f.Draft()
	if after.AnalystName != "Ana" {
		t.Errorf("AnalystName = %q, want preserved", after.AnalystName)
	}
	if after.Task != "" || after.Subject != "" {
		t.Errorf("draft not reset: task=%q subject=%q", after.Task, after.Subject)
	}

	if err := svc.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	history := svc.History()
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}

	got := history[0]
	want := draft
	want.ID, want.CreatedAt = got.ID, got.CreatedAt
	want.EndTime = got.EndTime
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fetched record differs from draft\ngot:  %+v\nwant: %+v", got, want)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mode     record.Type
		analyst  string
		subject  string
		wantCode string
	}{
		{"missing analyst", record.TypeGeneral, "", "1100 - Código", "VAL001"},
		{"blank analyst", record.TypeValidation, "   ", "", "VAL001"},
		{"general without subject", record.TypeGeneral, "Ana", "", "VAL002"},
		{"validation without subject", record.TypeValidation, "Ana", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t)
			f := form.New()
			if err := f.SetMode(tt.mode); err != nil {
				t.Fatal(err)
			}
			_ = f.SetField("analystName", tt.analyst)
			_ = f.SetField("subject", tt.subject)

			_, _, err := svc.Create(context.Background(), f, nil)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				return
			}
			if !IsKind(err, KindValidation) {
				t.Fatalf("Create() error = %v, want validation", err)
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if st.inserts != 0 {
				t.Errorf("store called %d times on validation failure", st.inserts)
			}
		})
	}
}

func TestCreate_StoreFailureKeepsDraft(t *testing.T) {
	svc, st := newTestService(t)
	st.set(func(f *fakeStore) { f.failInsert = errors.New("connection refused") })

	f := generalForm(t)
	before := f.Draft()

	_, _, err := svc.Create(context.Background(), f, nil)
	if !IsKind(err, KindConnectivity) {
		t.Fatalf("Create() error = %v, want connectivity", err)
	}
	if !reflect.DeepEqual(f.Draft(), before) {
		t.Error("draft changed after failed create")
	}
	if len(svc.History()) != 0 {
		t.Error("history changed after failed create")
	}
}

func TestCreate_MissingTable(t *testing.T) {
	svc := NewService(store.NewMemory(), Options{})
	_, _, err := svc.Create(context.Background(), generalForm(t), nil)
	if !IsKind(err, KindMissingTable) {
		t.Fatalf("Create() error = %v, want missing table", err)
	}
}

func TestCreate_SyntheticID(t *testing.T) {
	svc, st := newTestService(t)
	st.set(func(f *fakeStore) { f.emptyInsert = true })

	saved := mustCreate(t, svc, generalForm(t))
	if saved.ID == "" {
		t.Fatal("synthetic id not assigned")
	}
	if !saved.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", saved.CreatedAt, fixedNow)
	}
	if h := svc.History(); len(h) != 1 || h[0].ID != saved.ID {
		t.Errorf("history = %+v", h)
	}
}

func TestCreate_TechnicianCannotEscalate(t *testing.T) {
	svc, st := newTestService(t)
	f := form.New()
	_ = f.SetMode(record.TypeEscalation)
	_ = f.SetField("analystName", "Ana")

	_, _, err := svc.Create(technician(), f, nil)
	if !IsKind(err, KindPermission) {
		t.Fatalf("Create() error = %v, want permission", err)
	}
	if st.inserts != 0 {
		t.Error("store called for rejected create")
	}
}

func TestCreate_PrependsNewest(t *testing.T) {
	svc, _ := newTestService(t)
	first := mustCreate(t, svc, generalForm(t))
	second := mustCreate(t, svc, generalForm(t))

	h := svc.History()
	if len(h) != 2 || h[0].ID != second.ID || h[1].ID != first.ID {
		t.Fatalf("history order wrong: %v", h)
	}

	if err := svc.FetchAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	h = svc.History()
	if h[0].ID != second.ID {
		t.Errorf("FetchAll order: first id = %s, want newest %s", h[0].ID, second.ID)
	}
}

func TestUpdate(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))

	if err := svc.Update(ctx, saved.ID, "escalationValidation", record.Yes); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := svc.Get(saved.ID)
	if got.EscalationValidation != record.Yes {
		t.Errorf("local value = %q", got.EscalationValidation)
	}

	rows, err := st.Memory.Select(ctx, store.RecordsTable, store.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["escalationValidation"] != record.Yes {
		t.Errorf("stored value = %v", rows[0]["escalationValidation"])
	}
}

func TestUpdate_RollbackRestoresSnapshot(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, generalForm(t))
	target := mustCreate(t, svc, generalForm(t))
	_ = svc.Select(target.ID)

	before := svc.History()
	st.set(func(f *fakeStore) { f.failUpdate = errors.New("store error: boom") })

	err := svc.Update(ctx, target.ID, "task", "changed")
	if !IsKind(err, KindConnectivity) {
		t.Fatalf("Update() error = %v, want connectivity", err)
	}
	if after := svc.History(); !reflect.DeepEqual(after, before) {
		t.Errorf("history not restored\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestUpdate_Rejections(t *testing.T) {
	svc, st := newTestService(t)
	saved := mustCreate(t, svc, generalForm(t))

	tests := []struct {
		name     string
		ctx      context.Context
		id       string
		field    string
		value    any
		wantKind Kind
	}{
		{"unknown field", context.Background(), saved.ID, "nope", "x", KindValidation},
		{"immutable id", context.Background(), saved.ID, "id", "x", KindValidation},
		{"bad value type", context.Background(), saved.ID, "task", 42, KindValidation},
		{"unknown record", context.Background(), "missing", "task", "x", KindNotFound},
		{"technician", technician(), saved.ID, "status", record.StatusClosed, KindPermission},
		{"status outside domain", context.Background(), saved.ID, "status", "Banana", KindValidation},
		{"tri-state outside domain", context.Background(), saved.ID, "isValidated", "talvez", KindValidation},
		{"unknown sic item", context.Background(), saved.ID, "sicOptions", []any{"Saques", "Nope"}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Update(tt.ctx, tt.id, tt.field, tt.value)
			if !IsKind(err, tt.wantKind) {
				t.Errorf("Update() error = %v, want %s", err, tt.wantKind)
			}
		})
	}
	if st.updates != 0 {
		t.Errorf("store updated %d times for rejected calls", st.updates)
	}
}

func TestUpdate_ConcurrentFetchKeepsPendingValue(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))

	started, release := gate(st, "update")
	done := make(chan error, 1)
	go func() { done <- svc.Update(ctx, saved.ID, "status", record.StatusClosed) }()
	<-started

	// A refresh lands while the store call is pending and reads the old row.
	if err := svc.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if got, _ := svc.Get(saved.ID); got.Status != record.StatusClosed {
		t.Errorf("status during update = %q, want %q", got.Status, record.StatusClosed)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got, _ := svc.Get(saved.ID); got.Status != record.StatusClosed {
		t.Errorf("status after update = %q, want %q", got.Status, record.StatusClosed)
	}
	if err := svc.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.Get(saved.ID); got.Status != record.StatusClosed {
		t.Errorf("status after refetch = %q", got.Status)
	}
	if n := svc.trackedChanges(); n != 0 {
		t.Errorf("tracked changes = %d, want 0", n)
	}
}

func TestUpdate_FailureDuringFetchRollsBack(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))

	started, release := gate(st, "update")
	st.set(func(f *fakeStore) { f.failUpdate = errors.New("connection reset by peer") })
	done := make(chan error, 1)
	go func() { done <- svc.Update(ctx, saved.ID, "task", "changed") }()
	<-started

	if err := svc.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; !IsKind(err, KindConnectivity) {
		t.Fatalf("Update() error = %v, want connectivity", err)
	}
	if got, _ := svc.Get(saved.ID); got.Task != saved.Task {
		t.Errorf("task = %q, want %q", got.Task, saved.Task)
	}
	if n := svc.trackedChanges(); n != 0 {
		t.Errorf("tracked changes = %d, want 0", n)
	}
}

func TestDelete_ConcurrentFetchKeepsRecordGone(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))

	started, release := gate(st, "delete")
	done := make(chan error, 1)
	go func() { done <- svc.Delete(ctx, saved.ID) }()
	<-started

	if err := svc.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(saved.ID); !IsKind(err, KindNotFound) {
		t.Errorf("deleted record back in history, err = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(svc.History()) != 0 {
		t.Errorf("history = %+v, want empty", svc.History())
	}
}

func TestCreate_DuringFetchIsKept(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	started, release := gate(st, "select")
	done := make(chan error, 1)
	go func() { done <- svc.FetchAll(ctx) }()
	<-started

	saved := mustCreate(t, svc, generalForm(t))
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if _, err := svc.Get(saved.ID); err != nil {
		t.Errorf("record created during fetch lost: %v", err)
	}
	if n := svc.trackedChanges(); n != 0 {
		t.Errorf("tracked changes = %d, want 0", n)
	}
}

func TestToggleStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))

	next, err := svc.ToggleStatus(ctx, saved.ID, record.StatusOpen)
	if err != nil {
		t.Fatalf("ToggleStatus() error = %v", err)
	}
	if next != record.StatusClosed {
		t.Errorf("next = %q", next)
	}
	next, _ = svc.ToggleStatus(ctx, saved.ID, next)
	if next != record.StatusOpen {
		t.Errorf("second toggle = %q", next)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	saved := mustCreate(t, svc, generalForm(t))
	_ = svc.Select(saved.ID)

	if err := svc.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(svc.History()) != 0 {
		t.Error("record still in history")
	}
	if _, ok := svc.Selected(); ok {
		t.Error("selection not cleared")
	}
	if err := svc.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if len(svc.History()) != 0 {
		t.Error("record still in store")
	}
}

func TestDelete_TechnicianRejected(t *testing.T) {
	svc, st := newTestService(t)
	saved := mustCreate(t, svc, generalForm(t))
	before := svc.History()

	err := svc.Delete(technician(), saved.ID)
	if !IsKind(err, KindPermission) {
		t.Fatalf("Delete() error = %v, want permission", err)
	}
	if !reflect.DeepEqual(svc.History(), before) {
		t.Error("history changed")
	}
	if st.deletes != 0 {
		t.Error("store delete issued")
	}
}

func TestDelete_FailureRefetches(t *testing.T) {
	svc, st := newTestService(t)
	saved := mustCreate(t, svc, generalForm(t))
	st.set(func(f *fakeStore) { f.failDelete = errors.New("connection reset by peer") })
	selectsBefore := st.selects

	err := svc.Delete(context.Background(), saved.ID)
	if !IsKind(err, KindConnectivity) {
		t.Fatalf("Delete() error = %v, want connectivity", err)
	}
	if st.selects != selectsBefore+1 {
		t.Errorf("selects = %d, want a resync fetch", st.selects-selectsBefore)
	}
	if h := svc.History(); len(h) != 1 || h[0].ID != saved.ID {
		t.Errorf("history after resync = %+v", h)
	}
}

func TestFetchAll_MissingTable(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, generalForm(t))
	before := svc.History()

	st.set(func(f *fakeStore) {
		f.failSelect = &store.Error{Code: store.CodeUndefinedTable, Message: "relation does not exist"}
	})
	err := svc.FetchAll(ctx)
	if !IsKind(err, KindMissingTable) {
		t.Fatalf("FetchAll() error = %v, want missing table", err)
	}
	if !reflect.DeepEqual(svc.History(), before) {
		t.Error("history changed on failed fetch")
	}
	banner := svc.Banner()
	if banner == nil || banner.Code != "TBL001" || !strings.Contains(banner.Message, store.RecordsTable) {
		t.Fatalf("Banner() = %+v", banner)
	}

	st.set(func(f *fakeStore) { f.failSelect = nil })
	if err := svc.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	if svc.Banner() != nil {
		t.Error("banner not cleared after successful fetch")
	}
}

func TestFetchAll_ConnectivityNoBanner(t *testing.T) {
	svc, st := newTestService(t)
	st.set(func(f *fakeStore) { f.failSelect = errors.New("failed to connect") })

	if err := svc.FetchAll(context.Background()); !IsKind(err, KindConnectivity) {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if svc.Banner() != nil {
		t.Error("connectivity errors are transient")
	}
}

func TestSearchAndDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, generalForm(t))

	f := generalForm(t)
	_ = f.SetField("task", "HW-99")
	_ = f.SetField("isEscalated", record.Yes)
	escalated := mustCreate(t, svc, f)

	esc := form.New()
	_ = esc.SetMode(record.TypeEscalation)
	_ = esc.SetField("analystName", "Bia")
	mustCreate(t, svc, esc)

	found, err := svc.Search(ctx, "hw-9")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != escalated.ID {
		t.Errorf("Search() = %+v", found)
	}

	rows, stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || stats.Total != 2 || stats.Open != 2 || stats.Closed != 0 {
		t.Errorf("Dashboard() = %d rows, %+v", len(rows), stats)
	}

	if _, err := svc.Search(technician(), ""); !IsKind(err, KindPermission) {
		t.Errorf("technician Search() error = %v", err)
	}
	if _, _, err := svc.Dashboard(technician()); !IsKind(err, KindPermission) {
		t.Errorf("technician Dashboard() error = %v", err)
	}
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Export(ctx, report.FilterAll, FormatCSV); !IsKind(err, KindEmptyExport) {
		t.Fatalf("empty Export() error = %v", err)
	}

	mustCreate(t, svc, generalForm(t))

	out, err := svc.Export(ctx, report.FilterAll, FormatCSV)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if out.Rows != 1 || out.ContentType != report.CSVContentType {
		t.Errorf("Export() = rows %d, type %q", out.Rows, out.ContentType)
	}
	if !strings.HasPrefix(out.Filename, "relatorio_completo_ura") {
		t.Errorf("Filename = %q", out.Filename)
	}

	if _, err := svc.Export(ctx, report.FilterEscalated, FormatXLSX); !IsKind(err, KindEmptyExport) {
		t.Errorf("escalated Export() error = %v", err)
	}
	if _, err := svc.Export(ctx, report.FilterAll, "pdf"); !IsKind(err, KindValidation) {
		t.Errorf("pdf Export() error = %v", err)
	}

	user := auth.WithIdentity(ctx, auth.Identity{Subject: "maria", Role: auth.RoleUser})
	if _, err := svc.Export(user, report.FilterAll, FormatCSV); !IsKind(err, KindPermission) {
		t.Errorf("non-admin Export() error = %v", err)
	}
}

func TestAuditLog(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := WithRequestMeta(context.Background(), "10.0.0.7", "test-agent")

	f := generalForm(t)
	saved, _, err := svc.Create(ctx, f, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Update(ctx, saved.ID, "task", "T2"); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.AuditLog(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("AuditLog() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	upd := entries[0]
	if upd.Action != ActionUpdate || upd.OldValue != "T1" || upd.NewValue != "T2" || upd.Field != "task" {
		t.Errorf("update entry = %+v", upd)
	}
	if upd.IPAddress != "10.0.0.7" || upd.UserAgent != "test-agent" || upd.Subject != auth.DefaultSubject {
		t.Errorf("request metadata = %+v", upd)
	}
	if entries[1].Action != ActionCreate || entries[1].Severity != SeverityMedium {
		t.Errorf("create entry = %+v", entries[1])
	}

	only, _ := svc.AuditLog(ctx, AuditFilter{Action: ActionCreate})
	if len(only) != 1 {
		t.Errorf("filtered entries = %d", len(only))
	}
	if _, err := svc.AuditLog(technician(), AuditFilter{}); !IsKind(err, KindPermission) {
		t.Errorf("technician AuditLog() error = %v", err)
	}
}

func TestReinitialize(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, generalForm(t))

	next := store.NewMemory(store.RecordsTable, store.AuditTable)
	if err := svc.Reinitialize(ctx, next); err != nil {
		t.Fatalf("Reinitialize() error = %v", err)
	}
	if len(svc.History()) != 0 {
		t.Error("history from previous store survived")
	}

	// Missing table on the new store leaves the banner set.
	if err := svc.Reinitialize(ctx, store.NewMemory()); !IsKind(err, KindMissingTable) {
		t.Fatalf("Reinitialize() error = %v", err)
	}
	if svc.Banner() == nil {
		t.Error("banner not set")
	}
}

func TestKeyedMutex(t *testing.T) {
	var km keyedMutex
	unlock := km.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("a")
		close(acquired)
		u()
	}()

	// A different key is not blocked.
	km.Lock("b")()

	select {
	case <-acquired:
		t.Fatal("second Lock on same key did not block")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired")
	}

	// Let the goroutine release its entry.
	deadline := time.Now().Add(time.Second)
	for km.size() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := km.size(); n != 0 {
		t.Errorf("size() = %d, want 0", n)
	}
}
