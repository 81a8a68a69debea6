package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hwlog/internal/form"
	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/store"
)

// preservedOnCreate are the draft fields kept after a successful create.
var preservedOnCreate = []string{"analystName"}

// Create validates the draft in f, inserts it, and prepends the stored
// record to history. On success the summary is copied to clip (nil skips
// the copy) and the draft is reset, keeping the analyst name. On failure
// the draft and history are untouched.
//
// The caller must serialize access to f.
func (s *Service) Create(ctx context.Context, f *form.Form, clip Clipboard) (record.SupportRecord, string, error) {
	const op = "create"
	id := identityFrom(ctx)
	mode := f.Mode()

	if mode == record.TypeEscalation && !id.CanEscalate() {
		return record.SupportRecord{}, "", permissionError(op, "Técnicos não podem registrar chamados escalados.")
	}

	draft := f.Draft()
	draft.RecordType = mode
	if err := validateDraft(op, draft); err != nil {
		return record.SupportRecord{}, "", err
	}

	if draft.EndTime == "" {
		draft.EndTime = record.FormatInput(s.now())
	}
	draft.Status = record.StatusOpen
	draft.EscalationValidation = record.No
	text := s.summaries.Generate(draft, mode)

	opCtx, cancel := s.opContext(ctx)
	rows, err := s.backend().Insert(opCtx, s.recordsTable, []store.Row{draft.ToRow()})
	cancel()
	if err != nil {
		logging.FromContext(ctx).Error("insert record failed",
			"table", s.recordsTable,
			"record_type", mode,
			"error", err,
		)
		return record.SupportRecord{}, "", storeError(op, err)
	}

	saved := draft.Clone()
	if len(rows) > 0 {
		saved = record.FromRow(rows[0])
	} else {
		// Store returned nothing; keep the record locally under a synthetic id.
		saved.ID = uuid.NewString()
		saved.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.history = append([]record.SupportRecord{saved.Clone()}, s.history...)
	s.version++
	if s.fetching > 0 {
		created := saved.Clone()
		s.track(&change{id: saved.ID, created: &created, done: true})
	}
	s.mu.Unlock()

	if clip != nil {
		if err := clip.Copy(ctx, text); err != nil {
			logging.FromContext(ctx).Warn("copy summary failed", "record_id", saved.ID, "error", err)
		}
	}
	f.Reset(preservedOnCreate...)

	logging.FromContext(ctx).Info("record created",
		"record_id", saved.ID,
		"record_type", saved.RecordType,
		"role", id.Role,
	)
	s.logAudit(ctx, AuditParams{
		Action:     ActionCreate,
		RecordID:   saved.ID,
		RecordType: saved.RecordType,
	})

	return saved, text, nil
}

// Update sets one field of record id. History changes immediately; if the
// store rejects the change, history is restored to its pre-call state.
// Updates to the same record are applied in call order, and a FetchAll
// that runs while the store call is pending keeps the new value.
func (s *Service) Update(ctx context.Context, id, field string, value any) error {
	const op = "update"
	who := identityFrom(ctx)
	if !who.CanEscalate() {
		return permissionError(op, "Técnicos não podem alterar registros.")
	}
	if !record.IsField(field) {
		return validationError(op, "VAL003", fmt.Sprintf("Campo inválido: %s.", field))
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	i := indexOf(s.history, id)
	if i < 0 {
		s.mu.Unlock()
		return notFoundError(op, id)
	}
	prev := s.history[i].Clone()
	next := prev.Clone()
	if err := next.Set(field, value); err != nil {
		s.mu.Unlock()
		return validationError(op, "VAL003", fmt.Sprintf("Valor inválido para %s: %v.", field, err))
	}
	newValue, _ := next.Get(field)
	oldValue, _ := prev.Get(field)

	snap := snapshot{history: cloneHistory(s.history), prev: prev}
	s.history[i] = next
	s.version++
	snap.version = s.version
	pending := &change{id: id, field: field, value: newValue}
	s.track(pending)
	s.mu.Unlock()

	opCtx, cancel := s.opContext(ctx)
	err := s.backend().Update(opCtx, s.recordsTable, store.Eq(record.ColumnID, id), store.Row{field: newValue})
	cancel()
	if err != nil {
		s.mu.Lock()
		s.settle(pending, false)
		s.restore(snap, id)
		s.mu.Unlock()

		logging.FromContext(ctx).Error("update record failed",
			"record_id", id,
			"field", field,
			"error", err,
		)
		return storeError(op, err)
	}
	s.mu.Lock()
	s.settle(pending, true)
	s.mu.Unlock()

	logging.FromContext(ctx).Info("record updated",
		"record_id", id,
		"field", field,
		"role", who.Role,
	)
	s.logAudit(ctx, AuditParams{
		Action:     ActionUpdate,
		RecordID:   id,
		RecordType: next.RecordType,
		Field:      field,
		OldValue:   fmt.Sprint(oldValue),
		NewValue:   fmt.Sprint(newValue),
	})
	return nil
}

// ToggleStatus flips a record between Aberto and Fechado and returns the
// new status.
func (s *Service) ToggleStatus(ctx context.Context, id, current string) (string, error) {
	next := record.ToggleStatus(current)
	if err := s.Update(ctx, id, "status", next); err != nil {
		return current, err
	}
	return next, nil
}

// Delete removes record id. Only admins may delete. The record leaves
// history before the store call; if the store fails, history is reloaded
// from the store instead of rolled back.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "delete"
	who := identityFrom(ctx)
	if !who.IsAdmin() {
		return permissionError(op, "Permissão negada. Apenas administradores podem excluir.")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	i := indexOf(s.history, id)
	if i < 0 {
		s.mu.Unlock()
		return notFoundError(op, id)
	}
	removed := s.history[i]
	s.history = append(s.history[:i:i], s.history[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	s.version++
	pending := &change{id: id, deleted: true}
	s.track(pending)
	s.mu.Unlock()

	opCtx, cancel := s.opContext(ctx)
	err := s.backend().Delete(opCtx, s.recordsTable, store.Eq(record.ColumnID, id))
	cancel()
	s.mu.Lock()
	s.settle(pending, err == nil)
	s.mu.Unlock()
	if err != nil {
		logging.FromContext(ctx).Error("delete record failed", "record_id", id, "error", err)
		if ferr := s.FetchAll(ctx); ferr != nil {
			logging.FromContext(ctx).Error("resync after failed delete", "error", ferr)
		}
		return storeError(op, err)
	}

	logging.FromContext(ctx).Info("record deleted", "record_id", id, "role", who.Role)
	s.logAudit(ctx, AuditParams{
		Action:       ActionDelete,
		RecordID:     id,
		RecordType:   removed.RecordType,
		RowsAffected: 1,
	})
	return nil
}
