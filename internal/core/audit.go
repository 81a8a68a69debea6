package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/store"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionExport AuditAction = "export"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	RecordID     string        `json:"recordId,omitempty"`
	RecordType   record.Type   `json:"recordType,omitempty"`
	Field        string        `json:"field,omitempty"`
	OldValue     string        `json:"oldValue,omitempty"`
	NewValue     string        `json:"newValue,omitempty"`
	Subject      string        `json:"subject,omitempty"`
	Role         string        `json:"role,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditParams contains parameters for creating an audit log entry.
// Caller identity and request metadata come from the context.
type AuditParams struct {
	Action       AuditAction
	RecordID     string
	RecordType   record.Type
	Field        string
	OldValue     string
	NewValue     string
	RowsAffected int
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionDelete:
		return SeverityHigh
	case ActionExport:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// logAudit writes an audit entry to the log and the audit table. Failures
// are logged and never returned; auditing must not fail the operation.
func (s *Service) logAudit(ctx context.Context, p AuditParams) {
	who := identityFrom(ctx)
	ip, ua := RequestMeta(ctx)
	severity := determineSeverity(p.Action)

	row := store.Row{
		"action":        string(p.Action),
		"severity":      string(severity),
		"record_id":     p.RecordID,
		"record_type":   string(p.RecordType),
		"field":         p.Field,
		"old_value":     p.OldValue,
		"new_value":     p.NewValue,
		"subject":       who.Subject,
		"role":          string(who.Role),
		"ip_address":    ip,
		"user_agent":    ua,
		"rows_affected": p.RowsAffected,
	}

	logger := logging.FromContext(ctx)
	logger.Info("audit",
		"action", p.Action,
		"severity", severity,
		"record_id", p.RecordID,
		"subject", who.Subject,
	)

	opCtx, cancel := s.opContext(context.WithoutCancel(ctx))
	defer cancel()
	if _, err := s.backend().Insert(opCtx, s.auditTable, []store.Row{row}); err != nil {
		logger.Warn("audit insert failed", "table", s.auditTable, "action", p.Action, "error", err)
	}
}

// AuditFilter narrows an audit log query.
type AuditFilter struct {
	Action AuditAction
	Limit  int
}

// DefaultAuditLimit caps an unbounded audit query.
const DefaultAuditLimit = 100

// AuditLog returns audit entries newest first. Only admins may read it.
func (s *Service) AuditLog(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	const op = "audit"
	if !identityFrom(ctx).IsAdmin() {
		return nil, permissionError(op, "Apenas administradores podem consultar a auditoria.")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultAuditLimit
	}

	opCtx, cancel := s.opContext(ctx)
	rows, err := s.backend().Select(opCtx, s.auditTable, store.Query{
		Order: &store.Order{Column: record.ColumnCreatedAt, Ascending: false},
	})
	cancel()
	if err != nil {
		return nil, storeError(op, err)
	}

	entries := make([]AuditEntry, 0, min(len(rows), filter.Limit))
	for _, row := range rows {
		e := rowToAuditEntry(row)
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		entries = append(entries, e)
		if len(entries) == filter.Limit {
			break
		}
	}
	return entries, nil
}

func rowToAuditEntry(row store.Row) AuditEntry {
	str := func(k string) string {
		if v, ok := row[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}

	e := AuditEntry{
		ID:         str("id"),
		Action:     AuditAction(str("action")),
		Severity:   AuditSeverity(str("severity")),
		RecordID:   str("record_id"),
		RecordType: record.Type(str("record_type")),
		Field:      str("field"),
		OldValue:   str("old_value"),
		NewValue:   str("new_value"),
		Subject:    str("subject"),
		Role:       str("role"),
		IPAddress:  str("ip_address"),
		UserAgent:  str("user_agent"),
	}
	switch n := row["rows_affected"].(type) {
	case int:
		e.RowsAffected = n
	case int32:
		e.RowsAffected = int(n)
	case int64:
		e.RowsAffected = int(n)
	}
	if t, ok := row[record.ColumnCreatedAt].(time.Time); ok {
		e.CreatedAt = t
	}
	return e
}
