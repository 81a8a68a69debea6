package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/hwlog/internal/logging"
	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/report"
	"github.com/JonMunkholm/hwlog/internal/store"
)

// Report formats accepted by Export.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// FetchAll loads every record, newest first, replacing history. Mutations
// still in flight are replayed on top of the loaded rows so they are not
// lost. On failure history is left as it was. A missing table also sets the
// persistent banner; a successful load clears it.
func (s *Service) FetchAll(ctx context.Context) error {
	const op = "fetch"

	s.mu.Lock()
	s.beginFetch()
	s.mu.Unlock()

	opCtx, cancel := s.opContext(ctx)
	rows, err := s.backend().Select(opCtx, s.recordsTable, store.Query{
		Order: &store.Order{Column: record.ColumnCreatedAt, Ascending: false},
	})
	cancel()
	if err != nil {
		logging.FromContext(ctx).Error("fetch records failed", "table", s.recordsTable, "error", err)
		cerr := storeError(op, err)
		s.mu.Lock()
		s.endFetch()
		if IsKind(cerr, KindMissingTable) {
			msg := MapError(cerr)
			msg.Message = fmt.Sprintf("A tabela '%s' não existe no banco de dados.", s.recordsTable)
			s.banner = &msg
		}
		s.mu.Unlock()
		return cerr
	}

	history := make([]record.SupportRecord, 0, len(rows))
	for _, row := range rows {
		history = append(history, record.FromRow(row))
	}

	s.mu.Lock()
	s.history = s.replay(history)
	s.endFetch()
	s.version++
	s.banner = nil
	if indexOf(s.history, s.selected) < 0 {
		s.selected = ""
	}
	count := len(s.history)
	s.mu.Unlock()

	logging.FromContext(ctx).Debug("records loaded", "count", count, "store", s.StoreKind())
	return nil
}

// Export is a rendered report ready for download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// Export renders history through filter in format ("csv" or "xlsx").
// Only admins may export. An empty selection is a KindEmptyExport error.
func (s *Service) Export(ctx context.Context, filter report.Filter, format string) (Export, error) {
	const op = "export"
	if !identityFrom(ctx).IsAdmin() {
		return Export{}, permissionError(op, "Apenas administradores podem exportar relatórios.")
	}

	history := s.History()
	var out Export
	var err error

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		var text string
		out.Filename, text, err = s.exporter.CSV(history, filter)
		out.Data = []byte(text)
		out.ContentType = report.CSVContentType
	case FormatXLSX:
		out.Filename, out.Data, err = s.exporter.XLSX(history, filter)
		out.ContentType = report.XLSXContentType
	default:
		return Export{}, validationError(op, "EXP002", fmt.Sprintf("Formato de relatório inválido: %q.", format))
	}
	if err != nil {
		if IsKind(err, KindEmptyExport) {
			return Export{}, &Error{Kind: KindEmptyExport, Op: op, Err: err}
		}
		return Export{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, r := range history {
		if filter.Match(r) {
			out.Rows++
		}
	}

	logging.FromContext(ctx).Info("report exported",
		"filter", filter,
		"format", format,
		"rows", out.Rows,
	)
	s.logAudit(ctx, AuditParams{
		Action:       ActionExport,
		Field:        string(filter),
		NewValue:     out.Filename,
		RowsAffected: out.Rows,
	})
	return out, nil
}
