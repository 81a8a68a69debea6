// Package report turns record history into downloadable spreadsheets.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/JonMunkholm/hwlog/internal/summary"
)

// ErrEmpty is returned when a filter selects no records.
var ErrEmpty = errors.New("no records to export for this filter")

// Filter selects which records go into a report.
type Filter string

const (
	FilterAll          Filter = "ALL"
	FilterValidated    Filter = "VALIDATED"
	FilterNotValidated Filter = "NOT_VALIDATED"
	FilterEscalated    Filter = "ESCALATED"
)

// ParseFilter accepts the filter names and their short aliases
// (VLDD, NVLDD, ESCALATION). Empty input means ALL.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return FilterAll, nil
	case "VALIDATED", "VLDD":
		return FilterValidated, nil
	case "NOT_VALIDATED", "NVLDD":
		return FilterNotValidated, nil
	case "ESCALATED", "ESCALATION":
		return FilterEscalated, nil
	}
	return "", fmt.Errorf("unknown report filter %q", s)
}

// Match reports whether r passes the filter.
func (f Filter) Match(r record.SupportRecord) bool {
	switch f {
	case FilterValidated:
		return r.RecordType == record.TypeValidation && r.IsValidated == record.Yes
	case FilterNotValidated:
		return r.RecordType == record.TypeValidation && r.IsValidated == record.No
	case FilterEscalated:
		return r.RecordType == record.TypeEscalation
	}
	return true
}

// basename returns the download name without extension.
func (f Filter) basename() string {
	switch f {
	case FilterValidated:
		return "relatorio_validado_vldd"
	case FilterNotValidated:
		return "relatorio_nao_validado_nvldd"
	case FilterEscalated:
		return "relatorio_escaladas"
	}
	return "relatorio_completo_ura"
}

// Headers is the fixed header row.
var Headers = []string{
	"Data/Hora",
	"Tipo",
	"Analista",
	"Local",
	"Task/SR",
	"Assunto",
	"Validado?",
	"Escalado Por",
	"Técnico",
	"Defeito Cliente",
}

// Exporter builds report rows. Its formatter renders the Data/Hora column.
type Exporter struct {
	dates *summary.DateFormatter
}

// NewExporter returns an exporter using dates for timestamps; nil means pt-BR.
func NewExporter(dates *summary.DateFormatter) *Exporter {
	if dates == nil {
		dates = summary.NewDateFormatter("")
	}
	return &Exporter{dates: dates}
}

// Rows applies the filter and returns one row per record in history order,
// without the header. The result is ErrEmpty when nothing matches.
func (e *Exporter) Rows(history []record.SupportRecord, f Filter) ([][]string, error) {
	var rows [][]string
	for _, r := range history {
		if f.Match(r) {
			rows = append(rows, e.row(r))
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	return rows, nil
}

func (e *Exporter) row(r record.SupportRecord) []string {
	taskSR := r.Task + " "
	if r.SR != "" {
		taskSR += "/ " + r.SR
	}
	return []string{
		e.dates.Format(r.StartTime),
		TypeLabel(r),
		r.AnalystName,
		r.LocationName,
		taskSR,
		r.Subject,
		orDash(r.IsValidated),
		orDash(r.BankAnalystName),
		orDash(r.TechnicianName),
		r.CustomerComplaint,
	}
}

// TypeLabel is VLDD or NVLDD for validation records and the record type otherwise.
func TypeLabel(r record.SupportRecord) string {
	if r.RecordType == record.TypeValidation {
		if r.IsValidated == record.Yes {
			return "VLDD"
		}
		return "NVLDD"
	}
	return string(r.RecordType)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
