package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/hwlog/internal/record"
	"github.com/xuri/excelize/v2"
)

func sampleHistory() []record.SupportRecord {
	return []record.SupportRecord{
		{RecordType: record.TypeValidation, IsValidated: record.Yes, AnalystName: "Ana", Task: "T1", SR: "S1", StartTime: "2024-03-01T10:00"},
		{RecordType: record.TypeValidation, IsValidated: record.No, AnalystName: "Bia", Task: "T2", CustomerComplaint: "não liga; tela\npreta"},
		{RecordType: record.TypeEscalation, AnalystName: "Caio", TechnicianName: "Rafa"},
		{RecordType: record.TypeGeneral, AnalystName: "Duda", Subject: "1200 - Dúvida técnica", BankAnalystName: "Eva"},
		{RecordType: record.TypeValidation, IsValidated: "", AnalystName: "Enzo"},
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"VLDD", FilterValidated, false},
		{"not_validated", FilterNotValidated, false},
		{"ESCALATION", FilterEscalated, false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFilter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCSVFilters(t *testing.T) {
	e := NewExporter(nil)

	tests := []struct {
		filter   Filter
		filename string
		rows     int
	}{
		{FilterAll, "relatorio_completo_ura.csv", 5},
		{FilterValidated, "relatorio_validado_vldd.csv", 1},
		{FilterNotValidated, "relatorio_nao_validado_nvldd.csv", 1},
		{FilterEscalated, "relatorio_escaladas.csv", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			name, text, err := e.CSV(sampleHistory(), tt.filter)
			if err != nil {
				t.Fatalf("CSV() error = %v", err)
			}
			if name != tt.filename {
				t.Errorf("filename = %q, want %q", name, tt.filename)
			}
			if !strings.HasPrefix(text, "\uFEFFData/Hora;Tipo;Analista;") {
				t.Errorf("missing BOM or header: %q", text[:40])
			}
			if lines := strings.Split(text, "\n"); len(lines) != tt.rows+1 {
				t.Errorf("got %d lines, want %d", len(lines), tt.rows+1)
			}
		})
	}
}

func TestCSVNotValidatedRows(t *testing.T) {
	_, text, err := NewExporter(nil).CSV(sampleHistory(), FilterNotValidated)
	if err != nil {
		t.Fatalf("CSV() error = %v", err)
	}

	lines := strings.Split(text, "\n")
	want := `"";"NVLDD";"Bia";"";"T2 ";"";"Não";"-";"-";"não liga, tela preta"`
	if lines[1] != want {
		t.Errorf("row = %s\nwant  %s", lines[1], want)
	}
}

func TestCSVRowFormatting(t *testing.T) {
	_, text, err := NewExporter(nil).CSV(sampleHistory()[:1], FilterAll)
	if err != nil {
		t.Fatalf("CSV() error = %v", err)
	}
	row := strings.Split(text, "\n")[1]
	want := `"01/03/2024, 10:00:00";"VLDD";"Ana";"";"T1 / S1";"";"Sim";"-";"-";""`
	if row != want {
		t.Errorf("row = %s\nwant  %s", row, want)
	}
}

func TestCSVQuoteEscaping(t *testing.T) {
	h := []record.SupportRecord{{RecordType: record.TypeGeneral, AnalystName: `Ana "A"`}}
	_, text, err := NewExporter(nil).CSV(h, FilterAll)
	if err != nil {
		t.Fatalf("CSV() error = %v", err)
	}
	if !strings.Contains(text, `"Ana ""A"""`) {
		t.Errorf("quotes not doubled: %s", text)
	}
}

func TestExportEmpty(t *testing.T) {
	e := NewExporter(nil)
	h := []record.SupportRecord{{RecordType: record.TypeGeneral}}

	if _, _, err := e.CSV(h, FilterEscalated); !errors.Is(err, ErrEmpty) {
		t.Errorf("CSV() error = %v, want ErrEmpty", err)
	}
	if _, _, err := e.XLSX(nil, FilterAll); !errors.Is(err, ErrEmpty) {
		t.Errorf("XLSX() error = %v, want ErrEmpty", err)
	}
}

func TestTypeLabel(t *testing.T) {
	tests := []struct {
		r    record.SupportRecord
		want string
	}{
		{record.SupportRecord{RecordType: record.TypeValidation, IsValidated: record.Yes}, "VLDD"},
		{record.SupportRecord{RecordType: record.TypeValidation, IsValidated: record.No}, "NVLDD"},
		{record.SupportRecord{RecordType: record.TypeValidation}, "NVLDD"},
		{record.SupportRecord{RecordType: record.TypeGeneral}, "GENERAL"},
		{record.SupportRecord{RecordType: record.TypeEscalation}, "ESCALATION"},
	}
	for _, tt := range tests {
		if got := TypeLabel(tt.r); got != tt.want {
			t.Errorf("TypeLabel(%+v) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestXLSX(t *testing.T) {
	name, data, err := NewExporter(nil).XLSX(sampleHistory(), FilterValidated)
	if err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}
	if name != "relatorio_validado_vldd.xlsx" {
		t.Errorf("filename = %q", name)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "Data/Hora" || rows[1][1] != "VLDD" || rows[1][2] != "Ana" {
		t.Errorf("unexpected rows: %v", rows)
	}
}
