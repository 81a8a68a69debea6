package summary

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/hwlog/internal/record"
)

func generalDraft() record.SupportRecord {
	r := record.Defaults()
	r.AnalystName = "Ana"
	r.LocationName = "Agencia1"
	r.Task = "T1"
	r.Subject = "1200 - Dúvida técnica"
	r.IsEscalated = record.No
	r.ProblemDescription = "p"
	r.ActionTaken = "a"
	r.ValidCall = record.Yes
	r.TrainingProvided = record.No
	r.UsedAcfs = record.No
	return r
}

func TestGenerateGeneral(t *testing.T) {
	got := Generate(generalDraft(), record.TypeGeneral)

	if !strings.HasPrefix(got, "=== REGISTRO DE ATENDIMENTO HW ===") {
		t.Errorf("summary does not start with general header:\n%s", got)
	}
	for _, want := range []string{"Analista: Ana", "Task: T1", "Assunto: 1200 - Dúvida técnica", "Utilizou ACFS: Não"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Analista do Banco") {
		t.Errorf("non-escalated summary contains bank analyst line:\n%s", got)
	}
}

func TestGenerateGeneralEscalated(t *testing.T) {
	r := generalDraft()
	r.IsEscalated = record.Yes
	r.BankAnalystName = "Carlos"

	got := Generate(r, record.TypeGeneral)
	if !strings.Contains(got, "Chamado Escalado: Sim\nAnalista do Banco: Carlos\n") {
		t.Errorf("escalated summary missing bank analyst:\n%s", got)
	}
}

func TestGenerateValidationHeader(t *testing.T) {
	tests := []struct {
		validated string
		want      string
	}{
		{record.Yes, "#VLDD# === ESCALADA / VALIDAÇÃO ==="},
		{record.No, "#NVLDD# === ESCALADA / VALIDAÇÃO ==="},
		{"", "=== ESCALADA / VALIDAÇÃO ==="},
	}

	for _, tt := range tests {
		t.Run("validated="+tt.validated, func(t *testing.T) {
			r := record.Defaults()
			r.IsValidated = tt.validated
			got := Generate(r, record.TypeValidation)
			first, _, _ := strings.Cut(got, "\n")
			if first != tt.want {
				t.Errorf("first line = %q, want %q", first, tt.want)
			}
		})
	}
}

func TestGenerateValidationChecklist(t *testing.T) {
	r := record.Defaults()
	r.AnalystName = "Ana"
	r.CustomerComplaint = "não saca"
	r.WasPartChanged = record.Yes
	r.PartChangedDescription = "sensor"
	r.SicOptions = []string{"Saques", "Sensores"}
	r.CustomerName = "João"
	r.CustomerBadge = "123"
	r.StartTime = "2024-03-01T10:05"

	got := Generate(r, record.TypeValidation)
	for _, want := range []string{
		"Defeito Reclamado (Cliente):\nnão saca\n",
		"Peça Trocada? Sim (sensor)",
		"SIC Verificado: Saques, Sensores",
		"Acompanhamento: João (Mat: 123)",
		"Início: 01/03/2024, 10:05:00",
		"Fim: ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}

	r.SicOptions = nil
	r.WasPartChanged = record.No
	got = Generate(r, record.TypeValidation)
	if !strings.Contains(got, "SIC Verificado: Nenhum") {
		t.Errorf("empty SIC not rendered as Nenhum:\n%s", got)
	}
	if !strings.Contains(got, "Peça Trocada? Não\n") {
		t.Errorf("part description shown when no part changed:\n%s", got)
	}
}

func TestGenerateEscalation(t *testing.T) {
	r := record.Defaults()
	r.AnalystName = "Ana"
	r.TechnicianName = "Rafa"
	r.Task = "CH-9"
	r.EscalationDate = "2024-03-01T08:00"

	got := Generate(r, record.TypeEscalation)
	want := strings.Join([]string{
		"=== CHAMADO / ESCALADO ===",
		"Data da Escalada: 01/03/2024, 08:00:00",
		"Local: ",
		"Task / Chamado: CH-9",
		"Técnico: Rafa",
		separator,
		"Defeito Reclamado (Cliente):",
		separator,
		"Analista Responsável: Ana",
	}, "\n")
	if got != want {
		t.Errorf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestDateFormatter(t *testing.T) {
	tests := []struct {
		locale string
		in     string
		want   string
	}{
		{"", "2024-03-01T10:05", "01/03/2024, 10:05:00"},
		{"pt-BR", "2024-12-31T23:59", "31/12/2024, 23:59:00"},
		{"en-US", "2024-03-01T15:05", "3/1/2024, 3:05:00 PM"},
		{"de-DE", "2024-03-01T10:05", "01/03/2024, 10:05:00"},
		{"pt-BR", "", ""},
		{"pt-BR", "not a date", ""},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.in, func(t *testing.T) {
			got := NewDateFormatter(tt.locale).Format(tt.in)
			if got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
