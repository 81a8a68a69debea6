// Package summary renders a support record as the plain-text block that
// analysts paste into the external ticketing system.
package summary

import (
	"strings"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// Validation tags prefixed to VALIDATION summaries.
const (
	TagValidated    = "#VLDD#"
	TagNotValidated = "#NVLDD#"
)

const separator = "----------------------------------------"

// Generator builds summaries using a display date formatter.
type Generator struct {
	dates *DateFormatter
}

// NewGenerator returns a Generator that renders timestamps with dates.
// A nil formatter falls back to pt-BR.
func NewGenerator(dates *DateFormatter) *Generator {
	if dates == nil {
		dates = NewDateFormatter("")
	}
	return &Generator{dates: dates}
}

var defaultGenerator = NewGenerator(nil)

// Generate renders r for mode using the default pt-BR formatter.
func Generate(r record.SupportRecord, mode record.Type) string {
	return defaultGenerator.Generate(r, mode)
}

// Generate renders r in the layout of mode. Empty lines are dropped.
func (g *Generator) Generate(r record.SupportRecord, mode record.Type) string {
	var lines []string
	switch mode {
	case record.TypeValidation:
		lines = g.validation(r)
	case record.TypeEscalation:
		lines = g.escalation(r)
	default:
		lines = g.general(r)
	}

	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func (g *Generator) validation(r record.SupportRecord) []string {
	tag := ""
	switch r.IsValidated {
	case record.Yes:
		tag = TagValidated
	case record.No:
		tag = TagNotValidated
	}

	part := "Peça Trocada? " + r.WasPartChanged
	if r.WasPartChanged == record.Yes {
		part += " (" + r.PartChangedDescription + ")"
	}

	sic := "Nenhum"
	if len(r.SicOptions) > 0 {
		sic = strings.Join(r.SicOptions, ", ")
	}

	badge := ""
	if r.CustomerBadge != "" {
		badge = "(Mat: " + r.CustomerBadge + ")"
	}

	return []string{
		strings.TrimSpace(tag + " === ESCALADA / VALIDAÇÃO ==="),
		"Analista: " + r.AnalystName,
		"Local: " + r.LocationName,
		"Task: " + r.Task,
		separator,
		"Defeito Reclamado (Cliente):",
		r.CustomerComplaint,
		separator,
		">>> CHECKLIST <<<",
		"Validado? " + r.IsValidated,
		"Plano de Ação Efetivo? " + r.IsActionPlanEffective,
		part,
		"Diag Completo? " + r.UsedDiagValidation,
		"Cartão Teste? " + r.UsedTestCard,
		"SIC Verificado: " + sic,
		"Acompanhamento: " + r.CustomerName + " " + badge,
		separator,
		"Início: " + g.dates.Format(r.StartTime),
		"Fim: " + g.dates.Format(r.EndTime),
	}
}

func (g *Generator) escalation(r record.SupportRecord) []string {
	return []string{
		"=== CHAMADO / ESCALADO ===",
		"Data da Escalada: " + g.dates.Format(r.EscalationDate),
		"Local: " + r.LocationName,
		"Task / Chamado: " + r.Task,
		"Técnico: " + r.TechnicianName,
		separator,
		"Defeito Reclamado (Cliente):",
		r.CustomerComplaint,
		separator,
		"Analista Responsável: " + r.AnalystName,
	}
}

func (g *Generator) general(r record.SupportRecord) []string {
	lines := []string{
		"=== REGISTRO DE ATENDIMENTO HW ===",
		"Analista: " + r.AnalystName,
		"Local: " + r.LocationName,
		"Task: " + r.Task,
		"SR: " + r.SR,
		"Assunto: " + r.Subject,
		"Chamado Escalado: " + r.IsEscalated,
	}
	if r.IsEscalated == record.Yes {
		lines = append(lines, "Analista do Banco: "+r.BankAnalystName)
	}
	return append(lines,
		separator,
		"Problema Relatado (Técnico):",
		r.ProblemDescription,
		separator,
		"Ação do Analista:",
		r.ActionTaken,
		separator,
		"Início Suporte: "+g.dates.Format(r.StartTime),
		"Fim Suporte: "+g.dates.Format(r.EndTime),
		"Ligação Devida: "+r.ValidCall,
		"Houve Ensinamento: "+r.TrainingProvided,
		"Utilizou ACFS: "+r.UsedAcfs,
	)
}
