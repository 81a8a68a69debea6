// Package record defines the support record model shared by the form,
// summary, report, and lifecycle packages.
package record

import (
	"strings"
	"time"
)

// Type is the discriminant of a SupportRecord. It is set once, from the
// active form mode, when the record is created.
type Type string

const (
	TypeGeneral    Type = "GENERAL"
	TypeValidation Type = "VALIDATION"
	TypeEscalation Type = "ESCALATION"
)

// Valid reports whether t is one of the known record types.
func (t Type) Valid() bool {
	switch t {
	case TypeGeneral, TypeValidation, TypeEscalation:
		return true
	}
	return false
}

// ParseMode maps a form tab name or record type to a Type.
// Accepts "geral", "escala", "chamadoEscalado" and the upper-case type names.
func ParseMode(s string) (Type, bool) {
	switch strings.TrimSpace(s) {
	case "geral", "general", string(TypeGeneral):
		return TypeGeneral, true
	case "escala", "validation", string(TypeValidation):
		return TypeValidation, true
	case "chamadoEscalado", "escalation", string(TypeEscalation):
		return TypeEscalation, true
	}
	return "", false
}

// Tab returns the form tab name for a type.
func (t Type) Tab() string {
	switch t {
	case TypeValidation:
		return "escala"
	case TypeEscalation:
		return "chamadoEscalado"
	default:
		return "geral"
	}
}

// Yes/no answers as stored.
const (
	Yes = "Sim"
	No  = "Não"
)

// Status values for escalated records.
const (
	StatusOpen   = "Aberto"
	StatusClosed = "Fechado"
)

// ToggleStatus flips Open and Closed. Anything that is not Open becomes Open.
func ToggleStatus(current string) string {
	if current == StatusOpen {
		return StatusClosed
	}
	return StatusOpen
}

// SicOption is one item of the SIC hardware checklist.
type SicOption string

const (
	SicSaques     SicOption = "Saques"
	SicDepositos  SicOption = "Depositos"
	SicSensores   SicOption = "Sensores"
	SicSmartPower SicOption = "SmartPower"
)

// SicOptions lists the checklist items in display order.
var SicOptions = []SicOption{SicSaques, SicDepositos, SicSensores, SicSmartPower}

// ValidSic reports whether s names a checklist item.
func ValidSic(s string) bool {
	for _, o := range SicOptions {
		if string(o) == s {
			return true
		}
	}
	return false
}

// SubjectOption is an entry of the support subject catalogue.
type SubjectOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Subjects is the fixed subject catalogue offered on the GENERAL form.
var Subjects = []SubjectOption{
	{Code: "1100", Label: "1100 - Código"},
	{Code: "1101", Label: "1101 - Código de peças"},
	{Code: "1102", Label: "1102 - Código de mídias"},
	{Code: "1200", Label: "1200 - Dúvida técnica"},
	{Code: "1201", Label: "1201 - Interpretação defeito"},
	{Code: "1202", Label: "1202 - Testes em periféricos"},
	{Code: "1203", Label: "1203 - Sistema de ensinamento"},
	{Code: "1204", Label: "1204 - Status dos sensores"},
	{Code: "1205", Label: "1205 - Diag não carrega"},
	{Code: "1206", Label: "1206 - Erro de HW"},
	{Code: "1207", Label: "1207 - Dúvidas configuração"},
}

// SupportRecord is a support incident entry. Fields not used by a record's
// Type keep their defaults.
type SupportRecord struct {
	ID         string    `json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	RecordType Type      `json:"recordType"`

	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Subject      string `json:"subject"`
	Task         string `json:"task"`
	SR           string `json:"sr"`
	AnalystName  string `json:"analystName"`
	LocationName string `json:"locationName"`

	IsEscalated        string `json:"isEscalated"`
	BankAnalystName    string `json:"bankAnalystName"`
	ProblemDescription string `json:"problemDescription"`
	ActionTaken        string `json:"actionTaken"`
	ValidCall          string `json:"validCall"`
	TrainingProvided   string `json:"trainingProvided"`
	UsedAcfs           string `json:"usedAcfs"`

	CustomerComplaint      string   `json:"customerComplaint"`
	IsValidated            string   `json:"isValidated"`
	IsActionPlanEffective  string   `json:"isActionPlanEffective"`
	WasPartChanged         string   `json:"wasPartChanged"`
	PartChangedDescription string   `json:"partChangedDescription"`
	UsedDiagValidation     string   `json:"usedDiagValidation"`
	UsedTestCard           string   `json:"usedTestCard"`
	SicOptions             []string `json:"sicOptions"`
	CustomerName           string   `json:"customerName"`
	CustomerBadge          string   `json:"customerBadge"`

	EscalationDate string `json:"escalationDate"`
	TechnicianName string `json:"technicianName"`

	Status               string `json:"status"`
	EscalationValidation string `json:"escalationValidation"`
}

// Clone returns a deep copy of r.
func (r SupportRecord) Clone() SupportRecord {
	if r.SicOptions != nil {
		r.SicOptions = append([]string(nil), r.SicOptions...)
	}
	return r
}

// Defaults returns a blank draft with every field at its initial value.
// Timestamps are left empty; the form fills them.
func Defaults() SupportRecord {
	return SupportRecord{
		RecordType:            TypeGeneral,
		IsEscalated:           No,
		ValidCall:             Yes,
		TrainingProvided:      No,
		UsedAcfs:              No,
		IsActionPlanEffective: Yes,
		WasPartChanged:        No,
		UsedDiagValidation:    Yes,
		UsedTestCard:          No,
		SicOptions:            []string{},
		Status:                StatusOpen,
		EscalationValidation:  No,
	}
}

// OnDashboard reports whether r belongs to the escalation dashboard view.
func (r SupportRecord) OnDashboard() bool {
	return r.RecordType == TypeEscalation ||
		(r.RecordType == TypeGeneral && r.IsEscalated == Yes)
}

// Matches reports whether r contains term (case-insensitive) in its task,
// SR, analyst, or location. An empty term matches everything.
func (r SupportRecord) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, v := range []string{r.Task, r.SR, r.AnalystName, r.LocationName} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

// DashboardStats counts dashboard records by status.
type DashboardStats struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// Dashboard filters history down to the escalation dashboard view and
// returns it with its stats. Order is preserved.
func Dashboard(history []SupportRecord) ([]SupportRecord, DashboardStats) {
	var out []SupportRecord
	var stats DashboardStats
	for _, r := range history {
		if !r.OnDashboard() {
			continue
		}
		out = append(out, r)
		stats.Total++
		switch r.Status {
		case StatusOpen:
			stats.Open++
		case StatusClosed:
			stats.Closed++
		}
	}
	return out, stats
}
