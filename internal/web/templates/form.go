package templates

import "github.com/JonMunkholm/hwlog/internal/record"

// FormData is the form page view model.
type FormData struct {
	Mode        record.Type
	Draft       record.SupportRecord
	Summary     string
	CanEscalate bool
}

type tab struct {
	mode  record.Type
	label string
}

var tabs = []tab{
	{record.TypeGeneral, "Geral"},
	{record.TypeValidation, "Validação (Escala)"},
	{record.TypeEscalation, "Chamado Escalado"},
}

// visibleTabs hides the escalation tab from callers who may not use it.
func visibleTabs(canEscalate bool) []tab {
	out := make([]tab, 0, len(tabs))
	for _, t := range tabs {
		if t.mode == record.TypeEscalation && !canEscalate {
			continue
		}
		out = append(out, t)
	}
	return out
}

var (
	yesNo            = []string{record.Yes, record.No}
	validatedOptions = []string{"", record.Yes, record.No}
)

func optionLabel(o string) string {
	if o == "" {
		return "-"
	}
	return o
}
