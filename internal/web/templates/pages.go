package templates

import (
	"net/url"
	"strings"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// RecordsData is the records page view model.
type RecordsData struct {
	Search   string
	Records  []record.SupportRecord
	Selected *record.SupportRecord
	Summary  string
	CanAdmin bool
	Dates    func(string) string
}

func (d RecordsData) date(v string) string {
	if d.Dates == nil {
		return v
	}
	return d.Dates(v)
}

// detailLink opens id in the detail pane, keeping the current search.
func (d RecordsData) detailLink(id string) string {
	q := url.Values{"id": {id}}
	if d.Search != "" {
		q.Set("search", d.Search)
	}
	return "/records?" + q.Encode()
}

var exportLinks = []struct{ filter, label string }{
	{"ALL", "Completo"},
	{"VALIDATED", "Validados"},
	{"NOT_VALIDATED", "Não validados"},
	{"ESCALATED", "Escaladas"},
}

// DashboardData is the escalation dashboard view model.
type DashboardData struct {
	Records []record.SupportRecord
	Stats   record.DashboardStats
	Dates   func(string) string
}

// when is the date shown for r: the escalation date, or the start time of
// GENERAL records escalated to the bank.
func (d DashboardData) when(r record.SupportRecord) string {
	v := r.EscalationDate
	if r.RecordType == record.TypeGeneral {
		v = r.StartTime
	}
	if d.Dates != nil {
		return d.Dates(v)
	}
	return v
}

func contact(r record.SupportRecord) string {
	if r.RecordType == record.TypeGeneral {
		return r.BankAnalystName
	}
	return r.TechnicianName
}

func complaintLines(r record.SupportRecord) []string {
	c := r.CustomerComplaint
	if c == "" {
		c = r.ProblemDescription
	}
	return strings.Split(c, "\n")
}

// SettingsData is the settings page view model.
type SettingsData struct {
	Source    string
	URL       string
	HasKey    bool
	StoreKind string
	Locale    string
	SetupSQL  string
	CanAdmin  bool
}

func keyHint(hasKey bool) string {
	if hasKey {
		return "(salva)"
	}
	return ""
}
