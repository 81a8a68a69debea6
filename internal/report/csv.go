package report

import (
	"strings"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// CSVContentType is the MIME type of CSV reports.
const CSVContentType = "text/csv;charset=utf-8"

// bom makes spreadsheet tools detect UTF-8.
const bom = "\uFEFF"

// CSV renders history as a semicolon-delimited report and returns the
// download filename with the text.
func (e *Exporter) CSV(history []record.SupportRecord, f Filter) (string, string, error) {
	rows, err := e.Rows(history, f)
	if err != nil {
		return "", "", err
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(Headers, ";"))
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = quote(clean(v))
		}
		lines = append(lines, strings.Join(fields, ";"))
	}
	return f.basename() + ".csv", bom + strings.Join(lines, "\n"), nil
}

// clean keeps a value inside one cell: semicolons become commas and
// line breaks become spaces.
func clean(s string) string {
	s = strings.ReplaceAll(s, ";", ",")
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
