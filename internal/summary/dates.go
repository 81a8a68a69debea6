package summary

import (
	"strings"
	"time"

	"github.com/JonMunkholm/hwlog/internal/record"
	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.BrazilianPortuguese, // default
	language.AmericanEnglish,
	language.BritishEnglish,
	language.EuropeanPortuguese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var layouts = map[language.Tag]string{
	language.BrazilianPortuguese: "02/01/2006, 15:04:05",
	language.EuropeanPortuguese:  "02/01/2006, 15:04:05",
	language.AmericanEnglish:     "1/2/2006, 3:04:05 PM",
	language.BritishEnglish:      "02/01/2006, 15:04:05",
}

// DateFormatter renders stored timestamps for display in one locale.
type DateFormatter struct {
	tag    language.Tag
	layout string
	loc    *time.Location
}

// NewDateFormatter matches locale (a BCP 47 tag such as "pt-BR") against
// the supported display locales. Unknown or empty tags fall back to pt-BR.
func NewDateFormatter(locale string) *DateFormatter {
	tag := language.BrazilianPortuguese
	if locale = strings.TrimSpace(locale); locale != "" {
		if t, err := language.Parse(locale); err == nil {
			_, idx, conf := localeMatcher.Match(t)
			if conf != language.No {
				tag = supportedLocales[idx]
			}
		}
	}
	return &DateFormatter{tag: tag, layout: layouts[tag], loc: time.Local}
}

// Locale returns the matched locale tag.
func (f *DateFormatter) Locale() string {
	return f.tag.String()
}

// Format renders a datetime-local or RFC 3339 value. Empty or unparseable
// input yields "".
func (f *DateFormatter) Format(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	t, err := time.ParseInLocation(record.InputLayout, value, f.loc)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return ""
		}
		t = t.In(f.loc)
	}
	return t.Format(f.layout)
}
