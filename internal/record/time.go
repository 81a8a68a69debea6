package record

import "time"

// InputLayout is the datetime-local layout used for every timestamp field.
const InputLayout = "2006-01-02T15:04"

// FormatInput renders t in InputLayout.
func FormatInput(t time.Time) string {
	return t.Format(InputLayout)
}

// Now returns the current local time in InputLayout.
func Now() string {
	return FormatInput(time.Now())
}
