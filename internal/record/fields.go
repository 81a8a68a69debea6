package record

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownField is returned when a field name is not part of SupportRecord.
var ErrUnknownField = errors.New("unknown field")

// ErrInvalidValue is returned when a value is outside the field's domain.
var ErrInvalidValue = errors.New("invalid value")

// ErrImmutableField is returned when a caller tries to change id,
// created_at or recordType after creation.
var ErrImmutableField = errors.New("field cannot be changed")

// Column names used by the store. They match the JSON names.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnType      = "recordType"
)

type accessor struct {
	get func(*SupportRecord) *string
}

// textFields maps every free-text/enum column to its struct field.
var textFields = map[string]accessor{
	"startTime":              {func(r *SupportRecord) *string { return &r.StartTime }},
	"endTime":                {func(r *SupportRecord) *string { return &r.EndTime }},
	"subject":                {func(r *SupportRecord) *string { return &r.Subject }},
	"task":                   {func(r *SupportRecord) *string { return &r.Task }},
	"sr":                     {func(r *SupportRecord) *string { return &r.SR }},
	"analystName":            {func(r *SupportRecord) *string { return &r.AnalystName }},
	"locationName":           {func(r *SupportRecord) *string { return &r.LocationName }},
	"isEscalated":            {func(r *SupportRecord) *string { return &r.IsEscalated }},
	"bankAnalystName":        {func(r *SupportRecord) *string { return &r.BankAnalystName }},
	"problemDescription":     {func(r *SupportRecord) *string { return &r.ProblemDescription }},
	"actionTaken":            {func(r *SupportRecord) *string { return &r.ActionTaken }},
	"validCall":              {func(r *SupportRecord) *string { return &r.ValidCall }},
	"trainingProvided":       {func(r *SupportRecord) *string { return &r.TrainingProvided }},
	"usedAcfs":               {func(r *SupportRecord) *string { return &r.UsedAcfs }},
	"customerComplaint":      {func(r *SupportRecord) *string { return &r.CustomerComplaint }},
	"isValidated":            {func(r *SupportRecord) *string { return &r.IsValidated }},
	"isActionPlanEffective":  {func(r *SupportRecord) *string { return &r.IsActionPlanEffective }},
	"wasPartChanged":         {func(r *SupportRecord) *string { return &r.WasPartChanged }},
	"partChangedDescription": {func(r *SupportRecord) *string { return &r.PartChangedDescription }},
	"usedDiagValidation":     {func(r *SupportRecord) *string { return &r.UsedDiagValidation }},
	"usedTestCard":           {func(r *SupportRecord) *string { return &r.UsedTestCard }},
	"customerName":           {func(r *SupportRecord) *string { return &r.CustomerName }},
	"customerBadge":          {func(r *SupportRecord) *string { return &r.CustomerBadge }},
	"escalationDate":         {func(r *SupportRecord) *string { return &r.EscalationDate }},
	"technicianName":         {func(r *SupportRecord) *string { return &r.TechnicianName }},
	"status":                 {func(r *SupportRecord) *string { return &r.Status }},
	"escalationValidation":   {func(r *SupportRecord) *string { return &r.EscalationValidation }},
}

const yesNo = "oneof=Sim Não"

// domains restricts enumerated text fields to their allowed values.
// Free-text fields are absent.
var domains = map[string]string{
	"isEscalated":           yesNo,
	"validCall":             yesNo,
	"trainingProvided":      yesNo,
	"usedAcfs":              yesNo,
	"isValidated":           "omitempty," + yesNo,
	"isActionPlanEffective": yesNo,
	"wasPartChanged":        yesNo,
	"usedDiagValidation":    yesNo,
	"usedTestCard":          yesNo,
	"status":                "oneof=Aberto Fechado",
	"escalationValidation":  yesNo,
}

var validate = validator.New()

// FieldSic is the set-valued SIC checklist column.
const FieldSic = "sicOptions"

// Columns returns the data columns in table order, excluding id and created_at.
func Columns() []string {
	return []string{
		ColumnType,
		"startTime", "endTime", "subject", "task", "sr", "analystName", "locationName",
		"isEscalated", "bankAnalystName", "problemDescription", "actionTaken",
		"validCall", "trainingProvided", "usedAcfs",
		"customerComplaint", "isValidated", "isActionPlanEffective", "wasPartChanged",
		"partChangedDescription", "usedDiagValidation", "usedTestCard", FieldSic,
		"customerName", "customerBadge",
		"escalationDate", "technicianName",
		"status", "escalationValidation",
	}
}

// IsField reports whether name is an editable column.
func IsField(name string) bool {
	_, ok := textFields[name]
	return ok || name == FieldSic
}

// Set assigns value to the named field. Text fields take a string;
// enumerated fields must hold one of their allowed values. sicOptions takes
// a []string (or []any of strings) of checklist items and is replaced whole;
// duplicates collapse to the first occurrence.
func (r *SupportRecord) Set(name string, value any) error {
	switch name {
	case ColumnID, ColumnCreatedAt, ColumnType:
		return fmt.Errorf("%w: %s", ErrImmutableField, name)
	case FieldSic:
		items, err := toStrings(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, it := range items {
			if !ValidSic(it) {
				return fmt.Errorf("%s: %w: %q", name, ErrInvalidValue, it)
			}
		}
		r.SicOptions = dedupe(items)
		return nil
	}

	acc, ok := textFields[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	s, err := toString(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if tag, ok := domains[name]; ok {
		if err := validate.Var(s, tag); err != nil {
			return fmt.Errorf("%s: %w: %q", name, ErrInvalidValue, s)
		}
	}
	*acc.get(r) = s
	return nil
}

// dedupe keeps the first occurrence of each item.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the value of the named field.
func (r *SupportRecord) Get(name string) (any, error) {
	switch name {
	case ColumnID:
		return r.ID, nil
	case ColumnType:
		return string(r.RecordType), nil
	case FieldSic:
		return append([]string{}, r.SicOptions...), nil
	}
	acc, ok := textFields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return *acc.get(r), nil
}

// ToRow converts r into a store row. id and created_at are omitted so the
// store can assign them.
func (r SupportRecord) ToRow() map[string]any {
	row := make(map[string]any, len(textFields)+2)
	row[ColumnType] = string(r.RecordType)
	for name, acc := range textFields {
		row[name] = *acc.get(&r)
	}
	sic := r.SicOptions
	if sic == nil {
		sic = []string{}
	}
	row[FieldSic] = append([]string{}, sic...)
	return row
}

// FromRow builds a record from a store row. Missing or NULL columns keep
// their zero value; unknown columns are ignored.
func FromRow(row map[string]any) SupportRecord {
	var r SupportRecord
	if v, ok := row[ColumnID]; ok && v != nil {
		r.ID = fmt.Sprint(v)
	}
	switch v := row[ColumnCreatedAt].(type) {
	case time.Time:
		r.CreatedAt = v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			r.CreatedAt = t
		}
	}
	if v, ok := row[ColumnType].(string); ok {
		r.RecordType = Type(v)
	}
	for name, acc := range textFields {
		if s, err := toString(row[name]); err == nil {
			*acc.get(&r) = s
		}
	}
	if items, err := toStrings(row[FieldSic]); err == nil {
		r.SicOptions = dedupe(items)
	}
	if r.SicOptions == nil {
		r.SicOptions = []string{}
	}
	return r
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", fmt.Errorf("expected text, got %T", v)
}

func toStrings(v any) ([]string, error) {
	switch items := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, items...), nil
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return nil, fmt.Errorf("expected text list item, got %T", it)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		// Comma separated, as posted by HTML forms.
		out := []string{}
		for _, p := range strings.Split(items, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected text list, got %T", v)
}
