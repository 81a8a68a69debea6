// Package form holds the draft record being edited and the active form mode.
//
// A Form is not safe for concurrent use; callers that share one (such as a
// web session) serialize access themselves.
package form

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/JonMunkholm/hwlog/internal/record"
)

// ErrNotSetField is returned by ToggleSetMember for fields that are not set-valued.
var ErrNotSetField = errors.New("field is not a set")

// ErrInvalidMember is returned when a value is not an allowed set member.
var ErrInvalidMember = errors.New("invalid set member")

// Form is the Form State Manager.
type Form struct {
	mode  record.Type
	draft record.SupportRecord
	now   func() time.Time
}

// New returns a form in GENERAL mode with a fresh draft.
func New() *Form {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Form {
	f := &Form{mode: record.TypeGeneral, now: now}
	f.draft = f.initial()
	return f
}

func (f *Form) initial() record.SupportRecord {
	d := record.Defaults()
	d.RecordType = f.mode
	stamp := record.FormatInput(f.now())
	d.StartTime = stamp
	d.EscalationDate = stamp
	return d
}

// Clone returns an independent copy of the form.
func (f *Form) Clone() *Form {
	return &Form{mode: f.mode, draft: f.draft.Clone(), now: f.now}
}

// Restore puts back the mode and draft of a form returned by Clone.
func (f *Form) Restore(saved *Form) {
	f.mode = saved.mode
	f.draft = saved.draft.Clone()
}

// Mode returns the active form mode.
func (f *Form) Mode() record.Type {
	return f.mode
}

// SetMode switches the active tab. The draft keeps its values.
func (f *Form) SetMode(t record.Type) error {
	if !t.Valid() {
		return fmt.Errorf("invalid mode %q", t)
	}
	f.mode = t
	f.draft.RecordType = t
	return nil
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() record.SupportRecord {
	return f.draft.Clone()
}

// SetField replaces the named field with value.
func (f *Form) SetField(name string, value any) error {
	return f.draft.Set(name, value)
}

// ToggleSetMember adds value to a set field when absent and removes it when present.
func (f *Form) ToggleSetMember(field, value string) error {
	if field != record.FieldSic {
		return fmt.Errorf("%w: %s", ErrNotSetField, field)
	}
	if !record.ValidSic(value) {
		return fmt.Errorf("%w: %q", ErrInvalidMember, value)
	}

	if i := slices.Index(f.draft.SicOptions, value); i >= 0 {
		f.draft.SicOptions = slices.Delete(slices.Clone(f.draft.SicOptions), i, i+1)
		return nil
	}
	f.draft.SicOptions = append(slices.Clone(f.draft.SicOptions), value)
	return nil
}

// Reset restores defaults, keeping the named fields from the current draft.
// startTime and escalationDate are reinitialized to now unless preserved.
// Unknown field names are ignored.
func (f *Form) Reset(preserve ...string) {
	next := f.initial()
	for _, name := range preserve {
		v, err := f.draft.Get(name)
		if err != nil {
			continue
		}
		_ = next.Set(name, v)
	}
	f.draft = next
}

// Clear resets every field, preserving nothing.
func (f *Form) Clear() {
	f.Reset()
}

// SetEndTimeToNow stamps endTime with the current time.
func (f *Form) SetEndTimeToNow() {
	f.draft.EndTime = record.FormatInput(f.now())
}
