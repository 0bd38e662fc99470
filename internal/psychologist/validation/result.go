package validation

import (
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
)

// RuleSet names the fields a validation pass checks.
type RuleSet struct {
	fields []models.Field
}

// All checks every field.
func All() RuleSet {
	return RuleSet{fields: append([]models.Field(nil), models.AllFields...)}
}

// Only checks the given fields.
func Only(fields ...models.Field) RuleSet {
	return RuleSet{fields: append([]models.Field(nil), fields...)}
}

func (r RuleSet) Fields() []models.Field {
	return append([]models.Field(nil), r.fields...)
}

// Result maps each checked field to "" when valid or to an error message.
type Result map[models.Field]string

// OK reports whether every checked field is valid.
func (r Result) OK() bool {
	for _, msg := range r {
		if msg != "" {
			return false
		}
	}
	return true
}

// Valid reports whether f was checked and passed.
func (r Result) Valid(f models.Field) bool {
	msg, checked := r[f]
	return checked && msg == ""
}

// FailingFields lists failing fields in presentation order.
func (r Result) FailingFields() []models.Field {
	var out []models.Field
	for _, f := range models.AllFields {
		if r[f] != "" {
			out = append(out, f)
		}
	}
	return out
}

// Failures returns the failing fields keyed by name, or nil when OK.
func (r Result) Failures() map[string]string {
	if r.OK() {
		return nil
	}
	out := make(map[string]string)
	for f, msg := range r {
		if msg != "" {
			out[string(f)] = msg
		}
	}
	return out
}
