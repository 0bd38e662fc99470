// Package validation evaluates submitted registration fields against the
// directory rules. It never returns errors: every problem with the input is
// reported as a verdict on the field that caused it.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/crp"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	pstrings "github.com/MindFlow-Startup/MindFlow/pkg/platform/strings"
	"github.com/MindFlow-Startup/MindFlow/pkg/requestcontext"
)

const (
	DefaultMinimumAge = 18
	MaxFullNameLength = 200
	MaxSpecialties    = 20

	// SpecialtySeparator is reserved as the list delimiter in flat storage.
	SpecialtySeparator = ","
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// Validator applies the field rules. It is safe for concurrent use.
type Validator struct {
	strictCRP  bool
	restricted bool
	minimumAge int
	location   *time.Location
	vocabulary *Vocabulary
	syntax     *validator.Validate
}

type Option func(*Validator)

// WithStrictCRP requires licence codes in the exact "dd/ddddd" layout.
func WithStrictCRP(strict bool) Option {
	return func(v *Validator) {
		v.strictCRP = strict
	}
}

// WithVocabulary sets the specialty vocabulary. When restricted is true every
// specialty must belong to it; otherwise it only canonicalizes spelling.
func WithVocabulary(vocab *Vocabulary, restricted bool) Option {
	return func(v *Validator) {
		v.vocabulary = vocab
		v.restricted = restricted
	}
}

func WithMinimumAge(years int) Option {
	return func(v *Validator) {
		if years > 0 {
			v.minimumAge = years
		}
	}
}

// WithLocation sets the time zone whose calendar decides "today" for age and
// future-date checks.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) {
		if loc != nil {
			v.location = loc
		}
	}
}

// New constructs a Validator. Defaults: lenient CRP, free-text specialties,
// minimum age 18, calendar dates in UTC.
func New(opts ...Option) *Validator {
	v := &Validator{
		minimumAge: DefaultMinimumAge,
		location:   time.UTC,
		syntax:     validator.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// StrictCRP reports whether the strict licence layout is enforced.
func (v *Validator) StrictCRP() bool { return v.strictCRP }

// Restricted reports whether specialties must belong to the vocabulary.
func (v *Validator) Restricted() bool { return v.restricted && !v.vocabulary.isEmpty() }

// Vocabulary returns the configured specialty vocabulary, possibly nil.
func (v *Validator) Vocabulary() *Vocabulary { return v.vocabulary }

// Validate checks the fields named by rules against the submission. Time
// dependent rules use requestcontext.Now(ctx) read in the configured location.
func (v *Validator) Validate(ctx context.Context, s models.Submission, rules RuleSet) Result {
	now := requestcontext.Now(ctx).In(v.location)
	result := make(Result, len(rules.fields))
	for _, f := range rules.fields {
		result[f] = v.check(f, s, now)
	}
	return result
}

func (v *Validator) check(f models.Field, s models.Submission, now time.Time) string {
	switch f {
	case models.FieldCRP:
		return v.checkCRP(s.CRP)
	case models.FieldEmail:
		return v.checkEmail(s.Email)
	case models.FieldFullName:
		return checkFullName(s.FullName)
	case models.FieldBirthDate:
		return v.checkBirthDate(s.BirthDate, now)
	case models.FieldSpecialties:
		return v.checkSpecialties(s.Specialties)
	default:
		return fmt.Sprintf("unknown field %q", f)
	}
}

func (v *Validator) checkCRP(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "crp is required"
	}
	if v.strictCRP && !crp.MatchesStrict(raw) {
		return "crp must have the format 00/00000"
	}
	id := crp.Normalize(raw)
	if id.Number == "" {
		return "crp is too short"
	}
	if !id.Resolved() {
		return "crp region code is not recognized"
	}
	return ""
}

func (v *Validator) checkEmail(raw string) string {
	email := NormalizeEmail(raw)
	if email == "" {
		return "email is required"
	}
	if !emailPattern.MatchString(email) || v.syntax.Var(email, "email") != nil {
		return "email is invalid"
	}
	return ""
}

func checkFullName(raw string) string {
	name := NormalizeFullName(raw)
	if name == "" {
		return "full name is required"
	}
	if utf8.RuneCountInString(name) > MaxFullNameLength {
		return fmt.Sprintf("full name must be at most %d characters", MaxFullNameLength)
	}
	return ""
}

func (v *Validator) checkBirthDate(raw string, now time.Time) string {
	if strings.TrimSpace(raw) == "" {
		return "birth date is required"
	}
	birth, err := ParseBirthDate(raw)
	if err != nil {
		return "birth date must be a valid date (YYYY-MM-DD)"
	}
	today := dateOf(now)
	if birth.After(today) {
		return "birth date cannot be in the future"
	}
	if AgeAt(birth, now) < v.minimumAge {
		return fmt.Sprintf("must be at least %d years old", v.minimumAge)
	}
	return ""
}

func (v *Validator) checkSpecialties(values []string) string {
	cleaned := pstrings.DedupeFold(values)
	if len(cleaned) == 0 {
		return "at least one specialty is required"
	}
	if len(cleaned) > MaxSpecialties {
		return fmt.Sprintf("at most %d specialties are allowed", MaxSpecialties)
	}
	for _, s := range cleaned {
		if strings.Contains(s, SpecialtySeparator) {
			return fmt.Sprintf("specialty %q must not contain %q", s, SpecialtySeparator)
		}
	}
	if v.restricted && !v.vocabulary.isEmpty() {
		for _, s := range cleaned {
			if _, ok := v.vocabulary.Lookup(s); !ok {
				return fmt.Sprintf("unknown specialty %q", s)
			}
		}
	}
	return ""
}

// NormalizeSpecialties trims, deduplicates and maps entries to the
// vocabulary's canonical spelling where one exists.
func (v *Validator) NormalizeSpecialties(values []string) []string {
	cleaned := pstrings.DedupeFold(values)
	if v.vocabulary.isEmpty() {
		return cleaned
	}
	for i, s := range cleaned {
		if canonical, ok := v.vocabulary.Lookup(s); ok {
			cleaned[i] = canonical
		}
	}
	return pstrings.DedupeFold(cleaned)
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeFullName trims and collapses interior whitespace.
func NormalizeFullName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ParseBirthDate accepts an ISO-8601 calendar date or an RFC 3339 timestamp
// and returns the calendar date at UTC midnight.
func ParseBirthDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return dateOf(t), nil
}

// AgeAt returns the number of whole years between birth and now.
func AgeAt(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()
	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	return age
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
