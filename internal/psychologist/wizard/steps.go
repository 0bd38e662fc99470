package wizard

import (
	"slices"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
)

// Step identifies a wizard position.
type Step string

const (
	StepPersonal     Step = "personal"
	StepProfessional Step = "professional"
	StepReview       Step = "review"
	StepSubmitted    Step = "submitted"
)

// Direction records the last move for renderers that animate transitions.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// StepInfo describes one step and the fields that gate leaving it.
type StepInfo struct {
	ID     Step           `json:"id"`
	Number int            `json:"number"`
	Fields []models.Field `json:"fields"`
}

// flow is the ordered step table. Each field belongs to exactly one step.
var flow = []StepInfo{
	{ID: StepPersonal, Number: 1, Fields: []models.Field{models.FieldFullName, models.FieldEmail, models.FieldBirthDate}},
	{ID: StepProfessional, Number: 2, Fields: []models.Field{models.FieldCRP, models.FieldSpecialties}},
	{ID: StepReview, Number: 3},
}

// Steps returns a copy of the step table.
func Steps() []StepInfo {
	out := make([]StepInfo, len(flow))
	for i, s := range flow {
		out[i] = StepInfo{ID: s.ID, Number: s.Number, Fields: slices.Clone(s.Fields)}
	}
	return out
}

func indexOf(step Step) int {
	for i, s := range flow {
		if s.ID == step {
			return i
		}
	}
	return -1
}

func rulesFor(step Step) validation.RuleSet {
	i := indexOf(step)
	if i < 0 {
		return validation.Only()
	}
	return validation.Only(flow[i].Fields...)
}

// stepOwning returns the earliest step owning any of the named fields, or
// the review step when none match.
func stepOwning(fields []string) Step {
	for _, s := range flow {
		for _, f := range s.Fields {
			if slices.Contains(fields, string(f)) {
				return s.ID
			}
		}
	}
	return StepReview
}
