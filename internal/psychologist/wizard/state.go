package wizard

import (
	"time"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
)

// State is one interactive session's progress. It is a value: controller
// operations return a new State and never mutate their argument.
type State struct {
	DraftID    id.DraftID         `json:"draftId"`
	Step       Step               `json:"step"`
	Direction  Direction          `json:"direction,omitempty"`
	Submission models.Submission  `json:"submission"`
	Failures   map[string]string  `json:"failures,omitempty"`
	RecordID   *id.PsychologistID `json:"recordId,omitempty"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// StepNumber is the 1-based position of the current step, 0 once submitted.
func (s State) StepNumber() int {
	if i := indexOf(s.Step); i >= 0 {
		return flow[i].Number
	}
	return 0
}

func (s State) Submitted() bool {
	return s.Step == StepSubmitted
}

func (s State) clone() State {
	c := s
	c.Submission.Specialties = append([]string(nil), s.Submission.Specialties...)
	if s.Failures != nil {
		c.Failures = make(map[string]string, len(s.Failures))
		for k, v := range s.Failures {
			c.Failures[k] = v
		}
	}
	if s.RecordID != nil {
		recordID := *s.RecordID
		c.RecordID = &recordID
	}
	return c
}
