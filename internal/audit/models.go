package audit

import (
	"time"
)

// Action names a directory change worth recording.
type Action string

const (
	ActionPsychologistRegistered Action = "psychologist_registered"
	ActionPsychologistUpdated    Action = "psychologist_updated"
	ActionPsychologistDeleted    Action = "psychologist_deleted"
	ActionWizardSubmitted        Action = "wizard_submitted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Action         Action    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
	PsychologistID string    `json:"psychologist_id"`
	CRP            string    `json:"crp,omitempty"`
	// Fields lists the fields changed by an update.
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	ClientIP  string   `json:"client_ip,omitempty"`
	UserAgent string   `json:"user_agent,omitempty"`
}
