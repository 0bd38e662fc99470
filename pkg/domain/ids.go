package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
)

// Typed identifiers keep directory records and wizard drafts from being
// passed where the other is expected.
type (
	PsychologistID uuid.UUID
	DraftID        uuid.UUID
)

// NewPsychologistID allocates a fresh record identifier.
func NewPsychologistID() PsychologistID { return PsychologistID(uuid.New()) }

// NewDraftID allocates a fresh wizard draft identifier.
func NewDraftID() DraftID { return DraftID(uuid.New()) }

func (id PsychologistID) String() string { return uuid.UUID(id).String() }
func (id PsychologistID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id DraftID) String() string { return uuid.UUID(id).String() }
func (id DraftID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PsychologistID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *PsychologistID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id DraftID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DraftID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ParsePsychologistID parses a record id received at a trust boundary.
func ParsePsychologistID(s string) (PsychologistID, error) {
	u, err := parseUUID(s, "psychologist id")
	return PsychologistID(u), err
}

// ParseDraftID parses a wizard draft id received at a trust boundary.
func ParseDraftID(s string) (DraftID, error) {
	u, err := parseUUID(s, "draft id")
	return DraftID(u), err
}

func parseUUID(s, name string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" cannot be nil")
	}
	return u, nil
}
