package models

import (
	"time"

	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
)

// DateLayout is the ISO-8601 calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Psychologist is the canonical directory record.
//
// Invariants:
//   - CRP is in canonical NUMBER-STATE form
//   - Email is non-empty, lowercased and unique across records (store enforced)
//   - FullName is non-empty
//   - Specialties is non-empty
//   - ID and CreatedAt are immutable after construction
type Psychologist struct {
	ID          id.PsychologistID `json:"id"`
	CRP         string            `json:"crp"`
	Email       string            `json:"email"`
	FullName    string            `json:"fullName"`
	BirthDate   time.Time         `json:"birthDate"`
	Specialties []string          `json:"specialties"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewPsychologist builds a record from already normalized values.
func NewPsychologist(
	recordID id.PsychologistID,
	crp string,
	email string,
	fullName string,
	birthDate time.Time,
	specialties []string,
	now time.Time,
) (*Psychologist, error) {
	p := &Psychologist{
		ID:          recordID,
		CRP:         crp,
		Email:       email,
		FullName:    fullName,
		BirthDate:   birthDate,
		Specialties: append([]string(nil), specialties...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.CheckInvariants(); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckInvariants verifies the record may be persisted.
func (p *Psychologist) CheckInvariants() error {
	switch {
	case p.ID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "psychologist id cannot be nil")
	case p.CRP == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "crp cannot be empty")
	case p.Email == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	case p.FullName == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "full name cannot be empty")
	case p.BirthDate.IsZero():
		return dErrors.New(dErrors.CodeInvariantViolation, "birth date cannot be empty")
	case len(p.Specialties) == 0:
		return dErrors.New(dErrors.CodeInvariantViolation, "specialties cannot be empty")
	}
	return nil
}

// Clone returns a deep copy so stores never share slices with callers.
func (p *Psychologist) Clone() *Psychologist {
	if p == nil {
		return nil
	}
	c := *p
	c.Specialties = append([]string(nil), p.Specialties...)
	return &c
}
