package handler

import (
	"time"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/crp"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
)

type PsychologistResponse struct {
	ID          string    `json:"id"`
	CRP         string    `json:"crp"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	BirthDate   string    `json:"birthDate"`
	Specialties []string  `json:"specialties"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toPsychologistResponse(p *models.Psychologist) PsychologistResponse {
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return PsychologistResponse{
		ID:          p.ID.String(),
		CRP:         p.CRP,
		Email:       p.Email,
		FullName:    p.FullName,
		BirthDate:   p.BirthDate.Format(models.DateLayout),
		Specialties: specialties,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPsychologistList(records []*models.Psychologist) []PsychologistResponse {
	out := make([]PsychologistResponse, len(records))
	for i, p := range records {
		out[i] = toPsychologistResponse(p)
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SpecialtiesResponse struct {
	Specialties []string `json:"specialties"`
	Restricted  bool     `json:"restricted"`
}

type RegionsResponse struct {
	Regions []crp.Region `json:"regions"`
}

// WizardResponse renders a session for a client. Steps is the full table so
// renderers can draw progress without hard-coding it.
type WizardResponse struct {
	DraftID    string            `json:"draftId"`
	Step       wizard.Step       `json:"step"`
	StepNumber int               `json:"stepNumber"`
	Direction  wizard.Direction  `json:"direction,omitempty"`
	Submission models.Submission `json:"submission"`
	Failures   map[string]string `json:"failures,omitempty"`
	RecordID   string            `json:"recordId,omitempty"`
	Steps      []wizard.StepInfo `json:"steps"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func toWizardResponse(s wizard.State) WizardResponse {
	resp := WizardResponse{
		DraftID:    s.DraftID.String(),
		Step:       s.Step,
		StepNumber: s.StepNumber(),
		Direction:  s.Direction,
		Submission: s.Submission,
		Failures:   s.Failures,
		Steps:      wizard.Steps(),
		UpdatedAt:  s.UpdatedAt,
	}
	if resp.Submission.Specialties == nil {
		resp.Submission.Specialties = []string{}
	}
	if s.RecordID != nil {
		resp.RecordID = s.RecordID.String()
	}
	return resp
}
