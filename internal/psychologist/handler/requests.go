package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
)

// fieldSet carries optional field values from a request body. Portuguese
// keys are accepted as aliases; the English key wins when both are sent.
type fieldSet struct {
	CRP         *string
	Email       *string
	FullName    *string
	BirthDate   *string
	Specialties *[]string
}

type rawFields struct {
	CRP            *string         `json:"crp"`
	Email          *string         `json:"email"`
	FullName       *string         `json:"fullName"`
	NomeCompleto   *string         `json:"nomeCompleto"`
	BirthDate      *string         `json:"birthDate"`
	DataNascimento *string         `json:"dataNascimento"`
	Specialties    json.RawMessage `json:"specialties"`
	Especialidades json.RawMessage `json:"especialidades"`
}

func (f *fieldSet) UnmarshalJSON(data []byte) error {
	var raw rawFields
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.CRP = raw.CRP
	f.Email = raw.Email
	f.FullName = firstPresent(raw.FullName, raw.NomeCompleto)
	f.BirthDate = firstPresent(raw.BirthDate, raw.DataNascimento)

	list := raw.Specialties
	if isAbsent(list) {
		list = raw.Especialidades
	}
	if isAbsent(list) {
		f.Specialties = nil
		return nil
	}
	specialties, err := decodeSpecialties(list)
	if err != nil {
		return err
	}
	f.Specialties = &specialties
	return nil
}

func (f fieldSet) patch() models.Patch {
	return models.Patch{
		CRP:         f.CRP,
		Email:       f.Email,
		FullName:    f.FullName,
		BirthDate:   f.BirthDate,
		Specialties: f.Specialties,
	}
}

func firstPresent(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeSpecialties(raw json.RawMessage) ([]string, error) {
	notAList := dErrors.Validation("invalid psychologist data", map[string]string{
		string(models.FieldSpecialties): "specialties must be a list of strings",
	})
	if bytes.TrimSpace(raw)[0] != '[' {
		return nil, notAList
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, notAList
	}
	return out, nil
}

// RegisterRequest is the body of POST /register and POST /psychologists.
type RegisterRequest struct {
	fieldSet
}

// Submission converts the request into raw wizard/service input. Absent
// fields become empty values and fail validation downstream.
func (r *RegisterRequest) Submission() models.Submission {
	return r.patch().ApplyTo(models.Submission{})
}

// UpdateRequest is the body of PUT /psychologists.
type UpdateRequest struct {
	ID string `json:"id"`
	fieldSet
}

func (r *UpdateRequest) UnmarshalJSON(data []byte) error {
	var head struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.ID != nil {
		r.ID = *head.ID
	}
	return r.fieldSet.UnmarshalJSON(data)
}

func (r *UpdateRequest) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
}

func (r *UpdateRequest) Validate() error {
	_, err := parseRecordID(r.ID)
	return err
}

func (r *UpdateRequest) Patch() models.Patch {
	return r.patch()
}

// DeleteRequest is the body of DELETE /psychologists.
type DeleteRequest struct {
	ID string `json:"id"`
}

func (r *DeleteRequest) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
}

func (r *DeleteRequest) Validate() error {
	_, err := parseRecordID(r.ID)
	return err
}

// WizardFieldsRequest is the body of PATCH /wizard/{draftID}.
type WizardFieldsRequest struct {
	fieldSet
}

func (r *WizardFieldsRequest) Patch() models.Patch {
	return r.patch()
}

func parseRecordID(raw string) (id.PsychologistID, error) {
	if raw == "" {
		return id.PsychologistID{}, dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	recordID, err := id.ParsePsychologistID(raw)
	if err != nil {
		return id.PsychologistID{}, dErrors.New(dErrors.CodeBadRequest, "id is invalid")
	}
	return recordID, nil
}
