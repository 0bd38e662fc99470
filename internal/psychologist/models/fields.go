package models

// Field names a submitted value. The string form is the English JSON key.
type Field string

const (
	FieldCRP         Field = "crp"
	FieldEmail       Field = "email"
	FieldFullName    Field = "fullName"
	FieldBirthDate   Field = "birthDate"
	FieldSpecialties Field = "specialties"
)

// AllFields lists every field in presentation order.
var AllFields = []Field{FieldFullName, FieldEmail, FieldBirthDate, FieldCRP, FieldSpecialties}

func (f Field) String() string { return string(f) }

// Submission holds raw, unvalidated field values as entered by the user.
// Specialties may be empty while a wizard is in progress.
type Submission struct {
	CRP         string   `json:"crp"`
	Email       string   `json:"email"`
	FullName    string   `json:"fullName"`
	BirthDate   string   `json:"birthDate"`
	Specialties []string `json:"specialties"`
}

// Patch carries a partial set of field values. Nil pointers are absent.
type Patch struct {
	CRP         *string   `json:"crp,omitempty"`
	Email       *string   `json:"email,omitempty"`
	FullName    *string   `json:"fullName,omitempty"`
	BirthDate   *string   `json:"birthDate,omitempty"`
	Specialties *[]string `json:"specialties,omitempty"`
}

// Fields lists the fields present in the patch in presentation order.
func (p Patch) Fields() []Field {
	present := map[Field]bool{
		FieldCRP:         p.CRP != nil,
		FieldEmail:       p.Email != nil,
		FieldFullName:    p.FullName != nil,
		FieldBirthDate:   p.BirthDate != nil,
		FieldSpecialties: p.Specialties != nil,
	}
	out := make([]Field, 0, len(AllFields))
	for _, f := range AllFields {
		if present[f] {
			out = append(out, f)
		}
	}
	return out
}

func (p Patch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// ApplyTo returns base with every present patch value copied over it.
func (p Patch) ApplyTo(base Submission) Submission {
	if p.CRP != nil {
		base.CRP = *p.CRP
	}
	if p.Email != nil {
		base.Email = *p.Email
	}
	if p.FullName != nil {
		base.FullName = *p.FullName
	}
	if p.BirthDate != nil {
		base.BirthDate = *p.BirthDate
	}
	if p.Specialties != nil {
		base.Specialties = append([]string(nil), (*p.Specialties)...)
	}
	return base
}
