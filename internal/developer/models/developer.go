package models

import (
	"strings"

	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/email"
	pstrings "devconnect/pkg/platform/strings"
)

// Developer is a profile in the directory.
//
// Invariants:
//   - ID is assigned by the registry and never changes
//   - Name is trimmed and non-empty
//   - Role is a valid Role
//   - TechStack has at least one entry and no blank entries
//   - Experience is zero or more years
//   - JoiningDate is set
//   - Email, when present, looks like an address
type Developer struct {
	ID          id.DeveloperID `json:"id"`
	Name        string         `json:"name"`
	Role        Role           `json:"role"`
	TechStack   []string       `json:"tech_stack"`
	Experience  int            `json:"experience"`
	JoiningDate Date           `json:"joining_date"`
	Description string         `json:"description,omitempty"`
	Email       string         `json:"email,omitempty"`
	Avatar      string         `json:"avatar,omitempty"`
}

// Clone returns a copy that shares no slices with d.
func (d Developer) Clone() Developer {
	c := d
	c.TechStack = append([]string(nil), d.TechStack...)
	return c
}

// Validate checks every invariant except the id, which the registry owns.
func (d *Developer) Validate() error {
	if d.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if d.Role == "" {
		return dErrors.New(dErrors.CodeValidation, "role is required")
	}
	if !d.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role must be one of Frontend, Backend, Full-Stack")
	}
	if len(d.TechStack) == 0 {
		return dErrors.New(dErrors.CodeValidation, "tech_stack is required")
	}
	for _, tech := range d.TechStack {
		if strings.TrimSpace(tech) == "" {
			return dErrors.New(dErrors.CodeValidation, "tech_stack contains an empty entry")
		}
	}
	if d.Experience < 0 {
		return dErrors.New(dErrors.CodeValidation, "experience must be zero or more years")
	}
	if d.JoiningDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "joining_date is required")
	}
	if d.Email != "" && !email.IsValid(d.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email format")
	}
	return nil
}

// normalize trims text fields and drops blank tech entries.
func (d *Developer) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.TechStack = pstrings.TrimNonEmpty(d.TechStack)
	d.Description = strings.TrimSpace(d.Description)
	d.Email = email.Normalize(d.Email)
	d.Avatar = strings.TrimSpace(d.Avatar)
}

// Draft is a developer record before the registry assigns its id.
type Draft struct {
	Name        string
	Role        Role
	TechStack   []string
	Experience  int
	JoiningDate Date
	Description string
	Email       string
	Avatar      string
}

// Build normalizes the draft and returns the record it describes, without an
// id. The draft itself is not modified.
func (d Draft) Build() (Developer, error) {
	dev := Developer{
		Name:        d.Name,
		Role:        d.Role,
		TechStack:   append([]string(nil), d.TechStack...),
		Experience:  d.Experience,
		JoiningDate: d.JoiningDate,
		Description: d.Description,
		Email:       d.Email,
		Avatar:      d.Avatar,
	}
	dev.normalize()
	if err := dev.Validate(); err != nil {
		return Developer{}, err
	}
	return dev, nil
}

// Patch is a partial update. Nil fields are left alone. Setting Description,
// Email, or Avatar to the empty string clears it.
type Patch struct {
	Name        *string
	Role        *Role
	TechStack   []string
	Experience  *int
	JoiningDate *Date
	Description *string
	Email       *string
	Avatar      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Role == nil && p.TechStack == nil && p.Experience == nil &&
		p.JoiningDate == nil && p.Description == nil && p.Email == nil && p.Avatar == nil
}

// Apply merges the patch into a copy of d and validates the result. d is
// never modified, so a failed patch leaves the caller's record intact.
func (p Patch) Apply(d Developer) (Developer, error) {
	merged := d.Clone()
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Role != nil {
		merged.Role = *p.Role
	}
	if p.TechStack != nil {
		merged.TechStack = append([]string(nil), p.TechStack...)
	}
	if p.Experience != nil {
		merged.Experience = *p.Experience
	}
	if p.JoiningDate != nil {
		merged.JoiningDate = *p.JoiningDate
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Email != nil {
		merged.Email = *p.Email
	}
	if p.Avatar != nil {
		merged.Avatar = *p.Avatar
	}
	merged.normalize()
	if err := merged.Validate(); err != nil {
		return Developer{}, err
	}
	return merged, nil
}
