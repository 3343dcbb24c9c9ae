package handler

import (
	"encoding/json"
	"strings"
	"time"

	"devconnect/internal/developer/models"
	"devconnect/internal/developer/service"
	"devconnect/internal/developer/view"
	dErrors "devconnect/pkg/domain-errors"
	pstrings "devconnect/pkg/platform/strings"
)

// TechStackInput accepts either a JSON array of tags or a single
// comma-separated string ("React, Node.js").
type TechStackInput []string

func (t *TechStackInput) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return dErrors.New(dErrors.CodeValidation, "tech_stack must be a list or a comma-separated string")
	}
	*t = pstrings.SplitList(s)
	return nil
}

// CreateDeveloperRequest is the body of POST /developers.
type CreateDeveloperRequest struct {
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	TechStack   TechStackInput `json:"tech_stack"`
	Experience  *int           `json:"experience"`
	JoiningDate *models.Date   `json:"joining_date"`
	Description string         `json:"description"`
	Email       string         `json:"email"`
	Avatar      string         `json:"avatar"`

	parsedRole models.Role
}

func (r *CreateDeveloperRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Role = strings.TrimSpace(r.Role)
	r.TechStack = pstrings.TrimNonEmpty(r.TechStack)
	r.Description = strings.TrimSpace(r.Description)
	r.Email = strings.TrimSpace(r.Email)
	r.Avatar = strings.TrimSpace(r.Avatar)
}

func (r *CreateDeveloperRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	if len(r.TechStack) == 0 {
		return dErrors.New(dErrors.CodeValidation, "tech_stack is required")
	}
	if r.Experience == nil {
		return dErrors.New(dErrors.CodeValidation, "experience is required")
	}
	if *r.Experience < 0 {
		return dErrors.New(dErrors.CodeValidation, "experience must be zero or more years")
	}
	return nil
}

// ToDraft builds the draft. A missing joining date defaults to today.
func (r *CreateDeveloperRequest) ToDraft(today time.Time) models.Draft {
	joined := models.DateOf(today)
	if r.JoiningDate != nil && !r.JoiningDate.IsZero() {
		joined = *r.JoiningDate
	}
	return models.Draft{
		Name:        r.Name,
		Role:        r.parsedRole,
		TechStack:   []string(r.TechStack),
		Experience:  *r.Experience,
		JoiningDate: joined,
		Description: r.Description,
		Email:       r.Email,
		Avatar:      r.Avatar,
	}
}

// UpdateDeveloperRequest is the body of PATCH /developers/{id}.
type UpdateDeveloperRequest struct {
	Name        *string        `json:"name"`
	Role        *string        `json:"role"`
	TechStack   TechStackInput `json:"tech_stack"`
	Experience  *int           `json:"experience"`
	JoiningDate *models.Date   `json:"joining_date"`
	Description *string        `json:"description"`
	Email       *string        `json:"email"`
	Avatar      *string        `json:"avatar"`

	parsedRole *models.Role
}

func (r *UpdateDeveloperRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Role != nil {
		role, err := models.ParseRole(*r.Role)
		if err != nil {
			return err
		}
		r.parsedRole = &role
	}
	if r.JoiningDate != nil && r.JoiningDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "joining_date is required")
	}
	return nil
}

func (r *UpdateDeveloperRequest) ToPatch() models.Patch {
	return models.Patch{
		Name:        r.Name,
		Role:        r.parsedRole,
		TechStack:   []string(r.TechStack),
		Experience:  r.Experience,
		JoiningDate: r.JoiningDate,
		Description: r.Description,
		Email:       r.Email,
		Avatar:      r.Avatar,
	}
}

// UpdateDashboardRequest is the body of PATCH /dashboard.
type UpdateDashboardRequest struct {
	Search *string `json:"search"`
	Role   *string `json:"role"`
	Sort   *string `json:"sort"`
	Page   *int    `json:"page"`
	Move   string  `json:"move"`

	parsed service.DashboardUpdate
}

func (r *UpdateDashboardRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	upd := service.DashboardUpdate{Search: r.Search, Page: r.Page}
	if r.Role != nil {
		role, err := view.ParseRoleFilter(*r.Role)
		if err != nil {
			return err
		}
		upd.Role = &role
	}
	if r.Sort != nil {
		order, err := view.ParseSortOrder(*r.Sort)
		if err != nil {
			return err
		}
		upd.Sort = &order
	}
	upd.Move = service.Move(strings.ToLower(strings.TrimSpace(r.Move)))
	if !upd.Move.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "move must be next or prev")
	}
	if upd.Page != nil && upd.Move != service.MoveNone {
		return dErrors.New(dErrors.CodeInvalidInput, "page and move cannot be combined")
	}
	r.parsed = upd
	return nil
}

func (r *UpdateDashboardRequest) ToUpdate() service.DashboardUpdate {
	return r.parsed
}
