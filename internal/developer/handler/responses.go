package handler

import (
	"devconnect/internal/developer/models"
	"devconnect/internal/developer/service"
	"devconnect/internal/developer/view"
)

// DeveloperResponse is the wire form of a developer record.
type DeveloperResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	TechStack   []string    `json:"tech_stack"`
	Experience  int         `json:"experience"`
	JoiningDate models.Date `json:"joining_date"`
	Description string      `json:"description,omitempty"`
	Email       string      `json:"email,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
}

func FromDeveloper(d models.Developer) DeveloperResponse {
	tech := d.TechStack
	if tech == nil {
		tech = []string{}
	}
	return DeveloperResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Role:        d.Role.String(),
		TechStack:   tech,
		Experience:  d.Experience,
		JoiningDate: d.JoiningDate,
		Description: d.Description,
		Email:       d.Email,
		Avatar:      d.Avatar,
	}
}

func FromDevelopers(devs []models.Developer) []DeveloperResponse {
	out := make([]DeveloperResponse, 0, len(devs))
	for _, d := range devs {
		out = append(out, FromDeveloper(d))
	}
	return out
}

// PageResponse is one page of the browse view.
type PageResponse struct {
	Developers []DeveloperResponse `json:"developers"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"total_pages"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
}

func FromPage(p view.Page) PageResponse {
	return PageResponse{
		Developers: FromDevelopers(p.Items),
		Total:      p.Total,
		TotalPages: p.TotalPages,
		Page:       p.Page,
		PageSize:   p.PageSize,
	}
}

// ListResponse is the full collection.
type ListResponse struct {
	Developers []DeveloperResponse `json:"developers"`
	Total      int                 `json:"total"`
}

// DashboardResponse is the session's browse controls and their page.
type DashboardResponse struct {
	Search string `json:"search"`
	Role   string `json:"role"`
	Sort   string `json:"sort"`
	PageResponse
}

func FromDashboard(d *service.Dashboard) DashboardResponse {
	return DashboardResponse{
		Search:       d.Query.Search,
		Role:         string(d.Query.Role),
		Sort:         string(d.Query.Sort),
		PageResponse: FromPage(d.Page),
	}
}
