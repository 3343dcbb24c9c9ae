package view

import (
	"strings"

	"devconnect/internal/developer/models"
)

// State is a session's browse controls. Changing the search text, role
// filter or sort order sends the user back to page 1; setting a control to
// its current value does not.
//
// State is not safe for concurrent use; the owning workspace serializes access.
type State struct {
	q Query
}

// NewState returns a State at DefaultQuery(pageSize).
func NewState(pageSize int) *State {
	return &State{q: DefaultQuery(pageSize)}
}

// Query returns a copy of the current query.
func (s *State) Query() Query {
	return s.q
}

func (s *State) SetSearch(search string) {
	search = strings.TrimSpace(search)
	if search == s.q.Search {
		return
	}
	s.q.Search = search
	s.q.Page = 1
}

func (s *State) SetRole(role RoleFilter) {
	if role == "" {
		role = RoleAll
	}
	if role == s.q.Role {
		return
	}
	s.q.Role = role
	s.q.Page = 1
}

func (s *State) SetSort(order SortOrder) {
	if !order.IsValid() {
		order = SortNewest
	}
	if order == s.q.Sort {
		return
	}
	s.q.Sort = order
	s.q.Page = 1
}

// SetPage moves to page n, clamped to the pages available in records.
func (s *State) SetPage(records []models.Developer, n int) {
	s.q.Page = clampPage(n, s.totalPages(records))
}

// Next advances one page unless already on the last one.
func (s *State) Next(records []models.Developer) {
	s.SetPage(records, s.q.Page+1)
}

// Prev goes back one page unless already on the first.
func (s *State) Prev(records []models.Developer) {
	s.SetPage(records, s.q.Page-1)
}

// Current derives the visible page and stores the clamped page number, so a
// page that emptied out after a delete snaps back into range.
func (s *State) Current(records []models.Developer) Page {
	p := Derive(records, s.q)
	s.q.Page = p.Page
	return p
}

func (s *State) totalPages(records []models.Developer) int {
	return TotalPages(len(Filter(records, s.q.Search, s.q.Role)), s.q.PageSize)
}
