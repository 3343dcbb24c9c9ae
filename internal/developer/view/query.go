// Package view derives the visible page of developers from the registry
// contents and a browse query.
package view

import (
	"strings"

	"devconnect/internal/developer/models"
	dErrors "devconnect/pkg/domain-errors"
)

const (
	DefaultPageSize = 6
	MaxPageSize     = 100
)

// SortOrder selects how filtered records are ordered.
type SortOrder string

const (
	SortNewest         SortOrder = "newest"
	SortOldest         SortOrder = "oldest"
	SortExperienceHigh SortOrder = "experience-high"
	SortExperienceLow  SortOrder = "experience-low"
)

// SortOrders lists the accepted orders, default first.
func SortOrders() []SortOrder {
	return []SortOrder{SortNewest, SortOldest, SortExperienceHigh, SortExperienceLow}
}

func (o SortOrder) IsValid() bool {
	switch o {
	case SortNewest, SortOldest, SortExperienceHigh, SortExperienceLow:
		return true
	}
	return false
}

// ParseSortOrder accepts the order names case-insensitively. Blank means newest.
func ParseSortOrder(s string) (SortOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortNewest, nil
	}
	if o := SortOrder(s); o.IsValid() {
		return o, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "sort must be one of newest, oldest, experience-high, experience-low")
}

// RoleFilter is either RoleAll or one of the developer roles.
type RoleFilter string

const RoleAll RoleFilter = "all"

// ParseRoleFilter accepts "all" or a role name, case-insensitively. Blank
// means all.
func ParseRoleFilter(s string) (RoleFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(RoleAll)) {
		return RoleAll, nil
	}
	role, err := models.ParseRole(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role must be all, Frontend, Backend or Full-Stack")
	}
	return RoleFilter(role), nil
}

// Matches reports whether a record with the given role passes the filter.
func (f RoleFilter) Matches(r models.Role) bool {
	return f == RoleAll || f == "" || models.Role(f) == r
}

// Query is everything the pipeline needs besides the records themselves.
type Query struct {
	Search   string
	Role     RoleFilter
	Sort     SortOrder
	Page     int
	PageSize int
}

// DefaultQuery returns the initial browse query: no search, all roles, newest
// first, page 1. Non-positive page sizes fall back to DefaultPageSize.
func DefaultQuery(pageSize int) Query {
	return Query{
		Role:     RoleAll,
		Sort:     SortNewest,
		Page:     1,
		PageSize: clampPageSize(pageSize),
	}
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}
