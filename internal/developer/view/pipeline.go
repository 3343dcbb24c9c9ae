package view

import (
	"cmp"
	"slices"
	"strings"

	"devconnect/internal/developer/models"
	pstrings "devconnect/pkg/platform/strings"
)

// Page is one page of the filtered, sorted records.
type Page struct {
	Items      []models.Developer
	Total      int
	TotalPages int
	Page       int
	PageSize   int
}

// Derive filters, sorts and paginates records. The input slice is not
// modified. The requested page is clamped into range; an empty result has
// zero pages and reports page 1.
func Derive(records []models.Developer, q Query) Page {
	filtered := Filter(records, q.Search, q.Role)
	SortStable(filtered, q.Sort)
	return Paginate(filtered, q.Page, q.PageSize)
}

// Filter keeps records whose name or any tech tag contains search
// (case-insensitive, surrounding whitespace ignored) and whose role passes
// the role filter. It always returns a new slice.
func Filter(records []models.Developer, search string, role RoleFilter) []models.Developer {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Developer, 0, len(records))
	for _, dev := range records {
		if !role.Matches(dev.Role) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(dev.Name), needle) &&
			!pstrings.ContainsFold(dev.TechStack, needle) {
			continue
		}
		out = append(out, dev)
	}
	return out
}

// SortStable orders records in place. Ties keep their relative order.
// Unknown orders fall back to newest.
func SortStable(records []models.Developer, order SortOrder) {
	slices.SortStableFunc(records, comparator(order))
}

func comparator(order SortOrder) func(a, b models.Developer) int {
	switch order {
	case SortOldest:
		return func(a, b models.Developer) int { return a.JoiningDate.Compare(b.JoiningDate) }
	case SortExperienceHigh:
		return func(a, b models.Developer) int { return cmp.Compare(b.Experience, a.Experience) }
	case SortExperienceLow:
		return func(a, b models.Developer) int { return cmp.Compare(a.Experience, b.Experience) }
	default:
		return func(a, b models.Developer) int { return b.JoiningDate.Compare(a.JoiningDate) }
	}
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	pageSize = clampPageSize(pageSize)
	return (total + pageSize - 1) / pageSize
}

// Paginate returns the requested page of records.
func Paginate(records []models.Developer, page, pageSize int) Page {
	pageSize = clampPageSize(pageSize)
	total := len(records)
	pages := TotalPages(total, pageSize)
	page = clampPage(page, pages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	items := make([]models.Developer, 0, end-start)
	if start < end {
		items = append(items, records[start:end]...)
	}
	return Page{
		Items:      items,
		Total:      total,
		TotalPages: pages,
		Page:       page,
		PageSize:   pageSize,
	}
}

func clampPage(page, totalPages int) int {
	if page < 1 || totalPages == 0 {
		return 1
	}
	return min(page, totalPages)
}
