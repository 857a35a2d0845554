package ledger

import "budget/internal/core"

// DefaultPageSize matches the original list view's page length.
const DefaultPageSize = 10

// Page is one slice of a filtered result set.
type Page struct {
	Items      []core.Transaction `json:"items"`
	Page       int                `json:"page"`
	TotalPages int                `json:"total_pages"`
	TotalItems int                `json:"total_items"`
	HasPrev    bool               `json:"has_prev"`
	HasNext    bool               `json:"has_next"`
}

// Paginate slices a filtered set into pages of size pageSize. The page
// number is clamped into [1, totalPages]; an empty set still reports one
// page. Non-positive sizes fall back to DefaultPageSize.
func Paginate(filtered []core.Transaction, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Items:      append([]core.Transaction{}, filtered[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(filtered),
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
}
