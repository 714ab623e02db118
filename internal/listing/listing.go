// Package listing derives the paging and ordering state of list views.
package listing

import (
	"slices"
	"strconv"
)

// Ellipsis marks a gap in the page numbers returned by PageNumbers
const Ellipsis = 0

const maxVisiblePages = 5

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Sort fields accepted by the backend
const (
	SortRelevance   = "relevance"
	SortCreatedAt   = "created_at"
	SortRating      = "rating"
	SortCookingTime = "cooking_time"
	SortTitle       = "title"
)

var (
	// CategorySorts are the sort choices of a category page
	CategorySorts = []string{SortCreatedAt, SortRating, SortCookingTime, SortTitle}
	// SearchSorts are the sort choices of a search page
	SearchSorts = []string{SortRelevance, SortCreatedAt, SortRating, SortCookingTime}
)

// PageNumbers returns the page buttons to show for current of total pages.
// The first and last pages are always present and gaps are Ellipsis. No
// buttons are shown for a single page.
func PageNumbers(current, total int) []int {
	if total <= 1 {
		return nil
	}
	if total <= maxVisiblePages {
		pages := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
		return pages
	}

	pages := []int{1}
	if current > 3 {
		pages = append(pages, Ellipsis)
	}
	for i := max(2, current-1); i <= min(total-1, current+1); i++ {
		pages = append(pages, i)
	}
	if current < total-2 {
		pages = append(pages, Ellipsis)
	}
	return append(pages, total)
}

// SortState is the selected sort field and direction of a list
type SortState struct {
	Sort  string
	Order string
}

// Select applies a click on field: the active field flips direction, a new
// field starts descending.
func (s SortState) Select(field string) SortState {
	if s.Sort == field {
		if s.Order == OrderDesc {
			return SortState{Sort: field, Order: OrderAsc}
		}
		return SortState{Sort: field, Order: OrderDesc}
	}
	return SortState{Sort: field, Order: OrderDesc}
}

// Valid reports whether s uses one of options and a known direction
func (s SortState) Valid(options []string) bool {
	return slices.Contains(options, s.Sort) && (s.Order == OrderAsc || s.Order == OrderDesc)
}

// ParsePage reads a page number, falling back to 1
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
