package types

// PaginatedResponse is one page of a list endpoint
type PaginatedResponse[T any] struct {
	Count      int     `json:"count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
	Results    []T     `json:"results"`
	TotalPages int     `json:"total_pages"`
}

// HasNext reports whether a following page exists
func (p *PaginatedResponse[T]) HasNext() bool {
	return p.Next != nil && *p.Next != ""
}

// HasPrevious reports whether a preceding page exists
func (p *PaginatedResponse[T]) HasPrevious() bool {
	return p.Previous != nil && *p.Previous != ""
}
