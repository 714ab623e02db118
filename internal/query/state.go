package query

import (
	"time"
)

// Status is the lifecycle of a cache entry
type Status int

const (
	// StatusIdle means no fetch has run, or the query is gated off
	StatusIdle Status = iota
	// StatusLoading means a fetch is running and no data is cached yet
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of one cache entry
type State struct {
	Data   any
	Err    error
	Status Status
	// Fetching is true while any fetch runs, including background refetches
	// of an entry that already has data
	Fetching  bool
	UpdatedAt time.Time
}

// IsLoading reports whether the entry is waiting for its first result
func (s State) IsLoading() bool {
	return s.Status == StatusLoading
}

// Result is the typed view of a State
type Result[T any] struct {
	Data      T
	Err       error
	Status    Status
	Fetching  bool
	UpdatedAt time.Time
}

// IsLoading reports whether the query is waiting for its first result
func (r Result[T]) IsLoading() bool {
	return r.Status == StatusLoading
}

// Typed converts a State into a Result. Data of another type yields the
// zero value.
func Typed[T any](s State) Result[T] {
	r := Result[T]{
		Err:       s.Err,
		Status:    s.Status,
		Fetching:  s.Fetching,
		UpdatedAt: s.UpdatedAt,
	}
	if v, ok := s.Data.(T); ok {
		r.Data = v
	}
	return r
}
