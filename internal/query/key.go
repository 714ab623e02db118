package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cached fetch: a resource name followed by every
// parameter that affects the result. Two keys are the same entry when
// their encodings are equal.
type Key []any

// NewKey builds a key for resource with the given parameters
func NewKey(resource string, params ...any) Key {
	k := make(Key, 0, len(params)+1)
	k = append(k, resource)
	return append(k, params...)
}

// Resource returns the resource name
func (k Key) Resource() string {
	if len(k) == 0 {
		return ""
	}
	s, _ := k[0].(string)
	return s
}

// String returns the canonical encoding of the key
func (k Key) String() string {
	data, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%#v", []any(k))
	}
	return string(data)
}
