package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by the client matches exactly one of
// these through errors.Is.
var (
	ErrConnectivity = errors.New("connectivity error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrRequest      = errors.New("request error")
)

// User-facing messages for the classified kinds
const (
	MsgConnectivity = "Unable to connect to the server. Please check your internet connection and try again later."
	MsgNotFound     = "The requested resource was not found."
	MsgUnauthorized = "You are not authorized to perform this action."
	MsgForbidden    = "You do not have permission to perform this action."
	MsgServer       = "An internal server error occurred. Please try again later."
)

// APIError is the single error shape produced by the client
type APIError struct {
	Kind       error
	StatusCode int
	// Message is the human-readable text shown to the user
	Message string
	// Detail is whatever explanation the server sent, if any
	Detail string
	// Fields holds field-level validation messages keyed by field name
	Fields map[string][]string
	Err    error
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches the error kind
func (e *APIError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewRequestError builds a Request-kind error for failures detected before
// or after the network call
func NewRequestError(message string, cause error) *APIError {
	return &APIError{Kind: ErrRequest, Message: message, Err: cause}
}

// AsAPIError extracts the *APIError from err, if any
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsConnectivity(err error) bool { return errors.Is(err, ErrConnectivity) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsServer(err error) bool       { return errors.Is(err, ErrServer) }

func connectivityError(cause error) *APIError {
	return &APIError{Kind: ErrConnectivity, Message: MsgConnectivity, Err: cause}
}

// classify maps a non-2xx response to an APIError
func classify(status int, body []byte) *APIError {
	detail, fields := parseErrorBody(body)
	e := &APIError{StatusCode: status, Detail: detail, Fields: fields}

	switch {
	case status == http.StatusNotFound:
		e.Kind, e.Message = ErrNotFound, MsgNotFound
	case status == http.StatusUnauthorized:
		e.Kind, e.Message = ErrUnauthorized, MsgUnauthorized
	case status == http.StatusForbidden:
		e.Kind, e.Message = ErrForbidden, MsgForbidden
	case status >= http.StatusInternalServerError:
		e.Kind, e.Message = ErrServer, MsgServer
	default:
		e.Kind = ErrRequest
		e.Message = detail
		if e.Message == "" {
			e.Message = fmt.Sprintf("request failed with status code %d", status)
		}
	}
	e.Err = fmt.Errorf("unexpected status %d", status)
	return e
}

// parseErrorBody extracts the most specific message from an error body:
// "detail", then "message", then the first value of the first field in
// document order. String values and the first element of string arrays are
// collected into the field map.
func parseErrorBody(body []byte) (string, map[string][]string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", nil
	}

	switch body[0] {
	case '"':
		var s string
		if json.Unmarshal(body, &s) == nil {
			return s, nil
		}
		return "", nil
	case '[':
		var raw []json.RawMessage
		if json.Unmarshal(body, &raw) == nil && len(raw) > 0 {
			return rawText(raw[0]), nil
		}
		return "", nil
	case '{':
	default:
		return "", nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil {
		return "", nil
	}

	var (
		keys   []string
		values = map[string]json.RawMessage{}
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		key, ok := tok.(string)
		if !ok {
			break
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			break
		}
		keys = append(keys, key)
		values[key] = v
	}

	fields := map[string][]string{}
	for _, k := range keys {
		if k == "detail" || k == "message" {
			continue
		}
		if msgs := rawMessages(values[k]); len(msgs) > 0 {
			fields[k] = msgs
		}
	}
	if len(fields) == 0 {
		fields = nil
	}

	for _, k := range []string{"detail", "message"} {
		if v, ok := values[k]; ok {
			if s := rawText(v); s != "" {
				return s, fields
			}
		}
	}
	if len(keys) > 0 {
		return rawText(values[keys[0]]), fields
	}
	return "", fields
}

// rawText renders a JSON value as message text
func rawText(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var arr []json.RawMessage
	if json.Unmarshal(v, &arr) == nil {
		if len(arr) == 0 {
			return ""
		}
		return rawText(arr[0])
	}
	if string(v) == "null" {
		return ""
	}
	return string(v)
}

func rawMessages(v json.RawMessage) []string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var arr []string
	if json.Unmarshal(v, &arr) == nil {
		return arr
	}
	return nil
}
