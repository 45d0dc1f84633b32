// Package envelope decodes the JSON envelope wrapped around every backend
// response.
package envelope

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Envelope is the standard response wrapper.
type Envelope[T any] struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Code      *string         `json:"code"`
	Data      T               `json:"data"`
	Errors    json.RawMessage `json:"errors"`
	Meta      json.RawMessage `json:"meta"`
	TraceID   *string         `json:"traceId"`
	Timestamp string          `json:"timestamp"`
	Links     json.RawMessage `json:"links"`
}

// Page is a server-side paged result.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// IDRequest is the body of get, delete and restore calls.
type IDRequest struct {
	ID int64 `json:"id"`
}

// Error is returned for envelopes with success=false.
type Error struct {
	Message string
	Code    string
	TraceID string
	Details []string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request was not successful"
	}
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Code != "" {
		return fmt.Sprintf("backend error %s: %s", e.Code, msg)
	}
	return "backend error: " + msg
}

// Decode parses body into an envelope without checking Success.
func Decode[T any](body []byte) (*Envelope[T], error) {
	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// Data decodes body and returns its payload. A success=false envelope
// yields an *Error.
func Data[T any](body []byte) (T, error) {
	env, err := Decode[T](body)
	if err != nil {
		var zero T
		return zero, err
	}
	if !env.Success {
		var zero T
		return zero, env.AsError()
	}
	return env.Data, nil
}

// AsError converts the envelope's failure fields into an *Error.
func (e *Envelope[T]) AsError() *Error {
	out := &Error{
		Message: e.Message,
		Details: ErrorMessages(e.Errors),
	}
	if e.Code != nil {
		out.Code = *e.Code
	}
	if e.TraceID != nil {
		out.TraceID = *e.TraceID
	}
	return out
}

// ErrorMessages flattens the errors field. The backend sends either a list
// of strings or an object mapping field names to lists of strings.
func ErrorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		out = append(out, fields[name]...)
	}
	return out
}

// Message extracts a human readable message from an error response body.
// It accepts both "message" and "Message" and falls back to the
// validation errors. Returns "" when nothing usable is found.
func Message(body []byte) string {
	var probe struct {
		Message      string          `json:"message"`
		UpperMessage string          `json:"Message"`
		Errors       json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	if probe.Message != "" {
		return probe.Message
	}
	if probe.UpperMessage != "" {
		return probe.UpperMessage
	}
	return strings.Join(ErrorMessages(probe.Errors), "; ")
}
