package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryCancelled is returned when the context ends while a request
	// is waiting to be retried.
	ErrRetryCancelled = errors.New("retry cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport failures (no HTTP status).
	ErrorClassNetwork ErrorClass = "network"
)

// HTTPError is a failed backend request. StatusCode is 0 when no response
// was received.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Class      ErrorClass
	Message    string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s error: %v", e.Method, e.URL, e.Class, e.Err)
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %s error (status %d): %s", e.Method, e.URL, e.Class, e.StatusCode, msg)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a status code to its error class. Status 0 means the
// request never got a response.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 0:
		return ErrorClassNetwork
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Describe returns a message suitable for showing to an end user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		if errors.Is(err, ErrRetryCancelled) {
			return "The request was cancelled."
		}
		return "An unexpected error occurred."
	}

	switch httpErr.StatusCode {
	case 0:
		return "Cannot reach the server. Check your internet connection."
	case http.StatusBadRequest:
		return orDefault(httpErr.Message, "The submitted data is invalid.")
	case http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case http.StatusForbidden:
		return "You do not have permission to access this resource."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusUnprocessableEntity:
		return orDefault(httpErr.Message, "Validation failed.")
	case http.StatusTooManyRequests:
		return "Too many requests. Please try again later."
	case http.StatusInternalServerError:
		return orDefault(httpErr.Message, "Server error. Please try again later.")
	case http.StatusServiceUnavailable:
		return "The service is currently unavailable. Please try again later."
	default:
		return orDefault(httpErr.Message, fmt.Sprintf("Error %d: %s", httpErr.StatusCode, http.StatusText(httpErr.StatusCode)))
	}
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
