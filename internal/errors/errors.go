package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"unicode/utf8"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates the report endpoint was not found
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates authentication failure
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates authorization failure
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("timeout")

	// ErrRateLimit indicates rate limiting
	ErrRateLimit = errors.New("rate limit exceeded")
)

// maxBodyInMessage bounds how much of a response body ends up in Error().
const maxBodyInMessage = 512

// HTTPError is returned when the server answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	body := truncateBody(e.Body)
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if body == "" {
		return fmt.Sprintf("http error: %s for url %s", status, e.URL)
	}
	return fmt.Sprintf("http error: %s for url %s: %s", status, e.URL, body)
}

// truncateBody cuts at a rune boundary at or below maxBodyInMessage bytes
func truncateBody(body string) string {
	if len(body) <= maxBodyInMessage {
		return body
	}
	cut := maxBodyInMessage
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

// Is maps well-known status codes onto the sentinel errors.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimit:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrTimeout:
		return e.StatusCode == http.StatusGatewayTimeout || e.StatusCode == http.StatusRequestTimeout
	}
	return false
}

// NewHTTPError creates an HTTPError from a response status and body
func NewHTTPError(statusCode int, status, url string, body []byte) error {
	return &HTTPError{
		StatusCode: statusCode,
		Status:     status,
		URL:        url,
		Body:       string(body),
	}
}

// ParseError wraps a failure to decode a response body
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %v", e.Cause)
	}
	return "parse error"
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is lets ParseError match ErrInvalidInput.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParse creates a new parse error
func NewParse(err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Cause: err}
}

// FileError wraps a failure to open or write the report destination
type FileError struct {
	Op    string
	Path  string
	Cause error
}

func (e *FileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("file error: %s %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("file error: %s %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// NewFile creates a new file error
func NewFile(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FileError{Op: op, Path: path, Cause: err}
}

// IsHTTP checks if an error is an HTTPError using errors.As
func IsHTTP(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// IsParse checks if an error is a ParseError using errors.As
func IsParse(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

// IsFile checks if an error is a FileError using errors.As
func IsFile(err error) bool {
	var fileErr *FileError
	return errors.As(err, &fileErr)
}

// IsTransient reports whether a failure is likely to go away on a later run.
// Nothing retries on it; it only feeds the final error report.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode == http.StatusRequestTimeout
	}

	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidInput) {
		return false
	}

	if IsFile(err) {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
