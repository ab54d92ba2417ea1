package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response of the directory.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s \"%s\" error: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s \"%s\" error: status %d", e.Method, e.Path, e.StatusCode)
}

func bodyPreview(body string) string {
	if len(body) > 100 {
		return body[:100]
	}
	return body
}

// ClassifyCreateError turns a user creation failure into a report reason.
func ClassifyCreateError(err error, email string, role string) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("Unexpected error: %s", err)
	}
	var body = strings.ToLower(apiErr.Body)
	switch {
	case strings.Contains(body, "already exists") || strings.Contains(body, "duplicate"):
		return "User already exists (API response)"
	case strings.Contains(body, "invalid") && strings.Contains(body, "role"):
		return fmt.Sprintf("Invalid role '%s' - not supported by the proxy", role)
	case strings.Contains(body, "invalid") && strings.Contains(body, "email"):
		return fmt.Sprintf("Invalid email format '%s'", email)
	case apiErr.StatusCode == http.StatusBadRequest:
		return "Bad request - check email format and role validity"
	case apiErr.StatusCode == http.StatusUnauthorized:
		return "Unauthorized - invalid master key"
	case apiErr.StatusCode == http.StatusForbidden:
		return "Forbidden - insufficient permissions"
	case apiErr.StatusCode == http.StatusConflict:
		return "Conflict - user already exists"
	}
	return fmt.Sprintf("HTTP %d error: %s", apiErr.StatusCode, bodyPreview(apiErr.Body))
}

// ClassifyDeleteError turns a user deletion failure into a report reason.
func ClassifyDeleteError(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Sprintf("Unexpected error: %s", err)
	}
	switch {
	case strings.Contains(strings.ToLower(apiErr.Body), "not found"):
		return "User not found (API response)"
	case apiErr.StatusCode == http.StatusBadRequest:
		return "Bad request - invalid user ID format"
	case apiErr.StatusCode == http.StatusUnauthorized:
		return "Unauthorized - invalid master key"
	case apiErr.StatusCode == http.StatusForbidden:
		return "Forbidden - insufficient permissions"
	case apiErr.StatusCode == http.StatusNotFound:
		return "User not found"
	}
	return fmt.Sprintf("HTTP %d error: %s", apiErr.StatusCode, bodyPreview(apiErr.Body))
}
