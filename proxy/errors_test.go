package proxy

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCreateError(t *testing.T) {
	var cases = []struct {
		status int
		body   string
		reason string
	}{
		{400, `{"error": "User already exists"}`, "User already exists (API response)"},
		{500, "duplicate key value", "User already exists (API response)"},
		{400, "Invalid user_role", "Invalid role 'boss' - not supported by the proxy"},
		{422, "INVALID EMAIL", "Invalid email format 'a@'"},
		{400, "bad payload", "Bad request - check email format and role validity"},
		{401, "", "Unauthorized - invalid master key"},
		{403, "", "Forbidden - insufficient permissions"},
		{409, "", "Conflict - user already exists"},
		{500, strings.Repeat("x", 150), "HTTP 500 error: " + strings.Repeat("x", 100)},
	}
	for _, tc := range cases {
		var err = fmt.Errorf("create: %w", &APIError{Method: "POST", Path: "/user/new", StatusCode: tc.status, Body: tc.body})
		assert.Equal(t, tc.reason, ClassifyCreateError(err, "a@", "boss"))
	}
	assert.Equal(t, "Unexpected error: timeout", ClassifyCreateError(errors.New("timeout"), "a@x.com", "user"))
}

func TestClassifyDeleteError(t *testing.T) {
	var cases = []struct {
		status int
		body   string
		reason string
	}{
		{400, "User not found", "User not found (API response)"},
		{400, "bad id", "Bad request - invalid user ID format"},
		{401, "", "Unauthorized - invalid master key"},
		{403, "", "Forbidden - insufficient permissions"},
		{404, "", "User not found"},
		{502, "gateway", "HTTP 502 error: gateway"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.reason, ClassifyDeleteError(&APIError{StatusCode: tc.status, Body: tc.body}))
	}
	assert.Equal(t, "Unexpected error: eof", ClassifyDeleteError(errors.New("eof")))
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, `GET "/team/list" error: status 500`, (&APIError{Method: "GET", Path: "/team/list", StatusCode: 500}).Error())
}
