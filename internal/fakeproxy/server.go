// Package fakeproxy is an in-memory proxy admin API for tests.
package fakeproxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const MasterKey = "sk-master"

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

type Server struct {
	*httptest.Server

	// PageSize > 0 splits user listings into pages linked by "next".
	PageSize int
	// BareLists returns listings as JSON arrays instead of wrapped objects.
	BareLists bool
	// IgnoreTeamUpdates accepts team changes in /user/update without applying them.
	IgnoreTeamUpdates bool
	// InvitePath is the only invitation endpoint that answers, e.g. "/invite".
	InvitePath string

	mu         sync.Mutex
	users      []map[string]any
	teams      []map[string]any
	calls      []Call
	failures   map[string]int
	keyAliases map[string]string
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		failures:   make(map[string]int),
		keyAliases: make(map[string]string),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) AddTeam(name string, alias string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.teams = append(s.teams, map[string]any{"team_id": id, "team_name": name, "team_alias": alias})
	return id
}

func (s *Server) AddUser(email string, role string, teamIds ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users = append(s.users, newUser(id, email, role, teamIds))
	return id
}

func newUser(id string, email string, role string, teamIds []string) map[string]any {
	teams := make([]any, 0, len(teamIds))
	for _, t := range teamIds {
		teams = append(teams, t)
	}
	return map[string]any{
		"user_id":         id,
		"user_email":      email,
		"user_role":       role,
		"teams":           teams,
		"models":          []any{},
		"key_count":       0,
		"created_at":      "2024-05-01T10:00:00Z",
		"updated_at":      "2024-05-01T10:00:00Z",
		"hashed_password": "secret-hash",
	}
}

// Fail makes every request to method and path answer with status.
func (s *Server) Fail(method string, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// User returns the user with email or nil.
func (s *Server) User(email string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexByEmail(email); idx >= 0 {
		return s.users[idx]
	}
	return nil
}

// UserTeams returns the team ids of the user with email.
func (s *Server) UserTeams(email string) (teams []string) {
	if u := s.User(email); u != nil {
		for _, t := range u["teams"].([]any) {
			teams = append(teams, t.(string))
		}
	}
	return
}

func (s *Server) Emails() (emails []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		emails = append(emails, u["user_email"].(string))
	}
	return
}

func (s *Server) KeyAlias(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyAliases[key]
}

// Calls returns the requests received for method and path. An empty path matches every path.
func (s *Server) Calls(method string, path string) (calls []Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c.Method == method && (path == "" || c.Path == path) {
			calls = append(calls, c)
		}
	}
	return
}

func (s *Server) indexByEmail(email string) int {
	return slices.IndexFunc(s.users, func(u map[string]any) bool { return u["user_email"] == email })
}

func (s *Server) indexById(id any) int {
	return slices.IndexFunc(s.users, func(u map[string]any) bool { return u["user_id"] == id })
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"message": message}})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{Method: r.Method, Path: r.URL.Path}
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	s.calls = append(s.calls, call)

	if r.Header.Get("Authorization") != "Bearer "+MasterKey {
		writeError(w, http.StatusUnauthorized, "Authentication Error, invalid master key")
		return
	}
	if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
		writeError(w, status, "injected failure")
		return
	}

	switch r.Method + " " + r.URL.Path {
	case "GET /user/list":
		s.listUsers(w, r)
	case "GET /team/list":
		if s.BareLists {
			writeJSON(w, http.StatusOK, s.teams)
		} else {
			writeJSON(w, http.StatusOK, map[string]any{"teams": s.teams})
		}
	case "GET /user/info":
		idx := s.indexById(r.URL.Query().Get("user_id"))
		if idx < 0 {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": s.users[idx]["user_id"], "user_info": s.users[idx]})
	case "POST /user/new":
		s.createUser(w, call.Body)
	case "POST /user/update":
		s.updateUser(w, call.Body)
	case "POST /user/delete":
		s.deleteUsers(w, call.Body)
	case "POST /key/update":
		key, _ := call.Body["key"].(string)
		alias, _ := call.Body["key_alias"].(string)
		s.keyAliases[key] = alias
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "key_alias": alias})
	default:
		if r.Method == http.MethodPost && s.InvitePath != "" && r.URL.Path == s.InvitePath {
			writeJSON(w, http.StatusOK, map[string]any{"invitation_id": "inv-" + call.Body["user_id"].(string)})
			return
		}
		writeError(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users := s.users
	var next string
	if s.PageSize > 0 {
		start, _ := strconv.Atoi(r.URL.Query().Get("page_token"))
		end := min(start+s.PageSize, len(users))
		if start > len(users) {
			start = len(users)
		}
		if end < len(users) {
			next = strconv.Itoa(end)
		}
		users = users[start:end]
	}
	if s.BareLists {
		writeJSON(w, http.StatusOK, users)
		return
	}
	body := map[string]any{"users": users}
	if next != "" {
		body["next"] = next
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) createUser(w http.ResponseWriter, body map[string]any) {
	email, _ := body["user_email"].(string)
	role, _ := body["user_role"].(string)
	if !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if s.indexByEmail(email) >= 0 {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	var teamIds []string
	teamId, _ := body["team_id"].(string)
	if teamId != "" {
		teamIds = append(teamIds, teamId)
	}
	id := uuid.NewString()
	user := newUser(id, email, role, teamIds)
	user["key_count"] = 1
	s.users = append(s.users, user)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    id,
		"user_email": email,
		"user_role":  role,
		"team_id":    teamId,
		"key":        "sk-" + id,
		"models":     []any{},
	})
}

func (s *Server) updateUser(w http.ResponseWriter, body map[string]any) {
	idx := s.indexById(body["user_id"])
	if idx < 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	user := s.users[idx]
	if role, ok := body["user_role"].(string); ok && role != "" {
		user["user_role"] = role
	}
	if teams, ok := body["teams"].([]any); ok && !s.IgnoreTeamUpdates {
		user["teams"] = teams
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) deleteUsers(w http.ResponseWriter, body map[string]any) {
	ids, _ := body["user_ids"].([]any)
	var deleted []any
	for _, id := range ids {
		if idx := s.indexById(id); idx >= 0 {
			s.users = slices.Delete(s.users, idx, idx+1)
			deleted = append(deleted, id)
		}
	}
	if len(deleted) == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted_user_ids": deleted})
}
