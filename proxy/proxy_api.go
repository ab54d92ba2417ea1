package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	requestTimeout = 30 * time.Second
	maxPages       = 1000
	debugBodyLimit = 500
)

// Directory is the HTTP client of the proxy admin API.
type Directory struct {
	baseUrl string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewDirectory(baseUrl string, token string, logger zerolog.Logger) *Directory {
	return &Directory{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

func parseUser(userObject map[string]any) (result *ObservedUser) {
	result = &ObservedUser{Raw: userObject}
	result.Id, _ = toString(userObject["user_id"])
	result.Email, _ = toString(userObject["user_email"])
	result.Role, _ = toString(userObject["user_role"])
	result.Teams = toStringSlice(userObject["teams"])
	result.Models = toStringSlice(userObject["models"])
	result.KeyCount, _ = toInt64(userObject["key_count"])
	result.CreatedAt = FormatValue(userObject["created_at"])
	result.UpdatedAt = FormatValue(userObject["updated_at"])
	return
}

func parseTeam(teamObject map[string]any) (result *Team) {
	var ok bool
	var teamId string
	if teamId, ok = toString(teamObject["team_id"]); !ok || len(teamId) == 0 {
		return
	}
	result = &Team{Id: teamId}
	result.Name, _ = toString(teamObject["team_name"])
	result.Alias, _ = toString(teamObject["team_alias"])
	return
}

func parseCreatedUser(userObject map[string]any) (result *CreatedUser) {
	result = &CreatedUser{Raw: userObject}
	result.UserId, _ = toString(userObject["user_id"])
	result.Email, _ = toString(userObject["user_email"])
	result.Role, _ = toString(userObject["user_role"])
	result.TeamId, _ = toString(userObject["team_id"])
	result.Key = firstString(userObject, "key", "api_key", "token")
	result.Models = toStringSlice(userObject["models"])
	return
}

// decodeList accepts either a bare JSON array or an object that wraps the array
// under one of keys.
func decodeList(data any, keys ...string) (result []map[string]any) {
	var items []any
	switch jv := data.(type) {
	case []any:
		items = jv
	case map[string]any:
		for _, key := range keys {
			if ja, ok := jv[key].([]any); ok && len(ja) > 0 {
				items = ja
				break
			}
		}
	}
	for _, j := range items {
		if jo, ok := j.(map[string]any); ok {
			result = append(result, jo)
		}
	}
	return
}

func (d *Directory) composeUrl(path string, query url.Values) (result *url.URL, err error) {
	var uri *url.URL
	if uri, err = url.Parse(d.baseUrl); err != nil {
		return
	}
	var ruri *url.URL
	if ruri, err = url.Parse(strings.TrimLeft(path, "/")); err != nil {
		return
	}
	if !strings.HasSuffix(uri.Path, "/") {
		uri.Path += "/"
	}
	uri = uri.ResolveReference(ruri)
	if len(query) > 0 {
		uri.RawQuery = query.Encode()
	}
	result = uri
	return
}

func truncate(text string, limit int) string {
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

func (d *Directory) executeRequest(rq *http.Request) (status int, body []byte, err error) {
	rq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", d.token))
	rq.Header.Set("Content-Type", "application/json")

	var path = rq.URL.String()
	if strings.HasPrefix(path, d.baseUrl) {
		path = "/" + strings.Trim(path[len(d.baseUrl):], "/")
	}
	d.logger.Debug().Str("method", rq.Method).Str("path", path).Msg("directory request")

	var rs *http.Response
	if rs, err = d.client.Do(rq); err != nil {
		return
	}
	defer func() { _ = rs.Body.Close() }()
	status = rs.StatusCode
	if body, err = io.ReadAll(rs.Body); err != nil {
		return
	}
	d.logger.Debug().Int("status", rs.StatusCode).Str("body", truncate(string(body), debugBodyLimit)).
		Msg("directory response")

	if rs.StatusCode < 200 || rs.StatusCode >= 300 {
		err = &APIError{
			Method:     rq.Method,
			Path:       path,
			StatusCode: rs.StatusCode,
			Body:       string(body),
		}
	}
	return
}

func (d *Directory) getResource(ctx context.Context, path string, query url.Values) (response any, err error) {
	var uri *url.URL
	if uri, err = d.composeUrl(path, query); err != nil {
		return
	}
	var rq *http.Request
	if rq, err = http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil); err != nil {
		return
	}
	var body []byte
	if _, body, err = d.executeRequest(rq); err != nil {
		return
	}
	if len(body) > 0 {
		err = json.Unmarshal(body, &response)
	}
	return
}

func (d *Directory) postResource(ctx context.Context, path string, payload any) (response map[string]any, err error) {
	_, response, err = d.postResourceStatus(ctx, path, payload)
	return
}

func (d *Directory) postResourceStatus(ctx context.Context, path string, payload any) (status int, response map[string]any, err error) {
	var uri *url.URL
	if uri, err = d.composeUrl(path, nil); err != nil {
		return
	}
	var data []byte
	if data, err = json.Marshal(payload); err != nil {
		return
	}
	d.logger.Debug().Str("path", path).RawJSON("payload", data).Msg("directory payload")

	var rq *http.Request
	if rq, err = http.NewRequestWithContext(ctx, http.MethodPost, uri.String(), bytes.NewBuffer(data)); err != nil {
		return
	}
	var body []byte
	if status, body, err = d.executeRequest(rq); err != nil {
		return
	}
	if len(body) > 0 {
		var jv any
		if er1 := json.Unmarshal(body, &jv); er1 == nil {
			response, _ = jv.(map[string]any)
		}
	}
	return
}

// ListUsers fetches every user, following continuation tokens until the
// directory stops returning one.
func (d *Directory) ListUsers(ctx context.Context) (users []*ObservedUser, err error) {
	var query = url.Values{}
	for page := 0; ; page++ {
		if page >= maxPages {
			err = fmt.Errorf("user list did not terminate after %d pages", maxPages)
			return
		}
		var data any
		if data, err = d.getResource(ctx, "user/list", query); err != nil {
			return
		}
		for _, uo := range decodeList(data, "data", "users") {
			users = append(users, parseUser(uo))
		}
		var next string
		if jo, ok := data.(map[string]any); ok {
			next = firstString(jo, "next", "next_page_token")
		}
		if len(next) == 0 {
			return
		}
		query.Set("page_token", next)
	}
}

func (d *Directory) ListTeams(ctx context.Context) (teams []*Team, err error) {
	var data any
	if data, err = d.getResource(ctx, "team/list", nil); err != nil {
		return
	}
	for _, to := range decodeList(data, "teams", "data") {
		if t := parseTeam(to); t != nil {
			teams = append(teams, t)
		}
	}
	return
}

func (d *Directory) UserInfo(ctx context.Context, userId string) (info map[string]any, err error) {
	var data any
	if data, err = d.getResource(ctx, "user/info", url.Values{"user_id": []string{userId}}); err != nil {
		return
	}
	info, _ = data.(map[string]any)
	return
}

func (d *Directory) CreateUser(ctx context.Context, rq *NewUserRequest) (user *CreatedUser, err error) {
	var response map[string]any
	if response, err = d.postResource(ctx, "user/new", rq); err != nil {
		return
	}
	if response == nil {
		response = make(map[string]any)
	}
	user = parseCreatedUser(response)
	if len(user.Email) == 0 {
		user.Email = rq.Email
	}
	if len(user.Role) == 0 {
		user.Role = rq.Role
	}
	if len(user.TeamId) == 0 {
		user.TeamId = rq.TeamId
	}
	return
}

func (d *Directory) UpdateUser(ctx context.Context, rq *UpdateUserRequest) (response map[string]any, err error) {
	response, err = d.postResource(ctx, "user/update", rq)
	return
}

func (d *Directory) DeleteUser(ctx context.Context, userId string) (err error) {
	_, err = d.postResource(ctx, "user/delete", map[string]any{
		"user_ids": []string{userId},
	})
	return
}

func (d *Directory) UpdateKeyAlias(ctx context.Context, key string, alias string) (err error) {
	_, err = d.postResource(ctx, "key/update", map[string]any{
		"key":       key,
		"key_alias": alias,
	})
	return
}

// FindUser scans the full user listing and returns the first user accepted by match.
// A nil user with a nil error means no user matched.
func FindUser(ctx context.Context, directory IDirectory, match func(*ObservedUser) bool) (user *ObservedUser, err error) {
	var users []*ObservedUser
	if users, err = directory.ListUsers(ctx); err != nil {
		return
	}
	for _, u := range users {
		if match(u) {
			user = u
			return
		}
	}
	return
}
