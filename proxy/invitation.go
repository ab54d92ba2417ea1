package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type invitationEndpoint struct {
	path func(userId string) string
}

func staticPath(path string) func(string) string {
	return func(string) string { return path }
}

// invitationEndpoints are tried in order. Proxy versions expose invitations under
// different paths, if at all.
var invitationEndpoints = []invitationEndpoint{
	{path: staticPath("user/invite")},
	{path: staticPath("invite")},
	{path: staticPath("user/invitation")},
	{path: func(userId string) string { return fmt.Sprintf("user/%s/invite", url.PathEscape(userId)) }},
	{path: staticPath("user/generate_invite")},
	{path: staticPath("generate_invite")},
}

var invitationIdFields = []string{"invitation_id", "invite_id", "id", "token", "invitation_token"}

// invitationIdOf returns the first non-empty id field. Numeric ids are rendered as text.
func invitationIdOf(response map[string]any) string {
	for _, key := range invitationIdFields {
		if v, ok := response[key]; ok && v != nil {
			if id := FormatValue(v); len(id) > 0 {
				return id
			}
		}
	}
	return ""
}

// GenerateInvitationId probes the known invitation endpoints and returns the id of
// the first one that answers with 200. An empty string means no endpoint is available.
func (d *Directory) GenerateInvitationId(ctx context.Context, userId string) string {
	var payload = map[string]any{
		"user_id": userId,
		"action":  "reset_password",
	}
	for _, endpoint := range invitationEndpoints {
		var path = endpoint.path(userId)
		var status, response, err = d.postResourceStatus(ctx, path, payload)
		if err != nil {
			d.logger.Debug().Err(err).Str("path", path).Msg("invitation endpoint failed")
			continue
		}
		if status != http.StatusOK {
			d.logger.Debug().Int("status", status).Str("path", path).Msg("invitation endpoint skipped")
			continue
		}
		if invitationId := invitationIdOf(response); len(invitationId) > 0 {
			d.logger.Debug().Str("path", path).Msg("invitation generated")
			return invitationId
		}
	}
	d.logger.Debug().Str("user_id", userId).Msg("no invitation endpoint available")
	return ""
}

// GenerateInvitationUrl returns the password setup link of a user or, when the
// proxy cannot issue invitations, a manual setup note.
func (d *Directory) GenerateInvitationUrl(ctx context.Context, userId string) string {
	if invitationId := d.GenerateInvitationId(ctx, userId); len(invitationId) > 0 {
		return fmt.Sprintf("%s/ui/?invitation_id=%s&action=reset_password", d.baseUrl, url.QueryEscape(invitationId))
	}
	return fmt.Sprintf("Manual setup required - User ID: %s (No invitation endpoint available)", userId)
}
