package proxy

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

type GoogleEndpointParameters struct {
	AdminAccount string
	Credentials  []byte
	Groups       []string
	DefaultRole  string
}

type googleEndpoint struct {
	users      map[string]*DesiredUser
	order      []string
	parameters GoogleEndpointParameters
}

// NewGoogleEndpoint creates an IUserSource from Google Workspace group membership.
// Every active user of a configured group is a desired user. The proxy team of a
// group is named after the local part of the group email.
func NewGoogleEndpoint(parameters GoogleEndpointParameters) IUserSource {
	return &googleEndpoint{
		parameters: parameters,
	}
}

func (ge *googleEndpoint) Users(cb func(*DesiredUser)) {
	for _, key := range ge.order {
		cb(ge.users[key])
	}
}

// ParseGroupList splits group lists separated by new lines or commas.
func ParseGroupList(values []string) (groups []string) {
	var seen = NewSet[string]()
	for _, x := range values {
		for _, y := range strings.Split(x, "\n") {
			for _, z := range strings.Split(y, ",") {
				z = strings.ToLower(strings.TrimSpace(z))
				if len(z) == 0 || seen.Has(z) {
					continue
				}
				seen.Add(z)
				groups = append(groups, z)
			}
		}
	}
	return
}

func teamNameOfGroup(g *admin.Group) string {
	if idx := strings.Index(g.Email, "@"); idx > 0 {
		return g.Email[:idx]
	}
	return strings.Join(strings.Fields(g.Name), "-")
}

// addUser merges memberships case-insensitively and keeps the email as the directory spells it.
func (ge *googleEndpoint) addUser(u *admin.User, teamName string) {
	var key = strings.ToLower(u.PrimaryEmail)
	var du, ok = ge.users[key]
	if !ok {
		du = &DesiredUser{
			Email: u.PrimaryEmail,
			Role:  ge.parameters.DefaultRole,
		}
		ge.users[key] = du
		ge.order = append(ge.order, key)
	}
	if len(teamName) > 0 {
		du.TeamName = strings.Join(SplitTeams(du.TeamName+" "+teamName), " ")
	}
}

func (ge *googleEndpoint) Populate(ctx context.Context) (err error) {
	var configured = MakeSet[string](ParseGroupList(ge.parameters.Groups))
	if len(configured) == 0 {
		err = errors.New("no Google Workspace groups configured")
		return
	}
	if len(ge.parameters.DefaultRole) == 0 {
		ge.parameters.DefaultRole = DefaultUserRole
	}

	params := google.CredentialsParams{
		Scopes: []string{admin.AdminDirectoryUserReadonlyScope,
			admin.AdminDirectoryGroupReadonlyScope, admin.AdminDirectoryGroupMemberReadonlyScope},
		Subject: ge.parameters.AdminAccount,
	}
	var cred *google.Credentials
	if cred, err = google.CredentialsFromJSONWithParams(ctx, ge.parameters.Credentials, params); err != nil {
		return
	}
	var directory *admin.Service
	if directory, err = admin.NewService(ctx, option.WithCredentials(cred)); err != nil {
		return
	}

	ge.users = make(map[string]*DesiredUser)
	ge.order = nil

	var userLookup = make(map[string]*admin.User)
	if err = directory.Users.List().Customer("my_customer").Pages(ctx, func(users *admin.Users) error {
		for _, u := range users.Users {
			userLookup[u.Id] = u
			if !u.Suspended && configured.Has(strings.ToLower(u.PrimaryEmail)) {
				ge.addUser(u, "")
			}
		}
		return nil
	}); err != nil {
		return
	}

	var groupLookup = make(map[string]*admin.Group)
	var selected []*admin.Group
	if err = directory.Groups.List().Customer("my_customer").Pages(ctx, func(groups *admin.Groups) error {
		for _, g := range groups.Groups {
			groupLookup[g.Id] = g
			if configured.Has(strings.ToLower(g.Email)) || configured.Has(strings.ToLower(g.Name)) {
				selected = append(selected, g)
			}
		}
		return nil
	}); err != nil {
		return
	}

	if len(selected) == 0 && len(ge.users) == 0 {
		err = errors.New("no Google Workspace groups could be resolved")
		return
	}

	// members of nested groups belong to the team of the selected group
	var membershipCache = make(map[string][]string)
	for _, group := range selected {
		var teamName = teamNameOfGroup(group)
		var groupIds = []string{group.Id}
		var queuedIds = MakeSet[string](groupIds)
		for pos := 0; pos < len(groupIds); pos++ {
			var gId = groupIds[pos]
			var memberIds, ok = membershipCache[gId]
			if !ok {
				if err = directory.Members.List(gId).Pages(ctx, func(members *admin.Members) error {
					for _, m := range members.Members {
						memberIds = append(memberIds, m.Id)
					}
					return nil
				}); err != nil {
					return
				}
				membershipCache[gId] = memberIds
			}
			for _, mId := range memberIds {
				if u, isUser := userLookup[mId]; isUser {
					if !u.Suspended {
						ge.addUser(u, teamName)
					}
				} else if g, isGroup := groupLookup[mId]; isGroup {
					if !queuedIds.Has(g.Id) {
						groupIds = append(groupIds, g.Id)
						queuedIds.Add(g.Id)
					}
				}
			}
		}
	}
	return
}
