package proxy

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// memoryDirectory is an IDirectory kept in memory that records every mutation.
type memoryDirectory struct {
	users []*ObservedUser
	teams []*Team

	ignoreTeamUpdates bool
	listErr           error
	createErr         error
	deleteErr         error
	// listErrAfter fails ListUsers once it has been called that many times.
	listErrAfter int

	listCalls int
	updates   []*UpdateUserRequest
	creates   []*NewUserRequest
	deletes   []string
	aliases   map[string]string
	nextId    int
}

func newMemoryDirectory(teams ...*Team) *memoryDirectory {
	return &memoryDirectory{teams: teams, aliases: make(map[string]string)}
}

func (md *memoryDirectory) addUser(id string, email string, role string, teamIds ...string) *ObservedUser {
	var u = &ObservedUser{Id: id, Email: email, Role: role, Teams: teamIds}
	md.users = append(md.users, u)
	return u
}

func (md *memoryDirectory) user(id string) *ObservedUser {
	var idx = slices.IndexFunc(md.users, func(u *ObservedUser) bool { return u.Id == id })
	if idx < 0 {
		return nil
	}
	return md.users[idx]
}

func (md *memoryDirectory) ListUsers(_ context.Context) (users []*ObservedUser, err error) {
	md.listCalls++
	if md.listErr != nil && md.listCalls > md.listErrAfter {
		err = md.listErr
		return
	}
	for _, u := range md.users {
		var c = *u
		c.Teams = slices.Clone(u.Teams)
		users = append(users, &c)
	}
	return
}

func (md *memoryDirectory) ListTeams(_ context.Context) ([]*Team, error) {
	return md.teams, nil
}

func (md *memoryDirectory) UserInfo(_ context.Context, userId string) (map[string]any, error) {
	if u := md.user(userId); u != nil {
		return map[string]any{"user_id": userId, "user_info": map[string]any{"models": []any{"gpt-4o"}}}, nil
	}
	return nil, &APIError{Method: "GET", Path: "/user/info", StatusCode: 404}
}

func (md *memoryDirectory) CreateUser(_ context.Context, rq *NewUserRequest) (*CreatedUser, error) {
	md.creates = append(md.creates, rq)
	if md.createErr != nil {
		return nil, md.createErr
	}
	md.nextId++
	var id = fmt.Sprintf("new-%d", md.nextId)
	var u = md.addUser(id, rq.Email, rq.Role)
	if len(rq.TeamId) > 0 {
		u.Teams = []string{rq.TeamId}
	}
	return &CreatedUser{UserId: id, Email: rq.Email, Role: rq.Role, TeamId: rq.TeamId, Key: "sk-" + id}, nil
}

func (md *memoryDirectory) UpdateUser(_ context.Context, rq *UpdateUserRequest) (map[string]any, error) {
	md.updates = append(md.updates, rq)
	var u = md.user(rq.UserId)
	if u == nil {
		return nil, &APIError{Method: "POST", Path: "/user/update", StatusCode: 404, Body: "user not found"}
	}
	if len(rq.Role) > 0 {
		u.Role = rq.Role
	}
	if rq.Teams != nil && !md.ignoreTeamUpdates {
		u.Teams = slices.Clone(rq.Teams)
	}
	return map[string]any{"user_id": u.Id}, nil
}

func (md *memoryDirectory) DeleteUser(_ context.Context, userId string) error {
	md.deletes = append(md.deletes, userId)
	if md.deleteErr != nil {
		return md.deleteErr
	}
	var idx = slices.IndexFunc(md.users, func(u *ObservedUser) bool { return u.Id == userId })
	if idx < 0 {
		return errors.New("user not found")
	}
	md.users = slices.Delete(md.users, idx, idx+1)
	return nil
}

func (md *memoryDirectory) UpdateKeyAlias(_ context.Context, key string, alias string) error {
	md.aliases[key] = alias
	return nil
}

func (md *memoryDirectory) GenerateInvitationUrl(_ context.Context, userId string) string {
	return "http://proxy/ui/?invitation_id=inv-" + userId
}
