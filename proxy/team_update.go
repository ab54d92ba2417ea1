package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type TeamUpdateState int

const (
	NoChangeNeeded TeamUpdateState = iota
	Expanded
	Contracted
	Verified
	VerificationFailed
	Recreated
	RecreationFailed
)

func (s TeamUpdateState) String() string {
	switch s {
	case NoChangeNeeded:
		return "NoChangeNeeded"
	case Expanded:
		return "Expanded"
	case Contracted:
		return "Contracted"
	case Verified:
		return "Verified"
	case VerificationFailed:
		return "VerificationFailed"
	case Recreated:
		return "Recreated"
	case RecreationFailed:
		return "RecreationFailed"
	}
	return fmt.Sprintf("TeamUpdateState(%d)", int(s))
}

type UpdateResult struct {
	State TeamUpdateState
	// UserId is the id of the user after the update. It differs from the
	// original id when the user had to be recreated.
	UserId string
	ApiKey string
}

// Updater applies role and team changes of existing users.
type Updater struct {
	directory IDirectory
	teams     *TeamDirectory
	logger    zerolog.Logger
}

func NewUpdater(directory IDirectory, teams *TeamDirectory, logger zerolog.Logger) *Updater {
	return &Updater{
		directory: directory,
		teams:     teams,
		logger:    logger,
	}
}

// UpdateUser applies a planned update. Teams go first, then the role.
func (u *Updater) UpdateUser(ctx context.Context, upd *UserUpdate) (result *UpdateResult, err error) {
	result = &UpdateResult{State: NoChangeNeeded, UserId: upd.UserId}
	if upd.TeamChanged {
		if result, err = u.UpdateTeams(ctx, upd); err != nil {
			return
		}
		if result.State == Recreated {
			return
		}
	}
	if upd.RoleChanged {
		u.logger.Debug().Str("user_id", result.UserId).Str("role", upd.NewRole).Msg("updating role")
		_, err = u.directory.UpdateUser(ctx, &UpdateUserRequest{
			UserId: result.UserId,
			Role:   upd.NewRole,
		})
	}
	return
}

// UpdateTeams moves a user to the desired teams without a window where the user
// belongs to no team: first to the union of current and desired teams, then to
// the desired teams only. When the directory did not apply the change the user is
// deleted and created again, once.
func (u *Updater) UpdateTeams(ctx context.Context, upd *UserUpdate) (result *UpdateResult, err error) {
	result = &UpdateResult{State: NoChangeNeeded, UserId: upd.UserId}
	var logger = u.logger.With().Str("email", upd.Email).Str("user_id", upd.UserId).Logger()

	var names = SplitTeams(upd.NewTeams)
	if len(names) == 0 {
		logger.Debug().Msg("no team names provided")
		return
	}
	var newTeamIds []string
	for _, name := range names {
		var teamId = u.teams.IdByName(name)
		if len(teamId) == 0 {
			err = fmt.Errorf("team '%s' not found", name)
			return
		}
		newTeamIds = append(newTeamIds, teamId)
	}
	newTeamIds = MakeOrderedUnion(nil, newTeamIds)

	var current = MakeSet[string](upd.CurrentTeamIds)
	if current.EqualTo(MakeSet[string](newTeamIds)) {
		logger.Debug().Msg("team ids already up to date")
		return
	}

	var combined = MakeOrderedUnion(upd.CurrentTeamIds, newTeamIds)
	logger.Debug().Strs("current", upd.CurrentTeamIds).Strs("new", newTeamIds).Strs("combined", combined).
		Msg("expanding team membership")
	if _, err = u.directory.UpdateUser(ctx, &UpdateUserRequest{
		UserId: upd.UserId,
		TeamId: combined[0],
		Teams:  combined,
	}); err != nil {
		return
	}
	result.State = Expanded

	logger.Debug().Strs("teams", newTeamIds).Msg("contracting team membership")
	if _, err = u.directory.UpdateUser(ctx, &UpdateUserRequest{
		UserId: upd.UserId,
		TeamId: newTeamIds[0],
		Teams:  newTeamIds,
	}); err != nil {
		return
	}
	result.State = Contracted

	var verified bool
	if verified, err = u.verifyTeams(ctx, upd.UserId, upd.NewTeams); err != nil {
		err = fmt.Errorf("verify team update: %w", err)
		return
	}
	if verified {
		result.State = Verified
		return
	}

	result.State = VerificationFailed
	logger.Warn().Str("teams", upd.NewTeams).Msg("team update was not applied, recreating user")
	if len(newTeamIds) > 1 {
		logger.Warn().Str("team", names[0]).Msg("recreated user keeps only its first team")
	}

	var created *CreatedUser
	if created, err = u.recreate(ctx, upd, newTeamIds[0]); err != nil {
		result.State = RecreationFailed
		err = fmt.Errorf("recreate user: %w", err)
		return
	}
	result.State = Recreated
	result.UserId = created.UserId
	result.ApiKey = created.Key
	logger.Info().Str("new_user_id", created.UserId).Msg("user recreated")
	return
}

func (u *Updater) verifyTeams(ctx context.Context, userId string, expected string) (ok bool, err error) {
	var user *ObservedUser
	if user, err = FindUser(ctx, u.directory, func(ou *ObservedUser) bool {
		return ou.Id == userId
	}); err != nil {
		return
	}
	if user == nil {
		u.logger.Debug().Str("user_id", userId).Msg("user missing from listing after team update")
		return
	}
	ok = u.teams.TeamsMatch(expected, user.Teams)
	u.logger.Debug().Str("expected", NormalizeTeams(expected)).
		Str("current", strings.Join(u.teams.NamesByIds(user.Teams), " ")).
		Bool("match", ok).Msg("team verification")
	return
}

func (u *Updater) recreate(ctx context.Context, upd *UserUpdate, teamId string) (created *CreatedUser, err error) {
	if err = u.directory.DeleteUser(ctx, upd.UserId); err != nil {
		return
	}
	created, err = u.directory.CreateUser(ctx, &NewUserRequest{
		Email:  upd.Email,
		Role:   upd.NewRole,
		TeamId: teamId,
	})
	return
}

// MakeOrderedUnion returns the elements of first followed by the elements of
// second that are not in first, without duplicates.
func MakeOrderedUnion(first []string, second []string) (result []string) {
	var seen = NewSet[string]()
	for _, list := range [][]string{first, second} {
		for _, e := range list {
			if seen.Has(e) {
				continue
			}
			seen.Add(e)
			result = append(result, e)
		}
	}
	return
}
