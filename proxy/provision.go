package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	ReasonUserExists   = "User already exists in the system"
	ReasonUserNotFound = "User not found in the system"
)

var ErrUserNotFound = errors.New("user not found")

// Provisioner creates and deletes single users.
type Provisioner struct {
	directory IDirectory
	teams     *TeamDirectory
	logger    zerolog.Logger
}

func NewProvisioner(directory IDirectory, teams *TeamDirectory, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		directory: directory,
		teams:     teams,
		logger:    logger,
	}
}

// CreateUser creates a user in the first of its desired teams and renames the
// minted virtual key when a key name was requested. An unknown team or a failed
// rename is logged and does not fail the creation.
func (p *Provisioner) CreateUser(ctx context.Context, du *DesiredUser) (created *CreatedUser, err error) {
	var logger = p.logger.With().Str("email", du.Email).Logger()
	var rq = &NewUserRequest{
		Email: du.Email,
		Role:  du.Role,
	}
	if names := SplitTeams(du.TeamName); len(names) > 0 {
		if teamId := p.teams.IdByName(names[0]); len(teamId) > 0 {
			rq.TeamId = teamId
			logger.Debug().Str("team", names[0]).Str("team_id", teamId).Msg("team resolved")
		} else {
			logger.Warn().Str("team", names[0]).Msg("team not found, creating user without team")
		}
	}

	if created, err = p.directory.CreateUser(ctx, rq); err != nil {
		return
	}

	if len(du.KeyName) > 0 && len(created.Key) > 0 {
		if er1 := p.directory.UpdateKeyAlias(ctx, created.Key, du.KeyName); er1 != nil {
			logger.Warn().Err(er1).Str("key_name", du.KeyName).Msg("failed to update API key alias")
		} else {
			logger.Debug().Str("key_name", du.KeyName).Msg("API key alias updated")
		}
	}
	return
}

// DeleteByEmail looks up the id of email in the full user listing and deletes the user.
// ErrUserNotFound is returned when no user has that email.
func (p *Provisioner) DeleteByEmail(ctx context.Context, email string) (userId string, err error) {
	var user *ObservedUser
	if user, err = FindUser(ctx, p.directory, func(ou *ObservedUser) bool {
		return ou.Email == email
	}); err != nil {
		return
	}
	if user == nil || len(user.Id) == 0 {
		err = ErrUserNotFound
		return
	}
	userId = user.Id
	p.logger.Debug().Str("email", email).Str("user_id", userId).Msg("deleting user")
	err = p.directory.DeleteUser(ctx, userId)
	return
}

// DeleteUsers deletes every email, one at a time. Failures are classified and
// collected; they never stop the batch.
func (p *Provisioner) DeleteUsers(ctx context.Context, emails []string, onResult func(*DeletionRecord, *UnitError)) (deleted []*DeletionRecord, failed []*UnitError) {
	for _, email := range emails {
		var userId, err = p.DeleteByEmail(ctx, email)
		if err != nil {
			var reason string
			if errors.Is(err, ErrUserNotFound) {
				reason = ReasonUserNotFound
			} else {
				reason = ClassifyDeleteError(err)
			}
			var ue = &UnitError{Email: email, UserId: userId, Reason: reason}
			failed = append(failed, ue)
			p.logger.Debug().Err(err).Str("email", email).Msg("delete failed")
			if onResult != nil {
				onResult(nil, ue)
			}
			continue
		}
		var dr = &DeletionRecord{Email: email, UserId: userId}
		deleted = append(deleted, dr)
		if onResult != nil {
			onResult(dr, nil)
		}
	}
	return
}

// CreateUsers creates every desired user that does not exist yet. Existing
// emails and failed creations are reported as UnitError.
func (p *Provisioner) CreateUsers(ctx context.Context, users []*DesiredUser, onResult func(*CreationRecord, *UnitError)) (created []*CreationRecord, failed []*UnitError, err error) {
	var observed []*ObservedUser
	if observed, err = p.directory.ListUsers(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrSnapshot, err)
		return
	}
	var existing = NewSet[string]()
	for _, ou := range observed {
		if len(ou.Email) > 0 {
			existing.Add(ou.Email)
		}
	}

	var report = func(cr *CreationRecord, ue *UnitError) {
		if cr != nil {
			created = append(created, cr)
		}
		if ue != nil {
			failed = append(failed, ue)
		}
		if onResult != nil {
			onResult(cr, ue)
		}
	}

	for _, du := range users {
		if existing.Has(du.Email) {
			report(nil, &UnitError{Email: du.Email, Role: du.Role, Reason: ReasonUserExists})
			continue
		}
		var cu *CreatedUser
		var er1 error
		if cu, er1 = p.CreateUser(ctx, du); er1 != nil {
			p.logger.Debug().Err(er1).Str("email", du.Email).Msg("create failed")
			report(nil, &UnitError{Email: du.Email, Role: du.Role, Reason: ClassifyCreateError(er1, du.Email, du.Role)})
			continue
		}
		existing.Add(du.Email)
		report(p.creationRecord(ctx, cu), nil)
	}
	return
}

func (p *Provisioner) creationRecord(ctx context.Context, cu *CreatedUser) (cr *CreationRecord) {
	cr = &CreationRecord{
		Email:  cu.Email,
		Role:   cu.Role,
		UserId: cu.UserId,
		Models: cu.Models,
		ApiKey: cu.Key,
	}
	if len(cu.UserId) > 0 {
		if info, err := p.directory.UserInfo(ctx, cu.UserId); err != nil {
			p.logger.Debug().Err(err).Str("user_id", cu.UserId).Msg("user info unavailable")
		} else if models, ok := infoModels(info); ok {
			cr.Models = models
		}
		cr.InvitationUrl = p.directory.GenerateInvitationUrl(ctx, cu.UserId)
	}
	if len(cu.TeamId) > 0 {
		if cr.TeamName = p.teams.NameById(cu.TeamId); len(cr.TeamName) == 0 {
			cr.TeamName = fmt.Sprintf("Team ID: %s", cu.TeamId)
		}
	}
	return
}

func infoModels(info map[string]any) (models []string, ok bool) {
	for _, jo := range []any{info, info["user_info"]} {
		if m, isMap := jo.(map[string]any); isMap {
			if v, found := m["models"]; found {
				return toStringSlice(v), true
			}
		}
	}
	return
}

// ExistingUserRecords builds creation report rows for users that already exist.
// Virtual keys cannot be read back, so the key column only tells whether one exists.
func (p *Provisioner) ExistingUserRecords(ctx context.Context) (records []*CreationRecord, err error) {
	var observed []*ObservedUser
	if observed, err = p.directory.ListUsers(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrSnapshot, err)
		return
	}
	for _, ou := range observed {
		if len(ou.Email) == 0 {
			continue
		}
		var cr = &CreationRecord{
			Email:    ou.Email,
			Role:     ou.Role,
			UserId:   ou.Id,
			TeamName: strings.Join(p.teams.NamesByIds(ou.Teams), " "),
			Models:   ou.Models,
			ApiKey:   keyNotFound,
		}
		if ou.KeyCount > 0 {
			cr.ApiKey = keyNotRetrievable
		}
		if len(ou.Id) > 0 {
			cr.InvitationUrl = p.directory.GenerateInvitationUrl(ctx, ou.Id)
		}
		records = append(records, cr)
	}
	return
}
