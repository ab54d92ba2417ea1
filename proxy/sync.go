package proxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrSnapshot marks a failure to read the initial state of the directory.
var ErrSnapshot = errors.New("directory snapshot failed")

type SyncOptions struct {
	NoDelete bool
	NoUpdate bool
	// OnResult is called after each user has been processed.
	OnResult func(*SyncResult)
}

// Snapshot is the observed state of the directory at the start of a run.
type Snapshot struct {
	Users []*ObservedUser
	Teams *TeamDirectory
}

// FetchSnapshot reads all users and all teams. Any error is wrapped in ErrSnapshot.
func FetchSnapshot(ctx context.Context, directory IDirectory) (snapshot *Snapshot, err error) {
	snapshot = new(Snapshot)
	if snapshot.Users, err = directory.ListUsers(ctx); err != nil {
		err = fmt.Errorf("%w: %w", ErrSnapshot, err)
		return
	}
	if snapshot.Teams, err = LoadTeamDirectory(ctx, directory); err != nil {
		err = fmt.Errorf("%w: %w", ErrSnapshot, err)
		return
	}
	return
}

type proxySync struct {
	source    IUserSource
	directory IDirectory
	options   SyncOptions
	logger    zerolog.Logger
	snapshot  *Snapshot
	plan      *SyncPlan
}

func NewProxySync(source IUserSource, directory IDirectory, options SyncOptions, logger zerolog.Logger) IProxySync {
	return &proxySync{
		source:    source,
		directory: directory,
		options:   options,
		logger:    logger,
	}
}

func (s *proxySync) Source() IUserSource {
	return s.source
}

// Plan reads the directory and the desired state and computes the sync plan.
func (s *proxySync) Plan(ctx context.Context) (plan *SyncPlan, err error) {
	if s.plan != nil {
		plan = s.plan
		return
	}
	if s.snapshot, err = FetchSnapshot(ctx, s.directory); err != nil {
		return
	}
	s.logger.Info().Int("users", len(s.snapshot.Users)).Int("teams", len(s.snapshot.Teams.Teams())).
		Msg("directory loaded")

	if err = s.source.Populate(ctx); err != nil {
		err = fmt.Errorf("load desired users: %w", err)
		return
	}
	var desired []*DesiredUser
	s.source.Users(func(du *DesiredUser) {
		desired = append(desired, du)
	})
	s.logger.Info().Int("users", len(desired)).Msg("desired users loaded")

	s.plan = ComparePlan(desired, s.snapshot.Users, s.snapshot.Teams)
	s.logger.Debug().Int("add", len(s.plan.ToAdd)).Int("delete", len(s.plan.ToDelete)).
		Int("update", len(s.plan.ToUpdate)).Int("unchanged", len(s.plan.Unchanged)).Msg("sync plan")
	plan = s.plan
	return
}

// Sync applies the plan: additions, then deletions, then updates, one user at a time.
// Per user failures are recorded in the returned statistics and do not stop the run.
func (s *proxySync) Sync(ctx context.Context) (syncStat *SyncStat, err error) {
	var plan *SyncPlan
	if plan, err = s.Plan(ctx); err != nil {
		return
	}
	syncStat = &SyncStat{Plan: plan}
	var record = func(r *SyncResult) {
		syncStat.Results = append(syncStat.Results, r)
		if s.options.OnResult != nil {
			s.options.OnResult(r)
		}
	}

	var provisioner = NewProvisioner(s.directory, s.snapshot.Teams, s.logger)
	for _, du := range plan.ToAdd {
		record(s.addUser(ctx, provisioner, du))
	}

	if !s.options.NoDelete {
		for _, pe := range plan.ToDelete {
			record(s.deleteUser(ctx, pe))
		}
	}

	if !s.options.NoUpdate {
		var updater = NewUpdater(s.directory, s.snapshot.Teams, s.logger)
		for _, upd := range plan.ToUpdate {
			record(s.updateUser(ctx, updater, upd))
		}
	}

	for _, pe := range plan.Unchanged {
		syncStat.Results = append(syncStat.Results, &SyncResult{
			Action:   ActionUnchanged,
			Email:    pe.Email,
			UserId:   pe.UserId,
			Role:     pe.Role,
			TeamName: pe.TeamName,
			Success:  true,
		})
	}
	return
}

func (s *proxySync) addUser(ctx context.Context, provisioner *Provisioner, du *DesiredUser) (result *SyncResult) {
	result = &SyncResult{
		Action:   ActionAdded,
		Email:    du.Email,
		Role:     du.Role,
		TeamName: du.TeamName,
	}
	var created, err = provisioner.CreateUser(ctx, du)
	if err != nil {
		result.Error = err.Error()
		s.logger.Error().Err(err).Str("email", du.Email).Msg("failed to add user")
		return
	}
	result.UserId = created.UserId
	result.ApiKey = created.Key
	result.Success = true
	return
}

func (s *proxySync) deleteUser(ctx context.Context, pe *PlanEntry) (result *SyncResult) {
	result = &SyncResult{
		Action:   ActionDeleted,
		Email:    pe.Email,
		UserId:   pe.UserId,
		Role:     pe.Role,
		TeamName: pe.TeamName,
	}
	if err := s.directory.DeleteUser(ctx, pe.UserId); err != nil {
		result.Error = err.Error()
		s.logger.Error().Err(err).Str("email", pe.Email).Msg("failed to delete user")
		return
	}
	result.Success = true
	return
}

func (s *proxySync) updateUser(ctx context.Context, updater *Updater, upd *UserUpdate) (result *SyncResult) {
	result = &SyncResult{
		Action:   ActionUpdated,
		Email:    upd.Email,
		UserId:   upd.UserId,
		Role:     upd.NewRole,
		TeamName: upd.NewTeams,
	}
	var ur, err = updater.UpdateUser(ctx, upd)
	if ur != nil && len(ur.UserId) > 0 {
		result.UserId = ur.UserId
		result.ApiKey = ur.ApiKey
	}
	if err != nil {
		result.Error = err.Error()
		s.logger.Error().Err(err).Str("email", upd.Email).Msg("failed to update user")
		return
	}
	result.Success = true
	return
}
