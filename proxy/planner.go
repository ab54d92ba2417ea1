package proxy

import "strings"

// PlanEntry is a user that is deleted or left unchanged by a sync.
type PlanEntry struct {
	Email    string
	UserId   string
	Role     string
	TeamName string
}

// UserUpdate records the before and after state of a user that needs an update.
type UserUpdate struct {
	Email          string
	UserId         string
	CurrentRole    string
	NewRole        string
	CurrentTeams   string
	CurrentTeamIds []string
	NewTeams       string
	RoleChanged    bool
	TeamChanged    bool
}

type SyncPlan struct {
	ToAdd     []*DesiredUser
	ToDelete  []*PlanEntry
	ToUpdate  []*UserUpdate
	Unchanged []*PlanEntry
}

// ComparePlan joins desired and observed users on email and partitions them into
// users to add, delete, update and users that are already in the desired state.
// Observed users that are not valid are left out of the plan entirely.
func ComparePlan(desired []*DesiredUser, observed []*ObservedUser, teams *TeamDirectory) (plan *SyncPlan) {
	plan = new(SyncPlan)

	var desiredOrder []string
	var desiredUsers = make(map[string]*DesiredUser)
	for _, du := range desired {
		if len(du.Email) == 0 {
			continue
		}
		if _, ok := desiredUsers[du.Email]; !ok {
			desiredOrder = append(desiredOrder, du.Email)
		}
		desiredUsers[du.Email] = du
	}

	var observedOrder []string
	var observedUsers = make(map[string]*ObservedUser)
	for _, ou := range observed {
		if !ou.IsValid() {
			continue
		}
		if _, ok := observedUsers[ou.Email]; !ok {
			observedOrder = append(observedOrder, ou.Email)
		}
		observedUsers[ou.Email] = ou
	}

	for _, email := range desiredOrder {
		var du = desiredUsers[email]
		var ou, ok = observedUsers[email]
		if !ok {
			plan.ToAdd = append(plan.ToAdd, du)
			continue
		}

		var currentTeams = NormalizeTeams(strings.Join(teams.NamesByIds(ou.Teams), " "))
		var newTeams = NormalizeTeams(du.TeamName)
		var roleChanged = du.Role != ou.Role
		var teamChanged = len(newTeams) > 0 && !teams.TeamsMatch(newTeams, ou.Teams)

		if roleChanged || teamChanged {
			plan.ToUpdate = append(plan.ToUpdate, &UserUpdate{
				Email:          email,
				UserId:         ou.Id,
				CurrentRole:    ou.Role,
				NewRole:        du.Role,
				CurrentTeams:   currentTeams,
				CurrentTeamIds: ou.Teams,
				NewTeams:       newTeams,
				RoleChanged:    roleChanged,
				TeamChanged:    teamChanged,
			})
		} else {
			plan.Unchanged = append(plan.Unchanged, &PlanEntry{
				Email:    email,
				UserId:   ou.Id,
				Role:     ou.Role,
				TeamName: currentTeams,
			})
		}
	}

	for _, email := range observedOrder {
		if _, ok := desiredUsers[email]; ok {
			continue
		}
		var ou = observedUsers[email]
		plan.ToDelete = append(plan.ToDelete, &PlanEntry{
			Email:    email,
			UserId:   ou.Id,
			Role:     ou.Role,
			TeamName: strings.Join(teams.NamesByIds(ou.Teams), " "),
		})
	}
	return
}
