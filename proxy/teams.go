package proxy

import "context"

// TeamDirectory resolves team names and ids against one full team listing.
type TeamDirectory struct {
	teams []*Team
}

func NewTeamDirectory(teams []*Team) *TeamDirectory {
	return &TeamDirectory{teams: teams}
}

// LoadTeamDirectory fetches the team listing of the directory.
func LoadTeamDirectory(ctx context.Context, directory IDirectory) (td *TeamDirectory, err error) {
	var teams []*Team
	if teams, err = directory.ListTeams(ctx); err != nil {
		return
	}
	td = NewTeamDirectory(teams)
	return
}

func (td *TeamDirectory) Teams() []*Team {
	return td.teams
}

// ById returns the team with the given id or nil.
func (td *TeamDirectory) ById(teamId string) *Team {
	for _, t := range td.teams {
		if t.Id == teamId {
			return t
		}
	}
	return nil
}

// IdByName returns the id of the team named name. Without such a team, the first
// team whose alias equals name is used.
func (td *TeamDirectory) IdByName(name string) string {
	for _, t := range td.teams {
		if t.Name == name {
			return t.Id
		}
	}
	for _, t := range td.teams {
		if t.Alias == name {
			return t.Id
		}
	}
	return ""
}

// NameById returns the display name of a team, or an empty string when the id is unknown.
func (td *TeamDirectory) NameById(teamId string) string {
	if t := td.ById(teamId); t != nil {
		return t.DisplayName()
	}
	return ""
}

// NamesByIds resolves ids to display names, skipping ids that cannot be resolved.
func (td *TeamDirectory) NamesByIds(teamIds []string) (names []string) {
	for _, teamId := range teamIds {
		if name := td.NameById(teamId); len(name) > 0 {
			names = append(names, name)
		}
	}
	return
}

// TeamsMatch reports whether the team ids of a user carry exactly the desired team names.
// Order, duplicates and whitespace do not matter. A desired name matches a team by name,
// names left over match by alias.
func (td *TeamDirectory) TeamsMatch(desired string, teamIds []string) bool {
	var names = SplitTeams(desired)
	var teams []*Team
	var seen = NewSet[string]()
	for _, teamId := range teamIds {
		if seen.Has(teamId) {
			continue
		}
		seen.Add(teamId)
		var t = td.ById(teamId)
		if t == nil || len(t.DisplayName()) == 0 {
			continue
		}
		teams = append(teams, t)
	}
	if len(names) != len(teams) {
		return false
	}
	var matched = NewSet[string]()
	var pending []string
	for _, name := range names {
		if t := unmatchedTeam(teams, matched, func(t *Team) bool { return t.Name == name }); t != nil {
			matched.Add(t.Id)
		} else {
			pending = append(pending, name)
		}
	}
	for _, name := range pending {
		var t = unmatchedTeam(teams, matched, func(t *Team) bool { return t.Alias == name })
		if t == nil {
			return false
		}
		matched.Add(t.Id)
	}
	return true
}

func unmatchedTeam(teams []*Team, matched Set[string], match func(*Team) bool) *Team {
	for _, t := range teams {
		if !matched.Has(t.Id) && match(t) {
			return t
		}
	}
	return nil
}
