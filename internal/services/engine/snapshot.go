package engine

import (
	"slices"

	"github.com/mcoot/draftroom/internal/model"
)

// Snapshot builds an immutable view of the session
func Snapshot(s *model.DraftSession) model.Snapshot {
	if s.Derived.Locked == nil {
		Restore(s)
	}

	snap := model.Snapshot{
		ID:               s.ID,
		Template:         s.Configuration.Template,
		LeaderID:         s.Configuration.LeaderID,
		ProvidedByServer: s.Configuration.ProvidedByServer,
		Phase:            Phase(s),
		Cursor:           s.Cursor,
		Total:            len(s.Configuration.Actions),
		History:          slices.Clone(s.History),
		Users:            slices.Clone(s.Users),
		TeamA:            resolveRoster(s, s.TeamA),
		TeamB:            resolveRoster(s, s.TeamB),
		TeamAReady:       s.TeamAReady,
		TeamBReady:       s.TeamBReady,
		RostersLocked:    RostersFrozen(s),
		LockedForTeamA:   lockSet(s.Derived.Locked[model.TeamA]),
		LockedForTeamB:   lockSet(s.Derived.Locked[model.TeamB]),
		PickedByTeamA:    slices.Clone(s.Derived.Picked[model.TeamA]),
		PickedByTeamB:    slices.Clone(s.Derived.Picked[model.TeamB]),
		CreatedAt:        s.CreatedAt,
	}
	if snap.History == nil {
		snap.History = []model.DraftAction{}
	}
	if current, ok := CurrentAction(s); ok {
		snap.Current = &current
	}
	return snap
}

// Roster resolves the members of a team into users
func Roster(s *model.DraftSession, team model.Team) []model.DraftUser {
	return resolveRoster(s, s.Roster(team))
}

func resolveRoster(s *model.DraftSession, ids []model.UserID) []model.DraftUser {
	out := make([]model.DraftUser, 0, len(ids))
	for _, id := range ids {
		if u := s.GetUser(id); u != nil {
			out = append(out, *u)
		} else {
			out = append(out, model.DraftUser{ID: id})
		}
	}
	return out
}

// lockSet returns the classes of a set in ascending order
func lockSet(set map[model.ClassID]bool) []model.ClassID {
	out := make([]model.ClassID, 0, len(set))
	for class, locked := range set {
		if locked {
			out = append(out, class)
		}
	}
	slices.Sort(out)
	return out
}
