package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/mcoot/draftroom/internal/model"
)

// JoinResult describes what OnUserJoin changed
type JoinResult int

const (
	// JoinNew means the user was added to the session, or came back while not on a team
	JoinNew JoinResult = iota
	// JoinReturned means an absent user assigned to a team is present again
	JoinReturned
	// JoinRefreshed means the user was already present (e.g. a second connection)
	JoinRefreshed
)

// NewSession builds a session seeded with its creator, who becomes the leader
func NewSession(id model.SessionID, cfg model.DraftConfiguration, creator model.DraftUser, now time.Time) *model.DraftSession {
	cfg.LeaderID = creator.ID
	creator.Present = false
	s := &model.DraftSession{
		ID:            id,
		Configuration: cfg,
		History:       []model.DraftAction{},
		Cursor:        0,
		Users:         []model.DraftUser{creator},
		TeamA:         []model.UserID{},
		TeamB:         []model.UserID{},
		CreatedAt:     now,
	}
	Restore(s)
	return s
}

// CurrentAction returns the catalog entry at the cursor, or false once the draft is terminal
func CurrentAction(s *model.DraftSession) (model.DraftAction, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Configuration.Actions) {
		return model.DraftAction{}, false
	}
	return s.Configuration.Actions[s.Cursor], true
}

// Phase derives the state machine position of a session
func Phase(s *model.DraftSession) model.Phase {
	switch {
	case s.IsTerminal():
		return model.PhaseTerminal
	case s.Cursor > 0:
		return model.PhaseInProgress
	case s.BothReady():
		return model.PhaseReadyNotStarted
	default:
		return model.PhasePendingAssignment
	}
}

// RostersFrozen reports whether team membership can no longer change
func RostersFrozen(s *model.DraftSession) bool {
	return s.Cursor > 0 || s.RostersLocked || s.BothReady()
}

// Apply records action at the cursor. Type and lock flags always come from the catalog;
// only the team and class are taken from the caller.
func Apply(s *model.DraftSession, action model.DraftAction) (model.DraftAction, error) {
	step, ok := CurrentAction(s)
	if !ok {
		return model.DraftAction{}, fmt.Errorf("%w: draft %s is complete", model.ErrIllegalState, s.ID)
	}
	if s.Derived.Locked == nil {
		Restore(s)
	}

	team := action.Team
	if !team.Valid() {
		team = step.Team
	}
	recorded := model.DraftAction{
		Type:                step.Type,
		Team:                team,
		Breed:               action.Breed,
		LockForPickingTeam:  step.LockForPickingTeam,
		LockForOpponentTeam: step.LockForOpponentTeam,
	}

	s.History = append(s.History, recorded)
	s.Cursor = len(s.History)
	applyDerived(&s.Derived, recorded)

	return recorded, nil
}

// applyDerived folds one recorded action into the lock and pick sets
func applyDerived(d *model.DerivedState, a model.DraftAction) {
	if !a.HasBreed() {
		return
	}
	if a.LockForPickingTeam {
		d.Locked[a.Team][a.Breed] = true
	}
	if a.LockForOpponentTeam {
		d.Locked[a.Team.Opponent()][a.Breed] = true
	}
	if a.Type == model.ActionPick {
		d.Picked[a.Team] = append(d.Picked[a.Team], a.Breed)
	}
}

// Restore rebuilds derived state by replaying history from empty sets
func Restore(s *model.DraftSession) {
	d := model.NewDerivedState()
	for _, a := range s.History {
		applyDerived(&d, a)
	}
	s.Derived = d
	s.Cursor = len(s.History)
}

// IsLocked reports whether class is unpickable for team
func IsLocked(s *model.DraftSession, team model.Team, class model.ClassID) bool {
	if s.Derived.Locked == nil {
		Restore(s)
	}
	return s.Derived.Locked[team][class]
}

// AssignUser adds a known user to a team roster
func AssignUser(s *model.DraftSession, userID model.UserID, team model.Team) error {
	if !team.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidTeam, team)
	}
	if RostersFrozen(s) {
		return fmt.Errorf("%w: rosters are frozen", model.ErrIllegalState)
	}
	if s.GetUser(userID) == nil {
		return model.ErrUnknownUser
	}
	if _, assigned := s.TeamOf(userID); assigned {
		return model.ErrAlreadyAssigned
	}
	if len(s.Roster(team)) >= model.MaxTeamSize {
		return model.ErrCapacityExceeded
	}

	if team == model.TeamA {
		s.TeamA = append(s.TeamA, userID)
	} else {
		s.TeamB = append(s.TeamB, userID)
	}
	return nil
}

// UnassignUser removes a user from whichever roster holds them
func UnassignUser(s *model.DraftSession, userID model.UserID) (model.Team, error) {
	if RostersFrozen(s) {
		return "", fmt.Errorf("%w: rosters are frozen", model.ErrIllegalState)
	}
	team, ok := s.TeamOf(userID)
	if !ok {
		return "", model.ErrNotAssigned
	}
	if team == model.TeamA {
		s.TeamA = slices.DeleteFunc(s.TeamA, func(id model.UserID) bool { return id == userID })
	} else {
		s.TeamB = slices.DeleteFunc(s.TeamB, func(id model.UserID) bool { return id == userID })
	}
	return team, nil
}

// OnUserJoin upserts a user and marks them present
func OnUserJoin(s *model.DraftSession, user model.DraftUser) JoinResult {
	existing := s.GetUser(user.ID)
	if existing == nil {
		user.Present = true
		s.Users = append(s.Users, user)
		return JoinNew
	}

	wasPresent := existing.Present
	if user.DisplayName != "" {
		existing.DisplayName = user.DisplayName
	}
	if user.Discriminator != "" {
		existing.Discriminator = user.Discriminator
	}
	existing.Present = true
	if wasPresent {
		return JoinRefreshed
	}
	if _, assigned := s.TeamOf(user.ID); !assigned {
		return JoinNew
	}
	return JoinReturned
}

// MarkAbsent clears the presence flag; it returns false if nothing changed
func MarkAbsent(s *model.DraftSession, userID model.UserID) bool {
	u := s.GetUser(userID)
	if u == nil || !u.Present {
		return false
	}
	u.Present = false
	return true
}

// SetTeamReady sets a readiness flag without touching history
func SetTeamReady(s *model.DraftSession, team model.Team, ready bool) error {
	switch team {
	case model.TeamA:
		s.TeamAReady = ready
	case model.TeamB:
		s.TeamBReady = ready
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidTeam, team)
	}
	// Once both teams have been ready together the rosters stay put
	if s.BothReady() {
		s.RostersLocked = true
	}
	return nil
}
