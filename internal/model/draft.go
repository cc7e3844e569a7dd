package model

import "time"

// SessionID identifies a live or persisted draft session
type SessionID string

// ClassID identifies a playable class (breed)
type ClassID int

// Team is one of the two sides of a draft
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Valid reports whether t is one of the two draft sides
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Opponent returns the other side
func (t Team) Opponent() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

// ActionType distinguishes bans from picks
type ActionType string

const (
	ActionBan  ActionType = "BAN"
	ActionPick ActionType = "PICK"
)

// MaxTeamSize is the roster limit for each side
const MaxTeamSize = 6

// DraftAction is one turn of a draft, either a catalog template entry or a recorded action
type DraftAction struct {
	Type                ActionType `json:"type"`
	Team                Team       `json:"team"`
	Breed               ClassID    `json:"breed,omitempty"`
	LockForPickingTeam  bool       `json:"lock_for_picking_team"`
	LockForOpponentTeam bool       `json:"lock_for_opponent_team"`
}

// HasBreed reports whether the action carries a class identifier
func (a DraftAction) HasBreed() bool {
	return a.Breed > 0
}

// DraftConfiguration fixes the turn sequence of a session
type DraftConfiguration struct {
	Template         string        `json:"template"`
	LeaderID         UserID        `json:"leader_id"`
	ProvidedByServer bool          `json:"provided_by_server"`
	Actions          []DraftAction `json:"actions"`
}

// DraftSession is the aggregate root for one draft.
// Derived lock state is not serialized; it is rebuilt from History on load.
type DraftSession struct {
	ID            SessionID          `json:"id"`
	Configuration DraftConfiguration `json:"configuration"`
	History       []DraftAction      `json:"history"`
	Cursor        int                `json:"cursor"`
	Users         []DraftUser        `json:"users"`
	TeamA         []UserID           `json:"team_a"`
	TeamB         []UserID           `json:"team_b"`
	TeamAReady    bool               `json:"team_a_ready"`
	TeamBReady    bool               `json:"team_b_ready"`
	RostersLocked bool               `json:"rosters_locked"`
	CreatedAt     time.Time          `json:"created_at"`

	Derived DerivedState `json:"-"`
}

// DerivedState holds the per-team lock sets and picked classes rebuilt from history
type DerivedState struct {
	Locked map[Team]map[ClassID]bool
	Picked map[Team][]ClassID
}

// NewDerivedState returns empty lock and pick sets for both teams
func NewDerivedState() DerivedState {
	return DerivedState{
		Locked: map[Team]map[ClassID]bool{
			TeamA: {},
			TeamB: {},
		},
		Picked: map[Team][]ClassID{
			TeamA: {},
			TeamB: {},
		},
	}
}

// GetUser returns the user with the given id, or nil if not found
func (s *DraftSession) GetUser(id UserID) *DraftUser {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// Roster returns the member ids of the given team
func (s *DraftSession) Roster(team Team) []UserID {
	if team == TeamA {
		return s.TeamA
	}
	return s.TeamB
}

// TeamOf returns the team the user is assigned to
func (s *DraftSession) TeamOf(id UserID) (Team, bool) {
	for _, m := range s.TeamA {
		if m == id {
			return TeamA, true
		}
	}
	for _, m := range s.TeamB {
		if m == id {
			return TeamB, true
		}
	}
	return "", false
}

// IsReady returns the readiness flag for a team
func (s *DraftSession) IsReady(team Team) bool {
	if team == TeamA {
		return s.TeamAReady
	}
	return s.TeamBReady
}

// BothReady reports whether both teams have declared readiness
func (s *DraftSession) BothReady() bool {
	return s.TeamAReady && s.TeamBReady
}

// IsTerminal reports whether the catalog has been exhausted
func (s *DraftSession) IsTerminal() bool {
	return s.Cursor >= len(s.Configuration.Actions)
}

// IsLeader reports whether id created the session
func (s *DraftSession) IsLeader(id UserID) bool {
	return id != "" && s.Configuration.LeaderID == id
}

// Clone returns a deep copy of the persisted fields. Derived state is not copied.
func (s *DraftSession) Clone() *DraftSession {
	c := *s
	c.Configuration.Actions = append([]DraftAction(nil), s.Configuration.Actions...)
	c.History = append([]DraftAction(nil), s.History...)
	c.Users = append([]DraftUser(nil), s.Users...)
	c.TeamA = append([]UserID(nil), s.TeamA...)
	c.TeamB = append([]UserID(nil), s.TeamB...)
	c.Derived = DerivedState{}
	return &c
}
