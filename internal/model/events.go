package model

import "time"

// EventType names a broadcast event delivered to session subscribers
type EventType string

const (
	EventUserJoined          EventType = "user-joined"
	EventUserPresenceChanged EventType = "user-presence-changed"
	EventUserAssigned        EventType = "user-assigned"
	EventUserUnassigned      EventType = "user-unassigned"
	EventUserDisconnected    EventType = "user-disconnected"
	EventTeamReadyChanged    EventType = "team-ready-changed"
	EventActionApplied       EventType = "action-applied"
	EventDraftCompleted      EventType = "draft-completed"
	EventCreatorDisconnected EventType = "creator-disconnected"

	// EventSnapshot is sent to a single connection when it joins or starts watching
	EventSnapshot EventType = "snapshot"
)

// Phase is the coarse state of a draft
type Phase string

const (
	PhasePendingAssignment Phase = "PENDING_ASSIGNMENT"
	PhaseReadyNotStarted   Phase = "READY_NOT_STARTED"
	PhaseInProgress        Phase = "IN_PROGRESS"
	PhaseTerminal          Phase = "TERMINAL"
)

// Snapshot is an immutable view of a session, safe to hand out after the session lock is released
type Snapshot struct {
	ID               SessionID     `json:"id"`
	Template         string        `json:"template"`
	LeaderID         UserID        `json:"leader_id"`
	ProvidedByServer bool          `json:"provided_by_server"`
	Phase            Phase         `json:"phase"`
	Cursor           int           `json:"cursor"`
	Total            int           `json:"total"`
	Current          *DraftAction  `json:"current,omitempty"`
	History          []DraftAction `json:"history"`
	Users            []DraftUser   `json:"users"`
	TeamA            []DraftUser   `json:"team_a"`
	TeamB            []DraftUser   `json:"team_b"`
	TeamAReady       bool          `json:"team_a_ready"`
	TeamBReady       bool          `json:"team_b_ready"`
	RostersLocked    bool          `json:"rosters_locked"`
	LockedForTeamA   []ClassID     `json:"locked_for_team_a"`
	LockedForTeamB   []ClassID     `json:"locked_for_team_b"`
	PickedByTeamA    []ClassID     `json:"picked_by_team_a"`
	PickedByTeamB    []ClassID     `json:"picked_by_team_b"`
	CreatedAt        time.Time     `json:"created_at"`
}

// UserJoinedPayload is sent when a new user joins a session
type UserJoinedPayload struct {
	User DraftUser `json:"user"`
}

// PresencePayload is sent when a known user connects or disconnects
type PresencePayload struct {
	UserID  UserID `json:"user_id"`
	Team    Team   `json:"team,omitempty"`
	Present bool   `json:"present"`
}

// AssignmentPayload is sent when the leader changes a roster
type AssignmentPayload struct {
	UserID UserID      `json:"user_id"`
	Team   Team        `json:"team"`
	TeamA  []DraftUser `json:"team_a"`
	TeamB  []DraftUser `json:"team_b"`
}

// TeamReadyPayload is sent when a team toggles readiness
type TeamReadyPayload struct {
	Team  Team  `json:"team"`
	Ready bool  `json:"ready"`
	Phase Phase `json:"phase"`
}

// ActionAppliedPayload carries the recorded action with server-assigned lock flags
type ActionAppliedPayload struct {
	Action  DraftAction  `json:"action"`
	Cursor  int          `json:"cursor"`
	Next    *DraftAction `json:"next,omitempty"`
	ActorID UserID       `json:"actor_id"`
}

// DraftCompletedPayload is sent once the catalog is exhausted
type DraftCompletedPayload struct {
	Snapshot Snapshot `json:"snapshot"`
}

// CreatorDisconnectedPayload tells clients to tear the session down
type CreatorDisconnectedPayload struct {
	SessionID SessionID `json:"session_id"`
}
