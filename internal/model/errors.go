package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrUnknownSession = errors.New("unknown session")
	ErrDraftNotFound  = errors.New("draft not found")

	// Engine errors
	ErrIllegalState     = errors.New("illegal state")
	ErrCapacityExceeded = errors.New("team is full")
	ErrAlreadyAssigned  = errors.New("user is already on a team")
	ErrNotAssigned      = errors.New("user is not on a team")
	ErrUnknownUser      = errors.New("user is not part of the session")
	ErrInvalidTeam      = errors.New("invalid team")

	// Validation errors
	ErrValidationRejected = errors.New("action rejected")
	ErrTeamsNotReady      = errors.New("teams are not ready")
	ErrMissingBreed       = errors.New("action has no class")
	ErrNotTeamMember      = errors.New("user is not on the acting team")
	ErrOutOfTurn          = errors.New("action does not match the current turn")
	ErrClassLocked        = errors.New("class is locked for this team")

	// Permission errors
	ErrNotLeader      = errors.New("only the session leader can manage teams")
	ErrServerProvided = errors.New("rosters of server-provided drafts are fixed")
	ErrNotOrganizer   = errors.New("only organizers can provide drafts")

	// Transport errors
	ErrNotJoined = errors.New("connection has not joined the session")

	// Catalog errors
	ErrUnknownTemplate = errors.New("unknown draft template")
)
