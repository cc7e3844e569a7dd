package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeUnknownTemplate = "UNKNOWN_TEMPLATE"
	CodeIllegalState    = "ILLEGAL_STATE"
	CodeTeamsNotReady   = "TEAMS_NOT_READY"
	CodeMissingBreed    = "MISSING_BREED"
	CodeNotTeamMember   = "NOT_TEAM_MEMBER"
	CodeOutOfTurn       = "OUT_OF_TURN"
	CodeClassLocked     = "CLASS_LOCKED"
	CodeActionRejected  = "ACTION_REJECTED"
	CodeInvalidTeam     = "INVALID_TEAM"
	CodeTeamFull        = "TEAM_FULL"
	CodeAlreadyAssigned = "ALREADY_ASSIGNED"
	CodeNotAssigned     = "NOT_ASSIGNED"
	CodeUnknownUser     = "UNKNOWN_USER"
	CodeNotLeader       = "NOT_LEADER"
	CodeNotOrganizer    = "NOT_ORGANIZER"
	CodeRostersFixed    = "ROSTERS_FIXED"
	CodeNotJoined       = "NOT_JOINED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiError := Classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiError})
}

// Classify maps an error to its HTTP status and wire error. It is shared by
// the REST handlers and the websocket acks.
func Classify(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Validation reasons first; every rejection also wraps ErrValidationRejected
	switch {
	case errors.Is(err, model.ErrTeamsNotReady):
		return &httpError{http.StatusConflict, APIError{CodeTeamsNotReady, "Both teams must be ready"}}
	case errors.Is(err, model.ErrMissingBreed):
		return &httpError{http.StatusBadRequest, APIError{CodeMissingBreed, "Action must name a class"}}
	case errors.Is(err, model.ErrNotTeamMember):
		return &httpError{http.StatusForbidden, APIError{CodeNotTeamMember, "Not a member of that team"}}
	case errors.Is(err, model.ErrOutOfTurn):
		return &httpError{http.StatusConflict, APIError{CodeOutOfTurn, "Action does not match the current turn"}}
	case errors.Is(err, model.ErrClassLocked):
		return &httpError{http.StatusConflict, APIError{CodeClassLocked, "Class is locked for this team"}}
	case errors.Is(err, model.ErrValidationRejected):
		return &httpError{http.StatusConflict, APIError{CodeActionRejected, "Action rejected"}}
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrUnknownSession), errors.Is(err, model.ErrDraftNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "Draft not found"}}
	case errors.Is(err, model.ErrUnknownTemplate):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownTemplate, "Unknown draft template"}}
	case errors.Is(err, model.ErrInvalidTeam):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTeam, "Team must be A or B"}}
	case errors.Is(err, model.ErrCapacityExceeded):
		return &httpError{http.StatusConflict, APIError{CodeTeamFull, "Team is full"}}
	case errors.Is(err, model.ErrAlreadyAssigned):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyAssigned, "User is already on a team"}}
	case errors.Is(err, model.ErrNotAssigned):
		return &httpError{http.StatusConflict, APIError{CodeNotAssigned, "User is not on a team"}}
	case errors.Is(err, model.ErrUnknownUser):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownUser, "User has not joined this draft"}}
	case errors.Is(err, model.ErrNotLeader):
		return &httpError{http.StatusForbidden, APIError{CodeNotLeader, "Only the draft leader can manage teams"}}
	case errors.Is(err, model.ErrNotOrganizer):
		return &httpError{http.StatusForbidden, APIError{CodeNotOrganizer, "Only organizers can provide drafts"}}
	case errors.Is(err, model.ErrServerProvided):
		return &httpError{http.StatusConflict, APIError{CodeRostersFixed, "Rosters of provided drafts are fixed"}}
	case errors.Is(err, model.ErrNotJoined):
		return &httpError{http.StatusConflict, APIError{CodeNotJoined, "Join the draft first"}}
	case errors.Is(err, model.ErrIllegalState):
		return &httpError{http.StatusConflict, APIError{CodeIllegalState, "Not allowed in the draft's current state"}}

	// Map auth errors
	case errors.Is(err, auth.ErrMissingToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
	case errors.Is(err, auth.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidToken, "Invalid or expired token"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInternalErrorf creates an internal server error with a custom message
func NewInternalErrorf(format string, args ...any) error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, fmt.Sprintf(format, args...)}}
}
