package validator

import (
	"fmt"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/engine"
)

// Validate decides whether claimed may submit action against the current state of s.
// Every rejection wraps both model.ErrValidationRejected and a reason sentinel.
func Validate(s *model.DraftSession, action model.DraftAction, claimed model.UserID) error {
	step, ok := engine.CurrentAction(s)
	if !ok {
		return reject(model.ErrIllegalState, "draft is complete")
	}
	if !s.BothReady() {
		return reject(model.ErrTeamsNotReady, "both teams must be ready")
	}
	if !action.HasBreed() {
		return reject(model.ErrMissingBreed, "a class must be chosen")
	}
	if !action.Team.Valid() {
		return reject(model.ErrInvalidTeam, fmt.Sprintf("team %q", action.Team))
	}
	if !isMember(s, action.Team, claimed) {
		return reject(model.ErrNotTeamMember, fmt.Sprintf("user %s is not on team %s", claimed, action.Team))
	}
	if action.Type != step.Type || action.Team != step.Team {
		return reject(model.ErrOutOfTurn, fmt.Sprintf("expected %s by team %s", step.Type, step.Team))
	}
	if action.Type == model.ActionPick && engine.IsLocked(s, action.Team, action.Breed) {
		return reject(model.ErrClassLocked, fmt.Sprintf("class %d for team %s", action.Breed, action.Team))
	}
	return nil
}

func isMember(s *model.DraftSession, team model.Team, id model.UserID) bool {
	if id == "" {
		return false
	}
	for _, m := range s.Roster(team) {
		if m == id {
			return true
		}
	}
	return false
}

func reject(reason error, detail string) error {
	return fmt.Errorf("%w: %w: %s", model.ErrValidationRejected, reason, detail)
}
