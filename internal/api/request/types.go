package request

import "github.com/mcoot/draftroom/internal/model"

// DraftUser names a participant in a provided draft's roster
type DraftUser struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Discriminator string `json:"discriminator,omitempty"`
}

// ToModel converts to a model.DraftUser
func (u DraftUser) ToModel() model.DraftUser {
	return model.DraftUser{
		ID:            model.UserID(u.ID),
		DisplayName:   u.DisplayName,
		Discriminator: u.Discriminator,
	}
}

// CreateDraftRequest is the request body for creating a draft.
// Supplying either roster makes it a server-provided draft.
type CreateDraftRequest struct {
	Template string      `json:"template,omitempty"`
	TeamA    []DraftUser `json:"team_a,omitempty"`
	TeamB    []DraftUser `json:"team_b,omitempty"`
}

// IsProvided reports whether rosters were supplied
func (r CreateDraftRequest) IsProvided() bool {
	return r.TeamA != nil || r.TeamB != nil
}

// SubmitActionRequest is the request body for submitting a turn.
// Cursor, when set, must equal the draft's cursor for the action to apply.
type SubmitActionRequest struct {
	Type   string `json:"type"`
	Team   string `json:"team"`
	Breed  int    `json:"breed"`
	Cursor *int   `json:"cursor,omitempty"`
}

// SetReadyRequest is the request body for toggling team readiness
type SetReadyRequest struct {
	Ready *bool `json:"ready"`
}
