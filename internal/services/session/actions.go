package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/engine"
	"github.com/mcoot/draftroom/internal/services/validator"
)

// SubmitOption adjusts how a submission is checked
type SubmitOption func(*submitOptions)

type submitOptions struct {
	expectedCursor *int
}

// AtCursor rejects the submission as out of turn unless the draft is still at cursor.
// Clients pass the cursor they last observed so a stale retry cannot land on a later turn.
func AtCursor(cursor int) SubmitOption {
	return func(o *submitOptions) {
		o.expectedCursor = &cursor
	}
}

// SubmitAction validates and applies one draft action on behalf of claimed.
// Same-session submissions are serialized; a rejected action changes nothing and broadcasts nothing.
func (m *Manager) SubmitAction(ctx context.Context, id model.SessionID, action model.DraftAction, claimed model.UserID, opts ...SubmitOption) (model.DraftAction, error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	ls, err := m.acquire(ctx, id)
	if err != nil {
		return model.DraftAction{}, err
	}

	if err := checkSubmission(ls.draft, action, claimed, o); err != nil {
		cursor := ls.draft.Cursor
		ls.mu.Unlock()
		m.logger.Debug("action rejected",
			slog.String("session_id", string(id)),
			slog.String("user_id", string(claimed)),
			slog.Int("cursor", cursor),
			slog.Any("error", err))
		return model.DraftAction{}, err
	}

	recorded, err := engine.Apply(ls.draft, action)
	if err != nil {
		ls.mu.Unlock()
		return model.DraftAction{}, err
	}

	payload := model.ActionAppliedPayload{Action: recorded, Cursor: ls.draft.Cursor, ActorID: claimed}
	if next, ok := engine.CurrentAction(ls.draft); ok {
		payload.Next = &next
	}
	m.channel.Publish(id, model.EventActionApplied, payload)

	terminal := ls.draft.IsTerminal()
	if terminal {
		ls.removed = true
		m.channel.Publish(id, model.EventDraftCompleted, model.DraftCompletedPayload{Snapshot: engine.Snapshot(ls.draft)})
	}

	var toPersist *model.DraftSession
	if ls.draft.Configuration.ProvidedByServer {
		toPersist = ls.draft.Clone()
	}
	cursor := ls.draft.Cursor
	ls.mu.Unlock()

	m.logger.Info("action applied",
		slog.String("session_id", string(id)),
		slog.String("user_id", string(claimed)),
		slog.String("type", string(recorded.Type)),
		slog.String("team", string(recorded.Team)),
		slog.Int("breed", int(recorded.Breed)),
		slog.Int("cursor", cursor))

	if terminal {
		m.remove(id, ls)
		m.channel.Close(id)
		m.logger.Info("draft completed", slog.String("session_id", string(id)))
	}
	if toPersist != nil {
		m.persist(ctx, toPersist, terminal)
	}
	return recorded, nil
}

// AssignUser places userID on team. Only the leader may do this, only before the
// first action, and never for server-provided drafts.
func (m *Manager) AssignUser(ctx context.Context, id model.SessionID, userID model.UserID, team model.Team, requester model.UserID) error {
	ls, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	if err := checkRosterEditable(ls.draft, requester); err != nil {
		return err
	}
	if err := engine.AssignUser(ls.draft, userID, team); err != nil {
		return err
	}

	m.channel.Publish(id, model.EventUserAssigned, model.AssignmentPayload{
		UserID: userID,
		Team:   team,
		TeamA:  engine.Roster(ls.draft, model.TeamA),
		TeamB:  engine.Roster(ls.draft, model.TeamB),
	})
	m.logger.Info("user assigned",
		slog.String("session_id", string(id)),
		slog.String("user_id", string(userID)),
		slog.String("team", string(team)))
	return nil
}

// UnassignUser removes userID from its team under the same rules as AssignUser
func (m *Manager) UnassignUser(ctx context.Context, id model.SessionID, userID model.UserID, requester model.UserID) error {
	ls, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	if err := checkRosterEditable(ls.draft, requester); err != nil {
		return err
	}
	team, err := engine.UnassignUser(ls.draft, userID)
	if err != nil {
		return err
	}

	m.channel.Publish(id, model.EventUserUnassigned, model.AssignmentPayload{
		UserID: userID,
		Team:   team,
		TeamA:  engine.Roster(ls.draft, model.TeamA),
		TeamB:  engine.Roster(ls.draft, model.TeamB),
	})
	m.logger.Info("user unassigned",
		slog.String("session_id", string(id)),
		slog.String("user_id", string(userID)),
		slog.String("team", string(team)))
	return nil
}

func checkSubmission(draft *model.DraftSession, action model.DraftAction, claimed model.UserID, o submitOptions) error {
	if o.expectedCursor != nil && *o.expectedCursor != draft.Cursor {
		return fmt.Errorf("%w: %w: draft is at turn %d, not %d",
			model.ErrValidationRejected, model.ErrOutOfTurn, draft.Cursor, *o.expectedCursor)
	}
	return validator.Validate(draft, action, claimed)
}

func checkRosterEditable(draft *model.DraftSession, requester model.UserID) error {
	if draft.Configuration.ProvidedByServer {
		return model.ErrServerProvided
	}
	if !draft.IsLeader(requester) {
		return model.ErrNotLeader
	}
	if draft.Cursor > 0 {
		return fmt.Errorf("%w: draft has started", model.ErrIllegalState)
	}
	return nil
}

// SetTeamReady toggles a team's readiness. Only members of that team may do so.
func (m *Manager) SetTeamReady(ctx context.Context, id model.SessionID, team model.Team, ready bool, requester model.UserID) error {
	if !team.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidTeam, team)
	}

	ls, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}

	if current, _ := ls.draft.TeamOf(requester); current != team {
		ls.mu.Unlock()
		return model.ErrNotTeamMember
	}
	if ls.draft.IsReady(team) == ready {
		ls.mu.Unlock()
		return nil
	}
	if err := engine.SetTeamReady(ls.draft, team, ready); err != nil {
		ls.mu.Unlock()
		return err
	}

	phase := engine.Phase(ls.draft)
	m.channel.Publish(id, model.EventTeamReadyChanged, model.TeamReadyPayload{Team: team, Ready: ready, Phase: phase})

	var toPersist *model.DraftSession
	if ls.draft.Configuration.ProvidedByServer {
		toPersist = ls.draft.Clone()
	}
	ls.mu.Unlock()

	m.logger.Info("team readiness changed",
		slog.String("session_id", string(id)),
		slog.String("team", string(team)),
		slog.Bool("ready", ready),
		slog.String("phase", string(phase)))

	if toPersist != nil {
		m.persist(ctx, toPersist, false)
	}
	return nil
}
