package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/draftroom/internal/api/apierr"
	"github.com/mcoot/draftroom/internal/api/middleware"
	"github.com/mcoot/draftroom/internal/api/request"
	"github.com/mcoot/draftroom/internal/api/response"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/realtime"
	"github.com/mcoot/draftroom/internal/services/session"
)

// DraftHandler handles draft session endpoints
type DraftHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(sessions *session.Manager, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{
		sessions: sessions,
		logger:   logger,
	}
}

func sessionID(r *http.Request) model.SessionID {
	return model.SessionID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/drafts
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	// Allow empty body for the default template
	var req request.CreateDraftRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var (
		snap model.Snapshot
		err  error
	)
	if req.IsProvided() {
		snap, err = h.sessions.CreateProvidedSession(r.Context(), identity, session.ProvidedDraft{
			Template: req.Template,
			TeamA:    toUsers(req.TeamA),
			TeamB:    toUsers(req.TeamB),
		})
	} else {
		snap, err = h.sessions.CreateSession(r.Context(), identity.User, req.Template)
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/drafts/"+string(snap.ID), snap)
}

func toUsers(in []request.DraftUser) []model.DraftUser {
	out := make([]model.DraftUser, 0, len(in))
	for _, u := range in {
		out = append(out, u.ToModel())
	}
	return out
}

// Get handles GET /api/v1/drafts/{id}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.GetOrLoadSession(r.Context(), sessionID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, snap)
}

// SubmitAction handles POST /api/v1/drafts/{id}/actions
func (h *DraftHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SubmitActionRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	var opts []session.SubmitOption
	if req.Cursor != nil {
		opts = append(opts, session.AtCursor(*req.Cursor))
	}
	action := model.DraftAction{
		Type:  model.ActionType(req.Type),
		Team:  model.Team(req.Team),
		Breed: model.ClassID(req.Breed),
	}

	applied, err := h.sessions.SubmitAction(r.Context(), sessionID(r), action, identity.User.ID, opts...)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ActionResponse{Action: applied})
}

// AssignMember handles PUT /api/v1/drafts/{id}/teams/{team}/members/{user_id}
func (h *DraftHandler) AssignMember(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	vars := mux.Vars(r)

	err := h.sessions.AssignUser(r.Context(), sessionID(r), model.UserID(vars["user_id"]), model.Team(vars["team"]), identity.User.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// UnassignMember handles DELETE /api/v1/drafts/{id}/members/{user_id}/team
func (h *DraftHandler) UnassignMember(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	err := h.sessions.UnassignUser(r.Context(), sessionID(r), model.UserID(mux.Vars(r)["user_id"]), identity.User.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// SetReady handles PUT /api/v1/drafts/{id}/teams/{team}/ready
func (h *DraftHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.SetReadyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Ready == nil {
		WriteError(w, apierr.NewInvalidRequestError("ready is required"))
		return
	}

	err := h.sessions.SetTeamReady(r.Context(), sessionID(r), model.Team(mux.Vars(r)["team"]), *req.Ready, identity.User.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/drafts/{id}/events as a server-sent event stream.
// The first event is a snapshot; every later event happened after it.
func (h *DraftHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	watch, err := h.sessions.WatchSession(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer watch.Leave()

	initial, err := realtime.NewMessage(id, model.EventSnapshot, watch.Snapshot)
	if err != nil {
		h.logger.Error("failed to encode snapshot", slog.String("session_id", string(id)), slog.Any("error", err))
		WriteError(w, apierr.NewInternalError())
		return
	}

	// Streams outlive the server-wide write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	realtime.ServeSSE(w, r, watch.Client, initial)
}
