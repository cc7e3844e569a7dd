package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mcoot/draftroom/internal/api/apierr"
	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/auth"
	"github.com/mcoot/draftroom/internal/services/session"
)

// Config holds websocket transport settings
type Config struct {
	// OriginPatterns are host patterns allowed in cross-origin upgrades
	OriginPatterns []string
	// PingInterval is how often the server pings; a missed pong drops the connection
	PingInterval time.Duration
	WriteTimeout time.Duration
	// MaxMessageBytes caps inbound frames
	MaxMessageBytes int64
	SendBuffer      int
}

// DefaultConfig returns default transport settings
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 4096,
		SendBuffer:      256,
	}
}

// Handler upgrades requests to draft websocket connections
type Handler struct {
	sessions *session.Manager
	auth     *auth.Service
	cfg      Config
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHandler creates a websocket handler
func NewHandler(sessions *session.Manager, authService *auth.Service, cfg Config, logger *slog.Logger) *Handler {
	defaults := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		sessions: sessions,
		auth:     authService,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "ws")),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close drops every open connection. Each runs its disconnect hooks.
func (h *Handler) Close() {
	h.cancel()
}

// ServeHTTP handles GET /api/v1/ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	identity, err := h.auth.ResolveConnection(r, connID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	// Long-lived connection; the server-wide write timeout must not apply
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("failed to accept websocket connection", slog.Any("error", err))
		return
	}
	wsConn.SetReadLimit(h.cfg.MaxMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.ctx, cancel)
	defer stop()

	c := &conn{
		id:       connID,
		ws:       wsConn,
		identity: identity,
		sessions: h.sessions,
		cfg:      h.cfg,
		logger: h.logger.With(
			slog.String("conn_id", connID),
			slog.String("user_id", string(identity.User.ID))),
		ctx:     ctx,
		cancel:  cancel,
		send:    make(chan []byte, h.cfg.SendBuffer),
		members: map[model.SessionID]*session.Membership{},
	}
	c.logger.Info("websocket connection established", slog.Bool("anonymous", identity.User.IsAnonymous()))
	c.run()
}

// handle dispatches one inbound message and acknowledges it
func (c *conn) handle(raw []byte) {
	in, err := parseInbound(raw)
	if err != nil {
		c.reply(errAck(in.Ref, err))
		return
	}

	var data any
	switch in.Event {
	case EventCreate:
		err = c.create(in)
	case EventJoin:
		err = c.join(in)
	case EventLeave:
		err = c.leave(in)
	case EventAction:
		data, err = c.submit(in)
	case EventAssign:
		err = c.withMembership(in, func() error {
			return c.sessions.AssignUser(c.ctx, in.SessionID, model.UserID(in.str("user_id")), in.team(), c.identity.User.ID)
		})
	case EventUnassign:
		err = c.withMembership(in, func() error {
			return c.sessions.UnassignUser(c.ctx, in.SessionID, model.UserID(in.str("user_id")), c.identity.User.ID)
		})
	case EventReady:
		err = c.withMembership(in, func() error {
			ready := in.body.Get("ready")
			if !ready.IsBool() {
				return fmt.Errorf("%w: ready must be a boolean", errMalformed)
			}
			return c.sessions.SetTeamReady(c.ctx, in.SessionID, in.team(), ready.Bool(), c.identity.User.ID)
		})
	default:
		err = fmt.Errorf("%w: unknown event %q", errMalformed, in.Event)
	}

	switch {
	case err != nil:
		if !errors.Is(err, errMalformed) {
			c.logger.Debug("request rejected",
				slog.String("event", in.Event),
				slog.String("session_id", string(in.SessionID)),
				slog.Any("error", err))
		}
		c.reply(errAck(in.Ref, err))
	case in.Event == EventCreate || in.Event == EventJoin:
		// acked by join, ahead of the event stream
	default:
		c.reply(okAck(in.Ref, data))
	}
}

// create starts an ad-hoc draft led by this connection's user and joins it
func (c *conn) create(in inbound) error {
	snap, err := c.sessions.CreateSession(c.ctx, c.identity.User, in.str("template"))
	if err != nil {
		return err
	}
	in.SessionID = snap.ID
	return c.join(in)
}

// join subscribes this connection and acks with the snapshot before any event is forwarded
func (c *conn) join(in inbound) error {
	if err := in.requireSession(); err != nil {
		return err
	}
	if c.member(in.SessionID) != nil {
		snap, err := c.sessions.GetOrLoadSession(c.ctx, in.SessionID)
		if err != nil {
			return err
		}
		c.reply(okAck(in.Ref, snap))
		return nil
	}

	mb, err := c.sessions.JoinSession(c.ctx, in.SessionID, c.identity.User)
	if err != nil {
		return err
	}
	c.reply(okAck(in.Ref, mb.Snapshot))
	c.attach(mb)
	return nil
}

func (c *conn) leave(in inbound) error {
	if err := in.requireSession(); err != nil {
		return err
	}
	mb := c.member(in.SessionID)
	if mb == nil || !c.detach(in.SessionID, mb) {
		return fmt.Errorf("%w: %s", model.ErrNotJoined, in.SessionID)
	}
	mb.Leave()
	return nil
}

type submitResult struct {
	Action model.DraftAction `json:"action"`
}

func (c *conn) submit(in inbound) (any, error) {
	var applied model.DraftAction
	err := c.withMembership(in, func() error {
		var opts []session.SubmitOption
		if cursor, ok := in.cursor(); ok {
			opts = append(opts, session.AtCursor(cursor))
		}
		action, err := in.draftAction()
		if err != nil {
			return err
		}
		applied, err = c.sessions.SubmitAction(c.ctx, in.SessionID, action, c.identity.User.ID, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return submitResult{Action: applied}, nil
}

// withMembership runs fn only if this connection has joined the named session
func (c *conn) withMembership(in inbound, fn func() error) error {
	if err := in.requireSession(); err != nil {
		return err
	}
	if c.member(in.SessionID) == nil {
		return fmt.Errorf("%w: %s", model.ErrNotJoined, in.SessionID)
	}
	return fn()
}
