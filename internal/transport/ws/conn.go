package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/services/session"
)

// conn is one websocket connection. Inbound messages are handled in order on
// the read loop; everything outbound goes through send and the write pump.
type conn struct {
	id       string
	ws       *websocket.Conn
	identity model.Identity
	sessions *session.Manager
	cfg      Config
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte

	mu      sync.Mutex
	members map[model.SessionID]*session.Membership
	wg      sync.WaitGroup
}

func (c *conn) run() {
	defer c.shutdown()

	go c.writePump()

	var h hello
	h.Event = EventHello
	h.Data.User = c.identity.User
	h.Data.ConnectionID = c.id
	c.enqueue(encode(h))

	c.readPump()
}

func (c *conn) readPump() {
	for {
		typ, data, err := c.ws.Read(c.ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && c.ctx.Err() == nil {
				c.logger.Debug("websocket read ended", slog.Any("error", err))
			}
			return
		}
		if typ != websocket.MessageText {
			c.reply(errAck(0, errMalformed))
			continue
		}
		c.handle(data)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
			err := c.ws.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write failed", slog.Any("error", err))
				c.cancel()
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
			err := c.ws.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Debug("websocket ping failed", slog.Any("error", err))
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// enqueue hands a frame to the write pump; it returns false once the connection is closing
func (c *conn) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *conn) reply(a ack) {
	c.enqueue(encode(a))
}

// attach records a membership and starts forwarding its events. The caller
// must enqueue the join ack first so the snapshot precedes every event.
func (c *conn) attach(mb *session.Membership) {
	id := mb.Snapshot.ID
	c.mu.Lock()
	c.members[id] = mb
	c.mu.Unlock()

	c.wg.Add(1)
	go c.forward(id, mb)
}

func (c *conn) member(id model.SessionID) *session.Membership {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members[id]
}

// detach forgets the membership for id without leaving
func (c *conn) detach(id model.SessionID, mb *session.Membership) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.members[id]; !ok || (mb != nil && current != mb) {
		return false
	}
	delete(c.members, id)
	return true
}

// forward pumps a session's events to the socket until the session closes it
func (c *conn) forward(id model.SessionID, mb *session.Membership) {
	defer c.wg.Done()

	for msg := range mb.Client.Messages() {
		frame, err := msg.Envelope()
		if err != nil {
			c.logger.Error("failed to encode event", slog.String("event", string(msg.Event)), slog.Any("error", err))
			continue
		}
		if !c.enqueue(frame) {
			return
		}
	}

	// The session ended underneath us
	c.detach(id, mb)
}

// shutdown leaves every joined session, then closes the socket
func (c *conn) shutdown() {
	c.cancel()

	c.mu.Lock()
	members := c.members
	c.members = map[model.SessionID]*session.Membership{}
	c.mu.Unlock()

	for _, mb := range members {
		mb.Leave()
	}
	c.wg.Wait()

	_ = c.ws.CloseNow()
	c.logger.Info("websocket connection closed", slog.Int("sessions", len(members)))
}
