package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/mcoot/draftroom/internal/api/apierr"
	"github.com/mcoot/draftroom/internal/model"
)

// Inbound event names
const (
	EventCreate   = "create"
	EventJoin     = "join"
	EventLeave    = "leave"
	EventAction   = "action"
	EventAssign   = "assign"
	EventUnassign = "unassign"
	EventReady    = "ready"
)

// Outbound, connection-scoped event names
const (
	EventHello = "hello"
	EventAck   = "ack"
)

var errMalformed = errors.New("malformed message")

// inbound is one client message. Fields beyond the envelope are read lazily
// from body, so each event only looks at what it needs.
type inbound struct {
	Event     string
	Ref       int64
	SessionID model.SessionID
	body      gjson.Result
}

func parseInbound(raw []byte) (inbound, error) {
	if !gjson.ValidBytes(raw) {
		return inbound{}, fmt.Errorf("%w: invalid JSON", errMalformed)
	}
	body := gjson.ParseBytes(raw)
	if !body.IsObject() {
		return inbound{}, fmt.Errorf("%w: expected an object", errMalformed)
	}
	in := inbound{
		Event:     body.Get("event").String(),
		Ref:       body.Get("ref").Int(),
		SessionID: model.SessionID(body.Get("session_id").String()),
		body:      body,
	}
	if in.Event == "" {
		return in, fmt.Errorf("%w: missing event", errMalformed)
	}
	return in, nil
}

func (in inbound) str(path string) string {
	return in.body.Get(path).String()
}

func (in inbound) team() model.Team {
	return model.Team(in.body.Get("team").String())
}

// requireSession checks that the message names a session
func (in inbound) requireSession() error {
	if in.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", errMalformed)
	}
	return nil
}

// draftAction reads the submitted turn. Lock flags are never read from clients.
func (in inbound) draftAction() (model.DraftAction, error) {
	breed := in.body.Get("breed")
	if breed.Type != gjson.Number || breed.Num != math.Trunc(breed.Num) {
		return model.DraftAction{}, fmt.Errorf("%w: breed must be an integer", errMalformed)
	}
	return model.DraftAction{
		Type:  model.ActionType(in.str("type")),
		Team:  in.team(),
		Breed: model.ClassID(breed.Int()),
	}, nil
}

// cursor returns the expected cursor if the client sent one
func (in inbound) cursor() (int, bool) {
	c := in.body.Get("cursor")
	if !c.Exists() || c.Type != gjson.Number {
		return 0, false
	}
	return int(c.Int()), true
}

// ack answers one inbound message
type ack struct {
	Event   string `json:"event"`
	Ref     int64  `json:"ref"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func okAck(ref int64, data any) ack {
	return ack{Event: EventAck, Ref: ref, OK: true, Data: data}
}

func errAck(ref int64, err error) ack {
	if errors.Is(err, errMalformed) {
		return ack{Event: EventAck, Ref: ref, Code: apierr.CodeInvalidRequest, Message: err.Error()}
	}
	_, apiErr := apierr.Classify(err)
	return ack{Event: EventAck, Ref: ref, Code: apiErr.Code, Message: apiErr.Message}
}

// hello is the first message on every connection
type hello struct {
	Event string `json:"event"`
	Data  struct {
		User         model.DraftUser `json:"user"`
		ConnectionID string          `json:"connection_id"`
	} `json:"data"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(errAck(0, err))
	}
	return b
}
