package realtime

import (
	"testing"
	"time"

	"github.com/mcoot/draftroom/internal/model"
	"github.com/mcoot/draftroom/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "action-applied",
			data:      `{"cursor":1}`,
			expected:  "event: action-applied\ndata: {\"cursor\":1}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "user-joined",
			data:      "{\n  \"user\": 1\n}",
			expected:  "event: user-joined\ndata: {\ndata:   \"user\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single line", input: "hello", expected: []string{"hello"}},
		{name: "two lines", input: "line1\nline2", expected: []string{"line1", "line2"}},
		{name: "trailing newline", input: "line1\n", expected: []string{"line1"}},
		{name: "empty string", input: "", expected: []string{""}},
		{name: "crlf line endings", input: "line1\r\nline2\r\n", expected: []string{"line1", "line2"}},
		{name: "blank middle line", input: "a\n\nb", expected: []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("splitLines(%q) returned %d lines, want %d",
					tt.input, len(result), len(tt.expected))
				return
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q",
						tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage("S1", model.EventTeamReadyChanged, map[string]any{"team": "A", "ready": true})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	got, err := msg.Envelope()
	if err != nil {
		t.Fatalf("Envelope: %v", err)
	}
	want := `{"event":"team-ready-changed","session_id":"S1","data":{"ready":true,"team":"A"}}`
	if string(got) != want {
		t.Errorf("Envelope() = %s, want %s", got, want)
	}
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.Messages():
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
	}
	return Message{}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "user1")
	if !hub.Register(client) {
		t.Fatal("Register returned false on a running hub")
	}

	hub.Broadcast(Message{Event: model.EventActionApplied, SessionID: "S1", Data: []byte(`{}`)})

	msg := receive(t, client)
	if msg.Event != model.EventActionApplied {
		t.Errorf("client received %q, want %q", msg.Event, model.EventActionApplied)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "user1")
	hub.Register(client)
	hub.Unregister(client)

	if _, ok := <-client.Messages(); ok {
		t.Error("client channel still open after unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}
}

func TestHub_PreservesOrder(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "user1")
	hub.Register(client)

	events := []model.EventType{model.EventUserJoined, model.EventUserAssigned, model.EventTeamReadyChanged, model.EventActionApplied}
	for _, e := range events {
		hub.Broadcast(Message{Event: e, SessionID: "S1"})
	}
	for i, want := range events {
		if got := receive(t, client); got.Event != want {
			t.Errorf("message %d = %q, want %q", i, got.Event, want)
		}
	}
}

func TestHub_CloseDeliversQueuedMessages(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()

	client := NewClient(hub, "user1")
	hub.Register(client)

	hub.Broadcast(Message{Event: model.EventCreatorDisconnected, SessionID: "S1"})
	hub.Close()

	msg := receive(t, client)
	if msg.Event != model.EventCreatorDisconnected {
		t.Errorf("got %q, want %q", msg.Event, model.EventCreatorDisconnected)
	}
	if _, ok := <-client.Messages(); ok {
		t.Error("client channel still open after close")
	}
}

func TestHub_RegisterAfterClose(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()
	hub.Close()
	hub.Close()
	<-hub.stopped

	if hub.Register(NewClient(hub, "user1")) {
		t.Error("Register succeeded on a closed hub")
	}
}

func TestHub_SlowClientDoesNotBlockOthers(t *testing.T) {
	hub := NewHub("S1", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	slow := NewClient(hub, "slow")
	fast := NewClient(hub, "fast")
	hub.Register(slow)
	hub.Register(fast)

	for i := 0; i < sendBufferSize+10; i++ {
		hub.Broadcast(Message{Event: model.EventActionApplied, SessionID: "S1"})
		receive(t, fast)
	}
	if len(slow.send) != sendBufferSize {
		t.Errorf("slow client buffer = %d, want %d", len(slow.send), sendBufferSize)
	}
}
