package slack

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-copilot/core"
	"github.com/goliatone/go-copilot/inbound"
)

func eventBody(body string) core.InboundEvent {
	return core.InboundEvent{
		SourceSystem: SourceSystem,
		Surface:      inbound.SurfaceEventCallback,
		Body:         []byte(body),
	}
}

func TestParse_UserMessage(t *testing.T) {
	handler := New()

	msg, ok, err := handler.Parse(context.Background(), eventBody(`{
		"type": "event_callback",
		"event_id": "Ev123",
		"team_id": "T1",
		"event": {
			"type": "message",
			"user": "U999",
			"text": "<@U123> can you review the payment API today?",
			"channel": "C100",
			"ts": "1764672600.000200"
		}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected message accepted")
	}
	if msg.SourceSystem != SourceSystem || msg.SenderExternalID != "U999" || msg.ChannelID != "C100" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Timestamp.Unix() != 1764672600 {
		t.Fatalf("unexpected timestamp %v", msg.Timestamp)
	}
	if msg.Metadata["event_id"] != "Ev123" {
		t.Fatalf("expected event id carried, got %v", msg.Metadata)
	}
}

func TestParse_IgnoredEvents(t *testing.T) {
	handler := New(WithBotUserID("UBOT"))

	cases := map[string]string{
		"url verification": `{"type": "url_verification", "challenge": "x"}`,
		"non-message":      `{"type": "event_callback", "event": {"type": "reaction_added"}}`,
		"bot message":      `{"type": "event_callback", "event": {"type": "message", "subtype": "bot_message", "text": "hi", "user": "U1", "channel": "C1", "ts": "1.0"}}`,
		"bot id":           `{"type": "event_callback", "event": {"type": "message", "bot_id": "B1", "text": "hi", "user": "U1", "channel": "C1", "ts": "1.0"}}`,
		"self echo":        `{"type": "event_callback", "event": {"type": "message", "user": "UBOT", "text": "hi", "channel": "C1", "ts": "1.0"}}`,
		"edit":             `{"type": "event_callback", "event": {"type": "message", "subtype": "message_changed", "user": "U1", "text": "hi", "channel": "C1", "ts": "1.0"}}`,
		"empty text":       `{"type": "event_callback", "event": {"type": "message", "user": "U1", "text": "  ", "channel": "C1", "ts": "1.0"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok, err := handler.Parse(context.Background(), eventBody(body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Fatalf("expected event ignored")
			}
		})
	}
}

func TestParse_MalformedEnvelope(t *testing.T) {
	handler := New()

	if _, _, err := handler.Parse(context.Background(), eventBody(`{"type": `)); err == nil {
		t.Fatalf("expected parse error for malformed JSON")
	}
}

func TestLastActivity(t *testing.T) {
	handler := New()

	if _, found := handler.LastActivity("C100"); found {
		t.Fatalf("expected no activity before any message")
	}

	_, ok, err := handler.Parse(context.Background(), eventBody(`{
		"type": "event_callback",
		"event": {"type": "message", "user": "U999", "text": "hello", "channel": "C100", "ts": "1764672600.000200"}
	}`))
	if err != nil || !ok {
		t.Fatalf("parse failed: ok=%v err=%v", ok, err)
	}

	activity, found := handler.LastActivity("C100")
	if !found {
		t.Fatalf("expected channel activity recorded")
	}
	if activity.LastSenderID != "U999" {
		t.Fatalf("unexpected activity %+v", activity)
	}
	if activity.LastSeenAt.IsZero() || !activity.LastSeenAt.Equal(time.Unix(1764672600, 200000).UTC()) {
		t.Fatalf("unexpected last seen %v", activity.LastSeenAt)
	}
}
