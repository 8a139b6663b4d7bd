package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goliatone/go-copilot/core"
	"github.com/goliatone/go-copilot/inbound"
)

const SourceSystem = "slack"

// Handler parses Slack Events API `event_callback` envelopes into pipeline
// messages. Bot echoes, self messages, edits, and deletes are reported as
// valid-but-ignorable. Channel activity is tracked in an injected TTL cache,
// not module state.
type Handler struct {
	botUserID string
	presence  *gocache.Cache
}

type Option func(*Handler)

func WithBotUserID(botUserID string) Option {
	return func(h *Handler) {
		h.botUserID = strings.TrimSpace(botUserID)
	}
}

// WithPresenceCache injects the TTL cache used for channel activity. The
// handler owns a private one when none is given.
func WithPresenceCache(cache *gocache.Cache) Option {
	return func(h *Handler) {
		if cache != nil {
			h.presence = cache
		}
	}
}

func New(options ...Option) *Handler {
	h := &Handler{
		presence: gocache.New(30*time.Minute, 10*time.Minute),
	}
	for _, opt := range options {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Handler) SourceSystem() string { return SourceSystem }

func (h *Handler) Surface() string { return inbound.SurfaceEventCallback }

type envelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	TeamID  string `json:"team_id"`
	Event   struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		User    string `json:"user"`
		BotID   string `json:"bot_id"`
		Text    string `json:"text"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"event"`
}

func (h *Handler) Parse(_ context.Context, event core.InboundEvent) (core.Message, bool, error) {
	var env envelope
	if err := json.Unmarshal(event.Body, &env); err != nil {
		return core.Message{}, false, fmt.Errorf("slack: malformed envelope: %w", err)
	}
	if env.Type != "event_callback" {
		return core.Message{}, false, nil
	}
	inner := env.Event
	if inner.Type != "message" {
		return core.Message{}, false, nil
	}

	switch inner.Subtype {
	case "":
		// plain user message
	case "bot_message", "message_changed", "message_deleted", "channel_join", "channel_leave":
		return core.Message{}, false, nil
	default:
		return core.Message{}, false, nil
	}
	if inner.BotID != "" {
		return core.Message{}, false, nil
	}
	if h.botUserID != "" && inner.User == h.botUserID {
		return core.Message{}, false, nil
	}
	if strings.TrimSpace(inner.User) == "" || strings.TrimSpace(inner.Text) == "" {
		return core.Message{}, false, nil
	}

	timestamp := parseSlackTS(inner.TS)
	h.recordActivity(inner.Channel, inner.User, timestamp)

	return core.Message{
		SourceSystem:     SourceSystem,
		ChannelID:        inner.Channel,
		SenderExternalID: inner.User,
		Text:             inner.Text,
		Timestamp:        timestamp,
		Metadata: map[string]any{
			"event_id": env.EventID,
			"team_id":  env.TeamID,
			"ts":       inner.TS,
		},
	}, true, nil
}

type ChannelActivity struct {
	ChannelID    string
	LastSenderID string
	LastSeenAt   time.Time
}

func (h *Handler) recordActivity(channelID string, senderID string, at time.Time) {
	if h.presence == nil || strings.TrimSpace(channelID) == "" {
		return
	}
	h.presence.Set(channelID, ChannelActivity{
		ChannelID:    channelID,
		LastSenderID: senderID,
		LastSeenAt:   at,
	}, gocache.DefaultExpiration)
}

// LastActivity reports the most recent message activity seen on a channel
// within the cache TTL.
func (h *Handler) LastActivity(channelID string) (ChannelActivity, bool) {
	if h.presence == nil {
		return ChannelActivity{}, false
	}
	value, found := h.presence.Get(channelID)
	if !found {
		return ChannelActivity{}, false
	}
	activity, ok := value.(ChannelActivity)
	return activity, ok
}

// parseSlackTS converts Slack's "seconds.fraction" timestamps; a bad value
// falls back to the current time so the message still flows.
func parseSlackTS(ts string) time.Time {
	parts := strings.SplitN(strings.TrimSpace(ts), ".", 2)
	seconds, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || seconds <= 0 {
		return time.Now().UTC()
	}
	var nanos int64
	if len(parts) == 2 {
		padded := parts[1] + strings.Repeat("0", 9)
		if frac, err := strconv.ParseInt(padded[:9], 10, 64); err == nil {
			nanos = frac
		}
	}
	return time.Unix(seconds, nanos).UTC()
}

var _ core.ConnectorHandler = (*Handler)(nil)
