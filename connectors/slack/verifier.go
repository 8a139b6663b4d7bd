package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-copilot/core"
	"github.com/goliatone/go-copilot/inbound"
)

const (
	headerSignature        = "X-Slack-Signature"
	headerRequestTimestamp = "X-Slack-Request-Timestamp"

	signatureVersion = "v0"
)

const defaultReplayWindow = 5 * time.Minute

type VerifierConfig struct {
	SigningSecret string
	ReplayWindow  time.Duration
	Now           func() time.Time
}

func DefaultVerifierConfig(signingSecret string) VerifierConfig {
	return VerifierConfig{
		SigningSecret: strings.TrimSpace(signingSecret),
		ReplayWindow:  defaultReplayWindow,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Verifier authenticates Slack deliveries with the app signing secret:
// HMAC-SHA256 over "v0:<timestamp>:<body>", hex encoded, compared in
// constant time against the X-Slack-Signature header. Deliveries with a
// request timestamp outside the replay window are rejected even when the
// signature matches.
type Verifier struct {
	signingSecret string
	replayWindow  time.Duration
	now           func() time.Time
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.SigningSecret)
	if secret == "" {
		return nil, fmt.Errorf("slack: signing secret is required")
	}
	window := cfg.ReplayWindow
	if window <= 0 {
		window = defaultReplayWindow
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time {
			return time.Now().UTC()
		}
	}
	return &Verifier{
		signingSecret: secret,
		replayWindow:  window,
		now:           now,
	}, nil
}

func (v *Verifier) Verify(_ context.Context, event core.InboundEvent) error {
	if v == nil {
		return fmt.Errorf("slack: verifier is not configured")
	}

	timestamp := strings.TrimSpace(headerValue(event.Headers, headerRequestTimestamp))
	if timestamp == "" {
		return fmt.Errorf("slack: %s header is required", headerRequestTimestamp)
	}
	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("slack: parse %s: %w", headerRequestTimestamp, err)
	}
	requestedAt := time.Unix(seconds, 0).UTC()
	now := v.now().UTC()
	if drift := now.Sub(requestedAt); drift > v.replayWindow || drift < -v.replayWindow {
		return fmt.Errorf("slack: request timestamp outside replay window")
	}

	signature := strings.TrimSpace(headerValue(event.Headers, headerSignature))
	if signature == "" {
		return fmt.Errorf("slack: %s header is required", headerSignature)
	}

	expected := SignBody(v.signingSecret, timestamp, event.Body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("slack: signature mismatch")
	}
	return nil
}

// SignBody computes the v0 signature Slack expects for a request body.
func SignBody(signingSecret string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(signingSecret)))
	mac.Write([]byte(signatureVersion))
	mac.Write([]byte(":"))
	mac.Write([]byte(strings.TrimSpace(timestamp)))
	mac.Write([]byte(":"))
	mac.Write(body)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

var _ inbound.Verifier = (*Verifier)(nil)

func headerValue(headers map[string]string, name string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[name]; ok {
		return value
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}
