package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

const systemPrompt = `You triage workplace chat messages. Decide whether the message asks
someone to do concrete work. Respond with JSON only:
{"is_work_request": bool, "confidence": 0..1, "urgency": "low"|"medium"|"high"|"critical",
"work_type": string, "reason": string}`

// Classifier decides whether a connector message is a work request. The
// collaborator path is primary; when no collaborator is wired, a local
// keyword heuristic answers instead. Classify never returns an error: any
// collaborator failure, malformed reply, or panic is folded into the
// analysis as data and the message is treated as not-a-work-request.
type Classifier struct {
	collaborator core.Collaborator
	model        string
	timeout      time.Duration
	logger       core.Logger
}

type Option func(*Classifier)

func WithCollaborator(collaborator core.Collaborator) Option {
	return func(c *Classifier) {
		c.collaborator = collaborator
	}
}

func WithModel(model string) Option {
	return func(c *Classifier) {
		c.model = model
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Classifier) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

func New(options ...Option) *Classifier {
	c := &Classifier{
		timeout: 20 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = glog.Ensure(c.logger)
	return c
}

func (c *Classifier) Classify(ctx context.Context, msg core.Message) (analysis core.WorkRequestAnalysis) {
	defer func() {
		if recovered := recover(); recovered != nil {
			analysis = core.WorkRequestAnalysis{
				Err: fmt.Errorf("classify: panic during classification: %v", recovered),
			}
			c.logger.Error("classification panicked", "recovered", fmt.Sprint(recovered))
		}
	}()

	if strings.TrimSpace(msg.Text) == "" {
		return core.WorkRequestAnalysis{Reason: "empty message"}
	}
	if c.collaborator == nil {
		return Heuristic(msg.Text)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.collaborator.Complete(ctx, core.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserMessage:  msg.Text,
		Metadata: map[string]any{
			"model":         c.model,
			"source_system": msg.SourceSystem,
		},
	})
	if err != nil {
		c.logger.Error("classification call failed", "error", err.Error())
		return core.WorkRequestAnalysis{Err: fmt.Errorf("classify: collaborator call failed: %w", err)}
	}

	parsed, err := parseAnalysis(result.ReplyText)
	if err != nil {
		c.logger.Error("classification reply unparseable", "error", err.Error())
		return core.WorkRequestAnalysis{Err: err}
	}
	return parsed
}

type analysisPayload struct {
	IsWorkRequest bool    `json:"is_work_request"`
	Confidence    float64 `json:"confidence"`
	Urgency       string  `json:"urgency"`
	WorkType      string  `json:"work_type"`
	Reason        string  `json:"reason"`
}

func parseAnalysis(reply string) (core.WorkRequestAnalysis, error) {
	body := extractJSONObject(reply)
	if body == "" {
		return core.WorkRequestAnalysis{}, fmt.Errorf("classify: no JSON object in reply")
	}
	var payload analysisPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return core.WorkRequestAnalysis{}, fmt.Errorf("classify: malformed analysis JSON: %w", err)
	}
	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 1 {
		payload.Confidence = 1
	}
	urgency, err := core.ParseTaskPriority(payload.Urgency)
	if err != nil {
		urgency = core.TaskPriorityMedium
	}
	return core.WorkRequestAnalysis{
		IsWorkRequest: payload.IsWorkRequest,
		Confidence:    payload.Confidence,
		Urgency:       urgency,
		WorkType:      strings.TrimSpace(payload.WorkType),
		Reason:        strings.TrimSpace(payload.Reason),
	}, nil
}

// extractJSONObject tolerates code fences and prose around the JSON body.
func extractJSONObject(reply string) string {
	reply = strings.TrimSpace(reply)
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return ""
	}
	return reply[start : end+1]
}

var _ core.Classifier = (*Classifier)(nil)
