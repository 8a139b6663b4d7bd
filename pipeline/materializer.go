package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

const defaultClaimLease = 10 * time.Minute

// Materializer turns attribution decisions into durable tasks, at most one
// task per (message, assignee) pair. Each candidate task is guarded twice:
// an idempotency claim taken before any write, and the dedup-key uniqueness
// the task store enforces. A persistence failure releases the claim for
// retry; a success completes it and notifies the owning user only.
type Materializer struct {
	tasks         core.TaskStore
	claims        core.ClaimStore
	notifications core.NotificationStore
	notifier      core.Notifier
	logger        core.Logger
	lease         time.Duration
}

type MaterializerOption func(*Materializer)

func WithNotificationStore(store core.NotificationStore) MaterializerOption {
	return func(m *Materializer) {
		m.notifications = store
	}
}

func WithNotifier(notifier core.Notifier) MaterializerOption {
	return func(m *Materializer) {
		m.notifier = notifier
	}
}

func WithMaterializerLogger(logger core.Logger) MaterializerOption {
	return func(m *Materializer) {
		m.logger = logger
	}
}

func WithClaimLease(lease time.Duration) MaterializerOption {
	return func(m *Materializer) {
		if lease > 0 {
			m.lease = lease
		}
	}
}

func NewMaterializer(tasks core.TaskStore, claims core.ClaimStore, options ...MaterializerOption) *Materializer {
	m := &Materializer{
		tasks:  tasks,
		claims: claims,
		lease:  defaultClaimLease,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	m.logger = glog.Ensure(m.logger)
	return m
}

// DedupKey is stable across redeliveries of the same message for the same
// assignee: the same sender, text, timestamp, and assignee reference always
// hash to the same task.
func DedupKey(msg core.Message, assigneeRef string) string {
	payload := strings.Join([]string{
		strings.TrimSpace(msg.SenderExternalID),
		msg.Text,
		strconv.FormatInt(msg.Timestamp.UTC().Unix(), 10),
		strings.TrimSpace(assigneeRef),
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (m *Materializer) Materialize(
	ctx context.Context,
	msg core.Message,
	analysis core.WorkRequestAnalysis,
	decisions []core.AttributionDecision,
) (core.ProcessResult, error) {
	if m == nil || m.tasks == nil {
		return core.ProcessResult{}, fmt.Errorf("pipeline: task store is required")
	}
	if m.claims == nil {
		return core.ProcessResult{}, fmt.Errorf("pipeline: claim store is required")
	}

	result := core.ProcessResult{
		Outcome:  core.ProcessOutcomeNotWorkRequest,
		Analysis: analysis,
	}
	if len(decisions) == 0 {
		return result, nil
	}

	title := TitleFromMessage(msg.Text)
	for _, decision := range decisions {
		dedupKey := DedupKey(msg, decision.AssigneeRef())

		claimID, accepted, err := m.claims.Claim(ctx, dedupKey, m.lease)
		if err != nil {
			return core.ProcessResult{}, fmt.Errorf("pipeline: claim failed: %w", err)
		}
		if !accepted {
			if existingID := m.existingTaskID(ctx, dedupKey); existingID != "" {
				result.DedupedTaskID = existingID
			}
			continue
		}

		task, err := m.tasks.Create(ctx, core.CreateTaskInput{
			OwnerUserID:          decision.OwnerUserID,
			Title:                title,
			Description:          msg.Text,
			Priority:             priorityFromAnalysis(analysis),
			Status:               core.TaskStatusTodo,
			AssignorExternalID:   decision.AssignorExternalID,
			AssigneeExternalID:   decision.AssigneeExternalID,
			AssigneeUserID:       decision.AssigneeUserID,
			MentionedExternalIDs: mentionedIDs(decisions),
			Tags:                 decision.Tags,
			DedupKey:             dedupKey,
			SourceSystem:         msg.SourceSystem,
			SourceChannelID:      msg.ChannelID,
		})
		if err != nil {
			if failErr := m.claims.Fail(ctx, claimID, err, time.Now().Add(m.lease)); failErr != nil {
				m.logger.Error("claim release failed", "claim_id", claimID, "error", failErr.Error())
			}
			return core.ProcessResult{}, fmt.Errorf("pipeline: task create failed: %w", err)
		}
		if err := m.claims.Complete(ctx, claimID); err != nil {
			m.logger.Error("claim completion failed", "claim_id", claimID, "error", err.Error())
		}

		result.TaskIDs = append(result.TaskIDs, task.ID)
		m.notifyOwner(ctx, task)
	}

	switch {
	case len(result.TaskIDs) > 0:
		result.Outcome = core.ProcessOutcomeTasksCreated
	case result.DedupedTaskID != "":
		result.Outcome = core.ProcessOutcomeDeduplicated
	}
	return result, nil
}

func (m *Materializer) existingTaskID(ctx context.Context, dedupKey string) string {
	task, found, err := m.tasks.GetByDedupKey(ctx, dedupKey)
	if err != nil {
		m.logger.Error("dedup lookup failed", "dedup_key", dedupKey, "error", err.Error())
		return ""
	}
	if !found {
		return ""
	}
	return task.ID
}

func (m *Materializer) notifyOwner(ctx context.Context, task core.Task) {
	if strings.TrimSpace(task.OwnerUserID) == "" {
		return
	}
	notification := core.Notification{
		UserID:    task.OwnerUserID,
		Kind:      core.NotificationKindTaskCreated,
		TaskID:    task.ID,
		Title:     task.Title,
		CreatedAt: time.Now().UTC(),
	}
	if m.notifications != nil {
		stored, err := m.notifications.Append(ctx, notification)
		if err != nil {
			m.logger.Error("notification append failed", "task_id", task.ID, "error", err.Error())
			return
		}
		notification = stored
	}
	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, notification); err != nil {
			m.logger.Error("notification push failed", "task_id", task.ID, "error", err.Error())
		}
	}
}

func priorityFromAnalysis(analysis core.WorkRequestAnalysis) core.TaskPriority {
	if analysis.Urgency == "" {
		return core.TaskPriorityMedium
	}
	return analysis.Urgency
}

func mentionedIDs(decisions []core.AttributionDecision) []string {
	var ids []string
	seen := map[string]struct{}{}
	for _, decision := range decisions {
		id := strings.TrimSpace(decision.AssigneeExternalID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

var _ core.TaskMaterializer = (*Materializer)(nil)
