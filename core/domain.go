package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidWorkflowType         = errors.New("core: invalid workflow type")
	ErrInvalidTaskStatusTransition = errors.New("core: invalid task status transition")
	ErrInvalidTaskPriority         = errors.New("core: invalid task priority")
	ErrInvalidSessionStatus        = errors.New("core: invalid session status")
	ErrIdentityConflict            = errors.New("core: external identity already bound to another user")
	ErrTaskNotFound                = errors.New("core: task not found")
	ErrSessionNotFound             = errors.New("core: session not found")
)

type WorkflowType string

const (
	WorkflowTypeTask WorkflowType = "task"
	WorkflowTypeTeam WorkflowType = "team"
	WorkflowTypeUser WorkflowType = "user"
)

// ScopeKey identifies a chat context: a task thread, a team room, or a
// per-user productivity thread.
type ScopeKey struct {
	WorkflowType string
	WorkflowID   string
}

func (s ScopeKey) Validate() error {
	t := strings.TrimSpace(strings.ToLower(s.WorkflowType))
	switch WorkflowType(t) {
	case WorkflowTypeTask, WorkflowTypeTeam, WorkflowTypeUser:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidWorkflowType, s.WorkflowType)
	}
	if strings.TrimSpace(s.WorkflowID) == "" {
		return fmt.Errorf("%w: empty workflow id", ErrInvalidWorkflowType)
	}
	return nil
}

func (s ScopeKey) String() string {
	return strings.TrimSpace(strings.ToLower(s.WorkflowType)) + ":" + strings.TrimSpace(s.WorkflowID)
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

func ParseTaskPriority(value string) (TaskPriority, error) {
	switch TaskPriority(strings.TrimSpace(strings.ToLower(value))) {
	case TaskPriorityLow:
		return TaskPriorityLow, nil
	case TaskPriorityMedium:
		return TaskPriorityMedium, nil
	case TaskPriorityHigh:
		return TaskPriorityHigh, nil
	case TaskPriorityCritical:
		return TaskPriorityCritical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskPriority, value)
	}
}

// Urgency mirrors TaskPriority values; classification speaks "urgency",
// persisted tasks speak "priority".
type Urgency = TaskPriority

const (
	TagDelegated    = "delegated"
	TagSelfAssigned = "self-assigned"
)

// Task is the durable unit of work derived from a classified message or an
// explicit user action.
type Task struct {
	ID                   string
	OwnerUserID          string
	Title                string
	Description          string
	Priority             TaskPriority
	Status               TaskStatus
	AssignorExternalID   string
	AssigneeExternalID   string
	AssigneeUserID       string
	MentionedExternalIDs []string
	ParentTaskID         string
	Tags                 []string
	DedupKey             string
	SourceSystem         string
	SourceChannelID      string
	CreatedAt            time.Time
	LastActivityAt       time.Time
}

func (t *Task) TransitionTo(status TaskStatus, now time.Time) error {
	if t == nil {
		return nil
	}
	if t.Status == status {
		t.LastActivityAt = now
		return nil
	}
	if !taskTransitionAllowed(t.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTaskStatusTransition, t.Status, status)
	}
	t.Status = status
	t.LastActivityAt = now
	return nil
}

func taskTransitionAllowed(current, next TaskStatus) bool {
	allowed := map[TaskStatus]map[TaskStatus]struct{}{
		TaskStatusTodo: {
			TaskStatusInProgress: {},
			TaskStatusCompleted:  {},
		},
		TaskStatusInProgress: {
			TaskStatusTodo:      {},
			TaskStatusCompleted: {},
		},
		TaskStatusCompleted: {
			TaskStatusInProgress: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

type SessionStatus string

const (
	SessionStatusActive   SessionStatus = "active"
	SessionStatusArchived SessionStatus = "archived"
)

// ConversationSession is a chat thread scoped to a (user, workflow_type,
// workflow_id) tuple. At most one active session exists per tuple; messages
// append to the existing session.
type ConversationSession struct {
	ID            string
	UserID        string
	WorkflowType  string
	WorkflowID    string
	Title         string
	Status        SessionStatus
	CreatedAt     time.Time
	LastMessageAt time.Time
}

func (s ConversationSession) Scope() ScopeKey {
	return ScopeKey{WorkflowType: s.WorkflowType, WorkflowID: s.WorkflowID}
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

type SessionMessage struct {
	ID        string
	SessionID string
	Role      MessageRole
	Text      string
	Actions   []StructuredAction
	CreatedAt time.Time
}

type IdentityBindingStatus string

const (
	IdentityBindingStatusActive     IdentityBindingStatus = "active"
	IdentityBindingStatusSuperseded IdentityBindingStatus = "superseded"
)

// IdentityBinding maps an external identity (a Slack member id, a GitHub
// login) to an internal user. An external identity binds to at most one
// internal user at a time.
type IdentityBinding struct {
	ID          string
	Provider    string
	ExternalID  string
	UserID      string
	DisplayName string
	Status      IdentityBindingStatus
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type NotificationKind string

const (
	NotificationKindTaskCreated NotificationKind = "task.created"
	NotificationKindTaskUpdated NotificationKind = "task.updated"
)

// Notification is a UI-facing event scoped to exactly one user.
type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	TaskID    string
	Title     string
	Body      string
	Metadata  map[string]any
	CreatedAt time.Time
}
