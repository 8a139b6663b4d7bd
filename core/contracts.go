package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Message is the ephemeral connector event. It is consumed once by the
// pipeline; only derived tasks and sessions persist.
type Message struct {
	SourceSystem     string
	ChannelID        string
	SenderExternalID string
	Text             string
	Timestamp        time.Time
	Metadata         map[string]any
}

// WorkRequestAnalysis is the transient classification attached to a message
// before task creation. Err carries a classification failure as data; a
// failed classification never propagates as a returned error.
type WorkRequestAnalysis struct {
	IsWorkRequest bool
	Confidence    float64
	Urgency       Urgency
	WorkType      string
	Reason        string
	Err           error
}

type AttributionKind string

const (
	AttributionKindResolved     AttributionKind = "resolved"
	AttributionKindDelegated    AttributionKind = "delegated"
	AttributionKindSelfAssigned AttributionKind = "self_assigned"
)

// AttributionDecision says who one derived task is for. A single message can
// yield several decisions (one per resolved mentioned user).
type AttributionDecision struct {
	Kind               AttributionKind
	AssignorExternalID string
	AssigneeExternalID string
	AssigneeUserID     string
	OwnerUserID        string
	Tags               []string
}

// AssigneeRef returns the stable reference used in the dedup key: the
// internal user id when resolved, the raw external id otherwise.
func (d AttributionDecision) AssigneeRef() string {
	if d.AssigneeUserID != "" {
		return d.AssigneeUserID
	}
	return d.AssigneeExternalID
}

type CreateTaskInput struct {
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
}

// UpdateTaskInput carries partial updates; nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *TaskPriority
	Status      *TaskStatus
	Tags        *[]string
}

type TaskFilter struct {
	Status   TaskStatus
	Priority TaskPriority
	Tag      string
	Limit    int
}

type BindIdentityInput struct {
	Provider    string
	ExternalID  string
	UserID      string
	DisplayName string
	Metadata    map[string]any
	// Force supersedes an existing binding to a different user. Without it,
	// a conflicting bind fails instead of silently overwriting.
	Force bool
}

type AppendMessageInput struct {
	SessionID string
	Role      MessageRole
	Text      string
	Actions   []StructuredAction
}

type IdentityStore interface {
	Resolve(ctx context.Context, provider string, externalID string) (IdentityBinding, bool, error)
	Bind(ctx context.Context, in BindIdentityInput) (IdentityBinding, error)
	ListByUser(ctx context.Context, userID string) ([]IdentityBinding, error)
}

type TaskStore interface {
	Create(ctx context.Context, in CreateTaskInput) (Task, error)
	Get(ctx context.Context, id string) (Task, error)
	GetByDedupKey(ctx context.Context, dedupKey string) (Task, bool, error)
	Update(ctx context.Context, id string, in UpdateTaskInput) (Task, error)
	ListByOwner(ctx context.Context, ownerUserID string, filter TaskFilter) ([]Task, error)
}

type SessionStore interface {
	GetOrCreate(ctx context.Context, userID string, scope ScopeKey) (ConversationSession, error)
	Get(ctx context.Context, id string) (ConversationSession, error)
	AppendMessage(ctx context.Context, in AppendMessageInput) (SessionMessage, error)
	History(ctx context.Context, sessionID string, limit int) ([]SessionMessage, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

type NotificationStore interface {
	Append(ctx context.Context, notification Notification) (Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}

// StoreProvider bundles the persistence stores a fully wired service needs.
type StoreProvider interface {
	IdentityStore() IdentityStore
	TaskStore() TaskStore
	SessionStore() SessionStore
	NotificationStore() NotificationStore
}

// Notifier pushes a stored notification towards the UI shell. Delivery is
// best-effort; persistence is the source of truth.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// ClaimStore guards at-most-once processing of redelivered connector events
// and reprocessed messages.
type ClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (claimID string, accepted bool, err error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

type Classifier interface {
	Classify(ctx context.Context, msg Message) WorkRequestAnalysis
}

type MentionExtractor interface {
	Extract(text string) []string
}

type AttributionResolver interface {
	Resolve(ctx context.Context, msg Message, mentions []string) ([]AttributionDecision, error)
}

type ProcessOutcome string

const (
	ProcessOutcomeTasksCreated   ProcessOutcome = "tasks_created"
	ProcessOutcomeNotWorkRequest ProcessOutcome = "not_work_request"
	ProcessOutcomeDeduplicated   ProcessOutcome = "deduplicated"
)

type ProcessResult struct {
	Outcome       ProcessOutcome
	Analysis      WorkRequestAnalysis
	TaskIDs       []string
	DedupedTaskID string
	Metadata      map[string]any
}

type MessageProcessor interface {
	Process(ctx context.Context, msg Message) (ProcessResult, error)
}

type TaskMaterializer interface {
	Materialize(ctx context.Context, msg Message, analysis WorkRequestAnalysis, decisions []AttributionDecision) (ProcessResult, error)
}

// StructuredAction is a tagged side effect the collaborator asks for
// explicitly, replacing marker-string scraping of free-form model output.
type StructuredAction struct {
	Type   string
	Params map[string]any
}

type CompletionMessage struct {
	Role MessageRole
	Text string
}

type CompletionRequest struct {
	SystemPrompt string
	History      []CompletionMessage
	UserMessage  string
	Metadata     map[string]any
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

type CompletionResult struct {
	ReplyText string
	Actions   []StructuredAction
	Usage     TokenUsage
	Metadata  map[string]any
}

// Collaborator is the opaque AI model boundary: fallible, no latency bound.
type Collaborator interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// ContextDocument is the prompt-shaped rendering of a scope's recent history.
type ContextDocument struct {
	Scope      ScopeKey
	Body       string
	ItemCounts map[string]int
	Truncated  bool
}

type ContextAssembler interface {
	Assemble(ctx context.Context, userID string, scope ScopeKey) (ContextDocument, error)
}

// Meeting and RepoIndex are read-side context items sourced from connector
// sync state; the assembler treats their sources as optional.
type Meeting struct {
	ID        string
	Title     string
	StartsAt  time.Time
	Attendees []string
}

type RepoIndex struct {
	Name       string
	FileCount  int
	IndexedAt  time.Time
	PrimaryRef string
}

type MeetingSource interface {
	RecentMeetings(ctx context.Context, userID string, limit int) ([]Meeting, error)
}

type RepoSource interface {
	IndexedRepos(ctx context.Context, userID string, limit int) ([]RepoIndex, error)
}

type SendChatRequest struct {
	UserID   string
	Scope    ScopeKey
	Text     string
	Metadata map[string]any
}

type ChatReply struct {
	SessionID string
	ReplyText string
	Actions   []StructuredAction
	Degraded  bool
}

type ChatService interface {
	SendMessage(ctx context.Context, req SendChatRequest) (ChatReply, error)
	History(ctx context.Context, userID string, sessionID string, limit int) ([]SessionMessage, error)
}

// InboundEvent is a raw connector delivery before parsing. Surface mirrors
// the vendor's delivery channel.
type InboundEvent struct {
	SourceSystem string
	Surface      string
	Headers      map[string]string
	Body         []byte
	Metadata     map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Process    *ProcessResult
	Metadata   map[string]any
}

// ConnectorHandler parses one vendor's inbound payloads into Messages.
// ok=false means the event is valid but carries nothing to process (bot
// echoes, edits, pings).
type ConnectorHandler interface {
	SourceSystem() string
	Surface() string
	Parse(ctx context.Context, event InboundEvent) (msg Message, ok bool, err error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// CopilotService is the full operation surface exposed to commands, queries,
// and embedding hosts.
type CopilotService interface {
	IngestMessage(ctx context.Context, msg Message) (ProcessResult, error)
	CreateTask(ctx context.Context, in CreateTaskInput) (Task, error)
	UpdateTaskStatus(ctx context.Context, userID string, taskID string, status TaskStatus) (Task, error)
	UpdateTaskPriority(ctx context.Context, userID string, taskID string, priority TaskPriority) (Task, error)
	GetTask(ctx context.Context, userID string, taskID string) (Task, error)
	ListUserTasks(ctx context.Context, userID string, filter TaskFilter) ([]Task, error)
	BindIdentity(ctx context.Context, in BindIdentityInput) (IdentityBinding, error)
	SendChatMessage(ctx context.Context, req SendChatRequest) (ChatReply, error)
	SessionHistory(ctx context.Context, userID string, sessionID string, limit int) ([]SessionMessage, error)
	ListUserNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
	AssembleContext(ctx context.Context, userID string, scope ScopeKey) (ContextDocument, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
