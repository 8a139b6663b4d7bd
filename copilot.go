package copilot

import "github.com/goliatone/go-copilot/core"

type Config = core.Config

type ClassifierConfig = core.ClassifierConfig

type Option = core.Option

type Service = core.Service

type Message = core.Message
type ProcessResult = core.ProcessResult
type Task = core.Task
type TaskFilter = core.TaskFilter
type CreateTaskInput = core.CreateTaskInput
type UpdateTaskInput = core.UpdateTaskInput
type BindIdentityInput = core.BindIdentityInput
type IdentityBinding = core.IdentityBinding
type SendChatRequest = core.SendChatRequest
type ChatReply = core.ChatReply
type ScopeKey = core.ScopeKey
type SessionMessage = core.SessionMessage
type Notification = core.Notification
type ContextDocument = core.ContextDocument

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithIdentityStore       = core.WithIdentityStore
	WithTaskStore           = core.WithTaskStore
	WithSessionStore        = core.WithSessionStore
	WithNotificationStore   = core.WithNotificationStore
	WithNotifier            = core.WithNotifier
	WithClaimStore          = core.WithClaimStore
	WithCollaborator        = core.WithCollaborator
	WithClassifier          = core.WithClassifier
	WithMentionExtractor    = core.WithMentionExtractor
	WithAttributionResolver = core.WithAttributionResolver
	WithMessageProcessor    = core.WithMessageProcessor
	WithTaskMaterializer    = core.WithTaskMaterializer
	WithContextAssembler    = core.WithContextAssembler
	WithChatService         = core.WithChatService
	WithJobEnqueuer         = core.WithJobEnqueuer
	WithMeetingSource       = core.WithMeetingSource
	WithRepoSource          = core.WithRepoSource
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
