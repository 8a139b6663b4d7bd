package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrProcessorNotConfigured = errors.New("core: message processor is not configured")
	ErrChatNotConfigured      = errors.New("core: chat service is not configured")
)

// Service is the orchestrating copilot core: it owns the message pipeline,
// the chat flow, and the read surface over tasks, sessions, and
// notifications. All collaborators are injected; there is no module-level
// state.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	identityStore     IdentityStore
	taskStore         TaskStore
	sessionStore      SessionStore
	notificationStore NotificationStore
	notifier          Notifier
	processor         MessageProcessor
	assembler         ContextAssembler
	chat              ChatService
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	if err := builder.runtimeConfig.Validate(); err != nil {
		return nil, err
	}

	provider, logger := glog.Resolve(builder.runtimeConfig.ServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)

	mapper := builder.errorMapper
	if mapper == nil {
		mapper = copilotErrorMapper
	}
	factory := builder.errorFactory
	if factory == nil {
		factory = func(message string, category ...goerrors.Category) *goerrors.Error {
			cat := goerrors.CategoryInternal
			if len(category) > 0 {
				cat = category[0]
			}
			return ensureCopilotErrorEnvelope(goerrors.New(message, cat))
		}
	}

	return &Service{
		config:            builder.runtimeConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      factory,
		errorMapper:       mapper,
		identityStore:     builder.identityStore,
		taskStore:         builder.taskStore,
		sessionStore:      builder.sessionStore,
		notificationStore: builder.notificationStore,
		notifier:          builder.notifier,
		processor:         builder.processor,
		assembler:         builder.assembler,
		chat:              builder.chat,
	}, nil
}

// Setup resolves the layered configuration (defaults < provider < runtime)
// before constructing the service.
func Setup(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	defaults := DefaultConfig()
	loaded := defaults
	if builder.configProvider != nil {
		var err error
		loaded, err = builder.configProvider.Load(context.Background(), defaults)
		if err != nil {
			return nil, err
		}
	}
	resolver := builder.optionsResolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	resolved, err := resolver.Resolve(defaults, loaded, cfg)
	if err != nil {
		return nil, err
	}

	merged := append([]Option{}, options...)
	return NewService(resolved, merged...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return nil
	}
	return s.logger
}

// IngestMessage pushes one connector message through classification,
// attribution, and materialization. Failures in one message never poison the
// pipeline for the next: a panic inside a processor is recovered and
// reported as an operation error for this message only.
func (s *Service) IngestMessage(ctx context.Context, msg Message) (result ProcessResult, err error) {
	startedAt := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			err = s.mapError(fmt.Errorf("core: message processing panicked: %v", recovered))
			result = ProcessResult{}
		}
		s.observeOperation(ctx, startedAt, "ingest_message", err, map[string]any{
			"source_system": msg.SourceSystem,
			"channel_id":    msg.ChannelID,
		})
	}()

	if s == nil || s.processor == nil {
		return ProcessResult{}, s.mapError(ErrProcessorNotConfigured)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return ProcessResult{}, s.mapError(fmt.Errorf("core: message text is required"))
	}
	if strings.TrimSpace(msg.SenderExternalID) == "" {
		return ProcessResult{}, s.mapError(fmt.Errorf("core: message sender is required"))
	}

	result, err = s.processor.Process(ctx, msg)
	if err != nil {
		return ProcessResult{}, s.mapError(err)
	}
	return result, nil
}

// CreateTask handles the explicit user action path: no classification, the
// creator owns the task unless an assignee user is given.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	startedAt := time.Now()
	var err error
	defer func() {
		s.observeOperation(ctx, startedAt, "create_task", err, map[string]any{
			"owner_user_id": in.OwnerUserID,
		})
	}()

	if s == nil || s.taskStore == nil {
		err = s.mapError(fmt.Errorf("core: task store is not configured"))
		return Task{}, err
	}
	if strings.TrimSpace(in.OwnerUserID) == "" {
		err = s.mapError(fmt.Errorf("core: task owner is required"))
		return Task{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		err = s.mapError(fmt.Errorf("core: task title is required"))
		return Task{}, err
	}
	if in.Status == "" {
		in.Status = TaskStatusTodo
	}
	if in.Priority == "" {
		in.Priority = TaskPriorityMedium
	}

	task, createErr := s.taskStore.Create(ctx, in)
	if createErr != nil {
		err = s.mapError(createErr)
		return Task{}, err
	}
	s.notifyOwner(ctx, Notification{
		UserID: task.OwnerUserID,
		Kind:   NotificationKindTaskCreated,
		TaskID: task.ID,
		Title:  task.Title,
	})
	return task, nil
}

func (s *Service) UpdateTaskStatus(ctx context.Context, userID string, taskID string, status TaskStatus) (Task, error) {
	return s.updateOwnedTask(ctx, userID, taskID, UpdateTaskInput{Status: &status}, "update_task_status")
}

func (s *Service) UpdateTaskPriority(ctx context.Context, userID string, taskID string, priority TaskPriority) (Task, error) {
	return s.updateOwnedTask(ctx, userID, taskID, UpdateTaskInput{Priority: &priority}, "update_task_priority")
}

func (s *Service) updateOwnedTask(ctx context.Context, userID string, taskID string, in UpdateTaskInput, operation string) (Task, error) {
	startedAt := time.Now()
	var err error
	defer func() {
		s.observeOperation(ctx, startedAt, operation, err, map[string]any{
			"task_id": taskID,
			"user_id": userID,
		})
	}()

	if s == nil || s.taskStore == nil {
		err = s.mapError(fmt.Errorf("core: task store is not configured"))
		return Task{}, err
	}
	task, getErr := s.taskStore.Get(ctx, taskID)
	if getErr != nil {
		err = s.mapError(getErr)
		return Task{}, err
	}
	if task.OwnerUserID != strings.TrimSpace(userID) {
		err = s.mapError(goerrors.New(
			fmt.Sprintf("core: user %q is not the owner of task %q", userID, taskID),
			goerrors.CategoryAuthz,
		).WithTextCode(CopilotErrorForbidden))
		return Task{}, err
	}
	if in.Status != nil {
		if transitionErr := task.TransitionTo(*in.Status, time.Now().UTC()); transitionErr != nil {
			err = s.mapError(transitionErr)
			return Task{}, err
		}
	}

	updated, updateErr := s.taskStore.Update(ctx, taskID, in)
	if updateErr != nil {
		err = s.mapError(updateErr)
		return Task{}, err
	}
	s.notifyOwner(ctx, Notification{
		UserID: updated.OwnerUserID,
		Kind:   NotificationKindTaskUpdated,
		TaskID: updated.ID,
		Title:  updated.Title,
	})
	return updated, nil
}

func (s *Service) GetTask(ctx context.Context, userID string, taskID string) (Task, error) {
	if s == nil || s.taskStore == nil {
		return Task{}, s.mapError(fmt.Errorf("core: task store is not configured"))
	}
	task, err := s.taskStore.Get(ctx, taskID)
	if err != nil {
		return Task{}, s.mapError(err)
	}
	if task.OwnerUserID != strings.TrimSpace(userID) {
		return Task{}, s.mapError(goerrors.New(
			fmt.Sprintf("core: user %q is not the owner of task %q", userID, taskID),
			goerrors.CategoryAuthz,
		).WithTextCode(CopilotErrorForbidden))
	}
	return task, nil
}

func (s *Service) ListUserTasks(ctx context.Context, userID string, filter TaskFilter) ([]Task, error) {
	if s == nil || s.taskStore == nil {
		return nil, s.mapError(fmt.Errorf("core: task store is not configured"))
	}
	if strings.TrimSpace(userID) == "" {
		return nil, s.mapError(fmt.Errorf("core: user id is required"))
	}
	tasks, err := s.taskStore.ListByOwner(ctx, userID, filter)
	if err != nil {
		return nil, s.mapError(err)
	}
	return tasks, nil
}

func (s *Service) BindIdentity(ctx context.Context, in BindIdentityInput) (IdentityBinding, error) {
	startedAt := time.Now()
	var err error
	defer func() {
		s.observeOperation(ctx, startedAt, "bind_identity", err, map[string]any{
			"provider": in.Provider,
			"user_id":  in.UserID,
		})
	}()

	if s == nil || s.identityStore == nil {
		err = s.mapError(fmt.Errorf("core: identity store is not configured"))
		return IdentityBinding{}, err
	}
	binding, bindErr := s.identityStore.Bind(ctx, in)
	if bindErr != nil {
		err = s.mapError(bindErr)
		return IdentityBinding{}, err
	}
	return binding, nil
}

func (s *Service) SendChatMessage(ctx context.Context, req SendChatRequest) (ChatReply, error) {
	startedAt := time.Now()
	var err error
	defer func() {
		s.observeOperation(ctx, startedAt, "send_chat_message", err, map[string]any{
			"user_id":       req.UserID,
			"workflow_type": req.Scope.WorkflowType,
			"workflow_id":   req.Scope.WorkflowID,
		})
	}()

	if s == nil || s.chat == nil {
		err = s.mapError(ErrChatNotConfigured)
		return ChatReply{}, err
	}
	if accessErr := s.authorizeScope(ctx, req.UserID, req.Scope); accessErr != nil {
		err = s.mapError(accessErr)
		return ChatReply{}, err
	}
	reply, chatErr := s.chat.SendMessage(ctx, req)
	if chatErr != nil {
		err = s.mapError(chatErr)
		return ChatReply{}, err
	}
	return reply, nil
}

// SessionHistory returns the chat history of a session the user owns. Task
// sessions additionally require the task's owner to match.
func (s *Service) SessionHistory(ctx context.Context, userID string, sessionID string, limit int) ([]SessionMessage, error) {
	if s == nil || s.sessionStore == nil {
		return nil, s.mapError(fmt.Errorf("core: session store is not configured"))
	}
	session, err := s.sessionStore.Get(ctx, sessionID)
	if err != nil {
		return nil, s.mapError(err)
	}
	if session.UserID != strings.TrimSpace(userID) {
		return nil, s.mapError(goerrors.New(
			fmt.Sprintf("core: user %q is not the owner of session %q", userID, sessionID),
			goerrors.CategoryAuthz,
		).WithTextCode(CopilotErrorForbidden))
	}
	if limit <= 0 {
		limit = s.config.Chat.HistoryLimit
	}
	history, err := s.sessionStore.History(ctx, sessionID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	return history, nil
}

func (s *Service) ListUserNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if s == nil || s.notificationStore == nil {
		return nil, s.mapError(fmt.Errorf("core: notification store is not configured"))
	}
	if strings.TrimSpace(userID) == "" {
		return nil, s.mapError(fmt.Errorf("core: user id is required"))
	}
	notifications, err := s.notificationStore.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	return notifications, nil
}

func (s *Service) AssembleContext(ctx context.Context, userID string, scope ScopeKey) (ContextDocument, error) {
	if s == nil || s.assembler == nil {
		return ContextDocument{}, s.mapError(fmt.Errorf("core: context assembler is not configured"))
	}
	if err := scope.Validate(); err != nil {
		return ContextDocument{}, s.mapError(err)
	}
	if accessErr := s.authorizeScope(ctx, userID, scope); accessErr != nil {
		return ContextDocument{}, s.mapError(accessErr)
	}
	doc, err := s.assembler.Assemble(ctx, userID, scope)
	if err != nil {
		return ContextDocument{}, s.mapError(err)
	}
	return doc, nil
}

// authorizeScope gates task-scoped chat on task ownership. Team and user
// scopes are gated only on the workflow id matching the caller for user
// scope; team membership lives outside this module.
func (s *Service) authorizeScope(ctx context.Context, userID string, scope ScopeKey) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	switch WorkflowType(strings.ToLower(scope.WorkflowType)) {
	case WorkflowTypeTask:
		if s.taskStore == nil {
			return fmt.Errorf("core: task store is required for task-scoped chat")
		}
		task, err := s.taskStore.Get(ctx, scope.WorkflowID)
		if err != nil {
			return err
		}
		if task.OwnerUserID != strings.TrimSpace(userID) {
			return goerrors.New(
				fmt.Sprintf("core: user %q is not the owner of task %q", userID, scope.WorkflowID),
				goerrors.CategoryAuthz,
			).WithTextCode(CopilotErrorForbidden)
		}
	case WorkflowTypeUser:
		if scope.WorkflowID != strings.TrimSpace(userID) {
			return goerrors.New(
				fmt.Sprintf("core: user scope %q does not belong to user %q", scope.WorkflowID, userID),
				goerrors.CategoryAuthz,
			).WithTextCode(CopilotErrorForbidden)
		}
	}
	return nil
}

func (s *Service) notifyOwner(ctx context.Context, notification Notification) {
	if s == nil {
		return
	}
	if strings.TrimSpace(notification.UserID) == "" {
		return
	}
	notification.CreatedAt = time.Now().UTC()
	if s.notificationStore != nil {
		stored, err := s.notificationStore.Append(ctx, notification)
		if err != nil {
			s.logError(ctx, "notification append failed", map[string]any{
				"user_id": notification.UserID,
				"task_id": notification.TaskID,
				"error":   err.Error(),
			})
			return
		}
		notification = stored
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logError(ctx, "notification push failed", map[string]any{
				"user_id": notification.UserID,
				"task_id": notification.TaskID,
				"error":   err.Error(),
			})
		}
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return copilotErrorMapper(err)
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
