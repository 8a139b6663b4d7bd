package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
)

const (
	defaultHistoryLimit = 50
	defaultTimeout      = 30 * time.Second
	defaultCacheSize    = 512

	systemPrompt = `You are a workplace copilot embedded in the user's task and chat
history. Answer concisely. When an action should happen (scheduling,
task creation, reminders), include it in the structured actions of your
JSON reply; never describe actions as markers inside prose.`

	degradedReply = "I'm having trouble reaching my reasoning service right now. Your message is saved and this conversation will pick up where it left off."
)

// Service runs the conversational flow: session upsert, user-message append,
// context assembly, collaborator call, reply persistence. The session-id
// cache is a fast path only; the store's unique-active-session transaction
// is what keeps two racing calls on one session.
type Service struct {
	sessions     core.SessionStore
	assembler    core.ContextAssembler
	collaborator core.Collaborator
	jobs         core.JobEnqueuer
	sessionIDs   *lru.Cache[string, string]
	timeout      time.Duration
	historyLimit int
	logger       core.Logger
}

type Option func(*Service)

func WithAssembler(assembler core.ContextAssembler) Option {
	return func(s *Service) {
		s.assembler = assembler
	}
}

func WithJobEnqueuer(jobs core.JobEnqueuer) Option {
	return func(s *Service) {
		s.jobs = jobs
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

func WithSessionCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			if cache, err := lru.New[string, string](size); err == nil {
				s.sessionIDs = cache
			}
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(sessions core.SessionStore, collaborator core.Collaborator, options ...Option) (*Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("chat: session store is required")
	}
	if collaborator == nil {
		return nil, fmt.Errorf("chat: collaborator is required")
	}

	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("chat: session cache: %w", err)
	}
	s := &Service{
		sessions:     sessions,
		collaborator: collaborator,
		sessionIDs:   cache,
		timeout:      defaultTimeout,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = glog.Ensure(s.logger)
	return s, nil
}

func (s *Service) SendMessage(ctx context.Context, req core.SendChatRequest) (core.ChatReply, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return core.ChatReply{}, fmt.Errorf("chat: user id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return core.ChatReply{}, fmt.Errorf("chat: message text is required")
	}
	if err := req.Scope.Validate(); err != nil {
		return core.ChatReply{}, err
	}

	session, err := s.resolveSession(ctx, req.UserID, req.Scope)
	if err != nil {
		return core.ChatReply{}, err
	}

	// The user message lands before anything fallible happens; a failed
	// collaborator call must not erase what the user said.
	userMsg, err := s.sessions.AppendMessage(ctx, core.AppendMessageInput{
		SessionID: session.ID,
		Role:      core.MessageRoleUser,
		Text:      req.Text,
	})
	if err != nil {
		return core.ChatReply{}, fmt.Errorf("chat: append user message: %w", err)
	}

	history, err := s.sessions.History(ctx, session.ID, s.historyLimit)
	if err != nil {
		s.logger.Error("history load failed", "session_id", session.ID, "error", err.Error())
		history = nil
	}

	result, completeErr := s.complete(ctx, req, session, history, userMsg.ID)
	if completeErr != nil {
		s.logger.Error("collaborator failed, degrading reply",
			"session_id", session.ID,
			"error", completeErr.Error(),
		)
		result = core.CompletionResult{ReplyText: degradedReply}
	}

	assistantMsg, err := s.sessions.AppendMessage(ctx, core.AppendMessageInput{
		SessionID: session.ID,
		Role:      core.MessageRoleAssistant,
		Text:      result.ReplyText,
		Actions:   result.Actions,
	})
	if err != nil {
		return core.ChatReply{}, fmt.Errorf("chat: append assistant message: %w", err)
	}
	if err := s.sessions.Touch(ctx, session.ID, assistantMsg.CreatedAt); err != nil {
		s.logger.Error("session touch failed", "session_id", session.ID, "error", err.Error())
	}

	if completeErr == nil {
		s.enqueueActions(ctx, session, assistantMsg.ID, result.Actions)
	}

	return core.ChatReply{
		SessionID: session.ID,
		ReplyText: result.ReplyText,
		Actions:   result.Actions,
		Degraded:  completeErr != nil,
	}, nil
}

func (s *Service) History(ctx context.Context, userID string, sessionID string, limit int) ([]core.SessionMessage, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != strings.TrimSpace(userID) {
		return nil, goerrors.New(
			fmt.Sprintf("chat: user %q is not the owner of session %q", userID, sessionID),
			goerrors.CategoryAuthz,
		)
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.sessions.History(ctx, sessionID, limit)
}

func (s *Service) resolveSession(ctx context.Context, userID string, scope core.ScopeKey) (core.ConversationSession, error) {
	cacheKey := userID + "|" + scope.String()
	if sessionID, ok := s.sessionIDs.Get(cacheKey); ok {
		session, err := s.sessions.Get(ctx, sessionID)
		if err == nil && session.Status == core.SessionStatusActive {
			return session, nil
		}
		s.sessionIDs.Remove(cacheKey)
	}

	session, err := s.sessions.GetOrCreate(ctx, userID, scope)
	if err != nil {
		return core.ConversationSession{}, fmt.Errorf("chat: session upsert: %w", err)
	}
	s.sessionIDs.Add(cacheKey, session.ID)
	return session, nil
}

func (s *Service) complete(
	ctx context.Context,
	req core.SendChatRequest,
	session core.ConversationSession,
	history []core.SessionMessage,
	userMessageID string,
) (core.CompletionResult, error) {
	prompt := systemPrompt
	if s.assembler != nil {
		doc, err := s.assembler.Assemble(ctx, req.UserID, req.Scope)
		if err != nil {
			s.logger.Error("context assembly failed", "session_id", session.ID, "error", err.Error())
		} else if strings.TrimSpace(doc.Body) != "" {
			prompt = prompt + "\n\n# Context\n" + doc.Body
		}
	}

	completionHistory := make([]core.CompletionMessage, 0, len(history))
	for _, entry := range history {
		if entry.ID == userMessageID {
			// The just-appended user message goes in as UserMessage, not
			// duplicated through history.
			continue
		}
		completionHistory = append(completionHistory, core.CompletionMessage{Role: entry.Role, Text: entry.Text})
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.collaborator.Complete(ctx, core.CompletionRequest{
		SystemPrompt: prompt,
		History:      completionHistory,
		UserMessage:  req.Text,
		Metadata:     req.Metadata,
	})
}

func (s *Service) enqueueActions(ctx context.Context, session core.ConversationSession, messageID string, actions []core.StructuredAction) {
	if s.jobs == nil || len(actions) == 0 {
		return
	}
	for i, action := range actions {
		msg := &core.JobExecutionMessage{
			JobID:          uuid.NewString(),
			ScriptPath:     "actions/" + action.Type,
			Parameters:     action.Params,
			IdempotencyKey: fmt.Sprintf("%s:%s:%d", messageID, action.Type, i),
		}
		if err := s.jobs.Enqueue(ctx, msg); err != nil {
			s.logger.Error("action enqueue failed",
				"session_id", session.ID,
				"action_type", action.Type,
				"error", err.Error(),
			)
		}
	}
}

var _ core.ChatService = (*Service)(nil)
