package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-copilot/core"
)

type fakeSessionStore struct {
	sessions      map[string]core.ConversationSession
	messages      map[string][]core.SessionMessage
	getOrCreateN  int
	nextSessionID int
	nextMessageID int
	appendErr     error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: map[string]core.ConversationSession{},
		messages: map[string][]core.SessionMessage{},
	}
}

func (f *fakeSessionStore) GetOrCreate(_ context.Context, userID string, scope core.ScopeKey) (core.ConversationSession, error) {
	f.getOrCreateN++
	for _, session := range f.sessions {
		if session.UserID == userID && session.Scope() == scope && session.Status == core.SessionStatusActive {
			return session, nil
		}
	}
	f.nextSessionID++
	session := core.ConversationSession{
		ID:           fmt.Sprintf("session-%d", f.nextSessionID),
		UserID:       userID,
		WorkflowType: scope.WorkflowType,
		WorkflowID:   scope.WorkflowID,
		Status:       core.SessionStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (core.ConversationSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return core.ConversationSession{}, core.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessionStore) AppendMessage(_ context.Context, in core.AppendMessageInput) (core.SessionMessage, error) {
	if f.appendErr != nil {
		return core.SessionMessage{}, f.appendErr
	}
	f.nextMessageID++
	msg := core.SessionMessage{
		ID:        fmt.Sprintf("msg-%d", f.nextMessageID),
		SessionID: in.SessionID,
		Role:      in.Role,
		Text:      in.Text,
		Actions:   in.Actions,
		CreatedAt: time.Now().UTC(),
	}
	f.messages[in.SessionID] = append(f.messages[in.SessionID], msg)
	return msg, nil
}

func (f *fakeSessionStore) History(_ context.Context, sessionID string, limit int) ([]core.SessionMessage, error) {
	history := f.messages[sessionID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (f *fakeSessionStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	session, ok := f.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	session.LastMessageAt = at
	f.sessions[sessionID] = session
	return nil
}

type fakeCollaborator struct {
	result core.CompletionResult
	err    error
	gotReq core.CompletionRequest
	calls  int
}

func (f *fakeCollaborator) Complete(_ context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	f.calls++
	f.gotReq = req
	return f.result, f.err
}

type fakeAssembler struct {
	doc core.ContextDocument
	err error
}

func (f fakeAssembler) Assemble(context.Context, string, core.ScopeKey) (core.ContextDocument, error) {
	return f.doc, f.err
}

type fakeEnqueuer struct {
	enqueued []*core.JobExecutionMessage
	err      error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, msg)
	return nil
}

func taskScope() core.ScopeKey {
	return core.ScopeKey{WorkflowType: "task", WorkflowID: "task-1"}
}

func TestSendMessage_FullFlow(t *testing.T) {
	store := newFakeSessionStore()
	collab := &fakeCollaborator{result: core.CompletionResult{
		ReplyText: "On it.",
		Actions:   []core.StructuredAction{{Type: "schedule_meeting", Params: map[string]any{"title": "Sync"}}},
	}}
	jobs := &fakeEnqueuer{}
	service, err := New(store, collab,
		WithAssembler(fakeAssembler{doc: core.ContextDocument{Body: "## Open tasks\n- Fix login bug"}}),
		WithJobEnqueuer(jobs),
	)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	reply, err := service.SendMessage(context.Background(), core.SendChatRequest{
		UserID: "user-ana",
		Scope:  taskScope(),
		Text:   "what's next?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Degraded {
		t.Fatalf("expected healthy reply")
	}
	if reply.ReplyText != "On it." {
		t.Fatalf("unexpected reply %q", reply.ReplyText)
	}

	history := store.messages[reply.SessionID]
	if len(history) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(history))
	}
	if history[0].Role != core.MessageRoleUser || history[0].Text != "what's next?" {
		t.Fatalf("expected user message first, got %+v", history[0])
	}
	if history[1].Role != core.MessageRoleAssistant || len(history[1].Actions) != 1 {
		t.Fatalf("expected assistant message with actions, got %+v", history[1])
	}

	if !strings.Contains(collab.gotReq.SystemPrompt, "Fix login bug") {
		t.Fatalf("expected assembled context in system prompt:\n%s", collab.gotReq.SystemPrompt)
	}
	if len(jobs.enqueued) != 1 || jobs.enqueued[0].ScriptPath != "actions/schedule_meeting" {
		t.Fatalf("expected action enqueued, got %+v", jobs.enqueued)
	}

	if session := store.sessions[reply.SessionID]; session.LastMessageAt.IsZero() {
		t.Fatalf("expected session touched")
	}
}

func TestSendMessage_CollaboratorFailureDegrades(t *testing.T) {
	store := newFakeSessionStore()
	collab := &fakeCollaborator{err: errors.New("model offline")}
	jobs := &fakeEnqueuer{}
	service, err := New(store, collab, WithJobEnqueuer(jobs))
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	reply, err := service.SendMessage(context.Background(), core.SendChatRequest{
		UserID: "user-ana",
		Scope:  taskScope(),
		Text:   "what's next?",
	})
	if err != nil {
		t.Fatalf("collaborator failure must degrade, not fail: %v", err)
	}
	if !reply.Degraded {
		t.Fatalf("expected degraded reply")
	}
	if reply.ReplyText == "" {
		t.Fatalf("expected apologetic reply text")
	}

	history := store.messages[reply.SessionID]
	if len(history) != 2 {
		t.Fatalf("expected user message kept plus degraded assistant reply, got %d", len(history))
	}
	if history[0].Role != core.MessageRoleUser {
		t.Fatalf("expected user message preserved, got %+v", history[0])
	}
	if len(jobs.enqueued) != 0 {
		t.Fatalf("degraded replies must not enqueue actions, got %+v", jobs.enqueued)
	}
}

func TestSendMessage_ReusesSessionPerScope(t *testing.T) {
	store := newFakeSessionStore()
	service, err := New(store, &fakeCollaborator{result: core.CompletionResult{ReplyText: "ok"}})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	first, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "user-ana", Scope: taskScope(), Text: "one"})
	if err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	second, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "user-ana", Scope: taskScope(), Text: "two"})
	if err != nil {
		t.Fatalf("second send failed: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("expected one session per scope, got %q and %q", first.SessionID, second.SessionID)
	}
	if store.getOrCreateN != 1 {
		t.Fatalf("expected cached session id to skip upsert, got %d upserts", store.getOrCreateN)
	}
	if len(store.sessions) != 1 {
		t.Fatalf("expected single session, got %d", len(store.sessions))
	}
}

func TestSendMessage_RepeatedTextKeepsEarlierTurns(t *testing.T) {
	store := newFakeSessionStore()
	collab := &fakeCollaborator{result: core.CompletionResult{ReplyText: "ok"}}
	service, err := New(store, collab)
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	if _, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "user-ana", Scope: taskScope(), Text: "status?"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if _, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "user-ana", Scope: taskScope(), Text: "status?"}); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	// Only the freshly appended copy of "status?" is excluded from history;
	// the earlier identical turn still reaches the collaborator.
	var userTurns int
	for _, entry := range collab.gotReq.History {
		if entry.Role == core.MessageRoleUser && entry.Text == "status?" {
			userTurns++
		}
	}
	if userTurns != 1 {
		t.Fatalf("expected earlier identical user turn in history exactly once, got %d:\n%+v", userTurns, collab.gotReq.History)
	}
	if len(collab.gotReq.History) != 2 {
		t.Fatalf("expected prior user+assistant turns in history, got %+v", collab.gotReq.History)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	service, err := New(newFakeSessionStore(), &fakeCollaborator{})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	if _, err := service.SendMessage(context.Background(), core.SendChatRequest{Scope: taskScope(), Text: "x"}); err == nil {
		t.Fatalf("expected user id requirement")
	}
	if _, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "u", Scope: taskScope()}); err == nil {
		t.Fatalf("expected text requirement")
	}
	if _, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "u", Scope: core.ScopeKey{WorkflowType: "bogus", WorkflowID: "x"}, Text: "x"}); err == nil {
		t.Fatalf("expected scope validation")
	}
}

func TestHistory_OwnerOnly(t *testing.T) {
	store := newFakeSessionStore()
	service, err := New(store, &fakeCollaborator{result: core.CompletionResult{ReplyText: "ok"}})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	reply, err := service.SendMessage(context.Background(), core.SendChatRequest{UserID: "user-ana", Scope: taskScope(), Text: "hello"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	history, err := service.History(context.Background(), "user-ana", reply.SessionID, 10)
	if err != nil {
		t.Fatalf("owner history failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}

	if _, err := service.History(context.Background(), "user-eve", reply.SessionID, 10); err == nil {
		t.Fatalf("expected non-owner access to be rejected")
	}
}
