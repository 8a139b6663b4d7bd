package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-copilot/core"
)

type stubReaders struct {
	getTaskFn       func(ctx context.Context, userID, taskID string) (core.Task, error)
	listTasksFn     func(ctx context.Context, userID string, filter core.TaskFilter) ([]core.Task, error)
	historyFn       func(ctx context.Context, userID, sessionID string, limit int) ([]core.SessionMessage, error)
	notificationsFn func(ctx context.Context, userID string, limit int) ([]core.Notification, error)
	assembleFn      func(ctx context.Context, userID string, scope core.ScopeKey) (core.ContextDocument, error)
}

func (s stubReaders) GetTask(ctx context.Context, userID, taskID string) (core.Task, error) {
	if s.getTaskFn == nil {
		return core.Task{}, fmt.Errorf("unexpected get task call")
	}
	return s.getTaskFn(ctx, userID, taskID)
}

func (s stubReaders) ListUserTasks(ctx context.Context, userID string, filter core.TaskFilter) ([]core.Task, error) {
	if s.listTasksFn == nil {
		return nil, fmt.Errorf("unexpected list tasks call")
	}
	return s.listTasksFn(ctx, userID, filter)
}

func (s stubReaders) SessionHistory(ctx context.Context, userID, sessionID string, limit int) ([]core.SessionMessage, error) {
	if s.historyFn == nil {
		return nil, fmt.Errorf("unexpected history call")
	}
	return s.historyFn(ctx, userID, sessionID, limit)
}

func (s stubReaders) ListUserNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	if s.notificationsFn == nil {
		return nil, fmt.Errorf("unexpected notifications call")
	}
	return s.notificationsFn(ctx, userID, limit)
}

func (s stubReaders) AssembleContext(ctx context.Context, userID string, scope core.ScopeKey) (core.ContextDocument, error) {
	if s.assembleFn == nil {
		return core.ContextDocument{}, fmt.Errorf("unexpected assemble call")
	}
	return s.assembleFn(ctx, userID, scope)
}

func TestQueries_DelegateToReaders(t *testing.T) {
	t.Run("get task", func(t *testing.T) {
		readers := stubReaders{
			getTaskFn: func(_ context.Context, userID, taskID string) (core.Task, error) {
				if userID != "user-1" || taskID != "task-1" {
					t.Fatalf("unexpected payload %q %q", userID, taskID)
				}
				return core.Task{ID: taskID, OwnerUserID: userID}, nil
			},
		}
		q := NewGetTaskQuery(readers)
		task, err := q.Query(context.Background(), GetTaskMessage{UserID: "user-1", TaskID: "task-1"})
		if err != nil {
			t.Fatalf("query get task: %v", err)
		}
		if task.ID != "task-1" {
			t.Fatalf("unexpected task %+v", task)
		}
	})

	t.Run("list tasks forwards filter", func(t *testing.T) {
		readers := stubReaders{
			listTasksFn: func(_ context.Context, _ string, filter core.TaskFilter) ([]core.Task, error) {
				if filter.Status != core.TaskStatusTodo || filter.Limit != 5 {
					t.Fatalf("unexpected filter %+v", filter)
				}
				return []core.Task{{ID: "task-1"}}, nil
			},
		}
		q := NewListUserTasksQuery(readers)
		tasks, err := q.Query(context.Background(), ListUserTasksMessage{
			UserID: "user-1",
			Filter: core.TaskFilter{Status: core.TaskStatusTodo, Limit: 5},
		})
		if err != nil {
			t.Fatalf("query list tasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected one task, got %d", len(tasks))
		}
	})

	t.Run("session history", func(t *testing.T) {
		readers := stubReaders{
			historyFn: func(_ context.Context, userID, sessionID string, limit int) ([]core.SessionMessage, error) {
				if sessionID != "sess-1" || limit != 20 {
					t.Fatalf("unexpected payload %q %d", sessionID, limit)
				}
				return []core.SessionMessage{{ID: "msg-1", SessionID: sessionID}}, nil
			},
		}
		q := NewGetSessionHistoryQuery(readers)
		history, err := q.Query(context.Background(), GetSessionHistoryMessage{
			UserID:    "user-1",
			SessionID: "sess-1",
			Limit:     20,
		})
		if err != nil {
			t.Fatalf("query history: %v", err)
		}
		if len(history) != 1 || history[0].ID != "msg-1" {
			t.Fatalf("unexpected history %+v", history)
		}
	})

	t.Run("notifications", func(t *testing.T) {
		readers := stubReaders{
			notificationsFn: func(_ context.Context, userID string, limit int) ([]core.Notification, error) {
				return []core.Notification{{ID: "note-1", UserID: userID}}, nil
			},
		}
		q := NewListUserNotificationsQuery(readers)
		notes, err := q.Query(context.Background(), ListUserNotificationsMessage{UserID: "user-1", Limit: 10})
		if err != nil {
			t.Fatalf("query notifications: %v", err)
		}
		if len(notes) != 1 {
			t.Fatalf("expected one notification, got %d", len(notes))
		}
	})

	t.Run("assemble context", func(t *testing.T) {
		readers := stubReaders{
			assembleFn: func(_ context.Context, _ string, scope core.ScopeKey) (core.ContextDocument, error) {
				return core.ContextDocument{Scope: scope, Body: "## Open tasks"}, nil
			},
		}
		q := NewAssembleContextQuery(readers)
		doc, err := q.Query(context.Background(), AssembleContextMessage{
			UserID: "user-1",
			Scope:  core.ScopeKey{WorkflowType: "user", WorkflowID: "user-1"},
		})
		if err != nil {
			t.Fatalf("query assemble: %v", err)
		}
		if doc.Body == "" {
			t.Fatalf("expected context body")
		}
	})
}

func TestQueries_NilReaderFails(t *testing.T) {
	if _, err := (&GetTaskQuery{}).Query(context.Background(), GetTaskMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
	if _, err := (&AssembleContextQuery{}).Query(context.Background(), AssembleContextMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestQueryMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{"valid get", GetTaskMessage{UserID: "u1", TaskID: "t1"}, false},
		{"get missing task", GetTaskMessage{UserID: "u1"}, true},
		{"list negative limit", ListUserTasksMessage{UserID: "u1", Filter: core.TaskFilter{Limit: -1}}, true},
		{"history missing session", GetSessionHistoryMessage{UserID: "u1"}, true},
		{"notifications valid", ListUserNotificationsMessage{UserID: "u1", Limit: 5}, false},
		{"assemble invalid scope", AssembleContextMessage{UserID: "u1", Scope: core.ScopeKey{WorkflowType: "sprint", WorkflowID: "s1"}}, true},
		{"assemble valid", AssembleContextMessage{UserID: "u1", Scope: core.ScopeKey{WorkflowType: "team", WorkflowID: "eng"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
