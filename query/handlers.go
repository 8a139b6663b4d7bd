package query

import (
	"context"

	"github.com/goliatone/go-copilot/core"
)

type TaskReader interface {
	GetTask(ctx context.Context, userID string, taskID string) (core.Task, error)
	ListUserTasks(ctx context.Context, userID string, filter core.TaskFilter) ([]core.Task, error)
}

type SessionReader interface {
	SessionHistory(ctx context.Context, userID string, sessionID string, limit int) ([]core.SessionMessage, error)
}

type NotificationReader interface {
	ListUserNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error)
}

type ContextReader interface {
	AssembleContext(ctx context.Context, userID string, scope core.ScopeKey) (core.ContextDocument, error)
}

type GetTaskQuery struct {
	reader TaskReader
}

func NewGetTaskQuery(reader TaskReader) *GetTaskQuery {
	return &GetTaskQuery{reader: reader}
}

func (q *GetTaskQuery) Query(ctx context.Context, msg GetTaskMessage) (core.Task, error) {
	if q == nil || q.reader == nil {
		return core.Task{}, queryDependencyError("query: task reader is required")
	}
	return q.reader.GetTask(ctx, msg.UserID, msg.TaskID)
}

type ListUserTasksQuery struct {
	reader TaskReader
}

func NewListUserTasksQuery(reader TaskReader) *ListUserTasksQuery {
	return &ListUserTasksQuery{reader: reader}
}

func (q *ListUserTasksQuery) Query(ctx context.Context, msg ListUserTasksMessage) ([]core.Task, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: task reader is required")
	}
	return q.reader.ListUserTasks(ctx, msg.UserID, msg.Filter)
}

type GetSessionHistoryQuery struct {
	reader SessionReader
}

func NewGetSessionHistoryQuery(reader SessionReader) *GetSessionHistoryQuery {
	return &GetSessionHistoryQuery{reader: reader}
}

func (q *GetSessionHistoryQuery) Query(ctx context.Context, msg GetSessionHistoryMessage) ([]core.SessionMessage, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.SessionHistory(ctx, msg.UserID, msg.SessionID, msg.Limit)
}

type ListUserNotificationsQuery struct {
	reader NotificationReader
}

func NewListUserNotificationsQuery(reader NotificationReader) *ListUserNotificationsQuery {
	return &ListUserNotificationsQuery{reader: reader}
}

func (q *ListUserNotificationsQuery) Query(ctx context.Context, msg ListUserNotificationsMessage) ([]core.Notification, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: notification reader is required")
	}
	return q.reader.ListUserNotifications(ctx, msg.UserID, msg.Limit)
}

type AssembleContextQuery struct {
	reader ContextReader
}

func NewAssembleContextQuery(reader ContextReader) *AssembleContextQuery {
	return &AssembleContextQuery{reader: reader}
}

func (q *AssembleContextQuery) Query(ctx context.Context, msg AssembleContextMessage) (core.ContextDocument, error) {
	if q == nil || q.reader == nil {
		return core.ContextDocument{}, queryDependencyError("query: context reader is required")
	}
	return q.reader.AssembleContext(ctx, msg.UserID, msg.Scope)
}
