package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-copilot/core"
)

const (
	TypeGetTask               = "copilot.query.task.get"
	TypeListUserTasks         = "copilot.query.task.list"
	TypeGetSessionHistory     = "copilot.query.session.history"
	TypeListUserNotifications = "copilot.query.notification.list"
	TypeAssembleContext       = "copilot.query.context.assemble"
)

type GetTaskMessage struct {
	UserID string
	TaskID string
}

func (GetTaskMessage) Type() string { return TypeGetTask }

func (m GetTaskMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if strings.TrimSpace(m.TaskID) == "" {
		return fmt.Errorf("query: task id is required")
	}
	return nil
}

type ListUserTasksMessage struct {
	UserID string
	Filter core.TaskFilter
}

func (ListUserTasksMessage) Type() string { return TypeListUserTasks }

func (m ListUserTasksMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if m.Filter.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

type GetSessionHistoryMessage struct {
	UserID    string
	SessionID string
	Limit     int
}

func (GetSessionHistoryMessage) Type() string { return TypeGetSessionHistory }

func (m GetSessionHistoryMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if strings.TrimSpace(m.SessionID) == "" {
		return fmt.Errorf("query: session id is required")
	}
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

type ListUserNotificationsMessage struct {
	UserID string
	Limit  int
}

func (ListUserNotificationsMessage) Type() string { return TypeListUserNotifications }

func (m ListUserNotificationsMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}

type AssembleContextMessage struct {
	UserID string
	Scope  core.ScopeKey
}

func (AssembleContextMessage) Type() string { return TypeAssembleContext }

func (m AssembleContextMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if err := m.Scope.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}
