package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-copilot/core"
)

const (
	TypeIngestMessage      = "copilot.command.message.ingest"
	TypeCreateTask         = "copilot.command.task.create"
	TypeUpdateTaskStatus   = "copilot.command.task.update_status"
	TypeUpdateTaskPriority = "copilot.command.task.update_priority"
	TypeBindIdentity       = "copilot.command.identity.bind"
	TypeSendChatMessage    = "copilot.command.chat.send"
)

type IngestMessageMessage struct {
	Message core.Message
}

func (IngestMessageMessage) Type() string { return TypeIngestMessage }

func (m IngestMessageMessage) Validate() error {
	if strings.TrimSpace(m.Message.SourceSystem) == "" {
		return fmt.Errorf("command: source system is required")
	}
	if strings.TrimSpace(m.Message.SenderExternalID) == "" {
		return fmt.Errorf("command: sender external id is required")
	}
	if strings.TrimSpace(m.Message.Text) == "" {
		return fmt.Errorf("command: message text is required")
	}
	return nil
}

type CreateTaskMessage struct {
	Input core.CreateTaskInput
}

func (CreateTaskMessage) Type() string { return TypeCreateTask }

func (m CreateTaskMessage) Validate() error {
	if strings.TrimSpace(m.Input.OwnerUserID) == "" {
		return fmt.Errorf("command: owner user id is required")
	}
	if strings.TrimSpace(m.Input.Title) == "" {
		return fmt.Errorf("command: task title is required")
	}
	return nil
}

type UpdateTaskStatusMessage struct {
	UserID string
	TaskID string
	Status core.TaskStatus
}

func (UpdateTaskStatusMessage) Type() string { return TypeUpdateTaskStatus }

func (m UpdateTaskStatusMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.TaskID) == "" {
		return fmt.Errorf("command: task id is required")
	}
	switch m.Status {
	case core.TaskStatusTodo, core.TaskStatusInProgress, core.TaskStatusCompleted:
		return nil
	default:
		return fmt.Errorf("command: invalid task status %q", m.Status)
	}
}

type UpdateTaskPriorityMessage struct {
	UserID   string
	TaskID   string
	Priority core.TaskPriority
}

func (UpdateTaskPriorityMessage) Type() string { return TypeUpdateTaskPriority }

func (m UpdateTaskPriorityMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.TaskID) == "" {
		return fmt.Errorf("command: task id is required")
	}
	if _, err := core.ParseTaskPriority(string(m.Priority)); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}

type BindIdentityMessage struct {
	Input core.BindIdentityInput
}

func (BindIdentityMessage) Type() string { return TypeBindIdentity }

func (m BindIdentityMessage) Validate() error {
	if strings.TrimSpace(m.Input.Provider) == "" {
		return fmt.Errorf("command: provider is required")
	}
	if strings.TrimSpace(m.Input.ExternalID) == "" {
		return fmt.Errorf("command: external id is required")
	}
	if strings.TrimSpace(m.Input.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}

type SendChatMessageMessage struct {
	Request core.SendChatRequest
}

func (SendChatMessageMessage) Type() string { return TypeSendChatMessage }

func (m SendChatMessageMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.Request.Text) == "" {
		return fmt.Errorf("command: chat text is required")
	}
	if err := m.Request.Scope.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
