package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-copilot/core"
)

// MutatingService is the write-side slice of the copilot service surface.
type MutatingService interface {
	IngestMessage(ctx context.Context, msg core.Message) (core.ProcessResult, error)
	CreateTask(ctx context.Context, in core.CreateTaskInput) (core.Task, error)
	UpdateTaskStatus(ctx context.Context, userID string, taskID string, status core.TaskStatus) (core.Task, error)
	UpdateTaskPriority(ctx context.Context, userID string, taskID string, priority core.TaskPriority) (core.Task, error)
	BindIdentity(ctx context.Context, in core.BindIdentityInput) (core.IdentityBinding, error)
	SendChatMessage(ctx context.Context, req core.SendChatRequest) (core.ChatReply, error)
}

type IngestMessageCommand struct {
	service MutatingService
}

func NewIngestMessageCommand(service MutatingService) *IngestMessageCommand {
	return &IngestMessageCommand{service: service}
}

func (c *IngestMessageCommand) Execute(ctx context.Context, msg IngestMessageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: ingest service is required")
	}
	out, err := c.service.IngestMessage(ctx, msg.Message)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateTaskCommand struct {
	service MutatingService
}

func NewCreateTaskCommand(service MutatingService) *CreateTaskCommand {
	return &CreateTaskCommand{service: service}
}

func (c *CreateTaskCommand) Execute(ctx context.Context, msg CreateTaskMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: task service is required")
	}
	out, err := c.service.CreateTask(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateTaskStatusCommand struct {
	service MutatingService
}

func NewUpdateTaskStatusCommand(service MutatingService) *UpdateTaskStatusCommand {
	return &UpdateTaskStatusCommand{service: service}
}

func (c *UpdateTaskStatusCommand) Execute(ctx context.Context, msg UpdateTaskStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: task service is required")
	}
	out, err := c.service.UpdateTaskStatus(ctx, msg.UserID, msg.TaskID, msg.Status)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateTaskPriorityCommand struct {
	service MutatingService
}

func NewUpdateTaskPriorityCommand(service MutatingService) *UpdateTaskPriorityCommand {
	return &UpdateTaskPriorityCommand{service: service}
}

func (c *UpdateTaskPriorityCommand) Execute(ctx context.Context, msg UpdateTaskPriorityMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: task service is required")
	}
	out, err := c.service.UpdateTaskPriority(ctx, msg.UserID, msg.TaskID, msg.Priority)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type BindIdentityCommand struct {
	service MutatingService
}

func NewBindIdentityCommand(service MutatingService) *BindIdentityCommand {
	return &BindIdentityCommand{service: service}
}

func (c *BindIdentityCommand) Execute(ctx context.Context, msg BindIdentityMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: identity service is required")
	}
	out, err := c.service.BindIdentity(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendChatMessageCommand struct {
	service MutatingService
}

func NewSendChatMessageCommand(service MutatingService) *SendChatMessageCommand {
	return &SendChatMessageCommand{service: service}
}

func (c *SendChatMessageCommand) Execute(ctx context.Context, msg SendChatMessageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: chat service is required")
	}
	out, err := c.service.SendChatMessage(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
