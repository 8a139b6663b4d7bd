package copilot

import (
	"fmt"

	copilotcommand "github.com/goliatone/go-copilot/command"
	copilotquery "github.com/goliatone/go-copilot/query"
)

// CommandQueryService is the service surface the facade wraps: the write
// operations plus the read surface the query handlers need.
type CommandQueryService interface {
	copilotcommand.MutatingService
	copilotquery.TaskReader
	copilotquery.SessionReader
	copilotquery.NotificationReader
}

type Commands struct {
	IngestMessage      *copilotcommand.IngestMessageCommand
	CreateTask         *copilotcommand.CreateTaskCommand
	UpdateTaskStatus   *copilotcommand.UpdateTaskStatusCommand
	UpdateTaskPriority *copilotcommand.UpdateTaskPriorityCommand
	BindIdentity       *copilotcommand.BindIdentityCommand
	SendChatMessage    *copilotcommand.SendChatMessageCommand
}

type Queries struct {
	GetTask               *copilotquery.GetTaskQuery
	ListUserTasks         *copilotquery.ListUserTasksQuery
	GetSessionHistory     *copilotquery.GetSessionHistoryQuery
	ListUserNotifications *copilotquery.ListUserNotificationsQuery
	AssembleContext       *copilotquery.AssembleContextQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	contextReader copilotquery.ContextReader
}

// WithContextReader overrides context assembly for hosts that serve the
// read surface from a different component than the write service.
func WithContextReader(reader copilotquery.ContextReader) FacadeOption {
	return func(options *facadeOptions) {
		options.contextReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("copilot: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.contextReader
	if reader == nil {
		reader = resolveContextReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		IngestMessage:      copilotcommand.NewIngestMessageCommand(service),
		CreateTask:         copilotcommand.NewCreateTaskCommand(service),
		UpdateTaskStatus:   copilotcommand.NewUpdateTaskStatusCommand(service),
		UpdateTaskPriority: copilotcommand.NewUpdateTaskPriorityCommand(service),
		BindIdentity:       copilotcommand.NewBindIdentityCommand(service),
		SendChatMessage:    copilotcommand.NewSendChatMessageCommand(service),
	}
	facade.queries = Queries{
		GetTask:               copilotquery.NewGetTaskQuery(service),
		ListUserTasks:         copilotquery.NewListUserTasksQuery(service),
		GetSessionHistory:     copilotquery.NewGetSessionHistoryQuery(service),
		ListUserNotifications: copilotquery.NewListUserNotificationsQuery(service),
		AssembleContext:       copilotquery.NewAssembleContextQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveContextReader keeps context assembly optional: hosts that never
// configure an assembler still get a working facade, and the assemble query
// fails with a dependency error instead of a nil deref.
func resolveContextReader(service CommandQueryService) copilotquery.ContextReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(copilotquery.ContextReader); ok {
		return reader
	}
	return nil
}
