package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[IngestMessageMessage]      = (*IngestMessageCommand)(nil)
	_ gocmd.Commander[CreateTaskMessage]         = (*CreateTaskCommand)(nil)
	_ gocmd.Commander[UpdateTaskStatusMessage]   = (*UpdateTaskStatusCommand)(nil)
	_ gocmd.Commander[UpdateTaskPriorityMessage] = (*UpdateTaskPriorityCommand)(nil)
	_ gocmd.Commander[BindIdentityMessage]       = (*BindIdentityCommand)(nil)
	_ gocmd.Commander[SendChatMessageMessage]    = (*SendChatMessageCommand)(nil)
)
