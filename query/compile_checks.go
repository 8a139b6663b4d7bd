package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-copilot/core"
)

var (
	_ gocmd.Querier[GetTaskMessage, core.Task]                         = (*GetTaskQuery)(nil)
	_ gocmd.Querier[ListUserTasksMessage, []core.Task]                 = (*ListUserTasksQuery)(nil)
	_ gocmd.Querier[GetSessionHistoryMessage, []core.SessionMessage]   = (*GetSessionHistoryQuery)(nil)
	_ gocmd.Querier[ListUserNotificationsMessage, []core.Notification] = (*ListUserNotificationsQuery)(nil)
	_ gocmd.Querier[AssembleContextMessage, core.ContextDocument]      = (*AssembleContextQuery)(nil)
)
