package sqlstore

import "github.com/goliatone/go-copilot/core"

var (
	_ core.IdentityStore     = (*IdentityStore)(nil)
	_ core.IdentityStore     = (*CachedIdentityStore)(nil)
	_ core.TaskStore         = (*TaskStore)(nil)
	_ core.SessionStore      = (*SessionStore)(nil)
	_ core.NotificationStore = (*NotificationStore)(nil)
	_ core.StoreProvider     = (*RepositoryFactory)(nil)
)
