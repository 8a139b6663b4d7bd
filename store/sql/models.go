package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type identityBindingRecord struct {
	bun.BaseModel `bun:"table:copilot_identity_bindings,alias:cib"`

	ID          string         `bun:"id,pk"`
	Provider    string         `bun:"provider,notnull"`
	ExternalID  string         `bun:"external_id,notnull"`
	UserID      string         `bun:"user_id,notnull"`
	DisplayName string         `bun:"display_name"`
	Status      string         `bun:"status,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type taskRecord struct {
	bun.BaseModel `bun:"table:copilot_tasks,alias:ct"`

	ID                   string    `bun:"id,pk"`
	OwnerUserID          string    `bun:"owner_user_id,notnull"`
	Title                string    `bun:"title,notnull"`
	Description          string    `bun:"description"`
	Priority             string    `bun:"priority,notnull"`
	Status               string    `bun:"status,notnull"`
	AssignorExternalID   string    `bun:"assignor_external_id"`
	AssigneeExternalID   string    `bun:"assignee_external_id"`
	AssigneeUserID       string    `bun:"assignee_user_id"`
	MentionedExternalIDs []string  `bun:"mentioned_external_ids,type:jsonb,notnull"`
	ParentTaskID         string    `bun:"parent_task_id"`
	Tags                 []string  `bun:"tags,type:jsonb,notnull"`
	DedupKey             string    `bun:"dedup_key"`
	SourceSystem         string    `bun:"source_system"`
	SourceChannelID      string    `bun:"source_channel_id"`
	CreatedAt            time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	LastActivityAt       time.Time `bun:"last_activity_at,nullzero,notnull,default:current_timestamp"`
}

type sessionRecord struct {
	bun.BaseModel `bun:"table:copilot_sessions,alias:cs"`

	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id,notnull"`
	WorkflowType  string    `bun:"workflow_type,notnull"`
	WorkflowID    string    `bun:"workflow_id,notnull"`
	Title         string    `bun:"title"`
	Status        string    `bun:"status,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	LastMessageAt time.Time `bun:"last_message_at,nullzero,notnull,default:current_timestamp"`
}

type sessionMessageRecord struct {
	bun.BaseModel `bun:"table:copilot_session_messages,alias:csm"`

	ID        string           `bun:"id,pk"`
	SessionID string           `bun:"session_id,notnull"`
	Role      string           `bun:"role,notnull"`
	Text      string           `bun:"text,notnull"`
	Actions   []map[string]any `bun:"actions,type:jsonb,notnull"`
	CreatedAt time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type notificationRecord struct {
	bun.BaseModel `bun:"table:copilot_notifications,alias:cn"`

	ID        string         `bun:"id,pk"`
	UserID    string         `bun:"user_id,notnull"`
	Kind      string         `bun:"kind,notnull"`
	TaskID    string         `bun:"task_id"`
	Title     string         `bun:"title"`
	Body      string         `bun:"body"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
