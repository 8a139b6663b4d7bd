package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-copilot/core"
)

func (r *identityBindingRecord) toDomain() core.IdentityBinding {
	if r == nil {
		return core.IdentityBinding{}
	}
	return core.IdentityBinding{
		ID:          r.ID,
		Provider:    r.Provider,
		ExternalID:  r.ExternalID,
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Status:      core.IdentityBindingStatus(r.Status),
		Metadata:    copyAnyMap(r.Metadata),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r *taskRecord) toDomain() core.Task {
	if r == nil {
		return core.Task{}
	}
	return core.Task{
		ID:                   r.ID,
		OwnerUserID:          r.OwnerUserID,
		Title:                r.Title,
		Description:          r.Description,
		Priority:             core.TaskPriority(r.Priority),
		Status:               core.TaskStatus(r.Status),
		AssignorExternalID:   r.AssignorExternalID,
		AssigneeExternalID:   r.AssigneeExternalID,
		AssigneeUserID:       r.AssigneeUserID,
		MentionedExternalIDs: copyStrings(r.MentionedExternalIDs),
		ParentTaskID:         r.ParentTaskID,
		Tags:                 copyStrings(r.Tags),
		DedupKey:             r.DedupKey,
		SourceSystem:         r.SourceSystem,
		SourceChannelID:      r.SourceChannelID,
		CreatedAt:            r.CreatedAt,
		LastActivityAt:       r.LastActivityAt,
	}
}

func newTaskRecord(id string, in core.CreateTaskInput, now time.Time) *taskRecord {
	return &taskRecord{
		ID:                   id,
		OwnerUserID:          strings.TrimSpace(in.OwnerUserID),
		Title:                strings.TrimSpace(in.Title),
		Description:          in.Description,
		Priority:             string(in.Priority),
		Status:               string(in.Status),
		AssignorExternalID:   strings.TrimSpace(in.AssignorExternalID),
		AssigneeExternalID:   strings.TrimSpace(in.AssigneeExternalID),
		AssigneeUserID:       strings.TrimSpace(in.AssigneeUserID),
		MentionedExternalIDs: ensureStrings(in.MentionedExternalIDs),
		ParentTaskID:         strings.TrimSpace(in.ParentTaskID),
		Tags:                 ensureStrings(in.Tags),
		DedupKey:             strings.TrimSpace(in.DedupKey),
		SourceSystem:         strings.TrimSpace(in.SourceSystem),
		SourceChannelID:      strings.TrimSpace(in.SourceChannelID),
		CreatedAt:            now,
		LastActivityAt:       now,
	}
}

func (r *sessionRecord) toDomain() core.ConversationSession {
	if r == nil {
		return core.ConversationSession{}
	}
	return core.ConversationSession{
		ID:            r.ID,
		UserID:        r.UserID,
		WorkflowType:  r.WorkflowType,
		WorkflowID:    r.WorkflowID,
		Title:         r.Title,
		Status:        core.SessionStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		LastMessageAt: r.LastMessageAt,
	}
}

func (r *sessionMessageRecord) toDomain() core.SessionMessage {
	if r == nil {
		return core.SessionMessage{}
	}
	return core.SessionMessage{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      core.MessageRole(r.Role),
		Text:      r.Text,
		Actions:   actionsFromMaps(r.Actions),
		CreatedAt: r.CreatedAt,
	}
}

func (r *notificationRecord) toDomain() core.Notification {
	if r == nil {
		return core.Notification{}
	}
	return core.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      core.NotificationKind(r.Kind),
		TaskID:    r.TaskID,
		Title:     r.Title,
		Body:      r.Body,
		Metadata:  copyAnyMap(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
}

func actionsToMaps(actions []core.StructuredAction) []map[string]any {
	out := make([]map[string]any, 0, len(actions))
	for _, action := range actions {
		out = append(out, map[string]any{
			"type":   action.Type,
			"params": copyAnyMap(action.Params),
		})
	}
	return out
}

func actionsFromMaps(raw []map[string]any) []core.StructuredAction {
	if len(raw) == 0 {
		return nil
	}
	out := make([]core.StructuredAction, 0, len(raw))
	for _, entry := range raw {
		actionType, _ := entry["type"].(string)
		if strings.TrimSpace(actionType) == "" {
			continue
		}
		params, _ := entry["params"].(map[string]any)
		out = append(out, core.StructuredAction{Type: actionType, Params: copyAnyMap(params)})
	}
	return out
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func ensureStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
