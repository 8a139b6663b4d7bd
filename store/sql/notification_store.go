package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-copilot/core"
)

const defaultNotificationListLimit = 50

type NotificationStore struct {
	db   *bun.DB
	repo repository.Repository[*notificationRecord]
}

func NewNotificationStore(db *bun.DB) (*NotificationStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*notificationRecord](db, notificationHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid notification repository wiring: %w", err)
		}
	}
	return &NotificationStore{db: db, repo: repo}, nil
}

func (s *NotificationStore) Append(ctx context.Context, notification core.Notification) (core.Notification, error) {
	if s == nil || s.db == nil {
		return core.Notification{}, fmt.Errorf("sqlstore: notification store is not configured")
	}
	userID := strings.TrimSpace(notification.UserID)
	if userID == "" {
		return core.Notification{}, fmt.Errorf("sqlstore: notification user id is required")
	}
	if strings.TrimSpace(string(notification.Kind)) == "" {
		return core.Notification{}, fmt.Errorf("sqlstore: notification kind is required")
	}

	record := &notificationRecord{
		ID:        strings.TrimSpace(notification.ID),
		UserID:    userID,
		Kind:      string(notification.Kind),
		TaskID:    strings.TrimSpace(notification.TaskID),
		Title:     notification.Title,
		Body:      notification.Body,
		Metadata:  copyAnyMap(notification.Metadata),
		CreatedAt: notification.CreatedAt,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Notification{}, err
	}
	return record.toDomain(), nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: notification store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("sqlstore: user id is required")
	}
	if limit <= 0 {
		limit = defaultNotificationListLimit
	}

	var records []*notificationRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.Notification, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
