package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-copilot/core"
)

const defaultHistoryLimit = 50

type SessionStore struct {
	db       *bun.DB
	sessions repository.Repository[*sessionRecord]
	messages repository.Repository[*sessionMessageRecord]
}

func NewSessionStore(db *bun.DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	sessions := repository.NewRepository[*sessionRecord](db, sessionHandlers())
	if validator, ok := sessions.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session repository wiring: %w", err)
		}
	}
	messages := repository.NewRepository[*sessionMessageRecord](db, sessionMessageHandlers())
	if validator, ok := messages.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session message repository wiring: %w", err)
		}
	}
	return &SessionStore{db: db, sessions: sessions, messages: messages}, nil
}

// GetOrCreate returns the single active session for (user, workflow type,
// workflow id), creating it when absent. The probe and insert run in one
// transaction; the insert is conflict-tolerant (ON CONFLICT DO NOTHING) so a
// racing insert writes nothing and re-reads the winner without aborting the
// transaction on postgres.
func (s *SessionStore) GetOrCreate(ctx context.Context, userID string, scope core.ScopeKey) (core.ConversationSession, error) {
	if s == nil || s.db == nil {
		return core.ConversationSession{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return core.ConversationSession{}, fmt.Errorf("sqlstore: user id is required")
	}
	if err := scope.Validate(); err != nil {
		return core.ConversationSession{}, err
	}
	workflowType := strings.TrimSpace(strings.ToLower(scope.WorkflowType))
	workflowID := strings.TrimSpace(scope.WorkflowID)

	var session core.ConversationSession
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(sessionRecord)
		err := tx.NewSelect().
			Model(existing).
			Where("user_id = ?", userID).
			Where("workflow_type = ?", workflowType).
			Where("workflow_id = ?", workflowID).
			Where("status = ?", string(core.SessionStatusActive)).
			Limit(1).
			Scan(ctx)
		switch {
		case err == nil:
			session = existing.toDomain()
			return nil
		case errors.Is(err, sql.ErrNoRows):
		default:
			return err
		}

		now := time.Now().UTC()
		record := &sessionRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			WorkflowType:  workflowType,
			WorkflowID:    workflowID,
			Status:        string(core.SessionStatusActive),
			CreatedAt:     now,
			LastMessageAt: now,
		}
		res, insertErr := tx.NewInsert().
			Model(record).
			On("CONFLICT DO NOTHING").
			Exec(ctx)
		if insertErr != nil {
			return insertErr
		}
		affected, affErr := res.RowsAffected()
		if affErr != nil {
			return affErr
		}
		if affected == 0 {
			// Lost the race: nothing was written, so the winner row exists
			// and the transaction is still healthy to re-read it.
			winner := new(sessionRecord)
			if scanErr := tx.NewSelect().
				Model(winner).
				Where("user_id = ?", userID).
				Where("workflow_type = ?", workflowType).
				Where("workflow_id = ?", workflowID).
				Where("status = ?", string(core.SessionStatusActive)).
				Limit(1).
				Scan(ctx); scanErr != nil {
				return scanErr
			}
			session = winner.toDomain()
			return nil
		}
		session = record.toDomain()
		return nil
	})
	if err != nil {
		return core.ConversationSession{}, err
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (core.ConversationSession, error) {
	if s == nil || s.sessions == nil {
		return core.ConversationSession{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ConversationSession{}, fmt.Errorf("sqlstore: session id is required")
	}
	record, err := s.sessions.GetByIdentifier(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return core.ConversationSession{}, goerrors.Wrap(
				core.ErrSessionNotFound,
				goerrors.CategoryNotFound,
				fmt.Sprintf("sqlstore: session %q not found", id),
			).WithTextCode("COPILOT_SESSION_NOT_FOUND")
		}
		return core.ConversationSession{}, err
	}
	return record.toDomain(), nil
}

func (s *SessionStore) AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.SessionMessage, error) {
	if s == nil || s.db == nil {
		return core.SessionMessage{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return core.SessionMessage{}, fmt.Errorf("sqlstore: session id is required")
	}
	if strings.TrimSpace(string(in.Role)) == "" {
		return core.SessionMessage{}, fmt.Errorf("sqlstore: message role is required")
	}

	var appended core.SessionMessage
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*sessionRecord)(nil)).
			Where("id = ?", sessionID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return goerrors.Wrap(
				core.ErrSessionNotFound,
				goerrors.CategoryNotFound,
				fmt.Sprintf("sqlstore: session %q not found", sessionID),
			).WithTextCode("COPILOT_SESSION_NOT_FOUND")
		}

		record := &sessionMessageRecord{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      string(in.Role),
			Text:      in.Text,
			Actions:   actionsToMaps(in.Actions),
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		appended = record.toDomain()
		return nil
	})
	if err != nil {
		return core.SessionMessage{}, err
	}
	return appended, nil
}

// History returns the oldest-first tail of the session transcript.
func (s *SessionStore) History(ctx context.Context, sessionID string, limit int) ([]core.SessionMessage, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: session store is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("sqlstore: session id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var records []*sessionMessageRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("session_id = ?", sessionID).
		OrderExpr("created_at DESC, id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.SessionMessage, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

func (s *SessionStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("sqlstore: session id is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	result, err := s.db.NewUpdate().
		Model((*sessionRecord)(nil)).
		Set("last_message_at = ?", at.UTC()).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return goerrors.Wrap(
			core.ErrSessionNotFound,
			goerrors.CategoryNotFound,
			fmt.Sprintf("sqlstore: session %q not found", sessionID),
		).WithTextCode("COPILOT_SESSION_NOT_FOUND")
	}
	return nil
}
