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

type IdentityStore struct {
	db   *bun.DB
	repo repository.Repository[*identityBindingRecord]
}

func NewIdentityStore(db *bun.DB) (*IdentityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*identityBindingRecord](db, identityBindingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid identity repository wiring: %w", err)
		}
	}
	return &IdentityStore{db: db, repo: repo}, nil
}

func (s *IdentityStore) Resolve(ctx context.Context, provider string, externalID string) (core.IdentityBinding, bool, error) {
	if s == nil || s.repo == nil {
		return core.IdentityBinding{}, false, fmt.Errorf("sqlstore: identity store is not configured")
	}
	provider = normalizeProvider(provider)
	externalID = strings.TrimSpace(externalID)
	if provider == "" || externalID == "" {
		return core.IdentityBinding{}, false, fmt.Errorf("sqlstore: provider and external id are required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("provider", "=", provider),
		repository.SelectBy("external_id", "=", externalID),
		repository.SelectBy("status", "=", string(core.IdentityBindingStatusActive)),
		repository.OrderBy("updated_at DESC"),
	)
	if err != nil {
		return core.IdentityBinding{}, false, err
	}
	if len(records) == 0 {
		return core.IdentityBinding{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

// Bind creates or refreshes the active binding for (provider, external id).
// A conflicting bind to a different user fails unless forced; forcing marks
// the old binding superseded instead of deleting it.
func (s *IdentityStore) Bind(ctx context.Context, in core.BindIdentityInput) (core.IdentityBinding, error) {
	if s == nil || s.db == nil {
		return core.IdentityBinding{}, fmt.Errorf("sqlstore: identity store is not configured")
	}
	provider := normalizeProvider(in.Provider)
	externalID := strings.TrimSpace(in.ExternalID)
	userID := strings.TrimSpace(in.UserID)
	if provider == "" || externalID == "" || userID == "" {
		return core.IdentityBinding{}, fmt.Errorf("sqlstore: provider, external id, and user id are required")
	}

	var bound core.IdentityBinding
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		existing := new(identityBindingRecord)
		err := tx.NewSelect().
			Model(existing).
			Where("provider = ?", provider).
			Where("external_id = ?", externalID).
			Where("status = ?", string(core.IdentityBindingStatusActive)).
			Limit(1).
			Scan(ctx)
		switch {
		case err == nil:
			if existing.UserID == userID {
				existing.DisplayName = strings.TrimSpace(in.DisplayName)
				existing.Metadata = copyAnyMap(in.Metadata)
				existing.UpdatedAt = now
				if _, updateErr := tx.NewUpdate().
					Model(existing).
					Where("id = ?", existing.ID).
					Exec(ctx); updateErr != nil {
					return updateErr
				}
				bound = existing.toDomain()
				return nil
			}
			if !in.Force {
				return goerrors.Wrap(
					core.ErrIdentityConflict,
					goerrors.CategoryConflict,
					fmt.Sprintf("sqlstore: %s identity %q already bound to another user", provider, externalID),
				).WithTextCode("COPILOT_IDENTITY_CONFLICT")
			}
			existing.Status = string(core.IdentityBindingStatusSuperseded)
			existing.UpdatedAt = now
			if _, updateErr := tx.NewUpdate().
				Model(existing).
				Where("id = ?", existing.ID).
				Exec(ctx); updateErr != nil {
				return updateErr
			}
		case errors.Is(err, sql.ErrNoRows):
			// first binding for this identity
		default:
			return err
		}

		record := &identityBindingRecord{
			ID:          uuid.NewString(),
			Provider:    provider,
			ExternalID:  externalID,
			UserID:      userID,
			DisplayName: strings.TrimSpace(in.DisplayName),
			Status:      string(core.IdentityBindingStatusActive),
			Metadata:    copyAnyMap(in.Metadata),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			if isUniqueViolation(insertErr) {
				return goerrors.Wrap(
					core.ErrIdentityConflict,
					goerrors.CategoryConflict,
					fmt.Sprintf("sqlstore: %s identity %q already bound to another user", provider, externalID),
				).WithTextCode("COPILOT_IDENTITY_CONFLICT")
			}
			return insertErr
		}
		bound = record.toDomain()
		return nil
	})
	if err != nil {
		return core.IdentityBinding{}, err
	}
	return bound, nil
}

func (s *IdentityStore) ListByUser(ctx context.Context, userID string) ([]core.IdentityBinding, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: identity store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("sqlstore: user id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectBy("status", "=", string(core.IdentityBindingStatusActive)),
		repository.OrderBy("provider ASC, external_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.IdentityBinding, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func normalizeProvider(provider string) string {
	return strings.TrimSpace(strings.ToLower(provider))
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
