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

const defaultTaskListLimit = 100

type TaskStore struct {
	db   *bun.DB
	repo repository.Repository[*taskRecord]
}

func NewTaskStore(db *bun.DB) (*TaskStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*taskRecord](db, taskHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid task repository wiring: %w", err)
		}
	}
	return &TaskStore{db: db, repo: repo}, nil
}

// Create inserts a task, enforcing dedup-key uniqueness inside a transaction:
// a replay with the same dedup key returns the already-materialized task
// instead of a duplicate row. The insert is conflict-tolerant so a racing
// replay re-reads the winner without aborting the transaction on postgres.
func (s *TaskStore) Create(ctx context.Context, in core.CreateTaskInput) (core.Task, error) {
	if s == nil || s.db == nil {
		return core.Task{}, fmt.Errorf("sqlstore: task store is not configured")
	}
	if strings.TrimSpace(in.OwnerUserID) == "" {
		return core.Task{}, fmt.Errorf("sqlstore: task owner is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return core.Task{}, fmt.Errorf("sqlstore: task title is required")
	}

	var created core.Task
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dedupKey := strings.TrimSpace(in.DedupKey)
		if dedupKey != "" {
			existing := new(taskRecord)
			err := tx.NewSelect().
				Model(existing).
				Where("dedup_key = ?", dedupKey).
				Limit(1).
				Scan(ctx)
			switch {
			case err == nil:
				created = existing.toDomain()
				return nil
			case errors.Is(err, sql.ErrNoRows):
			default:
				return err
			}
		}

		record := newTaskRecord(uuid.NewString(), in, time.Now().UTC())
		insert := tx.NewInsert().Model(record)
		if dedupKey != "" {
			insert = insert.On("CONFLICT DO NOTHING")
		}
		res, err := insert.Exec(ctx)
		if err != nil {
			return err
		}
		if dedupKey != "" {
			affected, affErr := res.RowsAffected()
			if affErr != nil {
				return affErr
			}
			if affected == 0 {
				existing := new(taskRecord)
				if scanErr := tx.NewSelect().
					Model(existing).
					Where("dedup_key = ?", dedupKey).
					Limit(1).
					Scan(ctx); scanErr != nil {
					return scanErr
				}
				created = existing.toDomain()
				return nil
			}
		}
		created = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Task{}, err
	}
	return created, nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (core.Task, error) {
	if s == nil || s.repo == nil {
		return core.Task{}, fmt.Errorf("sqlstore: task store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Task{}, fmt.Errorf("sqlstore: task id is required")
	}
	record, err := s.repo.GetByIdentifier(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return core.Task{}, goerrors.Wrap(
				core.ErrTaskNotFound,
				goerrors.CategoryNotFound,
				fmt.Sprintf("sqlstore: task %q not found", id),
			).WithTextCode("COPILOT_TASK_NOT_FOUND")
		}
		return core.Task{}, err
	}
	return record.toDomain(), nil
}

func (s *TaskStore) GetByDedupKey(ctx context.Context, dedupKey string) (core.Task, bool, error) {
	if s == nil || s.repo == nil {
		return core.Task{}, false, fmt.Errorf("sqlstore: task store is not configured")
	}
	dedupKey = strings.TrimSpace(dedupKey)
	if dedupKey == "" {
		return core.Task{}, false, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("dedup_key", "=", dedupKey),
	)
	if err != nil {
		return core.Task{}, false, err
	}
	if len(records) == 0 {
		return core.Task{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *TaskStore) Update(ctx context.Context, id string, in core.UpdateTaskInput) (core.Task, error) {
	if s == nil || s.db == nil {
		return core.Task{}, fmt.Errorf("sqlstore: task store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Task{}, fmt.Errorf("sqlstore: task id is required")
	}

	var updated core.Task
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := new(taskRecord)
		err := tx.NewSelect().
			Model(record).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return goerrors.Wrap(
					core.ErrTaskNotFound,
					goerrors.CategoryNotFound,
					fmt.Sprintf("sqlstore: task %q not found", id),
				).WithTextCode("COPILOT_TASK_NOT_FOUND")
			}
			return err
		}

		if in.Title != nil {
			record.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			record.Description = *in.Description
		}
		if in.Priority != nil {
			record.Priority = string(*in.Priority)
		}
		if in.Status != nil {
			record.Status = string(*in.Status)
		}
		if in.Tags != nil {
			record.Tags = ensureStrings(*in.Tags)
		}
		record.LastActivityAt = time.Now().UTC()

		if _, err := tx.NewUpdate().
			Model(record).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		updated = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Task{}, err
	}
	return updated, nil
}

func (s *TaskStore) ListByOwner(ctx context.Context, ownerUserID string, filter core.TaskFilter) ([]core.Task, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: task store is not configured")
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, fmt.Errorf("sqlstore: owner user id is required")
	}

	criteria := []repository.SelectCriteria{
		repository.SelectBy("owner_user_id", "=", ownerUserID),
	}
	if filter.Status != "" {
		criteria = append(criteria, repository.SelectBy("status", "=", string(filter.Status)))
	}
	if filter.Priority != "" {
		criteria = append(criteria, repository.SelectBy("priority", "=", string(filter.Priority)))
	}
	criteria = append(criteria, repository.OrderBy("last_activity_at DESC"))

	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTaskListLimit
	}
	tag := strings.TrimSpace(filter.Tag)

	out := make([]core.Task, 0, len(records))
	for _, record := range records {
		if tag != "" && !containsString(record.Tags, tag) {
			continue
		}
		out = append(out, record.toDomain())
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func containsString(values []string, needle string) bool {
	for _, value := range values {
		if value == needle {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var richErr *goerrors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
