package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

// HistoryRepositoryImpl stores the task audit trail
type HistoryRepositoryImpl struct {
	db *sqlx.DB
}

func NewHistoryRepository(db *sqlx.DB) ports.HistoryRepository {
	return &HistoryRepositoryImpl{db: db}
}

func (r *HistoryRepositoryImpl) Record(ctx context.Context, tx *sqlx.Tx, entry *entities.TaskHistory) error {
	query := `
		INSERT INTO task_history (task_id, user_id, action, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	// jsonb must be sent as text; lib/pq encodes []byte as bytea
	var details interface{}
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}

	err := tx.QueryRowxContext(ctx, query,
		entry.TaskID, entry.UserID, entry.Action, details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return mapError("record task history", err, nil)
	}

	return nil
}

func (r *HistoryRepositoryImpl) ListByTask(ctx context.Context, taskID int64) ([]*entities.TaskHistory, error) {
	query := `
		SELECT id, task_id, user_id, action, COALESCE(details, '{}'::jsonb) AS details, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at, id`

	entries := []*entities.TaskHistory{}
	if err := r.db.SelectContext(ctx, &entries, query, taskID); err != nil {
		return nil, mapError("list task history", err, nil)
	}

	return entries, nil
}

func (r *HistoryRepositoryImpl) DeleteByTask(ctx context.Context, tx *sqlx.Tx, taskID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_history WHERE task_id = $1`, taskID); err != nil {
		return mapError("delete task history", err, nil)
	}

	return nil
}
