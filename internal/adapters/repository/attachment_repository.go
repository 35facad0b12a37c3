package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

const attachmentColumns = `id, file_url, public_id, task_id, user_id, file_name, file_type, file_size, width, height, created_at`

// AttachmentRepositoryImpl stores uploaded image metadata in task_attachments
type AttachmentRepositoryImpl struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) ports.AttachmentRepository {
	return &AttachmentRepositoryImpl{db: db}
}

func (r *AttachmentRepositoryImpl) Create(ctx context.Context, a *entities.Attachment) error {
	query := `
		INSERT INTO task_attachments (file_url, public_id, task_id, user_id, file_name, file_type, file_size, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		a.FileURL, a.PublicID, a.TaskID, a.UserID, a.FileName,
		a.FileType, a.FileSize, a.Width, a.Height,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return mapError("create attachment", err, nil)
	}

	return nil
}

func (r *AttachmentRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM task_attachments WHERE id = $1`

	var a entities.Attachment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, mapError("get attachment", err, entities.ErrAttachmentNotFound)
	}

	return &a, nil
}

func (r *AttachmentRepositoryImpl) ListByTask(ctx context.Context, taskID int64) ([]*entities.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM task_attachments WHERE task_id = $1 ORDER BY created_at DESC, id DESC`

	attachments := []*entities.Attachment{}
	if err := r.db.SelectContext(ctx, &attachments, query, taskID); err != nil {
		return nil, mapError("list attachments", err, nil)
	}

	return attachments, nil
}

func (r *AttachmentRepositoryImpl) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_attachments WHERE id = $1`, id)
	if err != nil {
		return mapError("delete attachment", err, nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrAttachmentNotFound
	}

	return nil
}

func (r *AttachmentRepositoryImpl) DeleteByTask(ctx context.Context, tx *sqlx.Tx, taskID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_attachments WHERE task_id = $1`, taskID); err != nil {
		return mapError("delete task attachments", err, nil)
	}

	return nil
}
