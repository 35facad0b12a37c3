package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

var taskColumns = []string{
	"t.id",
	"t.title",
	"t.description",
	"t.completed",
	"t.priority",
	"t.due_date",
	"t.user_id",
	"t.category_id",
	"c.name AS category_name",
	"t.created_at",
	"t.updated_at",
}

var taskOrderings = map[ports.TaskSort][]string{
	ports.SortNewest:   {"t.created_at DESC", "t.id DESC"},
	ports.SortOldest:   {"t.created_at ASC", "t.id ASC"},
	ports.SortPriority: {"t.priority ASC", "t.created_at DESC", "t.id DESC"},
	ports.SortDueDate:  {"t.due_date ASC NULLS LAST", "t.created_at DESC", "t.id DESC"},
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, task *entities.Task) error {
	query := `
		INSERT INTO tasks (title, description, completed, priority, due_date, user_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		task.Title, task.Description, task.Completed, task.Priority,
		task.DueDate, task.UserID, task.CategoryID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return mapError("create task", err, nil)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id int64) (*entities.Task, error) {
	query, args, err := psql().Select(taskColumns...).
		From("tasks t").
		LeftJoin("categories c ON c.id = t.category_id").
		Where(squirrel.Eq{"t.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get task query: %w", err)
	}

	var task entities.Task
	if err := r.db.GetContext(ctx, &task, query, args...); err != nil {
		return nil, mapError("get task by id", err, entities.ErrTaskNotFound)
	}

	if err := r.attachTags(ctx, []*entities.Task{&task}); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) GetOwnerID(ctx context.Context, id int64) (int64, error) {
	var ownerID int64
	err := r.db.GetContext(ctx, &ownerID, `SELECT user_id FROM tasks WHERE id = $1`, id)
	if err != nil {
		return 0, mapError("get task owner", err, entities.ErrTaskNotFound)
	}

	return ownerID, nil
}

// Update applies only the fields present in patch. updated_at is refreshed
// even when the patch carries nothing but a tag list.
func (r *TaskRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, id int64, patch ports.TaskPatch) error {
	builder := psql().Update("tasks")

	if patch.Title.Set {
		builder = builder.Set("title", patch.Title.Value)
	}
	if patch.Description.Set {
		builder = builder.Set("description", patch.Description.Ptr())
	}
	if patch.Completed.Set {
		builder = builder.Set("completed", patch.Completed.Value)
	}
	if patch.Priority.Set {
		builder = builder.Set("priority", patch.Priority.Value)
	}
	if patch.DueDate.Set {
		builder = builder.Set("due_date", patch.DueDate.Ptr())
	}
	if patch.CategoryID.Set {
		builder = builder.Set("category_id", patch.CategoryID.Ptr())
	}

	query, args, err := builder.
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update task query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError("update task", err, nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return mapError("delete task", err, nil)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

// List returns one page of tasks matching filter plus the total number of
// matches. Filters that are unset add no condition at all.
func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, int64, error) {
	filter = filter.Normalize()
	where := taskConditions(filter)

	countBuilder := psql().Select("COUNT(*)").From("tasks t")
	if len(where) > 0 {
		countBuilder = countBuilder.Where(where)
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, mapError("count tasks", err, nil)
	}

	tasks := []*entities.Task{}
	if total == 0 || int64(filter.Offset()) >= total {
		return tasks, total, nil
	}

	builder := psql().Select(taskColumns...).
		From("tasks t").
		LeftJoin("categories c ON c.id = t.category_id")
	if len(where) > 0 {
		builder = builder.Where(where)
	}
	query, args, err := builder.
		OrderBy(taskOrderings[filter.Sort]...).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, mapError("list tasks", err, nil)
	}

	if err := r.attachTags(ctx, tasks); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func taskConditions(filter ports.TaskFilter) squirrel.And {
	where := squirrel.And{}

	if filter.Completed != nil {
		where = append(where, squirrel.Eq{"t.completed": *filter.Completed})
	}
	if filter.CategoryID != nil {
		where = append(where, squirrel.Eq{"t.category_id": *filter.CategoryID})
	}
	if filter.TagID != nil {
		where = append(where, squirrel.Expr(
			"EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = t.id AND tt.tag_id = ?)",
			*filter.TagID,
		))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"t.title": pattern},
			squirrel.ILike{"t.description": pattern},
		})
	}

	return where
}

func (r *TaskRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tasks`); err != nil {
		return 0, mapError("count tasks", err, nil)
	}

	return count, nil
}

// SetTags links tagIDs to the task. Duplicate ids are inserted once.
func (r *TaskRepositoryImpl) SetTags(ctx context.Context, tx *sqlx.Tx, taskID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	builder := psql().Insert("task_tags").Columns("task_id", "tag_id")
	seen := make(map[int64]struct{}, len(tagIDs))
	for _, tagID := range tagIDs {
		if _, dup := seen[tagID]; dup {
			continue
		}
		seen[tagID] = struct{}{}
		builder = builder.Values(taskID, tagID)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert tags query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapError("insert task tags", err, nil)
	}

	return nil
}

func (r *TaskRepositoryImpl) DeleteTags(ctx context.Context, tx *sqlx.Tx, taskID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		return mapError("delete task tags", err, nil)
	}

	return nil
}

type taskTagRow struct {
	TaskID int64 `db:"task_id"`
	entities.Tag
}

// GetTags loads the tags of many tasks in one query, keyed by task id.
func (r *TaskRepositoryImpl) GetTags(ctx context.Context, taskIDs []int64) (map[int64][]entities.Tag, error) {
	result := make(map[int64][]entities.Tag, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT tt.task_id, tg.id, tg.name, tg.color
		FROM task_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id = ANY($1)
		ORDER BY tg.name`

	var rows []taskTagRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(taskIDs)); err != nil {
		return nil, mapError("get task tags", err, nil)
	}

	for _, row := range rows {
		result[row.TaskID] = append(result[row.TaskID], row.Tag)
	}

	return result, nil
}

func (r *TaskRepositoryImpl) attachTags(ctx context.Context, tasks []*entities.Task) error {
	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	tags, err := r.GetTags(ctx, ids)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		t.Tags = tags[t.ID]
		if t.Tags == nil {
			t.Tags = []entities.Tag{}
		}
	}

	return nil
}
