package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

var taskRowColumns = []string{
	"id", "title", "description", "completed", "priority", "due_date",
	"user_id", "category_id", "category_name", "created_at", "updated_at",
}

func setupMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func taskRow(rows *sqlmock.Rows, id int64, title string, completed bool) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, title, nil, completed, 2, nil, int64(1), nil, nil, now, now)
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(i int64) *int64 { return &i }

func TestTaskRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("no filters omits the where clause", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM tasks t$`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		rows := sqlmock.NewRows(taskRowColumns)
		taskRow(rows, 5, "Task five", false)
		taskRow(rows, 4, "Task four", false)
		mock.ExpectQuery(`FROM tasks t LEFT JOIN categories c ON c\.id = t\.category_id ORDER BY t\.created_at DESC, t\.id DESC LIMIT 2 OFFSET 0`).
			WillReturnRows(rows)

		mock.ExpectQuery(`FROM task_tags tt\s+JOIN tags tg ON tg\.id = tt\.tag_id\s+WHERE tt\.task_id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color"}).
				AddRow(int64(5), int64(1), "home", nil).
				AddRow(int64(5), int64(2), "urgent", "#ff0000"))

		tasks, total, err := repo.List(ctx, ports.TaskFilter{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, tasks, 2)
		assert.Len(t, tasks[0].Tags, 2)
		assert.NotNil(t, tasks[1].Tags)
		assert.Empty(t, tasks[1].Tags)

		page := ports.NewPagination(1, 2, total)
		assert.Equal(t, 3, page.TotalPages)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters are combined with AND", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks t WHERE \(t\.completed = \$1 AND t\.category_id = \$2 AND EXISTS \(SELECT 1 FROM task_tags tt WHERE tt\.task_id = t\.id AND tt\.tag_id = \$3\)`).
			WithArgs(true, int64(3), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows(taskRowColumns)
		taskRow(rows, 9, "Done task", true)
		mock.ExpectQuery(`WHERE \(t\.completed = \$1 AND t\.category_id = \$2 AND EXISTS .* ORDER BY t\.priority ASC, t\.created_at DESC, t\.id DESC LIMIT 10 OFFSET 0`).
			WithArgs(true, int64(3), int64(7)).
			WillReturnRows(rows)

		mock.ExpectQuery(`FROM task_tags tt`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color"}))

		tasks, total, err := repo.List(ctx, ports.TaskFilter{
			Completed:  boolPtr(true),
			CategoryID: int64Ptr(3),
			TagID:      int64Ptr(7),
			Sort:       ports.SortPriority,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, tasks, 1)
		assert.True(t, tasks[0].Completed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("search escapes LIKE wildcards", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`t\.title ILIKE \$1 OR t\.description ILIKE \$2`).
			WithArgs(`%50\%\_off%`, `%50\%\_off%`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		tasks, total, err := repo.List(ctx, ports.TaskFilter{Search: "50%_off"})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, tasks)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("page beyond the last returns an empty list", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks t`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		tasks, total, err := repo.List(ctx, ports.TaskFilter{Page: 4, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit is clamped and unknown sort falls back to newest", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks t`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(200))
		mock.ExpectQuery(`ORDER BY t\.created_at DESC, t\.id DESC LIMIT 50 OFFSET 50`).
			WillReturnRows(sqlmock.NewRows(taskRowColumns))

		tasks, _, err := repo.List(ctx, ports.TaskFilter{Page: 2, Limit: 500, Sort: "bogus"})
		require.NoError(t, err)
		assert.Empty(t, tasks)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("only supplied columns are set", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`^UPDATE tasks SET completed = \$1, due_date = \$2, updated_at = NOW\(\) WHERE id = \$3$`).
			WithArgs(true, nil, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)
		err = repo.Update(ctx, tx, 42, ports.TaskPatch{
			Completed: ports.Some(true),
			DueDate:   ports.Null[entities.Date](),
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tags-only patch still refreshes updated_at", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`^UPDATE tasks SET updated_at = NOW\(\) WHERE id = \$1$`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Beginx()
		require.NoError(t, err)
		err = repo.Update(ctx, tx, 42, ports.TaskPatch{Tags: ports.Some([]int64{1})})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tasks SET title = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		tx, err := db.Beginx()
		require.NoError(t, err)
		err = repo.Update(ctx, tx, 7, ports.TaskPatch{Title: ports.Some("Renamed")})
		assert.ErrorIs(t, err, entities.ErrTaskNotFound)
	})
}

func TestTaskRepository_SetTags(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate ids are inserted once", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`^INSERT INTO task_tags \(task_id,tag_id\) VALUES \(\$1,\$2\),\(\$3,\$4\)$`).
			WithArgs(int64(3), int64(1), int64(3), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 2))

		tx, err := db.Beginx()
		require.NoError(t, err)
		require.NoError(t, repo.SetTags(ctx, tx, 3, []int64{1, 2, 1}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown tag maps to invalid reference", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO task_tags`).
			WillReturnError(&pq.Error{Code: "23503"})

		tx, err := db.Beginx()
		require.NoError(t, err)
		err = repo.SetTags(ctx, tx, 3, []int64{99})
		assert.ErrorIs(t, err, entities.ErrInvalidReference)
		assert.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("empty list is a no-op", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectBegin()
		tx, err := db.Beginx()
		require.NoError(t, err)
		require.NoError(t, repo.SetTags(ctx, tx, 3, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found with tags", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		now := time.Now()
		mock.ExpectQuery(`FROM tasks t LEFT JOIN categories c ON c\.id = t\.category_id WHERE t\.id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).
				AddRow(int64(1), "Buy milk", "2 litres", false, 1, "2024-06-01", int64(1), int64(2), "Errands", now, now))
		mock.ExpectQuery(`FROM task_tags tt`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"task_id", "id", "name", "color"}).
				AddRow(int64(1), int64(2), "b", nil).
				AddRow(int64(1), int64(1), "a", nil))

		task, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Buy milk", task.Title)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "2024-06-01", task.DueDate.String())
		require.NotNil(t, task.CategoryName)
		assert.Equal(t, "Errands", *task.CategoryName)

		ids := []int64{task.Tags[0].ID, task.Tags[1].ID}
		assert.ElementsMatch(t, []int64{1, 2}, ids)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewTaskRepository(db)

		mock.ExpectQuery(`FROM tasks t`).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows(taskRowColumns))

		_, err := repo.GetByID(ctx, 404)
		assert.ErrorIs(t, err, entities.ErrTaskNotFound)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestTaskRepository_Create(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewTaskRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("Buy milk", nil, false, 2, nil, int64(8), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	tx, err := db.Beginx()
	require.NoError(t, err)

	task := &entities.Task{Title: "Buy milk", Priority: entities.PriorityDefault, UserID: 8}
	require.NoError(t, repo.Create(context.Background(), tx, task))
	assert.Equal(t, int64(11), task.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError("op", nil, nil))
	assert.ErrorIs(t, mapError("op", &pq.Error{Code: "23505"}, nil), entities.ErrDuplicate)
	assert.ErrorIs(t, mapError("op", &pq.Error{Code: "23503"}, nil), entities.ErrInvalidReference)

	err := mapError("op", driver.ErrBadConn, nil)
	assert.True(t, errors.Is(err, driver.ErrBadConn))
	assert.Contains(t, err.Error(), "op")
}
