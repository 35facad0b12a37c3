package ports

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
)

// UserRepository defines the interface for credential store operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	// Ensure inserts the user unless the username exists and reports
	// whether a row was created. user.ID is set either way.
	Ensure(ctx context.Context, tx *sqlx.Tx, user *entities.User) (bool, error)
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	List(ctx context.Context) ([]*entities.User, error)
	Count(ctx context.Context) (int64, error)
}

// TaskRepository defines the interface for task data operations. Mutations
// run on the caller's transaction so that dependent rows commit or roll back
// together with the task row.
type TaskRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, task *entities.Task) error
	GetByID(ctx context.Context, id int64) (*entities.Task, error)
	GetOwnerID(ctx context.Context, id int64) (int64, error)
	Update(ctx context.Context, tx *sqlx.Tx, id int64, patch TaskPatch) error
	Delete(ctx context.Context, tx *sqlx.Tx, id int64) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, int64, error)
	Count(ctx context.Context) (int64, error)

	SetTags(ctx context.Context, tx *sqlx.Tx, taskID int64, tagIDs []int64) error
	DeleteTags(ctx context.Context, tx *sqlx.Tx, taskID int64) error
	GetTags(ctx context.Context, taskIDs []int64) (map[int64][]entities.Tag, error)
}

// TaxonomyRepository defines the interface for categories and tags
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]*entities.Category, error)
	ListTags(ctx context.Context) ([]*entities.Tag, error)
	CreateCategory(ctx context.Context, tx *sqlx.Tx, category *entities.Category) error
	CreateTag(ctx context.Context, tx *sqlx.Tx, tag *entities.Tag) error
	CountCategories(ctx context.Context) (int64, error)
	CountTags(ctx context.Context) (int64, error)
}

// AttachmentRepository defines the interface for the attachment store
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *entities.Attachment) error
	GetByID(ctx context.Context, id int64) (*entities.Attachment, error)
	ListByTask(ctx context.Context, taskID int64) ([]*entities.Attachment, error)
	Delete(ctx context.Context, id int64) error
	DeleteByTask(ctx context.Context, tx *sqlx.Tx, taskID int64) error
}

// HistoryRepository defines the interface for the task audit trail
type HistoryRepository interface {
	Record(ctx context.Context, tx *sqlx.Tx, entry *entities.TaskHistory) error
	ListByTask(ctx context.Context, taskID int64) ([]*entities.TaskHistory, error)
	DeleteByTask(ctx context.Context, tx *sqlx.Tx, taskID int64) error
}

// Transactor runs fn inside a database transaction
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error
}

// ImageHost uploads files to the external image-hosting service
type ImageHost interface {
	Upload(ctx context.Context, path, filename string) (*ImageResult, error)
	Delete(ctx context.Context, publicID string) error
}

// EventPublisher emits task lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// ImageResult is what the image host reports after a successful upload
type ImageResult struct {
	URL      string
	PublicID string
	Width    int
	Height   int
	Format   string
	Bytes    int64
}
