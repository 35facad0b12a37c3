package ports

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/taskmaster/todolist/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Me(ctx context.Context, userID int64) (*MeResponse, error)
	CountUsers(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context) ([]*entities.User, error)
	IssueToken(userID int64, role entities.UserRole, ttl time.Duration) (string, error)
	VerifyToken(tokenString string) (*Claims, error)
}

// TaskService interface for task operations
type TaskService interface {
	ListTasks(ctx context.Context, filter TaskFilter) (*TaskPage, error)
	GetTask(ctx context.Context, id int64) (*entities.Task, error)
	CreateTask(ctx context.Context, caller Caller, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, caller Caller, id int64, patch TaskPatch) (*entities.Task, error)
	DeleteTask(ctx context.Context, caller Caller, id int64) error
	GetHistory(ctx context.Context, caller Caller, id int64) ([]*entities.TaskHistory, error)
	ListCategories(ctx context.Context) ([]*entities.Category, error)
	ListTags(ctx context.Context) ([]*entities.Tag, error)
}

// UploadService interface for the upload relay
type UploadService interface {
	Upload(ctx context.Context, caller Caller, file FileUpload) (*UploadResponse, error)
	ListByTask(ctx context.Context, taskID int64) ([]*entities.Attachment, error)
	Delete(ctx context.Context, caller Caller, id int64) error
}

// StatusService reports database connectivity and record counts
type StatusService interface {
	Status(ctx context.Context) (*DBStatus, error)
	Ping(ctx context.Context) error
}

// Caller is the authenticated identity attached to a request
type Caller struct {
	UserID int64
	Role   entities.UserRole
}

func (c Caller) IsAdmin() bool {
	return c.Role == entities.UserRoleAdmin
}

// Claims are the identity fields carried in a bearer token
type Claims struct {
	UserID int64
	Role   entities.UserRole
}

// Auth related types
type RegisterRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MeResponse struct {
	ID       int64             `json:"id"`
	Username string            `json:"username"`
	Role     entities.UserRole `json:"role"`
}

// Task related types
type CreateTaskRequest struct {
	Title       string         `json:"title" validate:"required,min=3,max=255"`
	Description *string        `json:"description" validate:"omitempty,max=255"`
	Priority    *int           `json:"priority" validate:"omitempty,min=1,max=3"`
	DueDate     *entities.Date `json:"due_date"`
	CategoryID  *int64         `json:"category_id" validate:"omitempty,gt=0"`
	Tags        []int64        `json:"tags" validate:"omitempty,dive,gt=0"`
}

// TaskPatch carries only the fields a caller supplied for a partial update.
type TaskPatch struct {
	Title       Optional[string]        `json:"title"`
	Description Optional[string]        `json:"description"`
	Completed   Optional[bool]          `json:"completed"`
	Priority    Optional[int]           `json:"priority"`
	DueDate     Optional[entities.Date] `json:"due_date"`
	CategoryID  Optional[int64]         `json:"category_id"`
	Tags        Optional[[]int64]       `json:"tags"`
}

// Validate checks supplied fields before any mutation begins.
func (p TaskPatch) Validate() error {
	verr := &entities.ValidationError{}
	if p.Title.Set {
		n := utf8.RuneCountInString(p.Title.Value)
		switch {
		case p.Title.Null:
			verr.Add("title", "title cannot be null")
		case n < 3:
			verr.Add("title", "title must be at least 3 characters")
		case n > 255:
			verr.Add("title", "title must be at most 255 characters")
		}
	}
	if p.Description.Set && !p.Description.Null && utf8.RuneCountInString(p.Description.Value) > 255 {
		verr.Add("description", "description must be at most 255 characters")
	}
	if p.Completed.Set && p.Completed.Null {
		verr.Add("completed", "completed cannot be null")
	}
	if p.Priority.Set && (p.Priority.Null || !entities.ValidPriority(p.Priority.Value)) {
		verr.Add("priority", "priority must be between 1 and 3")
	}
	if p.CategoryID.Set && !p.CategoryID.Null && p.CategoryID.Value <= 0 {
		verr.Add("category_id", "category_id must be positive")
	}
	if p.Tags.Set {
		for _, id := range p.Tags.Value {
			if id <= 0 {
				verr.Add("tags", "tag ids must be positive")
				break
			}
		}
	}
	return verr.OrNil()
}

// HasColumnChanges reports whether the patch touches the task row itself.
func (p TaskPatch) HasColumnChanges() bool {
	return p.Title.Set || p.Description.Set || p.Completed.Set ||
		p.Priority.Set || p.DueDate.Set || p.CategoryID.Set
}

// Upload related types
type FileUpload struct {
	Reader      io.Reader
	Filename    string
	Size        int64
	ContentType string
	TaskID      *int64
}

type UploadResponse struct {
	Message  string `json:"message"`
	FileID   int64  `json:"fileId"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Status types
type DBStatus struct {
	Connected bool                   `json:"connected"`
	Timestamp time.Time              `json:"timestamp"`
	Stats     map[string]int64       `json:"stats"`
	Pool      map[string]interface{} `json:"pool,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string                `json:"error"`
	Errors []entities.FieldError `json:"errors,omitempty"`
}
