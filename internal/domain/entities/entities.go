package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// Enums and types
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type HistoryAction string

const (
	HistoryActionCreated   HistoryAction = "created"
	HistoryActionUpdated   HistoryAction = "updated"
	HistoryActionCompleted HistoryAction = "completed"
	HistoryActionReopened  HistoryAction = "reopened"
)

// Task priority bounds. Lower numbers sort first.
const (
	PriorityHigh    = 1
	PriorityDefault = 2
	PriorityLow     = 3
)

// User represents an account in the credential store
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        *string   `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Category groups tasks. A task references zero or one category.
type Category struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description" db:"description"`
	Color       *string `json:"color" db:"color"`
}

// Tag is a label attached to tasks through task_tags
type Tag struct {
	ID    int64   `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Color *string `json:"color" db:"color"`
}

// Task represents a to-do item
type Task struct {
	ID           int64         `json:"id" db:"id"`
	Title        string        `json:"title" db:"title"`
	Description  *string       `json:"description" db:"description"`
	Completed    bool          `json:"completed" db:"completed"`
	Priority     int           `json:"priority" db:"priority"`
	DueDate      *Date         `json:"due_date" db:"due_date"`
	UserID       int64         `json:"user_id" db:"user_id"`
	CategoryID   *int64        `json:"category_id" db:"category_id"`
	CategoryName *string       `json:"category_name" db:"category_name"`
	Tags         []Tag         `json:"tags" db:"-"`
	Attachments  []*Attachment `json:"attachments,omitempty" db:"-"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// Attachment is an externally hosted image linked to a task
type Attachment struct {
	ID        int64     `json:"id" db:"id"`
	FileURL   string    `json:"file_url" db:"file_url"`
	PublicID  *string   `json:"-" db:"public_id"`
	TaskID    *int64    `json:"task_id" db:"task_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	FileName  *string   `json:"file_name" db:"file_name"`
	FileType  *string   `json:"file_type" db:"file_type"`
	FileSize  *int64    `json:"file_size" db:"file_size"`
	Width     *int      `json:"width" db:"width"`
	Height    *int      `json:"height" db:"height"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TaskHistory records a mutation of a task
type TaskHistory struct {
	ID        int64           `json:"id" db:"id"`
	TaskID    int64           `json:"task_id" db:"task_id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Action    HistoryAction   `json:"action" db:"action"`
	Details   json.RawMessage `json:"details" db:"details"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Business logic methods for User
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Business logic methods for Task

// CanBeModifiedBy reports whether the given caller may update or delete the task.
func (t *Task) CanBeModifiedBy(userID int64, role UserRole) bool {
	return role == UserRoleAdmin || t.UserID == userID
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Completed {
		return false
	}
	return t.DueDate.Time.Before(now.Truncate(24 * time.Hour))
}

// CanBeDeletedBy reports whether the caller may remove the attachment. The
// uploader, the owner of the linked task and admins qualify.
func (a *Attachment) CanBeDeletedBy(userID int64, role UserRole, taskOwnerID *int64) bool {
	if role == UserRoleAdmin || a.UserID == userID {
		return true
	}
	return taskOwnerID != nil && *taskOwnerID == userID
}

// Utility methods
func (ur UserRole) IsValid() bool {
	switch ur {
	case UserRoleUser, UserRoleAdmin:
		return true
	default:
		return false
	}
}

func ValidPriority(p int) bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// NormalizeUsername trims surrounding whitespace. Usernames are case sensitive.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}
