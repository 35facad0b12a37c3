package ports

import (
	"math"

	"github.com/taskmaster/todolist/internal/domain/entities"
)

// Pagination bounds for task listing
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50
)

// TaskSort names an ordering of the task list
type TaskSort string

const (
	SortNewest   TaskSort = "newest"
	SortOldest   TaskSort = "oldest"
	SortPriority TaskSort = "priority"
	SortDueDate  TaskSort = "dueDate"
)

// ParseTaskSort falls back to SortNewest for unrecognized keys.
func ParseTaskSort(s string) TaskSort {
	switch TaskSort(s) {
	case SortOldest, SortPriority, SortDueDate:
		return TaskSort(s)
	default:
		return SortNewest
	}
}

// TaskFilter selects a page of tasks. Nil or empty fields are not applied.
type TaskFilter struct {
	Completed  *bool
	CategoryID *int64
	TagID      *int64
	Search     string
	Sort       TaskSort
	Page       int
	Limit      int
}

// Normalize clamps page and limit to their valid ranges and resolves the sort key.
func (f TaskFilter) Normalize() TaskFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	switch {
	case f.Limit == 0:
		f.Limit = DefaultLimit
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxLimit:
		f.Limit = MaxLimit
	}
	f.Sort = ParseTaskSort(string(f.Sort))
	return f
}

// Offset is the number of rows skipped before the requested page.
func (f TaskFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination is the page metadata returned with a task list
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

// TaskPage is one page of tasks plus pagination metadata
type TaskPage struct {
	Tasks      []*entities.Task `json:"tasks"`
	Pagination Pagination       `json:"pagination"`
}
