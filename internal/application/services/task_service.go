package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// Routing keys for task lifecycle events
const (
	EventTaskCreated = "task.created"
	EventTaskUpdated = "task.updated"
	EventTaskDeleted = "task.deleted"
)

// TaskEvent is published after a task mutation commits
type TaskEvent struct {
	Type       string    `json:"type"`
	TaskID     int64     `json:"task_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TaskService handles task-related operations
type TaskService struct {
	tasks       ports.TaskRepository
	taxonomy    ports.TaxonomyRepository
	attachments ports.AttachmentRepository
	history     ports.HistoryRepository
	tx          ports.Transactor
	events      ports.EventPublisher
	logger      *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	tasks ports.TaskRepository,
	taxonomy ports.TaxonomyRepository,
	attachments ports.AttachmentRepository,
	history ports.HistoryRepository,
	tx ports.Transactor,
	events ports.EventPublisher,
	logger *logger.Logger,
) *TaskService {
	return &TaskService{
		tasks:       tasks,
		taxonomy:    taxonomy,
		attachments: attachments,
		history:     history,
		tx:          tx,
		events:      events,
		logger:      logger.WithComponent("tasks"),
	}
}

// ListTasks returns one page of tasks with pagination metadata
func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) (*ports.TaskPage, error) {
	filter = filter.Normalize()

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &ports.TaskPage{
		Tasks:      tasks,
		Pagination: ports.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// GetTask returns the task with its tags and attachments
func (s *TaskService) GetTask(ctx context.Context, id int64) (*entities.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, wrapUnlessKnown("failed to get task", err)
	}

	attachments, err := s.attachments.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	task.Attachments = attachments

	return task, nil
}

// CreateTask stores the task, its tag links and a history row in one
// transaction. The caller becomes the owner.
func (s *TaskService) CreateTask(ctx context.Context, caller ports.Caller, req ports.CreateTaskRequest) (*entities.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := Validate(req); err != nil {
		return nil, err
	}

	task := &entities.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    entities.PriorityDefault,
		DueDate:     req.DueDate,
		UserID:      caller.UserID,
		CategoryID:  req.CategoryID,
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}

	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.tasks.Create(ctx, tx, task); err != nil {
			return err
		}
		if err := s.tasks.SetTags(ctx, tx, task.ID, req.Tags); err != nil {
			return err
		}
		return s.record(ctx, tx, task.ID, caller.UserID, entities.HistoryActionCreated, map[string]interface{}{
			"title": task.Title,
		})
	})
	if err != nil {
		return nil, wrapUnlessKnown("failed to create task", err)
	}

	s.logger.LogUserAction(caller.UserID, "task_created", map[string]interface{}{"task_id": task.ID})
	s.publish(ctx, EventTaskCreated, task.ID, caller.UserID)

	return s.GetTask(ctx, task.ID)
}

// UpdateTask applies a partial update. A supplied tag list replaces the
// existing links.
func (s *TaskService) UpdateTask(ctx context.Context, caller ports.Caller, id int64, patch ports.TaskPatch) (*entities.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	if patch.Title.Set {
		patch.Title.Value = strings.TrimSpace(patch.Title.Value)
	}

	action, details := historyForPatch(patch)

	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.tasks.Update(ctx, tx, id, patch); err != nil {
			return err
		}
		if patch.Tags.Set {
			if err := s.tasks.DeleteTags(ctx, tx, id); err != nil {
				return err
			}
			if err := s.tasks.SetTags(ctx, tx, id, patch.Tags.Value); err != nil {
				return err
			}
		}
		return s.record(ctx, tx, id, caller.UserID, action, details)
	})
	if err != nil {
		return nil, wrapUnlessKnown("failed to update task", err)
	}

	s.logger.LogUserAction(caller.UserID, "task_updated", map[string]interface{}{"task_id": id, "action": action})
	s.publish(ctx, EventTaskUpdated, id, caller.UserID)

	return s.GetTask(ctx, id)
}

// DeleteTask removes tag links, attachments and history before the task row,
// all in one transaction.
func (s *TaskService) DeleteTask(ctx context.Context, caller ports.Caller, id int64) error {
	if err := s.authorize(ctx, caller, id); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.tasks.DeleteTags(ctx, tx, id); err != nil {
			return err
		}
		if err := s.attachments.DeleteByTask(ctx, tx, id); err != nil {
			return err
		}
		if err := s.history.DeleteByTask(ctx, tx, id); err != nil {
			return err
		}
		return s.tasks.Delete(ctx, tx, id)
	})
	if err != nil {
		return wrapUnlessKnown("failed to delete task", err)
	}

	s.logger.LogUserAction(caller.UserID, "task_deleted", map[string]interface{}{"task_id": id})
	s.publish(ctx, EventTaskDeleted, id, caller.UserID)

	return nil
}

// GetHistory returns the audit trail of a task to its owner or an admin
func (s *TaskService) GetHistory(ctx context.Context, caller ports.Caller, id int64) ([]*entities.TaskHistory, error) {
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	entries, err := s.history.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task history: %w", err)
	}
	return entries, nil
}

func (s *TaskService) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	categories, err := s.taxonomy.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *TaskService) ListTags(ctx context.Context) ([]*entities.Tag, error) {
	tags, err := s.taxonomy.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// authorize loads the owner of task id and rejects callers who are neither
// that owner nor an admin.
func (s *TaskService) authorize(ctx context.Context, caller ports.Caller, id int64) error {
	ownerID, err := s.tasks.GetOwnerID(ctx, id)
	if err != nil {
		return wrapUnlessKnown("failed to load task owner", err)
	}

	task := entities.Task{ID: id, UserID: ownerID}
	if !task.CanBeModifiedBy(caller.UserID, caller.Role) {
		s.logger.LogSecurityEvent("task_access_denied", caller.UserID, "", map[string]interface{}{
			"task_id":  id,
			"owner_id": ownerID,
		})
		return entities.ErrPermissionDenied
	}
	return nil
}

func (s *TaskService) record(ctx context.Context, tx *sqlx.Tx, taskID, userID int64, action entities.HistoryAction, details map[string]interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode history details: %w", err)
	}

	return s.history.Record(ctx, tx, &entities.TaskHistory{
		TaskID:  taskID,
		UserID:  userID,
		Action:  action,
		Details: raw,
	})
}

// publish is best effort: the mutation has already committed.
func (s *TaskService) publish(ctx context.Context, routingKey string, taskID, userID int64) {
	event := TaskEvent{
		Type:       routingKey,
		TaskID:     taskID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warnw("Failed to publish task event", "event", routingKey, "task_id", taskID, "error", err)
	}
}

func historyForPatch(patch ports.TaskPatch) (entities.HistoryAction, map[string]interface{}) {
	changes := []struct {
		name string
		set  bool
	}{
		{"title", patch.Title.Set},
		{"description", patch.Description.Set},
		{"completed", patch.Completed.Set},
		{"priority", patch.Priority.Set},
		{"due_date", patch.DueDate.Set},
		{"category_id", patch.CategoryID.Set},
		{"tags", patch.Tags.Set},
	}
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.set {
			fields = append(fields, c.name)
		}
	}

	action := entities.HistoryActionUpdated
	details := map[string]interface{}{"fields": fields}
	if patch.Completed.Set {
		details["completed"] = patch.Completed.Value
		// A pure completion toggle gets its own action
		if len(fields) == 1 {
			if patch.Completed.Value {
				action = entities.HistoryActionCompleted
			} else {
				action = entities.HistoryActionReopened
			}
		}
	}
	return action, details
}

// wrapUnlessKnown keeps domain errors intact so the transport can map them
// and wraps everything else as a storage failure.
func wrapUnlessKnown(msg string, err error) error {
	for _, known := range []error{
		entities.ErrValidation,
		entities.ErrNotFound,
		entities.ErrPermissionDenied,
		entities.ErrUnauthenticated,
		entities.ErrUploadFailed,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
