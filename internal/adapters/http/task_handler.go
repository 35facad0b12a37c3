package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks returns one page of tasks matching the query filters
func (h *TaskHandler) ListTasks(c echo.Context) error {
	filter, err := parseTaskFilter(c)
	if err != nil {
		return err
	}

	page, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, page)
}

func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var patch ports.TaskPatch
	if err := bindBody(c, &patch); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), caller, id, patch)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), caller, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Task deleted successfully"})
}

// GetHistory returns the audit trail of a task
func (h *TaskHandler) GetHistory(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.taskService.GetHistory(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

func (h *TaskHandler) ListCategories(c echo.Context) error {
	categories, err := h.taskService.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *TaskHandler) ListTags(c echo.Context) error {
	tags, err := h.taskService.ListTags(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

// parseTaskFilter reads list query params. Malformed page and limit fall
// back to defaults; malformed filters are rejected.
func parseTaskFilter(c echo.Context) (ports.TaskFilter, error) {
	filter := ports.TaskFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Sort:   ports.TaskSort(c.QueryParam("sort")),
	}

	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}

	verr := &entities.ValidationError{}

	if v := c.QueryParam("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			verr.Add("completed", "completed must be true or false")
		} else {
			filter.Completed = &completed
		}
	}
	if v := c.QueryParam("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("category", "category must be a positive integer")
		} else {
			filter.CategoryID = &id
		}
	}
	if v := c.QueryParam("tag"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			verr.Add("tag", "tag must be a positive integer")
		} else {
			filter.TagID = &id
		}
	}

	if err := verr.OrNil(); err != nil {
		return ports.TaskFilter{}, err
	}
	return filter.Normalize(), nil
}
