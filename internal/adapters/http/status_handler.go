package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// StatusHandler serves the API index and database status
type StatusHandler struct {
	statusService ports.StatusService
	version       string
	logger        *logger.Logger
}

func NewStatusHandler(statusService ports.StatusService, version string, logger *logger.Logger) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
		version:       version,
		logger:        logger,
	}
}

// Index lists the public API surface
func (h *StatusHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"name":    "todolist API",
		"version": h.version,
		"endpoints": map[string][]string{
			"auth":   {"POST /auth/register", "POST /auth/login", "GET /auth/me", "GET /auth/users"},
			"tasks":  {"GET /tasks", "GET /tasks/:id", "POST /tasks", "PUT /tasks/:id", "DELETE /tasks/:id", "GET /tasks/:id/history", "GET /tasks/categories/all", "GET /tasks/tags/all"},
			"upload": {"POST /upload", "GET /upload/task/:taskId", "DELETE /upload/:id"},
			"admin":  {"GET /api/db-status", "GET /admin/users"},
		},
	})
}

// DBStatus reports connectivity, record counts and pool statistics
func (h *StatusHandler) DBStatus(c echo.Context) error {
	status, err := h.statusService.Status(c.Request().Context())
	if err != nil {
		return err
	}

	code := http.StatusOK
	if !status.Connected {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
