package http

import (
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// SetCaller attaches the verified identity to the request context
func SetCaller(c echo.Context, claims *ports.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserRole, claims.Role)
}

// CallerFrom returns the identity attached by SetCaller
func CallerFrom(c echo.Context) (ports.Caller, bool) {
	userID, ok := c.Get(ContextUserID).(int64)
	if !ok || userID <= 0 {
		return ports.Caller{}, false
	}
	role, _ := c.Get(ContextUserRole).(entities.UserRole)
	return ports.Caller{UserID: userID, Role: role}, true
}

// mustCaller is used behind authRequired; a missing identity is still
// reported as unauthenticated rather than trusted.
func mustCaller(c echo.Context) (ports.Caller, error) {
	caller, ok := CallerFrom(c)
	if !ok {
		return ports.Caller{}, entities.ErrTokenMissing
	}
	return caller, nil
}
