package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	httpHandlers "github.com/taskmaster/todolist/internal/adapters/http"
	"github.com/taskmaster/todolist/internal/application/services"
	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

// CustomValidator runs the shared request validation for echo's c.Validate
type CustomValidator struct{}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return services.Validate(i)
}

// authRequired validates the bearer token and attaches the caller
func (s *Server) authRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := s.verifyRequest(c)
		if err != nil {
			s.logger.LogSecurityEvent("invalid_token", 0, c.RealIP(), map[string]interface{}{
				"error":    err.Error(),
				"endpoint": c.Request().URL.Path,
			})
			return err
		}

		httpHandlers.SetCaller(c, claims)
		return next(c)
	}
}

// optionalAuth attaches the caller when a valid token is present and never rejects
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if claims, err := s.verifyRequest(c); err == nil {
			httpHandlers.SetCaller(c, claims)
		}
		return next(c)
	}
}

// adminRequired must run after authRequired
func (s *Server) adminRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, ok := httpHandlers.CallerFrom(c)
		if !ok {
			return entities.ErrTokenMissing
		}

		if !caller.IsAdmin() {
			s.logger.LogSecurityEvent("insufficient_permissions", caller.UserID, c.RealIP(), map[string]interface{}{
				"user_role": caller.Role,
				"endpoint":  c.Request().URL.Path,
			})
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}

		return next(c)
	}
}

func (s *Server) verifyRequest(c echo.Context) (*ports.Claims, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return nil, entities.ErrTokenMissing
	}

	// Extract token from "Bearer <token>"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, entities.ErrTokenInvalid
	}

	return s.services.Auth.VerifyToken(parts[1])
}

// rateLimiter shares counters through Redis when a store is configured and
// falls back to an in-process token bucket otherwise.
func (s *Server) rateLimiter(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	requests := s.config.Security.RateLimitRequests
	if store == nil {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		store = middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Every(window / time.Duration(requests)),
			Burst:     requests,
			ExpiresIn: 3 * window,
		})
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return probePaths[c.Request().URL.Path]
		},
		Store: store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
		},
	})
}

// requestID uses uuids so ids can be correlated with task events
func requestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// Liveness and metrics endpoints are exempt from rate limiting
var probePaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}
