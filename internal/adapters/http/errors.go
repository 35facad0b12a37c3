package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// Messages returned for failures whose details stay in the logs
const (
	msgServerError  = "Server error"
	msgUploadFailed = "Failed to process file upload"
)

// MapError converts an error returned by a handler into a status code and
// a response body. Internal details are never exposed.
func MapError(err error) (int, ports.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ports.ErrorResponse{Error: httpErrorMessage(he)}
	}

	var verr *entities.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ports.ErrorResponse{Error: "Validation failed", Errors: verr.Fields}
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest, ports.ErrorResponse{Error: sentinelMessage(err)}
	case errors.Is(err, entities.ErrUnauthenticated):
		return http.StatusUnauthorized, ports.ErrorResponse{Error: sentinelMessage(err)}
	case errors.Is(err, entities.ErrPermissionDenied):
		return http.StatusForbidden, ports.ErrorResponse{Error: "Not authorized to modify this resource"}
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, ports.ErrorResponse{Error: notFoundMessage(err)}
	case errors.Is(err, entities.ErrUploadFailed):
		return http.StatusInternalServerError, ports.ErrorResponse{Error: msgUploadFailed}
	default:
		return http.StatusInternalServerError, ports.ErrorResponse{Error: msgServerError}
	}
}

// HTTPErrorHandler writes MapError results and logs every 5xx
func HTTPErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := MapError(err)
		if code >= http.StatusInternalServerError {
			log.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).Errorw("Request failed",
				"error", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Errorw("Error sending response", "error", err)
		}
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	if he.Code >= http.StatusInternalServerError {
		return msgServerError
	}
	return fmt.Sprint(he.Message)
}

// sentinelMessage returns the sentinel text for the known client errors.
// Wrapped errors carry extra storage context that is not shown to clients.
func sentinelMessage(err error) string {
	for _, known := range []error{
		entities.ErrUsernameTaken,
		entities.ErrInvalidReference,
		entities.ErrUnsupportedType,
		entities.ErrFileTooLarge,
		entities.ErrNoFile,
		entities.ErrMissingCredentials,
		entities.ErrTokenMissing,
		entities.ErrTokenExpired,
		entities.ErrTokenInvalid,
		entities.ErrInvalidCredentials,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	if errors.Is(err, entities.ErrUnauthenticated) {
		return entities.ErrUnauthenticated.Error()
	}
	return entities.ErrValidation.Error()
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, entities.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, entities.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, entities.ErrAttachmentNotFound):
		return "Attachment not found"
	default:
		return "Not found"
	}
}
