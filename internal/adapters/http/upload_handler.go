package http

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

// Multipart field names accepted for the image, in order of preference
var uploadFields = []string{"image", "file"}

// UploadHandler handles image uploads and attachment management
type UploadHandler struct {
	uploadService ports.UploadService
	logger        *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService ports.UploadService, logger *logger.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		logger:        logger,
	}
}

// Upload relays a multipart image to the image host
func (h *UploadHandler) Upload(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	header, err := formFile(c)
	if err != nil {
		return err
	}

	upload := ports.FileUpload{}
	if header != nil {
		file, err := header.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format").SetInternal(err)
		}
		defer file.Close()

		upload.Reader = file
		upload.Filename = header.Filename
		upload.Size = header.Size
		upload.ContentType = header.Header.Get(echo.HeaderContentType)
	}

	if v := c.FormValue("taskId"); v != "" {
		taskID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || taskID <= 0 {
			return entities.NewValidationError("taskId", "taskId must be a positive integer")
		}
		upload.TaskID = &taskID
	}

	response, err := h.uploadService.Upload(c.Request().Context(), caller, upload)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, response)
}

// ListByTask returns attachments of a task
func (h *UploadHandler) ListByTask(c echo.Context) error {
	taskID, err := pathID(c, "taskId")
	if err != nil {
		return err
	}

	attachments, err := h.uploadService.ListByTask(c.Request().Context(), taskID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, attachments)
}

// Delete removes an attachment
func (h *UploadHandler) Delete(c echo.Context) error {
	caller, err := mustCaller(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.uploadService.Delete(c.Request().Context(), caller, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Attachment deleted successfully"})
}

// formFile returns nil without error when the request carries no file, so
// the service reports the missing upload.
func formFile(c echo.Context) (*multipart.FileHeader, error) {
	for _, field := range uploadFields {
		header, err := c.FormFile(field)
		switch {
		case err == nil:
			return header, nil
		case errors.Is(err, http.ErrMissingFile):
			continue
		case errors.Is(err, http.ErrNotMultipart):
			return nil, nil
		default:
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request format").SetInternal(err)
		}
	}
	return nil, nil
}
