package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/infrastructure/logger"
	"github.com/taskmaster/todolist/internal/ports"
)

var allowedImageTypes = []string{"image/jpeg", "image/png"}

// UploadService relays image uploads to the image host and records them as
// task attachments.
type UploadService struct {
	tasks       ports.TaskRepository
	attachments ports.AttachmentRepository
	host        ports.ImageHost
	cfg         config.UploadConfig
	logger      *logger.Logger
}

func NewUploadService(
	tasks ports.TaskRepository,
	attachments ports.AttachmentRepository,
	host ports.ImageHost,
	cfg config.UploadConfig,
	logger *logger.Logger,
) *UploadService {
	return &UploadService{
		tasks:       tasks,
		attachments: attachments,
		host:        host,
		cfg:         cfg,
		logger:      logger.WithComponent("upload"),
	}
}

// Upload spools file to a temporary file, checks its type, forwards it to
// the image host and stores the resulting attachment. The temporary file is
// removed on every path.
func (s *UploadService) Upload(ctx context.Context, caller ports.Caller, file ports.FileUpload) (*ports.UploadResponse, error) {
	if file.Reader == nil {
		return nil, entities.ErrNoFile
	}
	if file.Size > s.cfg.MaxBytes {
		return nil, entities.ErrFileTooLarge
	}
	if file.TaskID != nil {
		if err := s.authorizeTask(ctx, caller, *file.TaskID); err != nil {
			return nil, err
		}
	}

	path, size, err := s.spool(file.Reader, file.Filename)
	if path != "" {
		defer s.cleanup(path)
	}
	if err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	if !isAllowedImage(mt) {
		s.logger.Infow("Rejected upload", "user_id", caller.UserID, "detected_type", mt.String())
		return nil, entities.ErrUnsupportedType
	}

	name := filepath.Base(file.Filename)
	result, err := s.host.Upload(ctx, path, name)
	if err != nil {
		s.logger.Errorw("Image host upload failed", "user_id", caller.UserID, "error", err)
		return nil, fmt.Errorf("%w: %v", entities.ErrUploadFailed, err)
	}

	attachment := &entities.Attachment{
		FileURL:  result.URL,
		PublicID: optionalString(result.PublicID),
		TaskID:   file.TaskID,
		UserID:   caller.UserID,
		FileName: &name,
		FileType: optionalString(mt.String()),
		FileSize: &size,
		Width:    optionalInt(result.Width),
		Height:   optionalInt(result.Height),
	}
	if result.Bytes > 0 {
		attachment.FileSize = &result.Bytes
	}

	if err := s.attachments.Create(ctx, attachment); err != nil {
		// Do not leave an orphaned remote image behind
		if result.PublicID != "" {
			if delErr := s.host.Delete(ctx, result.PublicID); delErr != nil {
				s.logger.Warnw("Failed to remove orphaned image", "public_id", result.PublicID, "error", delErr)
			}
		}
		return nil, wrapUnlessKnown("failed to save attachment", err)
	}

	s.logger.LogUserAction(caller.UserID, "file_uploaded", map[string]interface{}{
		"attachment_id": attachment.ID,
		"bytes":         *attachment.FileSize,
	})

	return &ports.UploadResponse{
		Message:  "File uploaded successfully",
		FileID:   attachment.ID,
		FileURL:  attachment.FileURL,
		FileName: name,
		FileSize: *attachment.FileSize,
		Width:    result.Width,
		Height:   result.Height,
	}, nil
}

// ListByTask returns the attachments of an existing task
func (s *UploadService) ListByTask(ctx context.Context, taskID int64) ([]*entities.Attachment, error) {
	if _, err := s.tasks.GetOwnerID(ctx, taskID); err != nil {
		return nil, wrapUnlessKnown("failed to load task", err)
	}

	attachments, err := s.attachments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// Delete removes an attachment. The uploader, the owner of the linked task
// and admins may delete it. The remote image is removed best effort.
func (s *UploadService) Delete(ctx context.Context, caller ports.Caller, id int64) error {
	attachment, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return wrapUnlessKnown("failed to load attachment", err)
	}

	var taskOwner *int64
	if attachment.TaskID != nil {
		ownerID, err := s.tasks.GetOwnerID(ctx, *attachment.TaskID)
		switch {
		case err == nil:
			taskOwner = &ownerID
		case !errors.Is(err, entities.ErrNotFound):
			return fmt.Errorf("failed to load task owner: %w", err)
		}
	}

	if !attachment.CanBeDeletedBy(caller.UserID, caller.Role, taskOwner) {
		s.logger.LogSecurityEvent("attachment_delete_denied", caller.UserID, "", map[string]interface{}{
			"attachment_id": id,
		})
		return entities.ErrPermissionDenied
	}

	if err := s.attachments.Delete(ctx, id); err != nil {
		return wrapUnlessKnown("failed to delete attachment", err)
	}

	if attachment.PublicID != nil && *attachment.PublicID != "" {
		if err := s.host.Delete(ctx, *attachment.PublicID); err != nil {
			s.logger.Warnw("Failed to delete remote image", "attachment_id", id, "error", err)
		}
	}

	s.logger.LogUserAction(caller.UserID, "file_deleted", map[string]interface{}{"attachment_id": id})
	return nil
}

func (s *UploadService) authorizeTask(ctx context.Context, caller ports.Caller, taskID int64) error {
	ownerID, err := s.tasks.GetOwnerID(ctx, taskID)
	if err != nil {
		return wrapUnlessKnown("failed to load task", err)
	}
	task := entities.Task{ID: taskID, UserID: ownerID}
	if !task.CanBeModifiedBy(caller.UserID, caller.Role) {
		return entities.ErrPermissionDenied
	}
	return nil
}

// spool copies r into a new temporary file, stopping one byte past the size
// limit. The returned path is non-empty whenever a file was created.
func (s *UploadService) spool(r io.Reader, filename string) (string, int64, error) {
	tmp, err := os.CreateTemp(s.cfg.TempDir, "upload-*"+tempExt(filename))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()

	n, copyErr := io.Copy(tmp, io.LimitReader(r, s.cfg.MaxBytes+1))
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		return path, n, fmt.Errorf("failed to buffer upload: %w", copyErr)
	case closeErr != nil:
		return path, n, fmt.Errorf("failed to buffer upload: %w", closeErr)
	case n > s.cfg.MaxBytes:
		return path, n, entities.ErrFileTooLarge
	case n == 0:
		return path, n, entities.ErrNoFile
	}
	return path, n, nil
}

func (s *UploadService) cleanup(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnw("Failed to remove temp upload", "path", path, "error", err)
	}
}

func isAllowedImage(mt *mimetype.MIME) bool {
	for _, t := range allowedImageTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func tempExt(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg", ".png":
		return ext
	default:
		return ""
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
