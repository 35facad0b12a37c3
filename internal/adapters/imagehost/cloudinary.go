package imagehost

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/taskmaster/todolist/internal/infrastructure/config"
	"github.com/taskmaster/todolist/internal/ports"
)

// Images are bounded to 1200x1200 and re-encoded with automatic quality
const uploadTransformation = "c_limit,w_1200,h_1200/q_auto:good,f_auto"

// ErrNotConfigured is returned by the disabled host
var ErrNotConfigured = errors.New("image host credentials are not configured")

// uploadAPI is the part of the Cloudinary upload API this adapter calls
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores uploaded images in a Cloudinary folder
type Cloudinary struct {
	api    uploadAPI
	folder string
}

// NewCloudinary returns the Cloudinary host, or a disabled host when
// credentials are missing so the rest of the API still starts.
func NewCloudinary(cfg config.CloudinaryConfig) (ports.ImageHost, error) {
	if !cfg.IsConfigured() {
		return Disabled{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{api: &cld.Upload, folder: cfg.Folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, path, filename string) (*ports.ImageResult, error) {
	resp, err := c.api.Upload(ctx, path, uploader.UploadParams{
		Folder:         c.folder,
		UseFilename:    api.Bool(true),
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
		Transformation: uploadTransformation,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload %s: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload %s: %s", filename, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload %s: empty url in response", filename)
	}

	return &ports.ImageResult{
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
		Width:    resp.Width,
		Height:   resp.Height,
		Format:   resp.Format,
		Bytes:    int64(resp.Bytes),
	}, nil
}

func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	resp, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, resp.Error.Message)
	}
	return nil
}

// Disabled rejects every upload. Used when no credentials are configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string) (*ports.ImageResult, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error {
	return ErrNotConfigured
}
