package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	cldconfig "github.com/cloudinary/cloudinary-go/v2/config"

	"github.com/clipvault-dev/clipvault/internal/config"
)

const deliveryBase = "https://res.cloudinary.com"

// videoUploadTransform compresses incoming videos on the host.
const videoUploadTransform = "q_auto,f_mp4"

// Cloudinary is a Host backed by the Cloudinary upload API.
type Cloudinary struct {
	cld       *cloudinary.Cloudinary
	cloudName string
}

// NewCloudinary creates a Cloudinary host from credentials
func NewCloudinary(cfg config.CloudinaryConfig) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary configuration incomplete")
	}

	conf, err := cldconfig.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("invalid cloudinary configuration: %w", err)
	}
	if cfg.BaseURL != "" {
		conf.API.UploadPrefix = strings.TrimRight(cfg.BaseURL, "/")
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return &Cloudinary{cld: cld, cloudName: cfg.CloudName}, nil
}

// Upload streams req.Body to the host. Videos are compressed on arrival.
func (c *Cloudinary) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	params := uploader.UploadParams{
		Folder:       folderFor(req.Kind),
		ResourceType: string(req.Kind),
	}
	if req.Kind == KindVideo {
		params.Transformation = videoUploadTransform
	}

	res, err := c.cld.Upload.Upload(ctx, req.Body, params)
	if err != nil {
		return nil, hostFailure(ctx, err)
	}
	if res.Error.Message != "" {
		return nil, &HostError{Message: res.Error.Message}
	}
	if res.PublicID == "" {
		return nil, fmt.Errorf("media host returned no public_id")
	}

	return &Asset{
		PublicID: res.PublicID,
		URL:      res.SecureURL,
		Bytes:    int64(res.Bytes),
		Duration: durationOf(res.Response),
		Width:    res.Width,
		Height:   res.Height,
		Format:   res.Format,
	}, nil
}

// durationOf reads the video length from the raw upload response.
func durationOf(raw interface{}) float64 {
	data, err := json.Marshal(raw)
	if err != nil {
		return 0
	}
	var meta struct {
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return 0
	}
	return meta.Duration
}

// Destroy removes an asset. A missing asset yields ErrNotFound.
func (c *Cloudinary) Destroy(ctx context.Context, publicID string, kind Kind) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: string(kind),
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return hostFailure(ctx, err)
	}
	if res.Error.Message != "" {
		return &HostError{Message: res.Error.Message}
	}

	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return ErrNotFound
	default:
		return fmt.Errorf("unexpected destroy result %q", res.Result)
	}
}

// URL builds a delivery URL for publicID with t applied.
func (c *Cloudinary) URL(publicID string, kind Kind, t Transform) string {
	segments := []string{deliveryBase, c.cloudName, string(kind), "upload"}
	if tr := t.String(); tr != "" {
		segments = append(segments, tr)
	}
	segments = append(segments, publicID)
	return strings.Join(segments, "/")
}

// hostFailure wraps a transport or decoding error from the SDK. Cancellation
// is passed through unchanged.
func hostFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("media host request aborted: %w", err)
	}
	return &HostError{Message: err.Error()}
}
