// Package media talks to the external host that stores, compresses and
// transforms uploaded assets. clipvault never transcodes anything itself; it
// only assembles upload parameters and interprets the host's responses.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/clipvault-dev/clipvault/internal/config"
)

// Kind is the asset class the host stores an upload as.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

const (
	VideoFolder = "video-uploads"
	ImageFolder = "image-uploads"
)

var (
	ErrNotFound       = errors.New("asset not found")
	ErrUnknownBackend = errors.New("unknown media backend")
)

// HostError is returned when the host fails or answers with an error
// payload. StatusCode is the host's HTTP status when known, 0 otherwise.
type HostError struct {
	StatusCode int
	Message    string
}

func (e *HostError) Error() string {
	if e.StatusCode == 0 {
		return "media host error: " + e.Message
	}
	return fmt.Sprintf("media host error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err means the asset is already gone.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var hostErr *HostError
	return errors.As(err, &hostErr) && hostErr.StatusCode == http.StatusNotFound
}

// UploadRequest describes one upload.
type UploadRequest struct {
	Kind        Kind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Asset is the host's description of a stored upload.
type Asset struct {
	PublicID string
	URL      string
	Bytes    int64
	Duration float64
	Width    int
	Height   int
	Format   string
}

// Transform is a delivery-time transformation. Zero fields are omitted.
type Transform struct {
	Width   int
	Height  int
	Crop    string // fill, pad, scale
	Gravity string // auto, center
	Format  string // jpg, mp4
	Quality string // auto
	Raw     []string
}

// Host is the external media storage/transformation API.
type Host interface {
	Upload(ctx context.Context, req UploadRequest) (*Asset, error)
	Destroy(ctx context.Context, publicID string, kind Kind) error
	URL(publicID string, kind Kind, t Transform) string
}

// New builds the Host selected by cfg.Backend.
func New(cfg config.MediaConfig) (Host, error) {
	switch strings.ToLower(cfg.Backend) {
	case "cloudinary":
		return NewCloudinary(cfg.Cloudinary)
	case "minio":
		return NewMinio(context.Background(), cfg.Minio)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// folderFor returns the host folder uploads of kind are stored under.
func folderFor(kind Kind) string {
	if kind == KindVideo {
		return VideoFolder
	}
	return ImageFolder
}
