// Package mediatest provides an in-memory media.Host for tests.
package mediatest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/clipvault-dev/clipvault/internal/media"
)

// Host records uploads and destroys in memory. It reports a compressed size
// of half the uploaded bytes.
type Host struct {
	mu        sync.Mutex
	seq       int
	Assets    map[string][]byte
	Destroyed []string

	UploadErr  error
	DestroyErr error
	Duration   float64
}

func New() *Host {
	return &Host{Assets: make(map[string][]byte)}
}

func (h *Host) Upload(ctx context.Context, req media.UploadRequest) (*media.Asset, error) {
	if h.UploadErr != nil {
		return nil, h.UploadErr
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	folder := media.ImageFolder
	if req.Kind == media.KindVideo {
		folder = media.VideoFolder
	}
	id := fmt.Sprintf("%s/asset-%d", folder, h.seq)
	h.Assets[id] = data

	return &media.Asset{
		PublicID: id,
		URL:      h.URL(id, req.Kind, media.Transform{}),
		Bytes:    int64(len(data) / 2),
		Duration: h.Duration,
	}, nil
}

func (h *Host) Destroy(ctx context.Context, publicID string, kind media.Kind) error {
	if h.DestroyErr != nil {
		return h.DestroyErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Assets[publicID]; !ok {
		return media.ErrNotFound
	}
	delete(h.Assets, publicID)
	h.Destroyed = append(h.Destroyed, publicID)
	return nil
}

func (h *Host) URL(publicID string, kind media.Kind, t media.Transform) string {
	if tr := t.String(); tr != "" {
		return fmt.Sprintf("https://media.test/%s/%s/%s", kind, tr, publicID)
	}
	return fmt.Sprintf("https://media.test/%s/%s", kind, publicID)
}

// Has reports whether publicID is currently stored.
func (h *Host) Has(publicID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.Assets[publicID]
	return ok
}
