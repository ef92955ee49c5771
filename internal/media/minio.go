package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"

	"github.com/clipvault-dev/clipvault/internal/config"
)

// Minio is a Host backed by S3-compatible object storage. It stores bytes
// as-is: no compression, no delivery transformations.
type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	return raw, false, nil
}

// NewMinio connects to the object store and checks that the bucket exists.
func NewMinio(ctx context.Context, cfg config.MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.Bucket)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &Minio{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload stores the body under "<folder>/<ulid><ext>".
func (m *Minio) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	key := objectKey(req.Kind, req.Filename)

	info, err := m.client.PutObject(ctx, m.bucket, key, req.Body, req.Size, minio.PutObjectOptions{
		ContentType: req.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &Asset{
		PublicID: key,
		URL:      m.URL(key, req.Kind, Transform{}),
		Bytes:    info.Size,
		Format:   strings.TrimPrefix(path.Ext(key), "."),
	}, nil
}

// Destroy removes the object. S3 semantics make deleting a missing key a
// success.
func (m *Minio) Destroy(ctx context.Context, publicID string, kind Kind) error {
	if err := m.client.RemoveObject(ctx, m.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// URL returns the object URL; transformations are not supported.
func (m *Minio) URL(publicID string, kind Kind, t Transform) string {
	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, publicID)
}

func objectKey(kind Kind, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return path.Join(folderFor(kind), ulid.Make().String()+ext)
}
