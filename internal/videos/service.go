package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/clipvault-dev/clipvault/internal/media"
	"github.com/clipvault-dev/clipvault/internal/metrics"
	"github.com/clipvault-dev/clipvault/internal/models"
	"github.com/clipvault-dev/clipvault/internal/tasks"
)

var (
	ErrNotFound  = errors.New("video not found")
	ErrForbidden = errors.New("video belongs to another user")
)

// DestroyEnqueuer schedules removal of a soft-deleted video's remote asset.
type DestroyEnqueuer interface {
	EnqueueMediaDestroy(ctx context.Context, videoID string) error
}

type Service struct {
	db       *gorm.DB
	host     media.Host
	enqueuer DestroyEnqueuer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(db *gorm.DB, host media.Host, enqueuer DestroyEnqueuer, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		host:     host,
		enqueuer: enqueuer,
		metrics:  m,
		logger:   logger,
	}
}

type CreateVideoParams struct {
	OwnerID      string
	Title        string
	Description  string
	Filename     string
	ContentType  string
	OriginalSize int64
	Body         io.Reader
}

// CreateVideo forwards the upload to the media host and records the result.
// If the row cannot be written the remote asset is removed again.
func (s *Service) CreateVideo(ctx context.Context, params CreateVideoParams) (*models.Video, error) {
	asset, err := s.host.Upload(ctx, media.UploadRequest{
		Kind:        media.KindVideo,
		Filename:    params.Filename,
		ContentType: params.ContentType,
		Size:        params.OriginalSize,
		Body:        params.Body,
	})
	if err != nil {
		s.metrics.Uploads.WithLabelValues(string(media.KindVideo), "error").Inc()
		s.logger.Error().Err(err).Str("owner_id", params.OwnerID).Msg("Media host rejected video upload")
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	video := &models.Video{
		Title:          params.Title,
		Description:    params.Description,
		PublicID:       asset.PublicID,
		URL:            asset.URL,
		OriginalSize:   params.OriginalSize,
		CompressedSize: asset.Bytes,
		Duration:       asset.Duration,
		OwnerID:        params.OwnerID,
	}

	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		s.metrics.Uploads.WithLabelValues(string(media.KindVideo), "error").Inc()
		s.logger.Error().Err(err).Str("public_id", asset.PublicID).Msg("Failed to record video, removing remote asset")

		// The request context may already be cancelled; cleanup gets its own.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if derr := s.host.Destroy(cleanupCtx, asset.PublicID, media.KindVideo); derr != nil && !media.IsNotFound(derr) {
			s.logger.Warn().Err(derr).Str("public_id", asset.PublicID).Msg("Failed to remove orphaned asset")
		}
		return nil, fmt.Errorf("failed to create video record: %w", err)
	}

	s.metrics.Uploads.WithLabelValues(string(media.KindVideo), "ok").Inc()
	s.metrics.UploadBytes.WithLabelValues(string(media.KindVideo)).Add(float64(params.OriginalSize))

	s.logger.Info().
		Str("video_id", video.ID).
		Str("public_id", video.PublicID).
		Str("owner_id", video.OwnerID).
		Int64("original_size", video.OriginalSize).
		Int64("compressed_size", video.CompressedSize).
		Msg("Video uploaded")

	return video, nil
}

type ImageUpload struct {
	PublicID string            `json:"public_id"`
	URL      string            `json:"url"`
	Formats  []media.FormatURL `json:"formats"`
}

type UploadImageParams struct {
	OwnerID     string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadImage forwards an image to the media host. Images are not recorded;
// the caller receives the social-format delivery URLs directly.
func (s *Service) UploadImage(ctx context.Context, params UploadImageParams) (*ImageUpload, error) {
	asset, err := s.host.Upload(ctx, media.UploadRequest{
		Kind:        media.KindImage,
		Filename:    params.Filename,
		ContentType: params.ContentType,
		Size:        params.Size,
		Body:        params.Body,
	})
	if err != nil {
		s.metrics.Uploads.WithLabelValues(string(media.KindImage), "error").Inc()
		s.logger.Error().Err(err).Str("owner_id", params.OwnerID).Msg("Media host rejected image upload")
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	s.metrics.Uploads.WithLabelValues(string(media.KindImage), "ok").Inc()
	s.metrics.UploadBytes.WithLabelValues(string(media.KindImage)).Add(float64(params.Size))

	s.logger.Info().
		Str("public_id", asset.PublicID).
		Str("owner_id", params.OwnerID).
		Msg("Image uploaded")

	return &ImageUpload{
		PublicID: asset.PublicID,
		URL:      asset.URL,
		Formats:  media.SocialURLs(s.host, asset.PublicID),
	}, nil
}

type ListVideosParams struct {
	OwnerID string // empty lists every owner's videos
	Limit   int
}

// ListVideos returns videos newest first
func (s *Service) ListVideos(ctx context.Context, params ListVideosParams) ([]models.Video, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if params.OwnerID != "" {
		query = query.Where("owner_id = ?", params.OwnerID)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var videos []models.Video
	if err := query.Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// GetVideo loads a live (not deleted) video
func (s *Service) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	if err := models.FindByID(s.db.WithContext(ctx), id, &video); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return &video, nil
}

type DeleteVideoParams struct {
	VideoID     string
	RequesterID string
}

// DeleteVideo soft-deletes the row and schedules removal of the remote asset.
// A failed enqueue is not fatal: the purge sweep picks the row up later.
func (s *Service) DeleteVideo(ctx context.Context, params DeleteVideoParams) error {
	video, err := s.GetVideo(ctx, params.VideoID)
	if err != nil {
		return err
	}

	if video.OwnerID != params.RequesterID {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(video).Error; err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueMediaDestroy(ctx, video.ID); err != nil && !errors.Is(err, tasks.ErrAlreadyQueued) {
			s.logger.Warn().Err(err).Str("video_id", video.ID).Msg("Failed to enqueue media destroy, leaving it to the purge sweep")
		}
	}

	s.logger.Info().
		Str("video_id", video.ID).
		Str("deleted_by", params.RequesterID).
		Msg("Video deleted")

	return nil
}

// PurgeVideo removes a soft-deleted video's remote asset and then the row
// itself. Purging a video that is already gone succeeds.
func (s *Service) PurgeVideo(ctx context.Context, videoID string) error {
	var video models.Video
	err := models.FindByID(s.db.WithContext(ctx).Unscoped(), videoID, &video)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug().Str("video_id", videoID).Msg("Video already purged")
			return nil
		}
		return fmt.Errorf("failed to load video: %w", err)
	}

	if !video.DeletedAt.Valid {
		s.logger.Warn().Str("video_id", videoID).Msg("Refusing to purge a live video")
		return nil
	}

	if err := s.host.Destroy(ctx, video.PublicID, media.KindVideo); err != nil {
		if !media.IsNotFound(err) {
			s.metrics.MediaDestroys.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to destroy remote asset: %w", err)
		}
		s.metrics.MediaDestroys.WithLabelValues("missing").Inc()
	} else {
		s.metrics.MediaDestroys.WithLabelValues("ok").Inc()
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&video).Error; err != nil {
		return fmt.Errorf("failed to purge video record: %w", err)
	}

	s.logger.Info().
		Str("video_id", video.ID).
		Str("public_id", video.PublicID).
		Msg("Video purged")

	return nil
}

// PendingPurges lists soft-deleted videos deleted before cutoff
func (s *Service) PendingPurges(ctx context.Context, cutoff time.Time) ([]models.Video, error) {
	var videos []models.Video
	err := s.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Order("deleted_at ASC").
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending purges: %w", err)
	}
	return videos, nil
}

// Links derives the delivery URLs shown for a video
func (s *Service) Links(video *models.Video) media.VideoLinks {
	return media.LinksFor(s.host, video.PublicID)
}
