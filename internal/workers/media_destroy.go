package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/clipvault-dev/clipvault/internal/tasks"
)

// Purger removes a soft-deleted video's remote asset and row.
type Purger interface {
	PurgeVideo(ctx context.Context, videoID string) error
}

// HandleMediaDestroy processes a media:destroy task
func HandleMediaDestroy(ctx context.Context, t *asynq.Task, purger Purger, logger zerolog.Logger) error {
	payload, err := tasks.ParseTaskPayload(t)
	if err != nil {
		logger.Error().Err(err).Msg("Discarding malformed media destroy task")
		// Retrying cannot fix a malformed payload.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := logger.With().Str("video_id", payload.VideoID).Logger()
	log.Info().Msg("Destroying remote asset for deleted video")

	if err := purger.PurgeVideo(ctx, payload.VideoID); err != nil {
		log.Error().Err(err).Msg("Failed to purge video")
		return err
	}

	return nil
}
