package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clipvault-dev/clipvault/internal/models"
	"github.com/clipvault-dev/clipvault/internal/tasks"
)

// PendingLister lists soft-deleted videos awaiting purge
type PendingLister interface {
	PendingPurges(ctx context.Context, cutoff time.Time) ([]models.Video, error)
}

// Enqueuer schedules a media destroy task
type Enqueuer interface {
	EnqueueMediaDestroy(ctx context.Context, videoID string) error
}

// PurgeSweeper re-enqueues destroy tasks for deletions that never completed,
// e.g. because Redis was unreachable when the video was deleted.
type PurgeSweeper struct {
	lister   PendingLister
	enqueuer Enqueuer
	grace    time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPurgeSweeper(lister PendingLister, enqueuer Enqueuer, grace time.Duration, logger zerolog.Logger) *PurgeSweeper {
	return &PurgeSweeper{
		lister:   lister,
		enqueuer: enqueuer,
		grace:    grace,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep enqueues every video soft-deleted more than grace ago. It returns the
// number of tasks enqueued; videos whose destroy task is still live are not
// counted.
func (s *PurgeSweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.lister.PendingPurges(ctx, s.now().Add(-s.grace))
	if err != nil {
		return 0, err
	}

	enqueued, queued := 0, 0
	for _, video := range pending {
		err := s.enqueuer.EnqueueMediaDestroy(ctx, video.ID)
		switch {
		case errors.Is(err, tasks.ErrAlreadyQueued):
			queued++
		case err != nil:
			s.logger.Error().Err(err).Str("video_id", video.ID).Msg("Failed to re-enqueue media destroy")
		default:
			enqueued++
		}
	}

	if len(pending) > 0 {
		s.logger.Info().
			Int("pending", len(pending)).
			Int("enqueued", enqueued).
			Int("already_queued", queued).
			Msg("Purge sweep completed")
	} else {
		s.logger.Debug().Msg("Purge sweep found nothing to do")
	}

	return enqueued, nil
}

// StartPurgeScheduler runs Sweep on the given cron schedule (standard 5-field
// format) until ctx is cancelled.
func StartPurgeScheduler(ctx context.Context, schedule string, sweeper *PurgeSweeper, logger zerolog.Logger) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(parser))
	_, err := c.AddFunc(schedule, func() {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.Error().Err(err).Msg("Purge sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule purge sweep: %w", err)
	}

	logger.Info().Str("schedule", schedule).Msg("Purge scheduler started")
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		logger.Info().Msg("Purge scheduler stopped")
	}()

	return nil
}
