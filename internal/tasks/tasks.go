package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeMediaDestroy = "media:destroy"
)

// DefaultQueue is the queue the worker consumes.
const DefaultQueue = "default"

const destroyTimeout = 2 * time.Minute

// TaskPayload is the common payload for all tasks
type TaskPayload struct {
	VideoID string `json:"video_id,omitempty"`
}

// NewMediaDestroyTask creates a task that removes a deleted video's remote
// asset and then its row
func NewMediaDestroyTask(videoID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TaskPayload{
		VideoID: videoID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeMediaDestroy, payload), nil
}

// ParseTaskPayload parses task payload from Asynq task
func ParseTaskPayload(task *asynq.Task) (TaskPayload, error) {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.VideoID == "" {
		return payload, fmt.Errorf("payload missing video_id")
	}
	return payload, nil
}

// ErrAlreadyQueued is returned when a destroy task for the video is still
// pending, scheduled, retrying or running.
var ErrAlreadyQueued = errors.New("media destroy already queued")

// Client is the subset of *asynq.Client used to enqueue tasks.
type Client interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector is the subset of *asynq.Inspector used to resolve task ID
// conflicts.
type Inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// Enqueuer schedules background work on an Asynq client.
type Enqueuer struct {
	client    Client
	inspector Inspector
}

// NewEnqueuer wraps client. inspector may be nil, in which case a task ID
// conflict is always reported as ErrAlreadyQueued.
func NewEnqueuer(client Client, inspector Inspector) *Enqueuer {
	return &Enqueuer{client: client, inspector: inspector}
}

// MediaDestroyTaskID is the task ID used for videoID. Repeated enqueues for
// the same video collapse into one live task.
func MediaDestroyTaskID(videoID string) string {
	return TypeMediaDestroy + ":" + videoID
}

// EnqueueMediaDestroy schedules removal of a soft-deleted video. When a task
// with the same ID is still live it returns ErrAlreadyQueued. An archived or
// completed task keeps its ID reserved, so it is deleted and the destroy is
// enqueued again.
func (e *Enqueuer) EnqueueMediaDestroy(ctx context.Context, videoID string) error {
	task, err := NewMediaDestroyTask(videoID)
	if err != nil {
		return err
	}

	id := MediaDestroyTaskID(videoID)
	err = e.enqueue(ctx, task, id)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	if e.inspector == nil {
		return ErrAlreadyQueued
	}

	info, err := e.inspector.GetTaskInfo(DefaultQueue, id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound):
		// Removed between the enqueue and the lookup.
	case err != nil:
		return fmt.Errorf("failed to inspect media destroy task: %w", err)
	case info.State == asynq.TaskStateArchived || info.State == asynq.TaskStateCompleted:
		if err := e.inspector.DeleteTask(DefaultQueue, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return fmt.Errorf("failed to delete stale media destroy task: %w", err)
		}
	default:
		return ErrAlreadyQueued
	}

	err = e.enqueue(ctx, task, id)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return ErrAlreadyQueued
	}
	return err
}

func (e *Enqueuer) enqueue(ctx context.Context, task *asynq.Task, id string) error {
	_, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(DefaultQueue),
		asynq.TaskID(id),
		asynq.MaxRetry(10),
		asynq.Timeout(destroyTimeout),
		asynq.Retention(time.Hour),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("failed to enqueue media destroy: %w", err)
	}
	return err
}
