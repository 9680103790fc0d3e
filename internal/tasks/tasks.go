// Package tasks defines the background jobs exchanged between the API, the
// scheduler and the worker through asynq
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeThumbnailCreate = "thumbnail:create"
	TypeThumbnailResize = "thumbnail:resize"
	TypeAssetSync       = "asset:sync"
	TypeEmailSend       = "email:send"
)

// Queue names, matching the worker's priorities
const (
	QueueImmediate = "immediate"
	QueueDefault   = "default"
)

// Asset sync delivery. A sync stays unique per payload for syncUniqueTTL or
// until it completes, and a busy asset is retried up to syncMaxRetry times.
const (
	syncUniqueTTL = 10 * time.Minute
	syncMaxRetry  = 5
)

// ThumbnailCreatePayload asks the worker to cache an asset's preview image
type ThumbnailCreatePayload struct {
	AssetSlug string `json:"asset_slug"`
}

// ThumbnailResizePayload asks the worker to render a media at one dimension
type ThumbnailResizePayload struct {
	MediaID int `json:"media_id"`
	Width   int `json:"width,omitempty"`
	Height  int `json:"height,omitempty"`
}

// AssetSyncPayload asks the worker to pull an asset from its repository
type AssetSyncPayload struct {
	Slug         string `json:"slug"`
	OverrideMeta bool   `json:"override_meta"`
}

// EmailPayload asks the worker to deliver a templated e-mail
type EmailPayload struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// Inserter is the part of *asynq.Client used to enqueue tasks
type Inserter interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues registry tasks. Enqueues are fire-and-forget: callers never
// wait for the task to run.
type Client struct {
	inserter Inserter
}

// NewClient wraps an asynq client
func NewClient(inserter Inserter) *Client {
	return &Client{inserter: inserter}
}

// EnqueueThumbnailCreate schedules generation of an asset's thumbnail
func (c *Client) EnqueueThumbnailCreate(ctx context.Context, assetSlug string) error {
	return c.enqueue(ctx, TypeThumbnailCreate, ThumbnailCreatePayload{AssetSlug: assetSlug}, asynq.Queue(QueueImmediate))
}

// EnqueueThumbnailResize schedules a resized rendering of a media
func (c *Client) EnqueueThumbnailResize(ctx context.Context, mediaID, width, height int) error {
	payload := ThumbnailResizePayload{MediaID: mediaID, Width: width, Height: height}
	return c.enqueue(ctx, TypeThumbnailResize, payload, asynq.Queue(QueueImmediate))
}

// EnqueueAssetSync schedules a pull of an asset. An identical sync that is
// still pending absorbs the new request.
func (c *Client) EnqueueAssetSync(ctx context.Context, slug string, overrideMeta bool) error {
	err := c.enqueue(ctx, TypeAssetSync, AssetSyncPayload{Slug: slug, OverrideMeta: overrideMeta},
		asynq.Queue(QueueDefault),
		asynq.Unique(syncUniqueTTL),
		asynq.MaxRetry(syncMaxRetry),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueEmail schedules delivery of a templated e-mail
func (c *Client) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return c.enqueue(ctx, TypeEmailSend, payload, asynq.Queue(QueueDefault), asynq.TaskID(uuid.NewString()))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	if _, err := c.inserter.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	return nil
}

// Decode unmarshals a task payload, marking malformed payloads as not retryable
func Decode[T any](t *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}
