// Package queue schedules delayed publish jobs and runs them when they fire.
package queue

import (
	"context"
	"time"
)

const TaskTypePublishPost = "publish:post"

// PublishPostPayload is everything a fired job needs to publish without
// re-reading the request. Epoch is the post's dispatch epoch when the job was
// scheduled; a mismatch at fire time means the job is stale.
type PublishPostPayload struct {
	PostID      int64  `json:"post_id"`
	Epoch       int64  `json:"epoch"`
	Platform    string `json:"platform"`
	Caption     string `json:"caption"`
	ImageURL    string `json:"image_url"`
	AccessToken string `json:"access_token"`
}

// Scheduler is the delayed-execution gateway. Cancel never fails on unknown,
// finished or already cancelled jobs.
type Scheduler interface {
	Schedule(ctx context.Context, payload PublishPostPayload, at time.Time) (string, error)
	RunNow(ctx context.Context, payload PublishPostPayload) (string, error)
	Cancel(ctx context.Context, jobID string)
	Exists(ctx context.Context, jobID string) (bool, error)
}

// JobExecutor performs a fired publish job.
type JobExecutor interface {
	ExecuteScheduled(ctx context.Context, payload PublishPostPayload) error
}
