package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultQueue = "default"

type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewAsynqScheduler(redisConn asynq.RedisConnOpt) *AsynqScheduler {
	return &AsynqScheduler{
		client:    asynq.NewClient(redisConn),
		inspector: asynq.NewInspector(redisConn),
		queue:     DefaultQueue,
	}
}

func (s *AsynqScheduler) Schedule(ctx context.Context, payload PublishPostPayload, at time.Time) (string, error) {
	return s.enqueue(ctx, payload, asynq.ProcessAt(at))
}

func (s *AsynqScheduler) RunNow(ctx context.Context, payload PublishPostPayload) (string, error) {
	return s.enqueue(ctx, payload)
}

func (s *AsynqScheduler) enqueue(ctx context.Context, payload PublishPostPayload, opts ...asynq.Option) (string, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	opts = append(opts, asynq.TaskID(id), asynq.Queue(s.queue), asynq.MaxRetry(0))
	info, err := s.client.EnqueueContext(ctx, asynq.NewTask(TaskTypePublishPost, taskPayload), opts...)
	if err != nil {
		return "", fmt.Errorf("error enqueueing publish job: %w", err)
	}

	slog.Info("publish job enqueued", "job_id", info.ID, "post_id", payload.PostID, "epoch", payload.Epoch, "process_at", info.NextProcessAt)
	return info.ID, nil
}

// Cancel removes a pending job or asks a running one to stop. Jobs that are
// unknown or already gone are ignored.
func (s *AsynqScheduler) Cancel(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}

	info, err := s.inspector.GetTaskInfo(s.queue, jobID)
	if err != nil {
		if !isNotFound(err) {
			slog.Error("inspecting publish job", "job_id", jobID, "error", err)
		}
		return
	}

	if info.State == asynq.TaskStateActive {
		if err := s.inspector.CancelProcessing(jobID); err != nil {
			slog.Error("cancelling running publish job", "job_id", jobID, "error", err)
		}
		return
	}

	if err := s.inspector.DeleteTask(s.queue, jobID); err != nil && !isNotFound(err) {
		slog.Error("deleting publish job", "job_id", jobID, "error", err)
	}
}

// Exists reports whether the job is still waiting or running.
func (s *AsynqScheduler) Exists(ctx context.Context, jobID string) (bool, error) {
	info, err := s.inspector.GetTaskInfo(s.queue, jobID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	switch info.State {
	case asynq.TaskStateCompleted, asynq.TaskStateArchived:
		return false, nil
	default:
		return true, nil
	}
}

func (s *AsynqScheduler) Close() error {
	return errors.Join(s.client.Close(), s.inspector.Close())
}

func isNotFound(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}
