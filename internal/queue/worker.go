package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

type Worker struct {
	exec JobExecutor
}

func NewWorker(exec JobExecutor) *Worker {
	return &Worker{exec: exec}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding publish payload: %v: %w", err, asynq.SkipRetry)
	}

	// Publish outcomes are recorded on the post; asynq never retries them.
	if err := w.exec.ExecuteScheduled(ctx, payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishPostTask)
}
