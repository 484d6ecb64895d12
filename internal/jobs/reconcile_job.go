package job

import (
	"context"
	"log/slog"
	"time"
)

type overdueReconciler interface {
	ReconcileOverdue(ctx context.Context, grace time.Duration) (int, error)
}

// ReconcileJob fails Scheduled posts whose job vanished from the queue, so
// they show up for a manual retry instead of waiting forever.
type ReconcileJob struct {
	posts   overdueReconciler
	grace   time.Duration
	timeout time.Duration
}

func NewReconcileJob(posts overdueReconciler, grace time.Duration) *ReconcileJob {
	return &ReconcileJob{posts: posts, grace: grace, timeout: 2 * time.Minute}
}

func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	failed, err := j.posts.ReconcileOverdue(ctx, j.grace)
	if err != nil {
		slog.Error("reconciling overdue posts", "error", err)
		return
	}
	if failed > 0 {
		slog.Info("marked overdue posts as failed", "count", failed)
	}
}
