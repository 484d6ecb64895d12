// Package queuetest provides an in-memory queue.Scheduler for tests.
package queuetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maheshrc27/postgate/internal/queue"
)

// Scheduler keeps jobs in memory and fires them only when told to.
type Scheduler struct {
	mu        sync.Mutex
	seq       int
	Jobs      map[string]Job
	Cancelled []string
	Err       error
}

type Job struct {
	Payload queue.PublishPostPayload
	At      time.Time
}

var _ queue.Scheduler = (*Scheduler)(nil)

func NewScheduler() *Scheduler {
	return &Scheduler{Jobs: map[string]Job{}}
}

func (f *Scheduler) Schedule(ctx context.Context, payload queue.PublishPostPayload, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.seq++
	id := fmt.Sprintf("job-%d", f.seq)
	f.Jobs[id] = Job{Payload: payload, At: at}
	return id, nil
}

func (f *Scheduler) RunNow(ctx context.Context, payload queue.PublishPostPayload) (string, error) {
	return f.Schedule(ctx, payload, time.Now())
}

func (f *Scheduler) Cancel(ctx context.Context, jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cancelled = append(f.Cancelled, jobID)
	delete(f.Jobs, jobID)
}

func (f *Scheduler) Exists(ctx context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Jobs[jobID]
	return ok, nil
}

// Fire runs a job as if its time had come. The job is consumed.
func (f *Scheduler) Fire(ctx context.Context, jobID string, exec queue.JobExecutor) error {
	f.mu.Lock()
	job, ok := f.Jobs[jobID]
	delete(f.Jobs, jobID)
	f.mu.Unlock()
	if !ok {
		return errors.New("no such job")
	}
	return exec.ExecuteScheduled(ctx, job.Payload)
}

// Pending returns a copy of the job, if it is still waiting.
func (f *Scheduler) Pending(jobID string) (Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.Jobs[jobID]
	return job, ok
}
