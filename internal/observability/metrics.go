// Package observability holds the Prometheus collectors for publishing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeRetried   = "retried"
)

var (
	// PublishAttempts counts platform publish calls by platform and outcome.
	PublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postgate_publish_attempts_total",
		Help: "Total number of publish calls made to social platforms",
	}, []string{"platform", "outcome"})

	// StaleJobsDiscarded counts fired jobs dropped because the post was
	// deleted or moved to a newer dispatch epoch.
	StaleJobsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postgate_stale_jobs_discarded_total",
		Help: "Total number of scheduled jobs discarded as stale",
	})

	ReconciledPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postgate_reconciled_posts_total",
		Help: "Total number of overdue scheduled posts marked failed",
	})
)
