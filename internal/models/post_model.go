package models

import "time"

type Post struct {
	ID             int64      `db:"id" json:"id"`
	BusinessID     int64      `db:"business_id" json:"business_id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	Platform       string     `db:"platform" json:"platform"`
	PlatformPostID *string    `db:"platform_post_id" json:"platform_post_id"`
	Caption        string     `db:"caption" json:"caption"`
	ImageURL       string     `db:"image_url" json:"image"`
	Link           string     `db:"link" json:"link"`
	Status         string     `db:"status" json:"status"`
	ScheduledAt    *time.Time `db:"scheduled_at" json:"scheduled_at"`
	PostedAt       *time.Time `db:"posted_at" json:"posted_at"`
	ScheduledJobID *string    `db:"scheduled_job_id" json:"-"`
	DispatchEpoch  int64      `db:"dispatch_epoch" json:"-"`
	PromotionID    *int64     `db:"promotion_id" json:"promotion_id"`
	Categories     []Category `db:"-" json:"categories"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type Category struct {
	ID    int64  `db:"id" json:"id"`
	Label string `db:"label" json:"label"`
}

const (
	PostStatusScheduled = "Scheduled"
	PostStatusPublished = "Published"
	PostStatusFailed    = "Failed"
)

// NotPublishedLink is shown in place of a permalink while a post waits for its job.
const NotPublishedLink = "Not published yet!"

func (p *Post) HasPendingJob() bool {
	return p.ScheduledJobID != nil && *p.ScheduledJobID != ""
}

func (p *Post) CategoryIDs() []int64 {
	ids := make([]int64, 0, len(p.Categories))
	for _, c := range p.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}
