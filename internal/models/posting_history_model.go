package models

import "time"

// PostingHistory records one attempt to publish a post, successful or not.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	Platform       string    `db:"platform" json:"platform"`
	Trigger        string    `db:"trigger" json:"trigger"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	TriggerCreate = "create"
	TriggerEdit   = "edit"
	TriggerRetry  = "retry"
	TriggerJob    = "job"
)
