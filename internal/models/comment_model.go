package models

import "time"

// Comment is rebuilt from the platform on every moderation fetch and never stored.
type Comment struct {
	ID          string    `json:"id"`
	From        Author    `json:"from"`
	Message     string    `json:"message"`
	CreatedTime time.Time `json:"createdTime"`
	Replies     []string  `json:"replies"`
	LikeCount   *int      `json:"likeCount"`
	SelfLike    bool      `json:"selfLike"`
}

type Author struct {
	Name string `json:"name"`
}
