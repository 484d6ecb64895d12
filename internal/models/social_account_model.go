package models

import (
	"time"
)

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

type Business struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SocialAccount is the connection between a business and one platform.
type SocialAccount struct {
	ID          int64     `db:"id" json:"id"`
	BusinessID  int64     `db:"business_id" json:"business_id"`
	Platform    string    `db:"platform" json:"platform"`
	Username    string    `db:"username" json:"username"`
	AccessToken string    `db:"access_token" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
