package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postgate/internal/models"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type PostCreation struct {
	Caption     string
	Platform    string
	Categories  []int64
	PromotionID *int64
	ScheduledAt *time.Time
	AspectRatio string
	Image       []byte
}

// PostUpdate carries only the fields present in the edit request.
type PostUpdate struct {
	Caption        *string
	CategoryLabels []string
	SetCategories  bool
	Image          []byte
	AspectRatio    string
	ScheduledAt    *time.Time
	SetSchedule    bool
	Retry          bool
}

type PostList struct {
	Linked          bool           `json:"linked"`
	LinkedPlatforms []string       `json:"linked_platforms"`
	Posts           []*models.Post `json:"posts"`
}
