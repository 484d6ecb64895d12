// Package platform normalizes the Facebook Page and Instagram Graph APIs
// behind one Client contract.
package platform

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postgate/internal/models"
)

// DeleteSentinel passed as a reply message removes the comment instead.
const DeleteSentinel = "delete000"

type Publication struct {
	PostID string
	Link   string
}

type Client interface {
	Platform() string
	// ActingToken derives the token used for page-scoped calls
	// (comments, likes, replies, delete).
	ActingToken(ctx context.Context, userAccessToken string) (string, error)
	Publish(ctx context.Context, caption, imageURL, userAccessToken string) (*Publication, error)
	Delete(ctx context.Context, postID, actingToken string) error
	ListComments(ctx context.Context, postID, actingToken, selfUsername string) ([]models.Comment, error)
	ToggleLike(ctx context.Context, commentID, actingToken string) (bool, error)
	Reply(ctx context.Context, commentID, actingToken, message string) error
}

type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	return r
}

func (r *Registry) Get(platform string) (Client, error) {
	c, ok := r.clients[platform]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("Invalid platform %q", platform))
	}
	return c, nil
}
