package platform

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/transfer"
)

type instagramClient struct {
	g     *graphClient
	pages PageTokenResolver
}

func NewInstagramClient(httpClient *http.Client, baseURL string, pages PageTokenResolver) Client {
	return &instagramClient{
		g:     newGraphClient(httpClient, baseURL),
		pages: pages,
	}
}

func (c *instagramClient) Platform() string {
	return models.PlatformInstagram
}

// ActingToken is the user token itself; Instagram has no page token indirection.
func (c *instagramClient) ActingToken(ctx context.Context, userAccessToken string) (string, error) {
	return userAccessToken, nil
}

func (c *instagramClient) Publish(ctx context.Context, caption, imageURL, userAccessToken string) (*Publication, error) {
	page, err := c.pages.ResolvePage(ctx, userAccessToken)
	if err != nil {
		return nil, err
	}
	if page.InstagramBusinessAccount == nil || page.InstagramBusinessAccount.ID == "" {
		return nil, models.NewAuthError("No Instagram business account is linked to your Facebook page", ErrNoPageFound)
	}
	igUserID := page.InstagramBusinessAccount.ID

	params := tokenParams(userAccessToken)
	params.Set("image_url", imageURL)
	params.Set("caption", caption)

	var container transfer.MetaObjectRef
	if err := c.g.call(ctx, http.MethodPost, igUserID+"/media", params, "Unable to create Instagram media container", &container); err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, &models.UpstreamError{Op: "Unable to create Instagram media container", StatusCode: http.StatusOK, Body: "no media ID returned from Instagram"}
	}

	params = tokenParams(userAccessToken)
	params.Set("creation_id", container.ID)

	var media transfer.MetaObjectRef
	if err := c.g.call(ctx, http.MethodPost, igUserID+"/media_publish", params, "Unable to publish to Instagram", &media); err != nil {
		return nil, err
	}
	if media.ID == "" {
		return nil, &models.UpstreamError{Op: "Unable to publish to Instagram", StatusCode: http.StatusOK, Body: "no media ID returned from Instagram"}
	}

	return &Publication{PostID: media.ID, Link: c.permalink(ctx, media.ID, userAccessToken)}, nil
}

// permalink falls back to the media id when the permalink cannot be read.
func (c *instagramClient) permalink(ctx context.Context, mediaID, token string) string {
	params := tokenParams(token)
	params.Set("fields", "permalink")

	var resp transfer.MetaPermalinkResponse
	if err := c.g.call(ctx, http.MethodGet, mediaID, params, "Unable to fetch permalink", &resp); err != nil || resp.Permalink == "" {
		slog.Info("instagram permalink unavailable", "media_id", mediaID, "error", err)
		return mediaID
	}
	return resp.Permalink
}

func (c *instagramClient) Delete(ctx context.Context, postID, actingToken string) error {
	return models.NewUnsupportedError("Instagram deletion not implemented yet")
}

func (c *instagramClient) ListComments(ctx context.Context, postID, actingToken, selfUsername string) ([]models.Comment, error) {
	params := tokenParams(actingToken)
	params.Set("fields", "id,text,timestamp,username")

	var resp transfer.MetaCommentsResponse
	if err := c.g.call(ctx, http.MethodGet, postID+"/comments", params, "Unable to fetch comments", &resp); err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	for _, mc := range resp.Data {
		if mc.Text == "" {
			continue
		}
		author := mc.Username
		if author == "" {
			author = "User"
		}
		comments = append(comments, models.Comment{
			ID:          mc.ID,
			From:        models.Author{Name: author},
			Message:     mc.Text,
			CreatedTime: parseGraphTime(mc.Timestamp),
			Replies:     c.replies(ctx, mc.ID, actingToken),
		})
	}
	return comments, nil
}

// replies is unfiltered: the replies edge only returns the account's own replies.
func (c *instagramClient) replies(ctx context.Context, commentID, token string) []string {
	params := tokenParams(token)
	params.Set("fields", "id,text")

	var resp transfer.MetaCommentsResponse
	if err := c.g.call(ctx, http.MethodGet, commentID+"/replies", params, "Unable to fetch replies", &resp); err != nil {
		slog.Error("fetching comment replies", "comment_id", commentID, "error", err)
		return []string{}
	}

	replies := []string{}
	for _, r := range resp.Data {
		if r.Text != "" {
			replies = append(replies, r.Text)
		}
	}
	return replies
}

func (c *instagramClient) ToggleLike(ctx context.Context, commentID, actingToken string) (bool, error) {
	return false, models.NewUnsupportedError("Instagram does not expose comment likes")
}

func (c *instagramClient) Reply(ctx context.Context, commentID, actingToken, message string) error {
	if message == DeleteSentinel {
		return models.NewUnsupportedError("Instagram reply deletion is not supported")
	}

	params := tokenParams(actingToken)
	params.Set("message", message)
	return c.g.call(ctx, http.MethodPost, commentID+"/replies", params, "Error replying to comment", nil)
}
