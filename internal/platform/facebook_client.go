package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/transfer"
)

const facebookPostURL = "https://www.facebook.com/%s"

type facebookClient struct {
	g                    *graphClient
	pages                PageTokenResolver
	publishWithPageToken bool
}

func NewFacebookClient(httpClient *http.Client, baseURL string, pages PageTokenResolver, publishWithPageToken bool) Client {
	return &facebookClient{
		g:                    newGraphClient(httpClient, baseURL),
		pages:                pages,
		publishWithPageToken: publishWithPageToken,
	}
}

func (c *facebookClient) Platform() string {
	return models.PlatformFacebook
}

func (c *facebookClient) ActingToken(ctx context.Context, userAccessToken string) (string, error) {
	return ResolvePageToken(ctx, c.pages, userAccessToken)
}

func (c *facebookClient) Publish(ctx context.Context, caption, imageURL, userAccessToken string) (*Publication, error) {
	page, err := c.pages.ResolvePage(ctx, userAccessToken)
	if err != nil {
		return nil, err
	}

	token := userAccessToken
	if c.publishWithPageToken {
		token = page.AccessToken
	}

	params := tokenParams(token)
	params.Set("url", imageURL)
	params.Set("caption", caption)

	var photo transfer.MetaPhotoResponse
	if err := c.g.call(ctx, http.MethodPost, page.ID+"/photos", params, "Unable to publish to Facebook", &photo); err != nil {
		return nil, err
	}

	postID := photo.PostID
	if postID == "" {
		postID = photo.ID
	}
	if postID == "" {
		return nil, &models.UpstreamError{Op: "Unable to publish to Facebook", StatusCode: http.StatusOK, Body: "no post id returned"}
	}

	return &Publication{PostID: postID, Link: fmt.Sprintf(facebookPostURL, postID)}, nil
}

func (c *facebookClient) Delete(ctx context.Context, postID, actingToken string) error {
	var result transfer.MetaSuccessResponse
	if err := c.g.call(ctx, http.MethodDelete, postID, tokenParams(actingToken), "Unable to delete post", &result); err != nil {
		return err
	}
	if !result.Success {
		return &models.UpstreamError{Op: "Unable to retrieve post deletion status", StatusCode: http.StatusOK}
	}
	return nil
}

func (c *facebookClient) ListComments(ctx context.Context, postID, actingToken, selfUsername string) ([]models.Comment, error) {
	params := tokenParams(actingToken)
	params.Set("fields", "id,message,created_time,from")

	var resp transfer.MetaCommentsResponse
	if err := c.g.call(ctx, http.MethodGet, postID+"/comments", params, "Unable to fetch comments", &resp); err != nil {
		return nil, err
	}

	var raw []transfer.MetaComment
	for _, mc := range resp.Data {
		if mc.Message != "" {
			raw = append(raw, mc)
		}
	}

	comments := make([]models.Comment, len(raw))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5)

	for i, mc := range raw {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, mc transfer.MetaComment) {
			defer wg.Done()
			defer func() { <-semaphore }()

			count, selfLike := c.likeSummary(ctx, mc.ID, actingToken)
			comment := models.Comment{
				ID:          mc.ID,
				Message:     mc.Message,
				CreatedTime: parseGraphTime(mc.CreatedTime),
				Replies:     c.ownReplies(ctx, mc.ID, actingToken, selfUsername),
				LikeCount:   count,
				SelfLike:    selfLike,
			}
			if mc.From != nil {
				comment.From.Name = mc.From.Name
			}
			comments[i] = comment
		}(i, mc)
	}
	wg.Wait()

	return comments, nil
}

// ownReplies returns the replies to commentID written by the connected page.
// Fetch failures degrade to an empty list.
func (c *facebookClient) ownReplies(ctx context.Context, commentID, token, selfUsername string) []string {
	params := tokenParams(token)
	params.Set("fields", "id,message,from")

	var resp transfer.MetaCommentsResponse
	if err := c.g.call(ctx, http.MethodGet, commentID+"/comments", params, "Unable to fetch replies", &resp); err != nil {
		slog.Error("fetching comment replies", "comment_id", commentID, "error", err)
		return []string{}
	}

	replies := []string{}
	for _, r := range resp.Data {
		if r.Message == "" || r.From == nil {
			continue
		}
		if r.From.Name == selfUsername {
			replies = append(replies, r.Message)
		}
	}
	return replies
}

// likeSummary returns a nil count when the likes edge cannot be read and a
// zero count when it has no summary.
func (c *facebookClient) likeSummary(ctx context.Context, commentID, token string) (*int, bool) {
	summary, err := c.fetchLikes(ctx, commentID, token)
	if err != nil {
		slog.Error("fetching comment likes", "comment_id", commentID, "error", err)
		return nil, false
	}
	if summary == nil {
		zero := 0
		return &zero, false
	}
	count := summary.TotalCount
	return &count, summary.HasLiked
}

func (c *facebookClient) fetchLikes(ctx context.Context, commentID, token string) (*transfer.MetaLikesSummary, error) {
	params := tokenParams(token)
	params.Set("summary", "true")

	var resp transfer.MetaLikesResponse
	if err := c.g.call(ctx, http.MethodGet, commentID+"/likes", params, "Unable to fetch comment likes", &resp); err != nil {
		return nil, err
	}
	return resp.Summary, nil
}

func (c *facebookClient) ToggleLike(ctx context.Context, commentID, actingToken string) (bool, error) {
	summary, err := c.fetchLikes(ctx, commentID, actingToken)
	if err != nil {
		return false, err
	}

	if summary != nil && summary.HasLiked {
		if err := c.g.call(ctx, http.MethodDelete, commentID+"/likes", tokenParams(actingToken), "Error unliking comment", nil); err != nil {
			return true, err
		}
		return false, nil
	}

	if err := c.g.call(ctx, http.MethodPost, commentID+"/likes", tokenParams(actingToken), "Error liking comment", nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *facebookClient) Reply(ctx context.Context, commentID, actingToken, message string) error {
	if message == DeleteSentinel {
		return c.g.call(ctx, http.MethodDelete, commentID, tokenParams(actingToken), "Error deleting comment", nil)
	}

	params := tokenParams(actingToken)
	params.Set("message", message)
	return c.g.call(ctx, http.MethodPost, commentID+"/comments", params, "Error replying to comment", nil)
}
