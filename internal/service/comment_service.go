package service

import (
	"context"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/platform"
	"github.com/maheshrc27/postgate/internal/repository"
)

// CommentService moderates comments on published posts. Tokens are resolved
// fresh on every call.
type CommentService interface {
	ListComments(ctx context.Context, userID, postID int64) ([]models.Comment, error)
	ToggleLike(ctx context.Context, userID int64, platformName, commentID string) (bool, error)
	Reply(ctx context.Context, userID int64, platformName, commentID, message string) error
}

type commentService struct {
	businesses repository.BusinessRepository
	accounts   repository.SocialAccountRepository
	posts      repository.PostRepository
	platforms  *platform.Registry
	tokens     TokenService
}

func NewCommentService(
	businesses repository.BusinessRepository,
	accounts repository.SocialAccountRepository,
	posts repository.PostRepository,
	platforms *platform.Registry,
	tokens TokenService) CommentService {
	return &commentService{
		businesses: businesses,
		accounts:   accounts,
		posts:      posts,
		platforms:  platforms,
		tokens:     tokens,
	}
}

func (s *commentService) ListComments(ctx context.Context, userID, postID int64) ([]models.Comment, error) {
	business, err := resolveBusiness(ctx, s.businesses, userID)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.GetByBusinessID(ctx, postID, business.ID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}
	if post.Status != models.PostStatusPublished || post.PlatformPostID == nil {
		return nil, models.NewValidationError("post is not published")
	}

	client, account, acting, err := s.acting(ctx, business.ID, post.Platform)
	if err != nil {
		return nil, err
	}
	return client.ListComments(ctx, *post.PlatformPostID, acting, account.Username)
}

func (s *commentService) ToggleLike(ctx context.Context, userID int64, platformName, commentID string) (bool, error) {
	if commentID == "" {
		return false, models.NewValidationError("comment id is required")
	}
	business, err := resolveBusiness(ctx, s.businesses, userID)
	if err != nil {
		return false, err
	}
	client, _, acting, err := s.acting(ctx, business.ID, platformName)
	if err != nil {
		return false, err
	}
	return client.ToggleLike(ctx, commentID, acting)
}

// Reply posts message under the comment, or deletes the comment when message
// is platform.DeleteSentinel.
func (s *commentService) Reply(ctx context.Context, userID int64, platformName, commentID, message string) error {
	if commentID == "" {
		return models.NewValidationError("comment id is required")
	}
	if message == "" {
		return models.NewValidationError("message is required")
	}
	business, err := resolveBusiness(ctx, s.businesses, userID)
	if err != nil {
		return err
	}
	client, _, acting, err := s.acting(ctx, business.ID, platformName)
	if err != nil {
		return err
	}
	return client.Reply(ctx, commentID, acting, message)
}

func (s *commentService) acting(ctx context.Context, businessID int64, platformName string) (platform.Client, *models.SocialAccount, string, error) {
	client, err := s.platforms.Get(platformName)
	if err != nil {
		return nil, nil, "", err
	}
	account, err := connectedAccount(ctx, s.accounts, businessID, platformName)
	if err != nil {
		return nil, nil, "", err
	}
	token, err := s.tokens.UserAccessToken(ctx, account)
	if err != nil {
		return nil, nil, "", err
	}
	acting, err := client.ActingToken(ctx, token)
	if err != nil {
		return nil, nil, "", err
	}
	return client, account, acting, nil
}
