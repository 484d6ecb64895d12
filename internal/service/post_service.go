package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	cfg "github.com/maheshrc27/postgate/configs"
	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/observability"
	"github.com/maheshrc27/postgate/internal/platform"
	"github.com/maheshrc27/postgate/internal/queue"
	"github.com/maheshrc27/postgate/internal/repository"
	"github.com/maheshrc27/postgate/internal/transfer"
)

// PostService owns the Scheduled/Published/Failed lifecycle of a post. Every
// change to a post's dispatch plan revokes the previous job and bumps the
// post's dispatch epoch before the new plan is committed.
type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error)
	EditPost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, userID, postID int64) error
	ListPosts(ctx context.Context, userID int64) (*transfer.PostList, error)
	GetPost(ctx context.Context, userID, postID int64) (*models.Post, error)
	PostingHistory(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ReconcileOverdue(ctx context.Context, grace time.Duration) (int, error)
	queue.JobExecutor
}

type PostDeps struct {
	Businesses repository.BusinessRepository
	Accounts   repository.SocialAccountRepository
	Categories repository.CategoryRepository
	Posts      repository.PostRepository
	History    repository.PostingHistoryRepository
	Platforms  *platform.Registry
	Scheduler  queue.Scheduler
	Images     ImageNormalizer
	Storage    ImageStorage
	Tokens     TokenService
}

type postService struct {
	PostDeps
	publish cfg.Publish
	now     func() time.Time
}

func NewPostService(deps PostDeps, publish cfg.Publish) PostService {
	return &postService{PostDeps: deps, publish: publish, now: time.Now}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.Post, error) {
	if pc == nil {
		return nil, models.NewValidationError("post creation data is nil")
	}

	business, err := resolveBusiness(ctx, s.Businesses, userID)
	if err != nil {
		return nil, err
	}
	client, err := s.Platforms.Get(pc.Platform)
	if err != nil {
		return nil, err
	}
	account, err := connectedAccount(ctx, s.Accounts, business.ID, pc.Platform)
	if err != nil {
		return nil, err
	}
	if len(pc.Image) == 0 {
		return nil, models.NewValidationError("image is required")
	}
	categories, err := s.categoriesByID(ctx, pc.Categories)
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.UserAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}
	imageURL, err := s.storeImage(ctx, pc.Image, pc.AspectRatio)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		BusinessID:    business.ID,
		AccountID:     account.ID,
		Platform:      pc.Platform,
		Caption:       pc.Caption,
		ImageURL:      imageURL,
		PromotionID:   pc.PromotionID,
		Categories:    categories,
		DispatchEpoch: 1,
	}

	now := s.now()
	if pc.ScheduledAt != nil && pc.ScheduledAt.After(now) {
		return s.createScheduled(ctx, post, *pc.ScheduledAt, token)
	}

	pub, err := s.publishWithRetry(ctx, client, post.Caption, post.ImageURL, token)
	if err != nil {
		slog.Info("publish failed, post not created", "platform", post.Platform, "error", err)
		return nil, err
	}
	markPublished(post, pub, now)

	post.ID, err = s.Posts.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	s.record(ctx, post, models.TriggerCreate, pub.PostID, nil)
	return post, nil
}

// createScheduled stores the post first so the job payload can carry its id.
// If the job cannot be registered the row is removed again.
func (s *postService) createScheduled(ctx context.Context, post *models.Post, at time.Time, token string) (*models.Post, error) {
	post.Status = models.PostStatusScheduled
	post.Link = models.NotPublishedLink
	post.ScheduledAt = &at

	id, err := s.Posts.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	post.ID = id

	jobID, err := s.Scheduler.Schedule(ctx, s.payload(post, token), at)
	if err != nil {
		s.removeQuietly(ctx, post.ID)
		return nil, fmt.Errorf("error scheduling post: %w", err)
	}
	post.ScheduledJobID = &jobID

	saved, err := s.Posts.SetJobID(ctx, post.ID, post.DispatchEpoch, jobID)
	if err != nil {
		s.Scheduler.Cancel(ctx, jobID)
		s.removeQuietly(ctx, post.ID)
		return nil, fmt.Errorf("error saving job handle: %w", err)
	}
	if !saved {
		// The job ran before its handle was stored.
		stored, err := s.Posts.GetByID(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("error getting post: %w", err)
		}
		if stored == nil {
			return nil, models.NewNotFoundError("post", post.ID)
		}
		return stored, nil
	}
	return post, nil
}

func (s *postService) EditPost(ctx context.Context, userID, postID int64, pu *transfer.PostUpdate) (*models.Post, error) {
	if pu == nil {
		return nil, models.NewValidationError("post update data is nil")
	}

	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	var categoryIDs []int64
	if pu.SetCategories {
		categories, err := s.categoriesByLabel(ctx, pu.CategoryLabels)
		if err != nil {
			return nil, err
		}
		post.Categories = categories
		categoryIDs = post.CategoryIDs()
	}

	contentChanged := false
	if pu.Caption != nil && *pu.Caption != post.Caption {
		post.Caption = *pu.Caption
		contentChanged = true
	}
	if len(pu.Image) > 0 {
		imageURL, err := s.storeImage(ctx, pu.Image, pu.AspectRatio)
		if err != nil {
			return nil, err
		}
		post.ImageURL = imageURL
		contentChanged = true
	}

	switch {
	case pu.Retry:
		if err := s.retry(ctx, post); err != nil {
			return nil, err
		}
	case pu.SetSchedule:
		if err := s.rescheduleOrPublishNow(ctx, post, pu.ScheduledAt); err != nil {
			return nil, err
		}
	case contentChanged && post.HasPendingJob():
		// The pending job carries the old content.
		if err := s.rescheduleOrPublishNow(ctx, post, post.ScheduledAt); err != nil {
			return nil, err
		}
	}

	if err := s.Posts.Update(ctx, post, categoryIDs); err != nil {
		if post.HasPendingJob() {
			s.Scheduler.Cancel(ctx, *post.ScheduledJobID)
		}
		if errors.Is(err, repository.ErrStalePost) {
			return nil, postChanged(post.ID)
		}
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	return post, nil
}

// retry publishes the post's current content synchronously. On failure the
// rest of the edit is dropped and the status is kept, except that a Scheduled
// post whose job was revoked for the attempt falls to Failed.
func (s *postService) retry(ctx context.Context, post *models.Post) error {
	client, token, err := s.clientAndToken(ctx, post)
	if err != nil {
		return err
	}

	if err := s.revokeJob(ctx, post); err != nil {
		return err
	}

	pub, err := s.publishWithRetry(ctx, client, post.Caption, post.ImageURL, token)
	if err != nil {
		s.record(ctx, post, models.TriggerRetry, "", err)
		s.failRevoked(ctx, post)
		return err
	}

	markPublished(post, pub, s.now())
	s.record(ctx, post, models.TriggerRetry, pub.PostID, nil)
	return nil
}

// rescheduleOrPublishNow registers a new job when at is in the future and
// publishes immediately otherwise. A failed immediate publish degrades the
// post to Failed without failing the edit.
func (s *postService) rescheduleOrPublishNow(ctx context.Context, post *models.Post, at *time.Time) error {
	client, token, err := s.clientAndToken(ctx, post)
	if err != nil {
		return err
	}

	if err := s.revokeJob(ctx, post); err != nil {
		return err
	}

	now := s.now()
	if at != nil && at.After(now) {
		jobID, err := s.Scheduler.Schedule(ctx, s.payload(post, token), *at)
		if err != nil {
			s.failRevoked(ctx, post)
			return fmt.Errorf("error scheduling post: %w", err)
		}
		post.Status = models.PostStatusScheduled
		post.ScheduledAt = at
		post.ScheduledJobID = &jobID
		post.PostedAt = nil
		post.PlatformPostID = nil
		post.Link = models.NotPublishedLink
		return nil
	}

	pub, err := s.publishWithRetry(ctx, client, post.Caption, post.ImageURL, token)
	if err != nil {
		slog.Info("publish on edit failed, marking post failed", "post_id", post.ID, "error", err)
		s.record(ctx, post, models.TriggerEdit, "", err)
		post.Status = models.PostStatusFailed
		return nil
	}
	markPublished(post, pub, now)
	s.record(ctx, post, models.TriggerEdit, pub.PostID, nil)
	return nil
}

func (s *postService) DeletePost(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.HasPendingJob() {
		s.Scheduler.Cancel(ctx, *post.ScheduledJobID)
	}

	if post.Status != models.PostStatusPublished {
		return s.remove(ctx, post.ID)
	}
	if post.Platform == models.PlatformInstagram {
		return models.NewUnsupportedError("published Instagram posts cannot be deleted")
	}
	if post.PlatformPostID == nil || *post.PlatformPostID == "" {
		return models.NewInternalError(errors.New("published post has no platform post id"))
	}

	client, token, err := s.clientAndToken(ctx, post)
	if err != nil {
		return err
	}
	acting, err := client.ActingToken(ctx, token)
	if err != nil {
		return err
	}
	if err := client.Delete(ctx, *post.PlatformPostID, acting); err != nil {
		return err
	}
	return s.remove(ctx, post.ID)
}

func (s *postService) ListPosts(ctx context.Context, userID int64) (*transfer.PostList, error) {
	business, err := resolveBusiness(ctx, s.Businesses, userID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.Accounts.ListByBusinessID(ctx, business.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}

	list := &transfer.PostList{Linked: len(accounts) > 0, LinkedPlatforms: []string{}, Posts: []*models.Post{}}
	for _, account := range accounts {
		list.LinkedPlatforms = append(list.LinkedPlatforms, account.Platform)
	}
	for _, status := range []string{models.PostStatusFailed, models.PostStatusScheduled, models.PostStatusPublished} {
		posts, err := s.Posts.ListByStatus(ctx, business.ID, status)
		if err != nil {
			return nil, fmt.Errorf("error listing %s posts: %w", status, err)
		}
		list.Posts = append(list.Posts, posts...)
	}
	return list, nil
}

func (s *postService) GetPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID)
}

// PostingHistory lists every publish attempt made for the post.
func (s *postService) PostingHistory(ctx context.Context, userID, postID int64) ([]*models.PostingHistory, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	history, err := s.History.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing posting history: %w", err)
	}
	return history, nil
}

func (s *postService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return categories, nil
}

// ExecuteScheduled runs a fired job. Jobs for deleted posts or for a dispatch
// epoch the post has moved past are discarded.
func (s *postService) ExecuteScheduled(ctx context.Context, payload queue.PublishPostPayload) error {
	post, err := s.Posts.GetByID(ctx, payload.PostID)
	if err != nil {
		return fmt.Errorf("error getting post: %w", err)
	}
	if post == nil {
		observability.StaleJobsDiscarded.Inc()
		slog.Warn("discarding job for deleted post", "post_id", payload.PostID)
		return nil
	}
	if post.DispatchEpoch != payload.Epoch || post.Status != models.PostStatusScheduled {
		observability.StaleJobsDiscarded.Inc()
		slog.Warn("discarding stale job", "post_id", post.ID, "job_epoch", payload.Epoch, "post_epoch", post.DispatchEpoch, "status", post.Status)
		return nil
	}

	client, err := s.Platforms.Get(payload.Platform)
	if err != nil {
		return err
	}

	pub, err := s.publishWithRetry(ctx, client, payload.Caption, payload.ImageURL, payload.AccessToken)
	if err != nil {
		s.record(ctx, post, models.TriggerJob, "", err)
		applied, ferr := s.Posts.MarkFailed(ctx, post.ID, payload.Epoch)
		if ferr != nil {
			return fmt.Errorf("error marking post failed: %w", ferr)
		}
		if !applied {
			slog.Warn("post changed while its job ran", "post_id", post.ID)
		}
		slog.Info("scheduled publish failed", "post_id", post.ID, "error", err)
		return nil
	}

	applied, err := s.Posts.MarkPublished(ctx, post.ID, payload.Epoch, pub.PostID, pub.Link, s.now())
	if err != nil {
		return fmt.Errorf("error marking post published: %w", err)
	}
	if !applied {
		slog.Warn("post changed while its job ran, result discarded", "post_id", post.ID, "platform_post_id", pub.PostID)
		return nil
	}
	s.record(ctx, post, models.TriggerJob, pub.PostID, nil)
	return nil
}

// ReconcileOverdue marks Scheduled posts as Failed when their time passed more
// than grace ago and their job is gone from the queue.
func (s *postService) ReconcileOverdue(ctx context.Context, grace time.Duration) (int, error) {
	posts, err := s.Posts.ListOverdueScheduled(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("error listing overdue posts: %w", err)
	}

	failed := 0
	for _, post := range posts {
		if post.HasPendingJob() {
			exists, err := s.Scheduler.Exists(ctx, *post.ScheduledJobID)
			if err != nil {
				slog.Error("checking job", "post_id", post.ID, "error", err)
				continue
			}
			if exists {
				continue
			}
		}

		applied, err := s.Posts.MarkFailed(ctx, post.ID, post.DispatchEpoch)
		if err != nil {
			slog.Error("marking overdue post failed", "post_id", post.ID, "error", err)
			continue
		}
		if applied {
			observability.ReconciledPosts.Inc()
			failed++
		}
	}
	return failed, nil
}

// publishWithRetry retries transient upstream failures with exponential
// backoff. Permanent rejections are returned on the first attempt.
func (s *postService) publishWithRetry(ctx context.Context, client platform.Client, caption, imageURL, token string) (*platform.Publication, error) {
	op := func() (*platform.Publication, error) {
		pub, err := client.Publish(ctx, caption, imageURL, token)
		if err != nil {
			if models.IsTransient(err) {
				observability.PublishAttempts.WithLabelValues(client.Platform(), observability.OutcomeRetried).Inc()
				slog.Info("transient publish failure", "platform", client.Platform(), "error", err)
				return nil, err
			}
			observability.PublishAttempts.WithLabelValues(client.Platform(), observability.OutcomeFailed).Inc()
			return nil, backoff.Permanent(err)
		}
		observability.PublishAttempts.WithLabelValues(client.Platform(), observability.OutcomePublished).Inc()
		return pub, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.publish.InitialBackoff

	attempts := s.publish.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(uint(attempts)))
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	business, err := resolveBusiness(ctx, s.Businesses, userID)
	if err != nil {
		return nil, err
	}
	post, err := s.Posts.GetByBusinessID(ctx, postID, business.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting post: %w", err)
	}
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}
	return post, nil
}

func (s *postService) clientAndToken(ctx context.Context, post *models.Post) (platform.Client, string, error) {
	client, err := s.Platforms.Get(post.Platform)
	if err != nil {
		return nil, "", err
	}
	account, err := connectedAccount(ctx, s.Accounts, post.BusinessID, post.Platform)
	if err != nil {
		return nil, "", err
	}
	token, err := s.Tokens.UserAccessToken(ctx, account)
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

// revokeJob moves the stored post to a new dispatch epoch and then cancels its
// pending job, so a job that already started can no longer write its result.
// It fails with a conflict when the post changed since it was read.
func (s *postService) revokeJob(ctx context.Context, post *models.Post) error {
	bumped, err := s.Posts.BumpEpoch(ctx, post.ID, post.DispatchEpoch)
	if err != nil {
		return fmt.Errorf("error revoking job: %w", err)
	}
	if !bumped {
		return postChanged(post.ID)
	}
	post.DispatchEpoch++

	if post.HasPendingJob() {
		s.Scheduler.Cancel(ctx, *post.ScheduledJobID)
	}
	post.ScheduledJobID = nil
	return nil
}

// failRevoked stores a Scheduled post whose job was revoked as Failed. Only the
// status and job handle are written.
func (s *postService) failRevoked(ctx context.Context, post *models.Post) {
	if post.Status != models.PostStatusScheduled {
		return
	}
	post.Status = models.PostStatusFailed
	post.ScheduledJobID = nil
	if _, err := s.Posts.MarkFailed(ctx, post.ID, post.DispatchEpoch); err != nil {
		slog.Error("saving failed post", "post_id", post.ID, "error", err)
		return
	}
	post.DispatchEpoch++
}

func postChanged(id int64) error {
	return models.NewConflictError(fmt.Sprintf("post %d changed while it was being edited, reload and try again", id))
}

func (s *postService) payload(post *models.Post, token string) queue.PublishPostPayload {
	return queue.PublishPostPayload{
		PostID:      post.ID,
		Epoch:       post.DispatchEpoch,
		Platform:    post.Platform,
		Caption:     post.Caption,
		ImageURL:    post.ImageURL,
		AccessToken: token,
	}
}

func (s *postService) storeImage(ctx context.Context, data []byte, aspectRatio string) (string, error) {
	normalized, contentType, err := s.Images.Normalize(data, aspectRatio)
	if err != nil {
		return "", err
	}
	return s.Storage.Upload(ctx, normalized, contentType)
}

func (s *postService) categoriesByID(ctx context.Context, ids []int64) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}

	categories, err := s.Categories.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error getting categories: %w", err)
	}
	if len(categories) != len(unique) {
		return nil, models.NewValidationError("invalid category")
	}
	return categories, nil
}

func (s *postService) categoriesByLabel(ctx context.Context, labels []string) ([]models.Category, error) {
	categories := make([]models.Category, 0, len(labels))
	for _, label := range labels {
		category, err := s.Categories.GetByLabel(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("error getting category: %w", err)
		}
		if category == nil {
			return nil, models.NewValidationError(fmt.Sprintf("invalid category: %s", label))
		}
		categories = append(categories, *category)
	}
	return categories, nil
}

func (s *postService) record(ctx context.Context, post *models.Post, trigger, platformPostID string, publishErr error) {
	entry := &models.PostingHistory{
		PostID:         post.ID,
		Platform:       post.Platform,
		Trigger:        trigger,
		PlatformPostID: platformPostID,
	}
	if publishErr != nil {
		entry.ErrorMessage = publishErr.Error()
	}
	if _, err := s.History.Create(ctx, entry); err != nil {
		slog.Error("recording posting history", "post_id", post.ID, "error", err)
	}
}

func (s *postService) remove(ctx context.Context, id int64) error {
	if err := s.Posts.Remove(ctx, id); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}

func (s *postService) removeQuietly(ctx context.Context, id int64) {
	if err := s.Posts.Remove(ctx, id); err != nil {
		slog.Error("removing unscheduled post", "post_id", id, "error", err)
	}
}

func markPublished(post *models.Post, pub *platform.Publication, at time.Time) {
	postID := pub.PostID
	post.Status = models.PostStatusPublished
	post.PlatformPostID = &postID
	post.Link = pub.Link
	post.PostedAt = &at
	post.ScheduledJobID = nil
}
