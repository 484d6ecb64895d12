package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "github.com/maheshrc27/postgate/configs"
	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/platform"
	"github.com/maheshrc27/postgate/internal/queue"
	"github.com/maheshrc27/postgate/internal/queue/queuetest"
	"github.com/maheshrc27/postgate/internal/transfer"
)

const (
	ownerID    = int64(1)
	businessID = int64(10)
)

type harness struct {
	svc        *postService
	posts      *fakePosts
	history    *fakeHistory
	scheduler  *queuetest.Scheduler
	categories *fakeCategories
	tokens     *fakeTokens
	storage    *fakeStorage
	fb         *fakeClient
	ig         *fakeClient
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		posts:      newFakePosts(),
		history:    &fakeHistory{},
		scheduler:  queuetest.NewScheduler(),
		categories: &fakeCategories{categories: []models.Category{{ID: 1, Label: "Food"}, {ID: 2, Label: "Drinks"}}},
		tokens:     &fakeTokens{},
		storage:    &fakeStorage{},
		fb:         &fakeClient{name: models.PlatformFacebook},
		ig:         &fakeClient{name: models.PlatformInstagram},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	deps := PostDeps{
		Businesses: &fakeBusinesses{byOwner: map[int64]*models.Business{ownerID: {ID: businessID, OwnerID: ownerID}}},
		Accounts: &fakeAccounts{accounts: []*models.SocialAccount{
			{ID: 100, BusinessID: businessID, Platform: models.PlatformFacebook, Username: "Acme", AccessToken: "user-token"},
			{ID: 101, BusinessID: businessID, Platform: models.PlatformInstagram, Username: "acme", AccessToken: "ig-token"},
		}},
		Categories: h.categories,
		Posts:      h.posts,
		History:    h.history,
		Platforms:  platform.NewRegistry(h.fb, h.ig),
		Scheduler:  h.scheduler,
		Images:     fakeImages{},
		Storage:    h.storage,
		Tokens:     h.tokens,
	}
	h.svc = NewPostService(deps, cfg.Publish{MaxAttempts: 3, InitialBackoff: time.Millisecond}).(*postService)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) stored(t *testing.T, id int64) *models.Post {
	t.Helper()
	p, ok := h.posts.get(id)
	require.True(t, ok, "post %d should exist", id)
	return p
}

func (h *harness) createScheduled(t *testing.T, platformName string, in time.Duration) *models.Post {
	t.Helper()
	at := h.now.Add(in)
	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Caption:     "Fresh bread",
		Platform:    platformName,
		ScheduledAt: &at,
		Image:       []byte("img"),
	})
	require.NoError(t, err)
	return post
}

func assertDispatchInvariant(t *testing.T, p *models.Post) {
	t.Helper()
	if p.Status == models.PostStatusScheduled {
		assert.True(t, p.HasPendingJob(), "scheduled post must carry a job")
		assert.Nil(t, p.PostedAt)
		return
	}
	assert.False(t, p.HasPendingJob(), "%s post must not carry a job", p.Status)
}

func permanentErr() *models.UpstreamError {
	return &models.UpstreamError{
		Op:         "Facebook publish failed",
		StatusCode: 400,
		Body:       `{"error":{"message":"Invalid OAuth access token."}}`,
	}
}

func transientErr() *models.UpstreamError {
	return &models.UpstreamError{Op: "Facebook publish failed", StatusCode: 503, Transient: true}
}

func TestCreatePost_ScheduledFacebook(t *testing.T) {
	h := newHarness(t)

	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)

	assert.Equal(t, models.PostStatusScheduled, post.Status)
	assert.Equal(t, models.NotPublishedLink, post.Link)
	require.NotNil(t, post.ScheduledJobID)
	assert.Nil(t, post.PlatformPostID)
	assert.Empty(t, h.fb.publishes, "no synchronous platform call")

	job, ok := h.scheduler.Pending(*post.ScheduledJobID)
	require.True(t, ok)
	assert.Equal(t, post.ID, job.Payload.PostID)
	assert.Equal(t, int64(1), job.Payload.Epoch)
	assert.Equal(t, "user-token", job.Payload.AccessToken)
	assert.Equal(t, "https://cdn.example.com/posts/img.jpg", job.Payload.ImageURL)
	assertDispatchInvariant(t, h.stored(t, post.ID))
}

func TestCreatePost_PublishNow(t *testing.T) {
	h := newHarness(t)

	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Caption:    "Open today",
		Platform:   models.PlatformFacebook,
		Categories: []int64{1, 2},
		Image:      []byte("img"),
	})
	require.NoError(t, err)

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	require.NotNil(t, stored.PlatformPostID)
	assert.Equal(t, "ext-1", *stored.PlatformPostID)
	assert.Equal(t, "https://www.facebook.com/ext-1", stored.Link)
	assert.Equal(t, h.now, *stored.PostedAt)
	assert.Len(t, stored.Categories, 2)
	assertDispatchInvariant(t, stored)

	require.Len(t, h.history.entries, 1)
	assert.Equal(t, models.TriggerCreate, h.history.entries[0].Trigger)
}

func TestCreatePost_PastScheduleIsPublishedNow(t *testing.T) {
	h := newHarness(t)
	past := h.now.Add(-time.Minute)

	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform:    models.PlatformInstagram,
		ScheduledAt: &past,
		Image:       []byte("img"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Len(t, h.ig.publishes, 1)
}

func TestCreatePost_PlatformFailureCreatesNothing(t *testing.T) {
	h := newHarness(t)
	upstream := permanentErr()
	h.fb.publishErrs = []error{upstream}

	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Caption:  "Open today",
		Platform: models.PlatformFacebook,
		Image:    []byte("img"),
	})

	assert.Nil(t, post)
	require.Error(t, err)
	assert.Equal(t, upstream.Error(), err.Error())
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Equal(t, 0, h.posts.count())
	assert.Len(t, h.fb.publishes, 1, "permanent rejections are not retried")
}

func TestCreatePost_RetriesTransientFailures(t *testing.T) {
	h := newHarness(t)
	h.fb.publishErrs = []error{transientErr(), transientErr()}

	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform: models.PlatformFacebook,
		Image:    []byte("img"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	assert.Len(t, h.fb.publishes, 3)
}

func TestCreatePost_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	h.fb.publishErrs = []error{transientErr(), transientErr(), transientErr(), transientErr()}

	_, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform: models.PlatformFacebook,
		Image:    []byte("img"),
	})
	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
	assert.Len(t, h.fb.publishes, 3)
	assert.Equal(t, 0, h.posts.count())
}

func TestCreatePost_Validation(t *testing.T) {
	tests := []struct {
		name   string
		userID int64
		pc     *transfer.PostCreation
	}{
		{"no business", 99, &transfer.PostCreation{Platform: models.PlatformFacebook, Image: []byte("img")}},
		{"unknown platform", ownerID, &transfer.PostCreation{Platform: "TikTok", Image: []byte("img")}},
		{"missing image", ownerID, &transfer.PostCreation{Platform: models.PlatformFacebook}},
		{"invalid category", ownerID, &transfer.PostCreation{Platform: models.PlatformFacebook, Categories: []int64{1, 7}, Image: []byte("img")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.CreatePost(context.Background(), tt.userID, tt.pc)
			require.Error(t, err)
			assert.Equal(t, models.KindValidation, models.KindOf(err))
			assert.Empty(t, h.fb.publishes)
			assert.Zero(t, h.storage.uploads)
			assert.Equal(t, 0, h.posts.count())
		})
	}
}

func TestCreatePost_TokenUnavailable(t *testing.T) {
	h := newHarness(t)
	h.tokens.err = models.NewAuthError("no access token available for this account", nil)

	_, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform: models.PlatformFacebook,
		Image:    []byte("img"),
	})
	assert.Equal(t, models.KindAuth, models.KindOf(err))
	assert.Equal(t, 0, h.posts.count())
}

func TestEditPost_PublishNowFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	jobID := *post.ScheduledJobID
	h.fb.publishErrs = []error{permanentErr()}

	updated, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{SetSchedule: true})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusFailed, updated.Status)
	assert.Nil(t, updated.ScheduledJobID)
	assert.Contains(t, h.scheduler.Cancelled, jobID)

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusFailed, stored.Status)
	assertDispatchInvariant(t, stored)
}

func TestEditPost_RescheduleDiscardsStaleJob(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	oldJob, _ := h.scheduler.Pending(*post.ScheduledJobID)

	later := h.now.Add(2 * time.Hour)
	updated, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetSchedule: true,
		ScheduledAt: &later,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusScheduled, updated.Status)
	assert.Equal(t, later, *updated.ScheduledAt)
	assert.NotEqual(t, *post.ScheduledJobID, *updated.ScheduledJobID)
	assert.Equal(t, int64(2), updated.DispatchEpoch)

	// The revoked job fires anyway.
	require.NoError(t, h.svc.ExecuteScheduled(context.Background(), oldJob.Payload))
	assert.Empty(t, h.fb.publishes)
	assert.Equal(t, models.PostStatusScheduled, h.stored(t, post.ID).Status)

	require.NoError(t, h.scheduler.Fire(context.Background(), *updated.ScheduledJobID, h.svc))
	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	assertDispatchInvariant(t, stored)
}

// lateCancelScheduler lets a pending job run to completion when asked to
// cancel it, as happens when the worker picks the job up first.
type lateCancelScheduler struct {
	*queuetest.Scheduler
	exec queue.JobExecutor
}

func (s *lateCancelScheduler) Cancel(ctx context.Context, jobID string) {
	if _, ok := s.Pending(jobID); ok {
		_ = s.Fire(ctx, jobID, s.exec)
	}
	s.Scheduler.Cancel(ctx, jobID)
}

// eagerScheduler runs every job as soon as it is registered.
type eagerScheduler struct {
	*queuetest.Scheduler
	exec queue.JobExecutor
}

func (s *eagerScheduler) Schedule(ctx context.Context, payload queue.PublishPostPayload, at time.Time) (string, error) {
	id, err := s.Scheduler.Schedule(ctx, payload, at)
	if err != nil {
		return "", err
	}
	return id, s.Fire(ctx, id, s.exec)
}

func TestEditPost_RescheduleWhileJobIsCancelled(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.svc.Scheduler = &lateCancelScheduler{Scheduler: h.scheduler, exec: h.svc}

	later := h.now.Add(2 * time.Hour)
	updated, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetSchedule: true,
		ScheduledAt: &later,
	})
	require.NoError(t, err)
	assert.Empty(t, h.fb.publishes, "the revoked job must not publish")

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusScheduled, stored.Status)
	assertDispatchInvariant(t, stored)

	require.NoError(t, h.scheduler.Fire(context.Background(), *updated.ScheduledJobID, h.svc))
	assert.Len(t, h.fb.publishes, 1)
	assert.Equal(t, models.PostStatusPublished, h.stored(t, post.ID).Status)
}

func TestEditPost_JobCompletesBeforeReschedule(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.categories.onLookup = func() {
		require.NoError(t, h.scheduler.Fire(context.Background(), *post.ScheduledJobID, h.svc))
	}

	later := h.now.Add(2 * time.Hour)
	_, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetSchedule:    true,
		ScheduledAt:    &later,
		SetCategories:  true,
		CategoryLabels: []string{"Drinks"},
	})
	require.Error(t, err)
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	require.NotNil(t, stored.PlatformPostID)
	assert.Equal(t, "ext-1", *stored.PlatformPostID)
	assertDispatchInvariant(t, stored)
	assert.Empty(t, h.scheduler.Jobs, "no job may be registered for a published post")
	assert.Len(t, h.fb.publishes, 1)
}

func TestEditPost_JobCompletesBeforeCategoryEdit(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.categories.onLookup = func() {
		require.NoError(t, h.scheduler.Fire(context.Background(), *post.ScheduledJobID, h.svc))
	}

	_, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetCategories:  true,
		CategoryLabels: []string{"Drinks"},
	})
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	require.NotNil(t, stored.PlatformPostID)
	assert.Equal(t, "ext-1", *stored.PlatformPostID)
	assertDispatchInvariant(t, stored)
}

func TestEditPost_RetryAfterJobCompleted(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.categories.onLookup = func() {
		require.NoError(t, h.scheduler.Fire(context.Background(), *post.ScheduledJobID, h.svc))
	}

	_, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		Retry:          true,
		SetCategories:  true,
		CategoryLabels: []string{"Food"},
	})
	assert.Equal(t, models.KindConflict, models.KindOf(err))
	assert.Len(t, h.fb.publishes, 1, "a published post is not published again")
	assert.Equal(t, models.PostStatusPublished, h.stored(t, post.ID).Status)
}

func TestCreatePost_JobRunsBeforeHandleIsSaved(t *testing.T) {
	h := newHarness(t)
	h.svc.Scheduler = &eagerScheduler{Scheduler: h.scheduler, exec: h.svc}

	at := h.now.Add(time.Minute)
	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform:    models.PlatformFacebook,
		ScheduledAt: &at,
		Image:       []byte("img"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusPublished, post.Status)
	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	require.NotNil(t, stored.PlatformPostID)
	assertDispatchInvariant(t, stored)
	assert.Len(t, h.fb.publishes, 1)
}

func TestEditPost_RescheduleFailureMarksFailed(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	jobID := *post.ScheduledJobID
	h.scheduler.Err = errors.New("redis down")

	later := h.now.Add(2 * time.Hour)
	_, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetSchedule: true,
		ScheduledAt: &later,
	})
	require.Error(t, err)
	assert.Contains(t, h.scheduler.Cancelled, jobID)

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusFailed, stored.Status)
	assertDispatchInvariant(t, stored)
	assert.Equal(t, *post.ScheduledAt, *stored.ScheduledAt)
}

func TestEditPost_FailedRetryOfScheduledPostOnlyStoresStatus(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.fb.publishErrs = []error{permanentErr()}
	caption := "Changed"

	_, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		Retry:          true,
		Caption:        &caption,
		SetCategories:  true,
		CategoryLabels: []string{"Food"},
	})
	assert.Equal(t, models.KindUpstream, models.KindOf(err))

	stored := h.stored(t, post.ID)
	assert.Equal(t, models.PostStatusFailed, stored.Status)
	assertDispatchInvariant(t, stored)
	assert.Equal(t, "Fresh bread", stored.Caption)
	assert.Empty(t, stored.Categories)
}

func TestEditPost_CaptionChangeReplacesPendingJob(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	caption := "Fresh croissants"

	updated, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{Caption: &caption})
	require.NoError(t, err)

	assert.Contains(t, h.scheduler.Cancelled, *post.ScheduledJobID)
	job, ok := h.scheduler.Pending(*updated.ScheduledJobID)
	require.True(t, ok)
	assert.Equal(t, caption, job.Payload.Caption)
	assert.Equal(t, *post.ScheduledAt, job.At)
}

func TestEditPost_Categories(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)

	updated, err := h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetCategories:  true,
		CategoryLabels: []string{"Drinks"},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{ID: 2, Label: "Drinks"}}, updated.Categories)
	assert.Equal(t, *post.ScheduledJobID, *updated.ScheduledJobID, "categories do not change the dispatch plan")

	_, err = h.svc.EditPost(context.Background(), ownerID, post.ID, &transfer.PostUpdate{
		SetCategories:  true,
		CategoryLabels: []string{"Unknown"},
	})
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestEditPost_RetryFailedPost(t *testing.T) {
	h := newHarness(t)
	id := h.posts.put(models.Post{
		BusinessID: businessID, AccountID: 100, Platform: models.PlatformFacebook,
		Caption: "Try again", ImageURL: "https://cdn.example.com/a.jpg",
		Status: models.PostStatusFailed, Link: models.NotPublishedLink, DispatchEpoch: 3,
	})

	updated, err := h.svc.EditPost(context.Background(), ownerID, id, &transfer.PostUpdate{Retry: true})
	require.NoError(t, err)

	assert.Equal(t, models.PostStatusPublished, updated.Status)
	assert.Nil(t, updated.ScheduledJobID)
	stored := h.stored(t, id)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	assert.Equal(t, "ext-1", *stored.PlatformPostID)
	assertDispatchInvariant(t, stored)
	assert.Equal(t, models.TriggerRetry, h.history.entries[len(h.history.entries)-1].Trigger)
}

func TestEditPost_RetryWithInvalidTokenKeepsStatus(t *testing.T) {
	h := newHarness(t)
	id := h.posts.put(models.Post{
		BusinessID: businessID, Platform: models.PlatformFacebook,
		Status: models.PostStatusFailed, Link: models.NotPublishedLink, DispatchEpoch: 1,
	})
	h.fb.publishErrs = []error{permanentErr()}

	_, err := h.svc.EditPost(context.Background(), ownerID, id, &transfer.PostUpdate{Retry: true})
	require.Error(t, err)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Equal(t, models.PostStatusFailed, h.stored(t, id).Status)
}

func TestEditPost_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.EditPost(context.Background(), ownerID, 404, &transfer.PostUpdate{Retry: true})
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestDeletePost_ScheduledCancelsAndRemoves(t *testing.T) {
	h := newHarness(t)
	post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	jobID := *post.ScheduledJobID

	// The job already fired concurrently, so cancelling is a no-op.
	delete(h.scheduler.Jobs, jobID)

	require.NoError(t, h.svc.DeletePost(context.Background(), ownerID, post.ID))
	assert.Contains(t, h.scheduler.Cancelled, jobID)
	assert.Equal(t, 0, h.posts.count())
}

func TestDeletePost_PublishedInstagramUnsupported(t *testing.T) {
	h := newHarness(t)
	ppid := "ig-1"
	id := h.posts.put(models.Post{
		BusinessID: businessID, Platform: models.PlatformInstagram, PlatformPostID: &ppid,
		Status: models.PostStatusPublished,
	})

	err := h.svc.DeletePost(context.Background(), ownerID, id)
	assert.Equal(t, models.KindUnsupported, models.KindOf(err))
	assert.Equal(t, 1, h.posts.count())
}

func TestDeletePost_PublishedFacebook(t *testing.T) {
	h := newHarness(t)
	ppid := "fb-1"
	id := h.posts.put(models.Post{
		BusinessID: businessID, Platform: models.PlatformFacebook, PlatformPostID: &ppid,
		Status: models.PostStatusPublished,
	})

	require.NoError(t, h.svc.DeletePost(context.Background(), ownerID, id))
	assert.Equal(t, []string{"fb-1|page-user-token"}, h.fb.deleted)
	assert.Equal(t, 0, h.posts.count())
}

func TestDeletePost_PlatformFailureKeepsRecord(t *testing.T) {
	h := newHarness(t)
	ppid := "fb-1"
	id := h.posts.put(models.Post{
		BusinessID: businessID, Platform: models.PlatformFacebook, PlatformPostID: &ppid,
		Status: models.PostStatusPublished,
	})
	h.fb.deleteErr = &models.UpstreamError{Op: "Facebook delete failed", StatusCode: 400}

	err := h.svc.DeletePost(context.Background(), ownerID, id)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Equal(t, 1, h.posts.count())
}

func TestExecuteScheduled(t *testing.T) {
	t.Run("publishes", func(t *testing.T) {
		h := newHarness(t)
		post := h.createScheduled(t, models.PlatformInstagram, time.Hour)

		require.NoError(t, h.scheduler.Fire(context.Background(), *post.ScheduledJobID, h.svc))

		stored := h.stored(t, post.ID)
		assert.Equal(t, models.PostStatusPublished, stored.Status)
		assert.Equal(t, "ext-1", *stored.PlatformPostID)
		assertDispatchInvariant(t, stored)
		assert.Equal(t, []string{"Fresh bread|ig-token"}, h.ig.publishes)
	})

	t.Run("failure marks failed", func(t *testing.T) {
		h := newHarness(t)
		post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
		h.fb.publishErrs = []error{permanentErr()}

		require.NoError(t, h.scheduler.Fire(context.Background(), *post.ScheduledJobID, h.svc))

		stored := h.stored(t, post.ID)
		assert.Equal(t, models.PostStatusFailed, stored.Status)
		assertDispatchInvariant(t, stored)
		last := h.history.entries[len(h.history.entries)-1]
		assert.Equal(t, models.TriggerJob, last.Trigger)
		assert.NotEmpty(t, last.ErrorMessage)
	})

	t.Run("deleted post is ignored", func(t *testing.T) {
		h := newHarness(t)
		post := h.createScheduled(t, models.PlatformFacebook, time.Hour)
		job, _ := h.scheduler.Pending(*post.ScheduledJobID)
		require.NoError(t, h.posts.Remove(context.Background(), post.ID))

		require.NoError(t, h.svc.ExecuteScheduled(context.Background(), job.Payload))
		assert.Empty(t, h.fb.publishes)
	})
}

func TestReconcileOverdue(t *testing.T) {
	h := newHarness(t)
	lost := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	waiting := h.createScheduled(t, models.PlatformFacebook, time.Hour)
	delete(h.scheduler.Jobs, *lost.ScheduledJobID)

	h.now = h.now.Add(2 * time.Hour)
	failed, err := h.svc.ReconcileOverdue(context.Background(), 15*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, failed)
	assert.Equal(t, models.PostStatusFailed, h.stored(t, lost.ID).Status)
	assert.Equal(t, models.PostStatusScheduled, h.stored(t, waiting.ID).Status)
}

func TestListPosts(t *testing.T) {
	h := newHarness(t)
	h.createScheduled(t, models.PlatformFacebook, time.Hour)
	h.posts.put(models.Post{BusinessID: businessID, Status: models.PostStatusPublished})
	h.posts.put(models.Post{BusinessID: businessID, Status: models.PostStatusFailed})
	h.posts.put(models.Post{BusinessID: 77, Status: models.PostStatusFailed})

	list, err := h.svc.ListPosts(context.Background(), ownerID)
	require.NoError(t, err)

	assert.True(t, list.Linked)
	assert.Equal(t, []string{models.PlatformFacebook, models.PlatformInstagram}, list.LinkedPlatforms)
	require.Len(t, list.Posts, 3)
	assert.Equal(t, models.PostStatusFailed, list.Posts[0].Status)
	assert.Equal(t, models.PostStatusScheduled, list.Posts[1].Status)
	assert.Equal(t, models.PostStatusPublished, list.Posts[2].Status)
}

func TestGetPost_OtherBusiness(t *testing.T) {
	h := newHarness(t)
	id := h.posts.put(models.Post{BusinessID: 77, Status: models.PostStatusFailed})

	_, err := h.svc.GetPost(context.Background(), ownerID, id)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestPostingHistoryAndCategories(t *testing.T) {
	h := newHarness(t)
	post, err := h.svc.CreatePost(context.Background(), ownerID, &transfer.PostCreation{
		Platform: models.PlatformFacebook,
		Image:    []byte("img"),
	})
	require.NoError(t, err)

	history, err := h.svc.PostingHistory(context.Background(), ownerID, post.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ext-1", history[0].PlatformPostID)

	categories, err := h.svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}
