package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/platform"
	"github.com/maheshrc27/postgate/internal/repository"
)

type fakeBusinesses struct {
	byOwner map[int64]*models.Business
}

func (f *fakeBusinesses) GetByOwnerID(ctx context.Context, ownerID int64) (*models.Business, error) {
	return f.byOwner[ownerID], nil
}

type fakeAccounts struct {
	accounts []*models.SocialAccount
}

func (f *fakeAccounts) GetByPlatform(ctx context.Context, businessID int64, platform string) (*models.SocialAccount, error) {
	for _, a := range f.accounts {
		if a.BusinessID == businessID && a.Platform == platform {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) ListByBusinessID(ctx context.Context, businessID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, a := range f.accounts {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeCategories runs onLookup once, before the next label lookup.
type fakeCategories struct {
	categories []models.Category
	onLookup   func()
}

func (f *fakeCategories) ListByIDs(ctx context.Context, ids []int64) ([]models.Category, error) {
	var out []models.Category
	for _, c := range f.categories {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCategories) GetByLabel(ctx context.Context, label string) (*models.Category, error) {
	if hook := f.onLookup; hook != nil {
		f.onLookup = nil
		hook()
	}
	for _, c := range f.categories {
		if c.Label == label {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) List(ctx context.Context) ([]models.Category, error) {
	return f.categories, nil
}

// fakePosts stores copies so the service cannot mutate stored rows by pointer.
type fakePosts struct {
	mu     sync.Mutex
	seq    int64
	posts  map[int64]models.Post
	failOn string
}

func newFakePosts() *fakePosts {
	return &fakePosts{posts: map[int64]models.Post{}}
}

func (f *fakePosts) get(id int64) (*models.Post, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	return &p, ok
}

func (f *fakePosts) put(p models.Post) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		f.seq++
		p.ID = f.seq
	}
	f.posts[p.ID] = p
	return p.ID
}

func (f *fakePosts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	p, ok := f.get(id)
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (f *fakePosts) GetByBusinessID(ctx context.Context, id, businessID int64) (*models.Post, error) {
	p, ok := f.get(id)
	if !ok || p.BusinessID != businessID {
		return nil, nil
	}
	return p, nil
}

func (f *fakePosts) ListByStatus(ctx context.Context, businessID int64, status string) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.BusinessID == businessID && p.Status == status {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakePosts) ListOverdueScheduled(ctx context.Context, before time.Time) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && p.ScheduledAt.Before(before) {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (f *fakePosts) Create(ctx context.Context, post *models.Post) (int64, error) {
	if f.failOn == "create" {
		return 0, errors.New("insert failed")
	}
	return f.put(*post), nil
}

func (f *fakePosts) Update(ctx context.Context, post *models.Post, categoryIDs []int64) error {
	if f.failOn == "update" {
		return errors.New("update failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.posts[post.ID]
	if !ok || stored.DispatchEpoch != post.DispatchEpoch {
		return repository.ErrStalePost
	}
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) BumpEpoch(ctx context.Context, id, epoch int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.DispatchEpoch != epoch {
		return false, nil
	}
	p.DispatchEpoch++
	f.posts[id] = p
	return true, nil
}

func (f *fakePosts) SetJobID(ctx context.Context, id, epoch int64, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.DispatchEpoch != epoch || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.ScheduledJobID = &jobID
	f.posts[id] = p
	return true, nil
}

func (f *fakePosts) MarkPublished(ctx context.Context, id, epoch int64, platformPostID, link string, postedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.DispatchEpoch != epoch || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusPublished
	p.PlatformPostID = &platformPostID
	p.Link = link
	p.PostedAt = &postedAt
	p.ScheduledJobID = nil
	p.DispatchEpoch++
	f.posts[id] = p
	return true, nil
}

func (f *fakePosts) MarkFailed(ctx context.Context, id, epoch int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.DispatchEpoch != epoch || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusFailed
	p.ScheduledJobID = nil
	p.DispatchEpoch++
	f.posts[id] = p
	return true, nil
}

func (f *fakePosts) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.posts, id)
	return nil
}

type fakeHistory struct {
	entries []*models.PostingHistory
}

func (f *fakeHistory) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	f.entries = append(f.entries, ph)
	return int64(len(f.entries)), nil
}

func (f *fakeHistory) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	var out []*models.PostingHistory
	for _, e := range f.entries {
		if e.PostID == postID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeClient answers Publish from publishErrs in order, then succeeds.
type fakeClient struct {
	name        string
	publishErrs []error
	publishes   []string
	deleteErr   error
	deleted     []string
	actingCalls []string
	comments    []models.Comment
	listArgs    []string
	liked       bool
	replies     []string
}

func (c *fakeClient) Platform() string { return c.name }

func (c *fakeClient) ActingToken(ctx context.Context, userAccessToken string) (string, error) {
	c.actingCalls = append(c.actingCalls, userAccessToken)
	if c.name == models.PlatformInstagram {
		return userAccessToken, nil
	}
	return "page-" + userAccessToken, nil
}

func (c *fakeClient) Publish(ctx context.Context, caption, imageURL, userAccessToken string) (*platform.Publication, error) {
	c.publishes = append(c.publishes, caption+"|"+userAccessToken)
	if len(c.publishErrs) > 0 {
		err := c.publishErrs[0]
		c.publishErrs = c.publishErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &platform.Publication{PostID: "ext-1", Link: "https://www.facebook.com/ext-1"}, nil
}

func (c *fakeClient) Delete(ctx context.Context, postID, actingToken string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, postID+"|"+actingToken)
	return nil
}

func (c *fakeClient) ListComments(ctx context.Context, postID, actingToken, selfUsername string) ([]models.Comment, error) {
	c.listArgs = []string{postID, actingToken, selfUsername}
	return c.comments, nil
}

func (c *fakeClient) ToggleLike(ctx context.Context, commentID, actingToken string) (bool, error) {
	c.liked = !c.liked
	return c.liked, nil
}

func (c *fakeClient) Reply(ctx context.Context, commentID, actingToken, message string) error {
	c.replies = append(c.replies, commentID+"|"+actingToken+"|"+message)
	return nil
}

type fakeImages struct{}

func (fakeImages) Normalize(data []byte, aspectRatio string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", models.NewValidationError("image is required")
	}
	return data, "image/jpeg", nil
}

type fakeStorage struct {
	uploads int
}

func (f *fakeStorage) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	f.uploads++
	return "https://cdn.example.com/posts/img.jpg", nil
}

// fakeTokens returns the stored token verbatim, or err when set.
type fakeTokens struct {
	err error
}

func (f *fakeTokens) UserAccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return account.AccessToken, nil
}
