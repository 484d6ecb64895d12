package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postgate/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByBusinessID(ctx context.Context, id, businessID int64) (*models.Post, error)
	ListByStatus(ctx context.Context, businessID int64, status string) ([]*models.Post, error)
	ListOverdueScheduled(ctx context.Context, before time.Time) ([]*models.Post, error)
	Create(ctx context.Context, post *models.Post) (int64, error)
	Update(ctx context.Context, post *models.Post, categoryIDs []int64) error
	BumpEpoch(ctx context.Context, id, epoch int64) (bool, error)
	SetJobID(ctx context.Context, id, epoch int64, jobID string) (bool, error)
	MarkPublished(ctx context.Context, id, epoch int64, platformPostID, link string, postedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, epoch int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

// ErrStalePost is returned by Update when the row moved to another dispatch
// epoch after it was read.
var ErrStalePost = errors.New("post was changed concurrently")

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, business_id, account_id, platform, platform_post_id, caption, image_url, link, status,
	scheduled_at, posted_at, scheduled_job_id, dispatch_epoch, promotion_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.BusinessID, &post.AccountID, &post.Platform, &post.PlatformPostID,
		&post.Caption, &post.ImageURL, &post.Link, &post.Status, &post.ScheduledAt, &post.PostedAt,
		&post.ScheduledJobID, &post.DispatchEpoch, &post.PromotionID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if post.Categories, err = r.categories(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByBusinessID(ctx context.Context, id, businessID int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND business_id = $2`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id, businessID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if post.Categories, err = r.categories(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

// statusOrder is the timestamp each status is listed by, newest first.
var statusOrder = map[string]string{
	models.PostStatusFailed:    "created_at",
	models.PostStatusScheduled: "scheduled_at",
	models.PostStatusPublished: "posted_at",
}

func (r *postRepository) ListByStatus(ctx context.Context, businessID int64, status string) ([]*models.Post, error) {
	orderBy, ok := statusOrder[status]
	if !ok {
		return nil, fmt.Errorf("unknown post status %q", status)
	}

	query := `SELECT ` + postColumns + ` FROM posts WHERE business_id = $1 AND status = $2 ORDER BY ` + orderBy + ` DESC`
	return r.list(ctx, query, businessID, status)
}

func (r *postRepository) ListOverdueScheduled(ctx context.Context, before time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = $1 AND scheduled_at < $2`
	return r.list(ctx, query, models.PostStatusScheduled, before)
}

func (r *postRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	for _, post := range posts {
		if post.Categories, err = r.categories(ctx, post.ID); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *postRepository) categories(ctx context.Context, postID int64) ([]models.Category, error) {
	query := `
		SELECT c.id, c.label FROM categories c
		JOIN post_categories pc ON pc.category_id = c.id
		WHERE pc.post_id = $1
		ORDER BY c.id
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Label); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Create inserts the post and its category links in one transaction.
func (r *postRepository) Create(ctx context.Context, post *models.Post) (id int64, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO posts (business_id, account_id, platform, platform_post_id, caption, image_url, link, status,
			scheduled_at, posted_at, scheduled_job_id, dispatch_epoch, promotion_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query, post.BusinessID, post.AccountID, post.Platform, post.PlatformPostID,
		post.Caption, post.ImageURL, post.Link, post.Status, post.ScheduledAt, post.PostedAt,
		post.ScheduledJobID, post.DispatchEpoch, post.PromotionID).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	if err = setCategories(ctx, tx, id, post.CategoryIDs()); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// Update writes every mutable column except the dispatch epoch, and only while
// the row is still at post.DispatchEpoch. A nil categoryIDs leaves the links
// untouched.
func (r *postRepository) Update(ctx context.Context, post *models.Post, categoryIDs []int64) (err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		UPDATE posts
		SET platform_post_id = $1,
			caption = $2,
			image_url = $3,
			link = $4,
			status = $5,
			scheduled_at = $6,
			posted_at = $7,
			scheduled_job_id = $8,
			updated_at = $9
		WHERE id = $10 AND dispatch_epoch = $11
	`
	result, err := tx.ExecContext(ctx, query, post.PlatformPostID, post.Caption, post.ImageURL, post.Link, post.Status,
		post.ScheduledAt, post.PostedAt, post.ScheduledJobID, time.Now(), post.ID, post.DispatchEpoch)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	ok, err := applied(result)
	if err != nil {
		return err
	}
	if !ok {
		err = ErrStalePost
		return err
	}

	if categoryIDs != nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = $1`, post.ID); err != nil {
			slog.Info(err.Error())
			return err
		}
		if err = setCategories(ctx, tx, post.ID, categoryIDs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BumpEpoch moves the post to the next dispatch epoch if it is still at epoch.
// Jobs created under the old epoch can no longer write their result.
func (r *postRepository) BumpEpoch(ctx context.Context, id, epoch int64) (bool, error) {
	query := `
		UPDATE posts
		SET dispatch_epoch = dispatch_epoch + 1,
			updated_at = $1
		WHERE id = $2 AND dispatch_epoch = $3
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, epoch)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return applied(result)
}

// SetJobID stores the handle of a freshly registered job. False means the post
// left the Scheduled state or the epoch first, usually because the job already ran.
func (r *postRepository) SetJobID(ctx context.Context, id, epoch int64, jobID string) (bool, error) {
	query := `
		UPDATE posts
		SET scheduled_job_id = $1,
			updated_at = $2
		WHERE id = $3 AND dispatch_epoch = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, jobID, time.Now(), id, epoch, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return applied(result)
}

func setCategories(ctx context.Context, tx *sql.Tx, postID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO post_categories (post_id, category_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, postID, pq.Array(categoryIDs)); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkPublished records a fired job's result. It only applies while the post is
// still Scheduled under the same dispatch epoch; false means the result was stale.
// The epoch advances so an edit that read the Scheduled row cannot overwrite it.
func (r *postRepository) MarkPublished(ctx context.Context, id, epoch int64, platformPostID, link string, postedAt time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			platform_post_id = $2,
			link = $3,
			posted_at = $4,
			scheduled_job_id = NULL,
			dispatch_epoch = dispatch_epoch + 1,
			updated_at = $5
		WHERE id = $6 AND dispatch_epoch = $7 AND status = $8
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, platformPostID, link, postedAt, time.Now(),
		id, epoch, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return applied(result)
}

func (r *postRepository) MarkFailed(ctx context.Context, id, epoch int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_job_id = NULL,
			dispatch_epoch = dispatch_epoch + 1,
			updated_at = $2
		WHERE id = $3 AND dispatch_epoch = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, time.Now(), id, epoch, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return applied(result)
}

func applied(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
