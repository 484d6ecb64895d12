package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/postgate/internal/models"
)

type CategoryRepository interface {
	ListByIDs(ctx context.Context, ids []int64) ([]models.Category, error)
	GetByLabel(ctx context.Context, label string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Category, error) {
	query := `SELECT id, label FROM categories WHERE id = ANY($1) ORDER BY id`
	return r.query(ctx, query, pq.Array(ids))
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	return r.query(ctx, `SELECT id, label FROM categories ORDER BY id`)
}

func (r *categoryRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
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

func (r *categoryRepository) GetByLabel(ctx context.Context, label string) (*models.Category, error) {
	query := `SELECT id, label FROM categories WHERE label = $1`

	var c models.Category
	err := r.db.QueryRowContext(ctx, query, label).Scan(&c.ID, &c.Label)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &c, nil
}
