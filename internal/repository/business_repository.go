package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postgate/internal/models"
)

type BusinessRepository interface {
	GetByOwnerID(ctx context.Context, ownerID int64) (*models.Business, error)
}

type businessRepository struct {
	db *sql.DB
}

func NewBusinessRepository(db *sql.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) GetByOwnerID(ctx context.Context, ownerID int64) (*models.Business, error) {
	query := `SELECT id, owner_id, name, created_at FROM businesses WHERE owner_id = $1 ORDER BY id LIMIT 1`

	var b models.Business
	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &b, nil
}
