package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postgate/internal/models"
)

type SocialAccountRepository interface {
	GetByPlatform(ctx context.Context, businessID int64, platform string) (*models.SocialAccount, error)
	ListByBusinessID(ctx context.Context, businessID int64) ([]*models.SocialAccount, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

func (r *socialAccountRepository) GetByPlatform(ctx context.Context, businessID int64, platform string) (*models.SocialAccount, error) {
	query := `
		SELECT id, business_id, platform, username, access_token, created_at, updated_at
		FROM social_accounts
		WHERE business_id = $1 AND platform = $2
		ORDER BY id
		LIMIT 1
	`
	var sa models.SocialAccount
	err := r.db.QueryRowContext(ctx, query, businessID, platform).Scan(&sa.ID, &sa.BusinessID, &sa.Platform,
		&sa.Username, &sa.AccessToken, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) ListByBusinessID(ctx context.Context, businessID int64) ([]*models.SocialAccount, error) {
	query := `SELECT id, business_id, platform, username, created_at, updated_at FROM social_accounts WHERE business_id = $1 ORDER BY platform`
	rows, err := r.db.QueryContext(ctx, query, businessID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		if err := rows.Scan(&sa.ID, &sa.BusinessID, &sa.Platform, &sa.Username, &sa.CreatedAt, &sa.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}
