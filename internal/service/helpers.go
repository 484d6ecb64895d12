package service

import (
	"context"
	"fmt"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/repository"
)

// resolveBusiness maps an authenticated user to the business they own.
func resolveBusiness(ctx context.Context, br repository.BusinessRepository, ownerID int64) (*models.Business, error) {
	business, err := br.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error getting business: %w", err)
	}
	if business == nil {
		return nil, models.NewValidationError("no business found for this user")
	}
	return business, nil
}

func connectedAccount(ctx context.Context, ar repository.SocialAccountRepository, businessID int64, platform string) (*models.SocialAccount, error) {
	account, err := ar.GetByPlatform(ctx, businessID, platform)
	if err != nil {
		return nil, fmt.Errorf("error getting %s account: %w", platform, err)
	}
	if account == nil {
		return nil, models.NewValidationError(fmt.Sprintf("no %s account is connected", platform))
	}
	return account, nil
}
