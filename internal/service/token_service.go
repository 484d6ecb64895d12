package service

import (
	"context"
	"crypto/sha256"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/pkg/utils"
)

// TokenService yields the long-lived user access token of a connected account.
type TokenService interface {
	UserAccessToken(ctx context.Context, account *models.SocialAccount) (string, error)
}

type tokenService struct {
	key []byte
}

func NewTokenService(secretKey string) TokenService {
	sum := sha256.Sum256([]byte(secretKey))
	return &tokenService{key: sum[:]}
}

func (s *tokenService) UserAccessToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	if account == nil || account.AccessToken == "" {
		return "", models.NewAuthError("no access token available for this account", nil)
	}
	token, err := utils.OpenToken(account.AccessToken, s.key)
	if err != nil {
		return "", models.NewAuthError("access token could not be read", err)
	}
	return token, nil
}

// SealAccessToken encrypts a token with the same key UserAccessToken uses.
func SealAccessToken(secretKey, token string) (string, error) {
	sum := sha256.Sum256([]byte(secretKey))
	return utils.SealToken(token, sum[:])
}
