package platform

import (
	"context"
	"errors"
	"net/http"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/transfer"
)

var ErrNoPageFound = errors.New("no page found for user token")

// PageTokenResolver turns a user token into the first page the user manages.
// Nothing is cached between calls.
type PageTokenResolver interface {
	ResolvePage(ctx context.Context, userAccessToken string) (*transfer.MetaPage, error)
}

type pageTokenResolver struct {
	g *graphClient
}

func NewPageTokenResolver(httpClient *http.Client, baseURL string) PageTokenResolver {
	return &pageTokenResolver{g: newGraphClient(httpClient, baseURL)}
}

func (r *pageTokenResolver) ResolvePage(ctx context.Context, userAccessToken string) (*transfer.MetaPage, error) {
	params := tokenParams(userAccessToken)
	params.Set("fields", "id,name,access_token,instagram_business_account")

	var accounts transfer.MetaAccountsResponse
	if err := r.g.call(ctx, http.MethodGet, "me/accounts", params, "Unable to retrieve page access token", &accounts); err != nil {
		return nil, err
	}

	if len(accounts.Data) == 0 || accounts.Data[0].AccessToken == "" {
		return nil, models.NewAuthError("Unable to retrieve Facebook Page ID! Maybe reconnect your Facebook or Instagram account in Settings!", ErrNoPageFound)
	}

	page := accounts.Data[0]
	return &page, nil
}

// ResolvePageToken is the token-only form of ResolvePage.
func ResolvePageToken(ctx context.Context, r PageTokenResolver, userAccessToken string) (string, error) {
	page, err := r.ResolvePage(ctx, userAccessToken)
	if err != nil {
		return "", err
	}
	return page.AccessToken, nil
}
