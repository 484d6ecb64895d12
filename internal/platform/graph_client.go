package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/postgate/internal/models"
	"github.com/maheshrc27/postgate/internal/transfer"
)

const graphTimeLayout = "2006-01-02T15:04:05-0700"

type graphClient struct {
	baseURL string
	http    *http.Client
}

func newGraphClient(httpClient *http.Client, baseURL string) *graphClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &graphClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// call performs one Graph request with the token in the query string. Any
// status other than 200 becomes an *models.UpstreamError carrying the raw body.
func (g *graphClient) call(ctx context.Context, method, path string, params url.Values, op string, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	reqURL := fmt.Sprintf("%s/%s?%s", g.baseURL, strings.TrimLeft(path, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return &models.UpstreamError{Op: op, Err: err, Transient: ctx.Err() == nil}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: err, Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		return &models.UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Transient:  isTransientResponse(resp.StatusCode, body),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(body), Err: fmt.Errorf("error parsing response: %w", err)}
	}
	return nil
}

func isTransientResponse(status int, body []byte) bool {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return true
	}
	var metaErr transfer.MetaErrorResponse
	if err := json.Unmarshal(body, &metaErr); err == nil {
		return metaErr.Error.IsTransient
	}
	return false
}

func tokenParams(token string) url.Values {
	params := url.Values{}
	params.Set("access_token", token)
	return params
}

func parseGraphTime(value string) time.Time {
	if t, err := time.Parse(graphTimeLayout, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
