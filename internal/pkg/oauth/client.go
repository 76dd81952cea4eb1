package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrRefreshRejected means the provider answered the refresh grant with a
	// non-2xx status. The raw response body is attached for diagnostics.
	ErrRefreshRejected = errors.New("oauth: provider rejected token refresh")
	// ErrRefreshUnreachable means the token endpoint could not be reached or
	// the call timed out.
	ErrRefreshUnreachable = errors.New("oauth: token endpoint unreachable")
	// ErrRevokeUnreachable means the revoke endpoint could not be reached or
	// the call timed out.
	ErrRevokeUnreachable = errors.New("oauth: revoke endpoint unreachable")
)

// Endpoint describes one OAuth provider's token infrastructure.
type Endpoint struct {
	Provider     string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	TokenURL     string `validate:"required,url"`
	RevokeURL    string `validate:"required,url"`
}

// TokenResponse is the provider's answer to a refresh_token grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// Client executes the refresh_token grant and the revoke call against one
// provider's token endpoint. It knows nothing about credential storage.
type Client struct {
	Endpoint Endpoint

	HTTPClient *http.Client
}

// NewClient creates a token client with the default request timeout
func NewClient(ep Endpoint) *Client {
	return &Client{
		Endpoint: ep,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Refresh exchanges a refresh secret for a new access token. Network failures
// surface as ErrRefreshUnreachable, non-2xx answers as ErrRefreshRejected with
// the provider's raw error body attached. No retry happens here.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("oauth: refresh token is required")
	}

	form := url.Values{}
	form.Set("client_id", c.Endpoint.ClientID)
	form.Set("client_secret", c.Endpoint.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshUnreachable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrRefreshRejected, resp.StatusCode, string(body))
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid token response: %v", ErrRefreshRejected, err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, fmt.Errorf("%w: empty access_token in response", ErrRefreshRejected)
	}
	return &out, nil
}

// Revoke invalidates an access token with the provider. The response body is
// ignored; only reachability and status matter. Callers treat any failure as
// non-fatal because local disconnect must not depend on provider bookkeeping.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return errors.New("oauth: access token is required")
	}

	u, err := url.Parse(c.Endpoint.RevokeURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRevokeUnreachable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("oauth: revoke failed with status=%d", resp.StatusCode)
	}
	return nil
}
