package apiv1

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/searchlens/searchlens/app/models"
	"github.com/searchlens/searchlens/internal/pkg/credentials"
	"github.com/searchlens/searchlens/internal/pkg/oauth"
	"github.com/searchlens/searchlens/internal/pkg/secretbox"
)

// memRepo is a minimal in-memory credential repository for handler tests.
type memRepo struct {
	creds map[string]*models.Credential
}

func newMemRepo() *memRepo {
	return &memRepo{creds: make(map[string]*models.Credential)}
}

func memKey(userID uint, provider string) string {
	return fmt.Sprintf("%d/%s", userID, provider)
}

func (r *memRepo) GetByUserAndProvider(userID uint, provider string) (*models.Credential, error) {
	cred, ok := r.creds[memKey(userID, provider)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *cred
	return &cp, nil
}

func (r *memRepo) UpdateToken(userID uint, provider, accessToken string, expiresAt time.Time) error {
	cred, ok := r.creds[memKey(userID, provider)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cred.AccessToken = accessToken
	cred.ExpiresAt = expiresAt
	return nil
}

func (r *memRepo) Upsert(cred *models.Credential) error {
	r.creds[memKey(cred.UserID, cred.Provider)] = cred
	return nil
}

func (r *memRepo) Delete(userID uint, provider string) error {
	delete(r.creds, memKey(userID, provider))
	return nil
}

func (r *memRepo) Exists(userID uint, provider string) (bool, error) {
	_, ok := r.creds[memKey(userID, provider)]
	return ok, nil
}

func (r *memRepo) ListByUser(userID uint) ([]models.Credential, error) {
	var out []models.Credential
	for _, cred := range r.creds {
		if cred.UserID == userID {
			out = append(out, *cred)
		}
	}
	return out, nil
}

func (r *memRepo) Count() (int64, error) {
	return int64(len(r.creds)), nil
}

type stubClient struct {
	refreshErr error
}

func (c *stubClient) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	if c.refreshErr != nil {
		return nil, c.refreshErr
	}
	return &oauth.TokenResponse{AccessToken: "AT2", ExpiresIn: 3600}, nil
}

func (c *stubClient) Revoke(ctx context.Context, accessToken string) error {
	return nil
}

func newTestApp(t *testing.T, repo *memRepo, client *stubClient) *fiber.App {
	t.Helper()
	codec, err := secretbox.NewCodec(secretbox.DeriveKey([]byte("test-key"), []byte("test-salt")))
	require.NoError(t, err)

	manager := credentials.NewManager(credentials.Config{
		Repo:  repo,
		Codec: codec,
		Clients: func(provider string) (credentials.TokenClient, bool) {
			return client, true
		},
	})

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(manager, repo))
	return app
}

func decodeBody(t *testing.T, resp io.Reader) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp).Decode(&body))
	return body
}

func TestIssueTokenNotConnected(t *testing.T) {
	app := newTestApp(t, newMemRepo(), &stubClient{})

	req := httptest.NewRequest("POST", "/api/v1/users/1/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_connected", decodeBody(t, resp.Body)["error"])
}

func TestIssueTokenFreshCredential(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:      1,
		Provider:    models.ProviderGoogle,
		AccessToken: "AT1",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("POST", "/api/v1/users/1/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "AT1", decodeBody(t, resp.Body)["access_token"])
}

func TestIssueTokenNeedsReconnect(t *testing.T) {
	repo := newMemRepo()
	// Stale credential without any refresh secret
	repo.Upsert(&models.Credential{
		UserID:      1,
		Provider:    models.ProviderGoogle,
		AccessToken: "AT1",
		ExpiresAt:   time.Now().Add(-time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("POST", "/api/v1/users/1/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "needs_reconnect", decodeBody(t, resp.Body)["error"])
}

func TestIssueTokenProviderUnreachable(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:            1,
		Provider:          models.ProviderGoogle,
		AccessToken:       "AT1",
		RefreshTokenPlain: "legacy-secret",
		ExpiresAt:         time.Now().Add(-time.Hour),
	})
	client := &stubClient{refreshErr: fmt.Errorf("%w: timeout", oauth.ErrRefreshUnreachable)}
	app := newTestApp(t, repo, client)

	req := httptest.NewRequest("POST", "/api/v1/users/1/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "provider_unreachable", decodeBody(t, resp.Body)["error"])
}

func TestIssueTokenRefreshesStaleCredential(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:            1,
		Provider:          models.ProviderGoogle,
		AccessToken:       "AT1",
		RefreshTokenPlain: "legacy-secret",
		ExpiresAt:         time.Now().Add(-time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("POST", "/api/v1/users/1/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "AT2", decodeBody(t, resp.Body)["access_token"])
}

func TestIssueTokenInvalidUserID(t *testing.T) {
	app := newTestApp(t, newMemRepo(), &stubClient{})

	req := httptest.NewRequest("POST", "/api/v1/users/abc/connections/google/token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetConnectionStatus(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:    1,
		Provider:  models.ProviderGoogle,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("GET", "/api/v1/users/1/connections/google", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp.Body)["connected"])

	req = httptest.NewRequest("GET", "/api/v1/users/2/connections/google", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, false, decodeBody(t, resp.Body)["connected"])
}

func TestListConnections(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:          1,
		Provider:        models.ProviderGoogle,
		RefreshTokenEnc: "sealed",
		ExpiresAt:       time.Now().Add(time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("GET", "/api/v1/users/1/connections", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	conns := body["connections"].([]interface{})
	require.Len(t, conns, 1)
	first := conns[0].(map[string]interface{})
	assert.Equal(t, "google", first["provider"])
	assert.Equal(t, true, first["refreshable"])
	assert.NotContains(t, first, "access_token")
}

func TestDeleteConnectionIdempotent(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(&models.Credential{
		UserID:      1,
		Provider:    models.ProviderGoogle,
		AccessToken: "AT1",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	app := newTestApp(t, repo, &stubClient{})

	req := httptest.NewRequest("DELETE", "/api/v1/users/1/connections/google", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Deleting an absent connection still succeeds
	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/v1/users/1/connections/google", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
