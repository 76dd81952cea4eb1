package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/searchlens/searchlens/app/repository"
	"github.com/searchlens/searchlens/internal/pkg/oauth"
	"github.com/searchlens/searchlens/internal/pkg/secretbox"
)

// TokenClient is the slice of the oauth client the manager depends on.
type TokenClient interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error)
	Revoke(ctx context.Context, accessToken string) error
}

// ClientResolver returns the token client for a provider, if configured.
type ClientResolver func(provider string) (TokenClient, bool)

// Config collects the manager's collaborators.
type Config struct {
	Repo    repository.CredentialRepository
	Codec   *secretbox.Codec
	Clients ClientResolver
	Status  StatusCache      // optional, nil disables status caching
	Buffer  time.Duration    // zero means DefaultFreshnessBuffer
	Now     func() time.Time // zero means time.Now, override in tests
}

// Manager owns the steady-state credential lifecycle: freshness checking,
// transparent refresh and revocation. It is the only component the rest of
// the platform talks to for token material.
type Manager struct {
	repo    repository.CredentialRepository
	codec   *secretbox.Codec
	clients ClientResolver
	status  StatusCache
	buffer  time.Duration
	now     func() time.Time

	// group collapses concurrent refreshes per (user, provider) so a burst
	// of stale observations triggers exactly one provider call.
	group singleflight.Group
}

// NewManager creates a credential manager
func NewManager(cfg Config) *Manager {
	m := &Manager{
		repo:    cfg.Repo,
		codec:   cfg.Codec,
		clients: cfg.Clients,
		status:  cfg.Status,
		buffer:  cfg.Buffer,
		now:     cfg.Now,
	}
	if m.buffer == 0 {
		m.buffer = DefaultFreshnessBuffer
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.status == nil {
		m.status = noopStatusCache{}
	}
	return m
}

// GetFreshToken returns a currently valid access token for the user's
// provider connection, refreshing it first when the cached one is stale.
// A failed refresh is not retried in-process; the error tells the caller
// whether reconnecting or retrying later is the right move.
func (m *Manager) GetFreshToken(ctx context.Context, userID uint, provider string) (string, error) {
	cred, err := m.repo.GetByUserAndProvider(userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", fmt.Errorf("credentials: loading credential: %w", err)
	}

	if IsFresh(cred.ExpiresAt, m.now(), m.buffer) {
		return cred.AccessToken, nil
	}

	// Detach from the caller: an in-flight refresh shared with other waiters
	// must complete even when this caller's request is canceled.
	refreshCtx := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%d/%s", userID, provider)
	token, err, _ := m.group.Do(key, func() (interface{}, error) {
		return m.refresh(refreshCtx, userID, provider)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refresh runs one full refresh cycle inside the singleflight group.
func (m *Manager) refresh(ctx context.Context, userID uint, provider string) (string, error) {
	// Re-read inside the lock: a batch member that lost the race to start the
	// flight may find the row already refreshed.
	cred, err := m.repo.GetByUserAndProvider(userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", fmt.Errorf("credentials: loading credential: %w", err)
	}
	if IsFresh(cred.ExpiresAt, m.now(), m.buffer) {
		return cred.AccessToken, nil
	}

	secret, err := m.codec.Recover(cred)
	if err != nil {
		if errors.Is(err, secretbox.ErrDecryptionFailed) {
			// Logged distinctly from an absent secret: this is a key or data
			// problem, not a user who never finished consent.
			log.Errorf("credentials: cannot decrypt refresh secret for user %d provider %s: %v", userID, provider, err)
		} else {
			log.Warnf("credentials: no refresh secret for user %d provider %s", userID, provider)
		}
		return "", ErrNeedsReconnect
	}

	client, ok := m.clients(provider)
	if !ok {
		return "", fmt.Errorf("credentials: provider %s is not configured", provider)
	}

	resp, err := client.Refresh(ctx, secret)
	if err != nil {
		log.Warnf("credentials: refresh for user %d provider %s failed: %v", userID, provider, err)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	expiresAt := m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if err := m.repo.UpdateToken(userID, provider, resp.AccessToken, expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The row was revoked while the refresh was in flight. The status
			// cache must not resurrect the connection.
			log.Warnf("credentials: credential for user %d provider %s vanished during refresh", userID, provider)
			m.status.Invalidate(userID, provider)
		} else {
			log.Errorf("credentials: persisting refreshed token for user %d provider %s failed: %v", userID, provider, err)
		}
		// The caller still gets the token it asked for. The next call will
		// observe the stale row and refresh again, which is wasteful but safe.
		return resp.AccessToken, nil
	}

	m.status.SetConnected(userID, provider)
	return resp.AccessToken, nil
}

// HasCredential reports whether the user ever connected the provider. It
// never materializes token material and is cheap enough to gate UI flows.
func (m *Manager) HasCredential(userID uint, provider string) bool {
	if connected, ok := m.status.GetConnected(userID, provider); ok {
		return connected
	}

	exists, err := m.repo.Exists(userID, provider)
	if err != nil {
		log.Errorf("credentials: existence check for user %d provider %s failed: %v", userID, provider, err)
		return false
	}
	if exists {
		// Only positive results are cached; a stale "not connected" right
		// after a grant would be worse than an extra lookup.
		m.status.SetConnected(userID, provider)
	}
	return exists
}

// Revoke disconnects the provider. The provider-side revoke is best-effort;
// the local row is deleted regardless so "disconnect" always means what the
// user thinks it means. Revoking an absent credential is a successful no-op.
func (m *Manager) Revoke(ctx context.Context, userID uint, provider string) error {
	cred, err := m.repo.GetByUserAndProvider(userID, provider)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m.status.Invalidate(userID, provider)
			return nil
		}
		return fmt.Errorf("credentials: loading credential: %w", err)
	}

	BestEffort{Op: fmt.Sprintf("provider revoke for user %d provider %s", userID, provider)}.Run(func() error {
		client, ok := m.clients(provider)
		if !ok || cred.AccessToken == "" {
			return nil
		}
		return client.Revoke(ctx, cred.AccessToken)
	})

	if err := m.repo.Delete(userID, provider); err != nil {
		return fmt.Errorf("credentials: deleting credential: %w", err)
	}
	m.status.Invalidate(userID, provider)
	return nil
}

// BestEffort runs an operation whose failure must not block the caller.
// The wrapped call is a courtesy to the provider, never a precondition.
type BestEffort struct {
	Op string
}

// Run executes fn, logging and discarding its error
func (b BestEffort) Run(fn func() error) {
	if err := fn(); err != nil {
		log.Warnf("credentials: %s failed (continuing): %v", b.Op, err)
	}
}
