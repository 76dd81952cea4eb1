package oauth

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/searchlens/searchlens/app/models"
	"github.com/searchlens/searchlens/internal/pkg/env"
)

const (
	defaultGoogleTokenURL  = "https://oauth2.googleapis.com/token"
	defaultGoogleRevokeURL = "https://oauth2.googleapis.com/revoke"

	defaultBingTokenURL  = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	defaultBingRevokeURL = "https://login.microsoftonline.com/common/oauth2/v2.0/logout"
)

// Registry holds one token client per configured provider.
type Registry struct {
	clients map[string]*Client
}

// Setup builds token clients for all providers configured via environment
// variables. Providers without a client id are skipped; configured providers
// with incomplete or malformed endpoints fail startup.
func Setup() (*Registry, error) {
	validate := validator.New()
	endpoints := []Endpoint{
		{
			Provider:     models.ProviderGoogle,
			ClientID:     env.GetEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("GOOGLE_CLIENT_SECRET", ""),
			TokenURL:     env.GetEnv("GOOGLE_TOKEN_URL", defaultGoogleTokenURL),
			RevokeURL:    env.GetEnv("GOOGLE_REVOKE_URL", defaultGoogleRevokeURL),
		},
		{
			Provider:     models.ProviderBing,
			ClientID:     env.GetEnv("BING_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("BING_CLIENT_SECRET", ""),
			TokenURL:     env.GetEnv("BING_TOKEN_URL", defaultBingTokenURL),
			RevokeURL:    env.GetEnv("BING_REVOKE_URL", defaultBingRevokeURL),
		},
	}

	reg := &Registry{clients: make(map[string]*Client)}
	for _, ep := range endpoints {
		if ep.ClientID == "" {
			// Provider not configured in this deployment
			continue
		}
		if err := validate.Struct(ep); err != nil {
			return nil, fmt.Errorf("oauth: invalid %s endpoint config: %w", ep.Provider, err)
		}
		reg.clients[ep.Provider] = NewClient(ep)
	}
	return reg, nil
}

// Client returns the token client for a provider
func (r *Registry) Client(provider string) (*Client, bool) {
	c, ok := r.clients[provider]
	return c, ok
}

// Providers lists all configured provider keys
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	return out
}
