package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchlens/searchlens/app/models"
)

func TestSetupSkipsUnconfiguredProviders(t *testing.T) {
	reg, err := Setup()
	require.NoError(t, err)
	assert.Empty(t, reg.Providers())

	_, ok := reg.Client(models.ProviderGoogle)
	assert.False(t, ok)
}

func TestSetupConfiguredProvider(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	reg, err := Setup()
	require.NoError(t, err)

	client, ok := reg.Client(models.ProviderGoogle)
	require.True(t, ok)
	assert.Equal(t, defaultGoogleTokenURL, client.Endpoint.TokenURL)
	assert.Equal(t, defaultGoogleRevokeURL, client.Endpoint.RevokeURL)
}

func TestSetupRejectsMalformedEndpoint(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_TOKEN_URL", "not a url")

	_, err := Setup()
	require.Error(t, err)
}
