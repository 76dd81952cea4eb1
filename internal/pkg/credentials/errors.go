package credentials

import "errors"

var (
	// ErrNotConnected means no credential exists for the (user, provider)
	// pair. The user has to run the consent flow first.
	ErrNotConnected = errors.New("credentials: provider is not connected")
	// ErrNeedsReconnect means a credential exists but its refresh secret is
	// missing or undecryptable. Only a fresh grant can repair this.
	ErrNeedsReconnect = errors.New("credentials: provider needs to be reconnected")
	// ErrRefreshFailed means the provider refresh call failed. It wraps the
	// underlying oauth error so callers can tell a rejection from a timeout.
	ErrRefreshFailed = errors.New("credentials: token refresh failed")
)
