package credentials

import "time"

// DefaultFreshnessBuffer is the safety margin kept between "token still
// valid" and "token about to expire mid-flight during a downstream call".
const DefaultFreshnessBuffer = 5 * time.Minute

// IsFresh reports whether an access token expiring at expiresAt is still
// usable at now. A token expiring at exactly now+buffer counts as stale and
// must be refreshed.
func IsFresh(expiresAt, now time.Time, buffer time.Duration) bool {
	return expiresAt.After(now.Add(buffer))
}
