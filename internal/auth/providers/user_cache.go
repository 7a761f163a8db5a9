package providers

import (
	"time"

	"github.com/notebookhub/hubauth/internal/pkg/groups"
	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
)

var (
	// This is a compile-time check to make sure our types correctly implement the interface:
	// https://medium.com/@matryer/golang-tip-compile-time-checks-to-ensure-your-type-satisfies-an-interface-c167afed3aae
	_ Provider = &UserCache{}
)

type Cache interface {
	Get(key groups.CacheKey) (groups.CacheEntry, bool)
	Set(key groups.CacheKey, val groups.CacheEntry)
	Purge(key groups.CacheKey)
}

// UserCache is a provider wrapper that caches "token still resolves an
// admitted user" answers for the validate path, so per-request validation
// from the hub does not hammer the cluster API. Entries should live well
// below the token lifetime; a miss falls through to the wrapped provider.
type UserCache struct {
	statsdClient *statsd.Client
	provider     Provider
	cache        Cache
}

// NewUserCache returns a new UserCache (which includes a LocalCache from the groups package)
func NewUserCache(provider Provider, ttl time.Duration, statsdClient *statsd.Client, tags []string) *UserCache {
	return &UserCache{
		statsdClient: statsdClient,
		provider:     provider,
		cache:        groups.NewLocalCache(ttl, statsdClient, tags),
	}
}

// SetStatsdClient calls the provider's SetStatsdClient function.
func (p *UserCache) SetStatsdClient(statsdClient *statsd.Client) {
	p.statsdClient = statsdClient
	p.provider.SetStatsdClient(statsdClient)
}

// Data returns the provider Data
func (p *UserCache) Data() *ProviderData {
	return p.provider.Data()
}

// Redeem wraps the provider's Redeem function
func (p *UserCache) Redeem(redirectURL, code string) (*sessions.SessionState, error) {
	return p.provider.Redeem(redirectURL, code)
}

// ValidateSessionState wraps the provider's ValidateSessionState around a
// local cache keyed by access token. Only positive answers are cached; an
// invalid token is re-checked (and its stale entry purged) every time.
func (p *UserCache) ValidateSessionState(s *sessions.SessionState) bool {
	key := groups.CacheKey{AccessToken: s.AccessToken}

	val, ok := p.cache.Get(key)
	if ok && val.Valid {
		p.statsdClient.Incr("provider.usercache",
			[]string{
				"action:ValidateSessionState",
				"cache:hit",
			}, 1.0)
		return true
	}

	p.statsdClient.Incr("provider.usercache",
		[]string{
			"action:ValidateSessionState",
			"cache:miss",
		}, 1.0)

	valid := p.provider.ValidateSessionState(s)
	if valid {
		p.cache.Set(key, groups.CacheEntry{
			Valid:  valid,
			User:   s.User,
			Groups: s.Groups,
		})
	} else {
		p.cache.Purge(key)
	}
	return valid
}

// GetSignInURL wraps the provider's GetSignInURL function.
func (p *UserCache) GetSignInURL(redirectURI, state string) string {
	return p.provider.GetSignInURL(redirectURI, state)
}

// RefreshSessionIfNeeded wraps the provider's RefreshSessionIfNeeded
// function, purging the cached answer for the session's token since refresh
// recomputes groups and admin status.
func (p *UserCache) RefreshSessionIfNeeded(s *sessions.SessionState) (bool, error) {
	if s != nil {
		p.cache.Purge(groups.CacheKey{AccessToken: s.AccessToken})
	}
	return p.provider.RefreshSessionIfNeeded(s)
}

// ValidateGroupMembership wraps the provider's ValidateGroupMembership function.
func (p *UserCache) ValidateGroupMembership(name string, allowedGroups []string, accessToken string) ([]string, error) {
	return p.provider.ValidateGroupMembership(name, allowedGroups, accessToken)
}

// Revoke wraps the provider's Revoke function, purging the session's cached
// validation answer.
func (p *UserCache) Revoke(s *sessions.SessionState) error {
	p.cache.Purge(groups.CacheKey{AccessToken: s.AccessToken})
	return p.provider.Revoke(s)
}

// Stop calls the providers stop function.
func (p *UserCache) Stop() {
	p.provider.Stop()
}
