package providers

import (
	"testing"
	"time"

	"github.com/notebookhub/hubauth/internal/pkg/sessions"
	"github.com/notebookhub/hubauth/internal/pkg/testutil"

	"github.com/datadog/datadog-go/statsd"
)

func newUserCache(provider Provider, ttl time.Duration, t *testing.T) *UserCache {
	statsdClient, err := statsd.New("127.0.0.1:8125")
	testutil.Ok(t, err)
	return NewUserCache(provider, ttl, statsdClient, []string{"tags:test"})
}

func TestUserCacheValidAnswerIsCached(t *testing.T) {
	provider := NewTestProvider(nil)
	provider.ValidToken = true

	cache := newUserCache(provider, time.Minute, t)
	session := &sessions.SessionState{AccessToken: "sha256~accesstoken", User: "jovyan"}

	testutil.Equal(t, true, cache.ValidateSessionState(session))
	testutil.Equal(t, true, cache.ValidateSessionState(session))

	// the second call must be answered from the cache
	testutil.Equal(t, 1, provider.ValidateCalls)
}

func TestUserCacheInvalidAnswerIsNotCached(t *testing.T) {
	provider := NewTestProvider(nil)
	provider.ValidToken = false

	cache := newUserCache(provider, time.Minute, t)
	session := &sessions.SessionState{AccessToken: "sha256~accesstoken", User: "jovyan"}

	testutil.Equal(t, false, cache.ValidateSessionState(session))
	testutil.Equal(t, false, cache.ValidateSessionState(session))

	// invalid tokens are re-checked every time
	testutil.Equal(t, 2, provider.ValidateCalls)
}

func TestUserCacheDistinctTokensDoNotShareEntries(t *testing.T) {
	provider := NewTestProvider(nil)
	provider.ValidToken = true

	cache := newUserCache(provider, time.Minute, t)

	testutil.Equal(t, true, cache.ValidateSessionState(
		&sessions.SessionState{AccessToken: "sha256~token-one"}))
	testutil.Equal(t, true, cache.ValidateSessionState(
		&sessions.SessionState{AccessToken: "sha256~token-two"}))

	testutil.Equal(t, 2, provider.ValidateCalls)
}

func TestUserCacheRefreshPurgesEntry(t *testing.T) {
	provider := NewTestProvider(nil)
	provider.ValidToken = true
	provider.RefreshSessionUpdated = true

	cache := newUserCache(provider, time.Minute, t)
	session := &sessions.SessionState{AccessToken: "sha256~accesstoken", User: "jovyan"}

	testutil.Equal(t, true, cache.ValidateSessionState(session))

	ok, err := cache.RefreshSessionIfNeeded(session)
	testutil.Ok(t, err)
	testutil.Equal(t, true, ok)

	// refresh recomputes policy, so the cached answer must be gone
	testutil.Equal(t, true, cache.ValidateSessionState(session))
	testutil.Equal(t, 2, provider.ValidateCalls)
}

func TestUserCacheEntryExpires(t *testing.T) {
	provider := NewTestProvider(nil)
	provider.ValidToken = true

	cache := newUserCache(provider, 10*time.Millisecond, t)
	session := &sessions.SessionState{AccessToken: "sha256~accesstoken", User: "jovyan"}

	testutil.Equal(t, true, cache.ValidateSessionState(session))
	time.Sleep(50 * time.Millisecond)
	testutil.Equal(t, true, cache.ValidateSessionState(session))

	testutil.Equal(t, 2, provider.ValidateCalls)
}
