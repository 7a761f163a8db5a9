package providers

import (
	"net/url"

	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
)

// TestProvider is a mock implementation of the Provider interface used in
// handler and wrapper tests.
type TestProvider struct {
	*ProviderData

	RedeemSession *sessions.SessionState
	RedeemError   error

	ValidToken    bool
	ValidateCalls int

	RefreshSessionUpdated bool
	RefreshSessionError   error
	RefreshCalls          int

	Groups      []string
	GroupsError error
	GroupsCalls int

	RevokeError error
}

// NewTestProvider returns a new TestProvider
func NewTestProvider(providerURL *url.URL) *TestProvider {
	if providerURL == nil {
		providerURL = &url.URL{Scheme: "http", Host: "provider.example.com"}
	}
	host := &url.URL{
		Scheme: "http",
		Host:   providerURL.Host,
		Path:   "/authorize",
	}
	redeemURL := &url.URL{
		Scheme: "http",
		Host:   providerURL.Host,
		Path:   "/oauth/token",
	}
	return &TestProvider{
		ProviderData: &ProviderData{
			ProviderName: "Test Provider",
			ProviderSlug: "test",
			SignInURL:    host,
			RedeemURL:    redeemURL,
			UserDataURL:  host,
			Scope:        "user:info",
		},
	}
}

// SetStatsdClient fulfills the Provider interface
func (tp *TestProvider) SetStatsdClient(*statsd.Client) {
	return
}

// Redeem mocks the provider Redeem function
func (tp *TestProvider) Redeem(redirectURL string, code string) (*sessions.SessionState, error) {
	return tp.RedeemSession, tp.RedeemError
}

// ValidateSessionState mocks the provider ValidateSessionState function
func (tp *TestProvider) ValidateSessionState(s *sessions.SessionState) bool {
	tp.ValidateCalls++
	return tp.ValidToken
}

// RefreshSessionIfNeeded mocks the provider RefreshSessionIfNeeded function
func (tp *TestProvider) RefreshSessionIfNeeded(s *sessions.SessionState) (bool, error) {
	tp.RefreshCalls++
	return tp.RefreshSessionUpdated, tp.RefreshSessionError
}

// ValidateGroupMembership mocks the provider ValidateGroupMembership function
func (tp *TestProvider) ValidateGroupMembership(name string, allowedGroups []string, accessToken string) ([]string, error) {
	tp.GroupsCalls++
	return tp.Groups, tp.GroupsError
}

// Revoke mocks the provider Revoke function
func (tp *TestProvider) Revoke(s *sessions.SessionState) error {
	return tp.RevokeError
}

// Stop fulfills the Provider interface
func (tp *TestProvider) Stop() {
	return
}
