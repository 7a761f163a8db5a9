package providers

import (
	"errors"

	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
)

var (
	// ErrBadRequest represents 400 Bad Request errors
	ErrBadRequest = errors.New("BAD_REQUEST")

	// ErrTokenRevoked represents 400 Token Revoked errors
	ErrTokenRevoked = errors.New("TOKEN_REVOKED")

	// ErrUserNotFound represents the token's owner no longer resolving to an
	// admitted user, either because the token is no longer valid or because
	// group policy denies them
	ErrUserNotFound = errors.New("NO_SUCH_USER")

	// ErrRateLimitExceeded represents 429 Rate Limit Exceeded errors
	ErrRateLimitExceeded = errors.New("RATE_LIMIT_EXCEEDED")

	// ErrNotImplemented represents 501 Not Implemented errors
	ErrNotImplemented = errors.New("NOT_IMPLEMENTED")

	// ErrServiceUnavailable represents 503 Service Unavailable errors
	ErrServiceUnavailable = errors.New("SERVICE_UNAVAILABLE")
)

const (
	// OpenShiftProviderName identifies the OpenShift OAuth provider
	OpenShiftProviderName = "openshift"
)

// Provider is an interface exposing functions necessary to authenticate with a given provider.
type Provider interface {
	Data() *ProviderData
	Redeem(string, string) (*sessions.SessionState, error)
	ValidateSessionState(*sessions.SessionState) bool
	GetSignInURL(redirectURI, state string) string
	RefreshSessionIfNeeded(*sessions.SessionState) (bool, error)
	ValidateGroupMembership(string, []string, string) ([]string, error)
	Revoke(*sessions.SessionState) error
	SetStatsdClient(*statsd.Client)
	Stop()
}
