package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
	"golang.org/x/sync/singleflight"
)

var (
	// This is a compile-time check to make sure our types correctly implement the interface:
	// https://medium.com/@matryer/golang-tip-compile-time-checks-to-ensure-your-type-satisfies-an-interface-c167afed3aae
	_ Provider = &SingleFlightProvider{}
)

// ErrUnexpectedReturnType is an error for an unexpected return type
var (
	ErrUnexpectedReturnType = errors.New("received unexpected return type from single flight func call")
)

// SingleFlightProvider middleware provider that allows multiple requests for the same object
// to be processed as a single request. This is often called request collapsing or coalesce.
// A burst of hub requests to validate or refresh the same token produces one upstream call.
type SingleFlightProvider struct {
	StatsdClient *statsd.Client

	provider Provider

	single *singleflight.Group
}

// NewSingleFlightProvider returns a new SingleFlightProvider
func NewSingleFlightProvider(provider Provider) *SingleFlightProvider {
	return &SingleFlightProvider{
		provider: provider,
		single:   &singleflight.Group{},
	}
}

func (p *SingleFlightProvider) do(endpoint, key string, fn func() (interface{}, error)) (interface{}, error) {
	compositeKey := fmt.Sprintf("%s/%s", endpoint, key)
	resp, err, shared := p.single.Do(compositeKey, fn)
	if shared && p.StatsdClient != nil {
		tags := []string{fmt.Sprintf("endpoint:%s", endpoint)}
		p.StatsdClient.Incr("provider.singleflight", tags, 1.0)
	}
	return resp, err
}

// SetStatsdClient calls the provider's SetStatsdClient function.
func (p *SingleFlightProvider) SetStatsdClient(StatsdClient *statsd.Client) {
	p.StatsdClient = StatsdClient
	p.provider.SetStatsdClient(StatsdClient)
}

// Data returns the provider data
func (p *SingleFlightProvider) Data() *ProviderData {
	return p.provider.Data()
}

// Redeem wraps the provider's Redeem function.
func (p *SingleFlightProvider) Redeem(redirectURL, code string) (*sessions.SessionState, error) {
	return p.provider.Redeem(redirectURL, code)
}

// ValidateSessionState wraps the provider's ValidateSessionState in a single flight call.
func (p *SingleFlightProvider) ValidateSessionState(s *sessions.SessionState) bool {
	response, err := p.do("ValidateSessionState", s.AccessToken, func() (interface{}, error) {
		valid := p.provider.ValidateSessionState(s)
		return valid, nil
	})
	if err != nil {
		return false
	}

	valid, ok := response.(bool)
	if !ok {
		return false
	}

	return valid
}

// GetSignInURL calls the provider's GetSignInURL function.
func (p *SingleFlightProvider) GetSignInURL(redirectURI, state string) string {
	return p.provider.GetSignInURL(redirectURI, state)
}

// RefreshSessionIfNeeded wraps the provider's RefreshSessionIfNeeded function in a single flight
// call.
func (p *SingleFlightProvider) RefreshSessionIfNeeded(s *sessions.SessionState) (bool, error) {
	response, err := p.do("RefreshSessionIfNeeded", s.AccessToken, func() (interface{}, error) {
		return p.provider.RefreshSessionIfNeeded(s)
	})
	if err != nil {
		return false, err
	}

	r, ok := response.(bool)
	if !ok {
		return false, ErrUnexpectedReturnType
	}

	return r, nil
}

// ValidateGroupMembership wraps the provider's ValidateGroupMembership function in a single flight call.
func (p *SingleFlightProvider) ValidateGroupMembership(name string, allowedGroups []string, accessToken string) ([]string, error) {
	sort.Strings(allowedGroups)
	response, err := p.do("ValidateGroupMembership", fmt.Sprintf("%s:%s", name, strings.Join(allowedGroups, ",")),
		func() (interface{}, error) {
			return p.provider.ValidateGroupMembership(name, allowedGroups, accessToken)
		})
	if err != nil {
		return nil, err
	}

	groups, ok := response.([]string)
	if !ok {
		return nil, ErrUnexpectedReturnType
	}

	return groups, nil
}

// Revoke wraps the provider's Revoke function in a single flight call.
func (p *SingleFlightProvider) Revoke(s *sessions.SessionState) error {
	_, err := p.do("Revoke", s.AccessToken, func() (interface{}, error) {
		err := p.provider.Revoke(s)
		return nil, err
	})
	return err
}

// Stop calls the provider's stop function
func (p *SingleFlightProvider) Stop() {
	p.provider.Stop()
}
