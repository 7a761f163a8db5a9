package providers

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/notebookhub/hubauth/internal/pkg/cabundle"
	"github.com/notebookhub/hubauth/internal/pkg/groups"
	log "github.com/notebookhub/hubauth/internal/pkg/logging"
	"github.com/notebookhub/hubauth/internal/pkg/sessions"

	"github.com/datadog/datadog-go/statsd"
	"golang.org/x/oauth2"
)

const (
	defaultClusterURL = "https://openshift.default.svc.cluster.local"

	// service accounts get the cluster CA mounted here
	defaultCABundlePath     = "/run/secrets/kubernetes.io/serviceaccount/ca.crt"
	defaultSystemBundlePath = "/etc/pki/tls/cert.pem"

	discoveryPath = "/.well-known/oauth-authorization-server"
	userDataPath  = "/apis/user.openshift.io/v1/users/~"
)

// OpenShiftConfig carries the cluster-specific settings used to construct an
// OpenShiftProvider.
type OpenShiftConfig struct {
	ClusterURL         string
	RESTAPIURL         string
	AuthAPIURL         string
	CABundlePath       string
	SystemBundlePath   string
	ValidateServerCert bool
	AllowedGroups      []string
	AdminGroups        []string
}

// OpenShiftProvider is an implementation of the Provider interface. It
// authenticates against an OpenShift cluster's OAuth server and decides
// admission and admin status from the user's cluster group membership.
type OpenShiftProvider struct {
	*ProviderData
	StatsdClient *statsd.Client

	AllowedGroups groups.Set
	AdminGroups   groups.Set

	caBundlePath       string
	systemBundlePath   string
	validateServerCert bool
	bundles            *cabundle.Store

	// client overrides used by tests; when nil, clients are resolved from
	// the bundle store per request
	clusterClient *http.Client
	systemClient  *http.Client

	// useClusterBundle selects which certificate bundle serves the next
	// token exchange. Read and flipped without synchronization: losing a
	// race here costs at most one extra flip, never correctness.
	useClusterBundle bool

	mu      sync.Mutex
	clients map[*x509.CertPool]*http.Client
}

// openShiftUser is the cluster's view of the authenticated user, as returned
// by the users/~ endpoint. The raw body is kept verbatim for the hub.
type openShiftUser struct {
	Metadata struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Groups []string `json:"groups"`

	admin *bool
	raw   json.RawMessage
}

// Name returns the cluster username.
func (u *openShiftUser) Name() string {
	return u.Metadata.Name
}

// NewOpenShiftProvider returns a new OpenShiftProvider, resolving the
// authorize and token endpoints via the cluster's well-known discovery
// document unless an auth API URL is configured explicitly.
func NewOpenShiftProvider(p *ProviderData, cfg OpenShiftConfig, bundles *cabundle.Store) (*OpenShiftProvider, error) {
	p.ProviderName = "OpenShift"
	if p.Scope == "" {
		p.Scope = "user:info"
	}
	if cfg.ClusterURL == "" {
		cfg.ClusterURL = defaultClusterURL
	}
	if cfg.RESTAPIURL == "" {
		cfg.RESTAPIURL = cfg.ClusterURL
	}
	if cfg.CABundlePath == "" {
		cfg.CABundlePath = defaultCABundlePath
	}
	if cfg.SystemBundlePath == "" {
		cfg.SystemBundlePath = defaultSystemBundlePath
	}

	provider := &OpenShiftProvider{
		ProviderData:       p,
		AllowedGroups:      groups.NewSet(cfg.AllowedGroups...),
		AdminGroups:        groups.NewSet(cfg.AdminGroups...),
		caBundlePath:       cfg.CABundlePath,
		systemBundlePath:   cfg.SystemBundlePath,
		validateServerCert: cfg.ValidateServerCert,
		bundles:            bundles,
		useClusterBundle:   true,
		clients:            make(map[*x509.CertPool]*http.Client),
	}

	if p.UserDataURL == nil || p.UserDataURL.String() == "" {
		u, err := url.Parse(cfg.RESTAPIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid rest api url %q: %s", cfg.RESTAPIURL, err)
		}
		u.Path = userDataPath
		p.UserDataURL = u
	}

	if p.SignInURL == nil || p.SignInURL.String() == "" ||
		p.RedeemURL == nil || p.RedeemURL.String() == "" {
		signInURL, redeemURL, err := provider.discoverEndpoints(cfg.ClusterURL, cfg.AuthAPIURL)
		if err != nil {
			return nil, err
		}
		p.SignInURL = signInURL
		p.RedeemURL = redeemURL
	}

	return provider, nil
}

// SetStatsdClient sets the provider's StatsdClient
func (p *OpenShiftProvider) SetStatsdClient(statsdClient *statsd.Client) {
	p.StatsdClient = statsdClient
}

// discoveryDocument is the subset of the cluster's OAuth metadata we use.
type discoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
}

// discoverEndpoints resolves the authorize and token endpoints. A configured
// auth API URL takes precedence and skips the network fetch; otherwise
// {issuer}/oauth/{authorize,token} fill in for any endpoint the discovery
// document omits.
func (p *OpenShiftProvider) discoverEndpoints(clusterURL, authAPIURL string) (*url.URL, *url.URL, error) {
	logger := log.NewLogEntry()

	if authAPIURL != "" {
		signInURL, err := url.Parse(strings.TrimSuffix(authAPIURL, "/") + "/oauth/authorize")
		if err != nil {
			return nil, nil, fmt.Errorf("invalid auth api url %q: %s", authAPIURL, err)
		}
		redeemURL, err := url.Parse(strings.TrimSuffix(authAPIURL, "/") + "/oauth/token")
		if err != nil {
			return nil, nil, fmt.Errorf("invalid auth api url %q: %s", authAPIURL, err)
		}
		return signInURL, redeemURL, nil
	}

	discoveryURL := strings.TrimSuffix(clusterURL, "/") + discoveryPath
	resp, err := p.clusterHTTPClient().Get(discoveryURL)
	if err != nil {
		return nil, nil, fmt.Errorf("oauth metadata discovery failed: %s", err)
	}
	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		logger.WithDiscoveryURL(discoveryURL).WithHTTPStatus(resp.StatusCode).Error(
			"oauth metadata discovery failed")
		return nil, nil, fmt.Errorf("oauth metadata discovery failed: status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, nil, fmt.Errorf("malformed oauth metadata document: %s", err)
	}

	authorize := doc.AuthorizationEndpoint
	if authorize == "" {
		authorize = strings.TrimSuffix(doc.Issuer, "/") + "/oauth/authorize"
	}
	token := doc.TokenEndpoint
	if token == "" {
		token = strings.TrimSuffix(doc.Issuer, "/") + "/oauth/token"
	}

	signInURL, err := url.Parse(authorize)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed authorization endpoint %q: %s", authorize, err)
	}
	redeemURL, err := url.Parse(token)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed token endpoint %q: %s", token, err)
	}

	logger.WithDiscoveryURL(discoveryURL).Info("resolved oauth endpoints")
	return signInURL, redeemURL, nil
}

// BundlePaths returns the resolved cluster and system bundle paths, so
// callers can point refresh loops at them.
func (p *OpenShiftProvider) BundlePaths() (string, string) {
	return p.caBundlePath, p.systemBundlePath
}

// clusterHTTPClient returns the client trusting the cluster CA bundle. The
// userdata endpoint and discovery always use this client.
func (p *OpenShiftProvider) clusterHTTPClient() *http.Client {
	if p.clusterClient != nil {
		return p.clusterClient
	}
	return p.clientForBundle(p.caBundlePath)
}

// systemHTTPClient returns the client trusting the host's system CA bundle.
func (p *OpenShiftProvider) systemHTTPClient() *http.Client {
	if p.systemClient != nil {
		return p.systemClient
	}
	return p.clientForBundle(p.systemBundlePath)
}

// clientForBundle resolves an HTTP client trusting the bundle at path,
// rebuilding the client whenever the bundle store has reloaded the pool so
// rotated CAs take effect without a restart.
func (p *OpenShiftProvider) clientForBundle(path string) *http.Client {
	if !p.validateServerCert {
		return p.cachedClient(nil, &tls.Config{InsecureSkipVerify: true})
	}

	pool, ok := p.bundles.Pool(path)
	if !ok {
		return httpClient
	}
	return p.cachedClient(pool, &tls.Config{RootCAs: pool})
}

func (p *OpenShiftProvider) cachedClient(pool *x509.CertPool, tlsConfig *tls.Config) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[pool]; ok {
		return client
	}
	client := &http.Client{
		Timeout: time.Second * 5,
		Transport: &http.Transport{
			Dial: (&net.Dialer{
				Timeout: 2 * time.Second,
			}).Dial,
			TLSHandshakeTimeout: 2 * time.Second,
			TLSClientConfig:     tlsConfig,
		},
	}
	p.clients[pool] = client
	return client
}

// GetSignInURL returns the authorize endpoint url with the standard oauth
// authorization-code parameters.
func (p *OpenShiftProvider) GetSignInURL(redirectURI, state string) string {
	conf := oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: redirectURI,
		Scopes:      strings.Split(p.Scope, " "),
		Endpoint: oauth2.Endpoint{
			AuthURL: p.SignInURL.String(),
		},
	}
	return conf.AuthCodeURL(state)
}

// Redeem exchanges an authorization code for an access token and resolves
// the token's owner. A missing or policy-denied owner yields ErrUserNotFound.
func (p *OpenShiftProvider) Redeem(redirectURL, code string) (*sessions.SessionState, error) {
	if code == "" {
		return nil, ErrBadRequest
	}

	params := url.Values{}
	params.Add("redirect_uri", redirectURL)
	params.Add("client_id", p.ClientID)
	params.Add("client_secret", p.ClientSecret)
	params.Add("code", code)
	params.Add("grant_type", "authorization_code")

	var response struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	err := p.redeemToken(params, &response)
	if err != nil {
		return nil, err
	}

	user, err := p.GetUser(response.AccessToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	refreshDeadline := sessions.ExtendDeadline(p.SessionValidTTL)
	if response.ExpiresIn > 0 {
		tokenDeadline := sessions.ExtendDeadline(time.Duration(response.ExpiresIn) * time.Second)
		if tokenDeadline.Before(refreshDeadline) {
			refreshDeadline = tokenDeadline
		}
	}

	return &sessions.SessionState{
		AccessToken: response.AccessToken,

		RefreshDeadline:  refreshDeadline,
		LifetimeDeadline: sessions.ExtendDeadline(p.SessionLifetimeTTL),

		User:    user.Name(),
		Groups:  user.Groups,
		Admin:   user.admin,
		RawUser: user.raw,
	}, nil
}

// redeemToken POSTs the token exchange to the cluster. On a transport-level
// failure it flips which certificate bundle is trusted and retries exactly
// once; the flipped preference sticks for subsequent exchanges. HTTP-level
// failures are never retried.
func (p *OpenShiftProvider) redeemToken(params url.Values, response interface{}) error {
	logger := log.NewLogEntry()

	useCluster := p.useClusterBundle
	err := p.tokenRequest(p.bundleHTTPClient(useCluster), params, response, bundleTag(useCluster))
	var uerr *url.Error
	if err != nil && errors.As(err, &uerr) {
		p.useClusterBundle = !useCluster
		logger.WithError(err).Warn(
			"token exchange failed, retrying with alternate certificate bundle")
		if p.StatsdClient != nil {
			p.StatsdClient.Incr("provider.bundle_flip", []string{bundleTag(!useCluster)}, 1.0)
		}
		return p.tokenRequest(p.bundleHTTPClient(!useCluster), params, response, bundleTag(!useCluster))
	}
	return err
}

func (p *OpenShiftProvider) bundleHTTPClient(useCluster bool) *http.Client {
	if useCluster {
		return p.clusterHTTPClient()
	}
	return p.systemHTTPClient()
}

func bundleTag(useCluster bool) string {
	if useCluster {
		return "bundle:cluster"
	}
	return "bundle:system"
}

func (p *OpenShiftProvider) tokenRequest(client *http.Client, params url.Values, response interface{}, tags ...string) error {
	tags = append(tags, "action:redeem")
	req, err := http.NewRequest("POST", p.RedeemURL.String(), bytes.NewBufferString(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return p.apiRequest(client, req, tags, response)
}

// GetUser resolves the token's owner via the cluster's users/~ endpoint and
// applies group policy. A 401 means the token no longer identifies anyone and
// yields (nil, nil), as does a policy denial; other failures are errors.
func (p *OpenShiftProvider) GetUser(accessToken string) (*openShiftUser, error) {
	logger := log.NewLogEntry()

	if accessToken == "" {
		return nil, ErrBadRequest
	}

	tags := []string{"action:userinfo", "provider:openshift"}
	req, err := http.NewRequest("GET", p.UserDataURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	startTS := time.Now()
	p.statsdIncr("provider.request", tags)
	resp, err := p.clusterHTTPClient().Do(req)
	if err != nil {
		p.statsdIncr("provider.internal_error", append(tags, "error:http_client_error"))
		return nil, err
	}
	tags = append(tags, fmt.Sprintf("status_code:%d", resp.StatusCode))
	p.statsdTiming("provider.latency", time.Now().Sub(startTS), tags)
	p.statsdIncr("provider.response", tags)

	body, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		p.statsdIncr("provider.internal_error", append(tags, "error:invalid_body"))
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// the token has been revoked or expired; there is no user behind it
		logger.WithEndpoint(p.UserDataURL.String()).Info("access token no longer valid")
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		p.statsdIncr("provider.error", tags)
		logger.WithHTTPStatus(resp.StatusCode).WithEndpoint(p.UserDataURL.String()).WithResponseBody(
			body).Info()
		switch resp.StatusCode {
		case 400:
			return nil, ErrBadRequest
		case 429:
			return nil, ErrRateLimitExceeded
		default:
			return nil, ErrServiceUnavailable
		}
	}

	user := &openShiftUser{raw: json.RawMessage(body)}
	if err := json.Unmarshal(body, user); err != nil {
		p.statsdIncr("provider.internal_error", append(tags, "error:invalid_body"))
		return nil, err
	}
	if user.Name() == "" {
		return nil, errors.New("no username in user data response")
	}

	if !p.authorize(user) {
		return nil, nil
	}
	return user, nil
}

// authorize applies the configured group policy to the user, setting the
// admin flag when admin groups are configured. Returns false when the user
// is denied admission.
func (p *OpenShiftProvider) authorize(user *openShiftUser) bool {
	logger := log.NewLogEntry()

	switch {
	case !p.AdminGroups.Empty():
		isAdmin := p.AdminGroups.Intersects(user.Groups)
		if !isAdmin && !p.AllowedGroups.Intersects(user.Groups) {
			logger.WithUser(user.Name()).WithUserGroups(user.Groups).Warn(
				"user not in any admin or allowed group")
			return false
		}
		user.admin = &isAdmin
	case !p.AllowedGroups.Empty():
		if !p.AllowedGroups.Intersects(user.Groups) {
			logger.WithUser(user.Name()).WithUserGroups(user.Groups).Warn(
				"user not in any allowed group")
			return false
		}
	}
	return true
}

// ValidateSessionState checks that the session's access token still resolves
// an admitted user.
func (p *OpenShiftProvider) ValidateSessionState(s *sessions.SessionState) bool {
	if s.AccessToken == "" {
		return false
	}
	user, err := p.GetUser(s.AccessToken)
	if err != nil {
		return false
	}
	return user != nil
}

// RefreshSessionIfNeeded re-resolves the session's user once the refresh
// period has expired, recomputing groups and admin status. A token whose
// owner no longer resolves or no longer satisfies policy yields
// ErrUserNotFound so the caller terminates the session.
func (p *OpenShiftProvider) RefreshSessionIfNeeded(s *sessions.SessionState) (bool, error) {
	if s == nil || !s.RefreshPeriodExpired() {
		return false, nil
	}

	user, err := p.GetUser(s.AccessToken)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}

	logger := log.NewLogEntry()

	s.User = user.Name()
	s.Groups = user.Groups
	s.Admin = user.admin
	s.RawUser = user.raw
	s.RefreshDeadline = sessions.ExtendDeadline(p.SessionValidTTL)
	logger.WithUser(s.User).WithRefreshDeadline(s.RefreshDeadline).Info("refreshed session")

	return true, nil
}

// ValidateGroupMembership returns which of the requested groups the token's
// user belongs to, in the requested order. An empty request admits trivially.
func (p *OpenShiftProvider) ValidateGroupMembership(name string, allowedGroups []string, accessToken string) ([]string, error) {
	if accessToken == "" {
		return nil, ErrBadRequest
	}
	if len(allowedGroups) == 0 {
		return []string{}, nil
	}

	user, err := p.GetUser(accessToken)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return groups.NewSet(user.Groups...).Matching(allowedGroups), nil
}

// Revoke is a no-op: the cluster owns its oauth access tokens and they
// expire on their own schedule. Kept so sign-out flows can call it
// unconditionally.
func (p *OpenShiftProvider) Revoke(s *sessions.SessionState) error {
	logger := log.NewLogEntry()
	logger.WithUser(s.User).Info("sign-out does not revoke cluster tokens")
	return nil
}

// Stop terminates the bundle store's refresh loops
func (p *OpenShiftProvider) Stop() {
	p.bundles.Stop()
}

// apiRequest performs an instrumented request, mapping http-level failures
// to the provider sentinel errors.
func (p *OpenShiftProvider) apiRequest(client *http.Client, req *http.Request, tags []string, response interface{}) error {
	logger := log.NewLogEntry()

	startTS := time.Now()
	tags = append(tags, "provider:openshift")

	p.statsdIncr("provider.request", tags)
	resp, err := client.Do(req)
	if err != nil {
		p.statsdIncr("provider.internal_error", append(tags, "error:http_client_error"))
		return err
	}
	tags = append(tags, fmt.Sprintf("status_code:%d", resp.StatusCode))
	p.statsdTiming("provider.latency", time.Now().Sub(startTS), tags)
	p.statsdIncr("provider.response", tags)

	respBody, err := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		p.statsdIncr("provider.internal_error", append(tags, "error:invalid_body"))
		return err
	}
	if resp.StatusCode != http.StatusOK {
		p.statsdIncr("provider.error", tags)
		logger.WithHTTPStatus(resp.StatusCode).WithEndpoint(stripToken(req.URL.String())).WithResponseBody(
			respBody).Info()
		switch resp.StatusCode {
		case 400:
			var errResponse struct {
				Error            string `json:"error"`
				ErrorDescription string `json:"error_description"`
			}
			e := json.Unmarshal(respBody, &errResponse)
			if e == nil && errResponse.Error == "invalid_grant" {
				p.statsdIncr("provider.token_revoked", tags)
				return ErrTokenRevoked
			}
			return ErrBadRequest
		case 429:
			return ErrRateLimitExceeded
		default:
			return ErrServiceUnavailable
		}
	}

	if response != nil {
		err := json.Unmarshal(respBody, &response)
		if err != nil {
			p.statsdIncr("provider.internal_error", tags)
			return err
		}
	}

	return nil
}

func (p *OpenShiftProvider) statsdIncr(name string, tags []string) {
	if p.StatsdClient != nil {
		p.StatsdClient.Incr(name, tags, 1.0)
	}
}

func (p *OpenShiftProvider) statsdTiming(name string, value time.Duration, tags []string) {
	if p.StatsdClient != nil {
		p.StatsdClient.Timing(name, value, tags, 1.0)
	}
}
