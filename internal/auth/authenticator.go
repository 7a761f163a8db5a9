package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notebookhub/hubauth/internal/auth/providers"
	"github.com/notebookhub/hubauth/internal/pkg/aead"
	log "github.com/notebookhub/hubauth/internal/pkg/logging"
	"github.com/notebookhub/hubauth/internal/pkg/options"
	"github.com/notebookhub/hubauth/internal/pkg/payloads"
	"github.com/notebookhub/hubauth/internal/pkg/sessions"
	"github.com/notebookhub/hubauth/internal/pkg/templates"

	"github.com/datadog/datadog-go/statsd"
	"github.com/gorilla/mux"
)

// authCodeExpiration bounds how long the one-time authorization payload
// handed to the hub stays redeemable.
const authCodeExpiration = 5 * time.Minute

// Authenticator stores all the information associated with hub authentication.
type Authenticator struct {
	Validators     []options.Validator
	AllowedGroups  []string
	HubRootDomains []string
	Host           string
	Scheme         string

	csrfStore    sessions.CSRFStore
	sessionStore sessions.SessionStore

	redirectURL *url.URL // the url to receive callbacks at
	provider    providers.Provider
	ServeMux    http.Handler

	AuthCodeCipher aead.Cipher

	HubClientID     string
	HubClientSecret string
	HubSignatureKey string

	StatsdClient *statsd.Client

	SessionValidTTL    time.Duration
	SessionLifetimeTTL time.Duration

	templates templates.Template
}

// authState carries the cluster credentials the hub stores per session.
type authState struct {
	AccessToken   string          `json:"access_token"`
	OpenShiftUser json.RawMessage `json:"openshift_user,omitempty"`
}

// userInfoResponse is the user-info record returned to the hub by /redeem
// and /refresh.
type userInfoResponse struct {
	Name      string    `json:"name"`
	AuthState authState `json:"auth_state"`
	Admin     *bool     `json:"admin,omitempty"`
	ExpiresIn int64     `json:"expires_in"`
}

type getProfileResponse struct {
	User   string   `json:"user"`
	Groups []string `json:"groups"`
}

// NewAuthenticator creates a Authenticator struct and applies the optional functions slice to the struct.
func NewAuthenticator(config Configuration, optionFuncs ...func(*Authenticator) error) (*Authenticator, error) {
	logger := log.NewLogEntry()

	templates := templates.NewHTMLTemplate()

	hubRootDomains := []string{}
	for _, domain := range config.AuthorizeConfig.HubConfig.Domains {
		if !strings.HasPrefix(domain, ".") {
			domain = fmt.Sprintf(".%s", domain)
		}
		hubRootDomains = append(hubRootDomains, domain)
	}

	p := &Authenticator{
		HubClientID:     config.ClientConfigs["hub"].ID,
		HubClientSecret: config.ClientConfigs["hub"].Secret,
		HubSignatureKey: config.ClientConfigs["hub"].Signature,
		Host:            config.ServerConfig.Host,
		Scheme:          config.ServerConfig.Scheme,

		SessionValidTTL:    config.SessionConfig.SessionValidTTL,
		SessionLifetimeTTL: config.SessionConfig.SessionLifetimeTTL,

		HubRootDomains: hubRootDomains,
		templates:      templates,
	}

	p.ServeMux = p.newMux()

	// apply the option functions
	for _, optFunc := range optionFuncs {
		err := optFunc(p)
		if err != nil {
			logger.Error(err)
			return nil, err
		}
	}

	return p, nil
}

func (p *Authenticator) newMux() http.Handler {
	// we setup our service mux to handle service routes that use the required host header
	serviceMux := mux.NewRouter()
	serviceMux.UseEncodedPath()
	serviceMux.HandleFunc("/robots.txt", p.RobotsTxt)
	serviceMux.HandleFunc("/start", p.withMethods(p.validateClientID(p.validateRedirectURI(p.validateSignature(p.OAuthStart))), "GET"))
	serviceMux.HandleFunc("/sign_in", p.withMethods(p.validateClientID(p.validateRedirectURI(p.validateSignature(p.SignIn))), "GET"))
	serviceMux.HandleFunc("/sign_out", p.withMethods(p.validateRedirectURI(p.validateSignature(p.SignOut)), "GET", "POST"))
	serviceMux.HandleFunc("/callback", p.withMethods(p.OAuthCallback, "GET"))
	serviceMux.HandleFunc("/profile", p.withMethods(p.validateClientID(p.validateClientSecret(p.validateRequestSignature(p.GetProfile))), "GET"))
	serviceMux.HandleFunc("/validate", p.withMethods(p.validateClientID(p.validateClientSecret(p.validateRequestSignature(p.ValidateToken))), "GET"))
	serviceMux.HandleFunc("/redeem", p.withMethods(p.validateClientID(p.validateClientSecret(p.validateRequestSignature(p.Redeem))), "POST"))
	serviceMux.HandleFunc("/refresh", p.withMethods(p.validateClientID(p.validateClientSecret(p.validateRequestSignature(p.Refresh))), "POST"))

	return setHeaders(serviceMux)
}

// RobotsTxt handles the /robots.txt route.
func (p *Authenticator) RobotsTxt(rw http.ResponseWriter, req *http.Request) {
	rw.WriteHeader(http.StatusOK)
	fmt.Fprintf(rw, "User-agent: *\nDisallow: /")
}

// GetRedirectURI returns the callback url registered with the cluster's oauth client
func (p *Authenticator) GetRedirectURI(host string) string {
	// default to the request Host if not set
	return p.redirectURL.String()
}

type signInParams struct {
	RedirectURL  string
	ClientID     string
	ResponseType string
	State        string
	TimeStamp    string
	Signature    string
}

type signInResp struct {
	ProviderName  string
	AllowedGroups []string
	Action        string
	Destination   string
	SignInParams  signInParams
}

// SignInPage directs the user to the sign in page
func (p *Authenticator) SignInPage(rw http.ResponseWriter, req *http.Request, code int) {
	req.ParseForm()
	rw.WriteHeader(code)

	// validateRedirectURI middleware already ensures that this is a valid URL
	destinationURL, _ := url.Parse(req.Form.Get("redirect_uri"))

	t := signInResp{
		ProviderName:  p.provider.Data().ProviderName,
		AllowedGroups: p.AllowedGroups,
		Action:        "start",
		Destination:   destinationURL.Host,
		SignInParams: signInParams{
			RedirectURL:  req.Form.Get("redirect_uri"),
			ClientID:     req.Form.Get("client_id"),
			ResponseType: req.Form.Get("response_type"),
			State:        req.Form.Get("state"),
			TimeStamp:    req.Form.Get("ts"),
			Signature:    req.Form.Get("sig"),
		},
	}
	p.templates.ExecuteTemplate(rw, "sign_in.html", t)
}

func (p *Authenticator) authenticate(rw http.ResponseWriter, req *http.Request) (*sessions.SessionState, error) {
	logger := log.NewLogEntry()
	remoteAddr := getRemoteAddr(req)
	session, err := p.sessionStore.LoadSession(req)
	if err != nil {
		logger.WithRemoteAddress(remoteAddr).Error(err, "error loading session")
		p.sessionStore.ClearSession(rw, req)
		return nil, err
	}

	if session.LifetimePeriodExpired() {
		logger.WithUser(session.User).Info("lifetime has expired, restarting authentication")
		p.sessionStore.ClearSession(rw, req)
		return nil, sessions.ErrLifetimeExpired
	}

	if session.RefreshPeriodExpired() {
		ok, err := p.provider.RefreshSessionIfNeeded(session)
		// We failed to refresh the session successfully
		// clear the cookie and reject the request
		if err != nil {
			logger.WithUser(session.User).Error(err, "refreshing session failed")
			p.sessionStore.ClearSession(rw, req)
			return nil, err
		}

		if !ok {
			// User is not authorized after refresh
			// clear the cookie and reject the request
			logger.WithUser(session.User).Error("not authorized after refreshing the session")
			p.sessionStore.ClearSession(rw, req)
			return nil, ErrUserNotAuthorized
		}

		err = p.sessionStore.SaveSession(rw, req, session)
		if err != nil {
			// We refreshed the session successfully, but failed to save it.
			// This could be from failing to encode the session properly.
			// But, we clear the session cookie and reject the request
			logger.WithUser(session.User).Error(err, "could not save refreshed session")
			p.sessionStore.ClearSession(rw, req)
			return nil, err
		}
	} else {
		ok := p.provider.ValidateSessionState(session)
		if !ok {
			logger.WithRemoteAddress(remoteAddr).WithUser(session.User).Error("invalid session state")
			p.sessionStore.ClearSession(rw, req)
			return nil, ErrUserNotAuthorized
		}
		err = p.sessionStore.SaveSession(rw, req, session)
		if err != nil {
			// We validated the session successfully, but failed to save it.
			// This could be from failing to encode the session properly.
			// But, we clear the session cookie and reject the request!
			logger.WithUser(session.User).Error(err, "could not save validated session")
			p.sessionStore.ClearSession(rw, req)
			return nil, err
		}
	}

	if err := p.runValidators(session); err != nil {
		logger.WithUser(session.User).Info(
			fmt.Sprintf("permission denied: unauthorized: %q", err))
		return nil, ErrUserNotAuthorized
	}

	logger.WithRemoteAddress(remoteAddr).WithUser(session.User).Info(
		"authentication: user passed validation")

	return session, nil
}

// runValidators applies the service-level restrictions, admitting the session
// when no validators are configured or at least one admits it.
func (p *Authenticator) runValidators(session *sessions.SessionState) error {
	if len(p.Validators) == 0 {
		return nil
	}
	errs := options.RunValidators(p.Validators, session)
	if len(errs) == len(p.Validators) {
		return fmt.Errorf("%q", errs)
	}
	return nil
}

// SignIn handles the /sign_in endpoint. It attempts to authenticate the user, and if the user is not authenticated, it renders
// a sign in page.
func (p *Authenticator) SignIn(rw http.ResponseWriter, req *http.Request) {
	// We attempt to authenticate the user. If they cannot be authenticated, we render a sign-in
	// page.
	//
	// If the user is authenticated, we redirect back to the hub at the
	// `redirect_uri`, with a temporary authorization payload.

	// statsd client tags
	hubHost := getHubHost(req)
	tags := []string{
		"action:sign_in",
		fmt.Sprintf("hub_host:%s", hubHost),
	}
	session, err := p.authenticate(rw, req)
	switch err {
	case nil:
		// User is authenticated, redirect back to the hub
		// with the necessary state
		p.HubOAuthRedirect(rw, req, session, tags)
	case http.ErrNoCookie:
		p.SignInPage(rw, req, http.StatusOK)
	case providers.ErrTokenRevoked, providers.ErrUserNotFound:
		p.sessionStore.ClearSession(rw, req)
		p.SignInPage(rw, req, http.StatusOK)
	case sessions.ErrLifetimeExpired, sessions.ErrInvalidSession:
		p.sessionStore.ClearSession(rw, req)
		p.SignInPage(rw, req, http.StatusOK)
	default:
		tags = append(tags, "error:sign_in_error")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, err.Error(), codeForError(err))
	}
}

// HubOAuthRedirect redirects the user back to the hub's redirection endpoint.
func (p *Authenticator) HubOAuthRedirect(rw http.ResponseWriter, req *http.Request, session *sessions.SessionState, tags []string) {
	// This workflow corresponds to Section 3.1.2 of the OAuth2 RFC.
	// See https://tools.ietf.org/html/rfc6749#section-3.1.2 for more specific information.
	//
	// We redirect the user back to the hub's redirection endpoint with a
	// temporary authorization code via the `code` parameter, which it can
	// redeem at /redeem for the user-info record.
	//
	// We must also include the original `state` parameter received from the hub.

	err := req.ParseForm()
	if err != nil {
		p.ErrorResponse(rw, req, err.Error(), http.StatusInternalServerError)
		return
	}

	state := req.Form.Get("state")
	if state == "" {
		tags = append(tags, "error:empty_state")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, "no state parameter supplied", http.StatusForbidden)
		return
	}

	redirectURI := req.Form.Get("redirect_uri")
	if redirectURI == "" {
		tags = append(tags, "error:empty_redirect_uri")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, "no redirect_uri parameter supplied", http.StatusForbidden)
		return
	}

	redirectURL, err := url.Parse(redirectURI)
	if err != nil {
		tags = append(tags, "error:invalid_redirect_uri")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, "malformed redirect_uri parameter passed", http.StatusBadRequest)
		return
	}

	authCode, err := p.makeAuthCodePayload(session)
	if err != nil {
		tags = append(tags, "error:invalid_auth_code")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, err.Error(), http.StatusInternalServerError)
		return
	}

	authCodeRedirect, err := getAuthCodeRedirectURL(redirectURL, state, authCode, p.Scheme)
	if err != nil {
		tags = append(tags, "error:invalid_auth_redirect")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		p.ErrorResponse(rw, req, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(rw, req, authCodeRedirect, http.StatusFound)
}

// makeAuthCodePayload seals the session into a one-time payload bound to the
// hub client and the current time.
func (p *Authenticator) makeAuthCodePayload(session *sessions.SessionState) (string, error) {
	marshaled, err := sessions.MarshalSession(session, p.AuthCodeCipher)
	if err != nil {
		return "", err
	}
	payload := payloads.New(p.HubClientID, marshaled, p.HubClientSecret, time.Now(), p.AuthCodeCipher)
	return payloads.Encrypt(payload)
}

func getAuthCodeRedirectURL(redirectURL *url.URL, state, authCode, scheme string) (string, error) {
	u, err := url.Parse(redirectURL.String())
	if err != nil {
		return "", err
	}

	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", err
	}

	params.Set("code", authCode)
	params.Set("state", state)

	u.RawQuery = params.Encode()
	u.Scheme = scheme

	return u.String(), nil
}

// SignOut signs the user out.
func (p *Authenticator) SignOut(rw http.ResponseWriter, req *http.Request) {
	logger := log.NewLogEntry()

	req.ParseForm()
	redirectURI := req.Form.Get("redirect_uri")

	// statsd client tags
	hubHost := getHubHost(req)
	tags := []string{
		"action:sign_out",
		fmt.Sprintf("hub_host:%s", hubHost),
	}

	if req.Method == "GET" {
		p.SignOutPage(rw, req, "")
		return
	}

	session, err := p.sessionStore.LoadSession(req)
	switch err {
	case nil:
		break
	// if there's no cookie in the session we can just redirect
	case http.ErrNoCookie:
		http.Redirect(rw, req, redirectURI, http.StatusFound)
		return
	default:
		// a different error, clear the session cookie and redirect
		logger.Error(err, "error loading cookie session")
		p.sessionStore.ClearSession(rw, req)
		http.Redirect(rw, req, redirectURI, http.StatusFound)
		return
	}

	err = p.provider.Revoke(session)
	if err != nil {
		tags = append(tags, "error:revoke_session")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		logger.Error(err, "error revoking session")
		p.SignOutPage(rw, req, "An error occurred during sign out. Please try again.")
		return
	}

	p.sessionStore.ClearSession(rw, req)
	http.Redirect(rw, req, redirectURI, http.StatusFound)
}

type signOutParams struct {
	RedirectURL string
	Signature   string
	TimeStamp   string
}

type signOutResp struct {
	User          string
	Destination   string
	Action        string
	Message       string
	SignOutParams signOutParams
}

// SignOutPage renders a sign out page with a message
func (p *Authenticator) SignOutPage(rw http.ResponseWriter, req *http.Request, message string) {
	// validateRedirectURI middleware already ensures that this is a valid URL
	redirectURI := req.Form.Get("redirect_uri")

	session, err := p.sessionStore.LoadSession(req)
	if err != nil {
		http.Redirect(rw, req, redirectURI, http.StatusFound)
		return
	}

	destinationURL, _ := url.Parse(redirectURI)

	// An error message indicates that an internal server error occurred
	if message != "" {
		rw.WriteHeader(http.StatusInternalServerError)
	}

	t := signOutResp{
		User:        session.User,
		Destination: destinationURL.Host,
		Action:      "sign_out",
		Message:     message,
		SignOutParams: signOutParams{
			RedirectURL: redirectURI,
			Signature:   req.Form.Get("sig"),
			TimeStamp:   req.Form.Get("ts"),
		},
	}
	p.templates.ExecuteTemplate(rw, "sign_out.html", t)
}

// OAuthStart starts the authentication process by redirecting to the cluster's
// authorize endpoint. It provides a `redirectURI`, allowing the cluster to
// redirect back to /callback after authentication.
func (p *Authenticator) OAuthStart(rw http.ResponseWriter, req *http.Request) {
	nonce := fmt.Sprintf("%x", aead.GenerateKey())
	p.csrfStore.SetCSRF(rw, req, nonce)

	// After the callback we bounce the user through /sign_in, which holds
	// the hub's redirect_uri, state, and signature in its own query string
	// and forwards the user to the hub once the session cookie is in place.
	//
	//    A*       B                 C              D             E
	// /start -> OpenShift -> auth /callback -> /sign_in -> hub /callback
	//
	// * you are here
	signInURL := p.redirectURL.ResolveReference(
		&url.URL{
			Path:     strings.Replace(p.redirectURL.Path, "/callback", "/sign_in", 1),
			RawQuery: req.URL.RawQuery,
		},
	)

	state := base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf("%v:%v", nonce, signInURL.String())))
	redirectURI := p.GetRedirectURI(req.Host)
	http.Redirect(rw, req, p.provider.GetSignInURL(redirectURI, state), http.StatusFound)
}

func (p *Authenticator) redeemCode(host, code string) (*sessions.SessionState, error) {
	// The authenticator redeems `code` for an access token, and uses the token
	// to resolve the cluster user it belongs to.

	redirectURI := p.GetRedirectURI(host)
	session, err := p.provider.Redeem(redirectURI, code)
	if err != nil {
		return nil, err
	}

	if session.User == "" {
		return nil, fmt.Errorf("no user included in session")
	}
	return session, nil
}

func (p *Authenticator) getOAuthCallback(rw http.ResponseWriter, req *http.Request) (string, error) {
	// After the cluster's oauth server redirects back here, we verify the
	// state round-trip and set up the session cookie.
	logger := log.NewLogEntry()

	remoteAddr := getRemoteAddr(req)

	tags := []string{
		"action:callback",
	}

	// finish the oauth cycle
	err := req.ParseForm()
	if err != nil {
		return "", HTTPError{Code: http.StatusInternalServerError, Message: err.Error()}
	}
	errorString := req.Form.Get("error")
	if errorString != "" {
		tags = append(tags, "error:error_in_callback")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		return "", HTTPError{Code: http.StatusForbidden, Message: errorString}
	}

	code := req.Form.Get("code")
	if code == "" {
		return "", HTTPError{Code: http.StatusBadRequest, Message: "Missing Code"}
	}
	session, err := p.redeemCode(req.Host, code)
	if err != nil {
		tags = append(tags, "error:redeem_code")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		logger.WithRemoteAddress(remoteAddr).Error(
			err, "error redeeming authentication code")
		return "", err
	}

	bytes, err := base64.URLEncoding.DecodeString(req.Form.Get("state"))
	if err != nil {
		return "", HTTPError{Code: http.StatusInternalServerError, Message: "Invalid State"}
	}
	s := strings.SplitN(string(bytes), ":", 2)
	if len(s) != 2 {
		tags = append(tags, "error:invalid_state")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		return "", HTTPError{Code: http.StatusInternalServerError, Message: "Invalid State"}
	}
	nonce := s[0]
	redirect := s[1]
	c, err := p.csrfStore.GetCSRF(req)
	if err != nil {
		tags = append(tags, "error:missing_csrf_cookie")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		return "", HTTPError{Code: http.StatusForbidden, Message: "Missing CSRF token"}
	}
	p.csrfStore.ClearCSRF(rw, req)
	if c.Value != nonce {
		tags = append(tags, "error:csrf_token_mismatch")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithRemoteAddress(remoteAddr).Error(
			"csrf_token_mismatch", "POTENTIAL ATTACK: CSRF token mismatch")
		return "", HTTPError{Code: http.StatusForbidden, Message: "csrf failed"}
	}

	if !validRedirectURI(redirect, p.HubRootDomains) {
		tags = append(tags, "error:invalid_redirect_parameter")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		return "", HTTPError{Code: http.StatusForbidden, Message: "Invalid Redirect URI"}
	}

	// Set cookie, or deny: the provider's group policy has already admitted
	// the user; service-level restrictions apply on top of it.
	if err := p.runValidators(session); err != nil {
		tags = append(tags, "error:user_not_authorized")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithRemoteAddress(remoteAddr).WithUser(session.User).Info(
			fmt.Sprintf("oauth callback: unauthorized: %s", err))

		errorMsg := fmt.Sprintf("We ran into some issues while validating your account: %s", err)
		return "", HTTPError{Code: http.StatusForbidden, Message: errorMsg}
	}

	logger.WithRemoteAddress(remoteAddr).WithUser(session.User).Info("authentication complete")
	err = p.sessionStore.SaveSession(rw, req, session)
	if err != nil {
		tags = append(tags, "error:save_session_failed")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithRemoteAddress(remoteAddr).Error(err, "internal error")
		return "", HTTPError{Code: http.StatusInternalServerError, Message: "Internal Error"}
	}
	return redirect, nil
}

// OAuthCallback handles the callback from the provider, and returns an error response if there is an error.
// If there is no error it will redirect to the redirect url.
func (p *Authenticator) OAuthCallback(rw http.ResponseWriter, req *http.Request) {
	redirect, err := p.getOAuthCallback(rw, req)
	switch h := err.(type) {
	case nil:
		break
	case HTTPError:
		p.ErrorResponse(rw, req, h.Message, h.Code)
		return
	default:
		p.ErrorResponse(rw, req, "Internal Error", codeForError(err))
		return
	}
	http.Redirect(rw, req, redirect, http.StatusFound)
}

// userInfo assembles the user-info record the hub stores for a session.
func userInfo(session *sessions.SessionState) userInfoResponse {
	return userInfoResponse{
		Name: session.User,
		AuthState: authState{
			AccessToken:   session.AccessToken,
			OpenShiftUser: session.RawUser,
		},
		Admin:     session.Admin,
		ExpiresIn: int64(session.RefreshDeadline.Sub(time.Now()).Seconds()),
	}
}

// Redeem accepts the one-time authorization payload and provides the user
// information associated with it.
func (p *Authenticator) Redeem(rw http.ResponseWriter, req *http.Request) {
	logger := log.NewLogEntry()

	err := req.ParseForm()
	if err != nil {
		http.Error(rw, fmt.Sprintf("Bad Request: %s", err.Error()), http.StatusBadRequest)
		return
	}

	tags := []string{
		"action:redeem",
	}

	payload, err := payloads.Decrypt(p.HubClientID, req.Form.Get("code"), p.HubClientSecret, authCodeExpiration, p.AuthCodeCipher)
	if err != nil {
		tags = append(tags, "error:invalid_auth_code")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithHTTPStatus(http.StatusUnauthorized).Error(err, "invalid auth code")
		http.Error(rw, fmt.Sprintf("invalid auth code: %s", err.Error()), http.StatusUnauthorized)
		return
	}

	session, err := sessions.UnmarshalSession(payload.Value, p.AuthCodeCipher)
	if err != nil {
		tags = append(tags, "error:invalid_session")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithHTTPStatus(http.StatusUnauthorized).Error(err, "invalid session")
		http.Error(rw, fmt.Sprintf("invalid session: %s", err.Error()), http.StatusUnauthorized)
		return
	}

	if session.RefreshPeriodExpired() || session.LifetimePeriodExpired() {
		tags = append(tags, "error:expired_session")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		logger.WithUser(session.User).WithRefreshDeadline(session.RefreshDeadline).WithLifetimeDeadline(session.LifetimeDeadline).Error("expired session")
		p.sessionStore.ClearSession(rw, req)

		http.Error(rw, "expired session", http.StatusUnauthorized)
		return
	}

	rw.Header().Set("Hub-Auth", session.User)
	writeJSONResponse(rw, http.StatusOK, userInfo(session))
}

// Refresh re-resolves the session's user against the cluster and returns a
// fresh user-info record, or a 401 when the session must be terminated.
func (p *Authenticator) Refresh(rw http.ResponseWriter, req *http.Request) {
	logger := log.NewLogEntry()

	err := req.ParseForm()
	if err != nil {
		http.Error(rw, fmt.Sprintf("Bad Request: %s", err.Error()), http.StatusBadRequest)
		return
	}

	tags := []string{
		"action:refresh",
	}

	accessToken := req.Form.Get("access_token")
	if accessToken == "" {
		http.Error(rw, "Bad Request: No Access Token", http.StatusBadRequest)
		return
	}

	session := &sessions.SessionState{
		AccessToken:      accessToken,
		LifetimeDeadline: sessions.ExtendDeadline(p.SessionLifetimeTTL),
	}

	ok, err := p.provider.RefreshSessionIfNeeded(session)
	if err != nil {
		tags = append(tags, "error:refresh_failed")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		logger.Error(err, "could not refresh session")
		p.ErrorResponse(rw, req, err.Error(), codeForError(err))
		return
	}
	if !ok {
		p.ErrorResponse(rw, req, "session not refreshable", http.StatusUnauthorized)
		return
	}

	rw.Header().Set("Hub-Auth", session.User)
	writeJSONResponse(rw, http.StatusCreated, userInfo(session))
}

// GetProfile reports which of the requested groups the token's user belongs to.
func (p *Authenticator) GetProfile(rw http.ResponseWriter, req *http.Request) {
	// The hub sends a username and a candidate group list; the response
	// carries the subset of those groups the user is actually a member of,
	// which the hub uses to badge admin UIs.
	logger := log.NewLogEntry()

	tags := []string{
		"action:profile",
	}

	user := req.FormValue("user")
	if user == "" {
		tags = append(tags, "error:empty_user")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		http.Error(rw, "no user included", http.StatusBadRequest)
		return
	}

	accessToken := req.Header.Get("X-Access-Token")

	groupsFormValue := req.FormValue("groups")
	allowedGroups := []string{}
	if groupsFormValue != "" {
		allowedGroups = strings.Split(groupsFormValue, ",")
	}

	groups, err := p.provider.ValidateGroupMembership(user, allowedGroups, accessToken)
	if err != nil {
		tags = append(tags, "error:groups_resource")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		logger.Error(err, "error retrieving groups")
		p.ErrorResponse(rw, req, err.Error(), codeForError(err))
		return
	}

	response := getProfileResponse{
		User:   user,
		Groups: groups,
	}

	rw.Header().Set("Hub-Auth", user)
	writeJSONResponse(rw, http.StatusOK, response)
}

// ValidateToken validates the X-Access-Token from the header and returns an error response
// if it's invalid
func (p *Authenticator) ValidateToken(rw http.ResponseWriter, req *http.Request) {
	accessToken := req.Header.Get("X-Access-Token")

	tags := []string{
		"action:validate",
	}

	if accessToken == "" {
		tags = append(tags, "error:empty_access_token")
		p.StatsdClient.Incr("application_error", tags, 1.0)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}

	ok := p.provider.ValidateSessionState(&sessions.SessionState{
		AccessToken: accessToken,
	})

	if !ok {
		tags = append(tags, "error:invalid_access_token")
		p.StatsdClient.Incr("provider_error", tags, 1.0)
		rw.WriteHeader(http.StatusUnauthorized)
		return
	}

	rw.WriteHeader(http.StatusOK)
}

// Stop calls the provider's stop function
func (p *Authenticator) Stop() {
	p.provider.Stop()
}
