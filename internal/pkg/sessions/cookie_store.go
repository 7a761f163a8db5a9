package sessions

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/notebookhub/hubauth/internal/pkg/aead"
)

// CookieMaxLength is the maximum amount of session value bytes stored in a
// single cookie, kept safely under the common 4kb browser limit. Values
// larger than this are spanned across numbered cookies.
const CookieMaxLength = 3840

// PrefixDelimiter separates the length prefix from the value in the first
// spanned cookie.
const PrefixDelimiter = "~"

// CSRFStore has the functions for setting, getting, and clearing the CSRF cookie
type CSRFStore interface {
	SetCSRF(http.ResponseWriter, *http.Request, string)
	GetCSRF(*http.Request) (*http.Cookie, error)
	ClearCSRF(http.ResponseWriter, *http.Request)
}

// SessionStore has the functions for setting, getting, and clearing the Session cookie
type SessionStore interface {
	ClearSession(http.ResponseWriter, *http.Request)
	LoadSession(*http.Request) (*SessionState, error)
	SaveSession(http.ResponseWriter, *http.Request, *SessionState) error
}

// CookieStore represents all the cookie related configurations
type CookieStore struct {
	Name           string
	CSRFCookieName string
	CookieExpire   time.Duration
	CookieRefresh  time.Duration
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string
	CookieDomain   string
	CookieCipher   aead.Cipher
}

// SecretBytes attempts to base64 decode the secret, if that fails it treats the secret as binary
func SecretBytes(secret string) []byte {
	b, err := base64.URLEncoding.DecodeString(addPadding(secret))
	if err == nil {
		return []byte(addPadding(string(b)))
	}
	return []byte(secret)
}

func addPadding(secret string) string {
	padding := len(secret) % 4
	switch padding {
	case 1:
		return secret + "==="
	case 2:
		return secret + "=="
	case 3:
		return secret + "="
	default:
		return secret
	}
}

// CreateMiscreantCookieCipher creates a new miscreant cipher with the cookie secret
func CreateMiscreantCookieCipher(cookieSecret []byte) func(s *CookieStore) error {
	return func(s *CookieStore) error {
		cipher, err := aead.NewMiscreantCipher(cookieSecret)
		if err != nil {
			return fmt.Errorf("miscreant cookie-secret error: %s", err.Error())
		}
		s.CookieCipher = cipher
		return nil
	}
}

// NewCookieStore returns a new cookie store for the given cookie name
func NewCookieStore(cookieName string, optFuncs ...func(*CookieStore) error) (*CookieStore, error) {
	c := &CookieStore{
		Name:           cookieName,
		CookieSecure:   true,
		CookieHTTPOnly: true,
		CookieExpire:   168 * time.Hour,
		CSRFCookieName: fmt.Sprintf("%v_%v", cookieName, "csrf"),
	}

	for _, f := range optFuncs {
		err := f(c)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

// cookieCount returns the number of cookies needed to span a value of the
// given length. A zero-length value still occupies one cookie.
func cookieCount(length int) int {
	count := length / CookieMaxLength
	if length%CookieMaxLength != 0 || length == 0 {
		count++
	}
	return count
}

// generatePrefix encodes a value length as a base64 uvarint followed by the
// prefix delimiter.
func generatePrefix(length int) string {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(length))
	return base64.StdEncoding.EncodeToString(buf[:n]) + PrefixDelimiter
}

// parsePrefix decodes the length prefix of a spanned cookie value, returning
// -1 for anything malformed.
func parsePrefix(value string) int {
	idx := strings.Index(value, PrefixDelimiter)
	if idx <= 0 {
		return -1
	}
	raw, err := base64.StdEncoding.DecodeString(value[:idx])
	if err != nil {
		return -1
	}
	length, n := binary.Uvarint(raw)
	if n <= 0 || n != len(raw) {
		return -1
	}
	return int(length)
}

func sameSite(val string) http.SameSite {
	switch val {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

func (s *CookieStore) makeCookie(req *http.Request, name string, value string, expiration time.Duration, now time.Time) *http.Cookie {
	domain := req.Host
	if h, _, err := net.SplitHostPort(domain); err == nil {
		domain = h
	}
	if s.CookieDomain != "" {
		if !strings.HasSuffix(domain, s.CookieDomain) {
			log.Printf("Warning: Using configured cookie domain. request_host=%s cookie_domain=%s", domain, s.CookieDomain)
		}
		domain = s.CookieDomain
	}

	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		HttpOnly: s.CookieHTTPOnly,
		Secure:   s.CookieSecure,
		Expires:  now.Add(expiration),
	}
	if s.CookieSameSite != "" {
		cookie.SameSite = sameSite(s.CookieSameSite)
	}
	return cookie
}

// makeSessionCookies constructs the spanned session cookies for a value. The
// first cookie carries a length prefix so loads know how many cookies to
// reassemble.
func (s *CookieStore) makeSessionCookies(req *http.Request, value string, expiration time.Duration, now time.Time) []*http.Cookie {
	count := cookieCount(len(value))
	cookies := make([]*http.Cookie, count)
	for i := 0; i < count; i++ {
		start, end := i*CookieMaxLength, (i+1)*CookieMaxLength
		if end > len(value) {
			end = len(value)
		}
		chunk := value[start:end]
		if i == 0 {
			chunk = generatePrefix(len(value)) + chunk
		}
		cookies[i] = s.makeCookie(req, fmt.Sprintf("%s_%d", s.Name, i), chunk, expiration, now)
	}
	return cookies
}

// makeCSRFCookie creates a CSRF cookie given the request, an expiration time, and the current time.
func (s *CookieStore) makeCSRFCookie(req *http.Request, value string, expiration time.Duration, now time.Time) *http.Cookie {
	return s.makeCookie(req, s.CSRFCookieName, value, expiration, now)
}

// ClearCSRF clears the CSRF cookie from the request
func (s *CookieStore) ClearCSRF(rw http.ResponseWriter, req *http.Request) {
	http.SetCookie(rw, s.makeCSRFCookie(req, "", time.Hour*-1, time.Now()))
}

// SetCSRF sets the CSRFCookie creates a CSRF cookie in a given request
func (s *CookieStore) SetCSRF(rw http.ResponseWriter, req *http.Request, val string) {
	http.SetCookie(rw, s.makeCSRFCookie(req, val, s.CookieExpire, time.Now()))
}

// GetCSRF gets the CSRFCookie creates a CSRF cookie in a given request
func (s *CookieStore) GetCSRF(req *http.Request) (*http.Cookie, error) {
	return req.Cookie(s.CSRFCookieName)
}

// ClearSession clears the session cookies from a request
func (s *CookieStore) ClearSession(rw http.ResponseWriter, req *http.Request) {
	s.writeSessionCookies(rw, req, "", time.Hour*-1)
}

func (s *CookieStore) setSessionCookies(rw http.ResponseWriter, req *http.Request, val string) {
	s.writeSessionCookies(rw, req, val, s.CookieExpire)
}

func (s *CookieStore) writeSessionCookies(rw http.ResponseWriter, req *http.Request, val string, expiration time.Duration) {
	now := time.Now()
	cookies := s.makeSessionCookies(req, val, expiration, now)
	for _, cookie := range cookies {
		http.SetCookie(rw, cookie)
	}

	// expire overflow cookies left behind by a previously longer session value
	for i := len(cookies); ; i++ {
		name := fmt.Sprintf("%s_%d", s.Name, i)
		if _, err := req.Cookie(name); err != nil && i > len(cookies) {
			break
		}
		http.SetCookie(rw, s.makeCookie(req, name, "", time.Hour*-1, now))
	}
}

// LoadSession reassembles the spanned session cookies in the request and
// unmarshals the session state they carry.
func (s *CookieStore) LoadSession(req *http.Request) (*SessionState, error) {
	c, err := req.Cookie(fmt.Sprintf("%s_0", s.Name))
	if err != nil {
		// always http.ErrNoCookie
		return nil, err
	}

	length := parsePrefix(c.Value)
	if length < 0 {
		return nil, ErrInvalidSession
	}

	value := c.Value[strings.Index(c.Value, PrefixDelimiter)+1:]
	for i := 1; i < cookieCount(length); i++ {
		c, err := req.Cookie(fmt.Sprintf("%s_%d", s.Name, i))
		if err != nil {
			return nil, ErrInvalidSession
		}
		value += c.Value
	}
	if len(value) != length {
		return nil, ErrInvalidSession
	}

	session, err := UnmarshalSession(value, s.CookieCipher)
	if err != nil {
		return nil, ErrInvalidSession
	}
	return session, nil
}

// SaveSession saves a session state to the response's session cookies.
func (s *CookieStore) SaveSession(rw http.ResponseWriter, req *http.Request, sessionState *SessionState) error {
	value, err := MarshalSession(sessionState, s.CookieCipher)
	if err != nil {
		return err
	}

	s.setSessionCookies(rw, req, value)
	return nil
}
