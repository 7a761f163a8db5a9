package sessions

import "net/http"

// MockCSRFStore is a mock implementation of the CSRF store interface
type MockCSRFStore struct {
	ResponseCSRF string
	Cookie       *http.Cookie
	GetError     error
}

// SetCSRF sets the ResponseCSRF string to a val
func (ms *MockCSRFStore) SetCSRF(rw http.ResponseWriter, req *http.Request, val string) {
	ms.ResponseCSRF = val
}

// ClearCSRF clears the ResponseCSRF string
func (ms *MockCSRFStore) ClearCSRF(rw http.ResponseWriter, req *http.Request) {
	ms.ResponseCSRF = ""
}

// GetCSRF returns the mock cookie and error
func (ms *MockCSRFStore) GetCSRF(req *http.Request) (*http.Cookie, error) {
	return ms.Cookie, ms.GetError
}

// MockSessionStore is a mock implementation of the session store interface
type MockSessionStore struct {
	ResponseSession string
	Session         *SessionState
	SaveError       error
	LoadError       error
}

// ClearSession clears the mock session
func (ms *MockSessionStore) ClearSession(rw http.ResponseWriter, req *http.Request) {
	ms.Session = nil
}

// LoadSession returns the mock session and load error
func (ms *MockSessionStore) LoadSession(req *http.Request) (*SessionState, error) {
	return ms.Session, ms.LoadError
}

// SaveSession returns the mock save error and stores the session it was given
func (ms *MockSessionStore) SaveSession(rw http.ResponseWriter, req *http.Request, s *SessionState) error {
	if ms.SaveError == nil {
		ms.Session = s
	}
	return ms.SaveError
}
