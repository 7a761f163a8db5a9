package options

import (
	"errors"
	"strings"

	"github.com/notebookhub/hubauth/internal/pkg/sessions"
)

var (
	_ Validator = UsernameValidator{}

	// These error messages should be formatted in such a way that is appropriate
	// for display to the end user.
	ErrUsernameDenied = errors.New("Unauthorized Username")
)

type UsernameValidator struct {
	AllowedUsernames []string
}

// NewUsernameValidator takes in a list of usernames and returns a Validator object.
// The validator can be used to validate that the session.User:
// - is non-empty
// - matches one of the originally passed in usernames (case insensitive)
// - if the originally passed in list of usernames consists only of "*", then all
//   non-empty usernames are considered valid.
// If valid, nil is returned in place of an error.
func NewUsernameValidator(allowedUsernames []string) UsernameValidator {
	usernames := make([]string, 0, len(allowedUsernames))
	for _, username := range allowedUsernames {
		usernames = append(usernames, strings.ToLower(username))
	}
	return UsernameValidator{
		AllowedUsernames: usernames,
	}
}

func (v UsernameValidator) Validate(session *sessions.SessionState) error {
	if session.User == "" {
		return ErrInvalidUsername
	}

	if len(v.AllowedUsernames) == 0 {
		return ErrUsernameDenied
	}

	if len(v.AllowedUsernames) == 1 && v.AllowedUsernames[0] == "*" {
		return nil
	}

	return v.validate(session)
}

func (v UsernameValidator) validate(session *sessions.SessionState) error {
	username := strings.ToLower(session.User)
	for _, allowed := range v.AllowedUsernames {
		if username == allowed {
			return nil
		}
	}
	return ErrUsernameDenied
}
