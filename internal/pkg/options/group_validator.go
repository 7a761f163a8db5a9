package options

import (
	"errors"

	"github.com/notebookhub/hubauth/internal/pkg/groups"
	"github.com/notebookhub/hubauth/internal/pkg/sessions"
)

var (
	_ Validator = GroupValidator{}

	// These error messages should be formatted in such a way that is appropriate
	// for display to the end user.
	ErrGroupMembership = errors.New("Invalid Group Membership")
)

type GroupValidator struct {
	AllowedGroups groups.Set
}

// NewGroupValidator takes in a list of groups and returns a Validator object.
// The validator can be used to validate that the session.Groups:
// - if an empty list is passed in in place of a list of groups, all sessions
//   will be considered valid regardless of group membership.
// - intersect the originally passed in groups.
// If valid, nil is returned in place of an error.
func NewGroupValidator(allowedGroups []string) GroupValidator {
	return GroupValidator{
		AllowedGroups: groups.NewSet(allowedGroups...),
	}
}

func (v GroupValidator) Validate(session *sessions.SessionState) error {
	if v.AllowedGroups.Empty() {
		return nil
	}

	if v.AllowedGroups.Intersects(session.Groups) {
		return nil
	}

	return ErrGroupMembership
}
