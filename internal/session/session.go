// Package session persists the signed-in user's credentials: the bearer
// token, the numeric user id and the role the backend granted.
package session

import (
	"errors"
	"strconv"

	"github.com/gestionclinique/clinic-intray/internal/route"
)

// ErrNoUser is returned by Store.Load when nobody is signed in.
var ErrNoUser = errors.New("no user in session")

// Session is the signed-in user.
type Session struct {
	Token  string
	UserID int64
	// Role is the role serialized as JSON, as the backend stores it.
	Role     string
	Username string
}

// HasUser reports whether the session identifies a user.
func (s Session) HasUser() bool {
	return s.UserID > 0
}

// ParsedRole decodes Role. A malformed value yields the empty role and the
// parse error so callers can log it.
func (s Session) ParsedRole() (route.Role, error) {
	return route.ParseRole(s.Role)
}

// UserIDString returns the user id in decimal form.
func (s Session) UserIDString() string {
	return strconv.FormatInt(s.UserID, 10)
}

// Store loads and saves the session.
type Store interface {
	// Load returns the stored session or ErrNoUser.
	Load() (Session, error)
	// Save replaces the stored session.
	Save(s Session) error
	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear() error
}
