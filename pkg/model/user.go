// Package model defines the core domain types for Dardasha.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum password length accepted at registration.
const MinPasswordLength = 6

var ErrUsernameEmpty = errors.New("username must not be empty")
var ErrEmailEmpty = errors.New("email must not be empty")
var ErrPasswordEmpty = errors.New("password must not be empty")
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

// User represents a chat counterpart as the server reports it.
// Read-only on this side; the server owns every field.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	ProfilePic string    `json:"profile_pic,omitempty"`
	IsOnline   bool      `json:"is_online"`
	LastSeen   Timestamp `json:"last_seen,omitempty"`
}

// DisplayName returns the full name when the user set one, else the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

// ValidateRegistration checks the registration form before any network call.
// Returns nil on success or the first violated rule as a sentinel error.
func ValidateRegistration(username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameEmpty
	}
	if strings.TrimSpace(email) == "" {
		return ErrEmailEmpty
	}
	if password == "" {
		return ErrPasswordEmpty
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Session is the locally held identity: an opaque token plus the display name.
// It lives for the duration of the installation, not a single run.
type Session struct {
	Token    string
	Username string
}

// UserID derives the numeric local identity from the token. The server hands
// out the user id as the token, so an unparsable token yields 0 and every
// message classifies as received.
func (s Session) UserID() int64 {
	id, err := strconv.ParseInt(s.Token, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
