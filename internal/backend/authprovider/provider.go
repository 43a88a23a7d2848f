// Package authprovider is the authentication-provider contract consumed by the
// identity gateway, with a self-hosted backend (accounts in the document store,
// bcrypt hashes, HS256 ID tokens) and a client for the hosted identity toolkit
// REST API.
package authprovider

import (
	"context"
	"errors"
	"sync"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

// Provider error codes. Callers translate these into user-facing text.
const (
	CodeInvalidEmail         = "auth/invalid-email"
	CodeUserDisabled         = "auth/user-disabled"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeWeakPassword         = "auth/weak-password"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeInternalError        = "auth/internal-error"
)

// MinPasswordLength is the shortest password accepted on account creation.
const MinPasswordLength = 6

// User is the identity a provider hands back after a credential operation.
type User struct {
	UID         string
	Email       string
	DisplayName string
	IDToken     string
}

// Provider issues and verifies credentials.
//
// Every request-scoped operation acts on the credentials it is handed. The
// cached session behind CurrentUser only mirrors the last sign-in of this
// process and never authorizes anything.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	CreateAccount(ctx context.Context, email, password string) (User, error)
	// UpdateDisplayName renames account, authorizing with its own ID token.
	UpdateDisplayName(ctx context.Context, account User, name string) error
	// SignOut revokes idToken so VerifyIDToken rejects it from then on. An
	// empty idToken only clears the cached session.
	SignOut(ctx context.Context, idToken string) error
	// CurrentUser reads the cached session and never performs I/O.
	CurrentUser() (User, bool)
	VerifyIDToken(ctx context.Context, token string) (User, error)
}

// Error is a provider failure identified by a string code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the provider code from err, or "" when err is not a provider error.
func CodeOf(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}

// session caches the signed-in user of a provider instance.
type session struct {
	mu      sync.RWMutex
	current *User
}

func (s *session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

func (s *session) remember(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &u
}

func (s *session) forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// forgetToken clears the cached session when it holds token.
func (s *session) forgetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.IDToken == token {
		s.current = nil
	}
}

func (s *session) renamed(uid, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.UID == uid {
		s.current.DisplayName = name
	}
}
