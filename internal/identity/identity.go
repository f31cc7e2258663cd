// Package identity talks to the external identity provider and holds the
// signed-in session of one client instance.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoSession         = errors.New("no active session")
	ErrEmailAlreadyInUse = errors.New("email already in use")
	ErrWeakPassword      = errors.New("password is too weak")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
	ErrUserDisabled      = errors.New("user account is disabled")
	ErrTooManyAttempts   = errors.New("too many attempts, try again later")
	ErrSessionExpired    = errors.New("session expired, sign in again")
	ErrPopupClosed       = errors.New("sign-in popup closed by user")
	ErrInvalidToken      = errors.New("identity token rejected")
)

// User is the identity provider's view of an account.
type User struct {
	Subject       string `json:"subject"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoUrl,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// Session is a signed-in identity with its tokens.
type Session struct {
	User         User      `json:"user"`
	ProviderID   string    `json:"providerId"`
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// tokenSkew refreshes tokens slightly before the provider would reject them.
const tokenSkew = time.Minute

// Expired reports whether the ID token should be refreshed before use.
func (s *Session) Expired(now time.Time) bool {
	return !now.Add(tokenSkew).Before(s.ExpiresAt)
}

// Credential is the outcome of a completed OAuth consent, exchanged with the
// identity provider for a session.
type Credential struct {
	ProviderID  string
	IDToken     string
	AccessToken string
}

// Provider is the remote identity service.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithCredential(ctx context.Context, cred Credential) (*Session, error)
	Refresh(ctx context.Context, session *Session) (*Session, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// ProviderError is an error reported by the identity provider. Kind holds
// the matching sentinel when the code is known.
type ProviderError struct {
	Code    string
	Message string
	Kind    error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity provider error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider error %s", e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// Code returns the provider error code carried by err, or "".
func Code(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
