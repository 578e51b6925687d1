// Package session holds the client-side credential and the guard that admits
// or rejects protected navigation based on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clouddrive/drive/internal/constants"
	"github.com/clouddrive/drive/internal/models"
)

var (
	// ErrAuthExpired is the terminal session error: the stored credential is
	// missing or past its expiry. The caller must log in again.
	ErrAuthExpired = errors.New("session expired")

	// ErrCorruptSession is returned by Store.Read when the stored expiry is not
	// an integer millisecond timestamp.
	ErrCorruptSession = errors.New("stored session is corrupt")

	// ErrEmptyToken is returned by Login when the server answered without a token.
	ErrEmptyToken = errors.New("login response carried no token")
)

// Session is a bearer token and the absolute instant it stops being honored.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the session admits navigation at now.
// The expiry instant itself is already invalid.
func (s Session) ValidAt(now time.Time) bool {
	return s.Token != "" && now.Before(s.ExpiresAt)
}

// NewSession builds the session for a fresh login: seven days with
// remember-me, thirty minutes otherwise. A JWT exp claim earlier than that
// caps the expiry.
func NewSession(token string, remember bool, now time.Time) Session {
	ttl := constants.DefaultSessionTTL
	if remember {
		ttl = constants.RememberMeTTL
	}
	expires := now.Add(ttl)

	if exp, ok := tokenExpiry(token); ok && exp.Before(expires) {
		expires = exp
	}
	return Session{Token: token, ExpiresAt: expires}
}

// tokenExpiry extracts the exp claim. The signature is not verified.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Backend persists the raw session record. Token and expiry are written and
// cleared together.
type Backend interface {
	LoadSession() (token, expiry string, err error)
	SaveSession(token string, expiryMillis int64) error
	ClearSession() error
}

// Store reads and writes the session through a Backend.
type Store struct {
	backend Backend
}

// NewStore creates a Store over backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Read returns the stored session, or nil when none is stored.
// A record whose expiry is not an integer returns ErrCorruptSession.
func (s *Store) Read() (*Session, error) {
	token, rawExpiry, err := s.backend.LoadSession()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if token == "" {
		return nil, nil
	}

	millis, err := strconv.ParseInt(strings.TrimSpace(rawExpiry), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry %q", ErrCorruptSession, rawExpiry)
	}
	return &Session{Token: token, ExpiresAt: time.UnixMilli(millis)}, nil
}

// Write persists sess, expiry as integer milliseconds.
func (s *Store) Write(sess Session) error {
	if err := s.backend.SaveSession(sess.Token, sess.ExpiresAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the whole session record.
func (s *Store) Clear() error {
	if err := s.backend.ClearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token implements the API client's token source.
// Returns "" without error when nothing usable is stored.
func (s *Store) Token() (string, error) {
	sess, err := s.Read()
	if err != nil {
		if errors.Is(err, ErrCorruptSession) {
			return "", nil
		}
		return "", err
	}
	if sess == nil {
		return "", nil
	}
	return sess.Token, nil
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
}

// Login authenticates and persists the resulting session.
func (s *Store) Login(ctx context.Context, auth Authenticator, email, password string, remember bool, now time.Time) (Session, error) {
	resp, err := auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	if resp == nil || resp.Token == "" {
		return Session{}, ErrEmptyToken
	}

	sess := NewSession(resp.Token, remember, now)
	if err := s.Write(sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Logout clears the session record.
func (s *Store) Logout() error {
	return s.Clear()
}
