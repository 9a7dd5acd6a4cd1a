// Package session keeps the panel's single login session.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// TokenBytes is the number of random bytes behind a token. Tokens are rendered
// as lowercase hex, so they are twice as long.
const TokenBytes = 64

// ErrTokenGeneration is returned by Issue when the random source fails.
var ErrTokenGeneration = errors.New("session: token generation failed")

// Session is the single active credential.
type Session struct {
	Token    string
	IssuedAt time.Time
}

// IssuedUnix returns the issue time in seconds since the epoch.
func (s Session) IssuedUnix() int64 {
	return s.IssuedAt.Unix()
}

// Store holds at most one session. Issuing a new session replaces the previous
// one, so the last successful login wins.
type Store struct {
	mu      sync.Mutex
	current *Session
	ttl     time.Duration
	now     func() time.Time
	random  io.Reader
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom overrides the random source used for tokens.
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.random = r }
}

// NewStore creates an empty store. Sessions expire ttl after they were issued;
// a ttl of 0 disables expiry.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		ttl:    ttl,
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh session and makes it the only valid one.
func (s *Store) Issue() (Session, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	sess := Session{
		Token:    hex.EncodeToString(buf),
		IssuedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sess
	return sess, nil
}

// Current returns the active session, if there is one and it has not expired.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.expiredLocked() {
		return Session{}, false
	}
	return *s.current, true
}

// Validate reports whether token is the active session's token.
func (s *Store) Validate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.expiredLocked() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.current.Token), []byte(token)) == 1
}

// ExpireStale drops the active session if it has expired and reports whether
// it did so.
func (s *Store) ExpireStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.expiredLocked() {
		return false
	}
	s.current = nil
	return true
}

func (s *Store) expiredLocked() bool {
	return s.ttl > 0 && s.now().Sub(s.current.IssuedAt) > s.ttl
}
