// Package session persists the signed-in user's bearer token and the
// remembered login email in the local database.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/db"
)

const (
	keyAccessToken     = "access_token"
	keyRememberedEmail = "remembered_email"
)

// Store reads and writes session values. Reads are served from memory after
// the first load.
type Store struct {
	db *db.DB

	mu     sync.RWMutex
	loaded bool
	cache  map[string]string
}

// NewStore creates a Store over d.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, cache: make(map[string]string)}
}

// Token returns the stored bearer token, or "" when signed out. It
// satisfies backend.TokenSource.
func (s *Store) Token() string {
	v, err := s.get(keyAccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("session: reading token")
		return ""
	}
	return v
}

// SetToken stores the bearer token returned by a successful login.
func (s *Store) SetToken(token string) error {
	if token == "" {
		return s.del(keyAccessToken)
	}
	return s.set(keyAccessToken, token)
}

// Clear drops the bearer token. The remembered email survives.
func (s *Store) Clear() error {
	return s.del(keyAccessToken)
}

// Invalidate clears the session after the backend rejected the token.
func (s *Store) Invalidate() {
	if err := s.Clear(); err != nil {
		log.Error().Err(err).Msg("session: clearing rejected token")
		return
	}
	log.Info().Msg("session expired, token cleared")
}

// SignedIn reports whether a token is stored.
func (s *Store) SignedIn() bool { return s.Token() != "" }

// RememberEmail stores the email to pre-fill the next login.
func (s *Store) RememberEmail(email string) error {
	return s.set(keyRememberedEmail, email)
}

// ForgetEmail removes the remembered email.
func (s *Store) ForgetEmail() error {
	return s.del(keyRememberedEmail)
}

// RememberedEmail returns the remembered email, or "".
func (s *Store) RememberedEmail() string {
	v, err := s.get(keyRememberedEmail)
	if err != nil {
		log.Warn().Err(err).Msg("session: reading remembered email")
		return ""
	}
	return v
}

func (s *Store) get(key string) (string, error) {
	if err := s.load(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key], nil
}

func (s *Store) load() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	rows, err := s.db.QueryContext(context.Background(), `SELECT key, value FROM kv`)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scanning session value: %w", err)
		}
		s.cache[k] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *Store) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	s.cache[key] = value
	return nil
}

func (s *Store) del(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	delete(s.cache, key)
	return nil
}
