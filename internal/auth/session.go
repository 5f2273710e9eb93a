package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gallery/internal/database"
	"gallery/internal/profile"

	"github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultSessionExpiresIn = 7 * 24 * time.Hour
	DefaultSessionUpdateAge = 24 * time.Hour

	tokenBytes = 32
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrSessionNotFound    = errors.New("auth: session not found")
)

// Session is a stored login. The token is the bearer secret; the id is safe
// to show to clients.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionConfig controls session lifetime. A session is valid for ExpiresIn;
// once it is older than UpdateAge a successful lookup extends it by a fresh
// ExpiresIn.
type SessionConfig struct {
	ExpiresIn time.Duration
	UpdateAge time.Duration
	Now       func() time.Time
}

// SessionStore keeps accounts and sessions in the same database as the
// profiles they belong to.
type SessionStore struct {
	db  *sql.DB
	cfg SessionConfig
}

// NewSessionStore creates a SessionStore, filling unset config fields with
// defaults.
func NewSessionStore(db *sql.DB, cfg SessionConfig) *SessionStore {
	if cfg.ExpiresIn <= 0 {
		cfg.ExpiresIn = DefaultSessionExpiresIn
	}
	if cfg.UpdateAge <= 0 {
		cfg.UpdateAge = DefaultSessionUpdateAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionStore{db: db, cfg: cfg}
}

// ExpiresIn returns the configured session lifetime.
func (s *SessionStore) ExpiresIn() time.Duration {
	return s.cfg.ExpiresIn
}

// CreateUser registers a profile together with its password account.
func (s *SessionStore) CreateUser(ctx context.Context, name, email, password string) (*profile.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.cfg.Now().UTC()
	u := &profile.User{
		ID:        ulid.Make().String(),
		Name:      name,
		Email:     normalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := profile.InsertUser(ctx, tx, u); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO account(user_id, password_hash, created_at, updated_at) VALUES(?, ?, ?, ?)`,
			u.ID, string(hash), now, now,
		)
		return err
	})
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	return u, nil
}

// VerifyPassword returns the id of the user owning email if password
// matches, or ErrInvalidCredentials.
func (s *SessionStore) VerifyPassword(ctx context.Context, email, password string) (string, error) {
	var userID, hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT a.user_id, a.password_hash FROM account a JOIN user u ON u.id = a.user_id WHERE u.email = ?`,
		normalizeEmail(email),
	).Scan(&userID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return userID, nil
}

// CreateSession starts a new session for userID.
func (s *SessionStore) CreateSession(ctx context.Context, userID, ipAddress, userAgent string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now().UTC()
	sess := &Session{
		ID:        ulid.Make().String(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.cfg.ExpiresIn),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session(id, token, user_id, expires_at, ip_address, user_agent, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Token, sess.UserID, sess.ExpiresAt, sess.IPAddress, sess.UserAgent, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Lookup returns the live session for token. Expired sessions are removed
// and reported as ErrSessionNotFound. Sessions older than the update age are
// extended.
func (s *SessionStore) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, expires_at, ip_address, user_agent, created_at, updated_at FROM session WHERE token = ?`,
		token,
	).Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.IPAddress, &sess.UserAgent, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	now := s.cfg.Now().UTC()
	if !now.Before(sess.ExpiresAt) {
		if err := s.DeleteSession(ctx, token); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	if now.Sub(sess.UpdatedAt) >= s.cfg.UpdateAge {
		sess.ExpiresAt = now.Add(s.cfg.ExpiresIn)
		sess.UpdatedAt = now
		if _, err := s.db.ExecContext(ctx,
			`UPDATE session SET expires_at = ?, updated_at = ? WHERE id = ?`,
			sess.ExpiresAt, sess.UpdatedAt, sess.ID,
		); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
	}

	return &sess, nil
}

// DeleteSession removes the session for token, if any.
func (s *SessionStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SessionAuthEngine authenticates requests carrying a stored session token.
type SessionAuthEngine struct {
	store *SessionStore
}

// NewSessionAuthEngine creates a SessionAuthEngine backed by store.
func NewSessionAuthEngine(store *SessionStore) *SessionAuthEngine {
	return &SessionAuthEngine{store: store}
}

// AuthenticateRequest resolves the session token from the bearer header or
// the session cookie.
func (e *SessionAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	token := sessionToken(r)
	if token == "" {
		return nil, nil
	}

	sess, err := e.store.Lookup(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &User{ID: sess.UserID, SessionID: sess.ID}, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
