// Package identity knows who is calling and which themes they have unlocked.
// Users authenticate with an opaque bearer token; only its SHA-256 hash is
// stored.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/themestudio/internal/db"
)

var (
	// ErrUnauthorized is returned when a token does not belong to any user.
	ErrUnauthorized = errors.New("identity: unauthorized")
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("identity: user not found")
)

// User is an account that can edit themes.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists users and their unlocks.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateUser registers a user and returns it with a freshly issued token.
// The token is not recoverable afterwards.
func (s *Store) CreateUser(ctx context.Context, name, email string, admin bool) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	if name == "" {
		name = email
	}
	token, err := newToken()
	if err != nil {
		return nil, "", err
	}

	u := &User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		IsAdmin:   admin,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, is_admin, token_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, boolInt(admin), hashToken(token), db.Timestamp(u.CreatedAt))
	if err != nil {
		return nil, "", fmt.Errorf("inserting user: %w", err)
	}
	return u, token, nil
}

// RotateToken issues a new token for the user, invalidating the old one.
func (s *Store) RotateToken(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET token_hash = ? WHERE id = ?`, hashToken(token), userID)
	if err != nil {
		return "", fmt.Errorf("rotating token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user.
func (s *Store) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE token_hash = ?`, hashToken(token))
	u, err := scanUser(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return u, err
}

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

// ListUsers returns every user, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, is_admin, created_at FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Unlock records that the user has unlocked a theme. Unlocking twice is a
// no-op.
func (s *Store) Unlock(ctx context.Context, userID, themeID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_unlocks (user_id, theme_id, unlocked_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, theme_id) DO NOTHING`,
		userID, themeID, db.Timestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("unlocking theme: %w", err)
	}
	return nil
}

// HasUnlocked reports whether the user has unlocked the theme.
func (s *Store) HasUnlocked(ctx context.Context, userID, themeID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_unlocks WHERE user_id = ? AND theme_id = ?`, userID, themeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking unlock: %w", err)
	}
	return n > 0, nil
}

// Unlocked returns the ids of every theme the user has unlocked, in the
// order they were unlocked.
func (s *Store) Unlocked(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT theme_id FROM user_unlocks WHERE user_id = ? ORDER BY unlocked_at, theme_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unlocks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*User, error) {
	var (
		u     User
		admin int
		ts    string
	)
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &admin, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.IsAdmin = admin != 0
	u.CreatedAt = db.ParseTimestamp(ts)
	return &u, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return "ts_" + hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
