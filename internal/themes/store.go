package themes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/themestudio/internal/db"
)

// Store provides CRUD operations for themes and forks.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const themeColumns = "id, title, description, author, markup, downloads, created_at"

// List returns every catalog theme, newest first.
func (s *Store) List(ctx context.Context) ([]Theme, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+themeColumns+" FROM themes ORDER BY created_at DESC, title")
	if err != nil {
		return nil, fmt.Errorf("listing themes: %w", err)
	}
	defer rows.Close()

	var out []Theme
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Get returns a catalog theme by id.
func (s *Store) Get(ctx context.Context, id string) (*Theme, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+themeColumns+" FROM themes WHERE id = ?", id)
	return scanTheme(row)
}

// Create inserts a catalog theme. An empty ID is replaced with a UUID.
func (s *Store) Create(ctx context.Context, t Theme) (*Theme, error) {
	if t.Title == "" {
		return nil, fmt.Errorf("theme title is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.CreatedAt = t.CreatedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO themes (id, title, description, author, markup, downloads, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Author, t.Markup, t.Downloads, db.Timestamp(t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting theme: %w", err)
	}
	return &t, nil
}

// Delete removes a catalog theme. Forks users made of it are kept.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM themes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting theme: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementDownloads bumps the download counter of a catalog theme.
func (s *Store) IncrementDownloads(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE themes SET downloads = downloads + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("counting download: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const forkColumns = "id, user_id, original_theme_id, title, description, markup, created_at, updated_at"

// GetFork returns the user's fork of a theme.
func (s *Store) GetFork(ctx context.Context, userID, themeID string) (*Fork, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+forkColumns+" FROM user_themes WHERE user_id = ? AND original_theme_id = ?",
		userID, themeID)
	return scanFork(row)
}

// ListForks returns every fork the user owns, most recently edited first.
func (s *Store) ListForks(ctx context.Context, userID string) ([]Fork, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+forkColumns+" FROM user_themes WHERE user_id = ? ORDER BY updated_at DESC, id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing forks: %w", err)
	}
	defer rows.Close()

	var out []Fork
	for rows.Next() {
		f, err := scanFork(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// UpsertFork stores markup as the user's fork of a theme. The first write
// creates the fork with the given title and description; later writes only
// replace the markup. created reports which of the two happened.
func (s *Store) UpsertFork(ctx context.Context, userID, themeID, markup, title, description string) (fork *Fork, created bool, err error) {
	now := db.Timestamp(time.Now())
	newID := uuid.New().String()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO user_themes (id, user_id, original_theme_id, title, description, markup, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, original_theme_id) DO UPDATE SET
			markup = excluded.markup,
			updated_at = excluded.updated_at
		RETURNING `+forkColumns,
		newID, userID, themeID, title, description, markup, now, now)
	fork, err = scanFork(row)
	if err != nil {
		return nil, false, fmt.Errorf("upserting fork: %w", err)
	}
	return fork, fork.ID == newID, nil
}

// DeleteFork removes the user's fork of a theme.
func (s *Store) DeleteFork(ctx context.Context, userID, themeID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM user_themes WHERE user_id = ? AND original_theme_id = ?", userID, themeID)
	if err != nil {
		return fmt.Errorf("deleting fork: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTheme(sc scanner) (*Theme, error) {
	var (
		t  Theme
		ts string
	)
	err := sc.Scan(&t.ID, &t.Title, &t.Description, &t.Author, &t.Markup, &t.Downloads, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning theme: %w", err)
	}
	t.CreatedAt = db.ParseTimestamp(ts)
	return &t, nil
}

func scanFork(sc scanner) (*Fork, error) {
	var (
		f                  Fork
		created, updated string
	)
	err := sc.Scan(&f.ID, &f.UserID, &f.OriginalThemeID, &f.Title, &f.Description, &f.Markup, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning fork: %w", err)
	}
	f.CreatedAt = db.ParseTimestamp(created)
	f.UpdatedAt = db.ParseTimestamp(updated)
	return &f, nil
}
