// Package themes persists catalog themes and the per-user forks made of them
// in the editor.
package themes

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a theme or fork does not exist.
var ErrNotFound = errors.New("themes: not found")

// Theme is an original catalog theme.
type Theme struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Markup      string    `json:"markup,omitempty"`
	Downloads   int       `json:"downloads"`
	CreatedAt   time.Time `json:"created_at"`
}

// Fork is a user's edited copy of a catalog theme. There is at most one per
// (user, original theme) pair.
type Fork struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	OriginalThemeID string    `json:"original_theme_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Markup          string    `json:"markup,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
