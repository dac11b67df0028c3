// Package forks decides which version of a theme a user works on: their own
// fork when they have one, the catalog original otherwise.
package forks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

var (
	// ErrNotFound is returned when neither a fork nor an original exists.
	ErrNotFound = errors.New("forks: theme not found")
	// ErrForbidden is returned when a user may not open a theme.
	ErrForbidden = errors.New("forks: theme is locked")
)

// Source reads catalog themes and forks.
type Source interface {
	Get(ctx context.Context, id string) (*themes.Theme, error)
	GetFork(ctx context.Context, userID, themeID string) (*themes.Fork, error)
}

// UnlockChecker reports whether a user has unlocked a theme.
type UnlockChecker interface {
	HasUnlocked(ctx context.Context, userID, themeID string) (bool, error)
}

// Resolved is the version of a theme a user should see.
type Resolved struct {
	ThemeID     string `json:"theme_id"`
	Markup      string `json:"markup,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsFork      bool   `json:"is_fork"`
}

// Resolver implements fork resolution.
type Resolver struct {
	source  Source
	unlocks UnlockChecker
}

// NewResolver creates a Resolver. unlocks may be nil, in which case Allowed
// admits only administrators and fork owners.
func NewResolver(source Source, unlocks UnlockChecker) *Resolver {
	return &Resolver{source: source, unlocks: unlocks}
}

// Resolve returns the user's fork of the theme if one exists, else the
// original.
func (r *Resolver) Resolve(ctx context.Context, userID, themeID string) (*Resolved, error) {
	if userID != "" {
		fork, err := r.source.GetFork(ctx, userID, themeID)
		switch {
		case err == nil:
			return &Resolved{
				ThemeID:     themeID,
				Markup:      fork.Markup,
				Title:       fork.Title,
				Description: fork.Description,
				IsFork:      true,
			}, nil
		case !errors.Is(err, themes.ErrNotFound):
			return nil, fmt.Errorf("loading fork: %w", err)
		}
	}

	orig, err := r.source.Get(ctx, themeID)
	if errors.Is(err, themes.ErrNotFound) {
		return nil, fmt.Errorf("theme %q: %w", themeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading theme: %w", err)
	}
	return &Resolved{
		ThemeID:     orig.ID,
		Markup:      orig.Markup,
		Title:       orig.Title,
		Description: orig.Description,
	}, nil
}

// Allowed reports whether u may open the theme in the editor: administrators
// always may, other users once they have unlocked it or already own a fork.
func (r *Resolver) Allowed(ctx context.Context, u *identity.User, themeID string) (bool, error) {
	if u == nil {
		return false, nil
	}
	if u.IsAdmin {
		return true, nil
	}
	if r.unlocks != nil {
		ok, err := r.unlocks.HasUnlocked(ctx, u.ID, themeID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	_, err := r.source.GetFork(ctx, u.ID, themeID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, themes.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Open checks Allowed and then resolves the theme.
func (r *Resolver) Open(ctx context.Context, u *identity.User, themeID string) (*Resolved, error) {
	ok, err := r.Allowed(ctx, u, themeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := r.Resolve(ctx, "", themeID); errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("theme %q: %w", themeID, ErrForbidden)
	}
	return r.Resolve(ctx, u.ID, themeID)
}

// Library resolves each theme id with fork preference, skipping themes that
// no longer exist. Order follows themeIDs.
func (r *Resolver) Library(ctx context.Context, userID string, themeIDs []string) ([]Resolved, error) {
	out := make([]Resolved, 0, len(themeIDs))
	for _, id := range themeIDs {
		res, err := r.Resolve(ctx, userID, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}
