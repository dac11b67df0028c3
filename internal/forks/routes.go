package forks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// RegisterRoutes mounts the caller's library under /api/me/themes.
func RegisterRoutes(r chi.Router, resolver *Resolver, users *identity.Store, store *themes.Store, auditLog *audit.Store) {
	r.Route("/api/me/themes", func(r chi.Router) {
		r.Use(identity.RequireUser)
		r.Get("/", handleLibrary(resolver, users, store))
		r.Get("/{id}/download", handleDownload(resolver, store, auditLog))
	})
}

func handleLibrary(resolver *Resolver, users *identity.Store, store *themes.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := identity.FromContext(r.Context())
		ids, err := LibraryIDs(r.Context(), u.ID, users, store)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		lib, err := resolver.Library(r.Context(), u.ID, ids)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for i := range lib {
			lib[i].Markup = ""
		}
		writeJSON(w, http.StatusOK, lib)
	}
}

// LibraryIDs lists the themes in a user's library: everything unlocked, in
// unlock order, followed by any other theme the user has forked.
func LibraryIDs(ctx context.Context, userID string, users *identity.Store, store *themes.Store) ([]string, error) {
	ids, err := users.Unlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	forked, err := store.ListForks(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, f := range forked {
		if !seen[f.OriginalThemeID] {
			seen[f.OriginalThemeID] = true
			ids = append(ids, f.OriginalThemeID)
		}
	}
	return ids, nil
}

func handleDownload(resolver *Resolver, store *themes.Store, auditLog *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := identity.FromContext(r.Context())
		id := chi.URLParam(r, "id")

		res, err := resolver.Open(r.Context(), u, id)
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "theme not found")
			return
		case errors.Is(err, ErrForbidden):
			writeError(w, http.StatusForbidden, "theme is locked")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if err := store.IncrementDownloads(r.Context(), id); err != nil && !errors.Is(err, themes.ErrNotFound) {
			log.Printf("forks: counting download of %s: %v", id, err)
		}
		auditLog.Record(r.Context(), u.ID, audit.ActionExported, id, res.Title)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", markup.ExportFilename(res.Title)))
		w.Write([]byte(markup.Sanitize(res.Markup)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
