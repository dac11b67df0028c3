package themes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/markup"
)

// maxThemeBody bounds the size of an uploaded theme.
const maxThemeBody = 4 << 20

// RegisterRoutes mounts the catalog endpoints. Listing and reading are
// public; creating and deleting require an administrator. auditLog may be
// nil.
func RegisterRoutes(r chi.Router, store *Store, auditLog *audit.Store) {
	r.Route("/api/themes", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.With(identity.RequireAdmin).Post("/", handleCreate(store, auditLog))
		r.With(identity.RequireAdmin).Delete("/{id}", handleDelete(store, auditLog))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]Theme, 0, len(list))
		for _, t := range list {
			t.Markup = ""
			out = append(out, t)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "theme not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Markup      string `json:"markup"`
}

func handleCreate(store *Store, auditLog *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxThemeBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Title == "" || req.Markup == "" {
			writeError(w, http.StatusBadRequest, "title and markup are required")
			return
		}

		u, _ := identity.FromContext(r.Context())
		author := req.Author
		if author == "" {
			author = u.Name
		}
		t, err := store.Create(r.Context(), Theme{
			Title:       req.Title,
			Description: req.Description,
			Author:      author,
			Markup:      markup.Sanitize(req.Markup),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		auditLog.Record(r.Context(), u.ID, audit.ActionThemeCreated, t.ID, t.Title)
		writeJSON(w, http.StatusCreated, t)
	}
}

func handleDelete(store *Store, auditLog *audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := store.Delete(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "theme not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		u, _ := identity.FromContext(r.Context())
		auditLog.Record(r.Context(), u.ID, audit.ActionThemeDeleted, id, "")
		w.WriteHeader(http.StatusNoContent)
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
