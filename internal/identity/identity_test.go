package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/themestudio/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCreateAndAuthenticate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	u, token, err := store.CreateUser(ctx, "Ada", " Ada@Example.com ", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("Email = %q", u.Email)
	}

	got, err := store.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID || got.IsAdmin {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, u.CreatedAt)
	}

	if _, err := store.Authenticate(ctx, "ts_wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("bad token err = %v", err)
	}
	if _, err := store.Authenticate(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("empty token err = %v", err)
	}
}

func TestTokenIsNotStored(t *testing.T) {
	store := setupStore(t)
	_, token, err := store.CreateUser(context.Background(), "", "a@b.c", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	var n int
	store.db.QueryRow(`SELECT COUNT(*) FROM users WHERE token_hash = ?`, token).Scan(&n)
	if n != 0 {
		t.Error("raw token found in the database")
	}
}

func TestRotateToken(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	u, old, _ := store.CreateUser(ctx, "", "a@b.c", false)

	fresh, err := store.RotateToken(ctx, u.ID)
	if err != nil {
		t.Fatalf("RotateToken: %v", err)
	}
	if _, err := store.Authenticate(ctx, old); !errors.Is(err, ErrUnauthorized) {
		t.Error("old token still works")
	}
	if _, err := store.Authenticate(ctx, fresh); err != nil {
		t.Errorf("new token: %v", err)
	}
	if _, err := store.RotateToken(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.CreateUser(ctx, "", "a@b.c", false)
	if _, _, err := store.CreateUser(ctx, "", "A@B.C", false); err == nil {
		t.Error("expected duplicate email to fail")
	}
}

func TestUnlocks(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	u, _, _ := store.CreateUser(ctx, "", "a@b.c", false)

	if ok, _ := store.HasUnlocked(ctx, u.ID, "t1"); ok {
		t.Error("nothing should be unlocked yet")
	}
	for _, id := range []string{"t1", "t2", "t1"} {
		if err := store.Unlock(ctx, u.ID, id); err != nil {
			t.Fatalf("Unlock(%s): %v", id, err)
		}
	}
	if ok, _ := store.HasUnlocked(ctx, u.ID, "t1"); !ok {
		t.Error("t1 should be unlocked")
	}
	ids, err := store.Unlocked(ctx, u.ID)
	if err != nil {
		t.Fatalf("Unlocked: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("unlocked = %v, want 2 ids", ids)
	}
}

func TestMiddleware(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	u, token, _ := store.CreateUser(ctx, "Ada", "ada@example.com", true)
	store.Unlock(ctx, u.ID, "t1")

	r := chi.NewRouter()
	r.Use(Middleware(store))
	RegisterRoutes(r, store)
	r.With(RequireAdmin).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"anonymous me", "/api/me", "", http.StatusUnauthorized},
		{"bearer me", "/api/me", "Bearer " + token, http.StatusOK},
		{"query token", "/api/me?token=" + token, "", http.StatusOK},
		{"bad token", "/api/me", "Bearer nope", http.StatusUnauthorized},
		{"admin", "/admin", "Bearer " + token, http.StatusNoContent},
		{"admin anonymous", "/admin", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body struct {
		User     User     `json:"user"`
		Unlocked []string `json:"unlocked"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.User.ID != u.ID || len(body.Unlocked) != 1 || body.Unlocked[0] != "t1" {
		t.Errorf("body = %+v", body)
	}
}

func TestRequireAdminForbidsUsers(t *testing.T) {
	store := setupStore(t)
	u, _, _ := store.CreateUser(context.Background(), "", "a@b.c", false)

	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), u))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
