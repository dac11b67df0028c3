package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry{
		ID:        "a-1",
		Timestamp: ts,
		ActorID:   "alice",
		Action:    ActionForkCreated,
		ThemeID:   "t1",
		Summary:   "Saved Neon Shop to library",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActorID != "alice" || got.Action != ActionForkCreated || got.ThemeID != "t1" {
		t.Errorf("got %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestLogFillsDefaults(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.Record(ctx, "", ActionThemeImported, "t1", "")

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" || e.ActorID != SystemActor || e.Timestamp.IsZero() {
		t.Errorf("defaults not filled: %+v", e)
	}
}

func TestRecordOnNilStore(t *testing.T) {
	var store *Store
	store.Record(context.Background(), "u", ActionExported, "t", "")
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []Entry{
		{ID: "1", Timestamp: base, ActorID: "alice", Action: ActionForkCreated, ThemeID: "t1"},
		{ID: "2", Timestamp: base.Add(time.Hour), ActorID: "alice", Action: ActionForkUpdated, ThemeID: "t1"},
		{ID: "3", Timestamp: base.Add(2 * time.Hour), ActorID: "bob", Action: ActionForkCreated, ThemeID: "t2"},
		{ID: "4", Timestamp: base.Add(3 * time.Hour), ActorID: "admin", Action: ActionThemeDeleted, ThemeID: "t3"},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	since := base.Add(90 * time.Minute)
	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"4", "3", "2", "1"}},
		{"by actor", QueryFilter{ActorID: "alice"}, []string{"2", "1"}},
		{"by theme", QueryFilter{ThemeID: "t2"}, []string{"3"}},
		{"by action", QueryFilter{Action: ActionForkCreated}, []string{"3", "1"}},
		{"since", QueryFilter{Since: &since}, []string{"4", "3"}},
		{"limit offset", QueryFilter{Limit: 2, Offset: 1}, []string{"3", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var ids []string
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	store.Log(ctx, Entry{ID: "old", Timestamp: old, Action: ActionExported})
	store.Log(ctx, Entry{ID: "new", Action: ActionExported})

	n, err := store.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, err := store.GetByID(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old entry err = %v", err)
	}
}

func TestHTTPRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	store.Log(ctx, Entry{ID: "x", ActorID: "alice", Action: ActionForkUpdated, ThemeID: "t1"})
	store.Log(ctx, Entry{ID: "y", ActorID: "bob", Action: ActionForkUpdated, ThemeID: "t2"})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/audit/?actor=bob", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entries []Entry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].ID != "y" {
		t.Errorf("entries = %+v", entries)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", w.Code)
	}
}
