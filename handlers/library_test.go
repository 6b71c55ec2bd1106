package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"myvod/internal/database"
	"myvod/models"
)

type fakeLibraryStore struct {
	platforms []models.Platform

	added          []string
	removed        []string
	watched        []string
	gotPlatformIDs []int64
}

func (f *fakeLibraryStore) AddToWatchlist(ctx context.Context, userID, tconst string, now time.Time) error {
	if strings.TrimSpace(tconst) == "" {
		return database.ErrTconstRequired
	}
	f.added = append(f.added, tconst)
	return nil
}

func (f *fakeLibraryStore) RemoveFromWatchlist(ctx context.Context, userID, tconst string, now time.Time) error {
	if strings.TrimSpace(tconst) == "" {
		return database.ErrTconstRequired
	}
	f.removed = append(f.removed, tconst)
	return nil
}

func (f *fakeLibraryStore) MarkWatched(ctx context.Context, userID, tconst string, now time.Time) error {
	if strings.TrimSpace(tconst) == "" {
		return database.ErrTconstRequired
	}
	f.watched = append(f.watched, tconst)
	return nil
}

func (f *fakeLibraryStore) SetUserPlatforms(ctx context.Context, userID string, platformIDs []int64) error {
	f.gotPlatformIDs = platformIDs
	return nil
}

func (f *fakeLibraryStore) ListUserPlatforms(ctx context.Context, userID string) ([]models.Platform, error) {
	return f.platforms, nil
}

func TestAddToWatchlist(t *testing.T) {
	store := &fakeLibraryStore{}
	handler := NewLibraryHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader(`{"tconst":"tt0133093"}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.AddToWatchlist(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.added) != 1 || store.added[0] != "tt0133093" {
		t.Fatalf("watchlist add not recorded: %v", store.added)
	}
}

func TestAddToWatchlistBadPayload(t *testing.T) {
	handler := NewLibraryHandler(&fakeLibraryStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader("{"))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.AddToWatchlist(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddToWatchlistMissingTconst(t *testing.T) {
	handler := NewLibraryHandler(&fakeLibraryStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader(`{}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.AddToWatchlist(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRemoveFromWatchlist(t *testing.T) {
	store := &fakeLibraryStore{}
	handler := NewLibraryHandler(store)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchlist/tt0133093", nil)
	req.Header.Set("X-User-ID", "u1")
	req = mux.SetURLVars(req, map[string]string{"tconst": "tt0133093"})
	rec := httptest.NewRecorder()
	handler.RemoveFromWatchlist(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.removed) != 1 || store.removed[0] != "tt0133093" {
		t.Fatalf("watchlist removal not recorded: %v", store.removed)
	}
}

func TestMarkWatched(t *testing.T) {
	store := &fakeLibraryStore{}
	handler := NewLibraryHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/watched", strings.NewReader(`{"tconst":"tt0133093"}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.MarkWatched(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.watched) != 1 {
		t.Fatalf("watched mark not recorded: %v", store.watched)
	}
}

func TestSetPlatforms(t *testing.T) {
	store := &fakeLibraryStore{}
	handler := NewLibraryHandler(store)

	req := httptest.NewRequest(http.MethodPut, "/api/platforms", strings.NewReader(`{"platform_ids":[1,3]}`))
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.SetPlatforms(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.gotPlatformIDs) != 2 || store.gotPlatformIDs[1] != 3 {
		t.Fatalf("platform ids not forwarded: %v", store.gotPlatformIDs)
	}
}

func TestListPlatforms(t *testing.T) {
	store := &fakeLibraryStore{platforms: []models.Platform{
		{ID: 1, Slug: "netflix", Name: "Netflix"},
	}}
	handler := NewLibraryHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.ListPlatforms(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var platforms []models.Platform
	if err := json.Unmarshal(rec.Body.Bytes(), &platforms); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(platforms) != 1 || platforms[0].Slug != "netflix" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestListPlatformsEmptyIsArray(t *testing.T) {
	handler := NewLibraryHandler(&fakeLibraryStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	handler.ListPlatforms(rec, req)

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("empty list should encode as [], got %q", got)
	}
}

func TestLibraryEndpointsRequireUser(t *testing.T) {
	handler := NewLibraryHandler(&fakeLibraryStore{})

	endpoints := []struct {
		name string
		call func(w http.ResponseWriter, r *http.Request)
	}{
		{"add", handler.AddToWatchlist},
		{"remove", handler.RemoveFromWatchlist},
		{"watched", handler.MarkWatched},
		{"set platforms", handler.SetPlatforms},
		{"list platforms", handler.ListPlatforms},
	}

	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/anything", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			ep.call(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}
