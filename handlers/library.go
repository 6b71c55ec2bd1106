package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"myvod/internal/database"
	"myvod/models"
)

type libraryStore interface {
	AddToWatchlist(ctx context.Context, userID, tconst string, now time.Time) error
	RemoveFromWatchlist(ctx context.Context, userID, tconst string, now time.Time) error
	MarkWatched(ctx context.Context, userID, tconst string, now time.Time) error
	SetUserPlatforms(ctx context.Context, userID string, platformIDs []int64) error
	ListUserPlatforms(ctx context.Context, userID string) ([]models.Platform, error)
}

var _ libraryStore = (*database.Store)(nil)

// LibraryHandler exposes the watchlist, watched-history and platform
// subscription mutations the suggestion engine feeds from. Identity is
// resolved upstream; the user id arrives as a header.
type LibraryHandler struct {
	Store libraryStore
}

func NewLibraryHandler(store libraryStore) *LibraryHandler {
	return &LibraryHandler{Store: store}
}

type tconstPayload struct {
	Tconst string `json:"tconst"`
}

// AddToWatchlist handles POST /api/watchlist.
func (h *LibraryHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload tconstPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.AddToWatchlist(r.Context(), userID, payload.Tconst, time.Now()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFromWatchlist handles DELETE /api/watchlist/{tconst}. The entry is
// soft-deleted; a watched timestamp on the same record survives.
func (h *LibraryHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	tconst := strings.TrimSpace(mux.Vars(r)["tconst"])
	if err := h.Store.RemoveFromWatchlist(r.Context(), userID, tconst, time.Now()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkWatched handles POST /api/watched.
func (h *LibraryHandler) MarkWatched(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload tconstPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.MarkWatched(r.Context(), userID, payload.Tconst, time.Now()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPlatforms handles PUT /api/platforms, replacing the user's subscriptions.
func (h *LibraryHandler) SetPlatforms(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		PlatformIDs []int64 `json:"platform_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.SetUserPlatforms(r.Context(), userID, payload.PlatformIDs); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPlatforms handles GET /api/platforms.
func (h *LibraryHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	platforms, err := h.Store.ListUserPlatforms(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if platforms == nil {
		platforms = []models.Platform{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(platforms)
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrUserIDRequired):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrTconstRequired):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
