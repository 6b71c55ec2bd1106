package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"myvod/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	suggestionsHandler *handlers.SuggestionsHandler,
	libraryHandler *handlers.LibraryHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	api.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api.HandleFunc("/suggestions", suggestionsHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/watchlist", libraryHandler.AddToWatchlist).Methods(http.MethodPost)
	api.HandleFunc("/watchlist/{tconst}", libraryHandler.RemoveFromWatchlist).Methods(http.MethodDelete)
	api.HandleFunc("/watched", libraryHandler.MarkWatched).Methods(http.MethodPost)
	api.HandleFunc("/platforms", libraryHandler.SetPlatforms).Methods(http.MethodPut)
	api.HandleFunc("/platforms", libraryHandler.ListPlatforms).Methods(http.MethodGet)
}
