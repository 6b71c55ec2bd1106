package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"myvod/models"
	"myvod/services/suggestions"
)

// userIDHeader carries the authenticated user id resolved by the identity
// layer in front of this service.
const userIDHeader = "X-User-ID"

type suggestionService interface {
	GetOrGenerate(ctx context.Context, userID string, bypassCache bool) (models.SuggestionResult, error)
}

var _ suggestionService = (*suggestions.Service)(nil)

// SuggestionsHandler serves the AI suggestions endpoint.
type SuggestionsHandler struct {
	Service suggestionService
}

func NewSuggestionsHandler(service suggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{Service: service}
}

// Get handles GET /api/suggestions. The refresh query parameter bypasses the
// daily cache and forces a fresh generation.
func (h *SuggestionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	result, err := h.Service.GetOrGenerate(r.Context(), userID, refresh)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, suggestions.ErrNoHistory):
			status = http.StatusNotFound
			err = errors.New("add movies to your watchlist or mark movies as watched before requesting suggestions")
		case errors.Is(err, suggestions.ErrNoPlatforms):
			status = http.StatusNotFound
			err = errors.New("configure at least one VOD platform in your profile before requesting suggestions")
		case errors.Is(err, suggestions.ErrUserIDRequired):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}
