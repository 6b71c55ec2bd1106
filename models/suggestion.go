package models

import "time"

// SuggestionItem is one validated suggestion stored inside a batch. Persisted
// items are guaranteed to have referenced catalog-eligible, unwatched titles
// at generation time; they are not re-validated on later reads.
type SuggestionItem struct {
	Tconst        string `json:"tconst"`
	PrimaryTitle  string `json:"primary_title"`
	StartYear     *int   `json:"start_year,omitempty"`
	Justification string `json:"justification"`
}

// SuggestionBatch is one persisted, immutable result of a generation attempt,
// cached for the remainder of the calendar day it was generated on.
type SuggestionBatch struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	GeneratedAt time.Time        `json:"generatedAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Prompt      string           `json:"prompt,omitempty"`
	Items       []SuggestionItem `json:"items"`
}

// PlatformAvailability is one live availability entry attached to a suggestion
// at read time. Only is_available=true entries are ever attached.
type PlatformAvailability struct {
	PlatformID   int64  `json:"platform_id"`
	PlatformName string `json:"platform_name"`
	IsAvailable  bool   `json:"is_available"`
}

// EnrichedSuggestion is a suggestion item with its current availability.
type EnrichedSuggestion struct {
	Tconst        string                 `json:"tconst"`
	PrimaryTitle  string                 `json:"primary_title"`
	StartYear     *int                   `json:"start_year,omitempty"`
	Justification string                 `json:"justification"`
	Availability  []PlatformAvailability `json:"availability"`
}

// SuggestionResult is the response payload for the suggestions endpoint.
type SuggestionResult struct {
	ExpiresAt   time.Time            `json:"expires_at"`
	Suggestions []EnrichedSuggestion `json:"suggestions"`
}
