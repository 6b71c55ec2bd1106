package models

import "time"

// Movie is a catalog title keyed by its external identifier (tconst).
// Catalog data is read-only from the suggestion engine's point of view.
type Movie struct {
	Tconst       string    `json:"tconst"`
	PrimaryTitle string    `json:"primaryTitle"`
	StartYear    *int      `json:"startYear,omitempty"`
	Genres       []string  `json:"genres,omitempty"`
	AvgRating    *float64  `json:"avgRating,omitempty"`
	NumVotes     *int      `json:"numVotes,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// MovieAvailability records whether a title can be streamed on a platform.
// IsAvailable is tri-state: nil means the checker could not determine it.
type MovieAvailability struct {
	Tconst      string    `json:"tconst"`
	PlatformID  int64     `json:"platformId"`
	IsAvailable *bool     `json:"isAvailable"`
	LastChecked time.Time `json:"lastChecked"`
	Source      string    `json:"source,omitempty"`
}
