package models

import "time"

// WatchState classifies a user/movie relationship derived from the three
// nullable timestamps on UserMovie, so consumers don't re-derive the
// soft-delete boolean logic everywhere.
type WatchState int

const (
	// NotListed means the record carries no active watchlist entry and no watch.
	NotListed WatchState = iota
	// ActiveWatchlist means the title is on the watchlist and not yet watched.
	ActiveWatchlist
	// RemovedFromWatchlist means the watchlist entry was soft-deleted.
	RemovedFromWatchlist
	// Watched means the title has been watched and is not actively watchlisted.
	Watched
	// WatchlistedAndWatched means the title is both on the watchlist and watched.
	WatchlistedAndWatched
)

// UserMovie is a per-user consumption record for a single title.
// A title may be simultaneously watchlisted and watched.
type UserMovie struct {
	UserID             string     `json:"userId"`
	Tconst             string     `json:"tconst"`
	WatchlistedAt      *time.Time `json:"watchlistedAt,omitempty"`
	WatchlistRemovedAt *time.Time `json:"watchlistRemovedAt,omitempty"`
	WatchedAt          *time.Time `json:"watchedAt,omitempty"`
}

// ActivelyWatchlisted reports whether the watchlist entry exists and has not
// been soft-deleted.
func (m UserMovie) ActivelyWatchlisted() bool {
	return m.WatchlistedAt != nil && m.WatchlistRemovedAt == nil
}

// IsWatched reports whether the title has been watched.
func (m UserMovie) IsWatched() bool {
	return m.WatchedAt != nil
}

// State derives the explicit watch state for this record.
func (m UserMovie) State() WatchState {
	switch {
	case m.ActivelyWatchlisted() && m.IsWatched():
		return WatchlistedAndWatched
	case m.ActivelyWatchlisted():
		return ActiveWatchlist
	case m.IsWatched():
		return Watched
	case m.WatchlistedAt != nil:
		return RemovedFromWatchlist
	default:
		return NotListed
	}
}

// UserMovieDetail joins a consumption record with its catalog title, the shape
// the preference analyzer and prompt builder work from.
type UserMovieDetail struct {
	UserMovie
	Movie Movie `json:"movie"`
}
