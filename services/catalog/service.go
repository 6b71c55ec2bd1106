// Package catalog builds the bounded set of titles eligible for
// recommendation: everything available on the user's subscribed platforms
// minus what they have already watched.
package catalog

import (
	"context"
	"log"

	"myvod/internal/database"
	"myvod/models"
)

// MaxEntries bounds the catalog so downstream prompt size stays reasonable.
const MaxEntries = 100

// Entry is one catalog title annotated with the platforms it is available on.
type Entry struct {
	Movie     models.Movie
	Platforms []string
}

// RowSource supplies availability rows. It is passed per call so the read can
// share whatever transaction the caller holds.
type RowSource interface {
	AvailableMovieRows(ctx context.Context, platformIDs []int64, excluded []string) ([]database.AvailabilityRow, error)
}

// Build returns up to MaxEntries titles available on the given platforms,
// excluding the given watched tconsts, ordered by popularity (vote count,
// nulls last) then rating. Contributing platform names are unioned per title.
// An empty platform set yields an empty catalog, not an error.
func Build(ctx context.Context, rows RowSource, platformIDs []int64, excluded []string) ([]Entry, error) {
	if len(platformIDs) == 0 {
		return nil, nil
	}

	available, err := rows.AvailableMovieRows(ctx, platformIDs, excluded)
	if err != nil {
		return nil, err
	}

	// Rows arrive ordered by popularity; grouping preserves first-seen order.
	byTconst := make(map[string]int, len(available))
	entries := make([]Entry, 0, len(available))
	for _, row := range available {
		idx, seen := byTconst[row.Movie.Tconst]
		if !seen {
			if len(entries) >= MaxEntries {
				continue
			}
			entries = append(entries, Entry{Movie: row.Movie})
			idx = len(entries) - 1
			byTconst[row.Movie.Tconst] = idx
		}
		entries[idx].Platforms = appendUnique(entries[idx].Platforms, row.PlatformName)
	}

	log.Printf("[catalog] built catalog of %d titles across %d platforms", len(entries), len(platformIDs))
	return entries, nil
}

// TconstSet returns the catalog's id set for membership checks.
func TconstSet(entries []Entry) map[string]Entry {
	set := make(map[string]Entry, len(entries))
	for _, e := range entries {
		set[e.Movie.Tconst] = e
	}
	return set
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
