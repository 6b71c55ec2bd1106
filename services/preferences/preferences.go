// Package preferences derives lightweight taste signals from a user's
// consumption history, used to bias generation toward diversity.
package preferences

import (
	"sort"

	"myvod/models"
)

// TotalSuggestions is the fixed number of suggestions a quota is split over.
const TotalSuggestions = 5

// maxPerPlatform caps any single platform's share of the quota.
const maxPerPlatform = 2

// Profile carries the derived taste signals.
type Profile struct {
	// TopGenres holds the user's three most frequent genre tags, most
	// frequent first. Ties keep first-encountered order.
	TopGenres []string
	// PlatformQuota is a proportional per-platform suggestion target.
	PlatformQuota map[int64]int
}

// Analyze tallies genre tags across the user's watchlisted-or-watched titles
// and splits a quota of TotalSuggestions across the subscribed platforms.
func Analyze(history []models.UserMovieDetail, platforms []models.Platform) Profile {
	return Profile{
		TopGenres:     topGenres(history, 3),
		PlatformQuota: platformQuota(platforms),
	}
}

func topGenres(history []models.UserMovieDetail, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, rec := range history {
		for _, genre := range rec.Movie.Genres {
			if genre == "" {
				continue
			}
			if _, seen := counts[genre]; !seen {
				order = append(order, genre)
			}
			counts[genre]++
		}
	}

	// Stable sort keeps first-encountered order for equal counts.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}

func platformQuota(platforms []models.Platform) map[int64]int {
	quota := make(map[int64]int, len(platforms))
	n := len(platforms)
	if n == 0 {
		return quota
	}

	base := TotalSuggestions / n
	remainder := TotalSuggestions % n
	for i, p := range platforms {
		share := base
		if i < remainder {
			share++
		}
		if share > maxPerPlatform {
			share = maxPerPlatform
		}
		quota[p.ID] = share
	}
	return quota
}
