// Package prompt serializes a user's history, the available-movie catalog and
// taste signals into a single text request for the generative model. Building
// is a pure function of its inputs.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"myvod/models"
	"myvod/services/catalog"
	"myvod/services/preferences"
)

const (
	maxWatchlistLines = 10
	maxWatchedLines   = 15
	maxCatalogLines   = 50
)

// Params collects everything the template embeds.
type Params struct {
	Watchlist []models.UserMovieDetail
	Watched   []models.UserMovieDetail
	Catalog   []catalog.Entry
	Platforms []models.Platform
	Profile   preferences.Profile
}

// Build renders the deterministic recommendation prompt.
func Build(p Params) string {
	var b strings.Builder

	b.WriteString("You are an expert movie recommendation system. Your task is to suggest movies ")
	b.WriteString("that are CURRENTLY AVAILABLE on the user's VOD streaming platforms.\n\n")

	b.WriteString("## User's Subscribed VOD Platforms:\n")
	fmt.Fprintf(&b, "User has access to %d streaming platform(s): %s\n", len(p.Platforms), platformNames(p.Platforms))
	writeQuota(&b, p.Platforms, p.Profile.PlatformQuota)

	b.WriteString("\n## User's Top Genres:\n")
	if len(p.Profile.TopGenres) > 0 {
		b.WriteString(strings.Join(p.Profile.TopGenres, ", "))
		b.WriteString("\n")
	} else {
		b.WriteString("(No genre history yet)\n")
	}

	b.WriteString("\n## User's Current Watchlist (movies they plan to watch):\n")
	if len(p.Watchlist) == 0 {
		b.WriteString("(No movies in watchlist)\n")
	}
	for i, rec := range p.Watchlist {
		if i >= maxWatchlistLines {
			break
		}
		fmt.Fprintf(&b, "- %s (%s) - Genres: %s\n",
			rec.Movie.PrimaryTitle, yearString(rec.Movie.StartYear), genresString(rec.Movie.Genres))
	}

	b.WriteString("\n## Movies User Has Watched:\n")
	if len(p.Watched) == 0 {
		b.WriteString("(No watched movies)\n")
	}
	for i, rec := range p.Watched {
		if i >= maxWatchedLines {
			break
		}
		fmt.Fprintf(&b, "- %s (%s) - Genres: %s - Rating: %s/10\n",
			rec.Movie.PrimaryTitle, yearString(rec.Movie.StartYear),
			genresString(rec.Movie.Genres), ratingString(rec.Movie.AvgRating))
	}

	b.WriteString("\n## Available Movies on User's Platforms:\n")
	fmt.Fprintf(&b, "Here are %d movies currently available on the user's streaming platforms.\n", len(p.Catalog))
	b.WriteString("You MUST choose suggestions ONLY from this list:\n\n")
	for i, entry := range p.Catalog {
		if i >= maxCatalogLines {
			break
		}
		fmt.Fprintf(&b, "- [%s] %s (%s) - %s - %s/10 - %s\n",
			entry.Movie.Tconst, entry.Movie.PrimaryTitle, yearString(entry.Movie.StartYear),
			genresString(entry.Movie.Genres), ratingString(entry.Movie.AvgRating),
			strings.Join(entry.Platforms, ", "))
	}
	if len(p.Catalog) > maxCatalogLines {
		fmt.Fprintf(&b, "... and %d more movies available\n", len(p.Catalog)-maxCatalogLines)
	}

	b.WriteString(`
## Your Task:
Based on the user's taste and viewing history, suggest 5 movies they would likely enjoy.

## CRITICAL REQUIREMENTS:
1. Choose ONLY from the 'Available Movies' list above; use the exact id in brackets
2. Structure the 5 picks as: 3 movies matching the user's top genres, 1 popular movie outside those genres, and 1 pick from an underrepresented platform for variety
3. No more than 2 suggestions may share a genre, and no more than 2 may share a platform
4. Do NOT suggest movies they've already watched
5. You CAN suggest movies from their watchlist - this helps them discover what they can watch NOW
6. Prioritize well-rated movies

## Response Format:
Return ONLY a valid JSON array (no markdown, no code blocks, no explanatory text) with this exact structure:
[
  {
    "id": "tt0133093",
    "justification": "Brief reason why this movie fits their taste (max 200 characters)"
  }
]

## Important Rules:
- id MUST be from the available movies list above
- justification MUST be under 200 characters
- Return exactly 5 suggestions (or fewer if not enough matches)
- Return ONLY the JSON array, nothing else

Generate the suggestions now:
`)

	return b.String()
}

func writeQuota(b *strings.Builder, platforms []models.Platform, quota map[int64]int) {
	if len(quota) == 0 {
		return
	}
	b.WriteString("Aim to balance suggestions across platforms, roughly:\n")

	// Platforms iterate in declaration order so the prompt stays deterministic.
	ordered := make([]models.Platform, len(platforms))
	copy(ordered, platforms)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, p := range ordered {
		if share, ok := quota[p.ID]; ok && share > 0 {
			fmt.Fprintf(b, "- %s: up to %d suggestion(s)\n", p.Name, share)
		}
	}
}

func platformNames(platforms []models.Platform) string {
	if len(platforms) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func yearString(year *int) string {
	if year == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *year)
}

func genresString(genres []string) string {
	if len(genres) == 0 {
		return "N/A"
	}
	return strings.Join(genres, ", ")
}

func ratingString(rating *float64) string {
	if rating == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *rating)
}
