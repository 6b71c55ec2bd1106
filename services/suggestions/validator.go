package suggestions

import (
	"log"
	"regexp"
	"strings"

	"myvod/models"
	"myvod/services/catalog"
)

// MaxSuggestions caps the number of items accepted into a batch.
const MaxSuggestions = 5

const (
	maxJustificationLen  = 200
	defaultJustification = "Recommended based on your preferences"
	diversityLimit       = 2
)

// tconstPattern matches catalog identifiers: two-letter prefix plus at least
// seven digits.
var tconstPattern = regexp.MustCompile(`^[a-z]{2}\d{7,}$`)

// DiversityReport tallies genres and platforms across the accepted items.
// It is observability only; nothing is rejected because of it.
type DiversityReport struct {
	GenreCounts    map[string]int
	PlatformCounts map[string]int
}

// Violations lists genres or platforms represented more than twice.
func (r DiversityReport) Violations() []string {
	var out []string
	for genre, n := range r.GenreCounts {
		if n > diversityLimit {
			out = append(out, "genre "+genre)
		}
	}
	for platform, n := range r.PlatformCounts {
		if n > diversityLimit {
			out = append(out, "platform "+platform)
		}
	}
	return out
}

// Validate filters raw candidates against the hard constraints: identifier
// format, watched-title exclusion and catalog membership. Accepted items get
// their canonical title and year from the catalog and a clamped
// justification. At most MaxSuggestions items are returned.
func Validate(raw []RawSuggestion, cat map[string]catalog.Entry, watched map[string]struct{}) ([]models.SuggestionItem, DiversityReport) {
	report := DiversityReport{
		GenreCounts:    make(map[string]int),
		PlatformCounts: make(map[string]int),
	}

	var accepted []models.SuggestionItem
	for _, candidate := range raw {
		if len(accepted) >= MaxSuggestions {
			break
		}

		id := strings.TrimSpace(candidate.ID)
		if !tconstPattern.MatchString(id) {
			log.Printf("[suggestions] rejecting candidate with malformed id %q", id)
			continue
		}
		if _, already := watched[id]; already {
			log.Printf("[suggestions] rejecting %s - already watched", id)
			continue
		}
		entry, inCatalog := cat[id]
		if !inCatalog {
			log.Printf("[suggestions] rejecting %s - not in catalog", id)
			continue
		}

		accepted = append(accepted, models.SuggestionItem{
			Tconst:        id,
			PrimaryTitle:  entry.Movie.PrimaryTitle,
			StartYear:     entry.Movie.StartYear,
			Justification: clampJustification(candidate.Justification),
		})

		for _, genre := range entry.Movie.Genres {
			report.GenreCounts[genre]++
		}
		for _, platform := range entry.Platforms {
			report.PlatformCounts[platform]++
		}
	}

	return accepted, report
}

// clampJustification limits the justification to maxJustificationLen
// characters, counting runes so multi-byte text is neither over-truncated nor
// cut mid-character.
func clampJustification(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultJustification
	}
	runes := []rune(text)
	if len(runes) > maxJustificationLen {
		return string(runes[:maxJustificationLen-3]) + "..."
	}
	return text
}
