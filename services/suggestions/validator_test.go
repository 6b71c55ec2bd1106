package suggestions

import (
	"strings"
	"testing"
	"unicode/utf8"

	"myvod/models"
	"myvod/services/catalog"
)

func catalogWith(ids ...string) map[string]catalog.Entry {
	year := 1999
	cat := make(map[string]catalog.Entry, len(ids))
	for _, id := range ids {
		cat[id] = catalog.Entry{
			Movie: models.Movie{
				Tconst:       id,
				PrimaryTitle: "Title " + id,
				StartYear:    &year,
				Genres:       []string{"Action", "Sci-Fi"},
			},
			Platforms: []string{"netflix"},
		}
	}
	return cat
}

func TestValidateRejectsMalformedIDs(t *testing.T) {
	cat := catalogWith("tt0133093")
	raw := []RawSuggestion{
		{ID: "abc123", Justification: "bad prefix"},
		{ID: "tt123", Justification: "too few digits"},
		{ID: "TT0133093", Justification: "uppercase"},
		{ID: " tt0133093 ", Justification: "trimmed, valid"},
	}

	items, _ := Validate(raw, cat, nil)
	if len(items) != 1 {
		t.Fatalf("expected only the trimmed valid id to survive, got %d items", len(items))
	}
	if items[0].Tconst != "tt0133093" {
		t.Fatalf("unexpected tconst: %q", items[0].Tconst)
	}
}

func TestValidateRejectsWatchedAndUnknown(t *testing.T) {
	cat := catalogWith("tt0000001", "tt0000002")
	watched := map[string]struct{}{"tt0000002": {}}
	raw := []RawSuggestion{
		{ID: "tt0000001", Justification: "in catalog"},
		{ID: "tt0000002", Justification: "watched"},
		{ID: "tt0000003", Justification: "not in catalog"},
	}

	items, _ := Validate(raw, cat, watched)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Tconst != "tt0000001" {
		t.Fatalf("unexpected tconst: %q", items[0].Tconst)
	}
}

func TestValidateCanonicalTitleAndYear(t *testing.T) {
	cat := catalogWith("tt0133093")
	raw := []RawSuggestion{{ID: "tt0133093", Justification: "ok"}}

	items, _ := Validate(raw, cat, nil)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].PrimaryTitle != "Title tt0133093" {
		t.Fatalf("title not taken from catalog: %q", items[0].PrimaryTitle)
	}
	if items[0].StartYear == nil || *items[0].StartYear != 1999 {
		t.Fatalf("year not taken from catalog: %v", items[0].StartYear)
	}
}

func TestValidateCapsAtMaxSuggestions(t *testing.T) {
	ids := []string{"tt0000001", "tt0000002", "tt0000003", "tt0000004", "tt0000005", "tt0000006", "tt0000007"}
	cat := catalogWith(ids...)
	raw := make([]RawSuggestion, len(ids))
	for i, id := range ids {
		raw[i] = RawSuggestion{ID: id, Justification: "j"}
	}

	items, _ := Validate(raw, cat, nil)
	if len(items) != MaxSuggestions {
		t.Fatalf("expected %d items, got %d", MaxSuggestions, len(items))
	}
	if items[0].Tconst != "tt0000001" || items[4].Tconst != "tt0000005" {
		t.Fatalf("cap should keep the first accepted items: %+v", items)
	}
}

func TestValidateJustificationClampAndDefault(t *testing.T) {
	cat := catalogWith("tt0000001", "tt0000002")
	long := strings.Repeat("a", 300)
	raw := []RawSuggestion{
		{ID: "tt0000001", Justification: long},
		{ID: "tt0000002", Justification: "   "},
	}

	items, _ := Validate(raw, cat, nil)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if len(items[0].Justification) != 200 {
		t.Fatalf("clamped justification length = %d, want 200", len(items[0].Justification))
	}
	if !strings.HasSuffix(items[0].Justification, "...") {
		t.Fatalf("clamped justification should end with ellipsis: %q", items[0].Justification)
	}
	if items[1].Justification != defaultJustification {
		t.Fatalf("blank justification should fall back to default, got %q", items[1].Justification)
	}
}

func TestValidateJustificationClampCountsRunes(t *testing.T) {
	cat := catalogWith("tt0000001", "tt0000002")
	under := strings.Repeat("é", 150)  // 300 bytes but only 150 characters
	over := strings.Repeat("日", 250)   // cut must not land mid-rune
	raw := []RawSuggestion{
		{ID: "tt0000001", Justification: under},
		{ID: "tt0000002", Justification: over},
	}

	items, _ := Validate(raw, cat, nil)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Justification != under {
		t.Fatalf("multi-byte text under the limit must not be truncated: %q", items[0].Justification)
	}
	clamped := items[1].Justification
	if !utf8.ValidString(clamped) {
		t.Fatalf("clamped justification is not valid UTF-8: %q", clamped)
	}
	if got := utf8.RuneCountInString(clamped); got != 200 {
		t.Fatalf("clamped justification rune count = %d, want 200", got)
	}
	if !strings.HasSuffix(clamped, "...") {
		t.Fatalf("clamped justification should end with ellipsis: %q", clamped)
	}
}

func TestDiversityReportViolations(t *testing.T) {
	cat := catalogWith("tt0000001", "tt0000002", "tt0000003")
	raw := []RawSuggestion{
		{ID: "tt0000001", Justification: "a"},
		{ID: "tt0000002", Justification: "b"},
		{ID: "tt0000003", Justification: "c"},
	}

	// Every catalogWith entry shares genres and platform, so three accepted
	// items push each count to 3.
	_, report := Validate(raw, cat, nil)
	if report.GenreCounts["Action"] != 3 {
		t.Fatalf("Action count = %d, want 3", report.GenreCounts["Action"])
	}
	violations := report.Violations()
	if len(violations) != 3 {
		t.Fatalf("expected 3 violations (two genres, one platform), got %v", violations)
	}
}

func TestDiversityReportNoViolationsAtLimit(t *testing.T) {
	cat := catalogWith("tt0000001", "tt0000002")
	raw := []RawSuggestion{
		{ID: "tt0000001", Justification: "a"},
		{ID: "tt0000002", Justification: "b"},
	}

	_, report := Validate(raw, cat, nil)
	if v := report.Violations(); len(v) != 0 {
		t.Fatalf("counts of exactly 2 should not violate, got %v", v)
	}
}
