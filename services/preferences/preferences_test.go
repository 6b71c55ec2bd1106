package preferences

import (
	"reflect"
	"testing"

	"myvod/models"
)

func detail(genres ...string) models.UserMovieDetail {
	return models.UserMovieDetail{Movie: models.Movie{Genres: genres}}
}

func TestTopGenresOrderedByFrequency(t *testing.T) {
	history := []models.UserMovieDetail{
		detail("Drama", "Action"),
		detail("Drama", "Comedy"),
		detail("Drama", "Action"),
		detail("Comedy"),
		detail("Horror"),
	}

	profile := Analyze(history, nil)
	want := []string{"Drama", "Action", "Comedy"}
	if !reflect.DeepEqual(profile.TopGenres, want) {
		t.Fatalf("TopGenres = %v, want %v", profile.TopGenres, want)
	}
}

func TestTopGenresTiesKeepEncounterOrder(t *testing.T) {
	history := []models.UserMovieDetail{
		detail("Western", "Noir", "Musical"),
	}

	profile := Analyze(history, nil)
	want := []string{"Western", "Noir", "Musical"}
	if !reflect.DeepEqual(profile.TopGenres, want) {
		t.Fatalf("TopGenres = %v, want %v", profile.TopGenres, want)
	}
}

func TestTopGenresSkipsEmptyTags(t *testing.T) {
	history := []models.UserMovieDetail{
		detail("", "Drama", ""),
	}

	profile := Analyze(history, nil)
	want := []string{"Drama"}
	if !reflect.DeepEqual(profile.TopGenres, want) {
		t.Fatalf("TopGenres = %v, want %v", profile.TopGenres, want)
	}
}

func TestTopGenresEmptyHistory(t *testing.T) {
	profile := Analyze(nil, nil)
	if len(profile.TopGenres) != 0 {
		t.Fatalf("expected no genres, got %v", profile.TopGenres)
	}
}

func TestPlatformQuotaSplits(t *testing.T) {
	cases := []struct {
		name      string
		platforms []models.Platform
		want      map[int64]int
	}{
		{
			name: "single platform capped",
			platforms: []models.Platform{
				{ID: 1},
			},
			want: map[int64]int{1: 2},
		},
		{
			name: "two platforms",
			platforms: []models.Platform{
				{ID: 1}, {ID: 2},
			},
			want: map[int64]int{1: 2, 2: 2},
		},
		{
			name: "three platforms",
			platforms: []models.Platform{
				{ID: 1}, {ID: 2}, {ID: 3},
			},
			want: map[int64]int{1: 2, 2: 2, 3: 1},
		},
		{
			name: "five platforms",
			platforms: []models.Platform{
				{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5},
			},
			want: map[int64]int{1: 1, 2: 1, 3: 1, 4: 1, 5: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := Analyze(nil, tc.platforms)
			if !reflect.DeepEqual(profile.PlatformQuota, tc.want) {
				t.Fatalf("PlatformQuota = %v, want %v", profile.PlatformQuota, tc.want)
			}
		})
	}
}

func TestPlatformQuotaNoPlatforms(t *testing.T) {
	profile := Analyze(nil, nil)
	if len(profile.PlatformQuota) != 0 {
		t.Fatalf("expected empty quota, got %v", profile.PlatformQuota)
	}
}
