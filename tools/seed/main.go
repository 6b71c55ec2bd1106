// Command seed loads platforms, catalog titles and availability facts from a
// JSON file into the myVOD database, so a fresh deployment has something to
// recommend from.
//
// Usage: seed -db cache/myvod.db -file catalog.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"myvod/internal/database"
	"myvod/models"
)

type seedFile struct {
	Platforms []struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"platforms"`
	Movies []struct {
		Tconst       string   `json:"tconst"`
		PrimaryTitle string   `json:"primary_title"`
		StartYear    *int     `json:"start_year"`
		Genres       []string `json:"genres"`
		AvgRating    *float64 `json:"avg_rating"`
		NumVotes     *int     `json:"num_votes"`
		Platforms    []string `json:"platforms"` // slugs the title is available on
	} `json:"movies"`
}

func main() {
	dbPath := flag.String("db", "cache/myvod.db", "path to the sqlite database")
	filePath := flag.String("file", "", "path to the JSON seed file")
	source := flag.String("source", "seed", "provenance tag recorded on availability rows")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("usage: seed -db <database> -file <catalog.json>")
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("read seed file: %v", err)
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		log.Fatalf("decode seed file: %v", err)
	}

	db, err := database.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	ctx := context.Background()
	now := time.Now()

	platformIDs := make(map[string]int64, len(seed.Platforms))
	for _, p := range seed.Platforms {
		id, err := store.UpsertPlatform(ctx, p.Slug, p.Name)
		if err != nil {
			log.Fatalf("upsert platform %s: %v", p.Slug, err)
		}
		platformIDs[p.Slug] = id
	}

	available := true
	var availabilityRows int
	for _, m := range seed.Movies {
		movie := models.Movie{
			Tconst:       m.Tconst,
			PrimaryTitle: m.PrimaryTitle,
			StartYear:    m.StartYear,
			Genres:       m.Genres,
			AvgRating:    m.AvgRating,
			NumVotes:     m.NumVotes,
		}
		if err := store.UpsertMovie(ctx, movie); err != nil {
			log.Fatalf("upsert movie %s: %v", m.Tconst, err)
		}

		for _, slug := range m.Platforms {
			id, ok := platformIDs[slug]
			if !ok {
				log.Fatalf("movie %s references unknown platform %q", m.Tconst, slug)
			}
			err := store.SetAvailability(ctx, models.MovieAvailability{
				Tconst:      m.Tconst,
				PlatformID:  id,
				IsAvailable: &available,
				LastChecked: now,
				Source:      *source,
			})
			if err != nil {
				log.Fatalf("set availability %s/%s: %v", m.Tconst, slug, err)
			}
			availabilityRows++
		}
	}

	fmt.Printf("Seeded %d platform(s), %d movie(s), %d availability row(s)\n",
		len(seed.Platforms), len(seed.Movies), availabilityRows)
}
