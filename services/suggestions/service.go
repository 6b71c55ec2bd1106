// Package suggestions implements the recommendation generation and caching
// engine: one generation per user per calendar day, with the result cached
// until end of day and enriched with live availability on every read.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"

	"myvod/internal/database"
	"myvod/models"
	"myvod/services/catalog"
	"myvod/services/gemini"
	"myvod/services/preferences"
	"myvod/services/prompt"
)

var (
	// ErrNoHistory means the user has no actively-watchlisted or watched
	// titles to derive taste from.
	ErrNoHistory = errors.New("no watchlist or watched history")
	// ErrNoPlatforms means the user has no platform subscriptions.
	ErrNoPlatforms = errors.New("no platform subscriptions configured")
	// ErrUserIDRequired mirrors the store sentinel for callers that never
	// touch the store directly.
	ErrUserIDRequired = errors.New("user id is required")
)

const historyLimit = 50

// Store is the persistence surface the engine depends on. Generation runs
// inside InTx so the consumption/subscription snapshot it reads and the batch
// it persists commit as one atomic unit.
type Store interface {
	InTx(ctx context.Context, fn func(tx database.Tx) error) error
	LatestBatchInRange(ctx context.Context, userID string, start, end time.Time) (*models.SuggestionBatch, error)
	ListUserPlatforms(ctx context.Context, userID string) ([]models.Platform, error)
	MovieAvailability(ctx context.Context, tconst string, platformIDs []int64) ([]models.PlatformAvailability, error)
}

var _ Store = (*database.Store)(nil)

// ModelClient invokes the external generative model.
type ModelClient interface {
	Invoke(ctx context.Context, promptText string) gemini.Result
}

// Service orchestrates cache lookup, generation, validation, persistence and
// enrichment.
type Service struct {
	store Store
	model ModelClient
	now   func() time.Time
}

func NewService(store Store, model ModelClient) *Service {
	return &Service{
		store: store,
		model: model,
		now:   time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(clock func() time.Time) {
	s.now = clock
}

// GetOrGenerate returns today's suggestion batch for the user, generating one
// if none exists yet. Generation happens at most once per calendar day; a
// failed generation still persists an empty batch and so uses up the day's
// quota, keeping external model call volume bounded. Every returned item,
// cached or fresh, carries live per-platform availability.
func (s *Service) GetOrGenerate(ctx context.Context, userID string, bypassCache bool) (models.SuggestionResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.SuggestionResult{}, ErrUserIDRequired
	}

	now := s.now()
	dayStart, dayEnd := dayBounds(now)

	if !bypassCache {
		cached, err := s.store.LatestBatchInRange(ctx, userID, dayStart, dayEnd)
		if err != nil {
			return models.SuggestionResult{}, fmt.Errorf("read cached batch: %w", err)
		}
		if cached != nil {
			log.Printf("[suggestions] cache hit for user %s (generated %s)", userID, cached.GeneratedAt.Format(time.RFC3339))
			return s.enrich(ctx, userID, *cached)
		}
	}

	// A client disconnect must not waste the day's quota: once generation
	// starts it runs to completion and persists regardless of the caller.
	genCtx := context.WithoutCancel(ctx)
	day := now.Format("2006-01-02")

	// The snapshot reads and the batch insert share one transaction, so a
	// watch or watchlist mutation committing mid-generation cannot produce a
	// batch that contradicts the state it was derived from.
	var batch models.SuggestionBatch
	err := s.store.InTx(genCtx, func(tx database.Tx) error {
		hasHistory, err := tx.HasConsumptionHistory(genCtx, userID)
		if err != nil {
			return fmt.Errorf("check consumption history: %w", err)
		}
		if !hasHistory {
			return ErrNoHistory
		}

		platforms, err := tx.ListUserPlatforms(genCtx, userID)
		if err != nil {
			return fmt.Errorf("read platform subscriptions: %w", err)
		}
		if len(platforms) == 0 {
			return ErrNoPlatforms
		}

		b, err := s.generate(genCtx, tx, userID, platforms, now, dayEnd)
		if err != nil {
			return err
		}
		if err := tx.InsertBatch(genCtx, b, day, bypassCache); err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrBatchExists) && !bypassCache {
			// A concurrent request won the day; serve its batch.
			winner, readErr := s.store.LatestBatchInRange(ctx, userID, dayStart, dayEnd)
			if readErr != nil {
				return models.SuggestionResult{}, fmt.Errorf("read winning batch: %w", readErr)
			}
			if winner != nil {
				log.Printf("[suggestions] lost same-day generation race for user %s, serving winner", userID)
				return s.enrich(ctx, userID, *winner)
			}
		}
		if errors.Is(err, ErrNoHistory) || errors.Is(err, ErrNoPlatforms) {
			return models.SuggestionResult{}, err
		}
		return models.SuggestionResult{}, fmt.Errorf("generate suggestion batch: %w", err)
	}

	log.Printf("[suggestions] persisted batch %s for user %s (%d items)", batch.ID, userID, len(batch.Items))
	return s.enrich(ctx, userID, batch)
}

func (s *Service) generate(ctx context.Context, tx database.Tx, userID string, platforms []models.Platform, now, expiresAt time.Time) (models.SuggestionBatch, error) {
	history, err := tx.ListEligibleUserMovies(ctx, userID, historyLimit)
	if err != nil {
		return models.SuggestionBatch{}, fmt.Errorf("read consumption history: %w", err)
	}

	var (
		watchlist []models.UserMovieDetail
		watched   []models.UserMovieDetail
	)
	watchedSet := make(map[string]struct{})
	for _, rec := range history {
		if rec.IsWatched() {
			watched = append(watched, rec)
			watchedSet[rec.Tconst] = struct{}{}
		} else if rec.ActivelyWatchlisted() {
			watchlist = append(watchlist, rec)
		}
	}

	platformIDs := make([]int64, 0, len(platforms))
	for _, p := range platforms {
		platformIDs = append(platformIDs, p.ID)
	}
	excluded := make([]string, 0, len(watchedSet))
	for tconst := range watchedSet {
		excluded = append(excluded, tconst)
	}

	entries, err := catalog.Build(ctx, tx, platformIDs, excluded)
	if err != nil {
		return models.SuggestionBatch{}, fmt.Errorf("build catalog: %w", err)
	}

	batch := models.SuggestionBatch{
		ID:          uuid.NewString(),
		UserID:      userID,
		GeneratedAt: now,
		ExpiresAt:   expiresAt,
		Prompt:      fmt.Sprintf("generated from %d history records and %d catalog titles", len(history), len(entries)),
	}

	if len(entries) == 0 {
		log.Printf("[suggestions] no titles available on user %s's platforms, persisting empty batch", userID)
		return batch, nil
	}

	profile := preferences.Analyze(history, platforms)
	promptText := prompt.Build(prompt.Params{
		Watchlist: watchlist,
		Watched:   watched,
		Catalog:   entries,
		Platforms: platforms,
		Profile:   profile,
	})

	result := s.model.Invoke(ctx, promptText)
	if !result.OK() {
		s.recordModelFailure(ctx, tx, userID, result, len(entries), len(watchlist), len(watched))
		return batch, nil
	}

	raw := Parse(result.Text)
	if len(raw) == 0 {
		s.recordParseFailure(ctx, tx, userID, result.Text)
		return batch, nil
	}

	items, report := Validate(raw, catalog.TconstSet(entries), watchedSet)
	if violations := report.Violations(); len(violations) > 0 {
		log.Printf("[suggestions] diversity warning for user %s: %s", userID, strings.Join(violations, ", "))
	}

	batch.Items = items
	return batch, nil
}

// enrich attaches live availability to every item in the batch, restricted to
// the user's current subscriptions. Only is_available=true entries appear.
func (s *Service) enrich(ctx context.Context, userID string, batch models.SuggestionBatch) (models.SuggestionResult, error) {
	platforms, err := s.store.ListUserPlatforms(ctx, userID)
	if err != nil {
		return models.SuggestionResult{}, fmt.Errorf("read platform subscriptions: %w", err)
	}
	platformIDs := make([]int64, 0, len(platforms))
	for _, p := range platforms {
		platformIDs = append(platformIDs, p.ID)
	}

	enriched, err := iter.MapErr(batch.Items, func(item *models.SuggestionItem) (models.EnrichedSuggestion, error) {
		availability, err := s.store.MovieAvailability(ctx, item.Tconst, platformIDs)
		if err != nil {
			return models.EnrichedSuggestion{}, err
		}
		return models.EnrichedSuggestion{
			Tconst:        item.Tconst,
			PrimaryTitle:  item.PrimaryTitle,
			StartYear:     item.StartYear,
			Justification: item.Justification,
			Availability:  availability,
		}, nil
	})
	if err != nil {
		return models.SuggestionResult{}, fmt.Errorf("enrich suggestions: %w", err)
	}
	if enriched == nil {
		enriched = []models.EnrichedSuggestion{}
	}

	return models.SuggestionResult{
		ExpiresAt:   batch.ExpiresAt,
		Suggestions: enriched,
	}, nil
}

func (s *Service) recordModelFailure(ctx context.Context, tx database.Tx, userID string, result gemini.Result, catalogSize, watchlistCount, watchedCount int) {
	message := "model invocation failed"
	if result.Err != nil {
		message = result.Err.Error()
	} else if result.Outcome == gemini.OutcomeNotConfigured {
		message = "model client not configured"
	}

	log.Printf("[suggestions] model failure for user %s: %s (%s)", userID, message, result.ErrorClass())

	rec := models.IntegrationError{
		APIType: "model",
		Message: message,
		UserID:  userID,
		Details: map[string]any{
			"error_type":      result.ErrorClass(),
			"catalog_size":    catalogSize,
			"watchlist_count": watchlistCount,
			"watched_count":   watchedCount,
		},
		OccurredAt: s.now(),
	}
	if err := tx.AppendIntegrationError(ctx, rec); err != nil {
		log.Printf("[suggestions] failed to append integration error: %v", err)
	}
}

func (s *Service) recordParseFailure(ctx context.Context, tx database.Tx, userID, responseText string) {
	log.Printf("[suggestions] model returned unparseable output for user %s", userID)

	rec := models.IntegrationError{
		APIType: "model",
		Message: "model response not parseable as suggestion list",
		UserID:  userID,
		Details: map[string]any{
			"error_type":      "ParseFailure",
			"response_length": len(responseText),
		},
		OccurredAt: s.now(),
	}
	if err := tx.AppendIntegrationError(ctx, rec); err != nil {
		log.Printf("[suggestions] failed to append integration error: %v", err)
	}
}

// dayBounds returns the start and end instants of the calendar day containing
// now, in the server's local time zone. The end is 23:59:59 so expires_at
// matches the last second of the day.
func dayBounds(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	loc := now.Location()
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day, 23, 59, 59, 0, loc)
	return start, end
}
