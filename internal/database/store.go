package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"myvod/models"
)

var (
	ErrUserIDRequired = errors.New("user id is required")
	ErrTconstRequired = errors.New("tconst is required")
	// ErrBatchExists is returned when another request already persisted a
	// suggestion batch for the same user and calendar day.
	ErrBatchExists = errors.New("suggestion batch already exists for this day")
)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same store methods run standalone or inside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides all persistence operations over the sqlite database.
type Store struct {
	db *sql.DB
	q  queryer
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Tx is the transaction-scoped view of the store a suggestion generation runs
// against: the consumption/subscription snapshot it reads and the batch it
// inserts commit as one atomic unit.
type Tx interface {
	HasConsumptionHistory(ctx context.Context, userID string) (bool, error)
	ListEligibleUserMovies(ctx context.Context, userID string, limit int) ([]models.UserMovieDetail, error)
	ListUserPlatforms(ctx context.Context, userID string) ([]models.Platform, error)
	AvailableMovieRows(ctx context.Context, platformIDs []int64, excluded []string) ([]AvailabilityRow, error)
	InsertBatch(ctx context.Context, batch models.SuggestionBatch, day string, replace bool) error
	AppendIntegrationError(ctx context.Context, rec models.IntegrationError) error
}

var _ Tx = (*Store)(nil)

// InTx runs fn against a transaction-scoped store. Everything fn reads and
// writes commits together; any error rolls the whole unit back.
func (s *Store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Store{db: s.db, q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// HasConsumptionHistory reports whether the user has at least one record that
// is actively watchlisted or watched.
func (s *Store) HasConsumptionHistory(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}

	var one int
	err := s.q.QueryRowContext(ctx, `
		SELECT 1 FROM user_movies
		WHERE user_id = ?
		  AND ((watchlisted_at IS NOT NULL AND watchlist_removed_at IS NULL)
		       OR watched_at IS NOT NULL)
		LIMIT 1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query consumption history: %w", err)
	}
	return true, nil
}

// ListEligibleUserMovies returns the user's actively-watchlisted or watched
// records joined with their catalog titles, newest activity first.
func (s *Store) ListEligibleUserMovies(ctx context.Context, userID string, limit int) ([]models.UserMovieDetail, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT um.user_id, um.tconst, um.watchlisted_at, um.watchlist_removed_at, um.watched_at,
		       m.primary_title, m.start_year, m.genres, m.avg_rating, m.num_votes
		FROM user_movies um
		JOIN movies m ON m.tconst = um.tconst
		WHERE um.user_id = ?
		  AND ((um.watchlisted_at IS NOT NULL AND um.watchlist_removed_at IS NULL)
		       OR um.watched_at IS NOT NULL)
		ORDER BY COALESCE(um.watched_at, um.watchlisted_at) DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query user movies: %w", err)
	}
	defer rows.Close()

	var out []models.UserMovieDetail
	for rows.Next() {
		var (
			d         models.UserMovieDetail
			genresRaw sql.NullString
		)
		if err := rows.Scan(
			&d.UserID, &d.Tconst, &d.WatchlistedAt, &d.WatchlistRemovedAt, &d.WatchedAt,
			&d.Movie.PrimaryTitle, &d.Movie.StartYear, &genresRaw, &d.Movie.AvgRating, &d.Movie.NumVotes,
		); err != nil {
			return nil, fmt.Errorf("scan user movie: %w", err)
		}
		d.Movie.Tconst = d.Tconst
		d.Movie.Genres = decodeGenres(genresRaw)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListUserPlatforms returns the platforms the user currently subscribes to.
func (s *Store) ListUserPlatforms(ctx context.Context, userID string) ([]models.Platform, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT p.id, p.platform_slug, p.platform_name
		FROM user_platforms up
		JOIN platforms p ON p.id = up.platform_id
		WHERE up.user_id = ?
		ORDER BY p.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user platforms: %w", err)
	}
	defer rows.Close()

	var out []models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LatestBatchInRange returns the most recently generated suggestion batch for
// the user with generated_at inside [start, end], or nil when none exists.
func (s *Store) LatestBatchInRange(ctx context.Context, userID string, start, end time.Time) (*models.SuggestionBatch, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	var (
		b        models.SuggestionBatch
		itemsRaw string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, generated_at, expires_at, prompt, items
		FROM suggestion_batches
		WHERE user_id = ? AND generated_at >= ? AND generated_at <= ?
		ORDER BY generated_at DESC
		LIMIT 1`, userID, start, end).Scan(
		&b.ID, &b.UserID, &b.GeneratedAt, &b.ExpiresAt, &b.Prompt, &itemsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query suggestion batch: %w", err)
	}

	if err := json.Unmarshal([]byte(itemsRaw), &b.Items); err != nil {
		return nil, fmt.Errorf("decode batch items: %w", err)
	}
	return &b, nil
}

// InsertBatch persists a new suggestion batch for the given local calendar
// day. Returns ErrBatchExists when a batch for (user, day) is already present;
// with replace set the existing row is overwritten instead (cache bypass).
func (s *Store) InsertBatch(ctx context.Context, batch models.SuggestionBatch, day string, replace bool) error {
	if strings.TrimSpace(batch.UserID) == "" {
		return ErrUserIDRequired
	}

	items, err := json.Marshal(batch.Items)
	if err != nil {
		return fmt.Errorf("encode batch items: %w", err)
	}
	if batch.Items == nil {
		items = []byte("[]")
	}

	query := `
		INSERT INTO suggestion_batches (id, user_id, day, generated_at, expires_at, prompt, items)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if replace {
		query += `
		ON CONFLICT (user_id, day) DO UPDATE SET
			id = excluded.id,
			generated_at = excluded.generated_at,
			expires_at = excluded.expires_at,
			prompt = excluded.prompt,
			items = excluded.items`
	}

	_, err = s.q.ExecContext(ctx, query,
		batch.ID, batch.UserID, day, batch.GeneratedAt, batch.ExpiresAt, batch.Prompt, string(items))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrBatchExists
		}
		return fmt.Errorf("insert suggestion batch: %w", err)
	}
	return nil
}

// AvailabilityRow is one (title, platform) availability fact joined with its
// catalog title, the raw material the catalog builder groups from.
type AvailabilityRow struct {
	Movie        models.Movie
	PlatformID   int64
	PlatformName string
}

// AvailableMovieRows returns rows for titles available (is_available=1) on any
// of the given platforms, excluding the given tconsts, ordered by vote count
// (nulls last) then rating, both descending.
func (s *Store) AvailableMovieRows(ctx context.Context, platformIDs []int64, excluded []string) ([]AvailabilityRow, error) {
	if len(platformIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(platformIDs)+len(excluded))
	for _, id := range platformIDs {
		args = append(args, id)
	}
	query := `
		SELECT m.tconst, m.primary_title, m.start_year, m.genres, m.avg_rating, m.num_votes,
		       p.id, p.platform_name
		FROM movie_availability ma
		JOIN movies m ON m.tconst = ma.tconst
		JOIN platforms p ON p.id = ma.platform_id
		WHERE ma.is_available = 1
		  AND ma.platform_id IN (` + placeholders(len(platformIDs)) + `)`
	if len(excluded) > 0 {
		query += ` AND m.tconst NOT IN (` + placeholders(len(excluded)) + `)`
		for _, t := range excluded {
			args = append(args, t)
		}
	}
	query += `
		ORDER BY m.num_votes DESC NULLS LAST, m.avg_rating DESC NULLS LAST`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query available movies: %w", err)
	}
	defer rows.Close()

	var out []AvailabilityRow
	for rows.Next() {
		var (
			r         AvailabilityRow
			genresRaw sql.NullString
		)
		if err := rows.Scan(
			&r.Movie.Tconst, &r.Movie.PrimaryTitle, &r.Movie.StartYear, &genresRaw,
			&r.Movie.AvgRating, &r.Movie.NumVotes, &r.PlatformID, &r.PlatformName,
		); err != nil {
			return nil, fmt.Errorf("scan availability row: %w", err)
		}
		r.Movie.Genres = decodeGenres(genresRaw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MovieAvailability returns live is_available=true entries for one title
// restricted to the given platforms.
func (s *Store) MovieAvailability(ctx context.Context, tconst string, platformIDs []int64) ([]models.PlatformAvailability, error) {
	if strings.TrimSpace(tconst) == "" {
		return nil, ErrTconstRequired
	}
	if len(platformIDs) == 0 {
		return nil, nil
	}

	args := []any{tconst}
	for _, id := range platformIDs {
		args = append(args, id)
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT ma.platform_id, p.platform_name
		FROM movie_availability ma
		JOIN platforms p ON p.id = ma.platform_id
		WHERE ma.tconst = ? AND ma.is_available = 1
		  AND ma.platform_id IN (`+placeholders(len(platformIDs))+`)
		ORDER BY ma.platform_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query movie availability: %w", err)
	}
	defer rows.Close()

	var out []models.PlatformAvailability
	for rows.Next() {
		entry := models.PlatformAvailability{IsAvailable: true}
		if err := rows.Scan(&entry.PlatformID, &entry.PlatformName); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// AppendIntegrationError records an external API failure. Callers treat this
// as best-effort; a failed append must never fail the request.
func (s *Store) AppendIntegrationError(ctx context.Context, rec models.IntegrationError) error {
	details := "{}"
	if rec.Details != nil {
		raw, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("encode error details: %w", err)
		}
		details = string(raw)
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO integration_errors (api_type, error_message, error_details, user_id, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.APIType, rec.Message, details, nullString(rec.UserID), rec.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert integration error: %w", err)
	}
	return nil
}

// CountIntegrationErrors returns the number of logged errors for an api type.
func (s *Store) CountIntegrationErrors(ctx context.Context, apiType string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM integration_errors WHERE api_type = ?`, apiType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count integration errors: %w", err)
	}
	return n, nil
}

// --- catalog and library mutations (profile management, seeding) ---

// UpsertPlatform inserts or updates a platform by slug and returns its id.
func (s *Store) UpsertPlatform(ctx context.Context, slug, name string) (int64, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return 0, errors.New("platform slug is required")
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO platforms (platform_slug, platform_name) VALUES (?, ?)
		ON CONFLICT (platform_slug) DO UPDATE SET platform_name = excluded.platform_name`,
		slug, name)
	if err != nil {
		return 0, fmt.Errorf("upsert platform: %w", err)
	}

	var id int64
	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM platforms WHERE platform_slug = ?`, slug).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve platform id: %w", err)
	}
	return id, nil
}

// UpsertMovie inserts or updates a catalog title.
func (s *Store) UpsertMovie(ctx context.Context, m models.Movie) error {
	if strings.TrimSpace(m.Tconst) == "" {
		return ErrTconstRequired
	}

	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return fmt.Errorf("encode genres: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO movies (tconst, primary_title, start_year, genres, avg_rating, num_votes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (tconst) DO UPDATE SET
			primary_title = excluded.primary_title,
			start_year = excluded.start_year,
			genres = excluded.genres,
			avg_rating = excluded.avg_rating,
			num_votes = excluded.num_votes,
			updated_at = CURRENT_TIMESTAMP`,
		m.Tconst, m.PrimaryTitle, m.StartYear, string(genres), m.AvgRating, m.NumVotes)
	if err != nil {
		return fmt.Errorf("upsert movie: %w", err)
	}
	return nil
}

// SetAvailability records an availability fact for a (title, platform) pair.
func (s *Store) SetAvailability(ctx context.Context, av models.MovieAvailability) error {
	if strings.TrimSpace(av.Tconst) == "" {
		return ErrTconstRequired
	}
	if av.LastChecked.IsZero() {
		av.LastChecked = time.Now()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO movie_availability (tconst, platform_id, is_available, last_checked, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tconst, platform_id) DO UPDATE SET
			is_available = excluded.is_available,
			last_checked = excluded.last_checked,
			source = excluded.source`,
		av.Tconst, av.PlatformID, av.IsAvailable, av.LastChecked, av.Source)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

// SetUserPlatforms replaces the user's platform subscriptions.
func (s *Store) SetUserPlatforms(ctx context.Context, userID string, platformIDs []int64) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_platforms WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear user platforms: %w", err)
	}
	for _, id := range platformIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_platforms (user_id, platform_id) VALUES (?, ?)`,
			userID, id); err != nil {
			return fmt.Errorf("insert user platform: %w", err)
		}
	}

	return tx.Commit()
}

// AddToWatchlist puts a title on the user's watchlist, reviving a previously
// removed entry.
func (s *Store) AddToWatchlist(ctx context.Context, userID, tconst string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(tconst) == "" {
		return ErrTconstRequired
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_movies (user_id, tconst, watchlisted_at, watchlist_removed_at)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT (user_id, tconst) DO UPDATE SET
			watchlisted_at = excluded.watchlisted_at,
			watchlist_removed_at = NULL`,
		userID, tconst, now)
	if err != nil {
		return fmt.Errorf("add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist soft-deletes a watchlist entry. The watched timestamp,
// if any, is untouched.
func (s *Store) RemoveFromWatchlist(ctx context.Context, userID, tconst string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(tconst) == "" {
		return ErrTconstRequired
	}

	_, err := s.q.ExecContext(ctx, `
		UPDATE user_movies SET watchlist_removed_at = ?
		WHERE user_id = ? AND tconst = ? AND watchlisted_at IS NOT NULL`,
		now, userID, tconst)
	if err != nil {
		return fmt.Errorf("remove from watchlist: %w", err)
	}
	return nil
}

// MarkWatched records that the user watched a title.
func (s *Store) MarkWatched(ctx context.Context, userID, tconst string, now time.Time) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(tconst) == "" {
		return ErrTconstRequired
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO user_movies (user_id, tconst, watched_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, tconst) DO UPDATE SET watched_at = excluded.watched_at`,
		userID, tconst, now)
	if err != nil {
		return fmt.Errorf("mark watched: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func decodeGenres(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw.String), &genres); err != nil {
		return nil
	}
	return genres
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
