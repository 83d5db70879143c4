package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/shared"
)

// RecommendationRepository persists recommendation seeds and their result
// track lists. The history endpoints read the same table, scoped by user.
type RecommendationRepository struct {
	db *sql.DB
}

// NewRecommendationRepository creates a new [RecommendationRepository]
// with the given database connection.
func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create inserts a recommendation seed. The caller may supply the
// recommendation id (the frontend generates one per run); an empty id is
// replaced with a generated one.
func (r *RecommendationRepository) Create(rec *models.Recommendation) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if rec.RecommendationID == "" {
		rec.RecommendationID = shared.GenerateID()
	}
	now := time.Now().UTC()
	rec.CreateDt = now
	rec.UpdateDt = now

	query := `
		INSERT INTO recommendations (recommendation_id, user_id, unique_id, title,
		                             recommendation_type, track_ids, artist_ids, artist_names,
		                             artist_genres, album_image_url, create_dt, update_dt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		rec.RecommendationID,
		rec.UserID,
		rec.UniqueID,
		rec.Title,
		rec.RecommendationType,
		rec.TrackIDs,
		rec.ArtistIDs,
		rec.ArtistNames,
		rec.ArtistGenres,
		rec.AlbumImageURL,
		rec.CreateDt,
		rec.UpdateDt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}

	return nil
}

// Get retrieves a recommendation seed by id. Returns
// [shared.ErrHistoryNotFound] when no row exists.
func (r *RecommendationRepository) Get(recommendationID string) (*models.Recommendation, error) {
	query := selectRecommendation + " WHERE recommendation_id = ?"

	rec, err := scanRecommendation(r.db.QueryRow(query, recommendationID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrHistoryNotFound, recommendationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation: %w", err)
	}

	return rec, nil
}

// SaveTracks stores a recommendation's result track list in one
// transaction.
func (r *RecommendationRepository) SaveTracks(tracks []*models.RecommendationTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recommendation_tracks (id, recommendation_id, track_id, title,
		                                   artist_ids, artist_names, preview_url,
		                                   album_image_url, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		track.ID = shared.GenerateID()
		_, err := tx.Exec(query,
			track.ID,
			track.RecommendationID,
			track.TrackID,
			track.Title,
			track.ArtistIDs,
			track.ArtistNames,
			track.PreviewURL,
			track.AlbumImageURL,
			track.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recommendation track: %w", err)
		}
	}

	return tx.Commit()
}

// TracksByRecommendationID retrieves a recommendation's result tracks in
// insertion order.
func (r *RecommendationRepository) TracksByRecommendationID(recommendationID string) ([]*models.RecommendationTrack, error) {
	query := `
		SELECT id, recommendation_id, track_id, title, artist_ids, artist_names,
		       preview_url, album_image_url, duration_ms
		FROM recommendation_tracks
		WHERE recommendation_id = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.Query(query, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation tracks: %w", err)
	}
	defer rows.Close()

	tracks := []*models.RecommendationTrack{}
	for rows.Next() {
		var (
			track         models.RecommendationTrack
			title         sql.NullString
			artistIDs     sql.NullString
			artistNames   sql.NullString
			previewURL    sql.NullString
			albumImageURL sql.NullString
		)

		err := rows.Scan(
			&track.ID,
			&track.RecommendationID,
			&track.TrackID,
			&title,
			&artistIDs,
			&artistNames,
			&previewURL,
			&albumImageURL,
			&track.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation track: %w", err)
		}

		track.Title = title.String
		track.ArtistIDs = artistIDs.String
		track.ArtistNames = artistNames.String
		track.PreviewURL = previewURL.String
		track.AlbumImageURL = albumImageURL.String
		tracks = append(tracks, &track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// HistoryByUser retrieves a user's recommendation history, newest first.
func (r *RecommendationRepository) HistoryByUser(userID string) ([]*models.Recommendation, error) {
	query := selectRecommendation + " WHERE user_id = ? ORDER BY create_dt DESC"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []*models.Recommendation{}
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		history = append(history, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return history, nil
}

// Delete removes a recommendation and its result tracks (cascade).
// Returns [shared.ErrHistoryNotFound] when no row matches.
func (r *RecommendationRepository) Delete(recommendationID string) error {
	result, err := r.db.Exec("DELETE FROM recommendations WHERE recommendation_id = ?", recommendationID)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}

	return requireRows(result, fmt.Errorf("%w: %s", shared.ErrHistoryNotFound, recommendationID))
}

const selectRecommendation = `
	SELECT recommendation_id, user_id, unique_id, title, recommendation_type,
	       track_ids, artist_ids, artist_names, artist_genres, album_image_url,
	       create_dt, update_dt
	FROM recommendations`

// scanRecommendation reads one recommendation row from a row scanner.
func scanRecommendation(row interface{ Scan(...any) error }) (*models.Recommendation, error) {
	var (
		rec           models.Recommendation
		uniqueID      sql.NullString
		title         sql.NullString
		recType       sql.NullString
		trackIDs      sql.NullString
		artistIDs     sql.NullString
		artistNames   sql.NullString
		artistGenres  sql.NullString
		albumImageURL sql.NullString
	)

	err := row.Scan(
		&rec.RecommendationID,
		&rec.UserID,
		&uniqueID,
		&title,
		&recType,
		&trackIDs,
		&artistIDs,
		&artistNames,
		&artistGenres,
		&albumImageURL,
		&rec.CreateDt,
		&rec.UpdateDt,
	)
	if err != nil {
		return nil, err
	}

	rec.UniqueID = uniqueID.String
	rec.Title = title.String
	rec.RecommendationType = recType.String
	rec.TrackIDs = trackIDs.String
	rec.ArtistIDs = artistIDs.String
	rec.ArtistNames = artistNames.String
	rec.ArtistGenres = artistGenres.String
	rec.AlbumImageURL = albumImageURL.String

	return &rec, nil
}
