package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/shared"
)

// PlaylistRepository persists [models.Playlist] and its tracks.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new [PlaylistRepository] with the given
// database connection.
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist with a generated id and timestamp.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	playlist.ID = shared.GenerateID()
	playlist.CreateDt = time.Now().UTC()

	query := `
		INSERT INTO playlists (id, user_id, title, thumbnail_url, total_tracks, create_dt)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		playlist.ID,
		playlist.UserID,
		playlist.Title,
		playlist.ThumbnailURL,
		playlist.TotalTracks,
		playlist.CreateDt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by id. Returns [shared.ErrPlaylistNotFound]
// when no row exists.
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `
		SELECT id, user_id, title, thumbnail_url, total_tracks, create_dt
		FROM playlists
		WHERE id = ?
	`

	playlist, err := scanPlaylist(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}

	return playlist, nil
}

// ListByUser retrieves a user's playlists, newest first.
func (r *PlaylistRepository) ListByUser(userID string) ([]*models.Playlist, error) {
	query := `
		SELECT id, user_id, title, thumbnail_url, total_tracks, create_dt
		FROM playlists
		WHERE user_id = ?
		ORDER BY create_dt DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Rename updates a playlist's title. Returns
// [shared.ErrPlaylistNotFound] when no row matches.
func (r *PlaylistRepository) Rename(id, title string) error {
	result, err := r.db.Exec("UPDATE playlists SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return requireRows(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id))
}

// Delete removes a playlist; its tracks cascade. Returns
// [shared.ErrPlaylistNotFound] when no row matches.
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return requireRows(result, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id))
}

// Tracks retrieves the track rows of a playlist in insertion order.
func (r *PlaylistRepository) Tracks(playlistID string) ([]*models.PlaylistTrack, error) {
	query := `
		SELECT id, playlist_id, track_id, title, artist_ids, artist_names,
		       preview_url, album_image_url, duration_ms
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY rowid ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	tracks := []*models.PlaylistTrack{}
	for rows.Next() {
		var (
			track         models.PlaylistTrack
			title         sql.NullString
			artistIDs     sql.NullString
			artistNames   sql.NullString
			previewURL    sql.NullString
			albumImageURL sql.NullString
		)

		err := rows.Scan(
			&track.ID,
			&track.PlaylistID,
			&track.TrackID,
			&title,
			&artistIDs,
			&artistNames,
			&previewURL,
			&albumImageURL,
			&track.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
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

// AddTrack appends a track row to a playlist and bumps its total_tracks
// counter.
func (r *PlaylistRepository) AddTrack(track *models.PlaylistTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	track.ID = shared.GenerateID()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO playlist_tracks (id, playlist_id, track_id, title, artist_ids,
		                             artist_names, preview_url, album_image_url, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		track.ID,
		track.PlaylistID,
		track.TrackID,
		track.Title,
		track.ArtistIDs,
		track.ArtistNames,
		track.PreviewURL,
		track.AlbumImageURL,
		track.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist track: %w", err)
	}

	if _, err := tx.Exec("UPDATE playlists SET total_tracks = total_tracks + 1 WHERE id = ?", track.PlaylistID); err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}

	return tx.Commit()
}

// DeleteTrack removes one track row from a playlist and decrements its
// total_tracks counter. Returns [shared.ErrTrackNotFound] when no row
// matches.
func (r *PlaylistRepository) DeleteTrack(id, playlistID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM playlist_tracks WHERE id = ? AND playlist_id = ?", id, playlistID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}

	if _, err := tx.Exec("UPDATE playlists SET total_tracks = total_tracks - 1 WHERE id = ? AND total_tracks > 0", playlistID); err != nil {
		return fmt.Errorf("failed to update track count: %w", err)
	}

	return tx.Commit()
}

// scanPlaylist reads one playlist row from a row scanner.
func scanPlaylist(row interface{ Scan(...any) error }) (*models.Playlist, error) {
	var (
		playlist     models.Playlist
		thumbnailURL sql.NullString
	)

	err := row.Scan(
		&playlist.ID,
		&playlist.UserID,
		&playlist.Title,
		&thumbnailURL,
		&playlist.TotalTracks,
		&playlist.CreateDt,
	)
	if err != nil {
		return nil, err
	}

	playlist.ThumbnailURL = thumbnailURL.String
	return &playlist, nil
}

// requireRows returns notFound when the statement affected zero rows.
func requireRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
