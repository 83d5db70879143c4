package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/shared"
)

// UserRepository persists OAuth credentials for [models.User], keyed by
// Spotify id. It is a pure persistence boundary: the upsert decision
// lives with the caller.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given
// database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindBySpotifyID retrieves the credential for a Spotify account.
// Returns [shared.ErrUserNotFound] when no row exists.
func (r *UserRepository) FindBySpotifyID(spotifyID string) (*models.User, error) {
	query := `
		SELECT id, spotify_id, email, display_name, access_token, refresh_token,
		       expires_in, scope, token_type, created_at, updated_at
		FROM users
		WHERE spotify_id = ?
	`

	var (
		user        models.User
		email       sql.NullString
		displayName sql.NullString
		scope       sql.NullString
		tokenType   sql.NullString
	)

	err := r.db.QueryRow(query, spotifyID).Scan(
		&user.ID,
		&user.SpotifyID,
		&email,
		&displayName,
		&user.AccessToken,
		&user.RefreshToken,
		&user.ExpiresIn,
		&scope,
		&tokenType,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, spotifyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.Email = email.String
	user.DisplayName = displayName.String
	user.Scope = scope.String
	user.TokenType = tokenType.String

	return &user, nil
}

// Create inserts a new credential with a generated id and timestamps.
// Returns [shared.ErrConflict] when a row for the same Spotify id
// already exists.
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.ID = shared.GenerateID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, spotify_id, email, display_name, access_token, refresh_token,
		                   expires_in, scope, token_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		user.ID,
		user.SpotifyID,
		user.Email,
		user.DisplayName,
		user.AccessToken,
		user.RefreshToken,
		user.ExpiresIn,
		user.Scope,
		user.TokenType,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: spotify id %s", shared.ErrConflict, user.SpotifyID)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdateToken updates the token fields and updated_at for an existing
// credential, keyed by Spotify id. Profile columns are left untouched.
// Returns [shared.ErrUserNotFound] when no row matches.
func (r *UserRepository) UpdateToken(user *models.User) error {
	now := time.Now().UTC()
	user.UpdatedAt = now

	query := `
		UPDATE users
		SET access_token = ?, refresh_token = ?, expires_in = ?, updated_at = ?
		WHERE spotify_id = ?
	`

	result, err := r.db.Exec(query,
		user.AccessToken,
		user.RefreshToken,
		user.ExpiresIn,
		now,
		user.SpotifyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user.SpotifyID)
	}

	return nil
}
