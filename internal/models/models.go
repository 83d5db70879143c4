// package models defines the data model for the recommendation backend.
//
// All persisted entities serialize to JSON with the field names the
// frontend expects (camelCase).
package models

import (
	"fmt"
	"time"
)

// User holds a Spotify account's OAuth credentials alongside the profile
// subset the backend keeps. SpotifyID is the sole identity anchor: a row
// is created once via the callback flow and only mutated afterwards.
type User struct {
	ID           string    `json:"id"`
	SpotifyID    string    `json:"spotifyId"`
	Email        string    `json:"email,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks that the credential can be persisted.
func (u *User) Validate() error {
	if u.SpotifyID == "" {
		return fmt.Errorf("spotify id is required")
	}
	if u.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}

// Playlist is a user-curated track collection.
type Playlist struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	TotalTracks  int       `json:"totalTracks"`
	CreateDt     time.Time `json:"createDt"`
}

// Validate checks that the playlist can be persisted.
func (p *Playlist) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// PlaylistTrack is one track row inside a playlist. Artist ids and names
// are stored as comma-separated strings, mirroring the upstream payload.
type PlaylistTrack struct {
	ID            string `json:"id"`
	PlaylistID    string `json:"playlistId"`
	TrackID       string `json:"trackId"`
	Title         string `json:"title"`
	ArtistIDs     string `json:"artistIds,omitempty"`
	ArtistNames   string `json:"artistNames,omitempty"`
	PreviewURL    string `json:"previewUrl,omitempty"`
	AlbumImageURL string `json:"albumImageUrl,omitempty"`
	DurationMS    int    `json:"durationMs"`
}

// Validate checks that the track row can be persisted.
func (t *PlaylistTrack) Validate() error {
	if t.PlaylistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if t.TrackID == "" {
		return fmt.Errorf("track id is required")
	}
	return nil
}

// Recommendation is the seed data a recommendation run was based on.
// RecommendationType is "track", "playlist" or "my".
type Recommendation struct {
	RecommendationID   string    `json:"recommendationId"`
	UserID             string    `json:"userId"`
	UniqueID           string    `json:"uniqueId,omitempty"`
	Title              string    `json:"title,omitempty"`
	RecommendationType string    `json:"recommendationType,omitempty"`
	TrackIDs           string    `json:"trackIds,omitempty"`
	ArtistIDs          string    `json:"artistIds,omitempty"`
	ArtistNames        string    `json:"artistNames,omitempty"`
	ArtistGenres       string    `json:"artistGenres,omitempty"`
	AlbumImageURL      string    `json:"albumImageUrl,omitempty"`
	CreateDt           time.Time `json:"createDt"`
	UpdateDt           time.Time `json:"updateDt"`
}

// Validate checks that the recommendation seed can be persisted.
func (r *Recommendation) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// RecommendationTrack is one track in a recommendation's result set.
type RecommendationTrack struct {
	ID               string `json:"id"`
	RecommendationID string `json:"recommendationId"`
	TrackID          string `json:"trackId"`
	Title            string `json:"title"`
	ArtistIDs        string `json:"artistIds,omitempty"`
	ArtistNames      string `json:"artistNames,omitempty"`
	PreviewURL       string `json:"previewUrl,omitempty"`
	AlbumImageURL    string `json:"albumImageUrl,omitempty"`
	DurationMS       int    `json:"durationMs"`
}

// Validate checks that the result track can be persisted.
func (t *RecommendationTrack) Validate() error {
	if t.RecommendationID == "" {
		return fmt.Errorf("recommendation id is required")
	}
	if t.TrackID == "" {
		return fmt.Errorf("track id is required")
	}
	return nil
}
