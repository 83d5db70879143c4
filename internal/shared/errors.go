package shared

import "fmt"

var (
	// Request validation errors
	ErrBadRequest     = fmt.Errorf("bad request")
	ErrInvalidConfig  = fmt.Errorf("invalid configuration")
	ErrNoRefreshToken = fmt.Errorf("no refresh token provided")

	// Provider errors
	ErrProviderFailed    = fmt.Errorf("spotify request failed")
	ErrMalformedResponse = fmt.Errorf("malformed provider response")

	// Store errors
	ErrUserNotFound     = fmt.Errorf("user not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrHistoryNotFound  = fmt.Errorf("history entry not found")
	ErrConflict         = fmt.Errorf("record already exists")
)
