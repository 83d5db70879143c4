// package services implements the outbound Spotify clients.
//
// Endpoint shapes follow https://developer.spotify.com/documentation/web-api
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidalwav/recast/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// requestTimeout bounds every outbound call; expiry surfaces as a
	// provider error rather than blocking the handling request.
	requestTimeout = 10 * time.Second

	// outboundRate caps token and profile calls per second.
	outboundRate = 10
)

// authScopes is the full capability set the application requests during
// login: profile, playlists, library, top items, playback and follows.
var authScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
	"user-top-read",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-follow-read",
	"user-follow-modify",
}

// TokenResponse is the payload of Spotify's token endpoint for both the
// authorization_code and refresh_token grants. RefreshToken may be empty
// on refresh: Spotify does not guarantee rotation.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Profile is the subset of Spotify's /me response the backend keeps.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// ProviderError carries the status and body of a non-success Spotify
// response so callers can forward them verbatim.
type ProviderError struct {
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("spotify returned status %d", e.StatusCode)
}

// Unwrap lets callers branch with errors.Is(err, shared.ErrProviderFailed).
func (e *ProviderError) Unwrap() error {
	return shared.ErrProviderFailed
}

// SpotifyAuthService performs the OAuth token and profile calls against
// Spotify. It is stateless: credentials are injected at construction and
// never mutated.
type SpotifyAuthService struct {
	config     *oauth2.Config
	tokenURL   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyAuthService creates a Spotify auth client from the given
// configuration. Endpoint URLs default to the public Spotify endpoints
// when the config leaves them empty.
func NewSpotifyAuthService(cfg shared.SpotifyConfig) (*SpotifyAuthService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrInvalidConfig)
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       authScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}

	return &SpotifyAuthService{
		config:     config,
		tokenURL:   tokenURL,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(outboundRate), 1),
	}, nil
}

// AuthCodeURL returns the provider authorization URL for user login,
// embedding the client id, redirect URI, scope list and anti-forgery
// state token.
func (s *SpotifyAuthService) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens via a
// form-encoded POST with HTTP Basic client credentials.
//
// A non-success status yields a [ProviderError]; a success response
// missing the access or refresh token yields
// [shared.ErrMalformedResponse].
func (s *SpotifyAuthService) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.config.RedirectURL)

	token, _, err := s.postTokenRaw(ctx, form)
	if err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token missing from code exchange", shared.ErrMalformedResponse)
	}

	return token, nil
}

// ExchangeRefreshToken obtains a new access token for the given refresh
// token. The raw response body is returned alongside the parsed token so
// the refresh endpoint can forward it to the caller unchanged. Spotify
// may omit refresh_token in the response; callers must keep the previous
// one in that case.
func (s *SpotifyAuthService) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, []byte, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	return s.postTokenRaw(ctx, form)
}

// FetchProfile retrieves the authenticated user's profile with Bearer
// auth. A success response without an id yields
// [shared.ErrMalformedResponse].
func (s *SpotifyAuthService) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: id missing from profile", shared.ErrMalformedResponse)
	}

	return &profile, nil
}

// postTokenRaw issues a form POST to the token endpoint with Basic client
// credentials and decodes the response, returning the raw body as well.
func (s *SpotifyAuthService) postTokenRaw(ctx context.Context, form url.Values) (*TokenResponse, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrProviderFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, body, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, body, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	if token.AccessToken == "" {
		return nil, body, fmt.Errorf("%w: access_token missing", shared.ErrMalformedResponse)
	}

	return &token, body, nil
}
