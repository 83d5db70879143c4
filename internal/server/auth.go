package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/repositories"
	"github.com/tidalwav/recast/internal/services"
	"github.com/tidalwav/recast/internal/shared"
)

// stateTTL bounds how long an issued login state token stays valid.
// A token is deleted on first use, so each authorize URL works once.
const stateTTL = 10 * time.Minute

// AuthHandler drives the Spotify authorization-code flow: it issues the
// login redirect, handles the provider callback (token exchange, profile
// fetch, credential upsert, frontend redirect) and serves token refresh.
type AuthHandler struct {
	spotify  *services.SpotifyAuthService
	users    *repositories.UserRepository
	states   *cache.Cache
	frontURI string
	logger   *log.Logger
}

// NewAuthHandler creates an AuthHandler. frontURI is where the callback
// redirects the browser after success or failure.
func NewAuthHandler(spotify *services.SpotifyAuthService, users *repositories.UserRepository, frontURI string, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		spotify:  spotify,
		users:    users,
		states:   cache.New(stateTTL, stateTTL),
		frontURI: frontURI,
		logger:   logger,
	}
}

// Mount registers the auth routes.
func (h *AuthHandler) Mount(r chi.Router) {
	r.Get("/api/spotify/login", h.Login)
	r.Get("/api/spotify/callback", h.Callback)
	r.Post("/api/auth/refresh", h.Refresh)
}

// Login redirects the browser to the Spotify authorization page with a
// freshly issued anti-forgery state token. The store is not touched.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	h.states.Set(state, struct{}{}, cache.DefaultExpiration)

	http.Redirect(w, r, h.spotify.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the authorization-code flow. Any failure along the
// way redirects the browser to the frontend with a failure marker and
// never exposes partial credentials; the credential row is written only
// after both the token exchange and the profile fetch succeed.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("spotify denied authorization", "error", errParam)
		h.failRedirect(w, r)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("callback without authorization code")
		h.failRedirect(w, r)
		return
	}

	state := q.Get("state")
	if _, ok := h.states.Get(state); !ok {
		h.logger.Warn("callback with unknown state token")
		h.failRedirect(w, r)
		return
	}
	h.states.Delete(state)

	token, err := h.spotify.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "error", err)
		h.failRedirect(w, r)
		return
	}

	profile, err := h.spotify.FetchProfile(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("profile fetch failed", "error", err)
		h.failRedirect(w, r)
		return
	}

	if err := h.upsertCredential(token, profile); err != nil {
		h.logger.Error("failed to persist credential", "spotify_id", profile.ID, "error", err)
		h.failRedirect(w, r)
		return
	}

	redirect := fmt.Sprintf("%s?access_token=%s&refresh_token=%s&spotify_id=%s&expires_in=%d&token_type=%s",
		h.frontURI,
		url.QueryEscape(token.AccessToken),
		url.QueryEscape(token.RefreshToken),
		url.QueryEscape(profile.ID),
		token.ExpiresIn,
		url.QueryEscape(token.TokenType),
	)

	h.logger.Info("login complete", "spotify_id", profile.ID)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// upsertCredential stores the token set for the profile's Spotify id:
// existing rows get their tokens and expiry refreshed, unknown ids get a
// full new row.
func (h *AuthHandler) upsertCredential(token *services.TokenResponse, profile *services.Profile) error {
	user, err := h.users.FindBySpotifyID(profile.ID)

	switch {
	case err == nil:
		user.AccessToken = token.AccessToken
		user.RefreshToken = token.RefreshToken
		user.ExpiresIn = token.ExpiresIn
		return h.users.UpdateToken(user)

	case errors.Is(err, shared.ErrUserNotFound):
		return h.users.Create(&models.User{
			SpotifyID:    profile.ID,
			Email:        profile.Email,
			DisplayName:  profile.DisplayName,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresIn:    token.ExpiresIn,
			Scope:        token.Scope,
			TokenType:    token.TokenType,
		})

	default:
		return err
	}
}

// Refresh exchanges a refresh token for a new access token and persists
// it. The provider's response body is returned to the caller verbatim,
// including on provider failure (status and body are forwarded).
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload models.User
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, shared.ErrNoRefreshToken.Error())
		return
	}

	token, raw, err := h.spotify.ExchangeRefreshToken(r.Context(), payload.RefreshToken)
	if err != nil {
		var providerErr *services.ProviderError
		if errors.As(err, &providerErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(providerErr.StatusCode)
			w.Write(providerErr.Body)
			return
		}

		h.logger.Error("token refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh access token")
		return
	}

	payload.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		// Spotify rotated the refresh token; keep the new one.
		payload.RefreshToken = token.RefreshToken
	}

	if err := h.users.UpdateToken(&payload); err != nil {
		// The token response still goes back to the caller when the
		// stored row is missing; the miss is only logged.
		h.logger.Warn("refresh for unknown credential", "spotify_id", payload.SpotifyID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// failRedirect sends the browser back to the frontend with a generic
// failure marker, hiding provider detail from the end user.
func (h *AuthHandler) failRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontURI+"?status=failed", http.StatusFound)
}
