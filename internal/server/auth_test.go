package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/repositories"
	"github.com/tidalwav/recast/internal/services"
	"github.com/tidalwav/recast/internal/shared"
	apptest "github.com/tidalwav/recast/internal/testing"
)

const frontURI = "http://front.example/callback"

// authEnv wires an AuthHandler against a stub provider and an in-memory
// database, exposing the assembled router for requests.
type authEnv struct {
	router http.Handler
	users  *repositories.UserRepository
}

func newAuthEnv(t *testing.T, token, profile http.HandlerFunc) *authEnv {
	t.Helper()

	provider := apptest.NewProvider(t, token, profile)
	spotify, err := services.NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
	require.NoError(t, err)

	db := apptest.MustOpenDB(t)
	users := repositories.NewUserRepository(db)
	logger := shared.NewLogger(io.Discard)

	srv := New(&shared.Config{}, logger, NewAuthHandler(spotify, users, frontURI, logger))
	return &authEnv{router: srv.Router(), users: users}
}

// login performs the login redirect and returns the issued state token.
func (e *authEnv) login(t *testing.T) string {
	t.Helper()

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func tokenResponse(accessToken, refreshToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"scope":        "user-read-private user-read-email",
			"expires_in":   3600,
		}
		if refreshToken != "" {
			payload["refresh_token"] = refreshToken
		}
		json.NewEncoder(w).Encode(payload)
	}
}

func profileResponse(id string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":           id,
			"email":        "listener@example.com",
			"display_name": "Listener",
		})
	}
}

func TestLogin(t *testing.T) {
	env := newAuthEnv(t, nil, nil)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/login", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "/authorize")
	assert.Contains(t, location, "client_id=client-id")
	assert.Contains(t, location, "state=")
}

func TestCallback(t *testing.T) {
	t.Run("CreatesNewCredential", func(t *testing.T) {
		env := newAuthEnv(t, tokenResponse("AT1", "RT1"), profileResponse("spotify-123"))
		state := env.login(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=auth-code&state="+state, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		location := rec.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, frontURI+"?"), "redirect should target the frontend: %s", location)
		assert.Contains(t, location, "access_token=AT1")
		assert.Contains(t, location, "refresh_token=RT1")
		assert.Contains(t, location, "spotify_id=spotify-123")
		assert.Contains(t, location, "expires_in=3600")

		user, err := env.users.FindBySpotifyID("spotify-123")
		require.NoError(t, err)
		assert.Equal(t, "AT1", user.AccessToken)
		assert.Equal(t, "RT1", user.RefreshToken)
		assert.Equal(t, "listener@example.com", user.Email)
		assert.Equal(t, "Listener", user.DisplayName)
	})

	t.Run("UpdatesExistingCredential", func(t *testing.T) {
		env := newAuthEnv(t, tokenResponse("AT2", "RT2"), profileResponse("spotify-123"))

		require.NoError(t, env.users.Create(&models.User{
			SpotifyID:    "spotify-123",
			Email:        "listener@example.com",
			AccessToken:  "AT1",
			RefreshToken: "RT1",
			ExpiresIn:    3600,
		}))

		state := env.login(t)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=auth-code&state="+state, nil))
		require.Equal(t, http.StatusFound, rec.Code)

		user, err := env.users.FindBySpotifyID("spotify-123")
		require.NoError(t, err)
		assert.Equal(t, "AT2", user.AccessToken)
		assert.Equal(t, "RT2", user.RefreshToken)
	})

	t.Run("ProviderDenialRedirectsFailed", func(t *testing.T) {
		env := newAuthEnv(t, nil, nil)
		state := env.login(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?error=access_denied&state="+state, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontURI+"?status=failed", rec.Header().Get("Location"))

		_, err := env.users.FindBySpotifyID("spotify-123")
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	})

	t.Run("MissingCodeRedirectsFailed", func(t *testing.T) {
		env := newAuthEnv(t, nil, nil)
		state := env.login(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?state="+state, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontURI+"?status=failed", rec.Header().Get("Location"))
	})

	t.Run("UnknownStateRedirectsFailed", func(t *testing.T) {
		env := newAuthEnv(t, tokenResponse("AT1", "RT1"), profileResponse("spotify-123"))

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=auth-code&state=forged", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontURI+"?status=failed", rec.Header().Get("Location"))
	})

	t.Run("StateIsSingleUse", func(t *testing.T) {
		env := newAuthEnv(t, tokenResponse("AT1", "RT1"), profileResponse("spotify-123"))
		state := env.login(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=auth-code&state="+state, nil))
		require.Equal(t, http.StatusFound, rec.Code)

		rec = httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=auth-code&state="+state, nil))
		assert.Equal(t, frontURI+"?status=failed", rec.Header().Get("Location"))
	})

	t.Run("ExchangeFailureRedirectsFailed", func(t *testing.T) {
		env := newAuthEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		}, nil)
		state := env.login(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/callback?code=bad-code&state="+state, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, frontURI+"?status=failed", rec.Header().Get("Location"))
	})
}

func TestRefresh(t *testing.T) {
	refreshBody := `{"access_token":"AT2","token_type":"Bearer","expires_in":3600,"scope":"user-read-private"}`

	seed := func(t *testing.T, env *authEnv) {
		t.Helper()
		require.NoError(t, env.users.Create(&models.User{
			SpotifyID:    "spotify-123",
			AccessToken:  "AT1",
			RefreshToken: "RT1",
			ExpiresIn:    3600,
		}))
	}

	post := func(env *authEnv, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		env.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("ForwardsProviderBodyAndPersists", func(t *testing.T) {
		env := newAuthEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(refreshBody))
		}, nil)
		seed(t, env)

		rec := post(env, `{"spotifyId":"spotify-123","refreshToken":"RT1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, refreshBody, rec.Body.String())

		user, err := env.users.FindBySpotifyID("spotify-123")
		require.NoError(t, err)
		assert.Equal(t, "AT2", user.AccessToken)
		assert.Equal(t, "RT1", user.RefreshToken, "refresh token should survive when the provider does not rotate it")
	})

	t.Run("PersistsRotatedRefreshToken", func(t *testing.T) {
		rotated := `{"access_token":"AT2","refresh_token":"RT2","token_type":"Bearer","expires_in":3600}`
		env := newAuthEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(rotated))
		}, nil)
		seed(t, env)

		rec := post(env, `{"spotifyId":"spotify-123","refreshToken":"RT1"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		user, err := env.users.FindBySpotifyID("spotify-123")
		require.NoError(t, err)
		assert.Equal(t, "RT2", user.RefreshToken)
	})

	t.Run("MissingRefreshToken", func(t *testing.T) {
		env := newAuthEnv(t, nil, nil)

		rec := post(env, `{"spotifyId":"spotify-123"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "no refresh token provided")
	})

	t.Run("ForwardsProviderFailure", func(t *testing.T) {
		env := newAuthEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid refresh token"}`))
		}, nil)
		seed(t, env)

		rec := post(env, `{"spotifyId":"spotify-123","refreshToken":"revoked"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"invalid_grant","error_description":"Invalid refresh token"}`, rec.Body.String())

		user, err := env.users.FindBySpotifyID("spotify-123")
		require.NoError(t, err)
		assert.Equal(t, "AT1", user.AccessToken, "failed refresh should not touch the stored credential")
	})

	t.Run("UnknownCredentialStillReturnsToken", func(t *testing.T) {
		env := newAuthEnv(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(refreshBody))
		}, nil)

		rec := post(env, `{"spotifyId":"unknown","refreshToken":"RT1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, refreshBody, rec.Body.String())
	})
}
