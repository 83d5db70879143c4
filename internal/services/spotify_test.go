package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidalwav/recast/internal/shared"
	apptest "github.com/tidalwav/recast/internal/testing"
)

func TestNewSpotifyAuthService(t *testing.T) {
	t.Run("RequiresCredentials", func(t *testing.T) {
		_, err := NewSpotifyAuthService(shared.SpotifyConfig{ClientID: "id"})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)

		_, err = NewSpotifyAuthService(shared.SpotifyConfig{ClientSecret: "secret"})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("DefaultsToPublicEndpoints", func(t *testing.T) {
		svc, err := NewSpotifyAuthService(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})
		require.NoError(t, err)

		url := svc.AuthCodeURL("state-token")
		assert.Contains(t, url, "accounts.spotify.com/authorize")
	})
}

func TestAuthCodeURL(t *testing.T) {
	svc, err := NewSpotifyAuthService(apptest.ProviderConfig("http://stub"))
	require.NoError(t, err)

	url := svc.AuthCodeURL("state-token")
	assert.Contains(t, url, "client_id=client-id")
	assert.Contains(t, url, "state=state-token")
	assert.Contains(t, url, "user-read-private")
	assert.Contains(t, url, "response_type=code")
}

func TestExchangeCode(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotGrant, gotCode string
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			require.True(t, ok, "token request must carry basic auth")
			assert.Equal(t, "client-id", username)
			assert.Equal(t, "client-secret", password)

			require.NoError(t, r.ParseForm())
			gotGrant = r.PostForm.Get("grant_type")
			gotCode = r.PostForm.Get("code")

			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "AT1",
				"token_type":    "Bearer",
				"scope":         "user-read-private",
				"expires_in":    3600,
				"refresh_token": "RT1",
			})
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		token, err := svc.ExchangeCode(context.Background(), "auth-code")
		require.NoError(t, err)

		assert.Equal(t, "authorization_code", gotGrant)
		assert.Equal(t, "auth-code", gotCode)
		assert.Equal(t, "AT1", token.AccessToken)
		assert.Equal(t, "RT1", token.RefreshToken)
		assert.Equal(t, 3600, token.ExpiresIn)
	})

	t.Run("ProviderError", func(t *testing.T) {
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, err = svc.ExchangeCode(context.Background(), "bad-code")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrProviderFailed)

		var providerErr *ProviderError
		require.True(t, errors.As(err, &providerErr))
		assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
		assert.JSONEq(t, `{"error":"invalid_grant"}`, string(providerErr.Body))
	})

	t.Run("MissingRefreshToken", func(t *testing.T) {
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "AT1", "expires_in": 3600})
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, err = svc.ExchangeCode(context.Background(), "auth-code")
		assert.ErrorIs(t, err, shared.ErrMalformedResponse)
	})

	t.Run("MissingAccessToken", func(t *testing.T) {
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"refresh_token": "RT1"})
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, err = svc.ExchangeCode(context.Background(), "auth-code")
		assert.ErrorIs(t, err, shared.ErrMalformedResponse)
	})
}

func TestExchangeRefreshToken(t *testing.T) {
	t.Run("WithoutRotation", func(t *testing.T) {
		body := `{"access_token":"AT2","token_type":"Bearer","expires_in":3600,"scope":"user-read-private"}`
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "RT1", r.PostForm.Get("refresh_token"))
			w.Write([]byte(body))
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		token, raw, err := svc.ExchangeRefreshToken(context.Background(), "RT1")
		require.NoError(t, err)

		assert.Equal(t, "AT2", token.AccessToken)
		assert.Empty(t, token.RefreshToken)
		assert.Equal(t, body, string(raw))
	})

	t.Run("ForwardsProviderFailure", func(t *testing.T) {
		provider := apptest.NewProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		}, nil)

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, _, err = svc.ExchangeRefreshToken(context.Background(), "RT1")

		var providerErr *ProviderError
		require.True(t, errors.As(err, &providerErr))
		assert.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
	})
}

func TestFetchProfile(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		provider := apptest.NewProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer AT1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{
				"id":           "spotify-123",
				"email":        "listener@example.com",
				"display_name": "Listener",
			})
		})

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		profile, err := svc.FetchProfile(context.Background(), "AT1")
		require.NoError(t, err)

		assert.Equal(t, "spotify-123", profile.ID)
		assert.Equal(t, "listener@example.com", profile.Email)
		assert.Equal(t, "Listener", profile.DisplayName)
	})

	t.Run("MissingID", func(t *testing.T) {
		provider := apptest.NewProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"email": "listener@example.com"})
		})

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, err = svc.FetchProfile(context.Background(), "AT1")
		assert.ErrorIs(t, err, shared.ErrMalformedResponse)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		provider := apptest.NewProvider(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
		})

		svc, err := NewSpotifyAuthService(apptest.ProviderConfig(provider.URL))
		require.NoError(t, err)

		_, err = svc.FetchProfile(context.Background(), "expired")
		assert.ErrorIs(t, err, shared.ErrProviderFailed)
	})
}
