// package testing contains shared testing utilities
package testing

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidalwav/recast/internal/shared"
)

// MustOpenDB opens an in-memory database with migrations applied. The
// single-connection pool keeps the :memory: database alive across
// queries. The database is closed when the test finishes.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// NewProvider starts a stub OAuth provider serving the token and profile
// endpoints from the given handlers. Nil handlers leave the endpoint
// unregistered. The server is closed when the test finishes.
func NewProvider(t *testing.T, token, profile http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	if token != nil {
		mux.HandleFunc("/api/token", token)
	}
	if profile != nil {
		mux.HandleFunc("/me", profile)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// ProviderConfig returns a SpotifyConfig pointed at a stub provider
// running at baseURL.
func ProviderConfig(baseURL string) shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:5000/api/spotify/callback",
		AuthURL:      baseURL + "/authorize",
		TokenURL:     baseURL + "/api/token",
		APIBaseURL:   baseURL,
	}
}
