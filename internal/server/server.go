// package server contains the HTTP surface of the recommendation backend:
// routing, middleware and the request handlers.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/tidalwav/recast/internal/shared"
)

// Handler is implemented by every route group in this package. Mount
// registers the group's routes on the router.
type Handler interface {
	Mount(r chi.Router)
}

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	config *shared.Config
	logger *log.Logger
	router chi.Router
}

// New builds a Server with the standard middleware stack and mounts the
// given handlers.
func New(config *shared.Config, logger *log.Logger, handlers ...Handler) *Server {
	router := chi.NewRouter()
	router.Use(RequestLogger(logger))
	router.Use(Recoverer(logger))
	router.Use(CORS())

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, h := range handlers {
		h.Mount(router)
	}

	return &Server{
		config: config,
		logger: logger,
		router: router,
	}
}

// Router exposes the assembled router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
