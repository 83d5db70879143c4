package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/tidalwav/recast/internal/repositories"
)

// HistoryHandler serves a user's recommendation history. It reads the
// same table the recommendation endpoints write.
type HistoryHandler struct {
	recommendations *repositories.RecommendationRepository
	logger          *log.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(recommendations *repositories.RecommendationRepository, logger *log.Logger) *HistoryHandler {
	return &HistoryHandler{recommendations: recommendations, logger: logger}
}

// Mount registers the history routes.
func (h *HistoryHandler) Mount(r chi.Router) {
	r.Route("/api/history", func(r chi.Router) {
		r.Get("/{userID}", h.List)
		r.Delete("/{recommendationID}", h.Delete)
	})
}

// List returns a user's recommendation history, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	history, err := h.recommendations.HistoryByUser(chi.URLParam(r, "userID"))
	if err != nil {
		h.logger.Error("failed to list history", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// Delete removes one history entry and its stored tracks.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.recommendations.Delete(chi.URLParam(r, "recommendationID")); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "history deleted"})
}
