package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/repositories"
)

// RecommendationHandler stores recommendation seeds and their result
// track lists. The recommendation computation itself happens in the
// frontend against the Spotify API; this backend keeps the data.
type RecommendationHandler struct {
	recommendations *repositories.RecommendationRepository
	logger          *log.Logger
}

// NewRecommendationHandler creates a RecommendationHandler.
func NewRecommendationHandler(recommendations *repositories.RecommendationRepository, logger *log.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommendations: recommendations, logger: logger}
}

// Mount registers the recommendation routes.
func (h *RecommendationHandler) Mount(r chi.Router) {
	r.Route("/api/recommendation", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/tracks/save", h.SaveTracks)
		r.Get("/{recommendationID}/tracks", h.Tracks)
		r.Get("/{recommendationID}", h.Get)
	})
}

// Create stores the seed data a recommendation run is based on.
func (h *RecommendationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.Recommendation
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.recommendations.Create(&rec); err != nil {
		h.logger.Error("failed to create recommendation", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// Get returns a stored recommendation seed.
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recommendations.Get(chi.URLParam(r, "recommendationID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// SaveTracks stores a recommendation's result track list.
func (h *RecommendationHandler) SaveTracks(w http.ResponseWriter, r *http.Request) {
	var tracks []*models.RecommendationTrack
	if err := json.NewDecoder(r.Body).Decode(&tracks); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.recommendations.SaveTracks(tracks); err != nil {
		h.logger.Error("failed to save recommendation tracks", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "tracks saved"})
}

// Tracks returns a recommendation's result track list.
func (h *RecommendationHandler) Tracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.recommendations.TracksByRecommendationID(chi.URLParam(r, "recommendationID"))
	if err != nil {
		h.logger.Error("failed to list recommendation tracks", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}
