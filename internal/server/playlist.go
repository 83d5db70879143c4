package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/tidalwav/recast/internal/models"
	"github.com/tidalwav/recast/internal/repositories"
)

// PlaylistHandler serves playlist CRUD for the frontend.
type PlaylistHandler struct {
	playlists *repositories.PlaylistRepository
	logger    *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(playlists *repositories.PlaylistRepository, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, logger: logger}
}

// Mount registers the playlist routes.
func (h *PlaylistHandler) Mount(r chi.Router) {
	r.Route("/api/playlist", func(r chi.Router) {
		r.Post("/create", h.Create)
		r.Get("/detail/{playlistID}", h.Detail)
		r.Post("/track/save", h.AddTrack)
		r.Delete("/track", h.DeleteTrack)
		r.Get("/{playlistID}/tracks", h.Tracks)
		r.Get("/{userID}", h.List)
		r.Put("/{playlistID}", h.Update)
		r.Delete("/{playlistID}", h.Delete)
	})
}

// List returns a user's playlists.
func (h *PlaylistHandler) List(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ListByUser(chi.URLParam(r, "userID"))
	if err != nil {
		h.logger.Error("failed to list playlists", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlists)
}

// Create stores a new playlist.
func (h *PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var playlist models.Playlist
	if err := json.NewDecoder(r.Body).Decode(&playlist); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.playlists.Create(&playlist); err != nil {
		h.logger.Error("failed to create playlist", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, playlist)
}

// Detail returns a single playlist.
func (h *PlaylistHandler) Detail(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlists.Get(chi.URLParam(r, "playlistID"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

// Update renames a playlist.
func (h *PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.playlists.Rename(chi.URLParam(r, "playlistID"), body.Title); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "playlist updated"})
}

// Delete removes a playlist and its tracks.
func (h *PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.playlists.Delete(chi.URLParam(r, "playlistID")); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "playlist deleted"})
}

// Tracks returns the tracks of a playlist.
func (h *PlaylistHandler) Tracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.playlists.Tracks(chi.URLParam(r, "playlistID"))
	if err != nil {
		h.logger.Error("failed to list playlist tracks", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}

// AddTrack appends a track to a playlist.
func (h *PlaylistHandler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var track models.PlaylistTrack
	if err := json.NewDecoder(r.Body).Decode(&track); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.playlists.AddTrack(&track); err != nil {
		h.logger.Error("failed to add track", "error", err)
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, track)
}

// DeleteTrack removes one track row, identified by the id and playlistId
// query parameters.
func (h *PlaylistHandler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	playlistID := r.URL.Query().Get("playlistId")
	if id == "" || playlistID == "" {
		writeError(w, http.StatusBadRequest, "id and playlistId are required")
		return
	}

	if err := h.playlists.DeleteTrack(id, playlistID); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "track deleted"})
}
