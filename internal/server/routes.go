package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/mediainfo"
	"github.com/dmaytorres/trackvault/internal/store"
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cache", func(r chi.Router) {
			r.Post("/tracks", h.CacheTrack)
			r.Get("/tracks", h.ListCachedTracks)
			r.Get("/tracks/{id}", h.GetCachedTrack)
			r.Delete("/tracks/{id}", h.RemoveCachedTrack)
			r.Post("/tracks/{id}/touch", h.TouchTrack)
			r.Get("/tracks/{id}/artwork", h.TrackArtwork)
			r.Get("/stats", h.CacheStats)
			r.Put("/limit", h.SetCacheLimit)
			r.Put("/concurrency", h.SetConcurrency)
			r.Post("/clear", h.ClearCache)
		})

		r.Route("/offline", func(r chi.Router) {
			r.Post("/mode", h.SetOfflineMode)
			r.Post("/playlists", h.CreatePendingPlaylist)
			r.Get("/playlists", h.ListPendingPlaylists)
			r.Post("/scrobbles", h.QueueScrobble)
		})

		r.Post("/auth", h.SetAuthStatus)
		r.Get("/status", h.ConnectivityStatus)
		r.Post("/sync", h.SyncNow)
		r.Get("/events", h.StreamEvents)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type cacheTrackRequest struct {
	TrackID string `json:"track_id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
}

func (h *Handler) CacheTrack(w http.ResponseWriter, r *http.Request) {
	var req cacheTrackRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.TrackID == "" {
		h.writeError(w, http.StatusBadRequest, "track_id is required")
		return
	}

	// Download errors surface as failed events, never as request errors.
	if err := h.Engine.Request(req.TrackID, domain.TrackMetadata{
		Title:  req.Title,
		Artist: req.Artist,
		Album:  req.Album,
	}); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entry, err := h.Engine.Get(req.TrackID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusAccepted, entry)
}

func (h *Handler) ListCachedTracks(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.List()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*domain.CacheEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetCachedTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.Engine.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil {
		h.writeError(w, http.StatusNotFound, "track not cached")
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) RemoveCachedTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Engine.Remove(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "track not cached")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) TouchTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Engine.Touch(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TrackArtwork(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.Engine.Get(id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entry == nil || entry.Status != domain.CacheStatusReady {
		h.writeError(w, http.StatusNotFound, "track not cached")
		return
	}

	art, mime, err := mediainfo.ExtractArt(entry.FilePath)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "no embedded artwork")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Engine.Stats()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type setLimitRequest struct {
	// LimitBytes is the cache budget; -1 means unbounded.
	LimitBytes int64 `json:"limit_bytes"`
}

func (h *Handler) SetCacheLimit(w http.ResponseWriter, r *http.Request) {
	var req setLimitRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	err := h.Engine.SetLimit(req.LimitBytes)
	if err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, statsErr := h.Engine.Stats()
	if statsErr != nil {
		h.writeError(w, http.StatusInternalServerError, statsErr.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type setConcurrencyRequest struct {
	MaxConcurrent int `json:"max_concurrent"`
}

func (h *Handler) SetConcurrency(w http.ResponseWriter, r *http.Request) {
	var req setConcurrencyRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.Engine.SetConcurrency(req.MaxConcurrent); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Clear(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) ConnectivityStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Detector.State())
}

type authStatusRequest struct {
	Authenticated bool `json:"authenticated"`
}

// SetAuthStatus is how the desktop client reports its session state. The
// detector stays offline(not_authenticated) until this reports true.
func (h *Handler) SetAuthStatus(w http.ResponseWriter, r *http.Request) {
	var req authStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.Detector.SetAuthenticated(req.Authenticated)
	h.writeJSON(w, http.StatusOK, h.Detector.State())
}

type offlineModeRequest struct {
	Offline bool `json:"offline"`
}

func (h *Handler) SetOfflineMode(w http.ResponseWriter, r *http.Request) {
	var req offlineModeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.Detector.SetManualOffline(req.Offline)

	// Persisted so a restart comes back in the mode the user chose.
	if h.Settings != nil {
		if err := h.Settings.Set(store.SettingManualOffline, strconv.FormatBool(req.Offline)); err != nil {
			h.Logger.Error("Failed to persist offline mode", "error", err)
		}
	}

	h.writeJSON(w, http.StatusOK, h.Detector.State())
}

type createPlaylistRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	IsPublic        bool     `json:"is_public"`
	RemoteTrackIDs  []string `json:"remote_track_ids"`
	LocalTrackPaths []string `json:"local_track_paths"`
}

func (h *Handler) CreatePendingPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	pl, err := h.Offline.CreatePendingPlaylist(req.Name, req.Description, req.IsPublic, req.RemoteTrackIDs, req.LocalTrackPaths)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, pl)
}

func (h *Handler) ListPendingPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.Offline.ListPendingPlaylists()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if playlists == nil {
		playlists = []*domain.PendingPlaylist{}
	}
	h.writeJSON(w, http.StatusOK, playlists)
}

type queueScrobbleRequest struct {
	Artist     string `json:"artist"`
	Track      string `json:"track"`
	Album      string `json:"album"`
	ListenedAt int64  `json:"listened_at"`
}

func (h *Handler) QueueScrobble(w http.ResponseWriter, r *http.Request) {
	var req queueScrobbleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var listenedAt time.Time
	if req.ListenedAt > 0 {
		listenedAt = time.Unix(req.ListenedAt, 0)
	}

	scrobble, err := h.Offline.QueueScrobble(req.Artist, req.Track, req.Album, listenedAt)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, scrobble)
}

func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reconciler.Drain(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// StreamEvents pushes cache lifecycle events over server-sent events.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id, events := h.Engine.Events().Subscribe()
	defer h.Engine.Events().Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := jsonMarshalEvent(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
