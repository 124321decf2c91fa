package server

import (
	"encoding/json"
	"net/http"

	"github.com/dmaytorres/trackvault/internal/cache"
	"github.com/dmaytorres/trackvault/internal/connectivity"
	"github.com/dmaytorres/trackvault/internal/logger"
	"github.com/dmaytorres/trackvault/internal/offline"
	"github.com/dmaytorres/trackvault/internal/store"
	"github.com/dmaytorres/trackvault/internal/syncer"
)

// Handler exposes the engine's query and mutation surface to the desktop
// client over a localhost JSON API.
type Handler struct {
	Engine     *cache.Engine
	Offline    *offline.Service
	Reconciler *syncer.Reconciler
	Detector   *connectivity.Detector
	Settings   *store.SettingsRepo
	Logger     *logger.Logger
}

func NewHandler(engine *cache.Engine, off *offline.Service, rec *syncer.Reconciler, det *connectivity.Detector, settings *store.SettingsRepo, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		Engine:     engine,
		Offline:    off,
		Reconciler: rec,
		Detector:   det,
		Settings:   settings,
		Logger:     log.WithComponent("server"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func jsonMarshalEvent(ev cache.Event) ([]byte, error) {
	return json.Marshal(ev)
}
