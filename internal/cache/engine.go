package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmaytorres/trackvault/internal/catalog"
	"github.com/dmaytorres/trackvault/internal/config"
	"github.com/dmaytorres/trackvault/internal/constants"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
	"github.com/dmaytorres/trackvault/internal/storage"
	"github.com/dmaytorres/trackvault/internal/store"
)

// Protector supplies the set of track ids excluded from eviction:
// the currently playing track and everything in the active queue.
type Protector interface {
	ProtectedTrackIDs() map[string]struct{}
}

// NoProtection is the Protector used when no playback state is wired in.
type NoProtection struct{}

func (NoProtection) ProtectedTrackIDs() map[string]struct{} { return nil }

type transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
	// cancelled marks a user cancellation so the worker removes the row
	// instead of recording a failure.
	cancelled bool
}

// Engine is the download coordinator: it owns the cache directory, the
// entry rows, the bounded worker pool and the lifecycle event stream.
type Engine struct {
	db        *store.DB
	settings  *store.SettingsRepo
	sources   *catalog.Manager
	protector Protector
	cfg       *config.Config
	logger    *logger.Logger
	bus       *Bus

	// mu guards inflight, sem and limitBytes.
	mu       sync.Mutex
	inflight map[string]*transfer
	sem      chan struct{}

	limitBytes int64

	// publishMu serializes every row+file mutation so a ready row is never
	// visible without its backing file and eviction never races a publish.
	publishMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(db *store.DB, settings *store.SettingsRepo, sources *catalog.Manager, protector Protector, cfg *config.Config, log *logger.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}
	if protector == nil {
		protector = NoProtection{}
	}

	e := &Engine{
		db:         db,
		settings:   settings,
		sources:    sources,
		protector:  protector,
		cfg:        cfg,
		logger:     log.WithComponent("cache"),
		bus:        NewBus(),
		inflight:   make(map[string]*transfer),
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		limitBytes: cfg.CacheLimitBytes,
		ctx:        ctx,
		cancel:     cancel,
	}

	e.loadPersistedLimit()

	return e
}

// Events returns the engine's lifecycle event bus.
func (e *Engine) Events() *Bus {
	return e.bus
}

// Start recovers interrupted downloads from a previous run and re-admits
// them.
func (e *Engine) Start() {
	if err := storage.EnsureDir(e.cfg.CacheDir); err != nil {
		e.logger.Error("Failed to create cache directory", "dir", e.cfg.CacheDir, "error", err)
	}

	interrupted, err := e.db.FindInterruptedEntries()
	if err != nil {
		e.logger.Error("Failed to find interrupted entries", "error", err)
		return
	}

	for _, entry := range interrupted {
		e.logger.Info("Recovering interrupted download", "track_id", entry.TrackID)
		_ = storage.RemoveFile(e.partialPath(entry.TrackID))
		if err := e.Request(entry.TrackID, domain.TrackMetadata{
			Title:  entry.Title,
			Artist: entry.Artist,
			Album:  entry.Album,
		}); err != nil {
			e.logger.Error("Failed to requeue interrupted entry", "track_id", entry.TrackID, "error", err)
		}
	}
}

// Stop cancels all transfers and waits for workers to drain.
func (e *Engine) Stop() {
	e.logger.Info("Stopping cache engine")
	e.cancel()
	e.wg.Wait()
}

// Request asks for the track to be cached. Idempotent: an entry already
// downloading or ready is left alone. A failed or stale entry re-enters
// the lifecycle at queued. The queued row is written before pool
// admission so callers observe consistent state even when the pool is
// saturated.
func (e *Engine) Request(trackID string, meta domain.TrackMetadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, active := e.inflight[trackID]; active {
		return nil
	}

	entry, err := e.db.GetEntry(trackID)
	if err != nil {
		return fmt.Errorf("failed to look up entry: %w", err)
	}

	if entry != nil && entry.Status == domain.CacheStatusReady {
		if storage.FileExists(entry.FilePath) {
			return nil
		}
		// Stale: row says ready but the file is gone. Re-enter at queued.
		e.logger.Warn("Ready entry lost its file, re-queuing", "track_id", trackID, "file_path", entry.FilePath)
	}

	now := time.Now()
	fresh := &domain.CacheEntry{
		TrackID:        trackID,
		Title:          meta.Title,
		Artist:         meta.Artist,
		Album:          meta.Album,
		Status:         domain.CacheStatusQueued,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if entry != nil {
		// The retry overwrites the previous row, same key.
		fresh.CreatedAt = entry.CreatedAt
		fresh.LastAccessedAt = entry.LastAccessedAt
		if fresh.Title == "" {
			fresh.Title = entry.Title
		}
		if fresh.Artist == "" {
			fresh.Artist = entry.Artist
		}
		if fresh.Album == "" {
			fresh.Album = entry.Album
		}
	}

	if err := e.db.UpsertEntry(fresh); err != nil {
		return fmt.Errorf("failed to insert queued entry: %w", err)
	}

	tctx, tcancel := context.WithCancel(e.ctx)
	t := &transfer{cancel: tcancel, done: make(chan struct{})}
	e.inflight[trackID] = t

	sem := e.sem
	e.wg.Add(1)
	go e.runTransfer(tctx, t, sem, trackID)

	return nil
}

// CancelDownload aborts a queued or downloading transfer. The partial file
// and the row are removed together; cancellation is not a failure and
// leaves no failed record.
func (e *Engine) CancelDownload(trackID string) error {
	e.mu.Lock()
	t, active := e.inflight[trackID]
	if active {
		t.cancelled = true
		t.cancel()
	}
	e.mu.Unlock()

	if !active {
		return domain.ErrNotFound
	}

	<-t.done

	// The transfer may have published before the cancel landed. The row
	// and file still go away together.
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	entry, err := e.db.GetEntry(trackID)
	if err != nil {
		return fmt.Errorf("failed to look up entry: %w", err)
	}
	if entry == nil {
		return nil
	}
	return e.deleteEntryLocked(entry)
}

// Remove deletes a cached track: row and file together, never one without
// the other. An in-flight transfer is cancelled first; if it finished
// publishing before the cancel landed, the ready row is deleted all the
// same.
func (e *Engine) Remove(trackID string) error {
	e.mu.Lock()
	t, active := e.inflight[trackID]
	if active {
		t.cancelled = true
		t.cancel()
	}
	e.mu.Unlock()

	if active {
		<-t.done
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	entry, err := e.db.GetEntry(trackID)
	if err != nil {
		return fmt.Errorf("failed to look up entry: %w", err)
	}
	if entry == nil {
		if active {
			// Cancellation already settled the row.
			return nil
		}
		return domain.ErrNotFound
	}

	return e.deleteEntryLocked(entry)
}

// Clear removes every cached track, bypassing eviction protection. An
// explicit user action only.
func (e *Engine) Clear() error {
	e.mu.Lock()
	for _, t := range e.inflight {
		t.cancelled = true
		t.cancel()
	}
	waiting := make([]*transfer, 0, len(e.inflight))
	for _, t := range e.inflight {
		waiting = append(waiting, t)
	}
	e.mu.Unlock()

	for _, t := range waiting {
		<-t.done
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	entries, err := e.db.ListEntries()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	for _, entry := range entries {
		if err := e.deleteEntryLocked(entry); err != nil {
			e.logger.Error("Failed to delete entry during clear", "track_id", entry.TrackID, "error", err)
		}
	}

	e.bus.Publish(Event{Type: EventCacheCleared})
	e.logger.Info("Cache cleared", "entries_removed", len(entries))
	return nil
}

// Touch records a playback read for eviction recency. Never called on
// writes.
func (e *Engine) Touch(trackID string) error {
	return e.db.TouchEntry(trackID)
}

// IsCached reports whether a ready local copy of the track exists.
func (e *Engine) IsCached(trackID string) (bool, error) {
	entry, err := e.db.GetEntry(trackID)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Status == domain.CacheStatusReady && storage.FileExists(entry.FilePath), nil
}

// Get returns the entry row for a track, or nil when never requested.
func (e *Engine) Get(trackID string) (*domain.CacheEntry, error) {
	return e.db.GetEntry(trackID)
}

// List returns every cache entry.
func (e *Engine) List() ([]*domain.CacheEntry, error) {
	return e.db.ListEntries()
}

// Stats computes the derived cache snapshot.
func (e *Engine) Stats() (*domain.CacheStats, error) {
	counts, err := e.db.CountEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	totalBytes, err := e.db.TotalReadyBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to sum cache size: %w", err)
	}

	e.mu.Lock()
	limit := e.limitBytes
	e.mu.Unlock()

	stats := &domain.CacheStats{
		TotalTracks:  counts.Total,
		ReadyTracks:  counts.Ready,
		QueuedTracks: counts.Queued,
		Downloading:  counts.Downloading,
		FailedTracks: counts.Failed,
		TotalBytes:   totalBytes,
		LimitBytes:   limit,
		CacheDir:     e.cfg.CacheDir,
	}
	if limit >= 0 && totalBytes > limit {
		stats.OverBudgetBytes = totalBytes - limit
	}
	return stats, nil
}

// SetLimit changes the cache budget (-1 = unbounded), persists it and
// enforces it immediately.
func (e *Engine) SetLimit(bytes int64) error {
	if bytes < -1 {
		return fmt.Errorf("invalid cache limit: %d", bytes)
	}

	e.mu.Lock()
	e.limitBytes = bytes
	e.mu.Unlock()

	if err := e.settings.Set(store.SettingCacheLimitBytes, strconv.FormatInt(bytes, 10)); err != nil {
		e.logger.Error("Failed to persist cache limit", "error", err)
	}

	return e.EnforceBudget()
}

// SetConcurrency changes the pool size for future admissions. In-flight
// transfers keep their slots on the old semaphore and drain naturally.
func (e *Engine) SetConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", n)
	}

	e.mu.Lock()
	e.sem = make(chan struct{}, n)
	e.mu.Unlock()

	e.logger.Info("Concurrency limit changed", "max_concurrent", n)
	return nil
}

func (e *Engine) loadPersistedLimit() {
	if e.settings == nil {
		return
	}
	raw, err := e.settings.Get(store.SettingCacheLimitBytes)
	if err != nil || raw == "" {
		return
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		e.limitBytes = v
	}
}

// deleteEntryLocked removes row and file as one unit. Caller holds
// publishMu.
func (e *Engine) deleteEntryLocked(entry *domain.CacheEntry) error {
	if entry.FilePath != "" {
		if err := storage.RemoveFile(entry.FilePath); err != nil {
			return fmt.Errorf("failed to remove cached file: %w", err)
		}
	}
	if err := e.db.DeleteEntry(entry.TrackID); err != nil {
		return fmt.Errorf("failed to delete entry row: %w", err)
	}
	return nil
}

func (e *Engine) finalPath(trackID, ext string) string {
	return filepath.Join(e.cfg.CacheDir, sanitizeID(trackID)+ext)
}

func (e *Engine) partialPath(trackID string) string {
	return filepath.Join(e.cfg.CacheDir, sanitizeID(trackID)+constants.ExtPartial)
}

// sanitizeID keeps external track ids filesystem-safe.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune("<>:\"/\\|?*", r) {
			return '_'
		}
		return r
	}, id)
}

func extensionForMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, constants.MimeTypeMP3):
		return constants.ExtMP3
	case strings.HasPrefix(mimeType, constants.MimeTypeMP4):
		return constants.ExtM4A
	default:
		return constants.ExtFLAC
	}
}
