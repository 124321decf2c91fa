package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmaytorres/trackvault/internal/constants"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/mediainfo"
	"github.com/dmaytorres/trackvault/internal/storage"
)

func (e *Engine) runTransfer(ctx context.Context, t *transfer, sem chan struct{}, trackID string) {
	defer e.wg.Done()
	defer close(t.done)
	defer func() {
		e.mu.Lock()
		delete(e.inflight, trackID)
		e.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic in transfer", "track_id", trackID, "panic", r)
			_ = e.db.UpdateEntryStatus(trackID, domain.CacheStatusFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	// Queued rows wait here while the pool is saturated. The slot is
	// released by the deferred receive on every path out of the transfer.
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		e.settleCancelled(t, trackID)
		return
	}
	defer func() { <-sem }()

	err := e.download(ctx, trackID)
	if err == nil {
		if evictErr := e.EnforceBudget(); evictErr != nil && !errors.Is(evictErr, domain.ErrQuotaExceeded) {
			e.logger.Error("Eviction after completion failed", "error", evictErr)
		}
		return
	}

	if errors.Is(err, context.Canceled) {
		e.settleCancelled(t, trackID)
		return
	}

	e.logger.Error("Download failed", "track_id", trackID, "error", err)
	_ = storage.RemoveFile(e.partialPath(trackID))
	if dbErr := e.db.UpdateEntryStatus(trackID, domain.CacheStatusFailed, err.Error()); dbErr != nil {
		e.logger.Error("Failed to record failure", "track_id", trackID, "error", dbErr)
	}
	e.bus.Publish(Event{Type: EventCachingFailed, TrackID: trackID, Error: err.Error()})
}

// settleCancelled cleans up after a context cancellation. A user
// cancellation removes the partial file and the row together; an engine
// shutdown leaves the row so the next start can recover it.
func (e *Engine) settleCancelled(t *transfer, trackID string) {
	_ = storage.RemoveFile(e.partialPath(trackID))

	e.mu.Lock()
	userCancelled := t.cancelled
	e.mu.Unlock()

	if !userCancelled {
		return
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	if err := e.db.DeleteEntry(trackID); err != nil {
		e.logger.Error("Failed to remove cancelled entry", "track_id", trackID, "error", err)
		return
	}
	e.logger.Info("Download cancelled", "track_id", trackID)
}

func (e *Engine) download(ctx context.Context, trackID string) error {
	if err := e.db.UpdateEntryStatus(trackID, domain.CacheStatusDownloading, ""); err != nil {
		return fmt.Errorf("failed to mark entry downloading: %w", err)
	}
	e.bus.Publish(Event{Type: EventCachingStarted, TrackID: trackID})

	src, err := e.sources.Resolve(ctx, trackID, e.cfg.Quality)
	if err != nil {
		return err
	}
	defer src.Body.Close()

	tmpPath := e.partialPath(trackID)
	f, err := storage.CreateFile(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	written, copyErr := e.copyWithProgress(ctx, f, src.Body, trackID, src.TotalBytes)
	closeErr := f.Close()
	if copyErr != nil {
		_ = storage.RemoveFile(tmpPath)
		return copyErr
	}
	if closeErr != nil {
		_ = storage.RemoveFile(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	finalPath := e.finalPath(trackID, extensionForMime(src.MimeType))
	if err := e.publish(trackID, tmpPath, finalPath, written); err != nil {
		_ = storage.RemoveFile(tmpPath)
		return err
	}

	e.bus.Publish(Event{Type: EventCachingCompleted, TrackID: trackID, SizeBytes: written})
	e.logger.Info("Track cached", "track_id", trackID, "size_bytes", written, "file_path", finalPath)
	return nil
}

// publish atomically renames the finished temp file into place and writes
// the ready row inside the same critical section, so the row is never
// visible without the file.
func (e *Engine) publish(trackID, tmpPath, finalPath string, size int64) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	entry, err := e.db.GetEntry(trackID)
	if err != nil {
		return fmt.Errorf("failed to load entry for publish: %w", err)
	}
	if entry == nil {
		// Row deleted out from under the transfer; do not resurrect it.
		return fmt.Errorf("entry vanished before publish")
	}

	hash, err := storage.HashFile(tmpPath)
	if err != nil {
		e.logger.Warn("Failed to hash cached file", "track_id", trackID, "error", err)
	}

	if err := storage.PublishFile(tmpPath, finalPath); err != nil {
		return fmt.Errorf("failed to publish cached file: %w", err)
	}

	entry.Status = domain.CacheStatusReady
	entry.ProgressPercent = 100
	entry.Error = ""
	entry.FilePath = finalPath
	entry.FileSizeBytes = size
	entry.FileHash = hash

	if info, probeErr := mediainfo.Probe(finalPath); probeErr == nil {
		entry.Format = info.Quality.Format
		entry.BitDepth = info.Quality.BitDepth
		entry.SampleRate = info.Quality.SampleRate
		entry.Channels = info.Quality.Channels
		if entry.Title == "" {
			entry.Title = info.Title
		}
		if entry.Artist == "" {
			entry.Artist = info.Artist
		}
		if entry.Album == "" {
			entry.Album = info.Album
		}
	}

	if err := e.db.UpsertEntry(entry); err != nil {
		// Keep row and file coupled: roll the file back out.
		_ = storage.RemoveFile(finalPath)
		return fmt.Errorf("failed to write ready row: %w", err)
	}
	return nil
}

// copyWithProgress streams src to dst, persisting progress and emitting
// throttled progress events. Percent is cumulative so emitted values are
// non-decreasing.
func (e *Engine) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, trackID string, totalBytes int64) (int64, error) {
	buf := make([]byte, constants.CopyChunkSize)
	var written int64
	lastEmitted := -constants.ProgressStepPercent

	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, fmt.Errorf("failed to write chunk: %w", writeErr)
			}
			if wn < n {
				return written, io.ErrShortWrite
			}

			if totalBytes > 0 {
				percent := int(written * 100 / totalBytes)
				if percent > 100 {
					percent = 100
				}
				if percent >= lastEmitted+constants.ProgressStepPercent {
					lastEmitted = percent
					if err := e.db.UpdateEntryProgress(trackID, percent); err != nil {
						e.logger.Debug("Failed to persist progress", "track_id", trackID, "error", err)
					}
					e.bus.Publish(Event{
						Type:            EventCachingProgress,
						TrackID:         trackID,
						Percent:         percent,
						BytesDownloaded: written,
						TotalBytes:      totalBytes,
					})
				}
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, fmt.Errorf("%w: %v", domain.ErrTransientNetwork, readErr)
		}
	}
}

// WaitForIdle blocks until no transfer is in flight or the timeout
// elapses. Test helper surface.
func (e *Engine) WaitForIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		n := len(e.inflight)
		e.mu.Unlock()
		if n == 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
