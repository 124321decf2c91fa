package cache

import (
	"fmt"

	"github.com/dmaytorres/trackvault/internal/domain"
)

// EnforceBudget evicts least-recently-accessed ready entries until total
// cached bytes fit the configured limit. Protected tracks (playing or
// queued for playback) are never evicted; when only protected entries
// remain over budget the condition is surfaced, not violated.
func (e *Engine) EnforceBudget() error {
	e.mu.Lock()
	limit := e.limitBytes
	e.mu.Unlock()

	if limit < 0 {
		return nil
	}

	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	total, err := e.db.TotalReadyBytes()
	if err != nil {
		return fmt.Errorf("failed to sum cache size: %w", err)
	}
	if total <= limit {
		return nil
	}

	candidates, err := e.db.ListEvictionCandidates()
	if err != nil {
		return fmt.Errorf("failed to list eviction candidates: %w", err)
	}

	protected := e.protector.ProtectedTrackIDs()

	for _, entry := range candidates {
		if total <= limit {
			return nil
		}
		if _, isProtected := protected[entry.TrackID]; isProtected {
			continue
		}

		if err := e.deleteEntryLocked(entry); err != nil {
			e.logger.Error("Failed to evict entry", "track_id", entry.TrackID, "error", err)
			continue
		}

		total -= entry.FileSizeBytes
		e.bus.Publish(Event{Type: EventEntryEvicted, TrackID: entry.TrackID, SizeBytes: entry.FileSizeBytes})
		e.logger.Info("Evicted cached track",
			"track_id", entry.TrackID,
			"size_bytes", entry.FileSizeBytes,
			"last_accessed_at", entry.LastAccessedAt,
		)
	}

	if total > limit {
		e.logger.Warn("Cache over budget, remaining entries are protected",
			"total_bytes", total,
			"limit_bytes", limit,
		)
		return fmt.Errorf("%w: %d bytes over limit", domain.ErrQuotaExceeded, total-limit)
	}
	return nil
}
