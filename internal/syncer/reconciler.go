// Package syncer replays pending offline operations against the remote
// service once connectivity returns. Reconciliation is resumable and must
// never re-create remote resources on retry.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmaytorres/trackvault/internal/constants"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
	"github.com/dmaytorres/trackvault/internal/store"
)

// RemoteAPI is the remote playlist and scrobble surface this engine
// depends on.
type RemoteAPI interface {
	// CreatePlaylist creates the playlist shell and returns its remote id.
	CreatePlaylist(ctx context.Context, name, description string, isPublic bool) (string, error)
	// AddTracksToPlaylist attaches tracks starting at the given position.
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string, position int) error
	// SubmitScrobbles submits a batch and returns the indices the service
	// confirmed accepted. A partial rejection returns the accepted subset.
	SubmitScrobbles(ctx context.Context, batch []*domain.QueuedScrobble) ([]int, error)
}

// Library resolves local file paths to current library track ids. Paths
// are the stable key; internal row ids shift across rescans.
type Library interface {
	// ResolveTrackByPath returns the library track id for a path, or
	// domain.ErrReferenceStale when the file no longer resolves.
	ResolveTrackByPath(ctx context.Context, path string) (string, error)
}

// Reconciler drains the pending operation queue. Playlists are processed
// in creation order and scrobbles in timestamp order; the two streams are
// independent.
type Reconciler struct {
	db      *store.DB
	remote  RemoteAPI
	library Library
	logger  *logger.Logger

	// drainMu serializes drains so an online edge racing a manual sync
	// cannot process the same pending rows twice.
	drainMu sync.Mutex
}

func NewReconciler(db *store.DB, remote RemoteAPI, library Library, log *logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Default()
	}
	return &Reconciler{
		db:      db,
		remote:  remote,
		library: library,
		logger:  log.WithComponent("syncer"),
	}
}

// Drain replays all pending operations. Per-item errors are isolated: one
// playlist's fatal error leaves it pending for the next drain without
// aborting the rest.
func (r *Reconciler) Drain(ctx context.Context) (*domain.SyncSummary, error) {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()

	summary := &domain.SyncSummary{}

	if err := r.drainScrobbles(ctx, summary); err != nil {
		r.logger.Error("Scrobble drain stopped early", "error", err)
	}
	if err := r.drainPlaylists(ctx, summary); err != nil {
		r.logger.Error("Playlist drain stopped early", "error", err)
	}

	r.logger.Info("Reconciliation pass finished",
		"playlists_synced", summary.PlaylistsSynced,
		"playlists_failed", summary.PlaylistsFailed,
		"scrobbles_sent", summary.ScrobblesSent,
		"scrobbles_rejected", summary.ScrobblesRejected,
	)
	return summary, ctx.Err()
}

func (r *Reconciler) drainScrobbles(ctx context.Context, summary *domain.SyncSummary) error {
	pending, err := r.db.ListUnsentScrobbles()
	if err != nil {
		return fmt.Errorf("failed to list unsent scrobbles: %w", err)
	}

	for start := 0; start < len(pending); start += constants.ScrobbleBatchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		end := start + constants.ScrobbleBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		accepted, err := r.remote.SubmitScrobbles(ctx, batch)
		if err != nil {
			// Transport-level failure: nothing in this batch was confirmed,
			// so nothing is marked sent. Retried on the next drain.
			return fmt.Errorf("scrobble batch submission failed: %w", err)
		}

		acceptedIDs := make([]string, 0, len(accepted))
		for _, idx := range accepted {
			if idx < 0 || idx >= len(batch) {
				continue
			}
			acceptedIDs = append(acceptedIDs, batch[idx].ID)
		}

		if err := r.db.MarkScrobblesSent(acceptedIDs); err != nil {
			return fmt.Errorf("failed to mark scrobbles sent: %w", err)
		}

		summary.ScrobblesSent += len(acceptedIDs)
		summary.ScrobblesRejected += len(batch) - len(acceptedIDs)
	}
	return nil
}

func (r *Reconciler) drainPlaylists(ctx context.Context, summary *domain.SyncSummary) error {
	pending, err := r.db.ListUnsyncedPlaylists()
	if err != nil {
		return fmt.Errorf("failed to list unsynced playlists: %w", err)
	}

	for _, pl := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := r.syncPlaylist(ctx, pl, summary); err != nil {
			summary.PlaylistsFailed++
			r.logger.Error("Playlist sync failed, left pending for retry",
				"playlist_id", pl.ID,
				"name", pl.Name,
				"error", err,
			)
			continue
		}
		summary.PlaylistsSynced++
	}
	return nil
}

// syncPlaylist replays one pending playlist. The remote shell id is
// persisted the moment it is known so a crash mid-sync resumes at track
// attachment instead of creating a second remote playlist.
func (r *Reconciler) syncPlaylist(ctx context.Context, pl *domain.PendingPlaylist, summary *domain.SyncSummary) error {
	log := r.logger.WithPlaylist(pl.ID, pl.Name)

	remoteID := ""
	if pl.RemotePlaylistID != nil {
		remoteID = *pl.RemotePlaylistID
	}

	if remoteID == "" {
		created, err := r.remote.CreatePlaylist(ctx, pl.Name, pl.Description, pl.IsPublic)
		if err != nil {
			return fmt.Errorf("failed to create remote playlist shell: %w", err)
		}
		remoteID = created
		if err := r.db.SetRemotePlaylistID(pl.ID, remoteID); err != nil {
			return fmt.Errorf("failed to persist remote playlist id: %w", err)
		}
		log.Info("Remote playlist shell created", "remote_playlist_id", remoteID)
	}

	if len(pl.RemoteTrackIDs) > 0 {
		if err := r.remote.AddTracksToPlaylist(ctx, remoteID, pl.RemoteTrackIDs, 0); err != nil {
			return fmt.Errorf("failed to attach remote tracks: %w", err)
		}
	}

	// Local tracks attach after the remote block; stale paths are skipped
	// with a warning, everything else is fatal and retried next drain.
	position := len(pl.RemoteTrackIDs)
	for _, path := range pl.LocalTrackPaths {
		trackID, err := r.library.ResolveTrackByPath(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrReferenceStale) {
				summary.TracksSkipped++
				log.Warn("Local track no longer resolves, skipping", "path", path)
				continue
			}
			return fmt.Errorf("failed to resolve local track %q: %w", path, err)
		}

		if err := r.remote.AddTracksToPlaylist(ctx, remoteID, []string{trackID}, position); err != nil {
			if errors.Is(err, domain.ErrReferenceStale) {
				summary.TracksSkipped++
				log.Warn("Local track vanished during attach, skipping", "path", path)
				continue
			}
			return fmt.Errorf("failed to attach local track %q: %w", path, err)
		}
		position++
	}

	if err := r.db.MarkPlaylistSynced(pl.ID); err != nil {
		return fmt.Errorf("failed to mark playlist synced: %w", err)
	}
	log.Info("Playlist synced", "remote_playlist_id", remoteID)
	return nil
}
