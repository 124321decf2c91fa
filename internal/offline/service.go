// Package offline records user actions performed while disconnected that
// need a remote effect later. Enqueueing never touches the network and
// always succeeds locally.
package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/logger"
	"github.com/dmaytorres/trackvault/internal/store"
)

type Service struct {
	db        *store.DB
	logger    *logger.Logger
	retention time.Duration
}

func NewService(db *store.DB, retention time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		db:        db,
		logger:    log.WithComponent("offline"),
		retention: retention,
	}
}

// CreatePendingPlaylist durably records a playlist created while offline.
// Remote track ids reference the catalog; local track paths reference
// on-disk files, which stay stable across library rescans unlike internal
// row ids.
func (s *Service) CreatePendingPlaylist(name, description string, isPublic bool, remoteTrackIDs, localTrackPaths []string) (*domain.PendingPlaylist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name cannot be empty")
	}

	now := time.Now()
	pl := &domain.PendingPlaylist{
		ID:              uuid.New().String(),
		Name:            name,
		Description:     description,
		IsPublic:        isPublic,
		RemoteTrackIDs:  remoteTrackIDs,
		LocalTrackPaths: localTrackPaths,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.db.CreatePendingPlaylist(pl); err != nil {
		return nil, fmt.Errorf("failed to record pending playlist: %w", err)
	}

	s.logger.Info("Pending playlist recorded",
		"playlist_id", pl.ID,
		"name", pl.Name,
		"remote_tracks", len(remoteTrackIDs),
		"local_tracks", len(localTrackPaths),
	)
	return pl, nil
}

// QueueScrobble durably records one listening event for later submission.
func (s *Service) QueueScrobble(artist, track, album string, listenedAt time.Time) (*domain.QueuedScrobble, error) {
	if artist == "" || track == "" {
		return nil, fmt.Errorf("scrobble requires artist and track")
	}
	if listenedAt.IsZero() {
		listenedAt = time.Now()
	}

	scrobble := &domain.QueuedScrobble{
		ID:         uuid.New().String(),
		Artist:     artist,
		Track:      track,
		Album:      album,
		ListenedAt: listenedAt,
		CreatedAt:  time.Now(),
	}

	if err := s.db.CreateScrobble(scrobble); err != nil {
		return nil, fmt.Errorf("failed to queue scrobble: %w", err)
	}

	s.logger.Debug("Scrobble queued", "artist", artist, "track", track)
	return scrobble, nil
}

func (s *Service) ListPendingPlaylists() ([]*domain.PendingPlaylist, error) {
	return s.db.ListPendingPlaylists()
}

func (s *Service) CountUnsentScrobbles() (int, error) {
	return s.db.CountUnsentScrobbles()
}

// CleanupSentScrobbles prunes sent rows older than the retention window.
func (s *Service) CleanupSentScrobbles() error {
	cutoff := time.Now().Add(-s.retention)
	removed, err := s.db.DeleteSentScrobblesBefore(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune sent scrobbles: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Pruned sent scrobbles", "removed", removed)
	}
	return nil
}

// RunCleanupLoop prunes periodically until the context is cancelled.
func (s *Service) RunCleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CleanupSentScrobbles(); err != nil {
				s.logger.Error("Scrobble cleanup failed", "error", err)
			}
		}
	}
}
