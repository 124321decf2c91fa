package domain

import (
	"time"
)

// CacheStatus represents the offline-availability lifecycle state of a track
type CacheStatus string

const (
	CacheStatusQueued      CacheStatus = "queued"
	CacheStatusDownloading CacheStatus = "downloading"
	CacheStatusReady       CacheStatus = "ready"
	CacheStatusFailed      CacheStatus = "failed"
)

// Terminal reports whether the status ends a download lifecycle instance.
func (s CacheStatus) Terminal() bool {
	return s == CacheStatusReady || s == CacheStatusFailed
}

// QualityDescriptor describes the encoded form of a cached file.
// Informational only; never used as a cache key.
type QualityDescriptor struct {
	Format     string `json:"format,omitempty" db:"format"`
	BitDepth   int    `json:"bit_depth,omitempty" db:"bit_depth"`
	SampleRate int    `json:"sample_rate,omitempty" db:"sample_rate"`
	Channels   int    `json:"channels,omitempty" db:"channels"`
}

// CacheEntry is the durable record of one track's offline copy.
// Exactly one row exists per track id; file_path exists on disk iff
// status == ready.
type CacheEntry struct {
	TrackID         string      `json:"track_id" db:"track_id"`
	Title           string      `json:"title" db:"title"`
	Artist          string      `json:"artist" db:"artist"`
	Album           string      `json:"album" db:"album"`
	Status          CacheStatus `json:"status" db:"status"`
	ProgressPercent int         `json:"progress_percent" db:"progress_percent"`
	FilePath        string      `json:"file_path,omitempty" db:"file_path"`
	FileSizeBytes   int64       `json:"file_size_bytes" db:"file_size_bytes"`
	FileHash        string      `json:"file_hash,omitempty" db:"file_hash"`
	Format          string      `json:"format,omitempty" db:"format"`
	BitDepth        int         `json:"bit_depth,omitempty" db:"bit_depth"`
	SampleRate      int         `json:"sample_rate,omitempty" db:"sample_rate"`
	Channels        int         `json:"channels,omitempty" db:"channels"`
	Error           string      `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	LastAccessedAt  time.Time   `json:"last_accessed_at" db:"last_accessed_at"`
}

// Quality returns the entry's quality descriptor.
func (e *CacheEntry) Quality() QualityDescriptor {
	return QualityDescriptor{
		Format:     e.Format,
		BitDepth:   e.BitDepth,
		SampleRate: e.SampleRate,
		Channels:   e.Channels,
	}
}

// TrackMetadata is the caller-supplied metadata accompanying a cache request.
type TrackMetadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// PendingPlaylist is a playlist created while offline, awaiting creation on
// the remote service. A partially synced playlist keeps its remote id so a
// later drain resumes instead of duplicating the remote shell.
type PendingPlaylist struct {
	ID               string      `json:"id" db:"id"`
	Name             string      `json:"name" db:"name"`
	Description      string      `json:"description" db:"description"`
	IsPublic         bool        `json:"is_public" db:"is_public"`
	RemoteTrackIDs   StringSlice `json:"remote_track_ids" db:"remote_track_ids"`
	LocalTrackPaths  StringSlice `json:"local_track_paths" db:"local_track_paths"`
	RemotePlaylistID *string     `json:"remote_playlist_id,omitempty" db:"remote_playlist_id"`
	Synced           bool        `json:"synced" db:"synced"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// QueuedScrobble is one offline listening event awaiting submission.
type QueuedScrobble struct {
	ID         string    `json:"id" db:"id"`
	Artist     string    `json:"artist" db:"artist"`
	Track      string    `json:"track" db:"track"`
	Album      string    `json:"album" db:"album"`
	ListenedAt time.Time `json:"listened_at" db:"listened_at"`
	Sent       bool      `json:"sent" db:"sent"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CacheStats is the derived snapshot of the cache as a whole.
type CacheStats struct {
	TotalTracks     int    `json:"total_tracks"`
	ReadyTracks     int    `json:"ready_tracks"`
	QueuedTracks    int    `json:"queued_tracks"`
	Downloading     int    `json:"downloading_tracks"`
	FailedTracks    int    `json:"failed_tracks"`
	TotalBytes      int64  `json:"total_bytes"`
	LimitBytes      int64  `json:"limit_bytes"`
	OverBudgetBytes int64  `json:"over_budget_bytes,omitempty"`
	CacheDir        string `json:"cache_dir"`
}

// OfflineReason explains why the application considers itself offline.
type OfflineReason string

const (
	ReasonNoNetwork        OfflineReason = "no_network"
	ReasonNotAuthenticated OfflineReason = "not_authenticated"
	ReasonManualOverride   OfflineReason = "manual_override"
)

// ConnState is the connectivity mode exposed to collaborators.
type ConnState struct {
	Online bool          `json:"online"`
	Reason OfflineReason `json:"reason,omitempty"`
}

// SyncSummary reports the outcome of one reconciliation drain.
type SyncSummary struct {
	PlaylistsSynced   int `json:"playlists_synced"`
	PlaylistsFailed   int `json:"playlists_failed"`
	TracksSkipped     int `json:"tracks_skipped"`
	ScrobblesSent     int `json:"scrobbles_sent"`
	ScrobblesRejected int `json:"scrobbles_rejected"`
}
