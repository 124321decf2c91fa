package store

import (
	"database/sql"
	"time"

	"github.com/dmaytorres/trackvault/internal/domain"
)

// UpsertEntry inserts or fully replaces the row for entry.TrackID. A retry
// of a failed entry goes through here and overwrites the previous row.
func (db *DB) UpsertEntry(entry *domain.CacheEntry) error {
	query := `INSERT INTO cache_entries (
		track_id, title, artist, album,
		status, progress_percent, error,
		file_path, file_size_bytes, file_hash,
		format, bit_depth, sample_rate, channels,
		created_at, last_accessed_at
	) VALUES (
		:track_id, :title, :artist, :album,
		:status, :progress_percent, :error,
		:file_path, :file_size_bytes, :file_hash,
		:format, :bit_depth, :sample_rate, :channels,
		:created_at, :last_accessed_at
	)
	ON CONFLICT(track_id) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		album = excluded.album,
		status = excluded.status,
		progress_percent = excluded.progress_percent,
		error = excluded.error,
		file_path = excluded.file_path,
		file_size_bytes = excluded.file_size_bytes,
		file_hash = excluded.file_hash,
		format = excluded.format,
		bit_depth = excluded.bit_depth,
		sample_rate = excluded.sample_rate,
		channels = excluded.channels`

	_, err := db.NamedExec(query, entry)
	return err
}

func (db *DB) GetEntry(trackID string) (*domain.CacheEntry, error) {
	query := `SELECT * FROM cache_entries WHERE track_id = ?`

	var entry domain.CacheEntry
	err := db.Get(&entry, query, trackID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (db *DB) ListEntries() ([]*domain.CacheEntry, error) {
	query := `SELECT * FROM cache_entries ORDER BY created_at DESC`

	var entries []*domain.CacheEntry
	err := db.Select(&entries, query)
	return entries, err
}

func (db *DB) DeleteEntry(trackID string) error {
	_, err := db.Exec(`DELETE FROM cache_entries WHERE track_id = ?`, trackID)
	return err
}

// TouchEntry records a playback read. Writes never touch.
func (db *DB) TouchEntry(trackID string) error {
	_, err := db.Exec(`UPDATE cache_entries SET last_accessed_at = ? WHERE track_id = ?`, time.Now(), trackID)
	return err
}

func (db *DB) UpdateEntryStatus(trackID string, status domain.CacheStatus, errorMsg string) error {
	query := `UPDATE cache_entries SET status = ?, error = ? WHERE track_id = ?`
	_, err := db.Exec(query, status, errorMsg, trackID)
	return err
}

// UpdateEntryProgress persists download progress. Progress is clamped
// non-decreasing by the coordinator, not here.
func (db *DB) UpdateEntryProgress(trackID string, percent int) error {
	query := `UPDATE cache_entries SET progress_percent = ? WHERE track_id = ?`
	_, err := db.Exec(query, percent, trackID)
	return err
}

func (db *DB) TotalReadyBytes() (int64, error) {
	var total sql.NullInt64
	err := db.Get(&total, `SELECT SUM(file_size_bytes) FROM cache_entries WHERE status = ?`, domain.CacheStatusReady)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// ListEvictionCandidates returns ready entries ordered least recently
// accessed first. Protection filtering happens in the eviction policy,
// which knows the live playback state.
func (db *DB) ListEvictionCandidates() ([]*domain.CacheEntry, error) {
	query := `SELECT * FROM cache_entries WHERE status = ? ORDER BY last_accessed_at ASC, created_at ASC`

	var entries []*domain.CacheEntry
	err := db.Select(&entries, query, domain.CacheStatusReady)
	return entries, err
}

type EntryCounts struct {
	Total       int `db:"total"`
	Ready       int `db:"ready"`
	Queued      int `db:"queued"`
	Downloading int `db:"downloading"`
	Failed      int `db:"failed"`
}

func (db *DB) CountEntries() (*EntryCounts, error) {
	query := `SELECT
		COUNT(*) as total,
		SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END) as ready,
		SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END) as queued,
		SUM(CASE WHEN status = 'downloading' THEN 1 ELSE 0 END) as downloading,
		SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed
	FROM cache_entries`

	type row struct {
		Total       int           `db:"total"`
		Ready       sql.NullInt64 `db:"ready"`
		Queued      sql.NullInt64 `db:"queued"`
		Downloading sql.NullInt64 `db:"downloading"`
		Failed      sql.NullInt64 `db:"failed"`
	}

	var r row
	if err := db.Get(&r, query); err != nil {
		return nil, err
	}
	return &EntryCounts{
		Total:       r.Total,
		Ready:       int(r.Ready.Int64),
		Queued:      int(r.Queued.Int64),
		Downloading: int(r.Downloading.Int64),
		Failed:      int(r.Failed.Int64),
	}, nil
}

// FindInterruptedEntries returns rows left queued or downloading by a
// previous process, for recovery at startup.
func (db *DB) FindInterruptedEntries() ([]*domain.CacheEntry, error) {
	query := `SELECT * FROM cache_entries WHERE status IN ('queued', 'downloading')`

	var entries []*domain.CacheEntry
	err := db.Select(&entries, query)
	return entries, err
}
