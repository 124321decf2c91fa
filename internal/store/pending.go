package store

import (
	"database/sql"
	"time"

	"github.com/dmaytorres/trackvault/internal/domain"
)

func (db *DB) CreatePendingPlaylist(pl *domain.PendingPlaylist) error {
	query := `INSERT INTO pending_playlists (
		id, name, description, is_public, remote_track_ids, local_track_paths,
		remote_playlist_id, synced, created_at, updated_at
	) VALUES (
		:id, :name, :description, :is_public, :remote_track_ids, :local_track_paths,
		:remote_playlist_id, :synced, :created_at, :updated_at
	)`

	_, err := db.NamedExec(query, pl)
	return err
}

func (db *DB) GetPendingPlaylist(id string) (*domain.PendingPlaylist, error) {
	query := `SELECT * FROM pending_playlists WHERE id = ?`

	var pl domain.PendingPlaylist
	err := db.Get(&pl, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

// ListUnsyncedPlaylists returns playlists awaiting reconciliation in
// creation order.
func (db *DB) ListUnsyncedPlaylists() ([]*domain.PendingPlaylist, error) {
	query := `SELECT * FROM pending_playlists WHERE synced = 0 ORDER BY created_at ASC`

	var playlists []*domain.PendingPlaylist
	err := db.Select(&playlists, query)
	return playlists, err
}

func (db *DB) ListPendingPlaylists() ([]*domain.PendingPlaylist, error) {
	query := `SELECT * FROM pending_playlists ORDER BY created_at DESC`

	var playlists []*domain.PendingPlaylist
	err := db.Select(&playlists, query)
	return playlists, err
}

// SetRemotePlaylistID persists the remote shell id as soon as it is known,
// so a crash mid-sync resumes without duplicating the remote playlist.
func (db *DB) SetRemotePlaylistID(id, remoteID string) error {
	query := `UPDATE pending_playlists SET remote_playlist_id = ?, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, remoteID, time.Now(), id)
	return err
}

func (db *DB) MarkPlaylistSynced(id string) error {
	query := `UPDATE pending_playlists SET synced = 1, updated_at = ? WHERE id = ?`
	_, err := db.Exec(query, time.Now(), id)
	return err
}

func (db *DB) DeletePendingPlaylist(id string) error {
	_, err := db.Exec(`DELETE FROM pending_playlists WHERE id = ?`, id)
	return err
}
