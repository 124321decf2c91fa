package store

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dmaytorres/trackvault/internal/domain"
)

func (db *DB) CreateScrobble(s *domain.QueuedScrobble) error {
	query := `INSERT INTO queued_scrobbles (id, artist, track, album, listened_at, sent, created_at)
		VALUES (:id, :artist, :track, :album, :listened_at, :sent, :created_at)`

	_, err := db.NamedExec(query, s)
	return err
}

// ListUnsentScrobbles returns unsent rows in listen-timestamp order.
func (db *DB) ListUnsentScrobbles() ([]*domain.QueuedScrobble, error) {
	query := `SELECT * FROM queued_scrobbles WHERE sent = 0 ORDER BY listened_at ASC`

	var scrobbles []*domain.QueuedScrobble
	err := db.Select(&scrobbles, query)
	return scrobbles, err
}

// MarkScrobblesSent flips sent for exactly the given ids. Rows a batch
// rejection did not confirm stay unsent and are resubmitted next drain.
func (db *DB) MarkScrobblesSent(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE queued_scrobbles SET sent = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = db.Exec(db.Rebind(query), args...)
	return err
}

func (db *DB) CountUnsentScrobbles() (int, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM queued_scrobbles WHERE sent = 0`)
	return count, err
}

// DeleteSentScrobblesBefore prunes sent rows older than the retention
// cutoff.
func (db *DB) DeleteSentScrobblesBefore(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM queued_scrobbles WHERE sent = 1 AND listened_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
