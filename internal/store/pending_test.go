package store

import (
	"testing"
	"time"

	"github.com/dmaytorres/trackvault/internal/domain"
)

func TestDB_PendingPlaylists(t *testing.T) {
	db := setupTestDB(t)

	now := time.Now()
	pl := &domain.PendingPlaylist{
		ID:              "pl_1",
		Name:            "Evening",
		Description:     "wind down",
		IsPublic:        true,
		RemoteTrackIDs:  domain.StringSlice{"r1", "r2"},
		LocalTrackPaths: domain.StringSlice{"/music/a.flac"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.CreatePendingPlaylist(pl); err != nil {
		t.Fatalf("CreatePendingPlaylist failed: %v", err)
	}

	fetched, err := db.GetPendingPlaylist("pl_1")
	if err != nil {
		t.Fatalf("GetPendingPlaylist failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("Expected playlist to exist")
	}
	if len(fetched.RemoteTrackIDs) != 2 || fetched.RemoteTrackIDs[1] != "r2" {
		t.Errorf("Remote track ids did not round-trip: %v", fetched.RemoteTrackIDs)
	}
	if len(fetched.LocalTrackPaths) != 1 {
		t.Errorf("Local track paths did not round-trip: %v", fetched.LocalTrackPaths)
	}
	if fetched.RemotePlaylistID != nil {
		t.Error("Expected no remote id on a fresh playlist")
	}
	if fetched.Synced {
		t.Error("Expected fresh playlist to be unsynced")
	}

	if err := db.SetRemotePlaylistID("pl_1", "remote_9"); err != nil {
		t.Fatalf("SetRemotePlaylistID failed: %v", err)
	}
	fetched, _ = db.GetPendingPlaylist("pl_1")
	if fetched.RemotePlaylistID == nil || *fetched.RemotePlaylistID != "remote_9" {
		t.Error("Expected remote id to persist")
	}
	if fetched.Synced {
		t.Error("Setting the remote id must not mark the playlist synced")
	}

	unsynced, err := db.ListUnsyncedPlaylists()
	if err != nil {
		t.Fatalf("ListUnsyncedPlaylists failed: %v", err)
	}
	if len(unsynced) != 1 {
		t.Fatalf("Expected 1 unsynced playlist, got %d", len(unsynced))
	}

	if err := db.MarkPlaylistSynced("pl_1"); err != nil {
		t.Fatalf("MarkPlaylistSynced failed: %v", err)
	}
	unsynced, _ = db.ListUnsyncedPlaylists()
	if len(unsynced) != 0 {
		t.Errorf("Expected no unsynced playlists, got %d", len(unsynced))
	}

	all, _ := db.ListPendingPlaylists()
	if len(all) != 1 {
		t.Errorf("Synced playlists remain listed, got %d", len(all))
	}

	if err := db.DeletePendingPlaylist("pl_1"); err != nil {
		t.Fatalf("DeletePendingPlaylist failed: %v", err)
	}
	fetched, _ = db.GetPendingPlaylist("pl_1")
	if fetched != nil {
		t.Error("Expected playlist to be deleted")
	}
}

func TestDB_Scrobbles(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"s3", "s1", "s2"} {
		offset := map[string]time.Duration{"s1": 1, "s2": 2, "s3": 3}[id] * time.Minute
		s := &domain.QueuedScrobble{
			ID:         id,
			Artist:     "Artist",
			Track:      "Track",
			ListenedAt: base.Add(offset),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := db.CreateScrobble(s); err != nil {
			t.Fatalf("CreateScrobble failed: %v", err)
		}
	}

	unsent, err := db.ListUnsentScrobbles()
	if err != nil {
		t.Fatalf("ListUnsentScrobbles failed: %v", err)
	}
	if len(unsent) != 3 {
		t.Fatalf("Expected 3 unsent scrobbles, got %d", len(unsent))
	}
	if unsent[0].ID != "s1" || unsent[1].ID != "s2" || unsent[2].ID != "s3" {
		t.Errorf("Expected listen-time order, got %s %s %s", unsent[0].ID, unsent[1].ID, unsent[2].ID)
	}

	if err := db.MarkScrobblesSent([]string{"s1", "s3"}); err != nil {
		t.Fatalf("MarkScrobblesSent failed: %v", err)
	}
	count, err := db.CountUnsentScrobbles()
	if err != nil {
		t.Fatalf("CountUnsentScrobbles failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 unsent scrobble, got %d", count)
	}

	// Empty id list is a no-op, not an error.
	if err := db.MarkScrobblesSent(nil); err != nil {
		t.Errorf("MarkScrobblesSent(nil) failed: %v", err)
	}

	removed, err := db.DeleteSentScrobblesBefore(time.Now())
	if err != nil {
		t.Fatalf("DeleteSentScrobblesBefore failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 pruned scrobbles, got %d", removed)
	}

	// The unsent one survives retention cleanup.
	count, _ = db.CountUnsentScrobbles()
	if count != 1 {
		t.Errorf("Expected unsent scrobble to survive pruning, got %d", count)
	}
}

func TestDB_Settings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)

	val, err := repo.Get("missing")
	if err != nil {
		t.Fatalf("Get on missing key failed: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty value for missing key, got %q", val)
	}

	if err := repo.Set(SettingCacheLimitBytes, "1048576"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, _ = repo.Get(SettingCacheLimitBytes)
	if val != "1048576" {
		t.Errorf("Expected 1048576, got %q", val)
	}

	// Overwrite, same key.
	if err := repo.Set(SettingCacheLimitBytes, "-1"); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}
	val, _ = repo.Get(SettingCacheLimitBytes)
	if val != "-1" {
		t.Errorf("Expected -1 after overwrite, got %q", val)
	}

	if err := repo.Delete(SettingCacheLimitBytes); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	val, _ = repo.Get(SettingCacheLimitBytes)
	if val != "" {
		t.Errorf("Expected empty value after delete, got %q", val)
	}
}
