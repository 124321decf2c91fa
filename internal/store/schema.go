package store

const Schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	track_id TEXT PRIMARY KEY,

	-- Metadata
	title TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',

	-- Lifecycle
	status TEXT NOT NULL,
	progress_percent INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',

	-- File, set only once ready
	file_path TEXT NOT NULL DEFAULT '',
	file_size_bytes INTEGER NOT NULL DEFAULT 0,
	file_hash TEXT NOT NULL DEFAULT '',

	-- Quality descriptor, informational
	format TEXT NOT NULL DEFAULT '',
	bit_depth INTEGER NOT NULL DEFAULT 0,
	sample_rate INTEGER NOT NULL DEFAULT 0,
	channels INTEGER NOT NULL DEFAULT 0,

	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	last_accessed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_status ON cache_entries(status);
CREATE INDEX IF NOT EXISTS idx_cache_entries_last_accessed ON cache_entries(last_accessed_at);

-- Pending remote effects outlive the media cache: these tables record
-- intended remote-side changes, not local file state.
CREATE TABLE IF NOT EXISTS pending_playlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_public BOOLEAN NOT NULL DEFAULT 0,
	remote_track_ids TEXT NOT NULL DEFAULT '[]',  -- JSON array
	local_track_paths TEXT NOT NULL DEFAULT '[]', -- JSON array
	remote_playlist_id TEXT,
	synced BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pending_playlists_synced ON pending_playlists(synced, created_at);

CREATE TABLE IF NOT EXISTS queued_scrobbles (
	id TEXT PRIMARY KEY,
	artist TEXT NOT NULL,
	track TEXT NOT NULL,
	album TEXT NOT NULL DEFAULT '',
	listened_at DATETIME NOT NULL,
	sent BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_queued_scrobbles_sent ON queued_scrobbles(sent, listened_at);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
