package store

const schema = `
-- Service configurations
CREATE TABLE IF NOT EXISTS services (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL CHECK(kind IN ('sonarr', 'radarr', 'qbittorrent')),
	name TEXT NOT NULL,
	base_url TEXT NOT NULL,
	api_key TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	password TEXT NOT NULL DEFAULT '',
	enabled INTEGER NOT NULL DEFAULT 1,
	timeout_ms INTEGER NOT NULL DEFAULT 30000,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_services_kind ON services(kind);
CREATE INDEX IF NOT EXISTS idx_services_enabled ON services(enabled);
`

// GetSchema returns the full database schema
func GetSchema() string {
	return schema
}
