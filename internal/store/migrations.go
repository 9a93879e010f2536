package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_cursors (
	host       TEXT NOT NULL,
	query      TEXT NOT NULL,
	synced_at  DATETIME NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (host, query)
);

CREATE TABLE IF NOT EXISTS activity (
	id         TEXT PRIMARY KEY,
	host       TEXT NOT NULL,
	issue_key  TEXT NOT NULL,
	kind       TEXT NOT NULL CHECK(kind IN ('comment', 'reopen')),
	detail     TEXT NOT NULL DEFAULT '',
	applied    INTEGER NOT NULL DEFAULT 1 CHECK(applied IN (0, 1)),
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_issue_key ON activity(issue_key);
CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
