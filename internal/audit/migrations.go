package audit

type migration struct {
	version int
	sql     string
}

// migrations must stay ordered by version, starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS deletions (
	id          TEXT PRIMARY KEY,
	mailbox     TEXT NOT NULL,
	expression  TEXT NOT NULL,
	candidates  INTEGER NOT NULL DEFAULT 0,
	deleted     INTEGER NOT NULL DEFAULT 0,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_deletions_created_at ON deletions(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
