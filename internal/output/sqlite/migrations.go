package sqlite

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

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	columns    TEXT NOT NULL DEFAULT '[]',
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	seq          INTEGER NOT NULL,
	file         TEXT NOT NULL,
	x_folder     TEXT NOT NULL DEFAULT '',
	headers      TEXT NOT NULL DEFAULT '',
	fields       TEXT NOT NULL DEFAULT '{}',
	subject      TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	pii_entities TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_records_subject ON records(run_id, subject);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
