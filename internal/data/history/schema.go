package history

import "database/sql"

const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS resolutions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	resolved_at TIMESTAMP NOT NULL,
	path TEXT NOT NULL,
	language TEXT NOT NULL,
	grammar TEXT NOT NULL DEFAULT '',
	root TEXT NOT NULL DEFAULT '',
	injections INTEGER NOT NULL DEFAULT 0,
	duration_us INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_resolutions_language ON resolutions(language);
CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at);
`

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_info`).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		if _, err := db.Exec(`INSERT INTO schema_info (version) VALUES (?)`, SchemaVersion); err != nil {
			return err
		}
	}
	return nil
}
