package history

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations must be numbered sequentially from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_key       TEXT NOT NULL,
	notification_id INTEGER NOT NULL DEFAULT 0,
	user_id         INTEGER NOT NULL DEFAULT 0,
	event           TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT '',
	sender          TEXT NOT NULL DEFAULT '',
	preview         TEXT NOT NULL DEFAULT '',
	temporary       INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_events_created ON notification_events(created_at);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE notification_events ADD COLUMN destination TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_notification_events_event ON notification_events(event);
`,
	},
}
