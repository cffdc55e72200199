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

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	category   TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL DEFAULT '',
	read       INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	read_at    DATETIME,
	metadata   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created
	ON notifications(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_user_read
	ON notifications(user_id, read);

CREATE TABLE IF NOT EXISTS notification_settings (
	user_id       TEXT PRIMARY KEY,
	email_enabled INTEGER NOT NULL DEFAULT 1 CHECK(email_enabled IN (0, 1)),
	web_enabled   INTEGER NOT NULL DEFAULT 1 CHECK(web_enabled IN (0, 1)),
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_categories (
	tag        TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS category_preferences (
	user_id       TEXT NOT NULL,
	category      TEXT NOT NULL,
	email_enabled INTEGER NOT NULL DEFAULT 1 CHECK(email_enabled IN (0, 1)),
	web_enabled   INTEGER NOT NULL DEFAULT 1 CHECK(web_enabled IN (0, 1)),
	position      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, category)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
INSERT OR IGNORE INTO notification_categories (tag, label, sort_order) VALUES
	('new_release',    'New releases',             1),
	('milestone',      'Milestones',               2),
	('list_activity',  'Activity on your lists',   3),
	('friend_request', 'Friend requests',          4),
	('forum_reply',    'Forum replies',            5),
	('moderation',     'Moderation queue',         6),
	('content_report', 'Content reports',          7),
	('system_alert',   'System alerts',            8);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
