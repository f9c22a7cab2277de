package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS repositories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id INTEGER UNIQUE,
    full_name TEXT UNIQUE NOT NULL,
    description TEXT,
    url TEXT NOT NULL,
    language TEXT,
    created_at TEXT,
    first_seen_at TEXT DEFAULT (datetime('now')),
    last_updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS repo_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER NOT NULL REFERENCES repositories(id),
    stars INTEGER NOT NULL,
    forks INTEGER,
    open_issues INTEGER,
    snapshot_date TEXT NOT NULL,
    fetched_at TEXT DEFAULT (datetime('now')),
    UNIQUE (repo_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS repo_topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER NOT NULL REFERENCES repositories(id),
    topic TEXT NOT NULL,
    UNIQUE (repo_id, topic)
);

CREATE TABLE IF NOT EXISTS repo_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER NOT NULL REFERENCES repositories(id),
    filename TEXT NOT NULL,
    UNIQUE (repo_id, filename)
);

CREATE TABLE IF NOT EXISTS repo_readmes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER UNIQUE NOT NULL REFERENCES repositories(id),
    content TEXT,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS discussion_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    platform_id TEXT NOT NULL,
    title TEXT NOT NULL,
    url TEXT,
    score INTEGER DEFAULT 0,
    comment_count INTEGER DEFAULT 0,
    author TEXT,
    permalink TEXT,
    body TEXT,
    created_at TEXT,
    fetched_at TEXT DEFAULT (datetime('now')),
    UNIQUE (source, platform_id)
);

CREATE TABLE IF NOT EXISTS discussion_comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    item_id INTEGER NOT NULL REFERENCES discussion_items(id),
    author TEXT,
    content TEXT,
    score INTEGER,
    fetched_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS repo_mentions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repo_id INTEGER NOT NULL REFERENCES repositories(id),
    source TEXT NOT NULL,
    item_id INTEGER NOT NULL REFERENCES discussion_items(id),
    mention_date TEXT NOT NULL,
    UNIQUE (repo_id, source, item_id)
);

CREATE TABLE IF NOT EXISTS briefings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    generated_at TEXT DEFAULT (datetime('now')),
    report_path TEXT
);

CREATE TABLE IF NOT EXISTS briefing_repos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    briefing_id INTEGER NOT NULL REFERENCES briefings(id),
    repo_id INTEGER NOT NULL REFERENCES repositories(id),
    feature_type TEXT DEFAULT 'trending',
    UNIQUE (briefing_id, repo_id)
);

CREATE TABLE IF NOT EXISTS weekly_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scope TEXT,
    week_start TEXT NOT NULL,
    week_end TEXT NOT NULL,
    report_data TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_repo ON repo_snapshots(repo_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_date ON repo_snapshots(snapshot_date);
CREATE INDEX IF NOT EXISTS idx_items_source ON discussion_items(source);
CREATE INDEX IF NOT EXISTS idx_items_fetched ON discussion_items(fetched_at);
CREATE INDEX IF NOT EXISTS idx_comments_item ON discussion_comments(item_id);
CREATE INDEX IF NOT EXISTS idx_mentions_repo ON repo_mentions(repo_id);
CREATE INDEX IF NOT EXISTS idx_mentions_date ON repo_mentions(mention_date);
CREATE INDEX IF NOT EXISTS idx_briefing_repos_repo ON briefing_repos(repo_id);
CREATE INDEX IF NOT EXISTS idx_weekly_reports_week ON weekly_reports(week_start);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
