package database

import (
	"database/sql"
)

const repoColumns = `id, external_id, full_name, description, url, language, created_at, first_seen_at, last_updated_at`

// UpsertRepository inserts a repository or updates an existing row.
// Existing rows are matched by external ID first, canonical name second.
// Returns the repository's row ID.
func (db *DB) UpsertRepository(externalID *int64, fullName string, description *string, url string, language, createdAt *string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	found := false

	if externalID != nil {
		err := tx.QueryRow(
			"SELECT id FROM repositories WHERE external_id = ?", *externalID,
		).Scan(&id)
		if err != nil && err != sql.ErrNoRows {
			return 0, err
		}
		found = err == nil
	}
	if !found {
		err := tx.QueryRow(
			"SELECT id FROM repositories WHERE full_name = ? COLLATE NOCASE", fullName,
		).Scan(&id)
		if err != nil && err != sql.ErrNoRows {
			return 0, err
		}
		found = err == nil
	}

	if found {
		_, err := tx.Exec(
			`UPDATE repositories
			SET external_id = COALESCE(?, external_id), full_name = ?, description = ?,
				url = ?, language = ?, last_updated_at = datetime('now')
			WHERE id = ?`,
			externalID, fullName, description, url, language, id,
		)
		if err != nil {
			return 0, err
		}
	} else {
		result, err := tx.Exec(
			`INSERT INTO repositories (external_id, full_name, description, url, language, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			externalID, fullName, description, url, language, createdAt,
		)
		if err != nil {
			return 0, err
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// SaveSnapshot records a repository's counters for a calendar date.
// Re-ingesting the same date overwrites the previous values.
func (db *DB) SaveSnapshot(repoID int64, stars int, forks, openIssues *int, date string) error {
	_, err := db.conn.Exec(
		`INSERT INTO repo_snapshots (repo_id, stars, forks, open_issues, snapshot_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, snapshot_date) DO UPDATE SET
			stars = excluded.stars,
			forks = excluded.forks,
			open_issues = excluded.open_issues,
			fetched_at = datetime('now')`,
		repoID, stars, forks, openIssues, date,
	)
	return err
}

// SaveTopics records a repository's topic labels. Duplicates are ignored.
func (db *DB) SaveTopics(repoID int64, topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, topic := range topics {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO repo_topics (repo_id, topic) VALUES (?, ?)",
			repoID, topic,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveFiles records filenames observed in a repository's tree listing.
// Duplicates are ignored.
func (db *DB) SaveFiles(repoID int64, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range filenames {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO repo_files (repo_id, filename) VALUES (?, ?)",
			repoID, name,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveReadme stores or replaces a repository's readme content.
func (db *DB) SaveReadme(repoID int64, content string) error {
	_, err := db.conn.Exec(
		`INSERT INTO repo_readmes (repo_id, content)
		VALUES (?, ?)
		ON CONFLICT (repo_id) DO UPDATE SET
			content = excluded.content,
			updated_at = datetime('now')`,
		repoID, content,
	)
	return err
}

// GetRepoByName returns a repository by canonical name, or nil if
// unknown. Matching is case-insensitive.
func (db *DB) GetRepoByName(fullName string) (*Repository, error) {
	row := db.conn.QueryRow(
		`SELECT `+repoColumns+` FROM repositories WHERE full_name = ? COLLATE NOCASE`, fullName,
	)
	r, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRepoByID returns a repository by row ID, or nil if unknown.
func (db *DB) GetRepoByID(repoID int64) (*Repository, error) {
	row := db.conn.QueryRow(
		`SELECT `+repoColumns+` FROM repositories WHERE id = ?`, repoID,
	)
	r, err := scanRepo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ReposWithSnapshots returns every repository that has at least one
// snapshot, ordered by canonical name.
func (db *DB) ReposWithSnapshots() ([]Repository, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT r.id, r.external_id, r.full_name, r.description, r.url,
			r.language, r.created_at, r.first_seen_at, r.last_updated_at
		FROM repositories r
		JOIN repo_snapshots s ON r.id = s.repo_id
		ORDER BY r.full_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRepos(rows)
}

// TrackedNames returns the canonical names of all tracked repositories,
// ordered by name.
func (db *DB) TrackedNames() ([]string, error) {
	rows, err := db.conn.Query("SELECT full_name FROM repositories ORDER BY full_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SnapshotHistory returns a repository's snapshots on or after the given
// date, oldest first.
func (db *DB) SnapshotHistory(repoID int64, since string) ([]Snapshot, error) {
	rows, err := db.conn.Query(
		`SELECT id, repo_id, stars, forks, open_issues, snapshot_date, fetched_at
		FROM repo_snapshots
		WHERE repo_id = ? AND snapshot_date >= ?
		ORDER BY snapshot_date ASC`,
		repoID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.RepoID, &s.Stars, &s.Forks, &s.OpenIssues,
			&s.SnapshotDate, &s.FetchedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// StarGrowth returns a repository's star count on the given date and the
// newest count at most days days older. ok is false when the repository
// has no snapshot for the date itself; past is nil when no snapshot that
// old exists.
func (db *DB) StarGrowth(repoID int64, date string, days int) (current int, past *int, ok bool, err error) {
	err = db.conn.QueryRow(
		"SELECT stars FROM repo_snapshots WHERE repo_id = ? AND snapshot_date = ?",
		repoID, date,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}

	cutoff, err := DaysBefore(date, days)
	if err != nil {
		return 0, nil, false, err
	}

	var p int
	err = db.conn.QueryRow(
		`SELECT stars FROM repo_snapshots
		WHERE repo_id = ? AND snapshot_date <= ?
		ORDER BY snapshot_date DESC LIMIT 1`,
		repoID, cutoff,
	).Scan(&p)
	if err == sql.ErrNoRows {
		return current, nil, true, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return current, &p, true, nil
}

// Topics returns a repository's topic labels, ordered alphabetically.
func (db *DB) Topics(repoID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT topic FROM repo_topics WHERE repo_id = ? ORDER BY topic", repoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// Readme returns a repository's stored readme content, or nil if none.
func (db *DB) Readme(repoID int64) (*string, error) {
	var content *string
	err := db.conn.QueryRow(
		"SELECT content FROM repo_readmes WHERE repo_id = ?", repoID,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func scanRepos(rows *sql.Rows) ([]Repository, error) {
	var repos []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.ExternalID, &r.FullName, &r.Description,
			&r.URL, &r.Language, &r.CreatedAt, &r.FirstSeenAt, &r.LastUpdatedAt); err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func scanRepo(row *sql.Row) (*Repository, error) {
	var r Repository
	if err := row.Scan(&r.ID, &r.ExternalID, &r.FullName, &r.Description,
		&r.URL, &r.Language, &r.CreatedAt, &r.FirstSeenAt, &r.LastUpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
