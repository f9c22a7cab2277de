package database

// RecordMention links a repository to a discussion item for a date.
// The same item never counts twice for one repository and source.
func (db *DB) RecordMention(repoID int64, source string, itemID int64, date string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO repo_mentions (repo_id, source, item_id, mention_date)
		VALUES (?, ?, ?, ?)`,
		repoID, source, itemID, date,
	)
	return err
}

// MentionCounts returns per-source mention counts for a repository on or
// after the given date. Sources with no mentions report zero.
func (db *DB) MentionCounts(repoID int64, since string) (map[string]int, error) {
	rows, err := db.conn.Query(
		`SELECT source, COUNT(*) FROM repo_mentions
		WHERE repo_id = ? AND mention_date >= ?
		GROUP BY source`,
		repoID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{SourceHN: 0, SourceReddit: 0}
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

// MentionsForRepo returns a repository's recorded mentions, newest first.
func (db *DB) MentionsForRepo(repoID int64) ([]Mention, error) {
	rows, err := db.conn.Query(
		`SELECT id, repo_id, source, item_id, mention_date
		FROM repo_mentions WHERE repo_id = ?
		ORDER BY mention_date DESC, id DESC`,
		repoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mentions []Mention
	for rows.Next() {
		var m Mention
		if err := rows.Scan(&m.ID, &m.RepoID, &m.Source, &m.ItemID, &m.MentionDate); err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	return mentions, rows.Err()
}
