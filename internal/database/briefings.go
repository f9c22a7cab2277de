package database

import (
	"database/sql"
)

// CreateBriefing records a generated briefing and returns its ID.
// reportPath is nil when the briefing was not written to disk.
func (db *DB) CreateBriefing(reportPath *string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO briefings (report_path) VALUES (?)", reportPath,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// MarkFeatured records that a briefing featured a repository.
// Featuring the same repository twice in one briefing is a no-op.
func (db *DB) MarkFeatured(briefingID, repoID int64, featureType string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO briefing_repos (briefing_id, repo_id, feature_type)
		VALUES (?, ?, ?)`,
		briefingID, repoID, featureType,
	)
	return err
}

// PreviouslyFeatured returns the canonical names of repositories featured
// in any briefing generated on or after the given date.
func (db *DB) PreviouslyFeatured(since string) (map[string]bool, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT r.full_name
		FROM briefing_repos br
		JOIN briefings b ON br.briefing_id = b.id
		JOIN repositories r ON br.repo_id = r.id
		WHERE b.generated_at >= ?`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	featured := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		featured[name] = true
	}
	return featured, rows.Err()
}

// FeatureCount returns how many briefings have featured a repository.
func (db *DB) FeatureCount(repoID int64) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM briefing_repos WHERE repo_id = ?", repoID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// GetBriefing returns a briefing by ID, or nil if unknown.
func (db *DB) GetBriefing(id int64) (*Briefing, error) {
	row := db.conn.QueryRow(
		"SELECT id, generated_at, report_path FROM briefings WHERE id = ?", id,
	)

	var b Briefing
	if err := row.Scan(&b.ID, &b.GeneratedAt, &b.ReportPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// GetAllBriefings returns all briefings, newest first.
func (db *DB) GetAllBriefings() ([]Briefing, error) {
	rows, err := db.conn.Query(
		"SELECT id, generated_at, report_path FROM briefings ORDER BY id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var briefings []Briefing
	for rows.Next() {
		var b Briefing
		if err := rows.Scan(&b.ID, &b.GeneratedAt, &b.ReportPath); err != nil {
			return nil, err
		}
		briefings = append(briefings, b)
	}
	return briefings, rows.Err()
}

// BriefingFeatures returns the repositories featured in a briefing.
func (db *DB) BriefingFeatures(briefingID int64) ([]BriefingFeature, error) {
	rows, err := db.conn.Query(
		`SELECT br.repo_id, r.full_name, br.feature_type
		FROM briefing_repos br
		JOIN repositories r ON br.repo_id = r.id
		WHERE br.briefing_id = ?
		ORDER BY r.full_name`,
		briefingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []BriefingFeature
	for rows.Next() {
		var f BriefingFeature
		if err := rows.Scan(&f.RepoID, &f.FullName, &f.FeatureType); err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM repositories", &s.Repositories},
		{"SELECT COUNT(*) FROM repo_snapshots", &s.Snapshots},
		{"SELECT COUNT(*) FROM discussion_items WHERE source = 'hn'", &s.HNItems},
		{"SELECT COUNT(*) FROM discussion_items WHERE source = 'reddit'", &s.RedditItems},
		{"SELECT COUNT(*) FROM discussion_comments", &s.Comments},
		{"SELECT COUNT(*) FROM repo_mentions", &s.Mentions},
		{"SELECT COUNT(*) FROM briefings", &s.Briefings},
		{"SELECT COUNT(*) FROM weekly_reports", &s.WeeklyReports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	if err := db.conn.QueryRow(
		"SELECT MAX(snapshot_date) FROM repo_snapshots",
	).Scan(&s.LastSnapshot); err != nil {
		return nil, err
	}

	return s, nil
}
