package database

import (
	"database/sql"
)

// SaveDiscussionItem inserts a discussion item or, for an item already
// captured from the same source, refreshes its score and comment count.
// Returns the item's row ID either way.
func (db *DB) SaveDiscussionItem(item *DiscussionItem) (int64, error) {
	var id int64
	err := db.conn.QueryRow(
		`INSERT INTO discussion_items
			(source, platform_id, title, url, score, comment_count, author, permalink, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, platform_id) DO UPDATE SET
			score = excluded.score,
			comment_count = excluded.comment_count,
			fetched_at = datetime('now')
		RETURNING id`,
		item.Source, item.PlatformID, item.Title, item.URL, item.Score,
		item.CommentCount, item.Author, item.Permalink, item.Body, item.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SaveComments appends point-in-time comment captures for an item.
func (db *DB) SaveComments(itemID int64, comments []Comment) error {
	if len(comments) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range comments {
		if _, err := tx.Exec(
			"INSERT INTO discussion_comments (item_id, author, content, score) VALUES (?, ?, ?, ?)",
			itemID, c.Author, c.Content, c.Score,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetDiscussionItem returns an item by source and platform ID, or nil if
// never captured.
func (db *DB) GetDiscussionItem(source, platformID string) (*DiscussionItem, error) {
	row := db.conn.QueryRow(
		`SELECT id, source, platform_id, title, url, score, comment_count,
			author, permalink, body, created_at, fetched_at
		FROM discussion_items WHERE source = ? AND platform_id = ?`,
		source, platformID,
	)
	var item DiscussionItem
	err := row.Scan(&item.ID, &item.Source, &item.PlatformID, &item.Title,
		&item.URL, &item.Score, &item.CommentCount, &item.Author,
		&item.Permalink, &item.Body, &item.CreatedAt, &item.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CommentsForItem returns the captured comments for an item, oldest first.
func (db *DB) CommentsForItem(itemID int64) ([]Comment, error) {
	rows, err := db.conn.Query(
		"SELECT id, item_id, author, content, score FROM discussion_comments WHERE item_id = ? ORDER BY id",
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.Author, &c.Content, &c.Score); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
