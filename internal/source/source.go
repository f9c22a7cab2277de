// Package source defines the JSON record schemas that fetchers deposit
// as batch files for ingestion.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// RepoRecord is one repository observation from a fetcher.
type RepoRecord struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description *string  `json:"description,omitempty"`
	Language    *string  `json:"language,omitempty"`
	ExternalID  *int64   `json:"external_id,omitempty"`
	Stars       int      `json:"stars"`
	Forks       *int     `json:"forks,omitempty"`
	OpenIssues  *int     `json:"open_issues,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Files       []string `json:"files,omitempty"`
	Readme      *string  `json:"readme,omitempty"`
	CreatedAt   *string  `json:"created_at,omitempty"`
}

// DiscussionRecord is one story or post observation from a discussion
// platform fetcher.
type DiscussionRecord struct {
	PlatformID   string          `json:"platform_id"`
	Title        string          `json:"title"`
	URL          *string         `json:"url,omitempty"`
	Score        int             `json:"score"`
	CommentCount int             `json:"comment_count"`
	Author       *string         `json:"author,omitempty"`
	Permalink    *string         `json:"permalink,omitempty"`
	Body         *string         `json:"body,omitempty"`
	CreatedAt    *string         `json:"created_at,omitempty"`
	Comments     []CommentRecord `json:"comments,omitempty"`
}

// CommentRecord is a captured comment on a discussion item.
type CommentRecord struct {
	Author *string `json:"author,omitempty"`
	Text   *string `json:"text,omitempty"`
	Score  *int    `json:"score,omitempty"`
}

// Discussions groups discussion records by platform.
type Discussions struct {
	HN     []DiscussionRecord `json:"hn"`
	Reddit []DiscussionRecord `json:"reddit"`
}

// Batch is the top-level shape of one deposited batch file.
type Batch struct {
	FetchedAt   string       `json:"fetched_at"`
	Repos       []RepoRecord `json:"repos"`
	Discussions Discussions  `json:"discussions"`
}

// ReadBatch reads and decodes one batch file.
func ReadBatch(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	batch, err := DecodeBatch(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return batch, nil
}

// DecodeBatch decodes a batch from a reader.
func DecodeBatch(r io.Reader) (*Batch, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
