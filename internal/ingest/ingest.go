// Package ingest persists fetcher batch records into the tracking
// database and records repository mentions found in discussion content.
package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mfeldheim/starwatch/internal/database"
	"github.com/mfeldheim/starwatch/internal/match"
	"github.com/mfeldheim/starwatch/internal/source"
)

// RepoStats counts the outcomes of persisting repository records.
type RepoStats struct {
	Saved      int
	Duplicates int
	Invalid    int
}

// DiscussionStats counts the outcomes of persisting discussion records.
type DiscussionStats struct {
	Saved      int
	Duplicates int
	Invalid    int
	Comments   int
	Mentions   int
}

// BatchStats aggregates the outcome of one persisted batch.
type BatchStats struct {
	Repos  RepoStats
	HN     DiscussionStats
	Reddit DiscussionStats
}

// Mentions returns the total mentions recorded across sources.
func (s *BatchStats) Mentions() int {
	return s.HN.Mentions + s.Reddit.Mentions
}

// Items returns the total discussion items saved across sources.
func (s *BatchStats) Items() int {
	return s.HN.Saved + s.Reddit.Saved
}

func (s *BatchStats) add(other *BatchStats) {
	s.Repos.Saved += other.Repos.Saved
	s.Repos.Duplicates += other.Repos.Duplicates
	s.Repos.Invalid += other.Repos.Invalid
	s.HN.add(other.HN)
	s.Reddit.add(other.Reddit)
}

func (d *DiscussionStats) add(o DiscussionStats) {
	d.Saved += o.Saved
	d.Duplicates += o.Duplicates
	d.Invalid += o.Invalid
	d.Comments += o.Comments
	d.Mentions += o.Mentions
}

// Ingestor writes batch records to the database. All writes serialize
// behind one mutex so concurrent decoders can share a single instance.
type Ingestor struct {
	mu  sync.Mutex
	db  *database.DB
	log *slog.Logger
}

// New creates an Ingestor writing to db.
func New(db *database.DB, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{db: db, log: logger}
}

// PersistBatch persists one decoded batch for a calendar day: repository
// records first, then both discussion sources with mention matching
// against the repositories tracked so far.
func (ing *Ingestor) PersistBatch(batch *source.Batch, day string) (*BatchStats, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	stats := &BatchStats{}

	repoIDs, repoStats, err := ing.persistRepositories(batch.Repos, day)
	stats.Repos = repoStats
	if err != nil {
		return stats, err
	}

	// Mentions match against every repository tracked so far, not just
	// the ones in this batch, so discussions-only batches still count.
	mentionIDs, err := ing.knownRepoIDs(repoIDs)
	if err != nil {
		return stats, err
	}

	stats.HN, err = ing.persistDiscussions(database.SourceHN, batch.Discussions.HN, mentionIDs, day)
	if err != nil {
		return stats, err
	}
	stats.Reddit, err = ing.persistDiscussions(database.SourceReddit, batch.Discussions.Reddit, mentionIDs, day)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// knownRepoIDs extends a batch's lower-cased name to row ID map with
// every repository already tracked in the database.
func (ing *Ingestor) knownRepoIDs(batch map[string]int64) (map[string]int64, error) {
	names, err := ing.db.TrackedNames()
	if err != nil {
		return nil, err
	}

	known := make(map[string]int64, len(names))
	for key, id := range batch {
		known[key] = id
	}
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := known[key]; ok {
			continue
		}
		repo, err := ing.db.GetRepoByName(name)
		if err != nil {
			return nil, err
		}
		if repo != nil {
			known[key] = repo.ID
		}
	}
	return known, nil
}

// PersistRepositories persists repository records for a day and returns
// the lower-cased name to row ID mapping for mention matching.
func (ing *Ingestor) PersistRepositories(records []source.RepoRecord, day string) (map[string]int64, RepoStats, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.persistRepositories(records, day)
}

// PersistDiscussions persists discussion records from one source and
// records mentions of tracked repositories.
func (ing *Ingestor) PersistDiscussions(src string, items []source.DiscussionRecord, repoIDs map[string]int64, day string) (DiscussionStats, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	return ing.persistDiscussions(src, items, repoIDs, day)
}

func (ing *Ingestor) persistRepositories(records []source.RepoRecord, day string) (map[string]int64, RepoStats, error) {
	var stats RepoStats
	repoIDs := make(map[string]int64, len(records))

	for _, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" || rec.URL == "" {
			ing.log.Warn("skipping invalid repo record", "name", rec.Name, "url", rec.URL)
			stats.Invalid++
			continue
		}
		key := strings.ToLower(name)
		if _, dup := repoIDs[key]; dup {
			stats.Duplicates++
			continue
		}

		repoID, err := ing.db.UpsertRepository(rec.ExternalID, name, rec.Description, rec.URL, rec.Language, rec.CreatedAt)
		if err != nil {
			return repoIDs, stats, fmt.Errorf("upserting repo %s: %w", name, err)
		}
		repoIDs[key] = repoID

		if err := ing.db.SaveSnapshot(repoID, rec.Stars, rec.Forks, rec.OpenIssues, day); err != nil {
			return repoIDs, stats, fmt.Errorf("saving snapshot for %s: %w", name, err)
		}
		if err := ing.db.SaveTopics(repoID, rec.Topics); err != nil {
			return repoIDs, stats, fmt.Errorf("saving topics for %s: %w", name, err)
		}
		if err := ing.db.SaveFiles(repoID, rec.Files); err != nil {
			return repoIDs, stats, fmt.Errorf("saving files for %s: %w", name, err)
		}
		if rec.Readme != nil && *rec.Readme != "" {
			if err := ing.db.SaveReadme(repoID, *rec.Readme); err != nil {
				return repoIDs, stats, fmt.Errorf("saving readme for %s: %w", name, err)
			}
		}
		stats.Saved++
	}

	return repoIDs, stats, nil
}

func (ing *Ingestor) persistDiscussions(src string, items []source.DiscussionRecord, repoIDs map[string]int64, day string) (DiscussionStats, error) {
	var stats DiscussionStats

	tracked := make([]string, 0, len(repoIDs))
	for name := range repoIDs {
		tracked = append(tracked, name)
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.PlatformID == "" || item.Title == "" {
			ing.log.Warn("skipping invalid discussion item", "source", src, "platform_id", item.PlatformID)
			stats.Invalid++
			continue
		}
		if seen[item.PlatformID] {
			stats.Duplicates++
			continue
		}
		seen[item.PlatformID] = true

		itemID, err := ing.db.SaveDiscussionItem(&database.DiscussionItem{
			Source:       src,
			PlatformID:   item.PlatformID,
			Title:        item.Title,
			URL:          item.URL,
			Score:        item.Score,
			CommentCount: item.CommentCount,
			Author:       item.Author,
			Permalink:    item.Permalink,
			Body:         item.Body,
			CreatedAt:    item.CreatedAt,
		})
		if err != nil {
			return stats, fmt.Errorf("saving %s item %s: %w", src, item.PlatformID, err)
		}
		stats.Saved++

		if len(item.Comments) > 0 {
			comments := make([]database.Comment, 0, len(item.Comments))
			for _, c := range item.Comments {
				comments = append(comments, database.Comment{Author: c.Author, Content: c.Text, Score: c.Score})
			}
			if err := ing.db.SaveComments(itemID, comments); err != nil {
				return stats, fmt.Errorf("saving comments for %s item %s: %w", src, item.PlatformID, err)
			}
			stats.Comments += len(comments)
		}

		// URL match wins; the looser body-text heuristic only runs when
		// the URL resolves to nothing tracked.
		repoKey, matched := "", false
		if item.URL != nil {
			if name, ok := match.ExtractRepo(*item.URL); ok {
				if _, isTracked := repoIDs[name]; isTracked {
					repoKey, matched = name, true
				}
			}
		}
		if !matched && item.Body != nil {
			if name, ok := match.MatchTracked(*item.Body, tracked); ok {
				repoKey, matched = name, true
			}
		}
		if matched {
			if err := ing.db.RecordMention(repoIDs[repoKey], src, itemID, day); err != nil {
				return stats, fmt.Errorf("recording mention of %s: %w", repoKey, err)
			}
			stats.Mentions++
		}
	}

	return stats, nil
}
