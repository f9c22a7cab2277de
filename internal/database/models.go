package database

// Discussion sources recognized by the tracker.
const (
	SourceHN     = "hn"
	SourceReddit = "reddit"
)

// Feature types recorded for repos included in a briefing.
const (
	FeatureTrending  = "trending"
	FeatureStarOfDay = "star_of_day"
)

// Repository is a tracked repository.
type Repository struct {
	ID            int64
	ExternalID    *int64
	FullName      string
	Description   *string
	URL           string
	Language      *string
	CreatedAt     *string
	FirstSeenAt   *string
	LastUpdatedAt *string
}

// Snapshot is one calendar day's recorded counters for a repository.
type Snapshot struct {
	ID           int64
	RepoID       int64
	Stars        int
	Forks        *int
	OpenIssues   *int
	SnapshotDate string
	FetchedAt    *string
}

// DiscussionItem is a story or post captured from a discussion platform.
type DiscussionItem struct {
	ID           int64
	Source       string // "hn" or "reddit"
	PlatformID   string
	Title        string
	URL          *string
	Score        int
	CommentCount int
	Author       *string
	Permalink    *string
	Body         *string
	CreatedAt    *string
	FetchedAt    *string
}

// Comment is a point-in-time capture of a comment on a discussion item.
type Comment struct {
	ID      int64
	ItemID  int64
	Author  *string
	Content *string
	Score   *int
}

// Mention links a repository to a discussion item that referenced it.
type Mention struct {
	ID          int64
	RepoID      int64
	Source      string
	ItemID      int64
	MentionDate string
}

// Briefing records one generated briefing artifact.
type Briefing struct {
	ID          int64
	GeneratedAt *string
	ReportPath  *string
}

// BriefingFeature is a repository featured in a briefing.
type BriefingFeature struct {
	RepoID      int64
	FullName    string
	FeatureType string
}

// WeeklyReportRow is one persisted weekly report payload.
// Scope is nil for global reports.
type WeeklyReportRow struct {
	ID         int64
	Scope      *string
	WeekStart  string
	WeekEnd    string
	ReportData []byte
	CreatedAt  *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Repositories  int
	Snapshots     int
	HNItems       int
	RedditItems   int
	Comments      int
	Mentions      int
	Briefings     int
	WeeklyReports int
	LastSnapshot  *string
}
