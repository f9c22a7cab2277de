package trend

import (
	"fmt"
	"math"

	"github.com/mfeldheim/starwatch/internal/database"
)

// Engine computes trend metrics from stored snapshots and mentions.
type Engine struct {
	db *database.DB
}

// NewEngine creates an Engine reading from db.
func NewEngine(db *database.DB) *Engine {
	return &Engine{db: db}
}

// MetricsFor computes the full trend metrics for one repository as of
// the given date. Returns nil without error when the repository has no
// snapshot for that date.
func (e *Engine) MetricsFor(repoID int64, name, today string) (*Metrics, error) {
	current, past7, ok, err := e.db.StarGrowth(repoID, today, 7)
	if err != nil {
		return nil, fmt.Errorf("star growth for %s: %w", name, err)
	}
	if !ok {
		return nil, nil
	}
	_, past14, _, err := e.db.StarGrowth(repoID, today, 14)
	if err != nil {
		return nil, fmt.Errorf("star growth for %s: %w", name, err)
	}

	growth := 0
	pct := 0.0
	if past7 != nil {
		growth = current - *past7
		if *past7 > 0 {
			pct = float64(growth) / float64(*past7) * 100
		}
	}

	// Acceleration: second week's growth relative to the first week's.
	// Positive means speeding up.
	accel := 0.0
	if past7 != nil && past14 != nil {
		firstWeek := *past7 - *past14
		secondWeek := current - *past7
		if firstWeek != 0 {
			accel = float64(secondWeek-firstWeek) / math.Abs(float64(firstWeek))
		}
	}

	since, err := database.DaysBefore(today, 7)
	if err != nil {
		return nil, err
	}
	mentions, err := e.db.MentionCounts(repoID, since)
	if err != nil {
		return nil, fmt.Errorf("mention counts for %s: %w", name, err)
	}
	featured, err := e.db.FeatureCount(repoID)
	if err != nil {
		return nil, fmt.Errorf("feature count for %s: %w", name, err)
	}

	hn := mentions[database.SourceHN]
	reddit := mentions[database.SourceReddit]

	return &Metrics{
		RepoID:           repoID,
		Name:             name,
		CurrentStars:     current,
		Stars7dAgo:       past7,
		Stars14dAgo:      past14,
		Growth7d:         growth,
		Growth7dPct:      round2(pct),
		GrowthTrend:      round2(accel),
		HNMentions7d:     hn,
		RedditMentions7d: reddit,
		TotalMentions7d:  hn + reddit,
		Status:           Classify(growth, accel, past7),
		TimesFeatured:    featured,
	}, nil
}
