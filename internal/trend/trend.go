// Package trend computes growth and momentum metrics for tracked
// repositories and assembles the daily trend report.
package trend

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Status classifies a repository's momentum.
type Status string

const (
	StatusRising    Status = "rising"
	StatusSteady    Status = "steady"
	StatusDeclining Status = "declining"
	StatusNew       Status = "new"
)

// Metrics holds the computed trend metrics for one repository.
type Metrics struct {
	RepoID           int64
	Name             string
	CurrentStars     int
	Stars7dAgo       *int
	Stars14dAgo      *int
	Growth7d         int
	Growth7dPct      float64
	GrowthTrend      float64
	HNMentions7d     int
	RedditMentions7d int
	TotalMentions7d  int
	Status           Status
	TimesFeatured    int
}

// Classify determines a repository's momentum status. A repository with
// no snapshot at least seven days old is NEW regardless of growth.
func Classify(growth7d int, accel float64, stars7dAgo *int) Status {
	if stars7dAgo == nil {
		return StatusNew
	}
	if growth7d > 100 && accel > 0.2 {
		return StatusRising
	}
	if growth7d < 0 || accel < -0.5 {
		return StatusDeclining
	}
	return StatusSteady
}

// Summary renders a one-line description of the repository's week.
func (m *Metrics) Summary() string {
	var parts []string

	switch {
	case m.Status == StatusNew:
		parts = append(parts, fmt.Sprintf("Discovered this week (%d stars)", m.CurrentStars))
	case m.Growth7d > 0:
		parts = append(parts, fmt.Sprintf("Gained %d stars last week (%s%% increase)", m.Growth7d, formatFloat(m.Growth7dPct)))
	case m.Growth7d < 0:
		parts = append(parts, fmt.Sprintf("Lost %d stars last week", -m.Growth7d))
	}

	if m.GrowthTrend > 0.5 {
		parts = append(parts, "gaining momentum")
	} else if m.GrowthTrend < -0.5 {
		parts = append(parts, "slowing down")
	}

	if m.TotalMentions7d > 0 {
		var mentions []string
		if m.HNMentions7d > 0 {
			mentions = append(mentions, fmt.Sprintf("%dx on HN", m.HNMentions7d))
		}
		if m.RedditMentions7d > 0 {
			mentions = append(mentions, fmt.Sprintf("%dx on Reddit", m.RedditMentions7d))
		}
		parts = append(parts, "mentioned "+strings.Join(mentions, ", "))
	}

	if m.TimesFeatured > 0 {
		parts = append(parts, fmt.Sprintf("featured %d times before", m.TimesFeatured))
	}

	if len(parts) == 0 {
		return "Not enough data yet."
	}
	return strings.Join(parts, ". ") + "."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
