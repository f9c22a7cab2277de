package trend

import (
	"fmt"
	"sort"

	"github.com/mfeldheim/starwatch/internal/database"
)

// Entry is one repository's line in a trend report category. The JSON
// field names are the stable contract consumed by downstream writers.
type Entry struct {
	Name             string  `json:"name"`
	CurrentStars     int     `json:"current_stars"`
	Growth7d         int     `json:"growth_7d"`
	Growth7dPct      float64 `json:"growth_7d_pct"`
	GrowthTrend      float64 `json:"growth_trend"`
	HNMentions7d     int     `json:"hn_mentions_7d"`
	RedditMentions7d int     `json:"reddit_mentions_7d"`
	TotalMentions7d  int     `json:"total_mentions_7d"`
	Status           Status  `json:"status"`
	TimesFeatured    int     `json:"times_featured"`
	TrendSummary     string  `json:"trend_summary"`
}

// DiscussedEntry is one repository's line in the most-discussed list.
type DiscussedEntry struct {
	Name             string `json:"name"`
	HNMentions7d     int    `json:"hn_mentions_7d"`
	RedditMentions7d int    `json:"reddit_mentions_7d"`
	TotalMentions7d  int    `json:"total_mentions_7d"`
	TrendSummary     string `json:"trend_summary"`
}

// SummaryStats aggregates the report's totals.
type SummaryStats struct {
	TotalReposTracked int     `json:"total_repos_tracked"`
	NewReposThisWeek  int     `json:"new_repos_this_week"`
	AvgStarGrowth     float64 `json:"avg_star_growth"`
	TotalMentions     int     `json:"total_mentions"`
}

// Report is the assembled daily trend report.
type Report struct {
	RisingStars        []Entry          `json:"rising_stars"`
	SteadyPerformers   []Entry          `json:"steady_performers"`
	CoolingDown        []Entry          `json:"cooling_down"`
	MostDiscussed      []DiscussedEntry `json:"most_discussed"`
	Newcomers          []Entry          `json:"newcomers"`
	RepeatPerformers   []Entry          `json:"repeat_performers"`
	PreviouslyFeatured []string         `json:"previously_featured"`
	SummaryStats       SummaryStats     `json:"summary_stats"`
}

// GenerateReport computes metrics for each repository and assembles the
// categorized trend report as of the given date. Repositories without a
// snapshot for that date are skipped.
func (e *Engine) GenerateReport(repos []database.Repository, today string) (*Report, error) {
	report := &Report{
		RisingStars:        []Entry{},
		SteadyPerformers:   []Entry{},
		CoolingDown:        []Entry{},
		MostDiscussed:      []DiscussedEntry{},
		Newcomers:          []Entry{},
		RepeatPerformers:   []Entry{},
		PreviouslyFeatured: []string{},
	}

	since, err := database.DaysBefore(today, 7)
	if err != nil {
		return nil, err
	}
	featured, err := e.db.PreviouslyFeatured(since)
	if err != nil {
		return nil, fmt.Errorf("previously featured: %w", err)
	}
	for name := range featured {
		report.PreviouslyFeatured = append(report.PreviouslyFeatured, name)
	}
	sort.Strings(report.PreviouslyFeatured)

	var all []Metrics
	totalGrowth := 0
	totalMentions := 0
	newCount := 0

	for _, repo := range repos {
		m, err := e.MetricsFor(repo.ID, repo.FullName, today)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		all = append(all, *m)
		totalGrowth += m.Growth7d
		totalMentions += m.TotalMentions7d
		if m.Status == StatusNew {
			newCount++
		}
	}

	for i := range all {
		m := &all[i]
		entry := Entry{
			Name:             m.Name,
			CurrentStars:     m.CurrentStars,
			Growth7d:         m.Growth7d,
			Growth7dPct:      m.Growth7dPct,
			GrowthTrend:      m.GrowthTrend,
			HNMentions7d:     m.HNMentions7d,
			RedditMentions7d: m.RedditMentions7d,
			TotalMentions7d:  m.TotalMentions7d,
			Status:           m.Status,
			TimesFeatured:    m.TimesFeatured,
			TrendSummary:     m.Summary(),
		}

		switch m.Status {
		case StatusRising:
			report.RisingStars = append(report.RisingStars, entry)
		case StatusSteady:
			report.SteadyPerformers = append(report.SteadyPerformers, entry)
		case StatusDeclining:
			report.CoolingDown = append(report.CoolingDown, entry)
		case StatusNew:
			report.Newcomers = append(report.Newcomers, entry)
		}

		if m.TimesFeatured > 1 {
			report.RepeatPerformers = append(report.RepeatPerformers, entry)
		}
	}

	sort.SliceStable(report.RisingStars, func(i, j int) bool {
		return report.RisingStars[i].Growth7d > report.RisingStars[j].Growth7d
	})
	sort.SliceStable(report.SteadyPerformers, func(i, j int) bool {
		return report.SteadyPerformers[i].CurrentStars > report.SteadyPerformers[j].CurrentStars
	})
	sort.SliceStable(report.CoolingDown, func(i, j int) bool {
		return report.CoolingDown[i].Growth7d < report.CoolingDown[j].Growth7d
	})
	sort.SliceStable(report.RepeatPerformers, func(i, j int) bool {
		return report.RepeatPerformers[i].TimesFeatured > report.RepeatPerformers[j].TimesFeatured
	})

	discussed := make([]Metrics, 0, len(all))
	for _, m := range all {
		if m.TotalMentions7d > 0 {
			discussed = append(discussed, m)
		}
	}
	sort.SliceStable(discussed, func(i, j int) bool {
		return discussed[i].TotalMentions7d > discussed[j].TotalMentions7d
	})
	for _, m := range limitMetrics(discussed, 5) {
		report.MostDiscussed = append(report.MostDiscussed, DiscussedEntry{
			Name:             m.Name,
			HNMentions7d:     m.HNMentions7d,
			RedditMentions7d: m.RedditMentions7d,
			TotalMentions7d:  m.TotalMentions7d,
			TrendSummary: fmt.Sprintf("Mentioned %d times on HN, %d times on Reddit.",
				m.HNMentions7d, m.RedditMentions7d),
		})
	}

	report.RisingStars = limitEntries(report.RisingStars, 5)
	report.SteadyPerformers = limitEntries(report.SteadyPerformers, 5)
	report.CoolingDown = limitEntries(report.CoolingDown, 3)
	report.Newcomers = limitEntries(report.Newcomers, 5)
	report.RepeatPerformers = limitEntries(report.RepeatPerformers, 3)

	avgGrowth := 0.0
	if len(all) > 0 {
		avgGrowth = round1(float64(totalGrowth) / float64(len(all)))
	}
	report.SummaryStats = SummaryStats{
		TotalReposTracked: len(all),
		NewReposThisWeek:  newCount,
		AvgStarGrowth:     avgGrowth,
		TotalMentions:     totalMentions,
	}

	return report, nil
}

func limitEntries(entries []Entry, n int) []Entry {
	if len(entries) > n {
		return entries[:n]
	}
	return entries
}

func limitMetrics(metrics []Metrics, n int) []Metrics {
	if len(metrics) > n {
		return metrics[:n]
	}
	return metrics
}
