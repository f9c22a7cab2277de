// Package report builds the weekly and monthly trend rollups and their
// textual renderings.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/mfeldheim/starwatch/internal/database"
	"github.com/mfeldheim/starwatch/internal/trend"
)

// LanguageTrend aggregates one language's movement over a week.
type LanguageTrend struct {
	Count       int     `json:"count"`
	AvgGrowth   float64 `json:"avg_growth"`
	TotalGrowth int     `json:"total_growth"`
}

// LanguageRank is a ranked language entry including its name.
type LanguageRank struct {
	Language    string  `json:"language"`
	Count       int     `json:"count"`
	AvgGrowth   float64 `json:"avg_growth"`
	TotalGrowth int     `json:"total_growth"`
}

// RisingEntry is one repository in the weekly rising list.
type RisingEntry struct {
	Name      string  `json:"name"`
	Stars     int     `json:"stars"`
	Growth7d  int     `json:"growth_7d"`
	GrowthPct float64 `json:"growth_pct"`
	Mentions  int     `json:"mentions"`
}

// DecliningEntry is one repository in the weekly declining list.
type DecliningEntry struct {
	Name      string  `json:"name"`
	Stars     int     `json:"stars"`
	Growth7d  int     `json:"growth_7d"`
	GrowthPct float64 `json:"growth_pct"`
}

// DiscussedEntry is one repository in the weekly most-discussed list.
type DiscussedEntry struct {
	Name           string `json:"name"`
	HNMentions     int    `json:"hn_mentions"`
	RedditMentions int    `json:"reddit_mentions"`
	Total          int    `json:"total"`
}

// WeeklySummary holds the week's headline numbers. Message is set
// instead when there is not enough data to report on.
type WeeklySummary struct {
	TotalRepos       int     `json:"total_repos"`
	RisingCount      int     `json:"rising_count"`
	DecliningCount   int     `json:"declining_count"`
	AvgGrowth        float64 `json:"avg_growth"`
	TotalStarsGained int     `json:"total_stars_gained"`
	TopLanguage      string  `json:"top_language"`
	Message          string  `json:"message,omitempty"`
}

// WeeklyReport is the persisted weekly rollup. The JSON field names are
// the stable contract for downstream consumers and the monthly rollup.
type WeeklyReport struct {
	WeekStart      string                   `json:"week_start"`
	WeekEnd        string                   `json:"week_end"`
	GeneratedAt    string                   `json:"generated_at"`
	RisingStars    []RisingEntry            `json:"rising_stars"`
	DecliningRepos []DecliningEntry         `json:"declining_repos"`
	LanguageTrends map[string]LanguageTrend `json:"language_trends"`
	TopLanguages   []LanguageRank           `json:"top_languages"`
	MostDiscussed  []DiscussedEntry         `json:"most_discussed"`
	Summary        WeeklySummary            `json:"summary"`
	Insights       []string                 `json:"insights"`
}

// Aggregator builds weekly and monthly rollups on top of the trend
// engine.
type Aggregator struct {
	db     *database.DB
	engine *trend.Engine
}

// NewAggregator creates an Aggregator reading from db.
func NewAggregator(db *database.DB) *Aggregator {
	return &Aggregator{db: db, engine: trend.NewEngine(db)}
}

// GenerateWeekly computes the weekly rollup for the seven days ending at
// today and persists it as a WeeklyReport row for the given scope (nil
// scope means the global report). The report is persisted even when
// there is not enough data, so the weekly history stays contiguous.
func (a *Aggregator) GenerateWeekly(scope *string, today string) (*WeeklyReport, error) {
	weekStart, err := database.DaysBefore(today, 7)
	if err != nil {
		return nil, err
	}

	report := &WeeklyReport{
		WeekStart:      weekStart,
		WeekEnd:        today,
		GeneratedAt:    time.Now().Format(time.RFC3339),
		RisingStars:    []RisingEntry{},
		DecliningRepos: []DecliningEntry{},
		LanguageTrends: map[string]LanguageTrend{},
		TopLanguages:   []LanguageRank{},
		MostDiscussed:  []DiscussedEntry{},
		Insights:       []string{},
	}

	repos, err := a.db.ReposWithSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}

	type langAccum struct {
		count       int
		totalGrowth int
	}
	langStats := map[string]*langAccum{}

	var all []trend.Metrics
	totalGrowth := 0

	for _, repo := range repos {
		m, err := a.engine.MetricsFor(repo.ID, repo.FullName, today)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		all = append(all, *m)
		totalGrowth += m.Growth7d

		lang := "Other"
		if repo.Language != nil && *repo.Language != "" {
			lang = *repo.Language
		}
		acc := langStats[lang]
		if acc == nil {
			acc = &langAccum{}
			langStats[lang] = acc
		}
		acc.count++
		acc.totalGrowth += m.Growth7d
	}

	if len(all) == 0 {
		report.Summary = WeeklySummary{
			TopLanguage: "N/A",
			Message:     "Not enough data yet. Reports need a few days of collected snapshots.",
		}
		if err := a.persistWeekly(scope, report); err != nil {
			return nil, err
		}
		return report, nil
	}

	var rising, declining []trend.Metrics
	for _, m := range all {
		switch m.Status {
		case trend.StatusRising:
			rising = append(rising, m)
		case trend.StatusDeclining:
			declining = append(declining, m)
		}
	}
	sort.SliceStable(rising, func(i, j int) bool { return rising[i].Growth7d > rising[j].Growth7d })
	sort.SliceStable(declining, func(i, j int) bool { return declining[i].Growth7d < declining[j].Growth7d })

	for i, m := range rising {
		if i == 10 {
			break
		}
		report.RisingStars = append(report.RisingStars, RisingEntry{
			Name:      m.Name,
			Stars:     m.CurrentStars,
			Growth7d:  m.Growth7d,
			GrowthPct: m.Growth7dPct,
			Mentions:  m.TotalMentions7d,
		})
	}
	for i, m := range declining {
		if i == 5 {
			break
		}
		report.DecliningRepos = append(report.DecliningRepos, DecliningEntry{
			Name:      m.Name,
			Stars:     m.CurrentStars,
			Growth7d:  m.Growth7d,
			GrowthPct: m.Growth7dPct,
		})
	}

	for lang, acc := range langStats {
		report.LanguageTrends[lang] = LanguageTrend{
			Count:       acc.count,
			AvgGrowth:   round1(float64(acc.totalGrowth) / float64(acc.count)),
			TotalGrowth: acc.totalGrowth,
		}
	}

	ranks := make([]LanguageRank, 0, len(report.LanguageTrends))
	for lang, lt := range report.LanguageTrends {
		ranks = append(ranks, LanguageRank{
			Language:    lang,
			Count:       lt.Count,
			AvgGrowth:   lt.AvgGrowth,
			TotalGrowth: lt.TotalGrowth,
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalGrowth != ranks[j].TotalGrowth {
			return ranks[i].TotalGrowth > ranks[j].TotalGrowth
		}
		return ranks[i].Language < ranks[j].Language
	})
	if len(ranks) > 5 {
		ranks = ranks[:5]
	}
	report.TopLanguages = ranks

	discussed := make([]trend.Metrics, 0, len(all))
	for _, m := range all {
		if m.TotalMentions7d > 0 {
			discussed = append(discussed, m)
		}
	}
	sort.SliceStable(discussed, func(i, j int) bool {
		return discussed[i].TotalMentions7d > discussed[j].TotalMentions7d
	})
	for i, m := range discussed {
		if i == 5 {
			break
		}
		report.MostDiscussed = append(report.MostDiscussed, DiscussedEntry{
			Name:           m.Name,
			HNMentions:     m.HNMentions7d,
			RedditMentions: m.RedditMentions7d,
			Total:          m.TotalMentions7d,
		})
	}

	topLanguage := "N/A"
	if len(report.TopLanguages) > 0 {
		topLanguage = report.TopLanguages[0].Language
	}
	report.Summary = WeeklySummary{
		TotalRepos:       len(all),
		RisingCount:      len(rising),
		DecliningCount:   len(declining),
		AvgGrowth:        round1(float64(totalGrowth) / float64(len(all))),
		TotalStarsGained: totalGrowth,
		TopLanguage:      topLanguage,
	}
	report.Insights = weeklyInsights(report)

	if err := a.persistWeekly(scope, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (a *Aggregator) persistWeekly(scope *string, report *WeeklyReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding weekly report: %w", err)
	}
	if _, err := a.db.SaveWeeklyReport(scope, report.WeekStart, report.WeekEnd, data); err != nil {
		return fmt.Errorf("persisting weekly report: %w", err)
	}
	return nil
}

func weeklyInsights(r *WeeklyReport) []string {
	insights := []string{}

	if len(r.RisingStars) > 0 {
		top := r.RisingStars[0]
		insights = append(insights, fmt.Sprintf("🚀 Star of the week: **%s** (+%d ⭐, %s%% increase)",
			top.Name, top.Growth7d, formatFloat(top.GrowthPct)))
	}
	if len(r.TopLanguages) > 0 {
		top := r.TopLanguages[0]
		insights = append(insights, fmt.Sprintf("📈 Top language: **%s** (%d repos, +%d ⭐)",
			top.Language, top.Count, top.TotalGrowth))
	}
	if len(r.MostDiscussed) > 0 {
		top := r.MostDiscussed[0]
		insights = append(insights, fmt.Sprintf("🔥 Most talked about: **%s** (HN: %d, Reddit: %d)",
			top.Name, top.HNMentions, top.RedditMentions))
	}
	if r.Summary.AvgGrowth > 100 {
		insights = append(insights, fmt.Sprintf("📊 Strong week! +%s stars per repo on average",
			formatFloat(r.Summary.AvgGrowth)))
	} else if r.Summary.AvgGrowth < 0 {
		insights = append(insights, "📉 A slow week. Overall interest is low.")
	}

	return insights
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
