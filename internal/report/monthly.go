package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mfeldheim/starwatch/internal/database"
)

// WeekSummaryLine is one week's headline row inside the monthly report.
type WeekSummaryLine struct {
	Week        string  `json:"week"`
	RisingCount int     `json:"rising_count"`
	AvgGrowth   float64 `json:"avg_growth"`
	TopLanguage string  `json:"top_language"`
}

// LanguageEvolution tracks how one language moved across the month's
// weekly reports.
type LanguageEvolution struct {
	AvgWeeklyGrowth float64 `json:"avg_weekly_growth"`
	Trend           string  `json:"trend"`
	WeeksTracked    int     `json:"weeks_tracked"`
}

// ConsistentRiser is a repository that appeared in the rising list of
// two or more weekly reports this month.
type ConsistentRiser struct {
	Name        string `json:"name"`
	WeeksRising int    `json:"weeks_rising"`
}

// MonthlyReport is the month-level rollup derived from stored weekly
// reports. It is computed on demand and not persisted.
type MonthlyReport struct {
	MonthStart        string                       `json:"month_start"`
	MonthEnd          string                       `json:"month_end"`
	GeneratedAt       string                       `json:"generated_at"`
	WeeklySummaries   []WeekSummaryLine            `json:"weekly_summaries"`
	ConsistentRisers  []ConsistentRiser            `json:"monthly_rising_stars"`
	LanguageEvolution map[string]LanguageEvolution `json:"language_evolution"`
	TrendInsights     []string                     `json:"trend_insights"`
	Message           string                       `json:"message,omitempty"`
}

// GenerateMonthly derives the monthly rollup from the last four stored
// weekly reports for the given scope. It needs at least two weeks of
// history; with less it returns a report carrying only an explanatory
// message.
func (a *Aggregator) GenerateMonthly(scope *string, today string) (*MonthlyReport, error) {
	monthStart, err := database.DaysBefore(today, 30)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		MonthStart:        monthStart,
		MonthEnd:          today,
		GeneratedAt:       time.Now().Format(time.RFC3339),
		WeeklySummaries:   []WeekSummaryLine{},
		ConsistentRisers:  []ConsistentRiser{},
		LanguageEvolution: map[string]LanguageEvolution{},
		TrendInsights:     []string{},
	}

	rows, err := a.db.GetWeeklyReports(scope, 4)
	if err != nil {
		return nil, fmt.Errorf("loading weekly reports: %w", err)
	}
	if len(rows) < 2 {
		report.Message = "Not enough data for a monthly report. At least 2 weeks of history required."
		return report, nil
	}

	// Rows come back newest first; the decoded payloads keep that order.
	var weeklies []WeeklyReport
	for _, row := range rows {
		var wr WeeklyReport
		if err := json.Unmarshal(row.ReportData, &wr); err != nil {
			return nil, fmt.Errorf("decoding weekly report for %s: %w", row.WeekStart, err)
		}
		weeklies = append(weeklies, wr)

		topLanguage := wr.Summary.TopLanguage
		if topLanguage == "" {
			topLanguage = "N/A"
		}
		report.WeeklySummaries = append(report.WeeklySummaries, WeekSummaryLine{
			Week:        row.WeekStart,
			RisingCount: wr.Summary.RisingCount,
			AvgGrowth:   wr.Summary.AvgGrowth,
			TopLanguage: topLanguage,
		})
	}

	// Per-language growth series, newest week first.
	langSeries := map[string][]int{}
	for _, wr := range weeklies {
		for lang, lt := range wr.LanguageTrends {
			langSeries[lang] = append(langSeries[lang], lt.TotalGrowth)
		}
	}
	for lang, growths := range langSeries {
		sum := 0
		for _, g := range growths {
			sum += g
		}
		newest, oldest := growths[0], growths[len(growths)-1]
		direction := "stable"
		if newest > oldest {
			direction = "rising"
		} else if newest < oldest {
			direction = "declining"
		}
		report.LanguageEvolution[lang] = LanguageEvolution{
			AvgWeeklyGrowth: round1(float64(sum) / float64(len(growths))),
			Trend:           direction,
			WeeksTracked:    len(growths),
		}
	}

	appearances := map[string]int{}
	for _, wr := range weeklies {
		for _, entry := range wr.RisingStars {
			appearances[entry.Name]++
		}
	}
	risers := []ConsistentRiser{}
	for name, count := range appearances {
		if count >= 2 {
			risers = append(risers, ConsistentRiser{Name: name, WeeksRising: count})
		}
	}
	sort.Slice(risers, func(i, j int) bool {
		if risers[i].WeeksRising != risers[j].WeeksRising {
			return risers[i].WeeksRising > risers[j].WeeksRising
		}
		return risers[i].Name < risers[j].Name
	})
	if len(risers) > 10 {
		risers = risers[:10]
	}
	report.ConsistentRisers = risers

	report.TrendInsights = monthlyInsights(report)
	return report, nil
}

func monthlyInsights(r *MonthlyReport) []string {
	insights := []string{}

	if len(r.ConsistentRisers) > 0 {
		top := r.ConsistentRisers[0]
		insights = append(insights, fmt.Sprintf("🏆 Most consistent riser this month: **%s** (rising %d weeks)",
			top.Name, top.WeeksRising))
	}

	type langGrowth struct {
		name   string
		growth float64
	}
	var risingLangs []langGrowth
	for lang, evo := range r.LanguageEvolution {
		if evo.Trend == "rising" {
			risingLangs = append(risingLangs, langGrowth{name: lang, growth: evo.AvgWeeklyGrowth})
		}
	}
	sort.Slice(risingLangs, func(i, j int) bool {
		if risingLangs[i].growth != risingLangs[j].growth {
			return risingLangs[i].growth > risingLangs[j].growth
		}
		return risingLangs[i].name < risingLangs[j].name
	})
	if len(risingLangs) > 0 {
		top := risingLangs[0]
		insights = append(insights, fmt.Sprintf("📈 Rising language: **%s** (+%s ⭐ weekly average)",
			top.name, formatFloat(top.growth)))
	}

	return insights
}
