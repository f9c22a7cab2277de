package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mfeldheim/starwatch/internal/database"
)

// FormatWeekly renders a weekly report as markdown.
func FormatWeekly(r *WeeklyReport) string {
	if r.Summary.Message != "" {
		return r.Summary.Message
	}

	var sections []string

	sections = append(sections, fmt.Sprintf("# 📊 Weekly Trend Report\n\n**%s**",
		database.FormatRangeDisplay(r.WeekStart, r.WeekEnd)))

	summary := []string{
		"## 📈 Summary",
		fmt.Sprintf("- Repos tracked: %d", r.Summary.TotalRepos),
		fmt.Sprintf("- Rising: %d 🚀", r.Summary.RisingCount),
		fmt.Sprintf("- Declining: %d 📉", r.Summary.DecliningCount),
		fmt.Sprintf("- Average growth: %s ⭐", signedFloat(r.Summary.AvgGrowth)),
	}
	sections = append(sections, strings.Join(summary, "\n"))

	if len(r.RisingStars) > 0 {
		lines := []string{"## 🚀 Rising Stars"}
		for i, entry := range r.RisingStars {
			if i == 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("%d. **%s**: +%d ⭐ (%s%%)",
				i+1, entry.Name, entry.Growth7d, formatFloat(entry.GrowthPct)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.TopLanguages) > 0 {
		lines := []string{"## 💻 Top Languages"}
		for i, lang := range r.TopLanguages {
			if i == 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("- %s: %d repos, +%d ⭐",
				lang.Language, lang.Count, lang.TotalGrowth))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.MostDiscussed) > 0 {
		lines := []string{"## 🔥 Most Discussed"}
		for i, entry := range r.MostDiscussed {
			if i == 3 {
				break
			}
			lines = append(lines, fmt.Sprintf("- **%s**: HN %d, Reddit %d",
				entry.Name, entry.HNMentions, entry.RedditMentions))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.Insights) > 0 {
		lines := []string{"## 💡 Insights"}
		for _, insight := range r.Insights {
			lines = append(lines, "- "+insight)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// FormatMonthly renders a monthly report as markdown.
func FormatMonthly(r *MonthlyReport) string {
	if r.Message != "" {
		return r.Message
	}

	var sections []string

	sections = append(sections, fmt.Sprintf("# 📅 Monthly Trend Report\n\n**%s**",
		database.FormatRangeDisplay(r.MonthStart, r.MonthEnd)))

	if len(r.WeeklySummaries) > 0 {
		lines := []string{"## 📊 Weekly Summaries"}
		for _, week := range r.WeeklySummaries {
			lines = append(lines, fmt.Sprintf("- Week of %s: %d rising, %s ⭐ avg growth",
				database.FormatDateDisplay(week.Week), week.RisingCount, signedFloat(week.AvgGrowth)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.ConsistentRisers) > 0 {
		lines := []string{"## 🏆 Stars of the Month"}
		for i, riser := range r.ConsistentRisers {
			if i == 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("%d. **%s** (rising %d weeks)",
				i+1, riser.Name, riser.WeeksRising))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.LanguageEvolution) > 0 {
		lines := []string{"## 📈 Language Evolution"}
		for i, lang := range rankedLanguages(r.LanguageEvolution) {
			if i == 5 {
				break
			}
			evo := r.LanguageEvolution[lang]
			lines = append(lines, fmt.Sprintf("- %s %s: %s ⭐ per week",
				trendMarker(evo.Trend), lang, signedFloat(evo.AvgWeeklyGrowth)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if len(r.TrendInsights) > 0 {
		lines := []string{"## 💡 Insights"}
		for _, insight := range r.TrendInsights {
			lines = append(lines, "- "+insight)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// rankedLanguages orders evolution entries by average weekly growth so
// the rendering is deterministic despite the map.
func rankedLanguages(evolution map[string]LanguageEvolution) []string {
	langs := make([]string, 0, len(evolution))
	for lang := range evolution {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		gi, gj := evolution[langs[i]].AvgWeeklyGrowth, evolution[langs[j]].AvgWeeklyGrowth
		if gi != gj {
			return gi > gj
		}
		return langs[i] < langs[j]
	})
	return langs
}

func trendMarker(trend string) string {
	switch trend {
	case "rising":
		return "📈"
	case "declining":
		return "📉"
	default:
		return "➡️"
	}
}

func signedFloat(f float64) string {
	if f >= 0 {
		return "+" + formatFloat(f)
	}
	return formatFloat(f)
}
