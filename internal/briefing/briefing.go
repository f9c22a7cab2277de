// Package briefing composes the daily markdown briefing artifact from a
// trend report and records which repositories it featured.
package briefing

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mfeldheim/starwatch/internal/database"
	"github.com/mfeldheim/starwatch/internal/trend"
)

// Composer writes briefing files and their database records.
type Composer struct {
	db  *database.DB
	dir string
	log *slog.Logger
}

// NewComposer creates a Composer writing briefing files under dir.
func NewComposer(db *database.DB, dir string, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{db: db, dir: dir, log: logger}
}

// Result describes a composed briefing.
type Result struct {
	BriefingID int64
	Path       string
	StarOfDay  string
	Markdown   string
}

// Compose renders the briefing for the given date, writes it to disk,
// creates the briefing row and marks every repository the briefing
// features. The star of the day is the top rising star, falling back to
// the most discussed repository.
func (c *Composer) Compose(report *trend.Report, date string) (*Result, error) {
	star := starOfDay(report)
	markdown := render(report, date, star)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating briefing dir: %w", err)
	}
	path := filepath.Join(c.dir, "briefing_"+date+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("writing briefing: %w", err)
	}

	briefingID, err := c.db.CreateBriefing(&path)
	if err != nil {
		return nil, fmt.Errorf("recording briefing: %w", err)
	}

	featured, err := c.markFeatured(briefingID, report, star)
	if err != nil {
		return nil, err
	}

	c.log.Info("briefing composed",
		"date", date,
		"path", path,
		"star_of_day", star,
		"featured", featured)

	return &Result{BriefingID: briefingID, Path: path, StarOfDay: star, Markdown: markdown}, nil
}

// markFeatured records a briefing_repos row for every repository named
// in the briefing body. The star keeps its own feature type.
func (c *Composer) markFeatured(briefingID int64, report *trend.Report, star string) (int, error) {
	names := []string{}
	if star != "" {
		names = append(names, star)
	}
	for _, e := range report.RisingStars {
		names = append(names, e.Name)
	}
	for _, e := range report.MostDiscussed {
		names = append(names, e.Name)
	}
	for _, e := range report.Newcomers {
		names = append(names, e.Name)
	}

	seen := map[string]bool{}
	featured := 0
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		repo, err := c.db.GetRepoByName(name)
		if err != nil {
			return featured, fmt.Errorf("looking up %s: %w", name, err)
		}
		if repo == nil {
			continue
		}
		featureType := database.FeatureTrending
		if name == star {
			featureType = database.FeatureStarOfDay
		}
		if err := c.db.MarkFeatured(briefingID, repo.ID, featureType); err != nil {
			return featured, fmt.Errorf("marking %s featured: %w", name, err)
		}
		featured++
	}
	return featured, nil
}

func starOfDay(report *trend.Report) string {
	if len(report.RisingStars) > 0 {
		return report.RisingStars[0].Name
	}
	if len(report.MostDiscussed) > 0 {
		return report.MostDiscussed[0].Name
	}
	return ""
}

func render(report *trend.Report, date, star string) string {
	header := fmt.Sprintf("# ⭐ Starwatch Daily Briefing\n\n**%s**", database.FormatDateDisplay(date))

	if report.SummaryStats.TotalReposTracked == 0 {
		return header + "\n\nNo repository data collected yet. Run an ingest first.\n"
	}

	var sections []string
	sections = append(sections, header)

	if star != "" {
		sections = append(sections, starSection(report, star))
	}

	if lines := entryLines("## 🚀 Rising Stars", report.RisingStars, star); lines != "" {
		sections = append(sections, lines)
	}
	if len(report.MostDiscussed) > 0 {
		lines := []string{"## 🔥 Most Discussed"}
		count := 0
		for _, e := range report.MostDiscussed {
			if e.Name == star {
				continue
			}
			lines = append(lines, fmt.Sprintf("- **%s**: %s", e.Name, e.TrendSummary))
			count++
		}
		if count > 0 {
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}
	if lines := entryLines("## 🌱 New This Week", report.Newcomers, star); lines != "" {
		sections = append(sections, lines)
	}

	stats := report.SummaryStats
	numbers := []string{
		"## 📊 Numbers",
		fmt.Sprintf("- Repos tracked: %d", stats.TotalReposTracked),
		fmt.Sprintf("- New this week: %d", stats.NewReposThisWeek),
		fmt.Sprintf("- Average growth: %s ⭐", formatSigned(stats.AvgStarGrowth)),
		fmt.Sprintf("- Mentions: %d", stats.TotalMentions),
	}
	sections = append(sections, strings.Join(numbers, "\n"))

	return strings.Join(sections, "\n\n") + "\n"
}

func starSection(report *trend.Report, star string) string {
	for _, e := range report.RisingStars {
		if e.Name == star {
			return fmt.Sprintf("## 🌟 Star of the Day\n\n**%s** (%d ⭐)\n\n%s",
				e.Name, e.CurrentStars, e.TrendSummary)
		}
	}
	for _, e := range report.MostDiscussed {
		if e.Name == star {
			return fmt.Sprintf("## 🌟 Star of the Day\n\n**%s**\n\n%s", e.Name, e.TrendSummary)
		}
	}
	return ""
}

func formatSigned(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f >= 0 {
		return "+" + s
	}
	return s
}

// entryLines renders a bullet section, leaving out the star so it is
// not listed twice. Returns "" when nothing is left to show.
func entryLines(heading string, entries []trend.Entry, star string) string {
	lines := []string{heading}
	count := 0
	for _, e := range entries {
		if e.Name == star {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s** (%d ⭐): %s", e.Name, e.CurrentStars, e.TrendSummary))
		count++
	}
	if count == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}
