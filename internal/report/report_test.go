package report

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mfeldheim/starwatch/internal/database"
)

const today = "2026-02-06"

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func addRepoLang(t *testing.T, db *database.DB, name string, lang *string) int64 {
	t.Helper()
	id, err := db.UpsertRepository(nil, name, nil, "https://github.com/"+name, lang, nil)
	if err != nil {
		t.Fatalf("failed to add repo %s: %v", name, err)
	}
	return id
}

func addMention(t *testing.T, db *database.DB, repoID int64, src, platformID, date string) {
	t.Helper()
	itemID, err := db.SaveDiscussionItem(&database.DiscussionItem{
		Source: src, PlatformID: platformID, Title: "about the repo",
	})
	if err != nil {
		t.Fatalf("failed to save item: %v", err)
	}
	if err := db.RecordMention(repoID, src, itemID, date); err != nil {
		t.Fatalf("failed to record mention: %v", err)
	}
}

func seedWeek(t *testing.T, db *database.DB) {
	t.Helper()

	// Rising fast: 100 -> 300 -> 800.
	fox := addRepoLang(t, db, "fox/fast", strPtr("Go"))
	db.SaveSnapshot(fox, 100, nil, nil, "2026-01-23")
	db.SaveSnapshot(fox, 300, nil, nil, "2026-01-30")
	db.SaveSnapshot(fox, 800, nil, nil, today)

	// Rising and well discussed: 900 -> 1000 -> 1300.
	widget := addRepoLang(t, db, "acme/widget", strPtr("Go"))
	db.SaveSnapshot(widget, 900, nil, nil, "2026-01-23")
	db.SaveSnapshot(widget, 1000, nil, nil, "2026-01-30")
	db.SaveSnapshot(widget, 1300, nil, nil, today)
	addMention(t, db, widget, database.SourceHN, "h1", "2026-02-04")
	addMention(t, db, widget, database.SourceHN, "h2", "2026-02-05")
	addMention(t, db, widget, database.SourceReddit, "r1", "2026-02-05")

	// Steady: 500 -> 560 -> 600.
	bravo := addRepoLang(t, db, "bravo/lib", strPtr("Rust"))
	db.SaveSnapshot(bravo, 500, nil, nil, "2026-01-23")
	db.SaveSnapshot(bravo, 560, nil, nil, "2026-01-30")
	db.SaveSnapshot(bravo, 600, nil, nil, today)

	// Declining, and no language so it lands in the Other bucket.
	carol := addRepoLang(t, db, "carol/tool", nil)
	db.SaveSnapshot(carol, 410, nil, nil, "2026-01-30")
	db.SaveSnapshot(carol, 400, nil, nil, today)

	// New this week.
	delta := addRepoLang(t, db, "delta/new", strPtr("Python"))
	db.SaveSnapshot(delta, 400, nil, nil, today)
}

func TestGenerateWeekly(t *testing.T) {
	db := openTestDB(t)
	seedWeek(t, db)

	agg := NewAggregator(db)
	report, err := agg.GenerateWeekly(nil, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.WeekStart != "2026-01-30" || report.WeekEnd != today {
		t.Errorf("week bounds = %s..%s", report.WeekStart, report.WeekEnd)
	}

	if len(report.RisingStars) != 2 {
		t.Fatalf("expected 2 rising, got %d", len(report.RisingStars))
	}
	if report.RisingStars[0].Name != "fox/fast" || report.RisingStars[0].Growth7d != 500 {
		t.Errorf("unexpected top riser: %+v", report.RisingStars[0])
	}
	if report.RisingStars[1].Name != "acme/widget" || report.RisingStars[1].Mentions != 3 {
		t.Errorf("unexpected second riser: %+v", report.RisingStars[1])
	}

	if len(report.DecliningRepos) != 1 || report.DecliningRepos[0].Name != "carol/tool" {
		t.Fatalf("unexpected declining list: %+v", report.DecliningRepos)
	}
	if report.DecliningRepos[0].Growth7d != -10 {
		t.Errorf("carol growth = %d, want -10", report.DecliningRepos[0].Growth7d)
	}

	goTrend, ok := report.LanguageTrends["Go"]
	if !ok || goTrend.Count != 2 || goTrend.TotalGrowth != 800 || goTrend.AvgGrowth != 400 {
		t.Errorf("unexpected Go trend: %+v", goTrend)
	}
	other, ok := report.LanguageTrends["Other"]
	if !ok || other.Count != 1 || other.TotalGrowth != -10 {
		t.Errorf("unexpected Other trend: %+v", other)
	}

	if len(report.TopLanguages) != 4 {
		t.Fatalf("expected 4 ranked languages, got %d", len(report.TopLanguages))
	}
	if report.TopLanguages[0].Language != "Go" || report.TopLanguages[1].Language != "Rust" {
		t.Errorf("unexpected language ranking: %+v", report.TopLanguages)
	}

	if len(report.MostDiscussed) != 1 || report.MostDiscussed[0].Name != "acme/widget" {
		t.Fatalf("unexpected most discussed: %+v", report.MostDiscussed)
	}
	if report.MostDiscussed[0].HNMentions != 2 || report.MostDiscussed[0].Total != 3 {
		t.Errorf("unexpected mention counts: %+v", report.MostDiscussed[0])
	}

	s := report.Summary
	if s.TotalRepos != 5 || s.RisingCount != 2 || s.DecliningCount != 1 {
		t.Errorf("unexpected summary counts: %+v", s)
	}
	if s.AvgGrowth != 166 {
		t.Errorf("avg growth = %v, want 166", s.AvgGrowth)
	}
	if s.TotalStarsGained != 830 {
		t.Errorf("stars gained = %d, want 830", s.TotalStarsGained)
	}
	if s.TopLanguage != "Go" {
		t.Errorf("top language = %s, want Go", s.TopLanguage)
	}

	wantInsights := []string{
		"🚀 Star of the week: **fox/fast** (+500 ⭐, 166.67% increase)",
		"📈 Top language: **Go** (2 repos, +800 ⭐)",
		"🔥 Most talked about: **acme/widget** (HN: 2, Reddit: 1)",
		"📊 Strong week! +166 stars per repo on average",
	}
	if len(report.Insights) != len(wantInsights) {
		t.Fatalf("expected %d insights, got %d: %v", len(wantInsights), len(report.Insights), report.Insights)
	}
	for i, want := range wantInsights {
		if report.Insights[i] != want {
			t.Errorf("insight %d = %q, want %q", i, report.Insights[i], want)
		}
	}
}

func TestGenerateWeeklyPersists(t *testing.T) {
	db := openTestDB(t)
	seedWeek(t, db)

	agg := NewAggregator(db)
	if _, err := agg.GenerateWeekly(nil, today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := db.GetWeeklyReports(nil, 5)
	if err != nil {
		t.Fatalf("loading rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 stored report, got %d", len(rows))
	}
	if rows[0].WeekStart != "2026-01-30" || rows[0].WeekEnd != today {
		t.Errorf("stored bounds = %s..%s", rows[0].WeekStart, rows[0].WeekEnd)
	}

	var stored WeeklyReport
	if err := json.Unmarshal(rows[0].ReportData, &stored); err != nil {
		t.Fatalf("decoding stored report: %v", err)
	}
	if stored.Summary.TotalRepos != 5 {
		t.Errorf("stored total repos = %d, want 5", stored.Summary.TotalRepos)
	}
}

func TestGenerateWeeklyNoData(t *testing.T) {
	db := openTestDB(t)

	agg := NewAggregator(db)
	report, err := agg.GenerateWeekly(nil, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Summary.Message == "" {
		t.Error("expected an insufficient-data message")
	}
	if report.Summary.TopLanguage != "N/A" {
		t.Errorf("top language = %s, want N/A", report.Summary.TopLanguage)
	}
	if len(report.RisingStars) != 0 || len(report.Insights) != 0 {
		t.Errorf("expected empty lists, got %+v", report)
	}

	// The empty report still lands in history so monthly windows stay
	// contiguous.
	rows, err := db.GetWeeklyReports(nil, 5)
	if err != nil {
		t.Fatalf("loading rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 stored report, got %d", len(rows))
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"rising_stars", "declining_repos", "top_languages", "insights"} {
		if !strings.Contains(string(data), `"`+key+`":[]`) {
			t.Errorf("expected empty array for %s in %s", key, data)
		}
	}
}

func TestGenerateWeeklyScoped(t *testing.T) {
	db := openTestDB(t)

	agg := NewAggregator(db)
	if _, err := agg.GenerateWeekly(strPtr("ml"), today); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scoped, err := db.GetWeeklyReports(strPtr("ml"), 5)
	if err != nil {
		t.Fatalf("loading scoped rows: %v", err)
	}
	if len(scoped) != 1 {
		t.Errorf("expected 1 scoped report, got %d", len(scoped))
	}
	global, err := db.GetWeeklyReports(nil, 5)
	if err != nil {
		t.Fatalf("loading global rows: %v", err)
	}
	if len(global) != 0 {
		t.Errorf("expected no global reports, got %d", len(global))
	}
}

func saveWeekly(t *testing.T, db *database.DB, report *WeeklyReport) {
	t.Helper()
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal weekly: %v", err)
	}
	if _, err := db.SaveWeeklyReport(nil, report.WeekStart, report.WeekEnd, data); err != nil {
		t.Fatalf("save weekly: %v", err)
	}
}

func TestGenerateMonthly(t *testing.T) {
	db := openTestDB(t)

	saveWeekly(t, db, &WeeklyReport{
		WeekStart: "2026-01-23", WeekEnd: "2026-01-30",
		RisingStars: []RisingEntry{
			{Name: "fox/fast", Growth7d: 200},
			{Name: "bravo/lib", Growth7d: 150},
		},
		LanguageTrends: map[string]LanguageTrend{
			"Go":   {Count: 2, AvgGrowth: 175, TotalGrowth: 350},
			"Rust": {Count: 1, AvgGrowth: 150, TotalGrowth: 150},
		},
		Summary: WeeklySummary{RisingCount: 2, AvgGrowth: 120, TopLanguage: "Go"},
	})
	saveWeekly(t, db, &WeeklyReport{
		WeekStart: "2026-01-30", WeekEnd: today,
		RisingStars: []RisingEntry{
			{Name: "fox/fast", Growth7d: 400},
			{Name: "acme/widget", Growth7d: 100},
		},
		LanguageTrends: map[string]LanguageTrend{
			"Go":   {Count: 2, AvgGrowth: 250, TotalGrowth: 500},
			"Rust": {Count: 1, AvgGrowth: 100, TotalGrowth: 100},
		},
		Summary: WeeklySummary{RisingCount: 2, AvgGrowth: 200, TopLanguage: "Go"},
	})

	agg := NewAggregator(db)
	report, err := agg.GenerateMonthly(nil, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Message != "" {
		t.Fatalf("unexpected message: %q", report.Message)
	}

	if len(report.WeeklySummaries) != 2 {
		t.Fatalf("expected 2 weekly summaries, got %d", len(report.WeeklySummaries))
	}
	// Newest week first.
	if report.WeeklySummaries[0].Week != "2026-01-30" || report.WeeklySummaries[0].AvgGrowth != 200 {
		t.Errorf("unexpected first summary: %+v", report.WeeklySummaries[0])
	}
	if report.WeeklySummaries[1].Week != "2026-01-23" {
		t.Errorf("unexpected second summary: %+v", report.WeeklySummaries[1])
	}

	goEvo, ok := report.LanguageEvolution["Go"]
	if !ok || goEvo.Trend != "rising" || goEvo.AvgWeeklyGrowth != 425 || goEvo.WeeksTracked != 2 {
		t.Errorf("unexpected Go evolution: %+v", goEvo)
	}
	rustEvo, ok := report.LanguageEvolution["Rust"]
	if !ok || rustEvo.Trend != "declining" || rustEvo.AvgWeeklyGrowth != 125 {
		t.Errorf("unexpected Rust evolution: %+v", rustEvo)
	}

	if len(report.ConsistentRisers) != 1 {
		t.Fatalf("expected 1 consistent riser, got %d: %+v", len(report.ConsistentRisers), report.ConsistentRisers)
	}
	if report.ConsistentRisers[0].Name != "fox/fast" || report.ConsistentRisers[0].WeeksRising != 2 {
		t.Errorf("unexpected riser: %+v", report.ConsistentRisers[0])
	}

	wantInsights := []string{
		"🏆 Most consistent riser this month: **fox/fast** (rising 2 weeks)",
		"📈 Rising language: **Go** (+425 ⭐ weekly average)",
	}
	if len(report.TrendInsights) != len(wantInsights) {
		t.Fatalf("expected %d insights, got %v", len(wantInsights), report.TrendInsights)
	}
	for i, want := range wantInsights {
		if report.TrendInsights[i] != want {
			t.Errorf("insight %d = %q, want %q", i, report.TrendInsights[i], want)
		}
	}
}

func TestGenerateMonthlyInsufficientData(t *testing.T) {
	db := openTestDB(t)

	saveWeekly(t, db, &WeeklyReport{
		WeekStart: "2026-01-30", WeekEnd: today,
		Summary: WeeklySummary{RisingCount: 1, AvgGrowth: 50, TopLanguage: "Go"},
	})

	agg := NewAggregator(db)
	report, err := agg.GenerateMonthly(nil, today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Message == "" {
		t.Error("expected an insufficient-data message")
	}
	if len(report.WeeklySummaries) != 0 || len(report.ConsistentRisers) != 0 {
		t.Errorf("expected empty report body, got %+v", report)
	}
}

func TestGenerateMonthlyScopedIsolation(t *testing.T) {
	db := openTestDB(t)

	for _, week := range []string{"2026-01-23", "2026-01-30"} {
		saveWeekly(t, db, &WeeklyReport{
			WeekStart: week, WeekEnd: today,
			Summary: WeeklySummary{TopLanguage: "Go"},
		})
	}

	agg := NewAggregator(db)
	report, err := agg.GenerateMonthly(strPtr("ml"), today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Message == "" {
		t.Error("scoped monthly should not see global weekly rows")
	}
}

func TestFormatWeekly(t *testing.T) {
	report := &WeeklyReport{
		WeekStart: "2026-01-30",
		WeekEnd:   "2026-02-06",
		RisingStars: []RisingEntry{
			{Name: "fox/fast", Stars: 800, Growth7d: 500, GrowthPct: 166.67},
		},
		TopLanguages: []LanguageRank{
			{Language: "Go", Count: 2, TotalGrowth: 800},
		},
		MostDiscussed: []DiscussedEntry{
			{Name: "acme/widget", HNMentions: 2, RedditMentions: 1, Total: 3},
		},
		Summary: WeeklySummary{
			TotalRepos: 5, RisingCount: 2, DecliningCount: 1,
			AvgGrowth: 166, TotalStarsGained: 830, TopLanguage: "Go",
		},
		Insights: []string{"📈 Top language: **Go** (2 repos, +800 ⭐)"},
	}

	text := FormatWeekly(report)
	for _, want := range []string{
		"# 📊 Weekly Trend Report",
		"**Jan 30 - Feb 06, 2026**",
		"- Repos tracked: 5",
		"- Average growth: +166 ⭐",
		"1. **fox/fast**: +500 ⭐ (166.67%)",
		"- Go: 2 repos, +800 ⭐",
		"- **acme/widget**: HN 2, Reddit 1",
		"## 💡 Insights",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered weekly report missing %q:\n%s", want, text)
		}
	}
}

func TestFormatWeeklyMessageOnly(t *testing.T) {
	report := &WeeklyReport{Summary: WeeklySummary{Message: "Not enough data yet."}}
	if got := FormatWeekly(report); got != "Not enough data yet." {
		t.Errorf("FormatWeekly = %q", got)
	}
}

func TestFormatMonthly(t *testing.T) {
	report := &MonthlyReport{
		MonthStart: "2026-01-07",
		MonthEnd:   "2026-02-06",
		WeeklySummaries: []WeekSummaryLine{
			{Week: "2026-01-30", RisingCount: 2, AvgGrowth: 200, TopLanguage: "Go"},
		},
		ConsistentRisers: []ConsistentRiser{{Name: "fox/fast", WeeksRising: 2}},
		LanguageEvolution: map[string]LanguageEvolution{
			"Go":   {AvgWeeklyGrowth: 425, Trend: "rising", WeeksTracked: 2},
			"Rust": {AvgWeeklyGrowth: 125, Trend: "declining", WeeksTracked: 2},
		},
		TrendInsights: []string{"🏆 Most consistent riser this month: **fox/fast** (rising 2 weeks)"},
	}

	text := FormatMonthly(report)
	for _, want := range []string{
		"# 📅 Monthly Trend Report",
		"**Jan 07 - Feb 06, 2026**",
		"- Week of Jan 30, 2026: 2 rising, +200 ⭐ avg growth",
		"1. **fox/fast** (rising 2 weeks)",
		"- 📈 Go: +425 ⭐ per week",
		"- 📉 Rust: +125 ⭐ per week",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered monthly report missing %q:\n%s", want, text)
		}
	}

	// Deterministic ordering: Go's larger average ranks it first.
	if strings.Index(text, "Go: +425") > strings.Index(text, "Rust: +125") {
		t.Error("expected Go before Rust in language evolution")
	}
}

func TestFormatMonthlyMessageOnly(t *testing.T) {
	report := &MonthlyReport{Message: "Not enough data for a monthly report."}
	if got := FormatMonthly(report); got != "Not enough data for a monthly report." {
		t.Errorf("FormatMonthly = %q", got)
	}
}

func TestRankedLanguages(t *testing.T) {
	evolution := map[string]LanguageEvolution{
		"Zig":  {AvgWeeklyGrowth: 50},
		"Go":   {AvgWeeklyGrowth: 300},
		"C":    {AvgWeeklyGrowth: 50},
		"Rust": {AvgWeeklyGrowth: 100},
	}
	got := rankedLanguages(evolution)
	want := []string{"Go", "Rust", "C", "Zig"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rankedLanguages = %v, want %v", got, want)
		}
	}
}
