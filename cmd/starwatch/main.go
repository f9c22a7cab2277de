package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/starwatch/internal/briefing"
	"github.com/mfeldheim/starwatch/internal/config"
	"github.com/mfeldheim/starwatch/internal/database"
	"github.com/mfeldheim/starwatch/internal/ingest"
	"github.com/mfeldheim/starwatch/internal/logging"
	"github.com/mfeldheim/starwatch/internal/report"
	"github.com/mfeldheim/starwatch/internal/server"
	"github.com/mfeldheim/starwatch/internal/trend"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "starwatch",
	Short:   "GitHub repository popularity tracking",
	Long:    "Starwatch ingests fetcher batch files, snapshots repository star counts, matches discussion mentions, and reports which repositories are rising, steady, or cooling down.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.SetDefault(logging.New(level, cfg.Logging.Format))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(briefingCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("starwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/starwatch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set data paths, ingest workers, and the viewer port.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		lastSnapshot := "never"
		if stats.LastSnapshot != nil {
			lastSnapshot = *stats.LastSnapshot
		}

		fmt.Printf("Today: %s\n\n", database.Today())
		fmt.Println("Repositories:")
		fmt.Printf("  Tracked: %d\n", stats.Repositories)
		fmt.Printf("  Snapshots: %d\n", stats.Snapshots)
		fmt.Printf("  Last snapshot: %s\n", lastSnapshot)
		fmt.Println("\nDiscussions:")
		fmt.Printf("  HN items: %d\n", stats.HNItems)
		fmt.Printf("  Reddit items: %d\n", stats.RedditItems)
		fmt.Printf("  Comments: %d\n", stats.Comments)
		fmt.Printf("  Mentions: %d\n", stats.Mentions)
		fmt.Println("\nOutput:")
		fmt.Printf("  Briefings: %d\n", stats.Briefings)
		fmt.Printf("  Weekly reports: %d\n", stats.WeeklyReports)
		return nil
	},
}

// --- ingest command ---

var ingestDate string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file|dir ...]",
	Short: "Ingest fetcher batch files into the tracking database",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := resolveDate(ingestDate)
		if err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			dir := cfg.GetIncomingDir()
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("no batch files given and incoming directory %s does not exist", dir)
			}
			paths = []string{dir}
		}

		files, err := ingest.ExpandPaths(paths)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No batch files to ingest.")
			return nil
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Ingesting %d batch file(s) for %s...\n", len(files), day)

		runner := ingest.NewRunner(ingest.New(db, slog.Default()), cfg.Ingest.Workers, slog.Default())
		result, err := runner.Run(context.Background(), files, day)
		if err != nil {
			return err
		}

		fmt.Println("\nIngest complete:")
		fmt.Printf("  Files processed: %d\n", result.Files)
		if result.FailedFiles > 0 {
			fmt.Printf("  Files skipped: %d\n", result.FailedFiles)
		}
		repos := result.Stats.Repos
		fmt.Printf("  Repos saved: %d (%d duplicates, %d invalid)\n", repos.Saved, repos.Duplicates, repos.Invalid)
		fmt.Printf("  Discussion items: %d\n", result.Stats.Items())
		fmt.Printf("  Comments: %d\n", result.Stats.HN.Comments+result.Stats.Reddit.Comments)
		fmt.Printf("  Mentions: %d\n", result.Stats.Mentions())
		fmt.Println("\nBy source:")
		fmt.Printf("  hn: %d items, %d mentions\n", result.Stats.HN.Saved, result.Stats.HN.Mentions)
		fmt.Printf("  reddit: %d items, %d mentions\n", result.Stats.Reddit.Saved, result.Stats.Reddit.Mentions)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "Snapshot date (YYYY-MM-DD, default today)")
}

// --- report commands ---

var (
	reportDate  string
	reportScope string
	reportJSON  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate trend reports",
}

var reportTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Daily trend report across all tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := resolveDate(reportDate)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repos, err := db.ReposWithSnapshots()
		if err != nil {
			return err
		}

		rep, err := trend.NewEngine(db).GenerateReport(repos, today)
		if err != nil {
			return err
		}

		if reportJSON {
			return printJSON(rep)
		}
		printTrend(rep, today)
		return nil
	},
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Weekly rollup (persisted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := resolveDate(reportDate)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		weekly, err := report.NewAggregator(db).GenerateWeekly(scopeArg(), today)
		if err != nil {
			return err
		}

		if reportJSON {
			return printJSON(weekly)
		}
		fmt.Println(report.FormatWeekly(weekly))
		return nil
	},
}

var reportMonthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly rollup derived from stored weekly reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := resolveDate(reportDate)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		monthly, err := report.NewAggregator(db).GenerateMonthly(scopeArg(), today)
		if err != nil {
			return err
		}

		if reportJSON {
			return printJSON(monthly)
		}
		fmt.Println(report.FormatMonthly(monthly))
		return nil
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportDate, "date", "", "Report date (YYYY-MM-DD, default today)")
	reportCmd.PersistentFlags().BoolVar(&reportJSON, "json", false, "Emit JSON instead of markdown")
	reportWeeklyCmd.Flags().StringVar(&reportScope, "scope", "", "Report scope (default global)")
	reportMonthlyCmd.Flags().StringVar(&reportScope, "scope", "", "Report scope (default global)")

	reportCmd.AddCommand(reportTrendCmd)
	reportCmd.AddCommand(reportWeeklyCmd)
	reportCmd.AddCommand(reportMonthlyCmd)
}

func scopeArg() *string {
	if reportScope == "" {
		return nil
	}
	return &reportScope
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printTrend(rep *trend.Report, today string) {
	fmt.Printf("Trend report for %s\n", database.FormatDateDisplay(today))

	stats := rep.SummaryStats
	fmt.Println("\nSummary:")
	fmt.Printf("  Repos tracked: %d\n", stats.TotalReposTracked)
	fmt.Printf("  New this week: %d\n", stats.NewReposThisWeek)
	fmt.Printf("  Average growth: %+.1f stars\n", stats.AvgStarGrowth)
	fmt.Printf("  Mentions: %d\n", stats.TotalMentions)

	printEntries("Rising stars", rep.RisingStars)
	printEntries("Steady performers", rep.SteadyPerformers)
	printEntries("Cooling down", rep.CoolingDown)
	printEntries("New this week", rep.Newcomers)

	if len(rep.MostDiscussed) > 0 {
		fmt.Println("\nMost discussed:")
		for _, e := range rep.MostDiscussed {
			fmt.Printf("  %s: %d mentions (HN %d, Reddit %d)\n",
				e.Name, e.TotalMentions7d, e.HNMentions7d, e.RedditMentions7d)
		}
	}
	if len(rep.PreviouslyFeatured) > 0 {
		fmt.Printf("\nPreviously featured (7d): %s\n", strings.Join(rep.PreviouslyFeatured, ", "))
	}
}

func printEntries(heading string, entries []trend.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", heading)
	for i, e := range entries {
		fmt.Printf("  %d. %s: %d stars (%+d this week)\n", i+1, e.Name, e.CurrentStars, e.Growth7d)
	}
}

// --- briefing command ---

var briefingDate string

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Compose the daily briefing artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := resolveDate(briefingDate)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repos, err := db.ReposWithSnapshots()
		if err != nil {
			return err
		}
		rep, err := trend.NewEngine(db).GenerateReport(repos, today)
		if err != nil {
			return err
		}

		composer := briefing.NewComposer(db, cfg.BriefingsDir(), slog.Default())
		result, err := composer.Compose(rep, today)
		if err != nil {
			return err
		}

		fmt.Printf("Briefing written: %s\n", result.Path)
		if result.StarOfDay != "" {
			fmt.Printf("Star of the day: %s\n", result.StarOfDay)
		}
		fmt.Println("\nRun 'starwatch serve' to view it.")
		return nil
	},
}

func init() {
	briefingCmd.Flags().StringVar(&briefingDate, "date", "", "Briefing date (YYYY-MM-DD, default today)")
}

// --- repo command ---

var repoCmd = &cobra.Command{
	Use:   "repo [owner/name]",
	Short: "Show details for a tracked repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := db.GetRepoByName(args[0])
		if err != nil {
			return err
		}
		if repo == nil {
			return fmt.Errorf("repository %s is not tracked", args[0])
		}

		fmt.Println(repo.FullName)
		fmt.Printf("  URL: %s\n", repo.URL)
		if repo.Language != nil && *repo.Language != "" {
			fmt.Printf("  Language: %s\n", *repo.Language)
		}
		if repo.Description != nil && *repo.Description != "" {
			fmt.Printf("  Description: %s\n", *repo.Description)
		}
		topics, err := db.Topics(repo.ID)
		if err != nil {
			return err
		}
		if len(topics) > 0 {
			fmt.Printf("  Topics: %s\n", strings.Join(topics, ", "))
		}

		today := database.Today()
		metrics, err := trend.NewEngine(db).MetricsFor(repo.ID, repo.FullName, today)
		if err != nil {
			return err
		}
		if metrics != nil {
			fmt.Println("\nThis week:")
			fmt.Printf("  Status: %s\n", metrics.Status)
			fmt.Printf("  Stars: %d (%+d this week)\n", metrics.CurrentStars, metrics.Growth7d)
			fmt.Printf("  Mentions (7d): HN %d, Reddit %d\n", metrics.HNMentions7d, metrics.RedditMentions7d)
			fmt.Printf("  Times featured: %d\n", metrics.TimesFeatured)
			fmt.Printf("  %s\n", metrics.Summary())
		} else {
			fmt.Println("\nNo snapshot for today; run an ingest to compute metrics.")
		}

		since, err := database.DaysBefore(today, 30)
		if err != nil {
			return err
		}
		snapshots, err := db.SnapshotHistory(repo.ID, since)
		if err != nil {
			return err
		}
		if len(snapshots) > 0 {
			fmt.Println("\nSnapshots (last 30 days):")
			for i := len(snapshots) - 1; i >= 0; i-- {
				s := snapshots[i]
				fmt.Printf("  %s  %d stars\n", s.SnapshotDate, s.Stars)
			}
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting viewer at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run the viewer on")
}

// resolveDate validates an explicit --date value, defaulting to today.
func resolveDate(flag string) (string, error) {
	if flag == "" {
		return database.Today(), nil
	}
	if _, err := time.Parse(database.DateLayout, flag); err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD)", flag)
	}
	return flag, nil
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "starwatch.db")
	return database.Open(dbPath)
}
