package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mfeldheim/starwatch/internal/source"
)

// Result summarizes one ingest run.
type Result struct {
	RunID       string
	Files       int
	FailedFiles int
	Stats       BatchStats
}

// Runner consumes batch files with a bounded worker pool. Files are
// decoded concurrently; all database writes serialize inside the shared
// Ingestor.
type Runner struct {
	ing     *Ingestor
	workers int
	log     *slog.Logger
}

// NewRunner creates a Runner with the given decode concurrency.
func NewRunner(ing *Ingestor, workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ing: ing, workers: workers, log: logger}
}

// Run ingests the given batch files for a calendar day. Unreadable or
// malformed files are logged and skipped; the first database error
// aborts the run. The returned Result reflects whatever completed.
func (r *Runner) Run(ctx context.Context, paths []string, day string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	log := r.log.With("run_id", result.RunID)
	log.Info("starting ingest run", "files", len(paths), "workers", r.workers, "day", day)

	if len(paths) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := r.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		runErr error
	)
	files := make(chan string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range files {
				if ctx.Err() != nil {
					return
				}
				batch, err := source.ReadBatch(path)
				if err != nil {
					log.Warn("skipping unreadable batch file", "path", path, "error", err)
					mu.Lock()
					result.FailedFiles++
					mu.Unlock()
					continue
				}
				stats, err := r.ing.PersistBatch(batch, day)
				if err != nil {
					mu.Lock()
					if runErr == nil {
						runErr = fmt.Errorf("ingesting %s: %w", path, err)
					}
					mu.Unlock()
					cancel()
					return
				}
				mu.Lock()
				result.Files++
				result.Stats.add(stats)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, path := range paths {
		select {
		case files <- path:
		case <-ctx.Done():
			break feed
		}
	}
	close(files)
	wg.Wait()

	if runErr != nil {
		return result, runErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	log.Info("ingest run complete",
		"files", result.Files,
		"failed_files", result.FailedFiles,
		"repos", result.Stats.Repos.Saved,
		"items", result.Stats.Items(),
		"mentions", result.Stats.Mentions())
	return result, nil
}

// ExpandPaths resolves file and directory arguments into a list of batch
// file paths. Directories contribute their .json entries in name order.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			out = append(out, filepath.Join(p, e.Name()))
		}
	}
	return out, nil
}
