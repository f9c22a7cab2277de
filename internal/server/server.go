// Package server is the read-only local viewer for briefings, repo
// details and trend reports.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/mfeldheim/starwatch/internal/database"
	"github.com/mfeldheim/starwatch/internal/report"
	"github.com/mfeldheim/starwatch/internal/trend"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server serves the viewer pages. It only ever reads from the database.
type Server struct {
	db      *database.DB
	engine  *trend.Engine
	agg     *report.Aggregator
	pages   map[string]*template.Template
	router  chi.Router
	metrics *httpMetrics
	log     *slog.Logger
}

// New creates a new Server.
func New(db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": database.FormatDateDisplay,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse the base template first, then clone it per page so each page
	// brings its own {{define "content"}} and {{define "title"}}.
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	pageNames := []string{"index.html", "briefing.html", "repo.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:      db,
		engine:  trend.NewEngine(db),
		agg:     report.NewAggregator(db),
		pages:   pages,
		metrics: newHTTPMetrics(),
		log:     slog.Default(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Get("/briefing/{id}", s.handleBriefing)
	r.Get("/repo/{owner}/{name}", s.handleRepo)
	r.Get("/reports/weekly", s.handleWeekly)
	r.Get("/reports/monthly", s.handleMonthly)
	r.Handle("/metrics", s.metrics.handler())

	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	briefings, err := s.db.GetAllBriefings()
	if err != nil {
		s.serverError(w, "loading briefings", err)
		return
	}

	latest := ""
	if len(briefings) > 0 {
		latest = briefingContent(&briefings[0])
	}

	s.render(w, "index.html", map[string]any{
		"Briefings": briefings,
		"Latest":    latest,
	})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	briefing, err := s.db.GetBriefing(id)
	if err != nil {
		s.serverError(w, "loading briefing", err)
		return
	}
	if briefing == nil {
		http.NotFound(w, r)
		return
	}

	features, err := s.db.BriefingFeatures(id)
	if err != nil {
		s.serverError(w, "loading featured repos", err)
		return
	}

	s.render(w, "briefing.html", map[string]any{
		"Briefing": briefing,
		"Content":  briefingContent(briefing),
		"Features": features,
	})
}

func (s *Server) handleRepo(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	repo, err := s.db.GetRepoByName(fullName)
	if err != nil {
		s.serverError(w, "loading repo", err)
		return
	}
	if repo == nil {
		http.NotFound(w, r)
		return
	}

	today := database.Today()
	metrics, err := s.engine.MetricsFor(repo.ID, repo.FullName, today)
	if err != nil {
		s.serverError(w, "computing metrics", err)
		return
	}

	since, err := database.DaysBefore(today, 30)
	if err != nil {
		s.serverError(w, "resolving window", err)
		return
	}
	snapshots, err := s.db.SnapshotHistory(repo.ID, since)
	if err != nil {
		s.serverError(w, "loading snapshots", err)
		return
	}
	// Newest day on top of the table.
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}

	topics, err := s.db.Topics(repo.ID)
	if err != nil {
		s.serverError(w, "loading topics", err)
		return
	}

	s.render(w, "repo.html", map[string]any{
		"Repo":      repo,
		"Metrics":   metrics,
		"Snapshots": snapshots,
		"Topics":    topics,
	})
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.GetWeeklyReports(nil, 1)
	if err != nil {
		s.serverError(w, "loading weekly reports", err)
		return
	}

	content := "No weekly reports yet. Run `starwatch report weekly` after a few days of ingests."
	if len(rows) > 0 {
		var wr report.WeeklyReport
		if err := json.Unmarshal(rows[0].ReportData, &wr); err != nil {
			s.serverError(w, "decoding weekly report", err)
			return
		}
		content = report.FormatWeekly(&wr)
	}

	s.render(w, "report.html", map[string]any{
		"Title":   "Weekly Report",
		"Content": content,
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	monthly, err := s.agg.GenerateMonthly(nil, database.Today())
	if err != nil {
		s.serverError(w, "generating monthly report", err)
		return
	}

	s.render(w, "report.html", map[string]any{
		"Title":   "Monthly Report",
		"Content": report.FormatMonthly(monthly),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", "name", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Error("rendering template", "name", name, "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// briefingContent reads the briefing's markdown artifact from disk. The
// row survives the file, so a missing artifact degrades to a note.
func briefingContent(b *database.Briefing) string {
	if b.ReportPath == nil {
		return "This briefing has no stored artifact."
	}
	content, err := os.ReadFile(*b.ReportPath)
	if err != nil {
		return fmt.Sprintf("Briefing file is missing (%s).", *b.ReportPath)
	}
	return string(content)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the viewer on the given port, bound to localhost only.
func Serve(db *database.DB, port int) error {
	srv, err := New(db)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	slog.Info("viewer listening", "addr", "http://"+addr)
	return http.ListenAndServe(addr, srv.Handler())
}
