package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/routescan/internal/config"
	"github.com/nao1215/routescan/internal/database"
	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/report"
)

// newTestSite serves a landing page linking one document and one subpage.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="/about">about</a><a href="/manual.pdf">manual</a>`)) //nolint:errcheck
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<p>about us</p>`)) //nolint:errcheck
	})
	mux.HandleFunc("/manual.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 manual")) //nolint:errcheck
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.OutputDir = t.TempDir()
	cfg.DBDir = t.TempDir()
	cfg.ExtractMetadata = false
	return cfg
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("full scan writes reports and history", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		cfg := newTestConfig(t)
		cfg.MarkdownReport = true

		var summary bytes.Buffer
		p, err := DefaultPipeline(cfg, server.URL+"/", "", Outputs{Summary: &summary}, WithLogger(discardLogger()))
		if err != nil {
			t.Fatalf("DefaultPipeline() error = %v", err)
		}
		if want := []string{"session_setup", "crawl", "report", "history"}; !slices.Equal(p.StepNames(), want) {
			t.Errorf("StepNames() = %v, want %v", p.StepNames(), want)
		}

		scan := model.NewScan(server.URL + "/")
		defer scan.Close()

		if err := p.Execute(context.Background(), scan); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if scan.Err() != nil {
			t.Fatalf("unexpected step errors: %v", scan.Err())
		}

		if !slices.Equal(scan.Report.Routes, []string{"/", "/about"}) {
			t.Errorf("Routes = %v, want [/ /about]", scan.Report.Routes)
		}
		if scan.Report.ScanInfo.TotalFiles != 1 {
			t.Errorf("TotalFiles = %d, want 1", scan.Report.ScanInfo.TotalFiles)
		}

		for _, name := range []string{report.JSONFileName, report.HTMLFileName, report.MarkdownFileName, "scan.log"} {
			path := filepath.Join(scan.Session.ReportsDir(), name)
			if _, err := os.Stat(path); err != nil {
				t.Errorf("expected %s: %v", name, err)
			}
		}
		if _, err := os.Stat(filepath.Join(scan.Session.CategoryDir(model.CategoryDocs), "manual.pdf")); err != nil {
			t.Errorf("expected downloaded document: %v", err)
		}
		if !strings.Contains(summary.String(), scan.Target) {
			t.Errorf("summary does not mention the scan:\n%s", summary.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		history, err := db.History(context.Background(), scan.Session.Host)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 history entry, got %d", len(history))
		}
		if history[0].ScanID != scan.Session.ID {
			t.Errorf("ScanID = %q, want %q", history[0].ScanID, scan.Session.ID)
		}
	})

	t.Run("history disabled", func(t *testing.T) {
		t.Parallel()

		cfg := newTestConfig(t)
		cfg.SaveToDB = false

		p, err := DefaultPipeline(cfg, "http://example.com/", "", Outputs{})
		if err != nil {
			t.Fatalf("DefaultPipeline() error = %v", err)
		}
		if slices.Contains(p.StepNames(), "history") {
			t.Errorf("history step should be absent: %v", p.StepNames())
		}
	})

	t.Run("unreachable target is reported as a failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		target := server.URL + "/"
		server.Close()

		cfg := newTestConfig(t)
		cfg.SaveToDB = false
		cfg.Timeout = 2 * time.Second

		p, err := DefaultPipeline(cfg, target, "", Outputs{}, WithLogger(discardLogger()))
		if err != nil {
			t.Fatalf("DefaultPipeline() error = %v", err)
		}

		scan := model.NewScan(target)
		defer scan.Close()

		if err := p.Execute(context.Background(), scan); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if scan.Err() != nil {
			t.Errorf("an unreachable target is a crawl failure, not a step error: %v", scan.Err())
		}
		if scan.Report == nil {
			t.Fatal("expected a report")
		}
		if len(scan.Report.Failures) != 1 || scan.Report.Failures[0].Kind != model.FailureNetwork {
			t.Errorf("Failures = %v, want one network failure", scan.Report.Failures)
		}
		if len(scan.Report.Routes) != 0 {
			t.Errorf("Routes = %v, want none", scan.Report.Routes)
		}
	})
}

func TestSessionSetupStep(t *testing.T) {
	t.Parallel()

	t.Run("creates the session and logger", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		step := NewSessionSetupStep(root, WithClock(func() time.Time { return fixed }))

		scan := model.NewScan("http://Example.com:8080/")
		defer scan.Close()

		if err := step.Do(context.Background(), scan); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if scan.Session == nil || scan.Logger == nil {
			t.Fatal("expected session and logger")
		}
		if scan.Session.Host != "example.com:8080" {
			t.Errorf("Host = %q", scan.Session.Host)
		}
		if !step.Critical() {
			t.Error("setup must be critical")
		}
		if _, err := os.Stat(scan.Session.LogPath()); err != nil {
			t.Errorf("expected scan.log: %v", err)
		}
	})

	t.Run("invalid target", func(t *testing.T) {
		t.Parallel()

		step := NewSessionSetupStep(t.TempDir())
		if err := step.Do(context.Background(), model.NewScan("not a url")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestStepsWithoutSession(t *testing.T) {
	t.Parallel()

	scan := model.NewScan("http://example.com/")

	if err := NewCrawlStep(nil).Do(context.Background(), scan); !errors.Is(err, errNoSession) {
		t.Errorf("crawl: expected errNoSession, got %v", err)
	}
	if err := NewReportStep().Do(context.Background(), scan); !errors.Is(err, errNoSession) {
		t.Errorf("report: expected errNoSession, got %v", err)
	}
	if err := NewHistoryStep(t.TempDir()).Do(context.Background(), scan); err == nil {
		t.Error("history: expected error without report")
	}
}
