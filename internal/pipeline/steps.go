package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nao1215/routescan/internal/crawler"
	"github.com/nao1215/routescan/internal/database"
	"github.com/nao1215/routescan/internal/download"
	"github.com/nao1215/routescan/internal/log"
	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/report"
	"github.com/nao1215/routescan/internal/session"
	"github.com/nao1215/routescan/internal/transport"
)

// errNoSession is returned by steps that need the session directory when
// setup did not complete.
var errNoSession = errors.New("session has not been set up")

// SessionSetupStep creates the session directory tree and the session
// logger, which writes to the console and to reports/scan.log.
type SessionSetupStep struct {
	root    string
	console io.Writer
	verbose bool
	now     func() time.Time
}

// SessionSetupOption configures a SessionSetupStep.
type SessionSetupOption func(*SessionSetupStep)

// WithConsole sets where the session logger writes console records.
// Nil disables console logging.
func WithConsole(w io.Writer) SessionSetupOption {
	return func(s *SessionSetupStep) {
		s.console = w
	}
}

// WithVerbose enables Debug records on the console.
func WithVerbose(verbose bool) SessionSetupOption {
	return func(s *SessionSetupStep) {
		s.verbose = verbose
	}
}

// WithClock replaces time.Now for naming the session directory.
func WithClock(now func() time.Time) SessionSetupOption {
	return func(s *SessionSetupStep) {
		s.now = now
	}
}

// NewSessionSetupStep creates a setup step that places sessions below root.
func NewSessionSetupStep(root string, opts ...SessionSetupOption) *SessionSetupStep {
	s := &SessionSetupStep{
		root: root,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SessionSetupStep) Name() string {
	return "session_setup"
}

// Critical reports that the pipeline cannot go on without a session.
func (s *SessionSetupStep) Critical() bool {
	return true
}

// Do executes the session setup step.
func (s *SessionSetupStep) Do(_ context.Context, scan *model.Scan) error {
	sess, err := session.Setup(s.root, scan.Target, s.now())
	if err != nil {
		return fmt.Errorf("failed to set up session for %s: %w", scan.Target, err)
	}

	logPath := sess.LogPath()
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path is built from the session directory
	if err != nil {
		return &model.FilesystemError{Op: "open", Path: logPath, Err: err}
	}
	scan.OnClose(logFile.Close)

	scan.Session = sess
	scan.Logger = log.NewScanLogger(s.console, logFile, s.verbose).With("host", sess.Host)
	scan.Logger.Info("session created", "dir", sess.Dir, "scan_id", sess.ID)
	return nil
}

// CrawlStep crawls the target and downloads every reachable file into the
// session directory.
type CrawlStep struct {
	fetcher *transport.Fetcher
	// fileFetcher downloads files; it defaults to fetcher.
	fileFetcher  *transport.Fetcher
	spiderOpts   []crawler.SpiderOption
	downloadOpts []download.Option
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithSpiderOptions adds options for the crawler.
func WithSpiderOptions(opts ...crawler.SpiderOption) CrawlStepOption {
	return func(s *CrawlStep) {
		s.spiderOpts = append(s.spiderOpts, opts...)
	}
}

// WithDownloadOptions adds options for the downloader.
func WithDownloadOptions(opts ...download.Option) CrawlStepOption {
	return func(s *CrawlStep) {
		s.downloadOpts = append(s.downloadOpts, opts...)
	}
}

// WithFileFetcher sets the fetcher used for file downloads. Pages keep
// using the step's fetcher.
func WithFileFetcher(f *transport.Fetcher) CrawlStepOption {
	return func(s *CrawlStep) {
		s.fileFetcher = f
	}
}

// NewCrawlStep creates a crawl step that fetches pages and files with fetcher.
func NewCrawlStep(fetcher *transport.Fetcher, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{fetcher: fetcher, fileFetcher: fetcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. The results are stored on scan even when
// the crawl was cancelled.
func (s *CrawlStep) Do(ctx context.Context, scan *model.Scan) error {
	if scan.Session == nil {
		return errNoSession
	}
	logger := scan.Logger

	downloadOpts := append([]download.Option{}, s.downloadOpts...)
	spiderOpts := append([]crawler.SpiderOption{}, s.spiderOpts...)
	if logger != nil {
		downloadOpts = append(downloadOpts, download.WithLogger(logger))
		spiderOpts = append(spiderOpts, crawler.WithLogger(logger))
	}

	downloader := download.New(s.fileFetcher, downloadOpts...)
	spider := crawler.NewSpider(s.fetcher, downloader, spiderOpts...)

	start := time.Now()
	result, err := spider.Crawl(ctx, scan.Target, scan.Session.Dir)
	scan.Duration = time.Since(start)

	if result != nil {
		scan.Routes = result.Routes
		scan.Files = result.Files
		scan.Failures = result.Failures
	}
	if err != nil {
		if ctx.Err() != nil {
			scan.Cancelled = true
		}
		return fmt.Errorf("crawl of %s: %w", scan.Target, err)
	}
	return nil
}

// ReportStep builds the report and writes its artifacts into the
// session's reports directory. It also prints the console summary.
type ReportStep struct {
	markdown bool
	summary  io.Writer
	verbose  bool
	colored  bool
}

// ReportStepOption configures a ReportStep.
type ReportStepOption func(*ReportStep)

// WithMarkdown also writes report.md.
func WithMarkdown(markdown bool) ReportStepOption {
	return func(s *ReportStep) {
		s.markdown = markdown
	}
}

// WithSummary prints the console summary to w. Nil disables it.
func WithSummary(w io.Writer, verbose, colored bool) ReportStepOption {
	return func(s *ReportStep) {
		s.summary = w
		s.verbose = verbose
		s.colored = colored
	}
}

// NewReportStep creates a report step.
func NewReportStep(opts ...ReportStepOption) *ReportStep {
	s := &ReportStep{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Finalizing reports that the report of a cancelled crawl is still written.
func (s *ReportStep) Finalizing() bool {
	return true
}

// Do executes the report step.
func (s *ReportStep) Do(_ context.Context, scan *model.Scan) error {
	if scan.Session == nil {
		return errNoSession
	}

	scan.Report = report.Build(scan.Session, scan.Routes, scan.Files, scan.Failures, scan.Duration)

	paths, err := report.WriteArtifacts(scan.Report, scan.Session.ReportsDir(), report.ArtifactOptions{Markdown: s.markdown})
	for _, path := range paths {
		if scan.Logger != nil {
			scan.Logger.Info("report written", "path", path)
		}
	}
	if err != nil {
		return err
	}

	if s.summary != nil {
		w := report.NewSimpleWriter(s.summary, report.WithVerbose(s.verbose), report.WithColor(s.colored))
		if _, err := w.Write(scan.Report); err != nil {
			return fmt.Errorf("failed to print summary: %w", err)
		}
	}
	return nil
}

// HistoryStep stores the report in the history database.
type HistoryStep struct {
	dbDir string
}

// NewHistoryStep creates a history step using the database in dbDir.
func NewHistoryStep(dbDir string) *HistoryStep {
	return &HistoryStep{dbDir: dbDir}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Finalizing reports that partial reports are stored too.
func (s *HistoryStep) Finalizing() bool {
	return true
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, scan *model.Scan) (err error) {
	if scan.Report == nil {
		return errors.New("no report to store")
	}

	db, err := database.Open(s.dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close history database: %w", cerr)
		}
	}()

	id, err := db.SaveReport(ctx, scan.Report)
	if err != nil {
		return err
	}
	if scan.Logger != nil {
		scan.Logger.Debug("report stored", "db", db.Path(), "row", id)
	}
	return nil
}
