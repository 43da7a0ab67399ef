package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/routescan/internal/classifier"
	"github.com/nao1215/routescan/internal/download"
	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/transport"
)

// Default crawl limits.
const (
	DefaultMaxPages    = 200
	DefaultWorkers     = 5
	DefaultPageTimeout = 10 * time.Second
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Fetcher retrieves a page. *transport.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*transport.Response, error)
}

// Downloader persists a resource. *download.Downloader implements it.
type Downloader interface {
	Download(ctx context.Context, locator string, category model.Category, root string) (*model.FileRecord, error)
}

// Phase is the lifecycle stage of a crawl.
type Phase int32

const (
	// PhaseIdle is the state before Crawl is called.
	PhaseIdle Phase = iota
	// PhaseRunning means the page loop is taking pages from the frontier.
	PhaseRunning
	// PhaseDraining means the page loop has stopped and downloads are finishing.
	PhaseDraining
	// PhaseDone means every download has finished and the result is final.
	PhaseDone
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Spider crawls one target breadth-first, records routes and downloads
// every same-origin file it can reach.
//
// A Spider runs one crawl at a time.
type Spider struct {
	fetcher    Fetcher
	downloader Downloader
	extractors []LinkExtractor

	maxPages    int
	workers     int
	pageTimeout time.Duration
	maxBodySize int64

	// ignorePatterns and followPatterns filter page candidates by path.
	ignorePatterns []string
	followPatterns []string

	logger *slog.Logger
	phase  atomic.Int32
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the page budget.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithWorkers sets the width of the download pool.
func WithWorkers(workers int) SpiderOption {
	return func(s *Spider) {
		s.workers = workers
	}
}

// WithPageTimeout bounds each page fetch, body included.
func WithPageTimeout(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.pageTimeout = d
	}
}

// WithMaxBodySize caps how much of an HTML page is read.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		s.maxBodySize = size
	}
}

// WithExtractors replaces the link extractors.
func WithExtractors(extractors ...LinkExtractor) SpiderOption {
	return func(s *Spider) {
		s.extractors = extractors
	}
}

// WithIgnorePatterns sets path globs of pages that are never visited.
// Patterns use glob syntax (e.g., "/admin/*", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts page visits to paths matching at least one
// glob. The target itself is always visited.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches pages with fetcher and persists
// files with downloader.
func NewSpider(fetcher Fetcher, downloader Downloader, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		downloader:  downloader,
		extractors:  DefaultExtractors(),
		maxPages:    DefaultMaxPages,
		workers:     DefaultWorkers,
		pageTimeout: DefaultPageTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the current lifecycle stage.
func (s *Spider) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *Spider) setPhase(p Phase) {
	s.phase.Store(int32(p))
	s.logger.Debug("crawl phase", "phase", p.String())
}

// Result is the outcome of a crawl.
type Result struct {
	// Routes are the sorted paths of successfully fetched pages.
	Routes []string

	// Files are the persisted resources in completion order.
	Files []model.FileRecord

	// Failures are the locators that could not be processed.
	Failures []model.Failure

	// Discovered are the file locators found through link extraction.
	Discovered []string

	// PagesVisited is the number of pages taken from the frontier.
	PagesVisited int
}

// crawlRun holds what one Crawl call shares between the page loop and the
// download jobs.
type crawlRun struct {
	frontier *Frontier
	state    *CrawlState
	pool     *download.Pool
	root     string
}

// Crawl crawls target and downloads files into root/<category>/.
//
// Per-locator failures never stop the crawl. If ctx is cancelled, the page
// loop stops, in-flight downloads observe the cancellation, and the partial
// result is returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, target, root string) (*Result, error) {
	frontier, err := NewFrontier(target, s.maxPages)
	if err != nil {
		return nil, err
	}

	run := &crawlRun{
		frontier: frontier,
		state:    NewCrawlState(),
		pool:     download.NewPool(ctx, s.workers),
		root:     root,
	}

	s.setPhase(PhaseRunning)
	s.logger.Info("crawl started", "target", target, "max_pages", s.maxPages, "workers", s.workers)

	frontier.Enqueue(target)
	for ctx.Err() == nil {
		locator, ok := frontier.Next()
		if !ok {
			break
		}
		s.visit(ctx, run, locator)
	}

	s.setPhase(PhaseDraining)
	if n := run.pool.InFlight(); n > 0 {
		s.logger.Info("waiting for downloads", "in_flight", n)
	}
	run.pool.Wait()
	s.setPhase(PhaseDone)

	result := &Result{
		Routes:       run.state.Routes(),
		Files:        run.state.Files(),
		Failures:     run.state.Failures(),
		Discovered:   run.state.Discovered(),
		PagesVisited: frontier.VisitedCount(),
	}

	s.logger.Info("crawl finished",
		"target", target,
		"pages", result.PagesVisited,
		"routes", len(result.Routes),
		"files", len(result.Files),
		"failures", len(result.Failures),
		"budget_exhausted", frontier.BudgetExhausted(),
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// visit fetches one page and handles its response. Errors are recorded,
// never returned.
func (s *Spider) visit(ctx context.Context, run *crawlRun, locator string) {
	s.logger.Info("visiting", "url", locator)

	pageCtx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	resp, err := s.fetcher.Fetch(pageCtx, locator)
	if err != nil {
		s.fail(run, locator, err)
		return
	}

	if !model.IsSuccessStatus(resp.StatusCode) {
		_ = resp.Close() //nolint:errcheck // body is not needed
		s.fail(run, locator, &model.HTTPError{URL: locator, StatusCode: resp.StatusCode})
		return
	}

	run.state.AddRoute(routeOf(locator))

	if !resp.IsHTML() {
		// The downloader refetches the resource as a stream; the page
		// response is not buffered.
		_ = resp.Close() //nolint:errcheck // body is not needed
		s.submitDownload(run, locator, classifier.Classify(locator), resp.ContentType)
		return
	}

	body, err := resp.ReadBody(s.maxBodySize)
	if err != nil {
		s.fail(run, locator, err)
		return
	}

	// Links resolve against the popped locator. A redirect that stayed on
	// the origin (e.g. "/docs" to "/docs/") is honored.
	base := locator
	if resp.URL != locator && run.frontier.Admit(resp.URL) {
		base = resp.URL
	}

	links, err := ExtractLinks(body, base, s.extractors...)
	if err != nil {
		s.fail(run, locator, err)
		return
	}

	for _, link := range links {
		s.consider(run, link)
	}
}

// consider admits an extracted link and routes it to the download pool or
// the page queue.
func (s *Spider) consider(run *crawlRun, link string) {
	if !run.frontier.Admit(link) {
		return
	}

	if looksLikeFile(link) {
		if run.state.AddDiscovered(link) {
			s.logger.Debug("discovered file", "url", link)
		}
		s.submitDownload(run, link, classifier.Classify(link), "")
		return
	}

	if run.frontier.IsVisited(link) {
		return
	}
	if !shouldCrawl(link, s.ignorePatterns, s.followPatterns) {
		s.logger.Debug("skipping by pattern", "url", link)
		return
	}
	run.frontier.Enqueue(link)
	s.logger.Debug("enqueued", "url", link)
}

// submitDownload schedules a download of locator unless it was already
// claimed during this crawl.
func (s *Spider) submitDownload(run *crawlRun, locator string, category model.Category, contentType string) {
	if !run.state.Claim(locator) {
		return
	}

	s.logger.Debug("queued download", "url", locator, "category", category, "content_type", contentType)
	run.pool.Submit(func(ctx context.Context) {
		record, err := s.downloader.Download(ctx, locator, category, run.root)
		if err != nil {
			s.fail(run, locator, err)
			return
		}
		run.state.AddFile(*record)
		s.logger.Info("downloaded",
			"url", locator,
			"category", record.Category,
			"path", record.FilePath,
			"bytes", record.Size,
		)
	})
}

// fail logs and records a per-locator failure.
func (s *Spider) fail(run *crawlRun, locator string, err error) {
	failure := model.NewFailure(locator, err)
	run.state.AddFailure(failure)
	s.logger.Warn("skipping locator",
		"url", locator,
		"kind", string(failure.Kind),
		"error", fmt.Sprint(err),
	)
}

// looksLikeFile reports whether locator's extension names a known,
// non-page resource type.
func looksLikeFile(locator string) bool {
	if !classifier.IsKnown(locator) {
		return false
	}
	return classifier.Classify(locator) != model.CategoryWeb
}
