package crawler

import (
	"slices"
	"sync"

	"github.com/nao1215/routescan/internal/model"
)

// CrawlState accumulates the results of one crawl. The page loop and the
// download workers write to it concurrently; every mutation happens under
// a single lock.
type CrawlState struct {
	mu sync.Mutex

	routes     map[string]struct{}
	discovered map[string]struct{}
	claimed    map[string]struct{}
	files      []model.FileRecord
	failures   []model.Failure
}

// NewCrawlState returns an empty state.
func NewCrawlState() *CrawlState {
	return &CrawlState{
		routes:     make(map[string]struct{}),
		discovered: make(map[string]struct{}),
		claimed:    make(map[string]struct{}),
	}
}

// AddRoute records a route. Duplicates are ignored.
func (s *CrawlState) AddRoute(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route] = struct{}{}
}

// AddDiscovered records a file locator found through link extraction and
// reports whether it was new.
func (s *CrawlState) AddDiscovered(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeURL(locator)
	if _, ok := s.discovered[key]; ok {
		return false
	}
	s.discovered[key] = struct{}{}
	return true
}

// Claim reserves locator for download and reports whether the caller won
// the claim. Each distinct locator can be claimed once per crawl, whether
// it was reached by a page fetch or by link extraction.
func (s *CrawlState) Claim(locator string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeURL(locator)
	if _, ok := s.claimed[key]; ok {
		return false
	}
	s.claimed[key] = struct{}{}
	return true
}

// AddFile appends a file record.
func (s *CrawlState) AddFile(record model.FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, record)
}

// AddFailure appends a failure.
func (s *CrawlState) AddFailure(failure model.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure)
}

// Routes returns the recorded routes in sorted order.
func (s *CrawlState) Routes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.routes)
}

// Discovered returns the discovered file locators in sorted order.
func (s *CrawlState) Discovered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.discovered)
}

// Files returns a copy of the file records in completion order.
func (s *CrawlState) Files() []model.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

// Failures returns a copy of the failures in occurrence order.
func (s *CrawlState) Failures() []model.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failures)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
