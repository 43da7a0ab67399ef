package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Frontier owns the queue of pages to visit and the set of pages already
// visited. It enforces the page budget and same-origin admission.
//
// The queue is not deduplicated on insertion; Next skips locators that were
// visited in the meantime.
type Frontier struct {
	origin *url.URL
	budget int

	mu      sync.Mutex
	queue   []string
	visited map[string]bool
}

// NewFrontier creates a Frontier for target with the given page budget.
func NewFrontier(target string, budget int) (*Frontier, error) {
	origin, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid target %q: scheme and host are required", target)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("invalid page budget %d: must be positive", budget)
	}
	return &Frontier{
		origin:  origin,
		budget:  budget,
		visited: make(map[string]bool),
	}, nil
}

// Origin returns the target locator the frontier was created for.
func (f *Frontier) Origin() *url.URL {
	u := *f.origin
	return &u
}

// Admit reports whether candidate may be crawled or downloaded.
func (f *Frontier) Admit(candidate string) bool {
	return Admit(candidate, f.origin)
}

// Admit reports whether candidate is eligible for the crawl of origin:
//   - empty locators are rejected
//   - locators containing a fragment marker are rejected
//   - locators without a host are accepted only if they also have no
//     scheme (origin-relative paths; "mailto:" and friends are rejected)
//   - otherwise scheme and host, port included, must match origin
func Admit(candidate string, origin *url.URL) bool {
	if candidate == "" || strings.Contains(candidate, "#") {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	if u.Host == "" {
		return u.Scheme == "" && u.Opaque == ""
	}

	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

// Enqueue appends locator to the tail of the queue.
func (f *Frontier) Enqueue(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, locator)
}

// Next pops the next unvisited locator and marks it visited. It returns
// false when the queue is exhausted or the page budget has been reached.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) > 0 {
		if len(f.visited) >= f.budget {
			return "", false
		}

		locator := f.queue[0]
		f.queue[0] = ""
		f.queue = f.queue[1:]

		key := normalizeURL(locator)
		if f.visited[key] {
			continue
		}
		f.visited[key] = true
		return locator, true
	}
	return "", false
}

// IsVisited reports whether locator has already been handed out by Next.
func (f *Frontier) IsVisited(locator string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[normalizeURL(locator)]
}

// VisitedCount returns the number of pages handed out by Next.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// Pending returns the number of queued entries, duplicates included.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// BudgetExhausted reports whether the page budget has been used up.
func (f *Frontier) BudgetExhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited) >= f.budget
}

// normalizeURL returns the key used for set membership: the fragment is
// dropped, scheme and host are lowercased and an empty path becomes "/".
func normalizeURL(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return locator
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String()
}

// routeOf returns the path component of locator, "/" when empty.
func routeOf(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	route := u.EscapedPath()
	if route == "" {
		route = "/"
	}
	return route
}
