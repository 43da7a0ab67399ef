// Package crawler implements the same-origin crawl engine of routescan.
//
// # Architecture
//
// The Spider drives a single page loop over a Frontier:
//
//	Frontier.Next -> fetch -> record route -> HTML? extract links : download
//
// Extracted links are admitted by origin, then partitioned by extension:
// locators that look like files go straight to the download pool, the rest
// are enqueued as pages. Downloads run concurrently in a bounded pool while
// the page loop continues.
//
// # Components
//
//   - Frontier: FIFO of pending pages, the visited set, the page budget and
//     same-origin admission
//   - CrawlState: routes, discovered files, download claims, file records
//     and failures, each mutated under one lock
//   - LinkExtractor: markup attributes (goquery) and path-like string
//     literals in inline scripts
//   - Spider: the orchestrator, moving through Running, Draining and Done
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher, downloader, crawler.WithMaxPages(50))
//	result, err := spider.Crawl(ctx, "http://example.com/", session.Dir)
//
// # Failure handling
//
// Network, HTTP, parse and per-file filesystem errors are logged, recorded
// as model.Failure and skipped. Only an invalid target or cancellation ends
// a crawl early; a partial result is returned in both cases.
package crawler
