package pipeline

import (
	"io"
	"net/url"
	"strings"

	"github.com/nao1215/routescan/internal/config"
	"github.com/nao1215/routescan/internal/crawler"
	"github.com/nao1215/routescan/internal/download"
	"github.com/nao1215/routescan/internal/fingerprint"
	"github.com/nao1215/routescan/internal/transport"
)

// Outputs are the console destinations of a scan.
type Outputs struct {
	// Log receives console log records. Nil disables console logging.
	Log io.Writer

	// Summary receives the plain-text summary of each scan. Nil disables it.
	Summary io.Writer

	// Color enables colors in the summary.
	Color bool
}

// DefaultPipeline creates the standard pipeline for target: session setup,
// crawl, report and, when enabled, history.
//
// Site-specific settings from the configuration file are resolved for the
// target's host. proxyAddress, when not empty, is a SOCKS5 proxy for all
// requests; it takes precedence over cfg.ProxyAddress so that the address
// of an embedded Tor daemon can be passed in.
func DefaultPipeline(cfg *config.Config, target, proxyAddress string, out Outputs, opts ...Option) (*Pipeline, error) {
	settings := cfg.SettingsFor(hostOf(target))

	if proxyAddress == "" {
		proxyAddress = cfg.ProxyAddress
	}
	clientOpts := []transport.Option{
		transport.WithUserAgent(settings.UserAgent),
		transport.WithHeaders(settings.Headers),
	}
	if proxyAddress != "" {
		clientOpts = append(clientOpts, transport.WithProxy(proxyAddress))
	}
	client, err := transport.NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}
	fetcher := transport.NewFetcher(client.HTTPClient())
	// Files are only persisted from the target's host.
	fileFetcher := transport.NewFetcher(client.SameHostHTTPClient())

	spiderOpts := []crawler.SpiderOption{
		crawler.WithMaxPages(settings.MaxPages),
		crawler.WithWorkers(settings.Workers),
		crawler.WithPageTimeout(cfg.Timeout),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	}
	if len(settings.IgnorePatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithIgnorePatterns(settings.IgnorePatterns))
	}
	if len(settings.FollowPatterns) > 0 {
		spiderOpts = append(spiderOpts, crawler.WithFollowPatterns(settings.FollowPatterns))
	}

	downloadOpts := []download.Option{download.WithTimeout(cfg.DownloadTimeout)}
	if cfg.ExtractMetadata {
		downloadOpts = append(downloadOpts, download.WithExtractor(fingerprint.New()))
	}

	p := New(append([]Option{WithContinueOnError(true)}, opts...)...)
	p.AddSteps(
		NewSessionSetupStep(cfg.OutputDir, WithConsole(out.Log), WithVerbose(cfg.Verbose)),
		NewCrawlStep(fetcher, WithFileFetcher(fileFetcher), WithSpiderOptions(spiderOpts...), WithDownloadOptions(downloadOpts...)),
		NewReportStep(WithMarkdown(cfg.MarkdownReport), WithSummary(out.Summary, cfg.Verbose, out.Color)),
	)
	if cfg.SaveToDB {
		p.AddStep(NewHistoryStep(cfg.DBDir))
	}
	return p, nil
}

// hostOf returns the lowercase host[:port] of target, or "" if it has none.
func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
