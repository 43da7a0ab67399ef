package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/routescan/internal/config"
	"github.com/nao1215/routescan/internal/log"
	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/pipeline"
	"github.com/nao1215/routescan/internal/transport"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Crawl a web site and download every file it links to",
		Long: `Scan crawls each target breadth-first without leaving its origin.

For every target a session directory <output>/<host>_<timestamp>/ is created.
It holds one directory per file category (images, docs, scripts, ...) and a
reports directory with report.json, report.html and scan.log.

Pressing Ctrl+C stops the crawl; files already downloading are finished or
abandoned and the report is still written with everything found so far.

Examples:
  # Crawl a single site
  routescan scan https://example.com/

  # Crawl several sites, two at a time
  routescan scan -b 2 https://example.com/ https://example.org/

  # Larger page budget and more download workers
  routescan scan -p 1000 -w 10 https://example.com/

  # Route all traffic through a SOCKS5 proxy
  routescan scan --proxy 127.0.0.1:9050 https://example.com/

  # Start an embedded Tor daemon and crawl an onion service
  routescan scan --tor http://exampleonion.onion/

Configuration file (.routescan) example:
  defaults:
    ignorePatterns: ["/logout"]
  sites:
    example.com:
      maxPages: 500
      headers:
        Cookie: "session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behavior
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to visit per target")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent file downloads per target")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page fetch")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout for each file download")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets crawled concurrently")

	// Transport
	cmd.Flags().String("proxy", "",
		"Route all requests through a SOCKS5 proxy (host:port)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route all requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Storage and output
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Storage root under which session directories are created")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .routescan in current or home directory)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Also write reports/report.md")
	cmd.Flags().Bool("no-metadata", false,
		"Do not extract metadata from downloaded files")
	cmd.Flags().Bool("no-history", false,
		"Do not store reports in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")
	cmd.Flags().Bool("color", false,
		"Colorize the console summary")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	colored, err := cmd.Flags().GetBool("color")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, pipeline.Outputs{
		Log:     cmd.ErrOrStderr(),
		Summary: cmd.OutOrStdout(),
		Color:   colored,
	})
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = flags.GetDuration("download-timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}

	noMetadata, err := flags.GetBool("no-metadata")
	if err != nil {
		return nil, err
	}
	cfg.ExtractMetadata = !noMetadata

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)

	// An explicitly named file must exist; otherwise a missing file just
	// means no site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Targets = args
	return cfg, nil
}

// runScan crawls every target in cfg. Per-target failures are reported
// and do not stop the other targets; an error is returned if any target
// could not be scanned at all.
func runScan(ctx context.Context, cfg *config.Config, out pipeline.Outputs) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more URLs as arguments)")
	}

	logger := log.NewScanLogger(out.Log, nil, cfg.Verbose)
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"batch", cfg.BatchSize,
		"history", cfg.SaveToDB,
	)

	proxyAddress := cfg.ProxyAddress
	if proxyAddress != "" {
		if err := transport.CheckProxy(ctx, proxyAddress).Error(); err != nil {
			return fmt.Errorf("proxy check failed for %s: %w", proxyAddress, err)
		}
		logger.Info("proxy connection verified", "address", proxyAddress)
	}

	if cfg.UseTor {
		embeddedTor, err := startEmbeddedTor(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		proxyAddress = embeddedTor.SocksAddr()
	}

	bp := pipeline.NewBatchProcessor(
		func(target string) (*pipeline.Pipeline, error) {
			return pipeline.DefaultPipeline(cfg, target, proxyAddress, out, pipeline.WithLogger(logger))
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	summary := out.Summary
	if summary == nil {
		summary = io.Discard
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	start := time.Now()
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(scan *model.Scan, index int) {
		mu.Lock()
		defer mu.Unlock()

		if scan.Session == nil {
			failed = append(failed, scan.Target)
			fmt.Fprintf(summary, "[%d/%d] %s: scan failed: %v\n", index+1, len(cfg.Targets), scan.Target, scan.Err())
			return
		}
		status := "done"
		if scan.Cancelled {
			status = "interrupted, partial report written"
		}
		fmt.Fprintf(summary, "[%d/%d] %s: %s (%s)\n", index+1, len(cfg.Targets), scan.Target, status, scan.Session.Dir)
	})
	logger.Info("all targets processed", "elapsed", time.Since(start).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d targets could not be scanned", len(failed), len(cfg.Targets))
	}
	return nil
}

// startEmbeddedTor starts an embedded Tor daemon and verifies that its
// SOCKS port answers.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*transport.EmbeddedTor, error) {
	logger.Info("starting embedded Tor daemon; bootstrapping can take a few minutes")

	embeddedTor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embeddedTor.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	if err := transport.CheckProxy(ctx, embeddedTor.SocksAddr()).Error(); err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("embedded Tor proxy check failed: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socks", embeddedTor.SocksAddr(),
		"control", embeddedTor.ControlAddr(),
	)
	return embeddedTor, nil
}
