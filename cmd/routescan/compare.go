package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/routescan/internal/config"
	"github.com/nao1215/routescan/internal/database"
	"github.com/nao1215/routescan/internal/model"
	"github.com/nao1215/routescan/internal/report"
	"github.com/spf13/cobra"
)

// sinceLayout is the date format accepted by --since.
const sinceLayout = "2006-01-02"

// NewCompareCmd creates the compare command.
// It diffs runs stored in the history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [host-or-url]",
		Short: "Compare a run with an earlier run of the same site",
		Long: `Compare shows what changed on a site between two stored runs:
- Routes that appeared or disappeared
- Files that appeared or disappeared
- Files whose content changed (different SHA-256)

By default the two latest runs of the host are compared. Runs are stored
by 'routescan scan' unless --no-history was given.

Examples:
  # Compare the latest two runs
  routescan compare example.com

  # A URL works too; only its host is used
  routescan compare https://example.com/

  # List stored runs of a host
  routescan compare --list example.com

  # Compare the latest run with a specific earlier one
  routescan compare --with-scan-id 1b4e28ba-2fa1-11d2-883f-0016d3cca427 example.com

  # Compare the latest run with the first run since a date
  routescan compare --since 2025-01-01 example.com

  # List every host in the database
  routescan compare --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored runs of the specified host")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all hosts in the database")
	cmd.Flags().StringP("with-scan-id", "i", "",
		"Compare with the run of this session ID (use --list to see IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first run on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison in Markdown format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the history database")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	cmd.MarkFlagsMutuallyExclusive("with-scan-id", "since")

	return cmd
}

// compareOptions selects the runs to compare and the output format.
type compareOptions struct {
	withScanID string
	since      string
	json       bool
	markdown   bool
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listTargets, err := flags.GetBool("list-targets")
	if err != nil {
		return err
	}

	// Validate before opening the database so a usage error never
	// creates an empty database file.
	var host string
	if !listTargets {
		if len(args) == 0 {
			return errors.New("host is required (use --list-targets to see stored hosts)")
		}
		host, err = normalizeHost(args[0])
		if err != nil {
			return err
		}
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listTargets {
		return listStoredTargets(ctx, out, db)
	}

	listHistory, err := flags.GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listScanHistory(ctx, out, db, host)
	}

	var opts compareOptions
	if opts.withScanID, err = flags.GetString("with-scan-id"); err != nil {
		return err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return err
	}

	return runComparison(ctx, out, db, host, opts)
}

// normalizeHost accepts a bare host[:port] or a URL and returns the
// lowercase host[:port] under which runs are stored.
func normalizeHost(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return database.HostOf(arg)
	}
	host := strings.ToLower(strings.TrimSuffix(arg, "/"))
	if host == "" || strings.ContainsAny(host, "/?#") {
		return "", fmt.Errorf("invalid host %q", arg)
	}
	return host, nil
}

func listStoredTargets(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	hosts, err := db.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Fprintln(out, "No runs found in the history database.")
		fmt.Fprintln(out, "\nUse 'routescan scan <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Stored hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Fprintf(out, "  - %s\n", host)
	}
	fmt.Fprintln(out, "\nUse 'routescan compare --list <host>' to see the runs of a host.")
	return nil
}

func listScanHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, host string) error {
	history, err := db.History(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", host)
		fmt.Fprintln(out, "\nUse 'routescan scan <url>' to crawl this site.")
		return nil
	}

	fmt.Fprintf(out, "Runs of %s (%d):\n\n", host, len(history))
	fmt.Fprintf(out, "  %-36s  %-19s  %-14s  %6s  %6s  %8s\n", "Scan ID", "Date", "", "Routes", "Files", "Failures")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 98))
	for _, meta := range history {
		scanID := meta.ScanID
		if scanID == "" {
			scanID = "-"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-14s  %6d  %6d  %8d\n",
			scanID,
			meta.ScannedAt.Format(model.ScanDateFormat),
			humanize.Time(meta.ScannedAt),
			meta.TotalRoutes,
			meta.TotalFiles,
			meta.TotalFailures,
		)
	}

	fmt.Fprintln(out, "\nUse 'routescan compare <host>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'routescan compare --with-scan-id <id> <host>' to compare with a specific run.")
	return nil
}

// runComparison diffs the latest run of host against an earlier run
// selected by opts and writes the result to out.
func runComparison(ctx context.Context, out io.Writer, db *database.HistoryDB, host string, opts compareOptions) error {
	latest, err := db.LatestReports(ctx, host, 2)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("no runs found for %s", host)
	}
	newer := latest[0]

	var older *model.Report
	switch {
	case opts.withScanID != "":
		older, err = db.GetReportByScanID(ctx, opts.withScanID)
		if errors.Is(err, database.ErrReportNotFound) {
			return fmt.Errorf("run %s not found", opts.withScanID)
		}
		if err != nil {
			return fmt.Errorf("failed to get run %s: %w", opts.withScanID, err)
		}
		if olderHost, err := database.HostOf(older.ScanInfo.TargetURL); err != nil || olderHost != host {
			return fmt.Errorf("run %s belongs to %s, not %s", opts.withScanID, olderHost, host)
		}
	case opts.since != "":
		older, err = firstReportSince(ctx, db, host, opts.since)
		if err != nil {
			return err
		}
	default:
		if len(latest) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(latest))
		}
		older = latest[1]
	}

	if older.ScanInfo.SessionID != "" && older.ScanInfo.SessionID == newer.ScanInfo.SessionID {
		return errors.New("the selected run is the latest run; nothing to compare")
	}

	diff := model.CompareReports(older, newer)

	var w report.Writer
	switch {
	case opts.json:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}
	_, err = w.WriteDiff(older, newer, diff)
	return err
}

// firstReportSince returns the oldest run of host on or after the date
// given in since.
func firstReportSince(ctx context.Context, db *database.HistoryDB, host, since string) (*model.Report, error) {
	date, err := time.ParseInLocation(sinceLayout, since, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
	}

	history, err := db.History(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}

	// History is newest first.
	for i := len(history) - 1; i >= 0; i-- {
		meta := history[i]
		if meta.ScannedAt.Before(date) {
			continue
		}
		if i == 0 {
			return nil, fmt.Errorf("only one run found since %s; at least 2 runs are required for comparison", since)
		}
		return db.GetReport(ctx, meta.ID)
	}
	return nil, fmt.Errorf("no runs found since %s", since)
}
