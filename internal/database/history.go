package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/routescan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "routescan.db"

// storedTimeFormat is the layout of the scanned_at column. It is fixed
// width so that text ordering equals chronological ordering.
const storedTimeFormat = "2006-01-02 15:04:05"

// busyTimeout bounds how long a statement waits for another connection's lock.
const busyTimeout = 10 * time.Second

// ErrReportNotFound is returned when no stored report matches a lookup.
var ErrReportNotFound = errors.New("report not found")

// HistoryDB provides SQLite-based storage for scan reports.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	// Concurrent scans of a batch each open the database to store their
	// report, so writers wait for the lock instead of failing.
	if _, err := db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		_ = db.Close() //nolint:errcheck // already returning an error
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already returning an error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already returning an error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT UNIQUE,
		host TEXT NOT NULL,
		target_url TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		total_routes INTEGER NOT NULL DEFAULT 0,
		total_files INTEGER NOT NULL DEFAULT 0,
		total_failures INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_host ON scans(host);
	CREATE INDEX IF NOT EXISTS idx_scans_scanned_at ON scans(scanned_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// ScanMetadata contains summary information about a stored scan.
// It is used for listing history without loading the full report.
type ScanMetadata struct {
	// ID is the database row ID.
	ID int64

	// ScanID is the session ID of the run, empty for reports without one.
	ScanID string

	// Host is the lowercase host[:port] of the target.
	Host string

	// TargetURL is the URL the crawl started from.
	TargetURL string

	// ScannedAt is when the report was built.
	ScannedAt time.Time

	TotalRoutes   int
	TotalFiles    int
	TotalFailures int
}

// HostOf returns the lowercase host[:port] of target, the key under which
// its scans are stored.
func HostOf(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target %q: %w", target, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid target %q: missing host", target)
	}
	return strings.ToLower(u.Host), nil
}

// SaveReport stores report and returns its row ID.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.Report) (int64, error) {
	host, err := HostOf(report.ScanInfo.TargetURL)
	if err != nil {
		return 0, err
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	scannedAt, err := time.ParseInLocation(model.ScanDateFormat, report.ScanInfo.ScanDate, time.Local)
	if err != nil {
		scannedAt = time.Now()
	}

	scanID := sql.NullString{String: report.ScanInfo.SessionID, Valid: report.ScanInfo.SessionID != ""}

	query := `
	INSERT INTO scans (scan_id, host, target_url, scanned_at, total_routes, total_files, total_failures, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := hdb.db.ExecContext(ctx, query,
		scanID,
		host,
		report.ScanInfo.TargetURL,
		scannedAt.Format(storedTimeFormat),
		report.ScanInfo.TotalRoutes,
		report.ScanInfo.TotalFiles,
		len(report.Failures),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	return result.LastInsertId()
}

// ListTargets returns every host with at least one stored scan, sorted.
func (hdb *HistoryDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT host FROM scans ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}

	return hosts, rows.Err()
}

// History returns the metadata of every scan of host, newest first.
func (hdb *HistoryDB) History(ctx context.Context, host string) ([]ScanMetadata, error) {
	query := `
	SELECT id, scan_id, host, target_url, scanned_at, total_routes, total_files, total_failures
	FROM scans
	WHERE host = ?
	ORDER BY scanned_at DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, strings.ToLower(host))
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanMetadata
	for rows.Next() {
		var (
			meta      ScanMetadata
			scanID    sql.NullString
			scannedAt string
		)
		if err := rows.Scan(&meta.ID, &scanID, &meta.Host, &meta.TargetURL, &scannedAt,
			&meta.TotalRoutes, &meta.TotalFiles, &meta.TotalFailures); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.ScanID = scanID.String
		meta.ScannedAt = parseTimestamp(scannedAt)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetReport returns the report stored under row ID id.
func (hdb *HistoryDB) GetReport(ctx context.Context, id int64) (*model.Report, error) {
	return hdb.queryReport(ctx, `SELECT report_json FROM scans WHERE id = ?`, id)
}

// GetReportByScanID returns the report of the session with the given ID.
func (hdb *HistoryDB) GetReportByScanID(ctx context.Context, scanID string) (*model.Report, error) {
	return hdb.queryReport(ctx, `SELECT report_json FROM scans WHERE scan_id = ?`, scanID)
}

func (hdb *HistoryDB) queryReport(ctx context.Context, query string, arg any) (*model.Report, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, arg).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// LatestReports returns up to n reports of host, newest first.
// Reports that cannot be decoded are skipped.
func (hdb *HistoryDB) LatestReports(ctx context.Context, host string, n int) ([]*model.Report, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `
	SELECT report_json FROM scans
	WHERE host = ?
	ORDER BY scanned_at DESC, id DESC
	LIMIT ?
	`

	rows, err := hdb.db.QueryContext(ctx, query, strings.ToLower(host), n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.Report
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format, in local time.
// It returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
