// Package database stores the history of scans in SQLite.
//
// Every finished scan is saved as its full JSON report plus a row of
// indexed metadata (host, scan time, totals), so that later runs can be
// listed per host and compared with each other.
//
// The driver is modernc.org/sqlite, a CGO-free SQLite; the database is a
// single file under the user's XDG data directory.
package database
