// Package session creates the on-disk namespace of a crawl run.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/routescan/internal/model"
)

// TimestampFormat is the timestamp layout used in session directory names.
const TimestampFormat = "20060102_150405"

// maxNameAttempts bounds the suffixes tried when a session directory for the
// same host and second already exists.
const maxNameAttempts = 100

// dirPerm is the permission of every directory created for a session.
const dirPerm = 0o750

// Setup creates root/<host>_<timestamp>/ with one subdirectory per category
// and a reports directory, and returns the new session.
//
// Any failure is returned as *model.FilesystemError. Without a storage root
// nothing can be persisted, so callers treat it as fatal for the target.
func Setup(root, target string, now time.Time) (*model.Session, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid target %q: missing host", target)
	}
	host := strings.ToLower(u.Host)

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, &model.FilesystemError{Op: "create storage root", Path: root, Err: err}
	}

	dir, err := createSessionDir(root, DirName(host, now))
	if err != nil {
		return nil, err
	}

	s := &model.Session{
		ID:        uuid.NewString(),
		Target:    target,
		Host:      host,
		StartedAt: now,
		Dir:       dir,
	}

	for _, c := range model.AllCategories() {
		if err := os.Mkdir(s.CategoryDir(c), dirPerm); err != nil {
			return nil, &model.FilesystemError{Op: "create category dir", Path: s.CategoryDir(c), Err: err}
		}
	}
	if err := os.Mkdir(s.ReportsDir(), dirPerm); err != nil {
		return nil, &model.FilesystemError{Op: "create reports dir", Path: s.ReportsDir(), Err: err}
	}

	return s, nil
}

// DirName returns the session directory name for host at t.
// A port separator is replaced so the name is valid on every platform.
func DirName(host string, t time.Time) string {
	return strings.ReplaceAll(host, ":", "_") + "_" + t.Format(TimestampFormat)
}

// createSessionDir creates root/name, or root/name_N if that already exists.
func createSessionDir(root, name string) (string, error) {
	for i := range maxNameAttempts {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		dir := filepath.Join(root, candidate)

		err := os.Mkdir(dir, dirPerm)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", &model.FilesystemError{Op: "create session dir", Path: dir, Err: err}
		}
	}
	return "", &model.FilesystemError{
		Op:   "create session dir",
		Path: filepath.Join(root, name),
		Err:  fs.ErrExist,
	}
}
