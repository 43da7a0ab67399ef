package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/routescan/internal/model"
)

// Artifact file names inside a session's reports directory.
const (
	JSONFileName     = "report.json"
	HTMLFileName     = "report.html"
	MarkdownFileName = "report.md"
)

// ArtifactOptions selects the optional artifacts.
type ArtifactOptions struct {
	// Markdown also writes report.md.
	Markdown bool
}

type artifact struct {
	name    string
	newFunc func(f *os.File) Writer
}

// WriteArtifacts writes report.json and report.html (and report.md when
// requested) into dir and returns the written paths.
// Failures are *model.FilesystemError.
func WriteArtifacts(report *model.Report, dir string, opts ArtifactOptions) ([]string, error) {
	artifacts := []artifact{
		{JSONFileName, func(f *os.File) Writer { return NewJSONWriter(f, WithPrettyPrint()) }},
		{HTMLFileName, func(f *os.File) Writer { return NewHTMLWriter(f) }},
	}
	if opts.Markdown {
		artifacts = append(artifacts, artifact{MarkdownFileName, func(f *os.File) Writer { return NewMarkdownWriter(f) }})
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := writeFile(path, report, a.newFunc); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, report *model.Report, newWriter func(f *os.File) Writer) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is built from the session directory
	if err != nil {
		return &model.FilesystemError{Op: "create", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &model.FilesystemError{Op: "close", Path: path, Err: cerr}
		}
	}()

	if _, err := newWriter(f).Write(report); err != nil {
		return &model.FilesystemError{Op: "write", Path: path, Err: fmt.Errorf("render %s: %w", filepath.Base(path), err)}
	}
	return nil
}
