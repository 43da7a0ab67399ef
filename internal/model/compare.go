package model

import "sort"

// ReportDiff describes what changed between two reports of the same target.
type ReportDiff struct {
	// AddedRoutes are routes present only in the newer report.
	AddedRoutes []string `json:"added_routes"`

	// RemovedRoutes are routes present only in the older report.
	RemovedRoutes []string `json:"removed_routes"`

	// AddedFiles are files whose URL is present only in the newer report.
	AddedFiles []FileRecord `json:"added_files"`

	// RemovedFiles are files whose URL is present only in the older report.
	RemovedFiles []FileRecord `json:"removed_files"`

	// ChangedFiles are files present in both reports with a different hash.
	ChangedFiles []FileChange `json:"changed_files"`
}

// FileChange describes a resource whose content changed between runs.
type FileChange struct {
	URL     string `json:"url"`
	OldHash string `json:"old_hash"`
	NewHash string `json:"new_hash"`
	OldSize int64  `json:"old_size"`
	NewSize int64  `json:"new_size"`
}

// HasChanges reports whether the diff is non-empty.
func (d *ReportDiff) HasChanges() bool {
	return len(d.AddedRoutes) > 0 || len(d.RemovedRoutes) > 0 ||
		len(d.AddedFiles) > 0 || len(d.RemovedFiles) > 0 ||
		len(d.ChangedFiles) > 0
}

// CompareReports computes the difference from older to newer.
// All result slices are sorted and never nil.
func CompareReports(older, newer *Report) *ReportDiff {
	diff := &ReportDiff{
		AddedRoutes:   make([]string, 0),
		RemovedRoutes: make([]string, 0),
		AddedFiles:    make([]FileRecord, 0),
		RemovedFiles:  make([]FileRecord, 0),
		ChangedFiles:  make([]FileChange, 0),
	}

	oldRoutes := toSet(older.Routes)
	newRoutes := toSet(newer.Routes)
	for route := range newRoutes {
		if !oldRoutes[route] {
			diff.AddedRoutes = append(diff.AddedRoutes, route)
		}
	}
	for route := range oldRoutes {
		if !newRoutes[route] {
			diff.RemovedRoutes = append(diff.RemovedRoutes, route)
		}
	}
	sort.Strings(diff.AddedRoutes)
	sort.Strings(diff.RemovedRoutes)

	oldFiles := filesByURL(older.Files)
	newFiles := filesByURL(newer.Files)
	for url, nf := range newFiles {
		of, ok := oldFiles[url]
		if !ok {
			diff.AddedFiles = append(diff.AddedFiles, nf)
			continue
		}
		if of.Hash != nf.Hash {
			diff.ChangedFiles = append(diff.ChangedFiles, FileChange{
				URL:     url,
				OldHash: of.Hash,
				NewHash: nf.Hash,
				OldSize: of.Size,
				NewSize: nf.Size,
			})
		}
	}
	for url, of := range oldFiles {
		if _, ok := newFiles[url]; !ok {
			diff.RemovedFiles = append(diff.RemovedFiles, of)
		}
	}
	SortFiles(diff.AddedFiles)
	SortFiles(diff.RemovedFiles)
	sort.Slice(diff.ChangedFiles, func(i, j int) bool {
		return diff.ChangedFiles[i].URL < diff.ChangedFiles[j].URL
	})

	return diff
}

// SortFiles sorts records by URL in place.
func SortFiles(files []FileRecord) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].URL < files[j].URL
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func filesByURL(files []FileRecord) map[string]FileRecord {
	m := make(map[string]FileRecord, len(files))
	for _, f := range files {
		m[f.URL] = f
	}
	return m
}
