package report

import (
	"slices"
	"time"

	"github.com/nao1215/routescan/internal/model"
)

// Build aggregates the results of one run into a Report. It has no side
// effects; an empty crawl yields a valid report with empty lists.
//
// Routes are deduplicated and sorted, files are sorted by URL.
func Build(sess *model.Session, routes []string, files []model.FileRecord, failures []model.Failure, duration time.Duration) *model.Report {
	return buildAt(time.Now(), sess, routes, files, failures, duration)
}

func buildAt(now time.Time, sess *model.Session, routes []string, files []model.FileRecord, failures []model.Failure, duration time.Duration) *model.Report {
	sortedRoutes := slices.Clone(routes)
	slices.Sort(sortedRoutes)
	sortedRoutes = slices.Compact(sortedRoutes)
	if sortedRoutes == nil {
		sortedRoutes = []string{}
	}

	sortedFiles := slices.Clone(files)
	if sortedFiles == nil {
		sortedFiles = []model.FileRecord{}
	}
	model.SortFiles(sortedFiles)

	info := model.ScanInfo{
		ScanDate:    now.Format(model.ScanDateFormat),
		Duration:    model.FormatDuration(duration),
		TotalRoutes: len(sortedRoutes),
		TotalFiles:  len(sortedFiles),
	}
	if sess != nil {
		info.TargetURL = sess.Target
		info.SessionID = sess.ID
		info.OutputDir = sess.Dir
	}

	return &model.Report{
		ScanInfo: info,
		Routes:   sortedRoutes,
		Files:    sortedFiles,
		Failures: slices.Clone(failures),
	}
}
