// Package classifier maps resource locators to categories by file extension.
package classifier

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/routescan/internal/model"
)

// table is the fixed extension-to-category table, in lookup order.
var table = []struct {
	category   model.Category
	extensions []string
}{
	{model.CategoryWeb, []string{".html", ".htm", ".php", ".asp", ".aspx", ".jsp", ".do"}},
	{model.CategoryData, []string{".xml", ".json", ".csv", ".sql", ".db", ".sqlite"}},
	{model.CategoryDocs, []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".rtf", ".odt"}},
	{model.CategoryImages, []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".ico", ".bmp", ".webp"}},
	{model.CategoryConfig, []string{".env", ".conf", ".config", ".ini", ".yml", ".yaml", ".htaccess"}},
	{model.CategoryScripts, []string{".js", ".py", ".sh", ".bat", ".css", ".jsx", ".ts", ".tsx"}},
	{model.CategoryArchives, []string{".zip", ".rar", ".tar", ".gz", ".7z"}},
	{model.CategoryMedia, []string{".mp4", ".mp3", ".avi", ".mov", ".wmv", ".flv", ".wav"}},
	{model.CategoryFonts, []string{".ttf", ".otf", ".woff", ".woff2", ".eot"}},
}

// byExtension is built from table; the first category listing an
// extension wins.
var byExtension = func() map[string]model.Category {
	m := make(map[string]model.Category)
	for _, row := range table {
		for _, ext := range row.extensions {
			if _, ok := m[ext]; !ok {
				m[ext] = row.category
			}
		}
	}
	return m
}()

// Classify returns the category of locator. Unlisted or missing
// extensions map to model.CategoryOther.
func Classify(locator string) model.Category {
	if c, ok := byExtension[Extension(locator)]; ok {
		return c
	}
	return model.CategoryOther
}

// IsKnown reports whether the extension of locator is in the table.
func IsKnown(locator string) bool {
	_, ok := byExtension[Extension(locator)]
	return ok
}

// Extension returns the lowercase extension of the locator's path
// component including the leading dot, or "" if there is none.
// Query strings and fragments are ignored.
func Extension(locator string) string {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

// Extensions returns the table extensions of c.
func Extensions(c model.Category) []string {
	for _, row := range table {
		if row.category == c {
			out := make([]string, len(row.extensions))
			copy(out, row.extensions)
			return out
		}
	}
	return nil
}
