package model

// Category is a coarse classification bucket for a discovered resource.
// Categories double as directory names under the session storage root.
type Category string

// Known categories. CategoryOther is the catch-all for unlisted extensions.
const (
	CategoryWeb      Category = "web"
	CategoryData     Category = "data"
	CategoryDocs     Category = "docs"
	CategoryImages   Category = "images"
	CategoryConfig   Category = "config"
	CategoryScripts  Category = "scripts"
	CategoryArchives Category = "archives"
	CategoryMedia    Category = "media"
	CategoryFonts    Category = "fonts"
	CategoryOther    Category = "other"
)

// AllCategories returns every category in a stable order, with
// CategoryOther last.
func AllCategories() []Category {
	return []Category{
		CategoryWeb,
		CategoryData,
		CategoryDocs,
		CategoryImages,
		CategoryConfig,
		CategoryScripts,
		CategoryArchives,
		CategoryMedia,
		CategoryFonts,
		CategoryOther,
	}
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}
