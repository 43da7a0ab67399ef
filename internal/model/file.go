package model

// FileRecord describes one successfully persisted resource.
// A record is created at most once per distinct locator and is never
// updated after creation.
type FileRecord struct {
	// URL is the absolute locator the resource was downloaded from.
	URL string `json:"url"`

	// Category is the classification derived from the URL's extension.
	Category Category `json:"category"`

	// ContentType is the Content-Type header of the download response.
	ContentType string `json:"content_type"`

	// FilePath is where the resource was written.
	FilePath string `json:"file_path"`

	// Hash is the hex SHA-256 digest of the persisted content.
	Hash string `json:"hash"`

	// Size is the size of the persisted artifact in bytes.
	Size int64 `json:"size"`

	// Metadata holds content metadata (EXIF tags, document properties).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Failure records a locator that could not be processed.
type Failure struct {
	// URL is the locator that failed.
	URL string `json:"url"`

	// Kind classifies the failure (network, http, parse, filesystem).
	Kind FailureKind `json:"kind"`

	// Message is the human-readable cause.
	Message string `json:"message"`
}
