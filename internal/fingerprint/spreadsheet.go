package fingerprint

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor reads document properties and sheet names from
// Office Open XML workbooks.
type SpreadsheetExtractor struct{}

// NewSpreadsheetExtractor creates a SpreadsheetExtractor.
func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{}
}

// Name returns "xlsx".
func (s *SpreadsheetExtractor) Name() string { return "xlsx" }

// Extensions returns the workbook formats excelize can open.
func (s *SpreadsheetExtractor) Extensions() []string {
	return []string{".xlsx", ".xlsm"}
}

// Extract returns creator, lastModifiedBy, title, subject, description,
// created, modified, company, application and a comma separated sheets list.
func (s *SpreadsheetExtractor) Extract(path string) (metadata map[string]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	metadata = make(map[string]string)
	put := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			metadata[key] = value
		}
	}

	props, err := f.GetDocProps()
	if err != nil {
		return nil, err
	}
	put("creator", props.Creator)
	put("lastModifiedBy", props.LastModifiedBy)
	put("title", props.Title)
	put("subject", props.Subject)
	put("description", props.Description)
	put("created", props.Created)
	put("modified", props.Modified)

	// Application properties are optional in the package.
	if app, appErr := f.GetAppProps(); appErr == nil {
		put("company", app.Company)
		put("application", app.Application)
	}

	put("sheets", strings.Join(f.GetSheetList(), ","))
	return metadata, nil
}
