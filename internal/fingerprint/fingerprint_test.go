package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPDFExtractor(t *testing.T) {
	t.Parallel()

	pdf := "%PDF-1.4\n" +
		"1 0 obj << /Author (Jane \\(ops\\) Doe) /Creator (Microsoft Word) " +
		"/Producer <FEFF004C0069006200720065004F0066006600690063006500> " +
		"/CreationDate (D:20240101120000Z) >> endobj\n" +
		"<x:xmpmeta><xmp:CreatorTool>Writer 7.5</xmp:CreatorTool>" +
		"<xmpMM:DocumentID>uuid:1234-abcd</xmpMM:DocumentID></x:xmpmeta>\n%%EOF"

	path := writeFile(t, "report.pdf", []byte(pdf))
	got, err := NewPDFExtractor(DefaultMaxFileSize).Extract(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"author":         "Jane (ops) Doe",
		"creator":        "Microsoft Word",
		"producer":       "LibreOffice",
		"creationDate":   "D:20240101120000Z",
		"xmp_tool":       "Writer 7.5",
		"xmp_documentId": "uuid:1234-abcd",
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("%s = %q, want %q", key, got[key], value)
		}
	}
	if _, ok := got["title"]; ok {
		t.Errorf("unexpected title %q", got["title"])
	}
}

func TestPDFExtractor_SizeLimit(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "big.pdf", make([]byte, 128))
	_, err := NewPDFExtractor(64).Extract(path)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestDecodePDFHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "FEFF004100420043", want: "ABC"},
		{in: "48 65 6C 6C 6F", want: "Hello"},
		{in: "zz", want: ""},
	}
	for _, tt := range tests {
		if got := decodePDFHex(tt.in); got != tt.want {
			t.Errorf("decodePDFHex(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEXIFExtractor_NoEXIF(t *testing.T) {
	t.Parallel()

	// A JPEG start-of-image marker followed by filler, no APP1 segment.
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xDB}, make([]byte, 64)...)
	path := writeFile(t, "photo.jpg", data)

	got, err := NewEXIFExtractor(DefaultMaxFileSize).Extract(path)
	if err != nil {
		t.Fatalf("an image without EXIF is not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no metadata, got %v", got)
	}
}

func TestSpreadsheetExtractor(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	if _, err := f.NewSheet("Budget"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Creator:        "j.doe",
		LastModifiedBy: "admin",
		Title:          "Q3 numbers",
	}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "budget.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := NewSpreadsheetExtractor().Extract(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["creator"] != "j.doe" || got["lastModifiedBy"] != "admin" || got["title"] != "Q3 numbers" {
		t.Errorf("unexpected document properties: %v", got)
	}
	if got["sheets"] != "Sheet1,Budget" {
		t.Errorf("sheets = %q, want %q", got["sheets"], "Sheet1,Budget")
	}
}

func TestSpreadsheetExtractor_NotAWorkbook(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "fake.xlsx", []byte("not a zip"))
	if _, err := NewSpreadsheetExtractor().Extract(path); err == nil {
		t.Error("expected error for a corrupt workbook")
	}
}

type stubExtractor struct{}

func (stubExtractor) Name() string         { return "stub" }
func (stubExtractor) Extensions() []string { return []string{".txt"} }
func (stubExtractor) Extract(string) (map[string]string, error) {
	return map[string]string{"lines": "3"}, nil
}

func TestFingerprinter(t *testing.T) {
	t.Parallel()

	f := New(WithExtractor(stubExtractor{}))

	t.Run("dispatches by extension, case-insensitively", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "NOTES.TXT", []byte("a\nb\nc\n"))
		got, err := f.Extract(path)
		if err != nil {
			t.Fatal(err)
		}
		if got["lines"] != "3" {
			t.Errorf("expected stub metadata, got %v", got)
		}
	})

	t.Run("unsupported extension yields nil", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "style.css", []byte("body{}"))
		got, err := f.Extract(path)
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
		if f.Supports(path) {
			t.Error("css should not be supported")
		}
	})

	t.Run("empty metadata is nil", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "empty.pdf", []byte("%PDF-1.4\n%%EOF"))
		got, err := f.Extract(path)
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
	})

	t.Run("extractor errors name the extractor", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "broken.xlsx", []byte("nope"))
		_, err := f.Extract(path)
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
