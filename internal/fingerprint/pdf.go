package fingerprint

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf16"
)

// pdfInfoFields matches entries of the PDF document information dictionary.
// Values are either literal strings "(...)" or hex strings "<...>".
var pdfInfoFields = map[string]*regexp.Regexp{
	"author":       regexp.MustCompile(`/Author\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"creator":      regexp.MustCompile(`/Creator\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"producer":     regexp.MustCompile(`/Producer\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"title":        regexp.MustCompile(`/Title\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"subject":      regexp.MustCompile(`/Subject\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"keywords":     regexp.MustCompile(`/Keywords\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"creationDate": regexp.MustCompile(`/CreationDate\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
	"modDate":      regexp.MustCompile(`/ModDate\s*(?:\(((?:[^()\\]|\\.)*)\)|<([0-9A-Fa-f\s]+)>)`),
}

// pdfXMPFields matches the XMP packet embedded by most PDF producers.
var pdfXMPFields = map[string]*regexp.Regexp{
	"xmp_creator":       regexp.MustCompile(`(?s)<dc:creator[^>]*>.*?<rdf:li[^>]*>([^<]+)</rdf:li>`),
	"xmp_tool":          regexp.MustCompile(`xmp:CreatorTool>([^<]+)<`),
	"xmp_producer":      regexp.MustCompile(`pdf:Producer>([^<]+)<`),
	"xmp_documentId":    regexp.MustCompile(`xmpMM:DocumentID>([^<]+)<`),
	"xmp_instanceId":    regexp.MustCompile(`xmpMM:InstanceID>([^<]+)<`),
	"xmp_originalDocId": regexp.MustCompile(`xmpMM:OriginalDocumentID>([^<]+)<`),
}

// pdfEscapes maps PDF literal string escapes to their characters.
var pdfEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
)

// PDFExtractor reads the info dictionary and XMP metadata of PDF files.
// It scans the raw bytes with regular expressions, so compressed object
// streams hide their metadata from it.
type PDFExtractor struct {
	maxFileSize int64
}

// NewPDFExtractor creates a PDFExtractor that skips files above maxFileSize.
func NewPDFExtractor(maxFileSize int64) *PDFExtractor {
	return &PDFExtractor{maxFileSize: maxFileSize}
}

// Name returns "pdf".
func (p *PDFExtractor) Name() string { return "pdf" }

// Extensions returns ".pdf".
func (p *PDFExtractor) Extensions() []string { return []string{".pdf"} }

// Extract returns the metadata fields found in the file.
func (p *PDFExtractor) Extract(path string) (map[string]string, error) {
	data, err := readLimited(path, p.maxFileSize)
	if err != nil {
		return nil, err
	}
	return extractPDF(data), nil
}

func extractPDF(data []byte) map[string]string {
	metadata := make(map[string]string)
	content := string(data)

	for field, pattern := range pdfInfoFields {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		var value string
		if m[1] != "" {
			value = decodePDFLiteral(m[1])
		} else {
			value = decodePDFHex(m[2])
		}
		if value != "" {
			metadata[field] = value
		}
	}

	for field, pattern := range pdfXMPFields {
		if m := pattern.FindStringSubmatch(content); m != nil {
			if value := strings.TrimSpace(m[1]); value != "" {
				metadata[field] = value
			}
		}
	}

	return metadata
}

// decodePDFLiteral decodes a literal string. A UTF-16BE BOM switches to
// UTF-16 decoding.
func decodePDFLiteral(s string) string {
	s = pdfEscapes.Replace(s)
	if strings.HasPrefix(s, "\xfe\xff") {
		return decodeUTF16BE([]byte(s[2:]))
	}
	return strings.TrimSpace(s)
}

// decodePDFHex decodes a hex string, which is UTF-16BE when it starts with
// the FEFF byte order mark and PDFDocEncoding (treated as Latin-1) otherwise.
func decodePDFHex(s string) string {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 == 1 {
		s += "0"
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		return decodeUTF16BE(raw[2:])
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return strings.TrimSpace(string(runes))
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return strings.TrimSpace(string(utf16.Decode(units)))
}
