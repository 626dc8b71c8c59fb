// Package pdftext extracts positioned text from PDF data. Two backends
// implement Extract behind build tags: the default runs PDFium through a
// WebAssembly instance pool, and the nopdfium tag selects a pure-Go
// reader with no native or wasm runtime.
package pdftext

import "strings"

// Result is the extracted text of a whole document.
type Result struct {
	Pages    []Page
	Metadata map[string]string
}

// PlainText joins every line of every page.
func (r *Result) PlainText() string {
	var sb strings.Builder
	for _, p := range r.Pages {
		for _, l := range p.Lines {
			sb.WriteString(l.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Page holds the visual lines of one page, top to bottom.
type Page struct {
	Number int
	Lines  []Line
}

// Line is one visual line of text. FontSize is the dominant size on the
// line, 0 when the backend has no font information for it.
type Line struct {
	Text     string
	FontSize float64
	Bold     bool
}

// boldFont reports whether a font name suggests bold weight.
func boldFont(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "bold") ||
		strings.Contains(lower, "medi") ||
		strings.HasSuffix(lower, "bd")
}

// documentInfoKeys maps PDF document info dictionary tags to the neutral
// metadata keys callers see.
var documentInfoKeys = map[string]string{
	"Title":        "title",
	"Author":       "author",
	"Subject":      "subject",
	"Creator":      "creator",
	"Producer":     "producer",
	"CreationDate": "creationDate",
	"ModDate":      "modDate",
}
