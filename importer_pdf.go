// Copyright 2026 The Artificer Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package artificer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/loferris/artificer-sub004/internal/pdftext"
)

// DefaultMinTextThreshold is the minimum number of extracted text bytes
// below which a PDF is treated as a scanned document.
const DefaultMinTextThreshold = 100

// PdfExtractor supplies positioned text for PDF input and decides when
// that text is too sparse to trust. The built-in extractor runs in
// process via internal/pdftext; callers can inject a different one to
// route extraction through an external service or to change the
// scanned-document policy.
type PdfExtractor interface {
	ExtractText(ctx context.Context, data []byte) (*PdfExtraction, error)
	// NeedsOCR reports whether extraction recovered fewer than minChars
	// characters of usable text, which suggests a scanned document.
	NeedsOCR(extraction *PdfExtraction, minChars int) bool
}

// OCRProvider recognizes text in scanned documents. It is optional:
// without one, an image-only PDF converts to an empty document.
type OCRProvider interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (*OCRResult, error)
}

// OCRResult carries what a provider recovered from a scanned document.
// Only Text feeds the conversion; Confidence and Language surface in
// the document metadata when PreserveMetadata is set.
type OCRResult struct {
	Text       string
	Confidence float64
	Language   string
	Metadata   map[string]string
}

// PdfExtraction is the extractor's view of a document: visual lines per
// page with whatever font information the backend could recover.
type PdfExtraction struct {
	Pages     []PdfPage
	PageCount int
	Metadata  map[string]string
}

// PlainText joins every line of every page.
func (e *PdfExtraction) PlainText() string {
	var sb strings.Builder
	for _, p := range e.Pages {
		for _, l := range p.Lines {
			sb.WriteString(l.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

type PdfPage struct {
	Number int
	Lines  []PdfLine
}

// PdfLine is one visual line. FontSize 0 means the backend had no font
// information for it.
type PdfLine struct {
	Text     string
	FontSize float64
	Bold     bool
}

type defaultPdfExtractor struct{}

func (defaultPdfExtractor) NeedsOCR(e *PdfExtraction, minChars int) bool {
	return len(strings.TrimSpace(e.PlainText())) < minChars
}

func (defaultPdfExtractor) ExtractText(ctx context.Context, data []byte) (*PdfExtraction, error) {
	res, err := pdftext.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	out := &PdfExtraction{PageCount: len(res.Pages), Metadata: res.Metadata}
	for _, p := range res.Pages {
		page := PdfPage{Number: p.Number}
		for _, l := range p.Lines {
			page.Lines = append(page.Lines, PdfLine{Text: l.Text, FontSize: l.FontSize, Bold: l.Bold})
		}
		out.Pages = append(out.Pages, page)
	}
	return out, nil
}

// PdfImporter converts PDF documents. Text-bearing PDFs convert directly;
// when extraction yields less than the configured threshold and an OCR
// provider is available, the importer falls back to OCR. An OCR failure
// degrades to whatever direct text exists rather than failing the import.
type PdfImporter struct {
	extractor        PdfExtractor
	ocr              OCRProvider
	minTextThreshold int
}

// NewPdfImporter creates the importer. A nil extractor selects the
// built-in backend; a nil ocr disables the scanned-document fallback.
func NewPdfImporter(extractor PdfExtractor, ocr OCRProvider, minTextThreshold int) *PdfImporter {
	if extractor == nil {
		extractor = defaultPdfExtractor{}
	}
	if minTextThreshold <= 0 {
		minTextThreshold = DefaultMinTextThreshold
	}
	return &PdfImporter{extractor: extractor, ocr: ocr, minTextThreshold: minTextThreshold}
}

func (*PdfImporter) Name() string { return "pdf" }

func (*PdfImporter) SupportedFormats() []string { return []string{"pdf"} }

func (*PdfImporter) Detect(input []byte) bool {
	if bytes.HasPrefix(input, []byte("%PDF-")) {
		return true
	}
	return strings.HasPrefix(sniffMIME(input), "application/pdf")
}

func (imp *PdfImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	extraction, err := imp.extractor.ExtractText(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	if imp.ocr != nil && imp.extractor.NeedsOCR(extraction, imp.minTextThreshold) {
		res, ocrErr := imp.ocr.ExtractText(ctx, input, "application/pdf")
		if ocrErr == nil && res != nil && strings.TrimSpace(res.Text) != "" {
			return imp.ocrDocument(res, extraction, opts), nil
		}
	}
	return imp.buildDocument(extraction, opts), nil
}

// buildDocument classifies lines into headings and paragraphs by font
// size relative to the dominant body size. Body lines accumulate until a
// sentence boundary, a heading, or the end of the page.
func (imp *PdfImporter) buildDocument(extraction *PdfExtraction, opts ImportOptions) *ConvertedDocument {
	bodySize := bodyFontSize(extraction.Pages)

	var blocks []Block
	var para []string
	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, NewTextBlock(strings.Join(para, " "), StyleNormal))
			para = nil
		}
	}

	for _, page := range extraction.Pages {
		for _, line := range page.Lines {
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			level := pdfHeadingLevel(line.FontSize, bodySize, line.Bold)
			if level == 0 && line.Bold && bodySize > 0 && line.FontSize >= bodySize && len(text) < 80 {
				// Standalone short bold line at body size, e.g. "References".
				level = 4
			}
			if level > 0 {
				flush()
				blocks = append(blocks, NewTextBlock(text, headingStyle(level)))
				continue
			}
			para = append(para, text)
			if endsSentence(text) {
				flush()
			}
		}
		flush()
	}

	if blocks == nil {
		blocks = []Block{}
	}
	return &ConvertedDocument{Content: blocks, Metadata: pdfMetadata(extraction, opts)}
}

func (imp *PdfImporter) ocrDocument(res *OCRResult, extraction *PdfExtraction, opts ImportOptions) *ConvertedDocument {
	var blocks []Block
	for _, para := range strings.Split(SanitizeText(res.Text), "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para == "" {
			continue
		}
		blocks = append(blocks, NewTextBlock(para, StyleNormal))
	}
	if blocks == nil {
		blocks = []Block{}
	}
	meta := pdfMetadata(extraction, opts)
	if opts.PreserveMetadata && (res.Confidence > 0 || res.Language != "") {
		if meta.Extra == nil {
			meta.Extra = map[string]any{}
		}
		if res.Confidence > 0 {
			meta.Extra["ocrConfidence"] = res.Confidence
		}
		if res.Language != "" {
			meta.Extra["ocrLanguage"] = res.Language
		}
	}
	return &ConvertedDocument{Content: blocks, Metadata: meta}
}

func pdfMetadata(extraction *PdfExtraction, opts ImportOptions) DocumentMetadata {
	md := extraction.Metadata
	meta := DocumentMetadata{
		Title:     md["title"],
		Author:    md["author"],
		CreatedAt: md["creationDate"],
		UpdatedAt: md["modDate"],
		Source:    "pdf",
	}
	if opts.PreserveMetadata {
		extra := map[string]any{}
		for _, k := range []string{"subject", "creator", "producer"} {
			if v := md[k]; v != "" {
				extra[k] = v
			}
		}
		if extraction.PageCount > 0 {
			extra["pageCount"] = extraction.PageCount
		}
		if len(extra) > 0 {
			meta.Extra = extra
		}
	}
	return meta
}

// bodyFontSize finds the font size covering the most characters, which
// represents the body text.
func bodyFontSize(pages []PdfPage) float64 {
	weights := map[float64]int{}
	for _, p := range pages {
		for _, l := range p.Lines {
			if l.FontSize > 0 {
				weights[l.FontSize] += len(l.Text)
			}
		}
	}
	var body float64
	best := 0
	for size, w := range weights {
		if w > best {
			best = w
			body = size
		}
	}
	return body
}

// pdfHeadingLevel maps a line's font size ratio against the body size to
// a heading level, 0 for body text.
func pdfHeadingLevel(fontSize, bodySize float64, bold bool) int {
	if bodySize <= 0 || fontSize <= 0 {
		return 0
	}
	ratio := fontSize / bodySize
	switch {
	case ratio >= 2.0:
		return 1
	case ratio >= 1.5:
		return 2
	case ratio >= 1.1:
		if bold {
			return 3
		}
		return 4
	default:
		return 0
	}
}

func endsSentence(text string) bool {
	t := strings.TrimRight(text, ")\"'”’")
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?', ':':
		return true
	}
	return false
}
