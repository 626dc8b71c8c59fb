package artificer

import (
	"context"
	"strings"
)

// PlainTextImporter is the fallback for any textual input no other
// importer claims. Blank-line-separated chunks become normal paragraphs.
type PlainTextImporter struct{}

// NewPlainTextImporter creates a PlainTextImporter.
func NewPlainTextImporter() *PlainTextImporter {
	return &PlainTextImporter{}
}

func (imp *PlainTextImporter) Name() string { return "plaintext" }

func (imp *PlainTextImporter) SupportedFormats() []string { return []string{"txt", "text"} }

func (imp *PlainTextImporter) Detect(input []byte) bool {
	return !looksBinary(input)
}

func (imp *PlainTextImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := SanitizeText(decodeText(input))
	blocks := []Block{}
	for _, chunk := range strings.Split(text, "\n\n") {
		lines := strings.Split(chunk, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(line)
		}
		para := strings.TrimSpace(strings.Join(lines, " "))
		if para == "" {
			continue
		}
		blocks = append(blocks, NewTextBlock(para, StyleNormal))
	}

	return &ConvertedDocument{Content: blocks, Metadata: DocumentMetadata{Source: "plaintext"}}, nil
}
