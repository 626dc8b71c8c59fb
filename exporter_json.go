package artificer

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONExporter emits canonical portable-text JSON. Without
// IncludeMetadata the output is the bare content array; with it the whole
// document object including metadata and any source map. Custom marks
// always round-trip: the canonical encoding is the one place they are
// structural rather than syntactic.
type JSONExporter struct{}

// NewJSONExporter creates a JSONExporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

func (e *JSONExporter) Name() string { return "json" }

func (e *JSONExporter) TargetFormat() string { return "json" }

func (e *JSONExporter) Export(ctx context.Context, doc *ConvertedDocument, opts ExportOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content := doc.Content
	if content == nil {
		content = []Block{}
	}

	var v any = content
	if opts.IncludeMetadata {
		wrapped := *doc
		wrapped.Content = content
		v = &wrapped
	}

	var (
		out []byte
		err error
	)
	if opts.PrettyPrint {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(out), nil
}
