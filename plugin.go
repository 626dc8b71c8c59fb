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

import "context"

// ImporterPlugin is the interface all format importers implement.
type ImporterPlugin interface {
	// Name identifies the plugin inside a Registry.
	Name() string

	// SupportedFormats lists the format labels the importer understands.
	SupportedFormats() []string

	// Detect reports whether the importer recognizes the raw input. It is
	// a pure content sniff: heuristic, side-effect free, and must not
	// retain the slice.
	Detect(input []byte) bool

	// Import converts raw input into a canonical document. The returned
	// document is owned by the caller; the importer retains no reference
	// after Import returns.
	Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error)
}

// ExporterPlugin is the interface all exporters implement.
type ExporterPlugin interface {
	Name() string

	// TargetFormat is the format label Registry.Export dispatches on.
	TargetFormat() string

	Export(ctx context.Context, doc *ConvertedDocument, opts ExportOptions) (string, error)
}

// ImportOptions configures a single import call.
type ImportOptions struct {
	// Importer names the plugin to use, bypassing detection. Empty means
	// auto-detect.
	Importer string

	// PreserveUnknownBlocks emits source nodes with no canonical mapping
	// as "unrecognized" blocks instead of skipping them.
	PreserveUnknownBlocks bool

	// PreserveMetadata keeps non-canonical source metadata fields in
	// Metadata.Extra. When false only the recognized fields survive.
	PreserveMetadata bool

	// IncludeSourceMap asks for block positions. Only honored by
	// importers whose source format carries position info.
	IncludeSourceMap bool

	// ContinueOnError keeps the import going when a single node fails to
	// convert: the error goes to OnError and the node is skipped. When
	// false (the default) the first node error aborts the import. Only
	// the markdown importer has node-level failures; JSON importers are
	// all-or-nothing per call.
	ContinueOnError bool

	// OnError receives node conversion errors under ContinueOnError.
	OnError func(err error, blk BlockContext)
}

// BlockContext identifies the source node that failed during a lenient
// import.
type BlockContext struct {
	BlockIndex int
	Block      any
}

// ExportOptions configures a single export call.
type ExportOptions struct {
	// Format selects the exporter when dispatching through a Registry.
	// Empty selects json, the canonical encoding.
	Format string

	// PreserveCustomMarks renders wiki-links, block references,
	// attributes, and highlights in their source syntax. When false they
	// degrade to plain text; built-in marks and links always render.
	PreserveCustomMarks bool

	// IncludeMetadata emits document metadata (frontmatter for markdown,
	// a wrapping object for JSON).
	IncludeMetadata bool

	// PrettyPrint indents JSON output.
	PrettyPrint bool
}

// ConvertedDocument is the result of an import: an ordered flat block
// array plus metadata and, when requested and available, a source map.
type ConvertedDocument struct {
	Content   []Block          `json:"content"`
	Metadata  DocumentMetadata `json:"metadata"`
	SourceMap SourceMap        `json:"sourceMap,omitempty"`
}

// SourceMap maps output blocks back to positions in the original text.
// Entries appear in document order but are neither contiguous nor
// exhaustive: blocks from JSON-based formats have no entry.
type SourceMap []SourceMapEntry

// SourceMapEntry binds one output block key to the source position of the
// node it came from.
type SourceMapEntry struct {
	BlockKey     string `json:"blockKey"`
	Line         int    `json:"line"`   // 1-indexed
	Column       int    `json:"column"` // 0-indexed
	Length       int    `json:"length"` // byte length
	OriginalType string `json:"originalType"`
}

// reportNodeError applies the per-node error policy: strict mode returns
// the error untouched, lenient mode hands it to OnError and skips the
// node.
func reportNodeError(opts ImportOptions, index int, node any, err error) error {
	if !opts.ContinueOnError {
		return err
	}
	if opts.OnError != nil {
		opts.OnError(err, BlockContext{BlockIndex: index, Block: node})
	}
	return nil
}
