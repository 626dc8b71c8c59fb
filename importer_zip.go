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
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"
)

// ZipImporter unpacks an archive and runs every entry back through the
// registry, splicing the results into one document with a heading per
// file. Entries no importer recognizes are skipped.
type ZipImporter struct {
	registry *Registry
}

// NewZipImporter creates a ZipImporter bound to the registry whose
// importers it dispatches entries to.
func NewZipImporter(registry *Registry) *ZipImporter {
	return &ZipImporter{registry: registry}
}

func (imp *ZipImporter) Name() string { return "zip" }

func (imp *ZipImporter) SupportedFormats() []string { return []string{"zip"} }

// Detect relies on content sniffing rather than the PK signature alone:
// OOXML documents and EPUBs are also zip containers and belong to their
// own importers.
func (imp *ZipImporter) Detect(input []byte) bool {
	return strings.HasPrefix(sniffMIME(input), "application/zip")
}

func (imp *ZipImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, &ConversionError{Code: CodeInvalidFormat, Message: "open zip archive", Err: err}
	}

	sub := opts
	sub.Importer = ""
	sub.IncludeSourceMap = false

	blocks := []Block{}
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() || skipArchiveEntry(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		doc, err := imp.registry.Import(ctx, data, sub)
		if err != nil {
			imp.registry.log().Debug("skipping archive entry", "name", f.Name, "error", err)
			continue
		}
		if len(doc.Content) == 0 {
			continue
		}
		blocks = append(blocks, NewTextBlock("File: "+f.Name, StyleH2))
		blocks = append(blocks, doc.Content...)
	}

	return &ConvertedDocument{Content: blocks, Metadata: DocumentMetadata{Source: "zip"}}, nil
}

// skipArchiveEntry filters archive noise: macOS resource forks and hidden
// files.
func skipArchiveEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}
