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

	"github.com/xuri/excelize/v2"
)

// XlsxImporter converts XLSX workbooks. Each non-empty sheet becomes a
// heading followed by a table block with the first row as the header.
type XlsxImporter struct{}

// NewXlsxImporter creates an XlsxImporter.
func NewXlsxImporter() *XlsxImporter {
	return &XlsxImporter{}
}

func (imp *XlsxImporter) Name() string { return "xlsx" }

func (imp *XlsxImporter) SupportedFormats() []string { return []string{"xlsx"} }

func (imp *XlsxImporter) Detect(input []byte) bool {
	return strings.HasPrefix(sniffMIME(input), "application/vnd.openxmlformats-officedocument.spreadsheetml")
}

func (imp *XlsxImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	meta := DocumentMetadata{Source: "xlsx"}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		meta.Title = props.Title
		meta.Author = props.Creator
		meta.CreatedAt = props.Created
		meta.UpdatedAt = props.Modified
	}

	blocks := []Block{}
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		blocks = append(blocks, NewTextBlock(sheet, StyleH2))
		blocks = append(blocks, NewTableBlock(rows))
	}

	return &ConvertedDocument{Content: blocks, Metadata: meta}, nil
}
