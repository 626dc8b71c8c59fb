package artificer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"
)

// XlsImporter converts legacy XLS workbooks, one heading and table block
// per non-empty sheet.
type XlsImporter struct{}

// NewXlsImporter creates an XlsImporter.
func NewXlsImporter() *XlsImporter {
	return &XlsImporter{}
}

func (imp *XlsImporter) Name() string { return "xls" }

func (imp *XlsImporter) SupportedFormats() []string { return []string{"xls"} }

func (imp *XlsImporter) Detect(input []byte) bool {
	return strings.HasPrefix(sniffMIME(input), "application/vnd.ms-excel")
}

func (imp *XlsImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// extrame/xls only opens file paths, so the input goes through a temp
	// file.
	tmp, err := os.CreateTemp("", "artificer-*.xls")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(input); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	wb, err := xls.Open(tmpPath, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	blocks := []Block{}
	for i := 0; i < wb.NumSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		var rows [][]string
		maxRow := int(sheet.MaxRow)
		for rowIdx := 0; rowIdx <= maxRow; rowIdx++ {
			row := sheet.Row(rowIdx)
			if row == nil {
				continue
			}
			var cells []string
			lastCol := row.LastCol()
			for colIdx := 0; colIdx < lastCol; colIdx++ {
				cells = append(cells, row.Col(colIdx))
			}
			rows = append(rows, cells)
		}
		if len(rows) == 0 {
			continue
		}

		blocks = append(blocks, NewTextBlock(name, StyleH2))
		blocks = append(blocks, NewTableBlock(rows))
	}

	return &ConvertedDocument{Content: blocks, Metadata: DocumentMetadata{Source: "xls"}}, nil
}
