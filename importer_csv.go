package artificer

import (
	"context"
	"encoding/csv"
	"strings"
)

// CsvImporter converts CSV data into a single table block with the first
// record as the header row.
type CsvImporter struct{}

// NewCsvImporter creates a CsvImporter.
func NewCsvImporter() *CsvImporter {
	return &CsvImporter{}
}

func (imp *CsvImporter) Name() string { return "csv" }

func (imp *CsvImporter) SupportedFormats() []string { return []string{"csv"} }

// Detect probes the leading window for at least two records with a
// consistent field count of two or more. Single-column files are left to
// the plaintext importer since they are indistinguishable from prose.
func (imp *CsvImporter) Detect(input []byte) bool {
	if looksBinary(input) {
		return false
	}
	head := input
	if len(head) > 4096 {
		head = head[:4096]
	}
	r := csv.NewReader(strings.NewReader(string(head)))
	r.FieldsPerRecord = 0
	records := 0
	fields := 0
	for records < 4 {
		rec, err := r.Read()
		if err != nil {
			break
		}
		if records == 0 {
			fields = len(rec)
		}
		records++
	}
	return records >= 2 && fields >= 2
}

func (imp *CsvImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(decodeText(input)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &ConversionError{Code: CodeInvalidFormat, Message: "parse csv", Err: err}
	}

	blocks := []Block{}
	if len(records) > 0 {
		blocks = append(blocks, NewTableBlock(records))
	}
	return &ConvertedDocument{Content: blocks, Metadata: DocumentMetadata{Source: "csv"}}, nil
}
