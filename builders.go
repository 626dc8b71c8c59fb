package artificer

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateKey returns a collision-resistant ephemeral identifier. Keys are
// random, never derived from content: re-running a conversion yields
// different keys, so callers must not treat them as stable across runs.
func GenerateKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewSpan builds a span with a fresh key.
func NewSpan(text string, marks ...string) Span {
	s := Span{Type: TypeSpan, Key: GenerateKey(), Text: text}
	if len(marks) > 0 {
		s.Marks = marks
	}
	return s
}

// NewTextBlock builds a text block holding a single unmarked span.
func NewTextBlock(text, style string) Block {
	if style == "" {
		style = StyleNormal
	}
	return Block{
		Type:     TypeBlock,
		Key:      GenerateKey(),
		Style:    style,
		Children: []Span{NewSpan(text)},
	}
}

// NewCodeBlock builds a code block. Language and filename may be empty.
func NewCodeBlock(code, language, filename string) Block {
	return Block{
		Type:     TypeCode,
		Key:      GenerateKey(),
		Code:     code,
		Language: language,
		Filename: filename,
	}
}

// NewImageBlock builds an image block. Alt and caption may be empty.
func NewImageBlock(url, alt, caption string) Block {
	return Block{
		Type:    TypeImage,
		Key:     GenerateKey(),
		URL:     url,
		Alt:     alt,
		Caption: caption,
	}
}

// NewTableBlock builds a single table block from raw rows, marking the
// first row as the header. Nested tables are not representable; callers
// flatten before building.
func NewTableBlock(rows [][]string) Block {
	b := Block{Type: TypeTable, Key: GenerateKey()}
	for i, cells := range rows {
		b.Rows = append(b.Rows, TableRow{
			Key:    GenerateKey(),
			Cells:  cells,
			Header: i == 0,
		})
	}
	if len(rows) > 0 {
		b.TableWidth = len(rows[0])
	}
	return b
}

// NewCalloutBlock builds a callout block of the given type holding plain
// text.
func NewCalloutBlock(text, calloutType string) Block {
	return Block{
		Type:        TypeCallout,
		Key:         GenerateKey(),
		CalloutType: calloutType,
		Children:    []Span{NewSpan(text)},
	}
}
