package artificer

import "strings"

// Block _type values. Importers converge on this closed set; anything a
// source format carries that has no mapping becomes TypeUnrecognized so
// dropped content stays observable.
const (
	TypeBlock           = "block"
	TypeSpan            = "span"
	TypeCode            = "code"
	TypeImage           = "image"
	TypeCallout         = "callout"
	TypeEmbed           = "embed"
	TypeTable           = "table"
	TypeFile            = "file"
	TypeVideo           = "video"
	TypeAudio           = "audio"
	TypeDivider         = "divider"
	TypeColumnList      = "columnList"
	TypeColumn          = "column"
	TypeChildPage       = "childPage"
	TypeTableOfContents = "tableOfContents"
	TypeLinkPreview     = "linkPreview"
	TypeUnrecognized    = "unrecognized"
)

// Text styles for _type "block".
const (
	StyleNormal     = "normal"
	StyleH1         = "h1"
	StyleH2         = "h2"
	StyleH3         = "h3"
	StyleH4         = "h4"
	StyleH5         = "h5"
	StyleH6         = "h6"
	StyleBlockquote = "blockquote"
)

// listItem values.
const (
	ListBullet = "bullet"
	ListNumber = "number"
)

// Built-in marks. Spans may carry these without a markDefs entry.
const (
	MarkStrong    = "strong"
	MarkEm        = "em"
	MarkStrike    = "strike"
	MarkCode      = "code"
	MarkUnderline = "underline"
)

// MarkDef _type values. Every span mark outside the built-in set must
// resolve to exactly one markDefs entry whose _key equals the mark.
const (
	MarkDefLink           = "link"
	MarkDefWikiLink       = "wikiLink"
	MarkDefBlockReference = "blockReference"
	MarkDefAttribute      = "attribute"
	MarkDefHighlight      = "highlight"
)

// Block is one canonical content unit. Type discriminates the kind; only
// the field group for that kind is populated. Blocks are value objects:
// created fresh per import call and never mutated after being appended to
// a document.
type Block struct {
	Type string `json:"_type"`
	Key  string `json:"_key"`

	// _type "block" (also the rich-text fields of "callout")
	Style    string    `json:"style,omitempty"`
	ListItem string    `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children,omitempty"`
	MarkDefs []MarkDef `json:"markDefs,omitempty"`

	// _type "code"
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
	Filename string `json:"filename,omitempty"`

	// _type "image", "embed", "file", "video", "audio", "linkPreview"
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`

	// _type "callout"
	CalloutType string `json:"calloutType,omitempty"`

	// _type "table". A Notion table arrives as a placeholder: TableWidth
	// and an empty header row describe the shape, cell contents live in
	// child-fetch API calls this core never sees.
	Rows       []TableRow `json:"rows,omitempty"`
	TableWidth int        `json:"tableWidth,omitempty"`

	// _type "columnList" and "column": nested blocks, the one place the
	// flat array gives way to a two-level structure.
	Blocks []Block `json:"blocks,omitempty"`

	// _type "childPage"
	PageID string `json:"pageId,omitempty"`
	Title  string `json:"title,omitempty"`

	// _type "unrecognized"
	SourceType string `json:"sourceType,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Text returns the block's visible text: the concatenation of its
// children spans in order, marks stripped.
func (b *Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Children {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Span is an inline run of text within a block carrying zero or more marks.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

var builtinMarks = map[string]bool{
	MarkStrong:    true,
	MarkEm:        true,
	MarkStrike:    true,
	MarkCode:      true,
	MarkUnderline: true,
}

// IsBuiltinMark reports whether mark needs no markDefs entry.
func IsBuiltinMark(mark string) bool {
	return builtinMarks[mark]
}

// MarkDef defines a custom mark referenced from span marks. The _key
// doubles as the mark value; the remaining fields depend on Type.
type MarkDef struct {
	Type   string `json:"_type"`
	Key    string `json:"_key"`
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`
	Alias  string `json:"alias,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// TableRow is one row of a table block.
type TableRow struct {
	Key    string   `json:"_key"`
	Cells  []string `json:"cells"`
	Header bool     `json:"header,omitempty"`
}
