package artificer

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func importNotion(t *testing.T, input string, opts ImportOptions) *ConvertedDocument {
	t.Helper()
	doc, err := NewNotionImporter().Import(context.Background(), []byte(input), opts)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return doc
}

func TestNotionDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"page object", `{"object":"page","id":"x"}`, true},
		{"results shape", `{"results":[]}`, true},
		{"bare typed block", `{"type":"paragraph","paragraph":{}}`, true},
		{"block array", `[{"object":"block","type":"paragraph"}]`, true},
		{"typed array", `[{"type":"heading_1"}]`, true},
		{"empty array", `[]`, false},
		{"plain json", `{"foo":1}`, false},
		{"scalar array", `[1,2,3]`, false},
		{"invalid json", `{oops`, false},
		{"prose", "hello there", false},
	}
	imp := NewNotionImporter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imp.Detect([]byte(tt.input)); got != tt.want {
				t.Errorf("Detect(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

const notionPageJSON = `{
	"object": "page",
	"id": "page-1",
	"created_time": "2024-01-02T03:04:05Z",
	"last_edited_time": "2024-02-03T04:05:06Z",
	"url": "https://notion.so/page-1",
	"properties": {
		"Name": {"type": "title", "title": [{"plain_text": "My Page"}]}
	},
	"children": [
		{"object": "block", "type": "heading_1", "heading_1": {"rich_text": [{"plain_text": "Intro"}]}},
		{"object": "block", "type": "paragraph", "paragraph": {"rich_text": [
			{"plain_text": "Hello "},
			{"plain_text": "world", "annotations": {"bold": true}}
		]}}
	]
}`

func TestNotionImportPage(t *testing.T) {
	doc := importNotion(t, notionPageJSON, ImportOptions{})

	if doc.Metadata.Title != "My Page" || doc.Metadata.SourceID != "page-1" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.Metadata.CreatedAt != "2024-01-02T03:04:05Z" || doc.Metadata.UpdatedAt != "2024-02-03T04:05:06Z" {
		t.Errorf("timestamps = %q / %q", doc.Metadata.CreatedAt, doc.Metadata.UpdatedAt)
	}
	if doc.Metadata.Source != "notion" {
		t.Errorf("source = %q", doc.Metadata.Source)
	}
	if doc.Metadata.Extra != nil {
		t.Errorf("extra without PreserveMetadata = %v", doc.Metadata.Extra)
	}

	if len(doc.Content) != 2 {
		t.Fatalf("block count = %d, want 2", len(doc.Content))
	}
	if b := doc.Content[0]; b.Style != StyleH1 || b.Text() != "Intro" {
		t.Errorf("block 0 = %+v", b)
	}
	b := doc.Content[1]
	if b.Text() != "Hello world" {
		t.Errorf("block 1 text = %q", b.Text())
	}
	if len(b.Children) != 2 {
		t.Fatalf("spans = %+v", b.Children)
	}
	if b.Children[0].Marks != nil {
		t.Errorf("span 0 marks = %v, want none", b.Children[0].Marks)
	}
	if !reflect.DeepEqual(b.Children[1].Marks, []string{MarkStrong}) {
		t.Errorf("span 1 marks = %v, want [strong]", b.Children[1].Marks)
	}
}

func TestNotionPageURLPreserved(t *testing.T) {
	doc := importNotion(t, notionPageJSON, ImportOptions{PreserveMetadata: true})
	if doc.Metadata.Extra["url"] != "https://notion.so/page-1" {
		t.Errorf("extra = %v, want page url kept", doc.Metadata.Extra)
	}
}

func TestNotionImportShapes(t *testing.T) {
	para := `{"object": "block", "type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "hi"}]}}`

	tests := []struct {
		name  string
		input string
	}{
		{"list response", `{"object": "list", "results": [` + para + `]}`},
		{"bare results", `{"results": [` + para + `]}`},
		{"single block", para},
		{"array", `[` + para + `]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := importNotion(t, tt.input, ImportOptions{})
			if len(doc.Content) != 1 || doc.Content[0].Text() != "hi" {
				t.Errorf("content = %+v, want single paragraph", doc.Content)
			}
		})
	}
}

func TestNotionEmptyArray(t *testing.T) {
	doc := importNotion(t, `[]`, ImportOptions{})
	if doc.Content == nil || len(doc.Content) != 0 {
		t.Errorf("content = %#v, want empty non-nil slice", doc.Content)
	}
}

func TestNotionEmptyParagraphDropped(t *testing.T) {
	input := `[
		{"type": "paragraph", "paragraph": {"rich_text": []}},
		{"type": "divider", "divider": {}}
	]`
	doc := importNotion(t, input, ImportOptions{})
	if len(doc.Content) != 1 || doc.Content[0].Type != TypeDivider {
		t.Errorf("content = %+v, want only the divider", doc.Content)
	}
}

func TestNotionTodo(t *testing.T) {
	input := `[
		{"type": "to_do", "to_do": {"rich_text": [{"plain_text": "Buy milk"}], "checked": false}},
		{"type": "to_do", "to_do": {"rich_text": [{"plain_text": "Ship it"}], "checked": true}}
	]`
	doc := importNotion(t, input, ImportOptions{})

	if len(doc.Content) != 2 {
		t.Fatalf("block count = %d, want 2", len(doc.Content))
	}
	open := doc.Content[0]
	if open.Children[0].Text != "☐ Buy milk" {
		t.Errorf("unchecked text = %q", open.Children[0].Text)
	}
	if open.ListItem != ListBullet || open.Level != 1 {
		t.Errorf("todo list shape = %q level %d", open.ListItem, open.Level)
	}
	if done := doc.Content[1]; done.Children[0].Text != "☑ Ship it" {
		t.Errorf("checked text = %q", done.Children[0].Text)
	}
}

func TestNotionToggleFlattens(t *testing.T) {
	input := `{"type": "toggle", "toggle": {
		"rich_text": [{"plain_text": "Header"}],
		"children": [{"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "Inside"}]}}]
	}}`
	doc := importNotion(t, input, ImportOptions{})

	if len(doc.Content) != 2 {
		t.Fatalf("block count = %d, want header plus child", len(doc.Content))
	}
	if doc.Content[0].Text() != "Header" || doc.Content[0].Style != StyleNormal {
		t.Errorf("block 0 = %+v", doc.Content[0])
	}
	if doc.Content[1].Text() != "Inside" {
		t.Errorf("block 1 = %+v", doc.Content[1])
	}
}

func TestNotionNestedListLevels(t *testing.T) {
	input := `[{"type": "bulleted_list_item", "bulleted_list_item": {
		"rich_text": [{"plain_text": "outer"}],
		"children": [
			{"type": "numbered_list_item", "numbered_list_item": {"rich_text": [{"plain_text": "inner"}]}}
		]
	}}]`
	doc := importNotion(t, input, ImportOptions{})

	if len(doc.Content) != 2 {
		t.Fatalf("block count = %d, want 2", len(doc.Content))
	}
	outer, inner := doc.Content[0], doc.Content[1]
	if outer.ListItem != ListBullet || outer.Level != 1 {
		t.Errorf("outer = %q level %d", outer.ListItem, outer.Level)
	}
	if inner.ListItem != ListNumber || inner.Level != 2 {
		t.Errorf("inner = %q level %d", inner.ListItem, inner.Level)
	}
}

func TestNotionCallout(t *testing.T) {
	withIcon := `{"type": "callout", "callout": {
		"rich_text": [{"plain_text": "Watch out"}],
		"icon": {"type": "emoji", "emoji": "⚠️"}
	}}`
	doc := importNotion(t, withIcon, ImportOptions{})
	b := doc.Content[0]
	if b.Type != TypeCallout || b.CalloutType != "⚠️" || b.Text() != "Watch out" {
		t.Errorf("block = %+v", b)
	}

	noIcon := `{"type": "callout", "callout": {"rich_text": [{"plain_text": "Plain"}]}}`
	doc = importNotion(t, noIcon, ImportOptions{})
	if got := doc.Content[0].CalloutType; got != "note" {
		t.Errorf("callout type = %q, want note fallback", got)
	}
}

func TestNotionCode(t *testing.T) {
	input := `{"type": "code", "code": {
		"rich_text": [{"plain_text": "print(42)"}],
		"language": "python",
		"caption": [{"plain_text": "demo.py"}]
	}}`
	doc := importNotion(t, input, ImportOptions{})
	b := doc.Content[0]
	if b.Type != TypeCode || b.Code != "print(42)" || b.Language != "python" || b.Filename != "demo.py" {
		t.Errorf("block = %+v", b)
	}
}

func TestNotionTablePlaceholder(t *testing.T) {
	input := `{"type": "table", "table": {"table_width": 3, "has_column_header": true}}`
	doc := importNotion(t, input, ImportOptions{})
	b := doc.Content[0]
	if b.Type != TypeTable || b.TableWidth != 3 {
		t.Fatalf("block = %+v", b)
	}
	if len(b.Rows) != 1 || !b.Rows[0].Header || len(b.Rows[0].Cells) != 3 {
		t.Errorf("rows = %+v, want one empty header row", b.Rows)
	}

	input = `{"type": "table", "table": {"table_width": 2}}`
	doc = importNotion(t, input, ImportOptions{})
	if rows := doc.Content[0].Rows; rows != nil {
		t.Errorf("rows without header = %+v, want none", rows)
	}
}

func TestNotionColumnList(t *testing.T) {
	input := `{"type": "column_list", "column_list": {"children": [
		{"type": "column", "column": {"children": [
			{"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "left"}]}}
		]}},
		{"type": "column", "column": {"children": [
			{"type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "right"}]}}
		]}}
	]}}`
	doc := importNotion(t, input, ImportOptions{})

	if len(doc.Content) != 1 {
		t.Fatalf("block count = %d, want 1", len(doc.Content))
	}
	list := doc.Content[0]
	if list.Type != TypeColumnList || len(list.Blocks) != 2 {
		t.Fatalf("column list = %+v", list)
	}
	for i, want := range []string{"left", "right"} {
		col := list.Blocks[i]
		if col.Type != TypeColumn || len(col.Blocks) != 1 || col.Blocks[0].Text() != want {
			t.Errorf("column %d = %+v", i, col)
		}
	}
}

func TestNotionChildPage(t *testing.T) {
	input := `{"object": "block", "id": "blk-9", "type": "child_page", "child_page": {"title": "Sub Page"}}`
	doc := importNotion(t, input, ImportOptions{})
	b := doc.Content[0]
	if b.Type != TypeChildPage || b.PageID != "blk-9" || b.Title != "Sub Page" {
		t.Errorf("block = %+v", b)
	}
}

func TestNotionMediaBlocks(t *testing.T) {
	input := `[
		{"type": "image", "image": {"external": {"url": "https://i.test/a.png"}, "caption": [{"plain_text": "cap"}]}},
		{"type": "video", "video": {"file": {"url": "https://f.test/v.mp4"}}},
		{"type": "file", "file": {"external": {"url": "https://f.test/d.zip"}}},
		{"type": "bookmark", "bookmark": {"url": "https://example.com"}},
		{"type": "link_preview", "link_preview": {"url": "https://preview.test"}},
		{"type": "table_of_contents", "table_of_contents": {}}
	]`
	doc := importNotion(t, input, ImportOptions{})

	want := []struct {
		typ string
		url string
	}{
		{TypeImage, "https://i.test/a.png"},
		{TypeVideo, "https://f.test/v.mp4"},
		{TypeFile, "https://f.test/d.zip"},
		{TypeEmbed, "https://example.com"},
		{TypeLinkPreview, "https://preview.test"},
		{TypeTableOfContents, ""},
	}
	if len(doc.Content) != len(want) {
		t.Fatalf("block count = %d, want %d", len(doc.Content), len(want))
	}
	for i, w := range want {
		b := doc.Content[i]
		if b.Type != w.typ || b.URL != w.url {
			t.Errorf("block %d = type %q url %q, want %q %q", i, b.Type, b.URL, w.typ, w.url)
		}
	}
	if doc.Content[0].Caption != "cap" {
		t.Errorf("image caption = %q", doc.Content[0].Caption)
	}
}

func TestNotionLinks(t *testing.T) {
	input := `{"type": "paragraph", "paragraph": {"rich_text": [
		{"plain_text": "see "},
		{"plain_text": "docs", "href": "https://example.com/docs"}
	]}}`
	doc := importNotion(t, input, ImportOptions{})
	b := doc.Content[0]

	if len(b.MarkDefs) != 1 {
		t.Fatalf("defs = %+v", b.MarkDefs)
	}
	def := b.MarkDefs[0]
	if def.Type != MarkDefLink || def.Href != "https://example.com/docs" {
		t.Errorf("def = %+v", def)
	}
	linked := b.Children[1]
	if len(linked.Marks) != 1 || linked.Marks[0] != def.Key {
		t.Errorf("span marks = %v, want [%s]", linked.Marks, def.Key)
	}
}

func TestNotionAnnotationOrder(t *testing.T) {
	input := `{"type": "paragraph", "paragraph": {"rich_text": [
		{"plain_text": "x", "annotations": {"bold": true, "italic": true, "code": true}}
	]}}`
	doc := importNotion(t, input, ImportOptions{})
	got := doc.Content[0].Children[0].Marks
	want := []string{MarkStrong, MarkEm, MarkCode}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("marks = %v, want %v", got, want)
	}
}

func TestNotionUnknownBlocks(t *testing.T) {
	input := `[{"object": "block", "type": "synced_block", "synced_block": {"synced_from": null}}]`

	doc := importNotion(t, input, ImportOptions{})
	if len(doc.Content) != 0 {
		t.Errorf("content = %+v, want unknown block dropped", doc.Content)
	}

	doc = importNotion(t, input, ImportOptions{PreserveUnknownBlocks: true})
	if len(doc.Content) != 1 {
		t.Fatalf("block count = %d, want 1", len(doc.Content))
	}
	b := doc.Content[0]
	if b.Type != TypeUnrecognized || b.SourceType != "synced_block" {
		t.Errorf("block = %+v", b)
	}
	if !strings.Contains(b.Raw, "synced_block") {
		t.Errorf("raw = %q, want original JSON retained", b.Raw)
	}
}

// Unknown block types that still carry rich_text keep their text rather
// than vanishing.
func TestNotionUnknownTypeRichTextFallback(t *testing.T) {
	input := `[{"object": "block", "type": "template", "template": {"rich_text": [
		{"type": "text", "plain_text": "kept text"}
	]}}]`

	doc := importNotion(t, input, ImportOptions{})
	if len(doc.Content) != 1 {
		t.Fatalf("block count = %d, want text kept as a paragraph", len(doc.Content))
	}
	b := doc.Content[0]
	if b.Type != TypeBlock || b.Style != StyleNormal || b.Text() != "kept text" {
		t.Errorf("block = %+v", b)
	}
}

func TestNotionImportErrors(t *testing.T) {
	imp := NewNotionImporter()
	tests := []struct {
		name  string
		input string
		code  ErrorCode
	}{
		{"invalid json", `{oops`, CodeInvalidJSON},
		{"wrong object shape", `{"foo": 1}`, CodeInvalidFormat},
		{"scalar array", `[1, 2, 3]`, CodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imp.Import(context.Background(), []byte(tt.input), ImportOptions{})
			if err == nil {
				t.Fatal("want error")
			}
			if !IsCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}
