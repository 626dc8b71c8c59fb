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
	"context"
	"strings"
	"testing"
)

func importRoam(t *testing.T, input string) *ConvertedDocument {
	t.Helper()
	doc, err := NewRoamImporter().Import(context.Background(), []byte(input), ImportOptions{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return doc
}

func TestRoamDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"page array with children", `[{"title":"Page","children":[{"string":"x"}]}]`, true},
		{"page array with create time", `[{"title":"Page","create-time":1700000000000}]`, true},
		{"single page object", `{"title":"Page","children":[]}`, true},
		{"title alone", `[{"title":"Page"}]`, false},
		{"children without title", `[{"children":[{"string":"x"}]}]`, false},
		{"empty array", `[]`, false},
		{"untyped object array", `[{"foo":1}]`, false},
		{"bare titled object", `{"title":"x"}`, false},
		{"invalid json", `[{`, false},
		{"prose", "notes", false},
	}
	imp := NewRoamImporter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imp.Detect([]byte(tt.input)); got != tt.want {
				t.Errorf("Detect(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoamImportOutline(t *testing.T) {
	input := `[{
		"title": "Daily Notes",
		"create-time": 1700000000000,
		"edit-time": 1700000001000,
		"children": [
			{"string": "First thought", "uid": "a1"},
			{"string": "Second", "uid": "a2", "children": [
				{"string": "Nested", "uid": "a3"}
			]}
		]
	}]`
	doc := importRoam(t, input)

	if doc.Metadata.Title != "Daily Notes" || doc.Metadata.Source != "roam" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.Metadata.CreatedAt != "1700000000000" || doc.Metadata.UpdatedAt != "1700000001000" {
		t.Errorf("timestamps = %q / %q", doc.Metadata.CreatedAt, doc.Metadata.UpdatedAt)
	}

	if len(doc.Content) != 4 {
		t.Fatalf("block count = %d, want title plus 3 nodes", len(doc.Content))
	}
	if b := doc.Content[0]; b.Style != StyleH1 || b.Text() != "Daily Notes" {
		t.Errorf("title block = %+v", b)
	}
	want := []struct {
		text  string
		level int
	}{
		{"First thought", 1},
		{"Second", 1},
		{"Nested", 2},
	}
	for i, w := range want {
		b := doc.Content[i+1]
		if b.ListItem != ListBullet || b.Level != w.level || b.Text() != w.text {
			t.Errorf("node %d = %q item %q level %d, want %+v", i, b.Text(), b.ListItem, b.Level, w)
		}
	}
}

func TestRoamFirstPageOnly(t *testing.T) {
	input := `[
		{"title": "Kept", "children": [{"string": "visible"}]},
		{"title": "Ignored", "children": [{"string": "hidden"}]}
	]`
	doc := importRoam(t, input)

	if doc.Metadata.Title != "Kept" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	for _, b := range doc.Content {
		if strings.Contains(b.Text(), "hidden") {
			t.Errorf("second page leaked into content: %+v", b)
		}
	}
}

func TestRoamSinglePageObject(t *testing.T) {
	doc := importRoam(t, `{"title":"Solo","children":[{"string":"alone"}]}`)

	if doc.Metadata.Title != "Solo" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	if len(doc.Content) != 2 {
		t.Fatalf("block count = %d", len(doc.Content))
	}
	if doc.Content[1].Text() != "alone" {
		t.Errorf("text = %q", doc.Content[1].Text())
	}
}

func TestRoamHeadingNodes(t *testing.T) {
	input := `[{"title": "T", "children": [
		{"string": "Section", "heading": 2},
		{"string": "Sub", "heading": 3}
	]}]`
	doc := importRoam(t, input)

	if b := doc.Content[1]; b.Style != StyleH2 || b.ListItem != "" || b.Text() != "Section" {
		t.Errorf("heading block = %+v", b)
	}
	if b := doc.Content[2]; b.Style != StyleH3 {
		t.Errorf("heading block = %+v", b)
	}
}

func TestRoamTodoDirectives(t *testing.T) {
	tests := []struct {
		name  string
		node  string
		want  string
	}{
		{"bare todo", "{{TODO}} Buy milk", "☐ Buy milk"},
		{"bracketed todo", "{{[TODO]}} Buy milk", "☐ Buy milk"},
		{"page ref todo", "{{[[TODO]]}} Call home", "☐ Call home"},
		{"bare done", "{{DONE}} Ship release", "☑ Ship release"},
		{"bracketed done", "{{[DONE]}} Buy milk", "☑ Buy milk"},
		{"page ref done", "{{[[DONE]]}} Review", "☑ Review"},
		{"no directive", "Just a note", "Just a note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := importRoam(t, `[{"title":"T","children":[{"string":`+jsonString(tt.node)+`}]}]`)
			if len(doc.Content) != 2 {
				t.Fatalf("block count = %d", len(doc.Content))
			}
			if got := doc.Content[1].Text(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoamTodoGlyphStaysPlain(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"{{TODO}} **urgent** fix"}]}]`)
	b := doc.Content[1]
	if got := b.Text(); got != "☐ urgent fix" {
		t.Fatalf("text = %q", got)
	}
	if len(b.Children) == 0 || b.Children[0].Text != "☐ " || len(b.Children[0].Marks) != 0 {
		t.Errorf("glyph span = %+v", b.Children[0])
	}
}

func jsonString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

func TestRoamCodeBlocks(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"` + "```clojure\\n(+ 1 2)\\n```" + `"}]}]`)
	b := doc.Content[1]
	if b.Type != TypeCode || b.Language != "clojure" || b.Code != "(+ 1 2)" {
		t.Errorf("block = %+v", b)
	}

	doc = importRoam(t, `[{"title":"T","children":[{"string":"`+"```\\nx = 1\\n```"+`"}]}]`)
	b = doc.Content[1]
	if b.Language != "" || b.Code != "x = 1" {
		t.Errorf("block = %+v", b)
	}
}

func TestRoamImageNodes(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"![chart](https://img.test/c.png)"}]}]`)
	b := doc.Content[1]
	if b.Type != TypeImage || b.URL != "https://img.test/c.png" || b.Alt != "chart" {
		t.Errorf("block = %+v", b)
	}
}

func TestRoamPageReferences(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"See [[Project Alpha]] today"}]}]`)
	b := doc.Content[1]

	if b.Text() != "See Project Alpha today" {
		t.Errorf("text = %q", b.Text())
	}
	if len(b.MarkDefs) != 1 {
		t.Fatalf("defs = %+v", b.MarkDefs)
	}
	def := b.MarkDefs[0]
	if def.Type != MarkDefWikiLink || def.Target != "Project Alpha" {
		t.Errorf("def = %+v", def)
	}
	if len(b.Children) != 3 || b.Children[1].Marks[0] != def.Key {
		t.Errorf("spans = %+v", b.Children)
	}
}

func TestRoamPageReferenceAlias(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"read [[Project Alpha|the project]]"}]}]`)
	b := doc.Content[1]

	if b.Text() != "read the project" {
		t.Errorf("text = %q", b.Text())
	}
	if len(b.MarkDefs) != 1 {
		t.Fatalf("defs = %+v", b.MarkDefs)
	}
	def := b.MarkDefs[0]
	if def.Target != "Project Alpha" || def.Alias != "the project" {
		t.Errorf("def = %+v", def)
	}
}

func TestRoamBlockReferences(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"((abc123xyz)) is the source"}]}]`)
	b := doc.Content[1]

	// The literal reference text stays visible for unresolved refs.
	if b.Children[0].Text != "((abc123xyz))" {
		t.Errorf("span 0 = %+v", b.Children[0])
	}
	if len(b.MarkDefs) != 1 || b.MarkDefs[0].Type != MarkDefBlockReference || b.MarkDefs[0].Ref != "abc123xyz" {
		t.Errorf("defs = %+v", b.MarkDefs)
	}
}

func TestRoamMarkdownLinks(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"read [docs](https://docs.test/guide) now"}]}]`)
	b := doc.Content[1]

	if b.Text() != "read docs now" {
		t.Errorf("text = %q", b.Text())
	}
	if len(b.MarkDefs) != 1 || b.MarkDefs[0].Type != MarkDefLink || b.MarkDefs[0].Href != "https://docs.test/guide" {
		t.Errorf("defs = %+v", b.MarkDefs)
	}
}

func TestRoamBlockRefOutranksPageRef(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"((uid-1)) and [[Page]]"}]}]`)
	b := doc.Content[1]

	types := map[string]int{}
	for _, d := range b.MarkDefs {
		types[d.Type]++
	}
	if types[MarkDefBlockReference] != 1 || types[MarkDefWikiLink] != 1 {
		t.Errorf("defs = %+v", b.MarkDefs)
	}
}

func TestRoamAttributes(t *testing.T) {
	tests := []struct {
		name, node, attr, value string
	}{
		{"simple", "Status:: In Progress", "Status", "In Progress"},
		{"spaced name", "Due Date:: Friday", "Due Date", "Friday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := importRoam(t, `[{"title":"T","children":[{"string":`+jsonString(tt.node)+`}]}]`)
			b := doc.Content[1]

			if len(b.Children) != 1 || b.Children[0].Text != tt.node {
				t.Fatalf("spans = %+v", b.Children)
			}
			if len(b.MarkDefs) != 1 {
				t.Fatalf("defs = %+v", b.MarkDefs)
			}
			def := b.MarkDefs[0]
			if def.Type != MarkDefAttribute || def.Name != tt.attr || def.Value != tt.value {
				t.Errorf("def = %+v", def)
			}
			if b.Children[0].Marks[0] != def.Key {
				t.Errorf("span marks = %v", b.Children[0].Marks)
			}
		})
	}
}

// Attributes match at token starts only: after punctuation breaks the
// leading run, a space-preceded name:: still counts, but a :: glued to a
// path stays plain text.
func TestRoamAttributeTokenStart(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"Done! Status:: shipped"}]}]`)
	b := doc.Content[1]

	if b.Text() != "Done! Status:: shipped" {
		t.Errorf("text = %q", b.Text())
	}
	if len(b.Children) != 2 || b.Children[0].Text != "Done! " {
		t.Fatalf("spans = %+v", b.Children)
	}
	if len(b.MarkDefs) != 1 || b.MarkDefs[0].Name != "Status" || b.MarkDefs[0].Value != "shipped" {
		t.Errorf("defs = %+v", b.MarkDefs)
	}

	doc = importRoam(t, `[{"title":"T","children":[{"string":"see ns/Status::active today"}]}]`)
	b = doc.Content[1]
	if len(b.MarkDefs) != 0 {
		t.Errorf("defs = %+v, want none for a glued ::", b.MarkDefs)
	}
	if b.Text() != "see ns/Status::active today" {
		t.Errorf("text = %q", b.Text())
	}
}

func TestRoamInlineMarkup(t *testing.T) {
	doc := importRoam(t, `[{"title":"T","children":[{"string":"**bold** and __deep__ and *lean* and _slant_ and ~~gone~~ and ^^hi^^ and `+"`x`"+`"}]}]`)
	b := doc.Content[1]

	if b.Text() != "bold and deep and lean and slant and gone and hi and x" {
		t.Errorf("text = %q", b.Text())
	}
	byText := map[string][]string{}
	for _, s := range b.Children {
		byText[s.Text] = s.Marks
	}
	// Both ** and __ mean bold; single * and _ mean italic.
	if m := byText["bold"]; len(m) != 1 || m[0] != MarkStrong {
		t.Errorf("bold marks = %v", m)
	}
	if m := byText["deep"]; len(m) != 1 || m[0] != MarkStrong {
		t.Errorf("deep marks = %v", m)
	}
	if m := byText["lean"]; len(m) != 1 || m[0] != MarkEm {
		t.Errorf("lean marks = %v", m)
	}
	if m := byText["slant"]; len(m) != 1 || m[0] != MarkEm {
		t.Errorf("slant marks = %v", m)
	}
	if m := byText["gone"]; len(m) != 1 || m[0] != MarkStrike {
		t.Errorf("gone marks = %v", m)
	}
	if m := byText["x"]; len(m) != 1 || m[0] != MarkCode {
		t.Errorf("code marks = %v", m)
	}
	hl := byText["hi"]
	if len(hl) != 1 || IsBuiltinMark(hl[0]) {
		t.Fatalf("highlight marks = %v", hl)
	}
	if len(b.MarkDefs) != 1 || b.MarkDefs[0].Type != MarkDefHighlight {
		t.Errorf("defs = %+v", b.MarkDefs)
	}
}

func TestRoamImportErrors(t *testing.T) {
	imp := NewRoamImporter()
	tests := []struct {
		name  string
		input string
		code  ErrorCode
	}{
		{"invalid json", `[{`, CodeInvalidJSON},
		{"scalar input", `42`, CodeInvalidFormat},
		{"scalar elements", `[1, 2]`, CodeInvalidFormat},
		{"empty export", `[]`, CodeEmptyExport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imp.Import(context.Background(), []byte(tt.input), ImportOptions{})
			if !IsCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRoamUntitledPage(t *testing.T) {
	doc := importRoam(t, `[{"children":[{"string":"only node"}]}]`)
	if len(doc.Content) != 1 {
		t.Fatalf("block count = %d, want 1 (no title block)", len(doc.Content))
	}
	if doc.Content[0].Text() != "only node" {
		t.Errorf("text = %q", doc.Content[0].Text())
	}
	if doc.Metadata.Title != "" {
		t.Errorf("title = %q, want empty", doc.Metadata.Title)
	}
}
