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
	"fmt"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarkdownExporter renders a canonical document back to GFM-style
// markdown. Built-in marks and links always render; wiki-links, block
// references, and highlights render their source syntax only under
// PreserveCustomMarks and otherwise degrade to plain text.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a MarkdownExporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

func (e *MarkdownExporter) Name() string { return "markdown" }

func (e *MarkdownExporter) TargetFormat() string { return "markdown" }

func (e *MarkdownExporter) Export(ctx context.Context, doc *ConvertedDocument, opts ExportOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r := &markdownRenderer{opts: opts, counters: map[int]int{}}
	if opts.IncludeMetadata {
		r.writeFrontmatter(doc.Metadata)
	}
	r.renderBlocks(doc.Content)
	return normalizeMarkdown(r.sb.String()), nil
}

// markdownRenderer accumulates output. The list state tracks ordinal
// counters per nesting level so interrupted number lists restart.
type markdownRenderer struct {
	sb       strings.Builder
	opts     ExportOptions
	inList   bool
	counters map[int]int
}

// frontmatterKeyOrder fixes the emission order of recognized metadata
// keys; Extra keys follow alphabetically. Map-ordered YAML emission would
// make output nondeterministic.
var frontmatterKeyOrder = []string{"title", "author", "createdAt", "updatedAt", "tags", "source", "sourceId"}

func (r *markdownRenderer) writeFrontmatter(m DocumentMetadata) {
	fields := m.metadataMap()
	if len(fields) == 0 {
		return
	}

	var keys []string
	for _, k := range frontmatterKeyOrder {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	var extras []string
	for k := range fields {
		if !slices.Contains(frontmatterKeyOrder, k) {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	keys = append(keys, extras...)

	r.sb.WriteString("---\n")
	for _, k := range keys {
		out, err := yaml.Marshal(map[string]any{k: fields[k]})
		if err != nil {
			continue
		}
		r.sb.Write(out)
	}
	r.sb.WriteString("---\n\n")
}

func (r *markdownRenderer) renderBlocks(blocks []Block) {
	for i := range blocks {
		b := &blocks[i]
		isItem := b.Type == TypeBlock && b.ListItem != ""
		if r.inList && !isItem {
			r.sb.WriteString("\n")
			clear(r.counters)
		}
		r.inList = isItem
		r.renderBlock(b)
	}
}

func (r *markdownRenderer) renderBlock(b *Block) {
	switch b.Type {
	case TypeBlock:
		r.renderTextBlock(b)
	case TypeCode:
		fence := codeFence(b.Code)
		r.sb.WriteString(fence + b.Language + "\n")
		r.sb.WriteString(b.Code)
		if !strings.HasSuffix(b.Code, "\n") {
			r.sb.WriteString("\n")
		}
		r.sb.WriteString(fence + "\n\n")
	case TypeImage:
		if b.Caption != "" {
			fmt.Fprintf(&r.sb, "![%s](%s %q)\n\n", b.Alt, b.URL, b.Caption)
		} else {
			fmt.Fprintf(&r.sb, "![%s](%s)\n\n", b.Alt, b.URL)
		}
	case TypeCallout:
		r.renderCallout(b)
	case TypeTable:
		r.renderTable(b)
	case TypeDivider:
		r.sb.WriteString("---\n\n")
	case TypeEmbed, TypeLinkPreview, TypeFile, TypeVideo, TypeAudio:
		if b.URL == "" {
			return
		}
		text := b.Caption
		if text == "" {
			text = b.URL
		}
		fmt.Fprintf(&r.sb, "[%s](%s)\n\n", text, b.URL)
	case TypeColumnList, TypeColumn:
		r.renderBlocks(b.Blocks)
	case TypeChildPage:
		if b.Title == "" {
			return
		}
		if r.opts.PreserveCustomMarks {
			r.sb.WriteString("[[" + b.Title + "]]\n\n")
		} else {
			r.sb.WriteString(b.Title + "\n\n")
		}
	case TypeTableOfContents:
		r.sb.WriteString("[TOC]\n\n")
	case TypeUnrecognized:
		// Raw HTML is legal markdown; anything else has no rendering.
		if b.SourceType == "html" && b.Raw != "" {
			r.sb.WriteString(b.Raw + "\n\n")
		}
	}
}

func (r *markdownRenderer) renderTextBlock(b *Block) {
	inline := r.renderSpans(b)

	if b.ListItem != "" {
		level := b.Level
		if level < 1 {
			level = 1
		}
		indent := strings.Repeat("  ", level-1)
		marker := "- "
		if b.ListItem == ListNumber {
			marker = fmt.Sprintf("%d. ", r.ordinal(level))
		}
		r.sb.WriteString(indent + marker + strings.ReplaceAll(inline, "\n", " ") + "\n")
		return
	}

	switch b.Style {
	case StyleH1, StyleH2, StyleH3, StyleH4, StyleH5, StyleH6:
		hashes := strings.Repeat("#", int(b.Style[1]-'0'))
		r.sb.WriteString(hashes + " " + strings.ReplaceAll(inline, "\n", " ") + "\n\n")
	case StyleBlockquote:
		for _, line := range strings.Split(inline, "\n") {
			r.sb.WriteString("> " + line + "\n")
		}
		r.sb.WriteString("\n")
	default:
		// Backslash breaks: the normalize pass strips trailing spaces, so
		// two-space hard breaks would not survive.
		r.sb.WriteString(strings.ReplaceAll(inline, "\n", "\\\n") + "\n\n")
	}
}

func (r *markdownRenderer) renderCallout(b *Block) {
	kind := b.CalloutType
	if kind == "" {
		kind = "note"
	}
	lines := strings.Split(r.renderSpans(b), "\n")
	r.sb.WriteString("> [!" + kind + "] " + lines[0] + "\n")
	for _, line := range lines[1:] {
		r.sb.WriteString("> " + line + "\n")
	}
	r.sb.WriteString("\n")
}

var tableCellEscaper = strings.NewReplacer("|", "\\|", "\n", " ")

func (r *markdownRenderer) renderTable(b *Block) {
	if len(b.Rows) == 0 {
		return
	}
	width := b.TableWidth
	if width == 0 {
		width = len(b.Rows[0].Cells)
	}
	if width == 0 {
		return
	}

	writeRow := func(cells []string) {
		r.sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = tableCellEscaper.Replace(cells[i])
			}
			r.sb.WriteString(" " + cell + " |")
		}
		r.sb.WriteString("\n")
	}

	writeRow(b.Rows[0].Cells)
	r.sb.WriteString("|")
	for i := 0; i < width; i++ {
		r.sb.WriteString(" --- |")
	}
	r.sb.WriteString("\n")
	for _, row := range b.Rows[1:] {
		writeRow(row.Cells)
	}
	r.sb.WriteString("\n")
}

func (r *markdownRenderer) renderSpans(b *Block) string {
	defs := make(map[string]*MarkDef, len(b.MarkDefs))
	for i := range b.MarkDefs {
		defs[b.MarkDefs[i].Key] = &b.MarkDefs[i]
	}
	var sb strings.Builder
	for _, span := range b.Children {
		sb.WriteString(r.renderSpan(span, defs))
	}
	return sb.String()
}

func (r *markdownRenderer) renderSpan(span Span, defs map[string]*MarkDef) string {
	text := span.Text
	has := func(mark string) bool {
		return slices.Contains(span.Marks, mark)
	}
	if text != "" {
		if has(MarkCode) {
			text = "`" + text + "`"
		}
		if has(MarkEm) {
			text = "*" + text + "*"
		}
		if has(MarkStrong) {
			text = "**" + text + "**"
		}
		if has(MarkStrike) {
			text = "~~" + text + "~~"
		}
		if has(MarkUnderline) {
			text = "<u>" + text + "</u>"
		}
	}

	for _, m := range span.Marks {
		if IsBuiltinMark(m) {
			continue
		}
		def := defs[m]
		if def == nil {
			continue
		}
		switch def.Type {
		case MarkDefLink:
			text = "[" + text + "](" + def.Href + ")"
		case MarkDefWikiLink:
			if !r.opts.PreserveCustomMarks {
				break
			}
			if def.Alias != "" {
				text = "[[" + def.Target + "|" + def.Alias + "]]"
			} else {
				text = "[[" + def.Target + "]]"
			}
		case MarkDefBlockReference:
			if r.opts.PreserveCustomMarks && def.Ref != "" {
				text = "((" + def.Ref + "))"
			}
		case MarkDefHighlight:
			if r.opts.PreserveCustomMarks {
				text = "==" + text + "=="
			}
		case MarkDefAttribute:
			// The span text already carries the name:: value syntax.
		}
	}
	return text
}

// ordinal advances the number-list counter for level, resetting any
// deeper levels so a new sublist restarts at 1.
func (r *markdownRenderer) ordinal(level int) int {
	for l := range r.counters {
		if l > level {
			delete(r.counters, l)
		}
	}
	r.counters[level]++
	return r.counters[level]
}

// codeFence returns a backtick fence one longer than the longest backtick
// run in code, with the usual minimum of three.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, c := range code {
		if c == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if longest < 2 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}
