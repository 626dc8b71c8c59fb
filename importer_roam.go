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
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// RoamImporter converts Roam Research JSON exports into canonical blocks.
// A Roam export is a page object or an array of pages, each page an outline
// of nested nodes; for arrays only the first page is converted. The page
// title becomes an h1 and every outline node becomes a bullet list item,
// except nodes the export marks as headings.
type RoamImporter struct{}

func NewRoamImporter() *RoamImporter { return &RoamImporter{} }

func (*RoamImporter) Name() string { return "roam" }

func (*RoamImporter) SupportedFormats() []string { return []string{"roam"} }

// roamProbe checks for the page shape: a title plus either children or a
// create-time stamp. Title alone is too weak a signal; other exports carry
// titled objects too.
type roamProbe struct {
	Title      string          `json:"title"`
	CreateTime json.RawMessage `json:"create-time"`
	Children   json.RawMessage `json:"children"`
}

func (p roamProbe) looksLikePage() bool {
	return p.Title != "" && (p.Children != nil || p.CreateTime != nil)
}

func (*RoamImporter) Detect(input []byte) bool {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '[':
		var pages []roamProbe
		if json.Unmarshal(trimmed, &pages) != nil || len(pages) == 0 {
			return false
		}
		return pages[0].looksLikePage()
	case '{':
		var page roamProbe
		if json.Unmarshal(trimmed, &page) != nil {
			return false
		}
		return page.looksLikePage()
	}
	return false
}

func (imp *RoamImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(input)

	var syntax any
	if err := json.Unmarshal(trimmed, &syntax); err != nil {
		return nil, &ConversionError{
			Code:    CodeInvalidJSON,
			Message: "input is not valid JSON",
			Err:     err,
		}
	}

	var page roamPage
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var pages []roamPage
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "array elements are not roam pages",
				Err:     err,
			}
		}
		if len(pages) == 0 {
			return nil, newError(CodeEmptyExport, "roam export contains no pages")
		}
		// Multi-page exports are not merged; the first page wins.
		page = pages[0]
	case len(trimmed) > 0 && trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "object is not a roam page",
				Err:     err,
			}
		}
	default:
		return nil, newError(CodeInvalidFormat, "roam export must be a page object or an array of pages")
	}
	c := &roamConversion{}
	if page.Title != "" {
		c.blocks = append(c.blocks, NewTextBlock(page.Title, StyleH1))
	}
	for _, n := range page.Children {
		c.convertNode(n, 2)
	}

	meta := DocumentMetadata{Title: page.Title, Source: "roam"}
	if page.CreateTime > 0 {
		meta.CreatedAt = strconv.FormatInt(page.CreateTime, 10)
	}
	if page.EditTime > 0 {
		meta.UpdatedAt = strconv.FormatInt(page.EditTime, 10)
	}

	if c.blocks == nil {
		c.blocks = []Block{}
	}
	return &ConvertedDocument{Content: c.blocks, Metadata: meta}, nil
}

type roamPage struct {
	Title      string     `json:"title"`
	CreateTime int64      `json:"create-time"`
	EditTime   int64      `json:"edit-time"`
	Children   []roamNode `json:"children"`
}

type roamNode struct {
	String   string     `json:"string"`
	UID      string     `json:"uid"`
	Heading  int        `json:"heading"`
	Children []roamNode `json:"children"`
}

type roamConversion struct {
	blocks []Block
}

var reRoamImage = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)\)$`)

// convertNode flattens one outline node. level starts at 2 for the page's
// direct children so the emitted list nesting starts at 1; the page title
// itself occupies level 1.
func (c *roamConversion) convertNode(n roamNode, level int) {
	text := n.String
	switch {
	case strings.HasPrefix(text, "```"):
		c.blocks = append(c.blocks, roamCodeBlock(text))
	case reRoamImage.MatchString(text):
		m := reRoamImage.FindStringSubmatch(text)
		c.blocks = append(c.blocks, NewImageBlock(m[2], m[1], ""))
	case n.Heading > 0:
		spans, defs := roamSpans(text)
		if len(spans) == 0 {
			spans = []Span{NewSpan("")}
		}
		c.blocks = append(c.blocks, Block{
			Type:     TypeBlock,
			Key:      GenerateKey(),
			Style:    headingStyle(n.Heading),
			Children: spans,
			MarkDefs: defs,
		})
	default:
		glyph, stripped := roamTodoGlyph(text)
		spans, defs := roamSpans(stripped)
		if len(spans) == 0 {
			spans = []Span{NewSpan("")}
		}
		if glyph != "" {
			if len(spans[0].Marks) > 0 {
				spans = append([]Span{NewSpan(glyph)}, spans...)
			} else {
				spans[0].Text = glyph + spans[0].Text
			}
		}
		c.blocks = append(c.blocks, Block{
			Type:     TypeBlock,
			Key:      GenerateKey(),
			Style:    StyleNormal,
			ListItem: ListBullet,
			Level:    max(1, level-1),
			Children: spans,
			MarkDefs: defs,
		})
	}
	for _, child := range n.Children {
		c.convertNode(child, level+1)
	}
}

// roamTodoGlyph strips a leading TODO/DONE directive and returns the
// checkbox glyph that replaces it.
func roamTodoGlyph(text string) (glyph, rest string) {
	directives := []struct {
		prefix string
		glyph  string
	}{
		{"{{[[TODO]]}}", "☐ "},
		{"{{[TODO]}}", "☐ "},
		{"{{TODO}}", "☐ "},
		{"{{[[DONE]]}}", "☑ "},
		{"{{[DONE]}}", "☑ "},
		{"{{DONE}}", "☑ "},
	}
	for _, d := range directives {
		if strings.HasPrefix(text, d.prefix) {
			return d.glyph, strings.TrimLeft(strings.TrimPrefix(text, d.prefix), " ")
		}
	}
	return "", text
}

func roamCodeBlock(text string) Block {
	body := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	language := ""
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// The first line is the language slot; a line with spaces in it is
		// code, not a language.
		if first := strings.TrimSpace(body[:nl]); !strings.ContainsAny(first, " \t") {
			language = first
			body = body[nl+1:]
		}
	}
	return NewCodeBlock(strings.TrimSuffix(body, "\n"), language, "")
}

var reRoamAttribute = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 _-]*)::\s?(.*)$`)

// roamSpans tokenizes Roam markup into spans. The scanner is flat: marked
// runs keep their interior literal instead of nesting, which matches how
// Roam itself treats markup inside references.
func roamSpans(text string) ([]Span, []MarkDef) {
	s := &roamScanner{src: text}
	s.run()
	s.flush()
	return s.spans, s.defs
}

type roamScanner struct {
	src   string
	pos   int
	spans []Span
	defs  []MarkDef

	buf strings.Builder
	cur []string
}

// run consumes tokens in priority order; block references outrank page
// references so ((uid)) never half-matches as a link. Attributes are only
// tried at token starts (start of string or after a space) so a :: inside a
// path or URL never splits the block.
func (s *roamScanner) run() {
	for s.pos < len(s.src) {
		if s.atTokenStart() {
			if m := reRoamAttribute.FindStringSubmatch(s.src[s.pos:]); m != nil {
				s.attribute(m)
				return
			}
		}
		rest := s.src[s.pos:]
		switch {
		case strings.HasPrefix(rest, "(("):
			s.blockRef()
		case strings.HasPrefix(rest, "[["):
			s.pageRef()
		case rest[0] == '[':
			s.mdLink()
		case strings.HasPrefix(rest, "**"):
			s.delimited("**", MarkStrong)
		case strings.HasPrefix(rest, "__"):
			s.delimited("__", MarkStrong)
		case rest[0] == '*':
			s.delimited("*", MarkEm)
		case rest[0] == '_':
			s.delimited("_", MarkEm)
		case rest[0] == '`':
			s.code()
		case strings.HasPrefix(rest, "~~"):
			s.delimited("~~", MarkStrike)
		case strings.HasPrefix(rest, "^^"):
			s.highlight()
		default:
			s.plain()
		}
	}
}

func (s *roamScanner) atTokenStart() bool {
	return s.pos == 0 || s.src[s.pos-1] == ' '
}

// attribute consumes the remainder of the string as a name:: value pair;
// the whole pair stays visible as one span so the text survives rendering.
func (s *roamScanner) attribute(m []string) {
	def := MarkDef{
		Type:  MarkDefAttribute,
		Key:   GenerateKey(),
		Name:  strings.TrimSpace(m[1]),
		Value: strings.TrimSpace(m[2]),
	}
	s.defs = append(s.defs, def)
	s.write(s.src[s.pos:], []string{def.Key})
	s.pos = len(s.src)
}

// blockRef keeps the literal ((uid)) text so unresolved references stay
// visible; the markDef carries the uid for resolvers.
func (s *roamScanner) blockRef() {
	idx := strings.Index(s.src[s.pos+2:], "))")
	if idx <= 0 {
		s.write("(", nil)
		s.pos++
		return
	}
	uid := s.src[s.pos+2 : s.pos+2+idx]
	def := MarkDef{Type: MarkDefBlockReference, Key: GenerateKey(), Ref: uid}
	s.defs = append(s.defs, def)
	s.write(s.src[s.pos:s.pos+2+idx+2], []string{def.Key})
	s.pos += 2 + idx + 2
}

func (s *roamScanner) pageRef() {
	idx := strings.Index(s.src[s.pos+2:], "]]")
	if idx <= 0 {
		s.write("[", nil)
		s.pos++
		return
	}
	inner := s.src[s.pos+2 : s.pos+2+idx]
	target, alias := inner, ""
	if bar := strings.IndexByte(inner, '|'); bar >= 0 {
		target, alias = inner[:bar], inner[bar+1:]
	}
	target = strings.TrimSpace(target)
	alias = strings.TrimSpace(alias)
	if target == "" && alias == "" {
		s.write(s.src[s.pos:s.pos+2+idx+2], nil)
		s.pos += 2 + idx + 2
		return
	}
	def := MarkDef{Type: MarkDefWikiLink, Key: GenerateKey(), Target: target, Alias: alias}
	s.defs = append(s.defs, def)
	display := alias
	if display == "" {
		display = target
	}
	s.write(display, []string{def.Key})
	s.pos += 2 + idx + 2
}

func (s *roamScanner) mdLink() {
	rest := s.src[s.pos:]
	closeBr := matchBracket(rest)
	if closeBr < 0 || closeBr+1 >= len(rest) || rest[closeBr+1] != '(' {
		s.write("[", nil)
		s.pos++
		return
	}
	closeParen := strings.IndexByte(rest[closeBr+2:], ')')
	if closeParen < 0 {
		s.write("[", nil)
		s.pos++
		return
	}
	href := strings.TrimSpace(rest[closeBr+2 : closeBr+2+closeParen])
	def := MarkDef{Type: MarkDefLink, Key: GenerateKey(), Href: href}
	s.defs = append(s.defs, def)
	s.write(rest[1:closeBr], []string{def.Key})
	s.pos += closeBr + 2 + closeParen + 1
}

func (s *roamScanner) delimited(delim, mark string) {
	start := s.pos + len(delim)
	idx := strings.Index(s.src[start:], delim)
	if idx <= 0 {
		s.write(delim, nil)
		s.pos += len(delim)
		return
	}
	s.write(s.src[start:start+idx], []string{mark})
	s.pos = start + idx + len(delim)
}

func (s *roamScanner) highlight() {
	start := s.pos + 2
	idx := strings.Index(s.src[start:], "^^")
	if idx <= 0 {
		s.write("^^", nil)
		s.pos += 2
		return
	}
	def := MarkDef{Type: MarkDefHighlight, Key: GenerateKey()}
	s.defs = append(s.defs, def)
	s.write(s.src[start:start+idx], []string{def.Key})
	s.pos = start + idx + 2
}

func (s *roamScanner) code() {
	idx := strings.IndexByte(s.src[s.pos+1:], '`')
	if idx < 0 {
		s.write("`", nil)
		s.pos++
		return
	}
	if idx > 0 {
		s.write(s.src[s.pos+1:s.pos+1+idx], []string{MarkCode})
	}
	s.pos += idx + 2
}

// plain consumes a run of unmarked text. It yields at word boundaries so
// run can retry the attribute match at the next token start; write merges
// the fragments back into one span.
func (s *roamScanner) plain() {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) && !isRoamSpecial(s.src[s.pos]) {
		if s.src[s.pos-1] == ' ' && s.src[s.pos] != ' ' {
			break
		}
		s.pos++
	}
	s.write(s.src[start:s.pos], nil)
}

func (s *roamScanner) write(text string, marks []string) {
	if text == "" {
		return
	}
	if s.buf.Len() > 0 && !sameMarks(s.cur, marks) {
		s.flush()
	}
	s.cur = marks
	s.buf.WriteString(text)
}

func (s *roamScanner) flush() {
	if s.buf.Len() == 0 {
		return
	}
	s.spans = append(s.spans, Span{
		Type:  TypeSpan,
		Key:   GenerateKey(),
		Text:  s.buf.String(),
		Marks: copyMarks(s.cur),
	})
	s.buf.Reset()
}

func isRoamSpecial(c byte) bool {
	switch c {
	case '(', '[', '*', '_', '~', '^', '`':
		return true
	}
	return false
}
