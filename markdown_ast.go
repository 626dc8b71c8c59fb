package artificer

import (
	"regexp"
	"strings"
)

// mdPos locates a node in the source text. Lines are 1-indexed, columns are
// 0-indexed byte offsets within the line, and length covers the raw source
// segment including interior newlines.
type mdPos struct {
	line   int
	column int
	length int
}

// mdNode is a block-level markdown node. nodeType feeds the source map's
// originalType field.
type mdNode interface {
	pos() mdPos
	nodeType() string
}

type mdFrontmatter struct {
	raw string
	at  mdPos
}

func (n mdFrontmatter) pos() mdPos       { return n.at }
func (n mdFrontmatter) nodeType() string { return "frontmatter" }

type mdHeading struct {
	level int
	text  string
	at    mdPos
}

func (n mdHeading) pos() mdPos       { return n.at }
func (n mdHeading) nodeType() string { return "heading" }

// mdParagraph keeps interior line breaks in text so the inline pass can
// distinguish hard breaks (trailing double space or backslash) from soft
// ones.
type mdParagraph struct {
	text string
	at   mdPos
}

func (n mdParagraph) pos() mdPos       { return n.at }
func (n mdParagraph) nodeType() string { return "paragraph" }

type mdCodeBlock struct {
	code     string
	language string
	at       mdPos
}

func (n mdCodeBlock) pos() mdPos       { return n.at }
func (n mdCodeBlock) nodeType() string { return "code" }

type mdThematicBreak struct {
	at mdPos
}

func (n mdThematicBreak) pos() mdPos       { return n.at }
func (n mdThematicBreak) nodeType() string { return "thematicBreak" }

// mdBlockquote holds the quoted lines with markers stripped, joined by
// newlines. Callout classification happens during conversion, not here.
type mdBlockquote struct {
	text string
	at   mdPos
}

func (n mdBlockquote) pos() mdPos       { return n.at }
func (n mdBlockquote) nodeType() string { return "blockquote" }

type mdTable struct {
	header []string
	rows   [][]string
	at     mdPos
}

func (n mdTable) pos() mdPos       { return n.at }
func (n mdTable) nodeType() string { return "table" }

type mdImage struct {
	alt   string
	url   string
	title string
	at    mdPos
}

func (n mdImage) pos() mdPos       { return n.at }
func (n mdImage) nodeType() string { return "image" }

type mdListItem struct {
	text    string
	level   int
	ordered bool
	at      mdPos
}

func (n mdListItem) pos() mdPos       { return n.at }
func (n mdListItem) nodeType() string { return "listItem" }

type mdList struct {
	items []mdListItem
	at    mdPos
}

func (n mdList) pos() mdPos       { return n.at }
func (n mdList) nodeType() string { return "list" }

type mdHTMLBlock struct {
	raw string
	at  mdPos
}

func (n mdHTMLBlock) pos() mdPos       { return n.at }
func (n mdHTMLBlock) nodeType() string { return "html" }

var (
	reFence         = regexp.MustCompile("^(`{3,}|~{3,})(.*)$")
	reATXHeading    = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	reClosingHashes = regexp.MustCompile(`[ \t]+#+[ \t]*$`)
	reThematicBreak = regexp.MustCompile(`^ {0,3}(-{3,}|\*{3,}|_{3,})[ \t]*$`)
	reQuoteMarker   = regexp.MustCompile(`^ {0,3}> ?`)
	reListMarker    = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])[ \t]+(.*)$`)
	reTableDelim    = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)
	reImageLine     = regexp.MustCompile(`^!\[([^\]]*)\]\(([^()\s]+)(?:\s+"([^"]*)")?\)[ \t]*$`)
	reHTMLOpen      = regexp.MustCompile(`^ {0,3}<[a-zA-Z!/?]`)
)

// parseMarkdownAST splits sanitized markdown into block-level nodes. The
// parser is line-based: every node records the 1-indexed line it started
// on so positions survive into the source map.
func parseMarkdownAST(src string) []mdNode {
	p := &markdownParser{lines: strings.Split(src, "\n")}
	var nodes []mdNode
	if fm, ok := p.frontmatter(); ok {
		nodes = append(nodes, fm)
	}
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		switch {
		case strings.TrimSpace(line) == "":
			p.i++
		case reFence.MatchString(line):
			nodes = append(nodes, p.codeBlock())
		case reATXHeading.MatchString(line):
			nodes = append(nodes, p.heading())
		case reThematicBreak.MatchString(line):
			nodes = append(nodes, mdThematicBreak{at: p.lineAt(p.i)})
			p.i++
		case reQuoteMarker.MatchString(line):
			nodes = append(nodes, p.blockquote())
		case reListMarker.MatchString(line):
			nodes = append(nodes, p.list())
		case p.tableAhead():
			nodes = append(nodes, p.table())
		case reImageLine.MatchString(line):
			nodes = append(nodes, p.image())
		case reHTMLOpen.MatchString(line):
			nodes = append(nodes, p.htmlBlock())
		default:
			nodes = append(nodes, p.paragraph())
		}
	}
	return nodes
}

type markdownParser struct {
	lines []string
	i     int
}

// frontmatter consumes a YAML frontmatter fence, which must open on the
// very first line. An unterminated fence is not frontmatter and the
// opening line falls through to normal parsing.
func (p *markdownParser) frontmatter() (mdNode, bool) {
	if len(p.lines) == 0 || strings.TrimRight(p.lines[0], " \t") != "---" {
		return nil, false
	}
	for j := 1; j < len(p.lines); j++ {
		t := strings.TrimRight(p.lines[j], " \t")
		if t == "---" || t == "..." {
			raw := strings.Join(p.lines[1:j], "\n")
			at := mdPos{line: 1, column: 0, length: segmentLength(p.lines[:j+1])}
			p.i = j + 1
			return mdFrontmatter{raw: raw, at: at}, true
		}
	}
	return nil, false
}

func (p *markdownParser) heading() mdNode {
	line := p.lines[p.i]
	m := reATXHeading.FindStringSubmatch(line)
	text := strings.TrimSpace(reClosingHashes.ReplaceAllString(m[2], ""))
	n := mdHeading{level: len(m[1]), text: text, at: p.lineAt(p.i)}
	p.i++
	return n
}

func (p *markdownParser) codeBlock() mdNode {
	start := p.i
	m := reFence.FindStringSubmatch(p.lines[p.i])
	fence := m[1]
	language := strings.TrimSpace(m[2])
	if sp := strings.IndexAny(language, " \t"); sp >= 0 {
		language = language[:sp]
	}
	p.i++
	var body []string
	for p.i < len(p.lines) {
		if closesFence(p.lines[p.i], fence) {
			p.i++
			break
		}
		body = append(body, p.lines[p.i])
		p.i++
	}
	return mdCodeBlock{
		code:     strings.Join(body, "\n"),
		language: language,
		at:       p.segment(start),
	}
}

func closesFence(line, fence string) bool {
	t := strings.TrimSpace(line)
	if len(t) < len(fence) || !strings.HasPrefix(t, fence) {
		return false
	}
	return strings.Trim(t, fence[:1]) == ""
}

func (p *markdownParser) blockquote() mdNode {
	start := p.i
	var inner []string
	for p.i < len(p.lines) && reQuoteMarker.MatchString(p.lines[p.i]) {
		inner = append(inner, reQuoteMarker.ReplaceAllString(p.lines[p.i], ""))
		p.i++
	}
	return mdBlockquote{text: strings.Join(inner, "\n"), at: p.segment(start)}
}

func (p *markdownParser) list() mdNode {
	var items []mdListItem
	for p.i < len(p.lines) {
		m := reListMarker.FindStringSubmatch(p.lines[p.i])
		if m == nil {
			break
		}
		indent, marker, text := m[1], m[2], m[3]
		items = append(items, mdListItem{
			text:    text,
			level:   listIndentLevel(indent),
			ordered: marker[0] >= '0' && marker[0] <= '9',
			at: mdPos{
				line:   p.i + 1,
				column: len(indent),
				length: len(p.lines[p.i]) - len(indent),
			},
		})
		p.i++
	}
	return mdList{items: items, at: items[0].at}
}

// listIndentLevel maps leading whitespace to a nesting level. A tab or two
// spaces count as one step; level 1 is unindented.
func listIndentLevel(indent string) int {
	tabs := 0
	spaces := 0
	for _, r := range indent {
		if r == '\t' {
			tabs++
		} else {
			spaces++
		}
	}
	return 1 + tabs + spaces/2
}

func (p *markdownParser) tableAhead() bool {
	if p.i+1 >= len(p.lines) {
		return false
	}
	if !strings.Contains(p.lines[p.i], "|") {
		return false
	}
	next := p.lines[p.i+1]
	return strings.Contains(next, "-") && reTableDelim.MatchString(next)
}

func (p *markdownParser) table() mdNode {
	start := p.i
	header := splitTableRow(p.lines[p.i])
	p.i += 2
	var rows [][]string
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		if strings.TrimSpace(line) == "" || !strings.Contains(line, "|") {
			break
		}
		rows = append(rows, splitTableRow(line))
		p.i++
	}
	return mdTable{header: header, rows: rows, at: p.segment(start)}
}

// splitTableRow splits a pipe-delimited row into trimmed cells. Escaped
// pipes survive as literal characters.
func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	line = strings.ReplaceAll(line, `\|`, "\x00")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, c := range parts {
		cells[i] = strings.TrimSpace(strings.ReplaceAll(c, "\x00", "|"))
	}
	return cells
}

func (p *markdownParser) image() mdNode {
	m := reImageLine.FindStringSubmatch(p.lines[p.i])
	n := mdImage{alt: m[1], url: m[2], title: m[3], at: p.lineAt(p.i)}
	p.i++
	return n
}

func (p *markdownParser) htmlBlock() mdNode {
	start := p.i
	var raw []string
	for p.i < len(p.lines) && strings.TrimSpace(p.lines[p.i]) != "" {
		raw = append(raw, p.lines[p.i])
		p.i++
	}
	return mdHTMLBlock{raw: strings.Join(raw, "\n"), at: p.segment(start)}
}

func (p *markdownParser) paragraph() mdNode {
	start := p.i
	var para []string
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		if strings.TrimSpace(line) == "" {
			break
		}
		if p.i > start && p.interruptsParagraph(line) {
			break
		}
		para = append(para, line)
		p.i++
	}
	return mdParagraph{text: strings.Join(para, "\n"), at: p.segment(start)}
}

// interruptsParagraph reports whether a line opens a new block even
// without a preceding blank line.
func (p *markdownParser) interruptsParagraph(line string) bool {
	return reFence.MatchString(line) ||
		reATXHeading.MatchString(line) ||
		reThematicBreak.MatchString(line) ||
		reQuoteMarker.MatchString(line) ||
		reListMarker.MatchString(line) ||
		reHTMLOpen.MatchString(line) ||
		p.tableAhead()
}

func (p *markdownParser) lineAt(i int) mdPos {
	return mdPos{line: i + 1, column: 0, length: len(p.lines[i])}
}

// segment spans the lines from start up to the parser's current position.
func (p *markdownParser) segment(start int) mdPos {
	return mdPos{line: start + 1, column: 0, length: segmentLength(p.lines[start:p.i])}
}

func segmentLength(lines []string) int {
	n := 0
	for i, l := range lines {
		if i > 0 {
			n++
		}
		n += len(l)
	}
	return n
}
