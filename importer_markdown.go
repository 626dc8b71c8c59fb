package artificer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// MarkdownImporter converts CommonMark-style markdown with the Obsidian
// extensions (frontmatter, wiki links, callouts, highlights) into canonical
// blocks. It is the only importer that can populate a source map, and the
// only one with per-node error reporting: a node that cannot be converted
// aborts the import unless ContinueOnError is set.
type MarkdownImporter struct {
	logger *slog.Logger
}

// NewMarkdownImporter creates the importer. logger may be nil; it is only
// used to report recoverable frontmatter problems.
func NewMarkdownImporter(logger *slog.Logger) *MarkdownImporter {
	return &MarkdownImporter{logger: logger}
}

func (*MarkdownImporter) Name() string { return "markdown" }

func (*MarkdownImporter) SupportedFormats() []string { return []string{"md", "markdown"} }

// Structural signals rather than file extensions: any one of these is
// enough to claim the input.
var mdSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S`),
	regexp.MustCompile(`\*\*[^*\n]+\*\*`),
	regexp.MustCompile(`\[[^\]\n]+\]\([^)\n]+\)`),
	regexp.MustCompile("(?m)^(`{3}|~{3})"),
	regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+\S`),
	regexp.MustCompile(`(?m)^[ \t]*\d{1,9}[.)][ \t]+\S`),
}

func (*MarkdownImporter) Detect(input []byte) bool {
	if looksBinary(input) {
		return false
	}
	text := string(input)
	for _, re := range mdSignals {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (imp *MarkdownImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	nodes := parseMarkdownAST(SanitizeText(decodeText(input)))

	c := &markdownConversion{opts: opts, logger: imp.logger}
	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.convertNode(i, node); err != nil {
			return nil, err
		}
	}

	doc := &ConvertedDocument{Content: c.blocks, Metadata: c.metadata}
	if doc.Content == nil {
		doc.Content = []Block{}
	}
	if doc.Metadata.Source == "" {
		doc.Metadata.Source = "markdown"
	}
	if opts.IncludeSourceMap {
		doc.SourceMap = c.sourceMap
	}
	return doc, nil
}

// markdownConversion is the scratch state of a single Import call. A fresh
// one is built per call, so a shared importer stays safe under concurrent
// use.
type markdownConversion struct {
	opts      ImportOptions
	logger    *slog.Logger
	blocks    []Block
	sourceMap SourceMap
	metadata  DocumentMetadata
}

var reCallout = regexp.MustCompile(`(?i)^\[!(note|info|warning|error|success)\][ \t]*`)

func (c *markdownConversion) convertNode(index int, node mdNode) error {
	switch n := node.(type) {
	case mdFrontmatter:
		if fields := parseYAMLFrontmatter(n.raw, c.logger); fields != nil {
			c.metadata = NewMetadata(fields)
			if !c.opts.PreserveMetadata {
				c.metadata.Extra = nil
			}
		}
	case mdHeading:
		c.emit(c.textBlock(n.text, headingStyle(n.level)), node)
	case mdParagraph:
		c.emit(c.paragraphBlock(n.text), node)
	case mdCodeBlock:
		c.emit(NewCodeBlock(n.code, n.language, ""), node)
	case mdThematicBreak:
		c.emit(Block{Type: TypeDivider, Key: GenerateKey()}, node)
	case mdBlockquote:
		// One block per quoted paragraph, the same flattening lists get.
		for _, para := range splitQuoteParagraphs(n.text) {
			c.emit(c.quoteBlock(para), node)
		}
	case mdImage:
		c.emit(NewImageBlock(n.url, n.alt, n.title), node)
	case mdTable:
		rows := append([][]string{n.header}, n.rows...)
		c.emit(NewTableBlock(rows), node)
	case mdList:
		for _, item := range n.items {
			blk := c.textBlock(item.text, StyleNormal)
			blk.ListItem = ListBullet
			if item.ordered {
				blk.ListItem = ListNumber
			}
			blk.Level = item.level
			c.emit(blk, item)
		}
	case mdHTMLBlock:
		return c.convertHTMLBlock(index, n)
	default:
		err := fmt.Errorf("unhandled markdown node %q", node.nodeType())
		return reportNodeError(c.opts, index, node, err)
	}
	return nil
}

// convertHTMLBlock handles the one markdown construct with no canonical
// mapping. PreserveUnknownBlocks keeps the raw source in an unrecognized
// block; otherwise the node goes through the error policy.
func (c *markdownConversion) convertHTMLBlock(index int, n mdHTMLBlock) error {
	if c.opts.PreserveUnknownBlocks {
		c.emit(Block{
			Type:       TypeUnrecognized,
			Key:        GenerateKey(),
			SourceType: "html",
			Raw:        n.raw,
		}, n)
		return nil
	}
	err := fmt.Errorf("no mapping for raw html block at line %d", n.at.line)
	return reportNodeError(c.opts, index, n.raw, err)
}

func (c *markdownConversion) textBlock(text, style string) Block {
	spans, defs := parseInline(foldLineBreaks(text))
	if len(spans) == 0 {
		spans = []Span{NewSpan("")}
	}
	return Block{
		Type:     TypeBlock,
		Key:      GenerateKey(),
		Style:    style,
		Children: spans,
		MarkDefs: defs,
	}
}

// splitQuoteParagraphs breaks a blockquote's stripped text at blank lines.
func splitQuoteParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return paras
}

// paragraphBlock reclassifies a paragraph that opens with a callout
// marker; anything else stays a normal text block.
func (c *markdownConversion) paragraphBlock(text string) Block {
	if blk, ok := c.calloutBlock(text); ok {
		return blk
	}
	return c.textBlock(text, StyleNormal)
}

// quoteBlock reclassifies Obsidian callouts; anything else stays a
// blockquote-styled text block.
func (c *markdownConversion) quoteBlock(text string) Block {
	if blk, ok := c.calloutBlock(text); ok {
		return blk
	}
	return c.textBlock(text, StyleBlockquote)
}

func (c *markdownConversion) calloutBlock(text string) (Block, bool) {
	m := reCallout.FindStringSubmatch(text)
	if m == nil {
		return Block{}, false
	}
	body := strings.TrimSpace(strings.TrimPrefix(text, m[0]))
	blk := c.textBlock(body, "")
	blk.Type = TypeCallout
	blk.CalloutType = strings.ToLower(m[1])
	return blk, true
}

func (c *markdownConversion) emit(blk Block, node mdNode) {
	c.blocks = append(c.blocks, blk)
	if c.opts.IncludeSourceMap {
		at := node.pos()
		c.sourceMap = append(c.sourceMap, SourceMapEntry{
			BlockKey:     blk.Key,
			Line:         at.line,
			Column:       at.column,
			Length:       at.length,
			OriginalType: node.nodeType(),
		})
	}
}

func headingStyle(level int) string {
	switch level {
	case 1:
		return StyleH1
	case 2:
		return StyleH2
	case 3:
		return StyleH3
	case 4:
		return StyleH4
	case 5:
		return StyleH5
	default:
		return StyleH6
	}
}

// foldLineBreaks rewrites interior line breaks for span text: a line ending
// in two spaces or a backslash becomes a hard break, any other break joins
// with a space.
func foldLineBreaks(text string) string {
	lines := strings.Split(text, "\n")
	var sb strings.Builder
	for i, line := range lines {
		last := i == len(lines)-1
		trimmed := strings.TrimRight(line, " \t")
		hard := !last && (strings.HasSuffix(line, "  ") || strings.HasSuffix(trimmed, `\`))
		if hard && strings.HasSuffix(trimmed, `\`) {
			trimmed = strings.TrimSuffix(trimmed, `\`)
		}
		sb.WriteString(trimmed)
		switch {
		case last:
		case hard:
			sb.WriteByte('\n')
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// parseInline scans a run of markdown inline syntax into spans plus the
// markDefs referenced by their custom marks. Adjacent text with identical
// marks merges into one span.
func parseInline(text string) ([]Span, []MarkDef) {
	p := &inlineParser{src: text}
	p.scan(len(text), nil)
	p.flush()
	return p.spans, p.defs
}

type inlineParser struct {
	src   string
	pos   int
	spans []Span
	defs  []MarkDef

	buf strings.Builder
	cur []string
}

// scan consumes tokens up to limit, attaching marks to everything written.
// Delimited constructs bound their own closer search to the same limit, so
// nesting never escapes the enclosing region.
func (p *inlineParser) scan(limit int, marks []string) {
	for p.pos < limit {
		c := p.src[p.pos]
		rest := p.src[p.pos:limit]
		switch {
		case c == '\\' && p.pos+1 < limit && isPunctByte(p.src[p.pos+1]):
			p.write(string(p.src[p.pos+1]), marks)
			p.pos += 2
		case c == '`':
			p.inlineCode(limit, marks)
		case strings.HasPrefix(rest, "![["):
			// Obsidian embed: drop the bang, keep the wiki link.
			p.pos++
		case strings.HasPrefix(rest, "[["):
			p.wikiLink(limit, marks)
		case strings.HasPrefix(rest, "!["):
			p.inlineImage(limit, marks)
		case c == '[':
			p.link(limit, marks)
		case strings.HasPrefix(rest, "**"):
			p.emphasis(limit, marks, MarkStrong, "**", false)
		case strings.HasPrefix(rest, "__") && p.underscoreOpens():
			p.emphasis(limit, marks, MarkStrong, "__", true)
		case strings.HasPrefix(rest, "~~"):
			p.emphasis(limit, marks, MarkStrike, "~~", false)
		case strings.HasPrefix(rest, "=="):
			p.highlight(limit, marks)
		case c == '*':
			p.emphasis(limit, marks, MarkEm, "*", false)
		case c == '_' && p.underscoreOpens():
			p.emphasis(limit, marks, MarkEm, "_", true)
		default:
			p.plain(limit, marks)
		}
	}
}

func (p *inlineParser) plain(limit int, marks []string) {
	start := p.pos
	p.pos++
	for p.pos < limit && !isSpecialByte(p.src[p.pos]) {
		p.pos++
	}
	p.write(p.src[start:p.pos], marks)
}

func (p *inlineParser) emphasis(limit int, marks []string, mark, delim string, wordSensitive bool) {
	ok, end := p.delimitedRegion(p.pos+len(delim), limit, delim, wordSensitive)
	if !ok {
		p.write(delim, marks)
		p.pos += len(delim)
		return
	}
	p.pos += len(delim)
	p.scan(end, appendMark(marks, mark))
	p.pos = end + len(delim)
}

func (p *inlineParser) highlight(limit int, marks []string) {
	ok, end := p.delimitedRegion(p.pos+2, limit, "==", false)
	if !ok {
		p.write("==", marks)
		p.pos += 2
		return
	}
	def := MarkDef{Type: MarkDefHighlight, Key: GenerateKey()}
	p.defs = append(p.defs, def)
	p.pos += 2
	p.scan(end, appendMark(marks, def.Key))
	p.pos = end + 2
}

// delimitedRegion locates the closer for an emphasis-style delimiter. The
// content must be non-empty and must not start with whitespace; otherwise
// the opener is literal text.
func (p *inlineParser) delimitedRegion(contentStart, limit int, delim string, wordSensitive bool) (bool, int) {
	if contentStart >= limit || isSpaceByte(p.src[contentStart]) {
		return false, 0
	}
	idx := findDelimCloser(p.src[contentStart:limit], delim, wordSensitive)
	if idx <= 0 {
		return false, 0
	}
	return true, contentStart + idx
}

func (p *inlineParser) inlineCode(limit int, marks []string) {
	n := p.pos
	for n < limit && p.src[n] == '`' {
		n++
	}
	open := p.src[p.pos:n]
	idx := indexCodeCloser(p.src[n:limit], open)
	if idx < 0 {
		p.write(open, marks)
		p.pos = n
		return
	}
	content := p.src[n : n+idx]
	if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.TrimSpace(content) != "" {
		content = content[1 : len(content)-1]
	}
	p.write(content, appendMark(marks, MarkCode))
	p.pos = n + idx + len(open)
}

// indexCodeCloser finds a backtick run of exactly the opener's length.
func indexCodeCloser(s, open string) int {
	from := 0
	for {
		i := strings.Index(s[from:], open)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(open)
		if (i == 0 || s[i-1] != '`') && (end >= len(s) || s[end] != '`') {
			return i
		}
		from = end
	}
}

func (p *inlineParser) wikiLink(limit int, marks []string) {
	idx := strings.Index(p.src[p.pos+2:limit], "]]")
	if idx < 0 {
		p.write("[", marks)
		p.pos++
		return
	}
	inner := p.src[p.pos+2 : p.pos+2+idx]
	target, alias := inner, ""
	if bar := strings.IndexByte(inner, '|'); bar >= 0 {
		target, alias = inner[:bar], inner[bar+1:]
	}
	target = strings.TrimSpace(target)
	alias = strings.TrimSpace(alias)
	if target == "" && alias == "" {
		p.write(p.src[p.pos:p.pos+2+idx+2], marks)
		p.pos += 2 + idx + 2
		return
	}
	def := MarkDef{Type: MarkDefWikiLink, Key: GenerateKey(), Target: target, Alias: alias}
	p.defs = append(p.defs, def)
	display := alias
	if display == "" {
		display = target
	}
	p.write(display, appendMark(marks, def.Key))
	p.pos += 2 + idx + 2
}

func (p *inlineParser) link(limit int, marks []string) {
	region := p.src[p.pos:limit]
	closeBr := matchBracket(region)
	if closeBr < 0 || closeBr+1 >= len(region) || region[closeBr+1] != '(' {
		p.write("[", marks)
		p.pos++
		return
	}
	closeParen := strings.IndexByte(region[closeBr+2:], ')')
	if closeParen < 0 {
		p.write("[", marks)
		p.pos++
		return
	}
	href, _ := splitLinkDest(region[closeBr+2 : closeBr+2+closeParen])
	def := MarkDef{Type: MarkDefLink, Key: GenerateKey(), Href: href}
	p.defs = append(p.defs, def)

	start := p.pos
	p.pos = start + 1
	p.scan(start+closeBr, appendMark(marks, def.Key))
	p.pos = start + closeBr + 2 + closeParen + 1
}

// inlineImage degrades an inline image to its alt text; only images on a
// line of their own become image blocks.
func (p *inlineParser) inlineImage(limit int, marks []string) {
	region := p.src[p.pos+1 : limit]
	closeBr := matchBracket(region)
	if closeBr < 0 || closeBr+1 >= len(region) || region[closeBr+1] != '(' {
		p.write("!", marks)
		p.pos++
		return
	}
	closeParen := strings.IndexByte(region[closeBr+2:], ')')
	if closeParen < 0 {
		p.write("!", marks)
		p.pos++
		return
	}
	if alt := region[1:closeBr]; alt != "" {
		p.write(alt, marks)
	}
	p.pos += 1 + closeBr + 2 + closeParen + 1
}

func (p *inlineParser) underscoreOpens() bool {
	return p.pos == 0 || !isAlnumByte(p.src[p.pos-1])
}

func (p *inlineParser) write(s string, marks []string) {
	if s == "" {
		return
	}
	if p.buf.Len() > 0 && !sameMarks(p.cur, marks) {
		p.flush()
	}
	p.cur = marks
	p.buf.WriteString(s)
}

func (p *inlineParser) flush() {
	if p.buf.Len() == 0 {
		return
	}
	p.spans = append(p.spans, Span{
		Type:  TypeSpan,
		Key:   GenerateKey(),
		Text:  p.buf.String(),
		Marks: copyMarks(p.cur),
	})
	p.buf.Reset()
}

// findDelimCloser returns the index of the first valid closing delimiter in
// s, or -1. A closer must follow non-space content; a word-sensitive
// delimiter additionally must not run into a letter or digit, so
// snake_case identifiers survive.
func findDelimCloser(s, delim string, wordSensitive bool) int {
	from := 0
	for {
		i := strings.Index(s[from:], delim)
		if i < 0 {
			return -1
		}
		i += from
		if i > 0 && !isSpaceByte(s[i-1]) && s[i-1] != '\\' {
			end := i + len(delim)
			if !wordSensitive || end >= len(s) || !isAlnumByte(s[end]) {
				return i
			}
		}
		from = i + len(delim)
	}
}

// matchBracket returns the index of the ']' matching s[0]=='[', tracking
// nesting and backslash escapes.
func matchBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitLinkDest splits a link destination from its optional quoted title.
func splitLinkDest(dest string) (href, title string) {
	dest = strings.TrimSpace(dest)
	if i := strings.IndexAny(dest, " \t"); i >= 0 {
		title = strings.Trim(strings.TrimSpace(dest[i+1:]), `"`)
		dest = dest[:i]
	}
	return dest, title
}

func sameMarks(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendMark(marks []string, mark string) []string {
	out := make([]string, len(marks), len(marks)+1)
	copy(out, marks)
	return append(out, mark)
}

func copyMarks(marks []string) []string {
	if len(marks) == 0 {
		return nil
	}
	out := make([]string, len(marks))
	copy(out, marks)
	return out
}

func isSpecialByte(c byte) bool {
	switch c {
	case '\\', '`', '[', '!', '*', '_', '~', '=':
		return true
	}
	return false
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

func isAlnumByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isPunctByte(c byte) bool {
	return strings.IndexByte("\\`*_{}[]()#+-.!|~=<>\"'", c) >= 0
}
