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
	"strings"
)

// NotionImporter converts Notion API block trees into canonical blocks. It
// accepts three top-level shapes: a page object with embedded children, a
// block list response ({"results": [...]}), and a bare block or array of
// blocks. Import is all-or-nothing: malformed input fails with
// INVALID_JSON or INVALID_FORMAT, never a partial document.
type NotionImporter struct{}

func NewNotionImporter() *NotionImporter { return &NotionImporter{} }

func (*NotionImporter) Name() string { return "notion" }

func (*NotionImporter) SupportedFormats() []string { return []string{"notion"} }

func (*NotionImporter) Detect(input []byte) bool {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	if !json.Valid(trimmed) {
		return false
	}
	if trimmed[0] == '[' {
		var arr []struct {
			Object string `json:"object"`
			Type   string `json:"type"`
		}
		if json.Unmarshal(trimmed, &arr) != nil || len(arr) == 0 {
			return false
		}
		return arr[0].Object == "block" || arr[0].Type != ""
	}
	var probe struct {
		Object  string          `json:"object"`
		Type    string          `json:"type"`
		Results json.RawMessage `json:"results"`
	}
	if json.Unmarshal(trimmed, &probe) != nil {
		return false
	}
	return probe.Object != "" || probe.Results != nil || probe.Type != ""
}

func (imp *NotionImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
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

	c := &notionConversion{opts: opts}
	meta := DocumentMetadata{Source: "notion"}

	if trimmed[0] == '[' {
		var blocks []notionBlock
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "array elements are not notion blocks",
				Err:     err,
			}
		}
		c.convertBlocks(blocks, 1)
		return c.document(meta), nil
	}

	var head struct {
		Object  string          `json:"object"`
		Type    string          `json:"type"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, &ConversionError{
			Code:    CodeInvalidFormat,
			Message: "input is not a notion object",
			Err:     err,
		}
	}

	switch {
	case head.Object == "page":
		var page notionPage
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "input is not a notion page",
				Err:     err,
			}
		}
		meta.Title = page.title()
		meta.CreatedAt = page.CreatedTime
		meta.UpdatedAt = page.LastEditedTime
		meta.SourceID = page.ID
		if opts.PreserveMetadata && page.URL != "" {
			meta.Extra = map[string]any{"url": page.URL}
		}
		c.convertBlocks(page.Children, 1)

	case head.Object == "list" || head.Results != nil:
		var list struct {
			Results []notionBlock `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "results are not notion blocks",
				Err:     err,
			}
		}
		c.convertBlocks(list.Results, 1)

	case head.Object == "block" || head.Type != "":
		var blk notionBlock
		if err := json.Unmarshal(trimmed, &blk); err != nil {
			return nil, &ConversionError{
				Code:    CodeInvalidFormat,
				Message: "input is not a notion block",
				Err:     err,
			}
		}
		c.convertBlock(blk, 1)

	default:
		return nil, newError(CodeInvalidFormat, "unrecognized notion payload shape")
	}

	return c.document(meta), nil
}

// notionBlock is one node of the Notion block tree. The API nests the
// type-specific payload under a key named after the type itself, so
// decoding needs a second pass over the raw object.
type notionBlock struct {
	Object      string
	ID          string
	Type        string
	HasChildren bool
	Payload     notionPayload

	raw []byte
}

func (b *notionBlock) UnmarshalJSON(data []byte) error {
	var head struct {
		Object      string `json:"object"`
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Object = head.Object
	b.ID = head.ID
	b.Type = head.Type
	b.HasChildren = head.HasChildren
	b.raw = append([]byte(nil), data...)
	if head.Type == "" {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	payload, ok := fields[head.Type]
	if !ok {
		return nil
	}
	return json.Unmarshal(payload, &b.Payload)
}

type notionPayload struct {
	RichText        []notionRichText `json:"rich_text"`
	Caption         []notionRichText `json:"caption"`
	Language        string           `json:"language"`
	Checked         bool             `json:"checked"`
	Icon            *notionIcon      `json:"icon"`
	URL             string           `json:"url"`
	External        *notionFileRef   `json:"external"`
	File            *notionFileRef   `json:"file"`
	TableWidth      int              `json:"table_width"`
	HasColumnHeader bool             `json:"has_column_header"`
	Title           string           `json:"title"`
	Children        []notionBlock    `json:"children"`
}

type notionIcon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

type notionFileRef struct {
	URL string `json:"url"`
}

type notionRichText struct {
	Type        string            `json:"type"`
	PlainText   string            `json:"plain_text"`
	Href        string            `json:"href"`
	Annotations notionAnnotations `json:"annotations"`
	Text        *notionText       `json:"text"`
}

type notionText struct {
	Content string `json:"content"`
	Link    *struct {
		URL string `json:"url"`
	} `json:"link"`
}

type notionAnnotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Strikethrough bool `json:"strikethrough"`
	Underline     bool `json:"underline"`
	Code          bool `json:"code"`
}

type notionPage struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	CreatedTime    string                     `json:"created_time"`
	LastEditedTime string                     `json:"last_edited_time"`
	URL            string                     `json:"url"`
	Properties     map[string]json.RawMessage `json:"properties"`
	Children       []notionBlock              `json:"children"`
}

// title finds the page's title property. Database pages name it freely, so
// the property type is what identifies it.
func (p *notionPage) title() string {
	for _, raw := range p.Properties {
		var prop struct {
			Type  string           `json:"type"`
			Title []notionRichText `json:"title"`
		}
		if json.Unmarshal(raw, &prop) != nil {
			continue
		}
		if prop.Type == "title" {
			return notionPlainText(prop.Title)
		}
	}
	return ""
}

type notionConversion struct {
	opts   ImportOptions
	blocks []Block
}

func (c *notionConversion) document(meta DocumentMetadata) *ConvertedDocument {
	if !c.opts.PreserveMetadata {
		meta.Extra = nil
	}
	if c.blocks == nil {
		c.blocks = []Block{}
	}
	return &ConvertedDocument{Content: c.blocks, Metadata: meta}
}

func (c *notionConversion) convertBlocks(blocks []notionBlock, level int) {
	for _, b := range blocks {
		c.convertBlock(b, level)
	}
}

func (c *notionConversion) convertBlock(b notionBlock, level int) {
	switch b.Type {
	case "paragraph":
		if len(b.Payload.RichText) == 0 && len(b.Payload.Children) == 0 {
			return
		}
		if len(b.Payload.RichText) > 0 {
			c.emitText(b.Payload.RichText, StyleNormal, "", 0)
		}
		c.convertBlocks(b.Payload.Children, level+1)

	case "heading_1", "heading_2", "heading_3":
		style := map[string]string{
			"heading_1": StyleH1,
			"heading_2": StyleH2,
			"heading_3": StyleH3,
		}[b.Type]
		c.emitText(b.Payload.RichText, style, "", 0)
		c.convertBlocks(b.Payload.Children, level)

	case "bulleted_list_item":
		c.emitText(b.Payload.RichText, StyleNormal, ListBullet, level)
		c.convertBlocks(b.Payload.Children, level+1)

	case "numbered_list_item":
		c.emitText(b.Payload.RichText, StyleNormal, ListNumber, level)
		c.convertBlocks(b.Payload.Children, level+1)

	case "to_do":
		glyph := "☐ "
		if b.Payload.Checked {
			glyph = "☑ "
		}
		spans, defs := notionSpans(b.Payload.RichText)
		if len(spans) == 0 {
			spans = []Span{NewSpan("")}
		}
		spans[0].Text = glyph + spans[0].Text
		c.blocks = append(c.blocks, Block{
			Type:     TypeBlock,
			Key:      GenerateKey(),
			Style:    StyleNormal,
			ListItem: ListBullet,
			Level:    level,
			Children: spans,
			MarkDefs: defs,
		})
		c.convertBlocks(b.Payload.Children, level+1)

	case "quote":
		c.emitText(b.Payload.RichText, StyleBlockquote, "", 0)
		c.convertBlocks(b.Payload.Children, level)

	case "toggle":
		// No disclosure state in the canonical model: the header becomes
		// a paragraph and the hidden children surface after it.
		c.emitText(b.Payload.RichText, StyleNormal, "", 0)
		c.convertBlocks(b.Payload.Children, level)

	case "callout":
		spans, defs := notionSpans(b.Payload.RichText)
		calloutType := "note"
		if b.Payload.Icon != nil && b.Payload.Icon.Emoji != "" {
			calloutType = b.Payload.Icon.Emoji
		}
		c.blocks = append(c.blocks, Block{
			Type:        TypeCallout,
			Key:         GenerateKey(),
			CalloutType: calloutType,
			Children:    spans,
			MarkDefs:    defs,
		})
		c.convertBlocks(b.Payload.Children, level)

	case "code":
		c.blocks = append(c.blocks, Block{
			Type:     TypeCode,
			Key:      GenerateKey(),
			Code:     notionPlainText(b.Payload.RichText),
			Language: b.Payload.Language,
			Filename: notionPlainText(b.Payload.Caption),
		})

	case "divider":
		c.blocks = append(c.blocks, Block{Type: TypeDivider, Key: GenerateKey()})

	case "image":
		c.blocks = append(c.blocks, Block{
			Type:    TypeImage,
			Key:     GenerateKey(),
			URL:     b.Payload.fileURL(),
			Caption: notionPlainText(b.Payload.Caption),
		})

	case "video":
		c.blocks = append(c.blocks, Block{Type: TypeVideo, Key: GenerateKey(), URL: b.Payload.fileURL()})

	case "audio":
		c.blocks = append(c.blocks, Block{Type: TypeAudio, Key: GenerateKey(), URL: b.Payload.fileURL()})

	case "file", "pdf":
		c.blocks = append(c.blocks, Block{
			Type:    TypeFile,
			Key:     GenerateKey(),
			URL:     b.Payload.fileURL(),
			Caption: notionPlainText(b.Payload.Caption),
		})

	case "bookmark", "embed":
		c.blocks = append(c.blocks, Block{
			Type:    TypeEmbed,
			Key:     GenerateKey(),
			URL:     b.Payload.URL,
			Caption: notionPlainText(b.Payload.Caption),
		})

	case "link_preview":
		c.blocks = append(c.blocks, Block{Type: TypeLinkPreview, Key: GenerateKey(), URL: b.Payload.URL})

	case "table":
		// Cell contents live behind child-fetch API calls this core never
		// makes, so a table survives as its shape only.
		blk := Block{Type: TypeTable, Key: GenerateKey(), TableWidth: b.Payload.TableWidth}
		if b.Payload.HasColumnHeader {
			blk.Rows = []TableRow{{
				Key:    GenerateKey(),
				Cells:  make([]string, b.Payload.TableWidth),
				Header: true,
			}}
		}
		c.blocks = append(c.blocks, blk)

	case "column_list":
		var columns []Block
		for _, child := range b.Payload.Children {
			if child.Type != "column" {
				continue
			}
			sub := &notionConversion{opts: c.opts}
			sub.convertBlocks(child.Payload.Children, 1)
			columns = append(columns, Block{
				Type:   TypeColumn,
				Key:    GenerateKey(),
				Blocks: sub.blocks,
			})
		}
		c.blocks = append(c.blocks, Block{
			Type:   TypeColumnList,
			Key:    GenerateKey(),
			Blocks: columns,
		})

	case "child_page":
		c.blocks = append(c.blocks, Block{
			Type:   TypeChildPage,
			Key:    GenerateKey(),
			PageID: b.ID,
			Title:  b.Payload.Title,
		})

	case "table_of_contents":
		c.blocks = append(c.blocks, Block{Type: TypeTableOfContents, Key: GenerateKey()})

	default:
		// Unknown types that still carry rich_text keep their text as a
		// plain paragraph; anything else is dropped unless the caller asked
		// to keep it.
		if len(b.Payload.RichText) > 0 {
			c.emitText(b.Payload.RichText, StyleNormal, "", 0)
			c.convertBlocks(b.Payload.Children, level)
			return
		}
		if c.opts.PreserveUnknownBlocks {
			c.blocks = append(c.blocks, Block{
				Type:       TypeUnrecognized,
				Key:        GenerateKey(),
				SourceType: b.Type,
				Raw:        string(b.raw),
			})
		}
	}
}

func (c *notionConversion) emitText(rts []notionRichText, style, listItem string, level int) {
	spans, defs := notionSpans(rts)
	if len(spans) == 0 {
		spans = []Span{NewSpan("")}
	}
	c.blocks = append(c.blocks, Block{
		Type:     TypeBlock,
		Key:      GenerateKey(),
		Style:    style,
		ListItem: listItem,
		Level:    level,
		Children: spans,
		MarkDefs: defs,
	})
}

// notionSpans maps rich text runs to spans. Annotations become built-in
// marks; a link becomes a markDef referenced from the span. Mentions and
// equations degrade to their plain text rendering.
func notionSpans(rts []notionRichText) ([]Span, []MarkDef) {
	var spans []Span
	var defs []MarkDef
	for _, rt := range rts {
		text := rt.PlainText
		if text == "" && rt.Text != nil {
			text = rt.Text.Content
		}
		if text == "" {
			continue
		}
		var marks []string
		a := rt.Annotations
		if a.Bold {
			marks = append(marks, MarkStrong)
		}
		if a.Italic {
			marks = append(marks, MarkEm)
		}
		if a.Strikethrough {
			marks = append(marks, MarkStrike)
		}
		if a.Underline {
			marks = append(marks, MarkUnderline)
		}
		if a.Code {
			marks = append(marks, MarkCode)
		}
		href := rt.Href
		if href == "" && rt.Text != nil && rt.Text.Link != nil {
			href = rt.Text.Link.URL
		}
		if href != "" {
			def := MarkDef{Type: MarkDefLink, Key: GenerateKey(), Href: href}
			defs = append(defs, def)
			marks = append(marks, def.Key)
		}
		spans = append(spans, Span{Type: TypeSpan, Key: GenerateKey(), Text: text, Marks: marks})
	}
	return spans, defs
}

func notionPlainText(rts []notionRichText) string {
	var sb strings.Builder
	for _, rt := range rts {
		if rt.PlainText != "" {
			sb.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			sb.WriteString(rt.Text.Content)
		}
	}
	return sb.String()
}

func (p *notionPayload) fileURL() string {
	switch {
	case p.External != nil && p.External.URL != "":
		return p.External.URL
	case p.File != nil && p.File.URL != "":
		return p.File.URL
	default:
		return p.URL
	}
}
