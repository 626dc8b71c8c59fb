package artificer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedImporter converts RSS, Atom, and RDF feeds. The feed title becomes
// the document heading and each entry becomes a section: entry title,
// publication date, then the entry body run through the markdown pipeline.
type FeedImporter struct {
	markdown *MarkdownImporter
}

// NewFeedImporter creates a FeedImporter. Entry bodies are delegated to
// markdown so inline formatting inside feed content survives.
func NewFeedImporter(markdown *MarkdownImporter) *FeedImporter {
	return &FeedImporter{markdown: markdown}
}

func (imp *FeedImporter) Name() string { return "feed" }

func (imp *FeedImporter) SupportedFormats() []string { return []string{"rss", "atom"} }

func (imp *FeedImporter) Detect(input []byte) bool {
	if looksBinary(input) {
		return false
	}
	head := input
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "<rss") || strings.Contains(s, "<feed") || strings.Contains(s, "<rdf:rdf")
}

func (imp *FeedImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(input))
	if err != nil {
		return nil, &ConversionError{Code: CodeInvalidFormat, Message: "parse feed", Err: err}
	}

	meta := DocumentMetadata{Title: feed.Title, Source: "feed"}
	if len(feed.Authors) > 0 && feed.Authors[0] != nil {
		meta.Author = feed.Authors[0].Name
	}
	meta.UpdatedAt = feed.Updated

	var blocks []Block
	if feed.Title != "" {
		blocks = append(blocks, NewTextBlock(feed.Title, StyleH1))
	}
	if feed.Description != "" {
		blocks = append(blocks, NewTextBlock(feed.Description, StyleNormal))
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if item.Title != "" {
			blocks = append(blocks, NewTextBlock(item.Title, StyleH2))
		}
		if item.Published != "" {
			blocks = append(blocks, NewTextBlock("Published: "+item.Published, StyleNormal))
		} else if item.Updated != "" {
			blocks = append(blocks, NewTextBlock("Updated: "+item.Updated, StyleNormal))
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		if content == "" {
			continue
		}
		body, err := imp.entryBlocks(ctx, content, opts)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, body...)
	}

	if blocks == nil {
		blocks = []Block{}
	}
	return &ConvertedDocument{Content: blocks, Metadata: meta}, nil
}

// entryBlocks converts a single entry body. Feeds carry HTML and plain
// text in the same elements, so the content is inspected rather than
// trusting any declared type.
func (imp *FeedImporter) entryBlocks(ctx context.Context, content string, opts ImportOptions) ([]Block, error) {
	if strings.Contains(content, "<") && strings.Contains(content, ">") {
		converted, err := convertHTMLToMarkdown(content)
		if err != nil {
			return nil, fmt.Errorf("convert feed entry: %w", err)
		}
		content = converted
	}

	sub := opts
	sub.Importer = ""
	sub.IncludeSourceMap = false
	doc, err := imp.markdown.Import(ctx, []byte(content), sub)
	if err != nil {
		return nil, err
	}
	return doc.Content, nil
}
