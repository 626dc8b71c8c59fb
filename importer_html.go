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
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// HTMLImporter converts HTML by rendering it to markdown and running the
// result through the markdown importer, so HTML and markdown input
// produce the same canonical structures.
type HTMLImporter struct {
	markdown     *MarkdownImporter
	keepDataURIs bool
}

func NewHTMLImporter(markdown *MarkdownImporter, keepDataURIs bool) *HTMLImporter {
	return &HTMLImporter{markdown: markdown, keepDataURIs: keepDataURIs}
}

func (*HTMLImporter) Name() string { return "html" }

func (*HTMLImporter) SupportedFormats() []string { return []string{"html", "htm"} }

func (*HTMLImporter) Detect(input []byte) bool {
	if looksBinary(input) {
		return false
	}
	mime := sniffMIME(input)
	return strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "application/xhtml")
}

func (imp *HTMLImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	htmlStr := decodeText(input)
	title := extractHTMLTitle(htmlStr)
	htmlStr = removeScriptAndStyle(htmlStr)

	md, err := convertHTMLToMarkdown(htmlStr)
	if err != nil {
		return nil, fmt.Errorf("convert html to markdown: %w", err)
	}
	if !imp.keepDataURIs {
		md = truncateDataURIs(md)
	}

	sub := opts
	sub.Importer = ""
	sub.IncludeSourceMap = false
	doc, err := imp.markdown.Import(ctx, []byte(md), sub)
	if err != nil {
		return nil, err
	}
	// Positions in a source map would refer to the intermediate markdown,
	// not the caller's HTML.
	doc.SourceMap = nil
	if title != "" && doc.Metadata.Title == "" {
		doc.Metadata.Title = title
	}
	doc.Metadata.Source = "html"
	return doc, nil
}

func convertHTMLToMarkdown(htmlStr string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(htmlStr)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)
)

func removeScriptAndStyle(htmlStr string) string {
	htmlStr = reScript.ReplaceAllString(htmlStr, "")
	return reStyle.ReplaceAllString(htmlStr, "")
}

// truncateDataURIs shortens large base64 payloads so embedded images do
// not dominate the converted text.
func truncateDataURIs(md string) string {
	return reDataURI.ReplaceAllString(md, "${1}...")
}

func extractHTMLTitle(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
			if title != "" {
				return
			}
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}
