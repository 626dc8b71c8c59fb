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

// IpynbImporter converts Jupyter notebooks. Markdown cells go through the
// markdown pipeline, code cells become code blocks tagged with the kernel
// language, and textual outputs become untagged code blocks.
type IpynbImporter struct {
	markdown *MarkdownImporter
}

// NewIpynbImporter creates an IpynbImporter.
func NewIpynbImporter(markdown *MarkdownImporter) *IpynbImporter {
	return &IpynbImporter{markdown: markdown}
}

func (imp *IpynbImporter) Name() string { return "ipynb" }

func (imp *IpynbImporter) SupportedFormats() []string { return []string{"ipynb"} }

func (imp *IpynbImporter) Detect(input []byte) bool {
	trimmed := bytes.TrimLeft(input, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		Cells    json.RawMessage `json:"cells"`
		NBFormat int             `json:"nbformat"`
	}
	if err := json.Unmarshal(input, &probe); err != nil {
		return false
	}
	return probe.Cells != nil && probe.NBFormat > 0
}

type notebook struct {
	Cells    []notebookCell `json:"cells"`
	Metadata struct {
		KernelSpec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
	} `json:"metadata"`
}

type notebookCell struct {
	CellType string           `json:"cell_type"`
	Source   json.RawMessage  `json:"source"`
	Outputs  []notebookOutput `json:"outputs"`
}

type notebookOutput struct {
	OutputType string                     `json:"output_type"`
	Text       json.RawMessage            `json:"text"`
	Data       map[string]json.RawMessage `json:"data"`
}

func (imp *IpynbImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	var nb notebook
	if err := json.Unmarshal(input, &nb); err != nil {
		return nil, &ConversionError{Code: CodeInvalidJSON, Message: "parse notebook", Err: err}
	}

	language := nb.Metadata.KernelSpec.Language
	if language == "" {
		language = "python"
	}

	meta := DocumentMetadata{Source: "ipynb"}
	var blocks []Block
	for _, cell := range nb.Cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		source := cellSource(cell.Source)

		switch cell.CellType {
		case "markdown":
			if meta.Title == "" {
				meta.Title = notebookTitle(source)
			}
			sub := opts
			sub.Importer = ""
			sub.IncludeSourceMap = false
			doc, err := imp.markdown.Import(ctx, []byte(source), sub)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, doc.Content...)
		case "code":
			if strings.TrimSpace(source) != "" {
				blocks = append(blocks, NewCodeBlock(source, language, ""))
			}
			for _, out := range cell.Outputs {
				if text := outputText(out); text != "" {
					blocks = append(blocks, NewCodeBlock(text, "", ""))
				}
			}
		case "raw":
			if strings.TrimSpace(source) != "" {
				blocks = append(blocks, NewCodeBlock(source, "", ""))
			}
		}
	}

	if blocks == nil {
		blocks = []Block{}
	}
	return &ConvertedDocument{Content: blocks, Metadata: meta}, nil
}

// cellSource decodes a notebook source field, which is either a string or
// a list of line strings that already carry their newlines.
func cellSource(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err == nil {
		return strings.Join(parts, "")
	}
	return ""
}

// outputText extracts the displayable text of a cell output: the text
// field when present, otherwise the text/plain representation.
func outputText(out notebookOutput) string {
	if text := cellSource(out.Text); text != "" {
		return strings.TrimRight(text, "\n")
	}
	if data, ok := out.Data["text/plain"]; ok {
		if text := cellSource(data); text != "" {
			return strings.TrimRight(text, "\n")
		}
	}
	return ""
}

// notebookTitle returns the first H1 line of a markdown cell, if any.
func notebookTitle(source string) string {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
