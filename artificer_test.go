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
	"encoding/json"
	"slices"
	"testing"
)

// stubImporter is a minimal plugin for registry tests.
type stubImporter struct {
	name    string
	detects bool
}

func (s *stubImporter) Name() string               { return s.name }
func (s *stubImporter) SupportedFormats() []string { return []string{s.name} }
func (s *stubImporter) Detect(input []byte) bool   { return s.detects }

func (s *stubImporter) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	return &ConvertedDocument{
		Content:  []Block{NewTextBlock(s.name, StyleNormal)},
		Metadata: DocumentMetadata{Source: s.name},
	}, nil
}

type stubExporter struct {
	name   string
	format string
	out    string
}

func (s *stubExporter) Name() string         { return s.name }
func (s *stubExporter) TargetFormat() string { return s.format }

func (s *stubExporter) Export(ctx context.Context, doc *ConvertedDocument, opts ExportOptions) (string, error) {
	return s.out, nil
}

func TestRegisterImporterDuplicate(t *testing.T) {
	reg := New(WithoutBuiltins())

	first := &stubImporter{name: "dup"}
	if err := reg.RegisterImporter(first, false); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	second := &stubImporter{name: "dup"}
	err := reg.RegisterImporter(second, false)
	if !IsCode(err, CodeDuplicatePlugin) {
		t.Fatalf("duplicate registration error = %v, want DUPLICATE_PLUGIN", err)
	}

	if err := reg.RegisterImporter(second, true); err != nil {
		t.Fatalf("overwrite registration: %v", err)
	}
	got, ok := reg.GetImporter("dup")
	if !ok {
		t.Fatal("GetImporter after overwrite: not found")
	}
	if got != second {
		t.Error("GetImporter after overwrite returned the original plugin")
	}
}

func TestDetectImporterFirstRegisteredWins(t *testing.T) {
	reg := New(WithoutBuiltins())
	a := &stubImporter{name: "a", detects: true}
	b := &stubImporter{name: "b", detects: true}
	if err := reg.RegisterImporter(a, false); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterImporter(b, false); err != nil {
		t.Fatal(err)
	}

	// Deterministic across repeated calls.
	for i := 0; i < 10; i++ {
		got, err := reg.DetectImporter([]byte("anything"))
		if err != nil {
			t.Fatalf("DetectImporter: %v", err)
		}
		if got != a {
			t.Fatalf("DetectImporter returned %q, want %q", got.Name(), a.name)
		}
	}

	// Overwriting keeps the original slot, so a replacement for "a" still
	// wins over "b".
	a2 := &stubImporter{name: "a", detects: true}
	if err := reg.RegisterImporter(a2, true); err != nil {
		t.Fatal(err)
	}
	got, err := reg.DetectImporter([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if got != a2 {
		t.Fatalf("DetectImporter after overwrite returned %q, want replacement for a", got.Name())
	}

	if !reg.UnregisterImporter("a") {
		t.Fatal("UnregisterImporter(a) = false")
	}
	got, err = reg.DetectImporter([]byte("anything"))
	if err != nil {
		t.Fatal(err)
	}
	if got != b {
		t.Fatalf("DetectImporter after unregister returned %q, want b", got.Name())
	}

	reg.Clear()
	_, err = reg.DetectImporter([]byte("anything"))
	if !IsCode(err, CodeDetectionFailed) {
		t.Fatalf("DetectImporter on empty registry = %v, want DETECTION_FAILED", err)
	}
}

func TestImportDispatch(t *testing.T) {
	reg := New(WithoutBuiltins())
	a := &stubImporter{name: "a"}
	if err := reg.RegisterImporter(a, false); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	doc, err := reg.Import(ctx, []byte("x"), ImportOptions{Importer: "a"})
	if err != nil {
		t.Fatalf("named import: %v", err)
	}
	if doc.Metadata.Source != "a" {
		t.Errorf("named import dispatched to %q, want a", doc.Metadata.Source)
	}

	_, err = reg.Import(ctx, []byte("x"), ImportOptions{Importer: "missing"})
	if !IsCode(err, CodeImporterNotFound) {
		t.Errorf("unknown importer error = %v, want IMPORTER_NOT_FOUND", err)
	}

	// "a" does not detect, so auto-detection has nothing to match.
	_, err = reg.Import(ctx, []byte("x"), ImportOptions{})
	if !IsCode(err, CodeDetectionFailed) {
		t.Errorf("undetectable input error = %v, want DETECTION_FAILED", err)
	}
}

func TestExportDispatch(t *testing.T) {
	reg := New(WithoutBuiltins())
	e := &stubExporter{name: "fancy", format: "fancy", out: "rendered"}
	if err := reg.RegisterExporter(e, false); err != nil {
		t.Fatal(err)
	}

	if err := reg.RegisterExporter(&stubExporter{name: "fancy"}, false); !IsCode(err, CodeDuplicatePlugin) {
		t.Errorf("duplicate exporter error = %v, want DUPLICATE_PLUGIN", err)
	}

	ctx := context.Background()
	doc := &ConvertedDocument{Content: []Block{}}

	out, err := reg.Export(ctx, doc, ExportOptions{Format: "fancy"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if out != "rendered" {
		t.Errorf("Export = %q, want %q", out, "rendered")
	}

	_, err = reg.Export(ctx, doc, ExportOptions{Format: "nope"})
	if !IsCode(err, CodeExporterNotFound) {
		t.Errorf("unknown format error = %v, want EXPORTER_NOT_FOUND", err)
	}
}

// An empty Format falls back to the canonical json exporter.
func TestExportDefaultFormat(t *testing.T) {
	ctx := context.Background()
	doc := &ConvertedDocument{Content: []Block{NewTextBlock("hello", StyleNormal)}}

	out, err := New().Export(ctx, doc, ExportOptions{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var blocks []Block
	if err := json.Unmarshal([]byte(out), &blocks); err != nil {
		t.Fatalf("default output is not canonical json: %v\n%s", err, out)
	}
	if len(blocks) != 1 || blocks[0].Text() != "hello" {
		t.Errorf("round-tripped blocks = %+v", blocks)
	}

	_, err = New(WithoutBuiltins()).Export(ctx, doc, ExportOptions{})
	if !IsCode(err, CodeExporterNotFound) {
		t.Errorf("empty registry error = %v, want EXPORTER_NOT_FOUND", err)
	}
}

func TestBuiltinRegistration(t *testing.T) {
	reg := New()

	wantImporters := []string{
		"notion", "roam", "ipynb", "zip", "pdf", "xlsx", "xls",
		"feed", "html", "markdown", "csv", "plaintext",
	}
	if got := reg.ListImporters(); !slices.Equal(got, wantImporters) {
		t.Errorf("ListImporters() = %v, want %v", got, wantImporters)
	}

	wantExporters := []string{"markdown", "json"}
	if got := reg.ListExporters(); !slices.Equal(got, wantExporters) {
		t.Errorf("ListExporters() = %v, want %v", got, wantExporters)
	}

	empty := New(WithoutBuiltins())
	if got := empty.ListImporters(); len(got) != 0 {
		t.Errorf("WithoutBuiltins ListImporters() = %v, want empty", got)
	}
}
