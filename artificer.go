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

// Package artificer converts heterogeneous note and document formats into
// a single canonical block-based representation (Portable Text) through a
// plugin registry of importers and exporters.
package artificer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// Registry holds named importer and exporter plugins, performs format
// auto-detection by probing registered importers, and dispatches import
// and export calls.
//
// Detection probes importers in registration order and the first match
// wins; there is no ambiguity resolution. All registry state is guarded by
// a read-write lock, so registration and dispatch are safe under
// concurrent callers.
type Registry struct {
	mu            sync.RWMutex
	importers     map[string]ImporterPlugin
	importerOrder []string
	exporters     map[string]ExporterPlugin
	exporterOrder []string

	logger           *slog.Logger
	noBuiltins       bool
	pdfExtractor     PdfExtractor
	ocr              OCRProvider
	minTextThreshold int
	keepDataURIs     bool
}

// New creates a Registry with the built-in plugins registered, unless
// WithoutBuiltins is given.
func New(opts ...Option) *Registry {
	r := &Registry{
		importers:        map[string]ImporterPlugin{},
		exporters:        map[string]ExporterPlugin{},
		minTextThreshold: DefaultMinTextThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !r.noBuiltins {
		r.enableBuiltins()
	}
	return r
}

// RegisterImporter adds an importer under its own name. A name collision
// fails with DUPLICATE_PLUGIN unless allowOverwrite is set, in which case
// the new plugin replaces the old one in its original detection slot.
func (r *Registry) RegisterImporter(p ImporterPlugin, allowOverwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.importers[name]; exists {
		if !allowOverwrite {
			return &ConversionError{
				Code:    CodeDuplicatePlugin,
				Message: "importer already registered: " + name,
				Details: map[string]any{"name": name},
			}
		}
		r.importers[name] = p
		return nil
	}
	r.importers[name] = p
	r.importerOrder = append(r.importerOrder, name)
	return nil
}

// UnregisterImporter removes an importer, reporting whether it was
// present.
func (r *Registry) UnregisterImporter(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.importers[name]; !exists {
		return false
	}
	delete(r.importers, name)
	r.importerOrder = removeName(r.importerOrder, name)
	return true
}

// GetImporter looks an importer up by name.
func (r *Registry) GetImporter(name string) (ImporterPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.importers[name]
	return p, ok
}

// ListImporters returns the registered importer names in registration
// order.
func (r *Registry) ListImporters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.importerOrder))
	copy(out, r.importerOrder)
	return out
}

// DetectImporter returns the first registered importer whose Detect
// accepts the input, or DETECTION_FAILED when none does.
func (r *Registry) DetectImporter(input []byte) (ImporterPlugin, error) {
	r.mu.RLock()
	order := make([]string, len(r.importerOrder))
	copy(order, r.importerOrder)
	plugins := make(map[string]ImporterPlugin, len(r.importers))
	for k, v := range r.importers {
		plugins[k] = v
	}
	r.mu.RUnlock()

	for _, name := range order {
		if p := plugins[name]; p != nil && p.Detect(input) {
			return p, nil
		}
	}
	return nil, newError(CodeDetectionFailed, "no importer recognizes the input")
}

// Import converts raw input into a canonical document, dispatching to
// opts.Importer when set and running detection otherwise.
func (r *Registry) Import(ctx context.Context, input []byte, opts ImportOptions) (*ConvertedDocument, error) {
	var imp ImporterPlugin
	if opts.Importer != "" {
		p, ok := r.GetImporter(opts.Importer)
		if !ok {
			return nil, &ConversionError{
				Code:    CodeImporterNotFound,
				Message: "no importer registered under: " + opts.Importer,
				Details: map[string]any{"importer": opts.Importer},
			}
		}
		imp = p
	} else {
		p, err := r.DetectImporter(input)
		if err != nil {
			return nil, err
		}
		imp = p
	}
	return imp.Import(ctx, input, opts)
}

// RegisterExporter adds an exporter under its own name, with the same
// collision rules as RegisterImporter.
func (r *Registry) RegisterExporter(p ExporterPlugin, allowOverwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.exporters[name]; exists {
		if !allowOverwrite {
			return &ConversionError{
				Code:    CodeDuplicatePlugin,
				Message: "exporter already registered: " + name,
				Details: map[string]any{"name": name},
			}
		}
		r.exporters[name] = p
		return nil
	}
	r.exporters[name] = p
	r.exporterOrder = append(r.exporterOrder, name)
	return nil
}

// UnregisterExporter removes an exporter, reporting whether it was
// present.
func (r *Registry) UnregisterExporter(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exporters[name]; !exists {
		return false
	}
	delete(r.exporters, name)
	r.exporterOrder = removeName(r.exporterOrder, name)
	return true
}

// GetExporter looks an exporter up by name.
func (r *Registry) GetExporter(name string) (ExporterPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.exporters[name]
	return p, ok
}

// GetExporterByFormat returns the first registered exporter whose target
// format matches, or EXPORTER_NOT_FOUND.
func (r *Registry) GetExporterByFormat(format string) (ExporterPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.exporterOrder {
		if p := r.exporters[name]; p != nil && p.TargetFormat() == format {
			return p, nil
		}
	}
	return nil, &ConversionError{
		Code:    CodeExporterNotFound,
		Message: "no exporter registered for format: " + format,
		Details: map[string]any{"format": format},
	}
}

// ListExporters returns the registered exporter names in registration
// order.
func (r *Registry) ListExporters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.exporterOrder))
	copy(out, r.exporterOrder)
	return out
}

// Export renders a document through the exporter registered for
// opts.Format.
func (r *Registry) Export(ctx context.Context, doc *ConvertedDocument, opts ExportOptions) (string, error) {
	if opts.Format == "" {
		opts.Format = "json"
	}
	p, err := r.GetExporterByFormat(opts.Format)
	if err != nil {
		return "", err
	}
	return p.Export(ctx, doc, opts)
}

// Clear removes every registered plugin.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.importers = map[string]ImporterPlugin{}
	r.importerOrder = nil
	r.exporters = map[string]ExporterPlugin{}
	r.exporterOrder = nil
}

// enableBuiltins registers the built-in plugins. Registration order
// doubles as detection precedence: structured JSON and binary formats
// first, generic text formats last.
func (r *Registry) enableBuiltins() {
	md := NewMarkdownImporter(r.logger)
	html := NewHTMLImporter(md, r.keepDataURIs)

	r.mustRegisterImporter(NewNotionImporter())
	r.mustRegisterImporter(NewRoamImporter())
	r.mustRegisterImporter(NewIpynbImporter(md))
	r.mustRegisterImporter(NewZipImporter(r))
	r.mustRegisterImporter(NewPdfImporter(r.pdfExtractor, r.ocr, r.minTextThreshold))
	r.mustRegisterImporter(NewXlsxImporter())
	r.mustRegisterImporter(NewXlsImporter())
	r.mustRegisterImporter(NewFeedImporter(md))
	r.mustRegisterImporter(html)
	r.mustRegisterImporter(md)
	r.mustRegisterImporter(NewCsvImporter())
	r.mustRegisterImporter(NewPlainTextImporter())

	r.mustRegisterExporter(NewMarkdownExporter())
	r.mustRegisterExporter(NewJSONExporter())
}

func (r *Registry) mustRegisterImporter(p ImporterPlugin) {
	if err := r.RegisterImporter(p, false); err != nil {
		panic(err)
	}
}

func (r *Registry) mustRegisterExporter(p ExporterPlugin) {
	if err := r.RegisterExporter(p, false); err != nil {
		panic(err)
	}
}

// log returns the configured logger, or a discard logger when none was
// set.
func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.New(slog.DiscardHandler)
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// sniffMIME detects the MIME type of raw content. Binary importers use it
// in Detect.
func sniffMIME(data []byte) string {
	return mimetype.Detect(data).String()
}
