package artificer

import "log/slog"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for non-fatal diagnostics (frontmatter
// parse failures, skipped archive entries, OCR degradation). A nil logger
// keeps the registry silent, which is the default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithoutBuiltins skips built-in plugin registration, yielding an empty
// registry for embedders that wire their own plugin set.
func WithoutBuiltins() Option {
	return func(r *Registry) {
		r.noBuiltins = true
	}
}

// WithPdfExtractor replaces the default PDF text extractor.
func WithPdfExtractor(e PdfExtractor) Option {
	return func(r *Registry) {
		r.pdfExtractor = e
	}
}

// WithOCRProvider supplies an OCR fallback for PDFs whose directly
// extracted text falls below the minimum threshold.
func WithOCRProvider(p OCRProvider) Option {
	return func(r *Registry) {
		r.ocr = p
	}
}

// WithMinTextThreshold sets the number of directly-extracted characters
// below which the PDF importer consults the OCR provider.
func WithMinTextThreshold(n int) Option {
	return func(r *Registry) {
		r.minTextThreshold = n
	}
}

// WithKeepDataURIs configures whether HTML conversion keeps full data URIs
// (default: false, which truncates them to data:mime/type;base64...).
func WithKeepDataURIs(keep bool) Option {
	return func(r *Registry) {
		r.keepDataURIs = keep
	}
}
