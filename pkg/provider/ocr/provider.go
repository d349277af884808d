// Package ocr defines the Provider interface for PDF text extraction backends.
//
// An OCR provider accepts the raw bytes of an uploaded PDF and returns the
// document's text as a single string, pages concatenated in page order. No
// guarantee is made about content correctness (extraction is best-effort),
// but page order is always preserved.
//
// Implementors must be safe for concurrent use.
package ocr

import "context"

// Provider is the abstraction over any PDF text extraction backend.
type Provider interface {
	// ExtractText parses pdf and returns its text content with pages
	// concatenated in page order.
	//
	// Returns an error if the input cannot be parsed as a PDF or if page
	// rendering/recognition fails. Implementations must propagate ctx
	// cancellation promptly.
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}
