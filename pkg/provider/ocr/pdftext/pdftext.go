// Package pdftext provides an OCR provider that reads the embedded text layer
// of born-digital PDFs via github.com/ledongthuc/pdf. It implements the
// ocr.Provider interface.
//
// No rasterisation or recognition happens here: scanned documents without a
// text layer yield little or no text. Use the tesseract provider for those.
// pdftext is the right choice when the deployment has no OCR service and the
// uploaded documents are machine-generated (papers, slides, reports).
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/unipodhq/unipod/pkg/provider/ocr"
)

// Compile-time interface assertion.
var _ ocr.Provider = (*Provider)(nil)

// Provider implements ocr.Provider by reading the PDF's embedded text layer.
// The zero value is ready to use and safe for concurrent use.
type Provider struct{}

// New creates a new embedded-text extraction Provider.
func New() *Provider {
	return &Provider{}
}

// ExtractText implements ocr.Provider. Pages are concatenated in page order
// by the underlying reader.
func (p *Provider) ExtractText(ctx context.Context, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("pdftext: pdf input is empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("pdftext: parse pdf: %w", err)
	}

	textReader, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdftext: extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("pdftext: read text: %w", err)
	}
	return buf.String(), nil
}
