// Package tesseract provides an OCR provider backed by a locally-reachable
// OCR HTTP service (pdf2image + tesseract behind a small REST front).
// It implements the ocr.Provider interface.
//
// The service renders every PDF page to a raster image, runs recognition per
// page, and returns the recognised text as an ordered page list:
//
//	POST /ocr            multipart form, field "pdf"
//	200 OK               {"pages": ["page one text", "page two text", ...]}
//
// Pages are concatenated in response order, which the service guarantees to
// be page order.
package tesseract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/unipodhq/unipod/pkg/provider/ocr"
)

// Compile-time interface assertion.
var _ ocr.Provider = (*Provider)(nil)

const (
	defaultTimeout = 120 * time.Second

	ocrEndpoint = "/ocr"
)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 120 s; rendering
// and recognising a long document is slow.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithLanguage sets the recognition language hint forwarded to the service
// (e.g., "eng", "deu"). When empty the service default is used.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// Provider implements ocr.Provider backed by an OCR HTTP service.
// It is safe for concurrent use.
type Provider struct {
	serverURL  string
	language   string
	httpClient *http.Client
}

// New creates a Provider targeting the OCR service at serverURL
// (e.g., "http://localhost:8884"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("tesseract: serverURL must not be empty")
	}
	p := &Provider{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ocrResponse is the JSON body returned by POST /ocr.
type ocrResponse struct {
	Pages []string `json:"pages"`
}

// ExtractText implements ocr.Provider. It uploads the PDF and concatenates
// the recognised pages in order.
func (p *Provider) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", errors.New("tesseract: pdf input is empty")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("pdf", "document.pdf")
	if err != nil {
		return "", fmt.Errorf("tesseract: create form file: %w", err)
	}
	if _, err := fw.Write(pdf); err != nil {
		return "", fmt.Errorf("tesseract: write form file: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language", p.language); err != nil {
			return "", fmt.Errorf("tesseract: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("tesseract: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+ocrEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("tesseract: create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tesseract: POST %s: %w", ocrEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tesseract: POST %s returned status %d", ocrEndpoint, resp.StatusCode)
	}

	var ocrResp ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return "", fmt.Errorf("tesseract: decode ocr response: %w", err)
	}

	var sb strings.Builder
	for _, page := range ocrResp.Pages {
		sb.WriteString(page)
	}
	return sb.String(), nil
}
