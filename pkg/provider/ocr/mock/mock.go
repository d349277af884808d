// Package mock provides a test double for the ocr.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/unipodhq/unipod/pkg/provider/ocr"
)

// Provider is a mock implementation of ocr.Provider.
type Provider struct {
	mu sync.Mutex

	// ExtractTextResult is returned by ExtractText.
	ExtractTextResult string

	// ExtractTextErr, if non-nil, is returned instead of the result.
	ExtractTextErr error

	// ExtractTextCalls records the PDF payloads passed to ExtractText.
	ExtractTextCalls [][]byte
}

// Compile-time interface assertion.
var _ ocr.Provider = (*Provider)(nil)

// ExtractText implements ocr.Provider.
func (p *Provider) ExtractText(_ context.Context, pdf []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ExtractTextCalls = append(p.ExtractTextCalls, append([]byte(nil), pdf...))
	if p.ExtractTextErr != nil {
		return "", p.ExtractTextErr
	}
	return p.ExtractTextResult, nil
}
