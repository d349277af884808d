// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider to return scripted completion content and to verify the
// requests sent by the script generator.
package mock

import (
	"context"
	"sync"

	"github.com/unipodhq/unipod/pkg/provider/llm"
)

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// CompleteContent is the Content of the response returned by Complete.
	CompleteContent string

	// CompleteErr, if non-nil, is returned by Complete instead of a response.
	CompleteErr error

	// CompleteCalls records every request passed to Complete, in order.
	CompleteCalls []llm.CompletionRequest
}

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CompleteCalls = append(p.CompleteCalls, req)
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	return &llm.CompletionResponse{Content: p.CompleteContent}, nil
}
