package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	llmmock "github.com/unipodhq/unipod/pkg/provider/llm/mock"
)

func TestGeneratorBuildsPrompt(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{CompleteContent: "Jordan: hi\nTaylor: hello"}
	g, err := NewGenerator(provider, "Jordan", "Taylor")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	raw, err := g.Generate(context.Background(), "Cats are great.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if raw != "Jordan: hi\nTaylor: hello" {
		t.Errorf("raw = %q", raw)
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("got %d completion calls, want 1", len(provider.CompleteCalls))
	}
	req := provider.CompleteCalls[0]
	if !strings.Contains(req.SystemPrompt, "Jordan") || !strings.Contains(req.SystemPrompt, "Taylor") {
		t.Errorf("system prompt missing host names: %q", req.SystemPrompt)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Cats are great." {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestGeneratorSingleAttempt(t *testing.T) {
	t.Parallel()

	provider := &llmmock.Provider{CompleteErr: errors.New("connection refused")}
	g, err := NewGenerator(provider, "Jordan", "Taylor")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}

	if _, err := g.Generate(context.Background(), "text"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(provider.CompleteCalls) != 1 {
		t.Errorf("got %d completion calls, want exactly 1", len(provider.CompleteCalls))
	}
}

func TestGeneratorEmptyInput(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&llmmock.Provider{}, "Jordan", "Taylor")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := g.Generate(context.Background(), ""); err == nil {
		t.Error("expected error for empty document text")
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	t.Parallel()

	g, err := NewGenerator(&llmmock.Provider{CompleteContent: ""}, "Jordan", "Taylor")
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := g.Generate(context.Background(), "text"); err == nil {
		t.Error("expected error for empty model response")
	}
}
