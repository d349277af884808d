package health

import (
	"context"
	"fmt"
	"net/http"
)

// Pinger is satisfied by stores that can probe their backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a readiness check probing the persistence layer.
func Database(p Pinger) Checker {
	return Checker{Name: "database", Check: p.Ping}
}

// BucketChecker is satisfied by publishers that can probe their bucket.
type BucketChecker interface {
	Check(ctx context.Context) error
}

// Storage returns a readiness check probing the artifact store.
func Storage(b BucketChecker) Checker {
	return Checker{Name: "storage", Check: b.Check}
}

// Endpoint returns a readiness check that requires a 2xx-4xx response from
// baseURL. It reports unready only when the host is unreachable or answers
// with a server error, so provider servers without a dedicated health route
// still pass. The name should identify the provider kind ("llm", "tts", "ocr").
func Endpoint(name, baseURL string, client *http.Client) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
			if err != nil {
				return fmt.Errorf("health: build request for %q: %w", baseURL, err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("health: %s unreachable: %w", name, err)
			}
			resp.Body.Close()
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("health: %s answered %s", name, resp.Status)
			}
			return nil
		},
	}
}
