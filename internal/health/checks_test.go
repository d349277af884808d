package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubBucket struct{ err error }

func (s stubBucket) Check(context.Context) error { return s.err }

func TestDatabaseChecker(t *testing.T) {
	c := Database(stubPinger{})
	if c.Name != "database" {
		t.Errorf("name = %q, want database", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy pinger should pass, got %v", err)
	}

	c = Database(stubPinger{err: errors.New("connection refused")})
	if err := c.Check(context.Background()); err == nil {
		t.Error("failing pinger should propagate the error")
	}
}

func TestStorageChecker(t *testing.T) {
	c := Storage(stubBucket{})
	if c.Name != "storage" {
		t.Errorf("name = %q, want storage", c.Name)
	}
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("healthy bucket should pass, got %v", err)
	}
}

func TestEndpointChecker(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"not found still counts as up", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := Endpoint("tts", srv.URL, srv.Client())
			err := c.Check(context.Background())
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestEndpointChecker_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := Endpoint("llm", srv.URL, nil)
	if err := c.Check(context.Background()); err == nil {
		t.Error("closed server should be reported as unreachable")
	}
}
