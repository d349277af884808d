// Package health reports whether a UniPod instance can accept podcast runs.
//
// Two probes are served:
//
//   - /healthz: liveness. A process that can answer HTTP is alive; this
//     always returns 200.
//   - /readyz: readiness. Returns 200 only while every registered dependency
//     probe (database, episode bucket, provider endpoints) passes, 503
//     otherwise.
//
// The readiness body names each probe with its outcome so an operator can
// see which dependency is down without reading logs.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds one dependency probe. A dependency that cannot answer
// within this window is treated as down.
const probeTimeout = 5 * time.Second

// Checker is one named dependency probe. Check returns nil while the
// dependency can serve a pipeline run and an error describing why not
// otherwise. It must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// probeResult is the per-dependency entry in the readiness body.
type probeResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// report is the response body for both probes.
type report struct {
	Service string                 `json:"service"`
	Status  string                 `json:"status"`
	Checks  map[string]probeResult `json:"checks,omitempty"`
}

// Handler serves the liveness and readiness probes. Safe for concurrent use;
// the probe list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given probes. /readyz evaluates them
// sequentially in the order given on every request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz answers the liveness probe. Always 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Service: "unipod", Status: "ok"})
}

// Readyz answers the readiness probe: 200 while every dependency probe
// passes, 503 with the failing probes named otherwise. Each probe runs under
// its own [probeTimeout] derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{
		Service: "unipod",
		Status:  "ok",
		Checks:  make(map[string]probeResult, len(h.checkers)),
	}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			rep.Checks[c.Name] = probeResult{Status: "fail", Error: err.Error()}
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			rep.Checks[c.Name] = probeResult{Status: "ok"}
		}
	}

	writeJSON(w, status, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
