package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds how long the readiness probe waits on all
// dependency checks combined.
const checkTimeout = 5 * time.Second

// Checker probes the health of one dependency.
type Checker func(ctx context.Context) error

// Status is the health state of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Response is the JSON payload of the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single health check.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Handler serves liveness and readiness endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewHandler creates an empty health handler.
func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]Checker)}
}

// Register adds a named dependency checker.
func (h *Handler) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Checker, len(h.checkers))
	for name, c := range h.checkers {
		out[name] = c
	}
	return out
}

// runChecks executes every registered checker and reports the overall
// status alongside per-dependency results.
func (h *Handler) runChecks(ctx context.Context) (Status, map[string]CheckResult) {
	checkers := h.snapshot()
	results := make(map[string]CheckResult, len(checkers))
	overall := StatusUp

	for name, check := range checkers {
		result := CheckResult{Status: StatusUp}
		if err := check(ctx); err != nil {
			result = CheckResult{Status: StatusDown, Error: err.Error()}
			overall = StatusDown
		}
		results[name] = result
	}

	return overall, results
}

func writeHealth(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// LivenessHandler always reports up while the process is running.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler checks every registered dependency and returns 200
// when all are up, 503 otherwise.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		overall, checks := h.runChecks(ctx)

		status := http.StatusOK
		if overall == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeHealth(w, status, Response{
			Status:    overall,
			Timestamp: time.Now().UTC(),
			Checks:    checks,
		})
	}
}
