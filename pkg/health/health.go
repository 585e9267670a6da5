// Package health exposes liveness and readiness endpoints. Checkers register
// as critical (their failure takes readiness to 503) or non-critical (their
// failure degrades the report but keeps the service ready).
package health

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"
)

// readinessTimeout bounds one full pass over the registered checkers.
const readinessTimeout = 5 * time.Second

// Checker probes a single dependency.
type Checker func(ctx context.Context) error

// Status is the reported health of a component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Response is the JSON body returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single dependency probe.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type registration struct {
	checker  Checker
	critical bool
}

// Handler serves the health endpoints over the registered checkers.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]registration
}

func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]registration)}
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = registration{checker: checker, critical: critical}
}

// RegisterCritical adds a checker whose failure makes the service not ready.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterNonCritical adds a checker whose failure degrades the report but
// keeps readiness at 200.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.register(name, checker, false)
}

// Register adds a critical checker. Kept as the short form for the common
// case.
func (h *Handler) Register(name string, checker Checker) {
	h.register(name, checker, true)
}

// snapshot copies the registrations so checks run without holding the lock.
func (h *Handler) snapshot() map[string]registration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return maps.Clone(h.checkers)
}

// evaluate runs every registered checker and aggregates the overall status.
func (h *Handler) evaluate(ctx context.Context) Response {
	snapshot := h.snapshot()
	checks := make(map[string]CheckResult, len(snapshot))
	overall := StatusUp

	for name, reg := range snapshot {
		result := CheckResult{Status: StatusUp, Critical: reg.critical}
		if err := reg.checker(ctx); err != nil {
			result.Status = StatusDown
			result.Error = err.Error()
			overall = downgrade(overall, reg.critical)
		}
		checks[name] = result
	}

	return Response{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

// downgrade folds one failed check into the overall status. Critical failures
// win over degraded.
func downgrade(current Status, critical bool) Status {
	if critical {
		return StatusDown
	}
	if current == StatusUp {
		return StatusDegraded
	}
	return current
}

// LivenessHandler reports 200 whenever the process can serve requests at all.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, http.StatusOK, Response{
			Status:    StatusUp,
			Timestamp: time.Now().UTC(),
		})
	}
}

// ReadinessHandler runs all registered checkers. A failed critical check
// returns 503; failed non-critical checks keep the 200 with status
// "degraded".
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := h.evaluate(ctx)
		code := http.StatusOK
		if resp.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		writeResponse(w, code, resp)
	}
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
