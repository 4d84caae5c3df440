package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Dependency is one component /readyz probes. A failing required dependency
// makes the service unhealthy (503); an optional one only degrades it.
type Dependency struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// HealthStatus is the /readyz body.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	deps    []Dependency
	timeout time.Duration
}

func NewHealthHandler(deps ...Dependency) *HealthHandler {
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	return &HealthHandler{deps: deps, timeout: 5 * time.Second}
}

// Liveness always answers 200 while the process is serving.
//
// HTTP: GET /healthz
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness probes every dependency.
//
// HTTP: GET /readyz
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Check runs every dependency probe in order.
func (h *HealthHandler) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus, len(h.deps)),
	}

	for _, dep := range h.deps {
		start := time.Now()
		err := dep.Check(ctx)
		ds := DependencyStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}

		if err != nil {
			ds.Status = StatusUnhealthy
			ds.Message = err.Error()
			switch {
			case dep.Required:
				status.Status = StatusUnhealthy
			case status.Status == StatusHealthy:
				status.Status = StatusDegraded
			}
		}
		status.Dependencies[dep.Name] = ds
	}
	return status
}
