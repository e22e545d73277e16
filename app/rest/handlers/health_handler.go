package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName    = "account-service"
	readinessLimit = 5 * time.Second
)

// HealthChecker reports whether one dependency is reachable
type HealthChecker func(ctx context.Context) error

// HealthHandler answers liveness and readiness probes
type HealthHandler struct {
	checks  map[string]HealthChecker
	version string
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler. checks are run by the readiness
// probe, keyed by dependency name.
func NewHealthHandler(checks map[string]HealthChecker, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		version: version,
		started: time.Now(),
		logger:  logger.With("component", "health_handler"),
	}
}

// HealthResponse is the liveness body
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// ReadinessResponse lists every dependency check
type ReadinessResponse struct {
	Status    string                      `json:"status"`
	Timestamp time.Time                   `json:"timestamp"`
	Service   string                      `json:"service"`
	Checks    map[string]DependencyStatus `json:"checks"`
}

// DependencyStatus is the outcome of one check
type DependencyStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

// HealthCheck answers while the process serves requests
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.liveness("healthy"))
}

// LivenessCheck is the orchestrator liveness probe
func (h *HealthHandler) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, h.liveness("alive"))
}

// ReadinessCheck runs every dependency check concurrently and answers 503
// when any of them fails
func (h *HealthHandler) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessLimit)
	defer cancel()

	results := h.runChecks(ctx)

	ready := true
	for name, result := range results {
		if !result.Healthy {
			ready = false
			h.logger.Warn("dependency not ready", "dependency", name, "error", result.Error)
		}
	}

	response := ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Service:   serviceName,
		Checks:    results,
	}
	if !ready {
		response.Status = "not_ready"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	return c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]DependencyStatus {
	type outcome struct {
		name   string
		status DependencyStatus
	}

	outcomes := make(chan outcome, len(h.checks))
	var g errgroup.Group
	for name, check := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := check(ctx)
			status := DependencyStatus{
				Healthy: err == nil,
				Latency: time.Since(start).Round(time.Millisecond).String(),
			}
			if err != nil {
				status.Error = err.Error()
			}
			outcomes <- outcome{name: name, status: status}
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)

	results := make(map[string]DependencyStatus, len(h.checks))
	for o := range outcomes {
		results[o.name] = o.status
	}
	return results
}

func (h *HealthHandler) liveness(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Service:   serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
}
