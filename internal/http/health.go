package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/geo-cache-service/internal/circuitbreaker"
	"github.com/sony/gobreaker/v2"
)

// readinessTimeout bounds every dependency check of one readiness probe.
const readinessTimeout = 2 * time.Second

// HealthChecker defines the interface for health check operations.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function, such as a store's Ping, to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Check calls f.
func (f HealthCheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// ProviderBreaker is a provider guarded by a circuit breaker.
type ProviderBreaker interface {
	Name() string
	State() gobreaker.State
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checkers         map[string]HealthChecker
	circuitBreakers  map[string]*circuitbreaker.CircuitBreaker
	providerBreakers []ProviderBreaker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checkers:        make(map[string]HealthChecker),
		circuitBreakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// RegisterChecker adds a dependency whose failure makes the service not ready.
func (h *HealthHandler) RegisterChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// RegisterCircuitBreaker registers a circuit breaker for health monitoring.
// An open breaker makes the service not ready.
func (h *HealthHandler) RegisterCircuitBreaker(name string, cb *circuitbreaker.CircuitBreaker) {
	if cb != nil {
		h.circuitBreakers[name] = cb
	}
}

// RegisterProviderBreaker reports a provider breaker's state. Readiness
// fails only when every registered provider breaker is open.
func (h *HealthHandler) RegisterProviderBreaker(b ProviderBreaker) {
	h.providerBreakers = append(h.providerBreakers, b)
}

// Register registers health endpoints on the router.
func (h *HealthHandler) Register(router *gin.Engine) {
	router.GET("/healthz", h.Liveness)
	router.GET("/readyz", h.Readiness)
}

// Liveness handles the liveness probe endpoint.
// @Summary     Liveness probe
// @Description Returns OK if the process is running.
// @Tags        Health
// @Produce     json
// @Success     200 {object} map[string]string "Service is alive"
// @Router      /healthz [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles the readiness probe endpoint.
// @Summary     Readiness probe
// @Description Pings the cache store and reports circuit breaker states. Returns 503 when the store is unreachable, its breaker is open, or every provider breaker is open.
// @Tags        Health
// @Produce     json
// @Success     200 {object} map[string]interface{} "Service is ready"
// @Failure     503 {object} map[string]interface{} "Service is not ready"
// @Router      /readyz [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]interface{})

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	for name, checker := range h.checkers {
		if err := checker.Check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	for name, cb := range h.circuitBreakers {
		checks[name+"_circuit"] = cb.State().String()
		if cb.IsOpen() {
			status = http.StatusServiceUnavailable
		}
	}

	open := 0
	for _, b := range h.providerBreakers {
		state := b.State()
		checks["provider_"+b.Name()+"_circuit"] = state.String()
		if state == gobreaker.StateOpen {
			open++
		}
	}
	if open > 0 && open == len(h.providerBreakers) {
		status = http.StatusServiceUnavailable
	}

	if len(checks) == 0 {
		checks["service"] = "ok"
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"checks": checks,
	})
}
