package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clavrr/clavr/internal/store"
)

// Health status values.
const (
	healthStatusOK       = "ok"
	healthStatusNotReady = "not ready"
)

// HealthChecker serves the liveness and readiness probes.
type HealthChecker struct {
	ready     atomic.Bool
	store     *store.Store
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker. Readiness starts false and is
// flipped when the API listener comes up.
func NewHealthChecker(st *store.Store) *HealthChecker {
	return &HealthChecker{
		store:     st,
		startTime: time.Now(),
	}
}

// SetReady flips the readiness state.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthResponse is the JSON body of the probe endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Register mounts /healthz and /readyz.
func (h *HealthChecker) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.liveness)
	engine.GET("/readyz", h.readiness)
}

// liveness reports that the process is running. A failing liveness probe
// restarts the pod, so nothing beyond process health is checked here.
func (h *HealthChecker) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: healthStatusOK,
		Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
	})
}

// readiness reports whether traffic should be routed here: the listener must
// be up and the database reachable.
func (h *HealthChecker) readiness(c *gin.Context) {
	checks := make(map[string]string)
	allOk := true

	if h.ready.Load() {
		checks["ready"] = healthStatusOK
	} else {
		checks["ready"] = healthStatusNotReady
		allOk = false
	}

	checks["database"] = healthStatusOK
	if err := h.pingDB(); err != nil {
		checks["database"] = err.Error()
		allOk = false
	}

	resp := HealthResponse{Status: healthStatusOK, Checks: checks}
	code := http.StatusOK
	if !allOk {
		resp.Status = healthStatusNotReady
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (h *HealthChecker) pingDB() error {
	if h.store == nil {
		return nil
	}
	sqlDB, err := h.store.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
