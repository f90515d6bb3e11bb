package processor

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the JSON body served by ReadinessHandler, grounded on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/core/health.go (same two-endpoint shape, same status/uptime
// convention): unhealthy while Idle, degraded while Calibrating (the
// pipeline is up but not yet emitting points), healthy while Processing.
type HealthStatus struct {
	Status        string `json:"status"`
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (p *Processor) healthStatus() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := "healthy"
	switch p.state {
	case Idle:
		status = "unhealthy"
	case Calibrating:
		status = "degraded"
	}

	var uptime int64
	if !p.startedAt.IsZero() {
		uptime = int64(time.Since(p.startedAt).Seconds())
	}

	return HealthStatus{Status: status, State: p.state.String(), UptimeSeconds: uptime}
}

// LivenessHandler answers /health: 200 as long as the process can run
// this handler at all, matching spec.md's "liveness" reading of C15.
func (p *Processor) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"status": "alive"})
}

// ReadinessHandler answers /readiness with HealthStatus, returning 503
// only while Idle.
func (p *Processor) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := p.healthStatus()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
