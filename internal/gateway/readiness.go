package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ComponentStatus reports one dependency's readiness.
type ComponentStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// ReadinessResult aggregates component readiness for /readyz.
type ReadinessResult struct {
	Ready      bool              `json:"ready"`
	Components []ComponentStatus `json:"components"`
}

// handleHealth is liveness: the process is up and serving.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: g.config.Version,
		Uptime:  time.Since(g.startedAt).Round(time.Second).String(),
	})
}

// handleReadyz is readiness: the history repository must answer and at
// least one execution engine must be available.
func (g *Gateway) handleReadyz(w http.ResponseWriter, r *http.Request) {
	result := ReadinessResult{Ready: true}

	repoStatus := ComponentStatus{Name: "history_repository", Ready: true}
	if err := g.repo.CheckConnectivity(r.Context()); err != nil {
		repoStatus.Ready = false
		repoStatus.Detail = err.Error()
		result.Ready = false
	}
	result.Components = append(result.Components, repoStatus)

	engStatus := ComponentStatus{Name: "engines", Ready: true}
	available := g.router.AvailableEngines()
	if len(available) == 0 {
		engStatus.Ready = false
		engStatus.Detail = "no execution engine available"
		result.Ready = false
	}
	result.Components = append(result.Components, engStatus)

	genStatus := ComponentStatus{Name: "generator", Ready: true, Detail: g.generator.Name()}
	result.Components = append(result.Components, genStatus)

	status := http.StatusOK
	if !result.Ready {
		status = http.StatusServiceUnavailable
	}
	g.writeJSON(w, status, result)
}
