package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/ke2007/MarkdownShare/internal/startup"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{
		Status:       "healthy",
		Version:      startup.Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	})
}

// GetVersion returns build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, startup.GetBuildInfo())
}
