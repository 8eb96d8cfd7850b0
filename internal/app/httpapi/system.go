package httpapi

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/R3E-Network/marina/internal/httputil"
)

const healthCheckTimeout = 5 * time.Second

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// InfoResponse is the body of /info.
type InfoResponse struct {
	Status     string         `json:"status"`
	Service    string         `json:"service"`
	Version    string         `json:"version"`
	Timestamp  string         `json:"timestamp"`
	Statistics map[string]any `json:"statistics,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   h.service,
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) info(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, InfoResponse{
		Status:     "active",
		Service:    h.service,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Statistics: h.statistics(),
	})
}

func (h *Handler) statistics() map[string]any {
	stats := map[string]any{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"events":         h.app.Events.Count(),
		"services":       h.app.Services(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		h.log.WithError(err).Debug("process stats unavailable")
		return stats
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		stats["rss_bytes"] = mem.RSS
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		stats["cpu_percent"] = cpu
	}
	return stats
}
