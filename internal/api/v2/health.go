package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const healthPingTimeout = 2 * time.Second

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status         string        `json:"status"`
	Timestamp      string        `json:"timestamp"`
	DatabaseStatus string        `json:"database_status"`
	DatabaseError  string        `json:"database_error,omitempty"`
	Uptime         string        `json:"uptime"`
	UptimeSeconds  float64       `json:"uptime_seconds"`
	System         SystemMetrics `json:"system"`
}

// SystemMetrics holds host resource usage. Fields are zero when the host
// does not expose them.
type SystemMetrics struct {
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsed      float64 `json:"memory_used_percent"`
	MemoryTotalMB   float64 `json:"memory_total_mb"`
	MediaDiskUsed   float64 `json:"media_disk_used_percent"`
	MediaDiskFreeMB float64 `json:"media_disk_free_mb"`
	NumGoroutine    int     `json:"num_goroutine"`
}

// HealthCheck handles GET /api/v2/health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	response := HealthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().Format(time.RFC3339),
		DatabaseStatus: "connected",
		Uptime:         uptime.String(),
		UptimeSeconds:  uptime.Seconds(),
		System:         c.systemMetrics(),
	}

	if c.ping != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthPingTimeout)
		defer cancel()
		if err := c.ping(pingCtx); err != nil {
			response.Status = "degraded"
			response.DatabaseStatus = "disconnected"
			response.DatabaseError = err.Error()
			return ctx.JSON(http.StatusServiceUnavailable, response)
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

func (c *Controller) systemMetrics() SystemMetrics {
	metrics := SystemMetrics{NumGoroutine: runtime.NumGoroutine()}

	// Interval 0 compares against the previous call and does not block.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.CPUUsage = percents[0]
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		metrics.MemoryUsed = memInfo.UsedPercent
		metrics.MemoryTotalMB = float64(memInfo.Total) / 1024 / 1024
	}
	if c.Settings != nil && c.Settings.Media.Path != "" {
		if usage, err := disk.Usage(c.Settings.Media.Path); err == nil {
			metrics.MediaDiskUsed = usage.UsedPercent
			metrics.MediaDiskFreeMB = float64(usage.Free) / 1024 / 1024
		}
	}
	return metrics
}
