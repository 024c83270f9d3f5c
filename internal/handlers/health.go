package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Sessions  int              `json:"sessions"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint. The bridge is the only hard
// dependency; the audit store degrades the status but is not required.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	if h.bridge != nil {
		start := time.Now()
		if err := h.bridge.Ping(ctx); err != nil {
			checks["bridge"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["bridge"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["bridge"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	if h.audit != nil {
		start := time.Now()
		if err := h.audit.Ping(ctx); err != nil {
			checks["audit"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["audit"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    status,
		Version:   version,
		Sessions:  h.sessions.Len(),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "SquareWire",
		Version: version,
	})
}
