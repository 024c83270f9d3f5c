package handlers

import (
	"net/http"
	"strconv"

	"github.com/squarewire/squarewire/internal/store"
)

// StatsResponse summarizes gateway activity from the audit log.
type StatsResponse struct {
	TotalActions   int64              `json:"total_actions"`
	ActiveSessions int                `json:"active_sessions"`
	Recent         []store.AuditEntry `json:"recent"`
}

// Stats handles the stats endpoint. Returns 404 when auditing is disabled.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		h.Error(w, http.StatusNotFound, "audit log not configured")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	total, err := h.audit.CountActions(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}

	recent, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalActions:   total,
		ActiveSessions: h.sessions.Len(),
		Recent:         recent,
	})
}
