package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/session"
	"github.com/squarewire/squarewire/internal/store"
)

// Pinger reports reachability of the protocol sidecar.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	sessions *session.Store
	audit    store.AuditStore // nil when auditing is disabled
	bridge   Pinger           // nil in tests
	logger   zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(sessions *session.Store, audit store.AuditStore, bridge Pinger, logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, audit: audit, bridge: bridge, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// tokenState is the credential portion of every session-using response.
// TokenChanged reports whether the response credential differs from the
// one the request presented.
type tokenState struct {
	UpdatedAuthToken    string `json:"updatedAuthToken"`
	UpdatedRefreshToken string `json:"updatedRefreshToken"`
	TokenChanged        bool   `json:"tokenChanged"`
}

// tokenStateFor captures the session's current (possibly rotated)
// credentials relative to the pair the request presented.
func tokenStateFor(pair session.Pair, sess platform.Session) tokenState {
	access := sess.AccessToken()
	refresh := sess.RefreshToken()
	return tokenState{
		UpdatedAuthToken:    access,
		UpdatedRefreshToken: refresh,
		TokenChanged:        access != pair.Access || refresh != pair.Refresh,
	}
}

// recordAudit persists a moderation-action audit entry. Best-effort: a
// store failure is logged and never fails the action response.
func (h *Handler) recordAudit(ctx context.Context, entry *store.AuditEntry) {
	if h.audit == nil {
		return
	}
	if err := h.audit.RecordAction(ctx, entry); err != nil {
		h.logger.Warn().Err(err).Str("action", entry.Action).Msg("audit record failed")
	}
}
