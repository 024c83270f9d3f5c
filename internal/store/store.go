package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one moderation or delivery action brokered by the
// gateway. CredentialHash identifies the acting credential without storing
// it: a sha256 prefix, never the raw token.
type AuditEntry struct {
	ID             uuid.UUID `json:"id"`
	Action         string    `json:"action"`
	SquareMid      string    `json:"square_mid,omitempty"`
	TargetMid      string    `json:"target_mid,omitempty"`
	CredentialHash string    `json:"credential_hash"`
	Detail         string    `json:"detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditStore persists the gateway action log. Both PostgresStore and
// SQLiteStore implement this interface. Recording is best-effort at the
// call sites; a store failure never fails the action response.
type AuditStore interface {
	Close()
	Ping(ctx context.Context) error

	RecordAction(ctx context.Context, entry *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
	CountActions(ctx context.Context) (int64, error)
}

// HashCredential returns the audit-safe identifier for an access token.
func HashCredential(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
