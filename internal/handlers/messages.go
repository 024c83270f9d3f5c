package handlers

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/squarewire/squarewire/internal/enrich"
	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/store"
)

// messageFetchLimit is how many raw events one messages action fetches.
const messageFetchLimit = 20

// listSquares handles the "squares" action.
func (h *Handler) listSquares(ctx context.Context, client platform.Client) (*actionResponse, error) {
	squares, err := client.ListJoinedSquares(ctx, 100)
	if err != nil {
		return nil, err
	}
	return &actionResponse{Result: squares}, nil
}

// listMessages handles the "messages" action: fetch raw events, extract the
// referenced participants, resolve their profiles, materialize attachments,
// and stamp display names. Steps run strictly in order; only the per-event
// attachment fetches inside the batch are concurrent.
func (h *Handler) listMessages(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareChatMid == "" {
		return nil, missingField("squareChatMid")
	}

	events, err := client.ListMessages(ctx, req.SquareChatMid, messageFetchLimit)
	if err != nil {
		return nil, err
	}

	pids := enrich.ExtractParticipantIDs(events)
	profiles := enrich.ResolveProfiles(ctx, client, req.SquareChatMid, pids, h.logger)
	enriched := enrich.MaterializeAttachments(ctx, client, events, h.logger)
	enrich.StampDisplayNames(enriched, profiles)

	return &actionResponse{Events: enriched, Profiles: profiles}, nil
}

// sendMessage handles the "send" and "replyToMessage" actions. A fresh ULID
// is assigned as the client message ID so the sidecar can deduplicate
// resubmissions.
func (h *Handler) sendMessage(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareChatMid == "" {
		return nil, missingField("squareChatMid")
	}
	if req.Text == "" {
		return nil, missingField("text")
	}

	clientMessageID := ulid.Make().String()
	msg, err := client.SendMessage(ctx, req.SquareChatMid, req.Text, req.RelatedMessageID, clientMessageID)
	if err != nil {
		return nil, err
	}

	h.recordAudit(ctx, &store.AuditEntry{
		Action:         req.Action,
		SquareMid:      req.SquareChatMid,
		CredentialHash: store.HashCredential(req.accessToken()),
		Detail:         clientMessageID,
	})

	return &actionResponse{Message: msg}, nil
}
