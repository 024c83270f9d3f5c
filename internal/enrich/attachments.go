package enrich

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/squarewire/squarewire/internal/metrics"
	"github.com/squarewire/squarewire/internal/platform"
)

// defaultImageMime is used when the platform reports no MIME type for an
// image attachment.
const defaultImageMime = "image/jpeg"

// attachmentConcurrency bounds parallel attachment fetches per batch.
const attachmentConcurrency = 4

// EnrichedEvent is a raw event augmented with the sender's resolved display
// name and, for image messages, the inlined attachment as a data URI.
// Derived per request, never persisted.
type EnrichedEvent struct {
	platform.SquareEvent
	DisplayName  string `json:"displayName,omitempty"`
	ImageDataURI string `json:"imageDataUri,omitempty"`
}

// MaterializeAttachments produces the enriched batch for events. Image
// attachments are fetched at preview resolution and inlined; the per-event
// fetches run concurrently and are independent, so one failure leaves only
// its own event unmodified.
func MaterializeAttachments(ctx context.Context, client platform.Client, events []platform.SquareEvent, logger zerolog.Logger) []EnrichedEvent {
	enriched := make([]EnrichedEvent, len(events))
	for i := range events {
		enriched[i] = EnrichedEvent{SquareEvent: events[i]}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(attachmentConcurrency)

	for i := range enriched {
		msg := enriched[i].SquareEvent.Message()
		if !msg.IsImage() || msg.ID == "" {
			continue
		}
		ev := &enriched[i]
		id := msg.ID
		g.Go(func() error {
			start := time.Now()
			att, err := client.DownloadAttachment(gctx, id, true)
			metrics.AttachmentFetchDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.AttachmentFailures.Inc()
				logger.Warn().Err(err).Str("message_id", id).
					Msg("attachment fetch failed, returning event unmodified")
				return nil
			}
			ev.ImageDataURI = DataURI(att)
			return nil
		})
	}

	// Workers only ever return nil; failures degrade per event.
	_ = g.Wait()
	return enriched
}

// DataURI encodes an attachment as a self-describing base64 data URI.
func DataURI(att *platform.Attachment) string {
	mime := att.MimeType
	if mime == "" {
		mime = defaultImageMime
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
}

// StampDisplayNames fills each enriched event's DisplayName from the
// resolved profile of its sender. Events whose sender is unknown keep an
// empty display name; that is not an error.
func StampDisplayNames(events []EnrichedEvent, profiles map[string]*platform.Profile) {
	for i := range events {
		pid := senderOf(&events[i].SquareEvent)
		if pid == "" {
			continue
		}
		if p, ok := profiles[pid]; ok && p != nil {
			events[i].DisplayName = p.DisplayName
		}
	}
}

// senderOf returns the participant this event is about, using the same
// per-tag extraction as ExtractParticipantIDs.
func senderOf(e *platform.SquareEvent) string {
	if e.Payload == nil {
		return ""
	}
	extract, ok := extractors[e.Type]
	if !ok {
		return ""
	}
	return extract(e.Payload)
}
