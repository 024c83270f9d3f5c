// Package enrich turns raw, heterogeneous square events into normalized,
// participant-resolved, attachment-materialized results. Everything here is
// best-effort: a failed profile or attachment lookup degrades to absent data
// and never aborts the surrounding batch.
package enrich

import "github.com/squarewire/squarewire/internal/platform"

// extractors maps each recognized event type to its participant extraction
// function. One function per tag keeps coverage checkable; events matching
// no tag contribute no identifiers.
var extractors = map[string]func(*platform.EventPayload) string{
	platform.EventReceiveMessage:       messageSender,
	platform.EventSendMessage:          messageSender,
	platform.EventMemberProfileUpdated: profileSubject,
	platform.EventMemberCreated:        createdSubject,
}

// ExtractParticipantIDs returns the deduplicated set of participant
// identifiers referenced by a raw event batch. Partially-absent payloads
// contribute nothing; they are never an error.
func ExtractParticipantIDs(events []platform.SquareEvent) map[string]struct{} {
	pids := make(map[string]struct{})
	for i := range events {
		e := &events[i]
		if e.Payload == nil {
			continue
		}
		extract, ok := extractors[e.Type]
		if !ok {
			continue
		}
		if pid := extract(e.Payload); pid != "" {
			pids[pid] = struct{}{}
		}
	}
	return pids
}

func messageSender(p *platform.EventPayload) string {
	if msg := p.ReceiveMessage.Message(); msg != nil {
		return msg.SenderMid()
	}
	return p.SendMessage.Message().SenderMid()
}

func profileSubject(p *platform.EventPayload) string {
	if p.MemberProfileUpdate == nil {
		return ""
	}
	return p.MemberProfileUpdate.SquareMemberMid
}

func createdSubject(p *platform.EventPayload) string {
	if p.MemberCreate == nil || p.MemberCreate.SquareMember == nil {
		return ""
	}
	return p.MemberCreate.SquareMember.SquareMemberMid
}
