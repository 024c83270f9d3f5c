package enrich

import (
	"testing"

	"github.com/squarewire/squarewire/internal/platform"
)

func messageEvent(eventType, from, legacy string) platform.SquareEvent {
	me := &platform.MessageEvent{
		SquareMessage: &platform.SquareMessage{
			Message: &platform.Message{From: from, Sender: legacy},
		},
	}
	p := &platform.EventPayload{}
	if eventType == platform.EventSendMessage {
		p.SendMessage = me
	} else {
		p.ReceiveMessage = me
	}
	return platform.SquareEvent{Type: eventType, Payload: p}
}

func TestExtractEmptyBatch(t *testing.T) {
	if got := ExtractParticipantIDs(nil); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
	if got := ExtractParticipantIDs([]platform.SquareEvent{}); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestExtractUnrecognizedShapes(t *testing.T) {
	events := []platform.SquareEvent{
		{Type: "NOTIFIED_MARK_AS_READ"},
		{Type: "UNKNOWN", Payload: &platform.EventPayload{}},
		{}, // no type, no payload
	}
	if got := ExtractParticipantIDs(events); len(got) != 0 {
		t.Fatalf("unrecognized events must contribute nothing, got %v", got)
	}
}

func TestExtractMixedBatch(t *testing.T) {
	events := []platform.SquareEvent{
		messageEvent(platform.EventReceiveMessage, "P1", ""),
		messageEvent(platform.EventSendMessage, "P2", ""),
		{
			Type: platform.EventMemberProfileUpdated,
			Payload: &platform.EventPayload{
				MemberProfileUpdate: &platform.MemberProfileEvent{SquareMemberMid: "P3"},
			},
		},
		{
			Type: platform.EventMemberCreated,
			Payload: &platform.EventPayload{
				MemberCreate: &platform.MemberCreateEvent{
					SquareMember: &platform.SquareMember{SquareMemberMid: "P4"},
				},
			},
		},
		messageEvent(platform.EventReceiveMessage, "P1", ""), // duplicate
		{Type: "NOTIFIED_MARK_AS_READ"},                      // ignorable
	}

	got := ExtractParticipantIDs(events)
	want := []string{"P1", "P2", "P3", "P4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d pids, got %v", len(want), got)
	}
	for _, pid := range want {
		if _, ok := got[pid]; !ok {
			t.Fatalf("missing pid %s in %v", pid, got)
		}
	}
}

func TestExtractPrefersCurrentSenderField(t *testing.T) {
	events := []platform.SquareEvent{
		messageEvent(platform.EventReceiveMessage, "current", "legacy"),
	}
	got := ExtractParticipantIDs(events)
	if _, ok := got["current"]; !ok || len(got) != 1 {
		t.Fatalf("expected only the current sender field, got %v", got)
	}
}

func TestExtractLegacySenderField(t *testing.T) {
	events := []platform.SquareEvent{
		messageEvent(platform.EventSendMessage, "", "legacy"),
	}
	got := ExtractParticipantIDs(events)
	if _, ok := got["legacy"]; !ok {
		t.Fatalf("expected legacy sender field to be honored, got %v", got)
	}
}

func TestExtractPartialPayloads(t *testing.T) {
	// Every layer of nesting may be missing; none of these may panic or
	// contribute identifiers.
	events := []platform.SquareEvent{
		{Type: platform.EventReceiveMessage, Payload: &platform.EventPayload{}},
		{Type: platform.EventReceiveMessage, Payload: &platform.EventPayload{
			ReceiveMessage: &platform.MessageEvent{},
		}},
		{Type: platform.EventReceiveMessage, Payload: &platform.EventPayload{
			ReceiveMessage: &platform.MessageEvent{SquareMessage: &platform.SquareMessage{}},
		}},
		{Type: platform.EventMemberProfileUpdated, Payload: &platform.EventPayload{}},
		{Type: platform.EventMemberCreated, Payload: &platform.EventPayload{
			MemberCreate: &platform.MemberCreateEvent{},
		}},
	}
	if got := ExtractParticipantIDs(events); len(got) != 0 {
		t.Fatalf("partial payloads must contribute nothing, got %v", got)
	}
}
