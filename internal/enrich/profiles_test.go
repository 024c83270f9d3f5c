package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/platform/platformtest"
)

func pidSet(pids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(pids))
	for _, p := range pids {
		set[p] = struct{}{}
	}
	return set
}

func TestResolveProfilesFiltersToRequested(t *testing.T) {
	client := &platformtest.Client{
		ListMembersFunc: func(ctx context.Context, squareChatMid string, start, limit int) ([]platform.SquareMember, error) {
			return []platform.SquareMember{
				{SquareMemberMid: "P1", DisplayName: "Alice", Revision: 3},
				{SquareMemberMid: "P2", DisplayName: "Bob"},
				{SquareMemberMid: "P9", DisplayName: "Bystander"},
			}, nil
		},
	}

	got := ResolveProfiles(context.Background(), client, "C1", pidSet("P1", "P2"), zerolog.Nop())
	if len(got) != 2 {
		t.Fatalf("expected 2 profiles, got %v", got)
	}
	if got["P1"].DisplayName != "Alice" || got["P1"].Revision != 3 {
		t.Fatalf("wrong profile for P1: %+v", got["P1"])
	}
	if _, ok := got["P9"]; ok {
		t.Fatal("unrequested member must not appear")
	}
	if client.ListMembersCalls() != 1 {
		t.Fatalf("expected exactly one bulk call, got %d", client.ListMembersCalls())
	}
}

func TestResolveProfilesMissingMemberOmitted(t *testing.T) {
	client := &platformtest.Client{
		ListMembersFunc: func(ctx context.Context, squareChatMid string, start, limit int) ([]platform.SquareMember, error) {
			return []platform.SquareMember{{SquareMemberMid: "P1", DisplayName: "Alice"}}, nil
		},
	}

	// P2 has left the conversation: absent from the result, not an error.
	got := ResolveProfiles(context.Background(), client, "C1", pidSet("P1", "P2"), zerolog.Nop())
	if len(got) != 1 {
		t.Fatalf("expected 1 profile, got %v", got)
	}
	if _, ok := got["P2"]; ok {
		t.Fatal("departed member must be omitted")
	}
}

func TestResolveProfilesBulkFailureReturnsEmpty(t *testing.T) {
	client := &platformtest.Client{
		ListMembersFunc: func(ctx context.Context, squareChatMid string, start, limit int) ([]platform.SquareMember, error) {
			return nil, errors.New("bridge timeout")
		},
	}

	got := ResolveProfiles(context.Background(), client, "C1", pidSet("P1"), zerolog.Nop())
	if got == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map on bulk failure, got %v", got)
	}
}

func TestResolveProfilesNoPidsSkipsCall(t *testing.T) {
	client := &platformtest.Client{}
	got := ResolveProfiles(context.Background(), client, "C1", nil, zerolog.Nop())
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if client.ListMembersCalls() != 0 {
		t.Fatal("no pids must mean no bulk call")
	}
}
