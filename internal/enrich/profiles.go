package enrich

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/squarewire/squarewire/internal/metrics"
	"github.com/squarewire/squarewire/internal/platform"
)

// memberPageSize is the bulk membership listing page size.
const memberPageSize = 200

// ResolveProfiles fetches display profiles for the requested participant
// identifiers with a single bulk membership listing for the conversation.
// Pids without a matching member (the member may have left) are absent from
// the result. A failed bulk call yields an empty map, never an error:
// profile resolution must not block message delivery.
func ResolveProfiles(ctx context.Context, client platform.Client, squareChatMid string, pids map[string]struct{}, logger zerolog.Logger) map[string]*platform.Profile {
	profiles := make(map[string]*platform.Profile, len(pids))
	if len(pids) == 0 {
		return profiles
	}

	members, err := client.ListMembers(ctx, squareChatMid, 0, memberPageSize)
	if err != nil {
		metrics.ProfileResolveFailures.Inc()
		logger.Warn().Err(err).Str("square_chat_mid", squareChatMid).
			Msg("membership listing failed, returning no profiles")
		return profiles
	}

	for i := range members {
		m := &members[i]
		if _, wanted := pids[m.SquareMemberMid]; wanted {
			profiles[m.SquareMemberMid] = m.Profile()
		}
	}
	return profiles
}
