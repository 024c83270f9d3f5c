// Package platform defines the boundary to the external chat platform: the
// typed value model, the operation and session interfaces, and the HTTP
// bridge client that implements them against the protocol sidecar. The wire
// protocol itself lives entirely behind the sidecar.
package platform

import "context"

// Client performs square operations through an authenticated session.
// Every call is a suspension point: it blocks only its own request.
type Client interface {
	ListJoinedSquares(ctx context.Context, limit int) ([]Square, error)
	ListMessages(ctx context.Context, squareChatMid string, limit int) ([]SquareEvent, error)
	SendMessage(ctx context.Context, squareChatMid, text, relatedMessageID, clientMessageID string) (*SquareMessage, error)
	UpdateMember(ctx context.Context, req UpdateMemberRequest) (*SquareMember, error)
	AcceptJoinRequests(ctx context.Context, squareMid string, memberMids []string) error
	RejectJoinRequests(ctx context.Context, squareMid string, memberMids []string) error
	GetMember(ctx context.Context, squareChatMid, mid string) (*SquareMember, error)
	ListMembers(ctx context.Context, squareChatMid string, start, limit int) ([]SquareMember, error)
	ListJoinRequests(ctx context.Context, squareMid string, limit int) ([]JoinRequest, error)
	DownloadAttachment(ctx context.Context, messageID string, preview bool) (*Attachment, error)
}

// Session is a live, authenticated connection handle. It is exclusively
// owned by one session-store entry at a time and carries the current
// credentials as internal state, updated when the platform rotates them.
//
// AccessRotations and RefreshRotations deliver rotation notifications; by
// the time a value is readable the session's own token state already
// reflects it. After Close no further notifications are delivered; the
// channels may or may not be closed, so consumers must also watch their own
// shutdown signal.
type Session interface {
	Client() Client
	AccessToken() string
	RefreshToken() string
	AccessRotations() <-chan string
	RefreshRotations() <-chan string
	Close() error
}

// Authenticator logs in against the platform. A non-empty refresh credential
// requests a refresh login; a refresh failure is an AuthError and never
// falls back to the bare access credential.
type Authenticator interface {
	Login(ctx context.Context, accessToken, refreshToken string) (Session, error)
}
