// Package platformtest provides in-memory fakes for the platform boundary,
// shared by the session store and handler tests.
package platformtest

import (
	"context"
	"sync"

	"github.com/squarewire/squarewire/internal/platform"
)

// Authenticator is a fake login collaborator. Each successful login creates
// a fresh Session wired to Client.
type Authenticator struct {
	mu         sync.Mutex
	loginCount int

	// LoginErr, when set, fails the next logins.
	LoginErr error

	// Client is attached to every session this authenticator creates.
	Client *Client
}

// NewAuthenticator creates a fake authenticator around the given client.
func NewAuthenticator(client *Client) *Authenticator {
	if client == nil {
		client = &Client{}
	}
	return &Authenticator{Client: client}
}

// Login implements platform.Authenticator.
func (a *Authenticator) Login(ctx context.Context, accessToken, refreshToken string) (platform.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.LoginErr != nil {
		return nil, a.LoginErr
	}
	a.loginCount++
	return NewSession(accessToken, refreshToken, a.Client), nil
}

// LoginCount returns the number of successful logins issued.
func (a *Authenticator) LoginCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginCount
}

// Session is a fake platform session whose rotations are driven by the test.
type Session struct {
	client *Client

	mu      sync.Mutex
	access  string
	refresh string

	accessCh  chan string
	refreshCh chan string
	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession creates a fake session with the given credentials.
func NewSession(access, refresh string, client *Client) *Session {
	if client == nil {
		client = &Client{}
	}
	return &Session{
		client:    client,
		access:    access,
		refresh:   refresh,
		accessCh:  make(chan string, 1),
		refreshCh: make(chan string, 1),
		closed:    make(chan struct{}),
	}
}

func (s *Session) Client() platform.Client         { return s.client }
func (s *Session) AccessRotations() <-chan string  { return s.accessCh }
func (s *Session) RefreshRotations() <-chan string { return s.refreshCh }

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.accessCh)
		close(s.refreshCh)
	})
	return nil
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// RotateAccess simulates the platform rotating the access credential.
// Session state is updated before the notification is published.
func (s *Session) RotateAccess(newAccess string) {
	s.mu.Lock()
	s.access = newAccess
	s.mu.Unlock()
	s.accessCh <- newAccess
}

// RotateRefresh simulates the platform rotating the refresh credential.
func (s *Session) RotateRefresh(newRefresh string) {
	s.mu.Lock()
	s.refresh = newRefresh
	s.mu.Unlock()
	s.refreshCh <- newRefresh
}

// Client is a fake operations client. Behavior is overridden per test via
// the function fields; nil fields return empty results.
type Client struct {
	mu               sync.Mutex
	listMembersCalls int
	downloadCalls    int

	ListJoinedSquaresFunc  func(ctx context.Context, limit int) ([]platform.Square, error)
	ListMessagesFunc       func(ctx context.Context, squareChatMid string, limit int) ([]platform.SquareEvent, error)
	SendMessageFunc        func(ctx context.Context, squareChatMid, text, relatedMessageID, clientMessageID string) (*platform.SquareMessage, error)
	UpdateMemberFunc       func(ctx context.Context, req platform.UpdateMemberRequest) (*platform.SquareMember, error)
	GetMemberFunc          func(ctx context.Context, squareChatMid, mid string) (*platform.SquareMember, error)
	ListMembersFunc        func(ctx context.Context, squareChatMid string, start, limit int) ([]platform.SquareMember, error)
	ListJoinRequestsFunc   func(ctx context.Context, squareMid string, limit int) ([]platform.JoinRequest, error)
	DownloadAttachmentFunc func(ctx context.Context, messageID string, preview bool) (*platform.Attachment, error)
	AcceptJoinFunc         func(ctx context.Context, squareMid string, memberMids []string) error
	RejectJoinFunc         func(ctx context.Context, squareMid string, memberMids []string) error
}

// ListMembersCalls returns how many bulk membership listings were issued.
func (c *Client) ListMembersCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listMembersCalls
}

// DownloadCalls returns how many attachment fetches were issued.
func (c *Client) DownloadCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.downloadCalls
}

func (c *Client) ListJoinedSquares(ctx context.Context, limit int) ([]platform.Square, error) {
	if c.ListJoinedSquaresFunc != nil {
		return c.ListJoinedSquaresFunc(ctx, limit)
	}
	return nil, nil
}

func (c *Client) ListMessages(ctx context.Context, squareChatMid string, limit int) ([]platform.SquareEvent, error) {
	if c.ListMessagesFunc != nil {
		return c.ListMessagesFunc(ctx, squareChatMid, limit)
	}
	return nil, nil
}

func (c *Client) SendMessage(ctx context.Context, squareChatMid, text, relatedMessageID, clientMessageID string) (*platform.SquareMessage, error) {
	if c.SendMessageFunc != nil {
		return c.SendMessageFunc(ctx, squareChatMid, text, relatedMessageID, clientMessageID)
	}
	return &platform.SquareMessage{}, nil
}

func (c *Client) UpdateMember(ctx context.Context, req platform.UpdateMemberRequest) (*platform.SquareMember, error) {
	if c.UpdateMemberFunc != nil {
		return c.UpdateMemberFunc(ctx, req)
	}
	return &platform.SquareMember{}, nil
}

func (c *Client) AcceptJoinRequests(ctx context.Context, squareMid string, memberMids []string) error {
	if c.AcceptJoinFunc != nil {
		return c.AcceptJoinFunc(ctx, squareMid, memberMids)
	}
	return nil
}

func (c *Client) RejectJoinRequests(ctx context.Context, squareMid string, memberMids []string) error {
	if c.RejectJoinFunc != nil {
		return c.RejectJoinFunc(ctx, squareMid, memberMids)
	}
	return nil
}

func (c *Client) GetMember(ctx context.Context, squareChatMid, mid string) (*platform.SquareMember, error) {
	if c.GetMemberFunc != nil {
		return c.GetMemberFunc(ctx, squareChatMid, mid)
	}
	return nil, nil
}

func (c *Client) ListMembers(ctx context.Context, squareChatMid string, start, limit int) ([]platform.SquareMember, error) {
	c.mu.Lock()
	c.listMembersCalls++
	c.mu.Unlock()
	if c.ListMembersFunc != nil {
		return c.ListMembersFunc(ctx, squareChatMid, start, limit)
	}
	return nil, nil
}

func (c *Client) ListJoinRequests(ctx context.Context, squareMid string, limit int) ([]platform.JoinRequest, error) {
	if c.ListJoinRequestsFunc != nil {
		return c.ListJoinRequestsFunc(ctx, squareMid, limit)
	}
	return nil, nil
}

func (c *Client) DownloadAttachment(ctx context.Context, messageID string, preview bool) (*platform.Attachment, error) {
	c.mu.Lock()
	c.downloadCalls++
	c.mu.Unlock()
	if c.DownloadAttachmentFunc != nil {
		return c.DownloadAttachmentFunc(ctx, messageID, preview)
	}
	return &platform.Attachment{}, nil
}
