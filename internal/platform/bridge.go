package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Bridge talks JSON to the protocol sidecar that runs the real chat-platform
// client library. It implements Authenticator; sessions it returns implement
// Session and Client.
type Bridge struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewBridge creates a bridge client for the given sidecar base URL.
func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks that the sidecar is reachable.
func (b *Bridge) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge health: status %d", resp.StatusCode)
	}
	return nil
}

// rpcError is the sidecar's error shape.
type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rpcEnvelope wraps every sidecar response. The sidecar reports platform
// token rotations on whichever call happened to observe them.
type rpcEnvelope struct {
	Result              json.RawMessage `json:"result"`
	Error               *rpcError       `json:"error,omitempty"`
	RotatedAccessToken  string          `json:"rotatedAccessToken,omitempty"`
	RotatedRefreshToken string          `json:"rotatedRefreshToken,omitempty"`
}

// authCodes are the error codes classified as authentication failures.
var authCodes = map[string]bool{
	CodeAuthenticationFailed: true,
	CodeTokenExpired:         true,
	CodeMustRefresh:          true,
	CodeInvalidToken:         true,
}

func (b *Bridge) post(ctx context.Context, path, accessToken string, params, out any) (*rpcEnvelope, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("X-Square-Token", accessToken)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env rpcEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bridge %s: status %d: %w", path, resp.StatusCode, err)
	}
	if env.Error != nil {
		if authCodes[env.Error.Code] {
			return &env, &AuthError{Code: env.Error.Code, Message: env.Error.Message}
		}
		return &env, fmt.Errorf("bridge %s: %s: %s", path, env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return &env, fmt.Errorf("bridge %s: status %d", path, resp.StatusCode)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return &env, fmt.Errorf("bridge %s: decode result: %w", path, err)
		}
	}
	return &env, nil
}

type loginResult struct {
	AuthToken    string `json:"authToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates against the platform. A non-empty refreshToken asks
// the sidecar for a refresh login; its failure is surfaced as-is, there is
// no fallback to the access token.
func (b *Bridge) Login(ctx context.Context, accessToken, refreshToken string) (Session, error) {
	params := map[string]string{"authToken": accessToken}
	if refreshToken != "" {
		params["refreshToken"] = refreshToken
	}

	var res loginResult
	if _, err := b.post(ctx, "/login", "", params, &res); err != nil {
		return nil, err
	}
	if res.AuthToken == "" {
		res.AuthToken = accessToken
	}
	if res.RefreshToken == "" {
		res.RefreshToken = refreshToken
	}

	s := &bridgeSession{
		bridge:    b,
		access:    res.AuthToken,
		refresh:   res.RefreshToken,
		accessCh:  make(chan string, 16),
		refreshCh: make(chan string, 16),
		closed:    make(chan struct{}),
	}
	return s, nil
}

// bridgeSession is one authenticated connection through the sidecar. Token
// state is updated before a rotation is published on the channels, so
// readers always observe the post-rotation state.
type bridgeSession struct {
	bridge *Bridge

	mu      sync.Mutex
	access  string
	refresh string

	accessCh  chan string
	refreshCh chan string

	closeOnce sync.Once
	closed    chan struct{}
}

func (s *bridgeSession) Client() Client                  { return s }
func (s *bridgeSession) AccessRotations() <-chan string  { return s.accessCh }
func (s *bridgeSession) RefreshRotations() <-chan string { return s.refreshCh }

func (s *bridgeSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *bridgeSession) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// Close signals shutdown and unblocks any in-flight rotation publish. The
// rotation channels are left open: an in-flight call may still be racing a
// publish, and a send must never lose that race to a channel close. Watchers
// stop through their own eviction signal, not through channel closure.
func (s *bridgeSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	return nil
}

func (s *bridgeSession) call(ctx context.Context, path string, params, out any) error {
	env, err := s.bridge.post(ctx, path, s.AccessToken(), params, out)
	if env != nil {
		s.applyRotations(env)
	}
	return err
}

// applyRotations folds rotation reports from a response envelope into the
// session state and publishes them. Publishing blocks until the watcher
// consumes the notification, which keeps rotations ordered per session.
func (s *bridgeSession) applyRotations(env *rpcEnvelope) {
	if env.RotatedAccessToken != "" {
		s.mu.Lock()
		changed := env.RotatedAccessToken != s.access
		s.access = env.RotatedAccessToken
		s.mu.Unlock()
		if changed {
			select {
			case s.accessCh <- env.RotatedAccessToken:
			case <-s.closed:
			}
		}
	}
	if env.RotatedRefreshToken != "" {
		s.mu.Lock()
		changed := env.RotatedRefreshToken != s.refresh
		s.refresh = env.RotatedRefreshToken
		s.mu.Unlock()
		if changed {
			select {
			case s.refreshCh <- env.RotatedRefreshToken:
			case <-s.closed:
			}
		}
	}
}

func (s *bridgeSession) ListJoinedSquares(ctx context.Context, limit int) ([]Square, error) {
	var res struct {
		Squares []Square `json:"squares"`
	}
	err := s.call(ctx, "/square/listJoinedSquares", map[string]any{"limit": limit}, &res)
	return res.Squares, err
}

func (s *bridgeSession) ListMessages(ctx context.Context, squareChatMid string, limit int) ([]SquareEvent, error) {
	var res struct {
		Events []SquareEvent `json:"events"`
	}
	err := s.call(ctx, "/square/listSquareChatMessages", map[string]any{
		"squareChatMid": squareChatMid,
		"limit":         limit,
		"withReadCount": true,
	}, &res)
	return res.Events, err
}

func (s *bridgeSession) SendMessage(ctx context.Context, squareChatMid, text, relatedMessageID, clientMessageID string) (*SquareMessage, error) {
	params := map[string]any{
		"squareChatMid":   squareChatMid,
		"text":            text,
		"clientMessageId": clientMessageID,
	}
	if relatedMessageID != "" {
		params["relatedMessageId"] = relatedMessageID
	}
	var res struct {
		Message *SquareMessage `json:"message"`
	}
	err := s.call(ctx, "/square/sendSquareMessage", params, &res)
	return res.Message, err
}

func (s *bridgeSession) UpdateMember(ctx context.Context, req UpdateMemberRequest) (*SquareMember, error) {
	var res struct {
		Member *SquareMember `json:"member"`
	}
	err := s.call(ctx, "/square/updateSquareMember", map[string]any{
		"squareMid":       req.SquareMid,
		"squareMemberMid": req.SquareMemberMid,
		"updatedAttrs":    req.Attributes,
		"role":            req.Role,
		"membershipState": req.MembershipState,
		"revision":        req.Revision,
	}, &res)
	return res.Member, err
}

func (s *bridgeSession) AcceptJoinRequests(ctx context.Context, squareMid string, memberMids []string) error {
	return s.call(ctx, "/square/acceptSquareJoinRequests", map[string]any{
		"squareMid":        squareMid,
		"squareMemberMids": memberMids,
	}, nil)
}

func (s *bridgeSession) RejectJoinRequests(ctx context.Context, squareMid string, memberMids []string) error {
	return s.call(ctx, "/square/rejectSquareJoinRequests", map[string]any{
		"squareMid":        squareMid,
		"squareMemberMids": memberMids,
	}, nil)
}

func (s *bridgeSession) GetMember(ctx context.Context, squareChatMid, mid string) (*SquareMember, error) {
	var res struct {
		Member *SquareMember `json:"member"`
	}
	err := s.call(ctx, "/square/getJoinedSquareMember", map[string]any{
		"squareChatMid": squareChatMid,
		"mid":           mid,
	}, &res)
	return res.Member, err
}

func (s *bridgeSession) ListMembers(ctx context.Context, squareChatMid string, start, limit int) ([]SquareMember, error) {
	var res struct {
		Members []SquareMember `json:"members"`
	}
	err := s.call(ctx, "/square/getSquareMembersByRange", map[string]any{
		"squareChatMid": squareChatMid,
		"start":         start,
		"limit":         limit,
	}, &res)
	return res.Members, err
}

func (s *bridgeSession) ListJoinRequests(ctx context.Context, squareMid string, limit int) ([]JoinRequest, error) {
	var res struct {
		Requests []JoinRequest `json:"requests"`
	}
	err := s.call(ctx, "/square/getSquareMemberJoinRequestList", map[string]any{
		"squareMid":   squareMid,
		"limit":       limit,
		"withProfile": true,
	}, &res)
	return res.Requests, err
}

func (s *bridgeSession) DownloadAttachment(ctx context.Context, messageID string, preview bool) (*Attachment, error) {
	var res struct {
		Data     []byte `json:"data"`
		MimeType string `json:"mimeType"`
	}
	err := s.call(ctx, "/square/downloadAttachment", map[string]any{
		"messageId": messageID,
		"preview":   preview,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &Attachment{Data: res.Data, MimeType: res.MimeType}, nil
}
