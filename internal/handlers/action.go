package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/squarewire/squarewire/internal/enrich"
	"github.com/squarewire/squarewire/internal/metrics"
	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/session"
)

// ActionRequest is the body of the single action endpoint.
type ActionRequest struct {
	Action string `json:"action"`

	// Token and AuthToken are aliases for the access credential.
	Token     string `json:"token"`
	AuthToken string `json:"authToken"`

	// RefreshToken is also accepted as a query parameter; the body wins.
	RefreshToken string `json:"refreshToken"`

	SquareChatMid    string `json:"squareChatMid"`
	SquareMid        string `json:"squareMid"`
	SquareMemberMid  string `json:"squareMemberMid"`
	Mid              string `json:"mid"`
	Text             string `json:"text"`
	Role             string `json:"role"`
	RelatedMessageID string `json:"relatedMessageId"`
}

// accessToken returns the access credential under either alias.
func (r *ActionRequest) accessToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AuthToken
}

// actionResponse is the response envelope. Which fields are populated
// depends on the action; the token state is always present once a session
// was used.
type actionResponse struct {
	tokenState

	Result   []platform.Square            `json:"result,omitempty"`
	Events   []enrich.EnrichedEvent       `json:"events,omitempty"`
	Profiles map[string]*platform.Profile `json:"profiles,omitempty"`
	Message  *platform.SquareMessage      `json:"message,omitempty"`
	Member   *platform.SquareMember       `json:"member,omitempty"`
	Members  []platform.SquareMember      `json:"members,omitempty"`
	Requests []platform.JoinRequest       `json:"requests,omitempty"`
	Accepted []string                     `json:"accepted,omitempty"`
	Rejected []string                     `json:"rejected,omitempty"`
}

// badRequestError marks a validation failure, recovered locally as a 400.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func missingField(name string) error {
	return &badRequestError{msg: name + " is required"}
}

// Action is the single gateway endpoint. It resolves the session for the
// request's credential pair, dispatches the action against it, and stamps
// the current (possibly rotated) credential state onto the response.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Action == "" {
		h.Error(w, http.StatusBadRequest, "action is required")
		return
	}
	if req.accessToken() == "" {
		h.Error(w, http.StatusBadRequest, "token is required")
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken = r.URL.Query().Get("refreshToken")
	}

	ctx := r.Context()
	pair := session.NewPair(req.accessToken(), req.RefreshToken)

	sess, err := h.sessions.Acquire(ctx, pair)
	if err != nil {
		if platform.IsAuthError(err) {
			metrics.Actions.WithLabelValues(req.Action, "auth").Inc()
			h.logger.Warn().Err(err).Str("action", req.Action).Msg("login failed")
			h.JSON(w, http.StatusUnauthorized, map[string]any{
				"error":       "authentication failed",
				"needsReauth": true,
			})
			return
		}
		metrics.Actions.WithLabelValues(req.Action, "error").Inc()
		h.logger.Error().Err(err).Str("action", req.Action).Msg("login error")
		h.JSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "processing failed",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.dispatch(ctx, sess.Client(), &req)
	if err != nil {
		var bad *badRequestError
		switch {
		case asBadRequest(err, &bad):
			h.Error(w, http.StatusBadRequest, bad.msg)
		case platform.IsAuthError(err):
			// The platform rejected the cached credential mid-request.
			// Evict so the next acquire logs in from scratch.
			h.sessions.Invalidate(sess)
			metrics.Actions.WithLabelValues(req.Action, "auth").Inc()
			h.logger.Warn().Err(err).Str("action", req.Action).Msg("auth failure mid-request")
			h.JSON(w, http.StatusUnauthorized, map[string]any{
				"error":       "authentication failed",
				"needsReauth": true,
			})
		default:
			metrics.Actions.WithLabelValues(req.Action, "error").Inc()
			h.logger.Error().Err(err).Str("action", req.Action).Msg("action failed")
			h.JSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "processing failed",
				"details": err.Error(),
			})
		}
		return
	}

	resp.tokenState = tokenStateFor(pair, sess)
	metrics.Actions.WithLabelValues(req.Action, "ok").Inc()
	h.JSON(w, http.StatusOK, resp)
}

func asBadRequest(err error, target **badRequestError) bool {
	b, ok := err.(*badRequestError)
	if ok {
		*target = b
	}
	return ok
}

// dispatch maps an action name to its call sequence. No retries anywhere:
// a failed platform call surfaces directly.
func (h *Handler) dispatch(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	switch req.Action {
	case "squares":
		return h.listSquares(ctx, client)
	case "messages":
		return h.listMessages(ctx, client, req)
	case "send":
		return h.sendMessage(ctx, client, req)
	case "replyToMessage":
		if req.RelatedMessageID == "" {
			return nil, missingField("relatedMessageId")
		}
		return h.sendMessage(ctx, client, req)
	case "updateRole":
		return h.updateRole(ctx, client, req)
	case "kick":
		return h.kick(ctx, client, req)
	case "acceptJoin":
		return h.acceptJoin(ctx, client, req)
	case "rejectJoin":
		return h.rejectJoin(ctx, client, req)
	case "getMember":
		return h.getMember(ctx, client, req)
	case "listMembers":
		return h.listMembers(ctx, client, req)
	case "listJoinRequests":
		return h.listJoinRequests(ctx, client, req)
	}
	return nil, &badRequestError{msg: fmt.Sprintf("unrecognized action %q", req.Action)}
}
