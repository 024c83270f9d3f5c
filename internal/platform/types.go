package platform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Int64String is an int64 that marshals as a decimal string. Revisions,
// timestamps and read counts from the platform are 64-bit and must stay
// JSON-safe for clients that parse numbers as IEEE doubles.
type Int64String int64

func (v Int64String) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(v), 10))
}

func (v *Int64String) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("int64 string %q: %w", s, err)
	}
	*v = Int64String(n)
	return nil
}

// Square is a joined open-chat community.
type Square struct {
	Mid         string      `json:"mid"`
	Name        string      `json:"name"`
	Desc        string      `json:"desc,omitempty"`
	MemberCount Int64String `json:"memberCount,omitempty"`
	Revision    Int64String `json:"revision,omitempty"`
}

// Profile is the display profile of a square member.
type Profile struct {
	DisplayName         string      `json:"displayName"`
	ProfileImageObsHash string      `json:"profileImageObsHash,omitempty"`
	Revision            Int64String `json:"revision,omitempty"`
}

// SquareMember is a member of a square, as returned by membership listings.
type SquareMember struct {
	SquareMemberMid     string      `json:"squareMemberMid"`
	SquareMid           string      `json:"squareMid,omitempty"`
	DisplayName         string      `json:"displayName"`
	ProfileImageObsHash string      `json:"profileImageObsHash,omitempty"`
	MembershipState     string      `json:"membershipState,omitempty"`
	Role                string      `json:"role,omitempty"`
	Revision            Int64String `json:"revision"`
}

// Profile extracts the display profile carried by a membership record.
func (m *SquareMember) Profile() *Profile {
	return &Profile{
		DisplayName:         m.DisplayName,
		ProfileImageObsHash: m.ProfileImageObsHash,
		Revision:            m.Revision,
	}
}

// JoinRequest is a pending request to join an approval-required square.
type JoinRequest struct {
	SquareMemberMid string   `json:"squareMemberMid"`
	SquareMid       string   `json:"squareMid,omitempty"`
	DisplayName     string   `json:"displayName,omitempty"`
	Profile         *Profile `json:"profile,omitempty"`
}

// Membership states accepted by UpdateMember.
const (
	MembershipJoined = "JOINED"
	MembershipKicked = "KICKED"
	MembershipLeft   = "LEFT"
)

// Member roles accepted by UpdateMember.
const (
	RoleAdmin   = "ADMIN"
	RoleCoAdmin = "CO_ADMIN"
	RoleMember  = "MEMBER"
)

// Message content types. Only IMAGE participates in attachment enrichment.
const (
	ContentTypeNone  = "NONE"
	ContentTypeImage = "IMAGE"
)

// Message is the inner message of a square chat event.
type Message struct {
	ID              string            `json:"id,omitempty"`
	From            string            `json:"from,omitempty"`
	Sender          string            `json:"sender,omitempty"` // legacy alias for From
	SquareChatMid   string            `json:"squareChatMid,omitempty"`
	Text            string            `json:"text,omitempty"`
	ContentType     string            `json:"contentType,omitempty"`
	ContentMetadata map[string]string `json:"contentMetadata,omitempty"`
	CreatedTime     Int64String       `json:"createdTime,omitempty"`
}

// SenderMid returns the message's sender, preferring the current field
// over the legacy alias when both are present.
func (m *Message) SenderMid() string {
	if m == nil {
		return ""
	}
	if m.From != "" {
		return m.From
	}
	return m.Sender
}

// IsImage reports whether the message carries an image attachment.
func (m *Message) IsImage() bool {
	return m != nil && m.ContentType == ContentTypeImage
}

// SquareMessage wraps a message together with its delivery metadata.
type SquareMessage struct {
	Message   *Message    `json:"message,omitempty"`
	State     string      `json:"state,omitempty"`
	ReadCount Int64String `json:"readCount,omitempty"`
}

// Event types carried by SquareEvent. Anything else is passed through
// untouched by the enrichment pipeline.
const (
	EventReceiveMessage       = "RECEIVE_MESSAGE"
	EventSendMessage          = "SEND_MESSAGE"
	EventMemberProfileUpdated = "NOTIFIED_UPDATE_SQUARE_MEMBER_PROFILE"
	EventMemberCreated        = "NOTIFIED_CREATE_SQUARE_MEMBER"
)

// MessageEvent is the payload of RECEIVE_MESSAGE and SEND_MESSAGE events.
type MessageEvent struct {
	SquareMessage *SquareMessage `json:"squareMessage,omitempty"`
}

// Message returns the inner message, or nil when any layer is absent.
func (e *MessageEvent) Message() *Message {
	if e == nil || e.SquareMessage == nil {
		return nil
	}
	return e.SquareMessage.Message
}

// MemberProfileEvent is the payload of a member profile-update notification.
type MemberProfileEvent struct {
	SquareMemberMid string   `json:"squareMemberMid,omitempty"`
	Profile         *Profile `json:"profile,omitempty"`
}

// MemberCreateEvent is the payload of a member-creation notification.
type MemberCreateEvent struct {
	SquareMember *SquareMember `json:"squareMember,omitempty"`
}

// EventPayload is the union of recognized event payload shapes. Exactly one
// field is populated for a recognized event type; all may be nil.
type EventPayload struct {
	ReceiveMessage      *MessageEvent       `json:"receiveMessage,omitempty"`
	SendMessage         *MessageEvent       `json:"sendMessage,omitempty"`
	MemberProfileUpdate *MemberProfileEvent `json:"notifiedUpdateSquareMemberProfile,omitempty"`
	MemberCreate        *MemberCreateEvent  `json:"notifiedCreateSquareMember,omitempty"`
}

// SquareEvent is one raw event from a square chat event stream. Events are
// immutable as received; enrichment produces derived copies.
type SquareEvent struct {
	Type        string        `json:"type"`
	CreatedTime Int64String   `json:"createdTime,omitempty"`
	Payload     *EventPayload `json:"payload,omitempty"`
}

// Message returns the inner message for message-shaped events, nil otherwise.
func (e *SquareEvent) Message() *Message {
	if e.Payload == nil {
		return nil
	}
	switch e.Type {
	case EventReceiveMessage:
		return e.Payload.ReceiveMessage.Message()
	case EventSendMessage:
		return e.Payload.SendMessage.Message()
	}
	return nil
}

// Attachment is a downloaded attachment payload with its reported MIME type.
type Attachment struct {
	Data     []byte
	MimeType string
}

// UpdateMemberRequest describes a membership mutation. Attributes lists the
// fields the platform should apply ("ROLE", "STATE").
type UpdateMemberRequest struct {
	SquareMid       string
	SquareMemberMid string
	Attributes      []string
	Role            string
	MembershipState string
	Revision        int64
}
