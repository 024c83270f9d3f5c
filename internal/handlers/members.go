package handlers

import (
	"context"

	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/store"
)

// memberListLimit is the page size for the listMembers action.
const memberListLimit = 100

// roles accepted by the updateRole action.
var validRoles = map[string]bool{
	platform.RoleAdmin:   true,
	platform.RoleCoAdmin: true,
	platform.RoleMember:  true,
}

// updateRole handles the "updateRole" action.
func (h *Handler) updateRole(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareMid == "" {
		return nil, missingField("squareMid")
	}
	if req.SquareMemberMid == "" {
		return nil, missingField("squareMemberMid")
	}
	if !validRoles[req.Role] {
		return nil, &badRequestError{msg: "role must be one of ADMIN, CO_ADMIN, MEMBER"}
	}

	member, err := client.UpdateMember(ctx, platform.UpdateMemberRequest{
		SquareMid:       req.SquareMid,
		SquareMemberMid: req.SquareMemberMid,
		Attributes:      []string{"ROLE"},
		Role:            req.Role,
		MembershipState: platform.MembershipJoined,
		Revision:        1,
	})
	if err != nil {
		return nil, err
	}

	h.recordAudit(ctx, &store.AuditEntry{
		Action:         req.Action,
		SquareMid:      req.SquareMid,
		TargetMid:      req.SquareMemberMid,
		CredentialHash: store.HashCredential(req.accessToken()),
		Detail:         req.Role,
	})

	return &actionResponse{Member: member}, nil
}

// kick handles the "kick" action.
func (h *Handler) kick(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareMid == "" {
		return nil, missingField("squareMid")
	}
	if req.SquareMemberMid == "" {
		return nil, missingField("squareMemberMid")
	}

	member, err := client.UpdateMember(ctx, platform.UpdateMemberRequest{
		SquareMid:       req.SquareMid,
		SquareMemberMid: req.SquareMemberMid,
		Attributes:      []string{"STATE"},
		MembershipState: platform.MembershipKicked,
		Revision:        1,
	})
	if err != nil {
		return nil, err
	}

	h.recordAudit(ctx, &store.AuditEntry{
		Action:         req.Action,
		SquareMid:      req.SquareMid,
		TargetMid:      req.SquareMemberMid,
		CredentialHash: store.HashCredential(req.accessToken()),
	})

	return &actionResponse{Member: member}, nil
}

// acceptJoin handles the "acceptJoin" action.
func (h *Handler) acceptJoin(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareMid == "" {
		return nil, missingField("squareMid")
	}
	if req.SquareMemberMid == "" {
		return nil, missingField("squareMemberMid")
	}

	if err := client.AcceptJoinRequests(ctx, req.SquareMid, []string{req.SquareMemberMid}); err != nil {
		return nil, err
	}

	h.recordAudit(ctx, &store.AuditEntry{
		Action:         req.Action,
		SquareMid:      req.SquareMid,
		TargetMid:      req.SquareMemberMid,
		CredentialHash: store.HashCredential(req.accessToken()),
	})

	return &actionResponse{Accepted: []string{req.SquareMemberMid}}, nil
}

// rejectJoin handles the "rejectJoin" action.
func (h *Handler) rejectJoin(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareMid == "" {
		return nil, missingField("squareMid")
	}
	if req.SquareMemberMid == "" {
		return nil, missingField("squareMemberMid")
	}

	if err := client.RejectJoinRequests(ctx, req.SquareMid, []string{req.SquareMemberMid}); err != nil {
		return nil, err
	}

	h.recordAudit(ctx, &store.AuditEntry{
		Action:         req.Action,
		SquareMid:      req.SquareMid,
		TargetMid:      req.SquareMemberMid,
		CredentialHash: store.HashCredential(req.accessToken()),
	})

	return &actionResponse{Rejected: []string{req.SquareMemberMid}}, nil
}

// getMember handles the "getMember" action.
func (h *Handler) getMember(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareChatMid == "" {
		return nil, missingField("squareChatMid")
	}
	if req.Mid == "" {
		return nil, missingField("mid")
	}

	member, err := client.GetMember(ctx, req.SquareChatMid, req.Mid)
	if err != nil {
		return nil, err
	}
	return &actionResponse{Member: member}, nil
}

// listMembers handles the "listMembers" action.
func (h *Handler) listMembers(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareChatMid == "" {
		return nil, missingField("squareChatMid")
	}

	members, err := client.ListMembers(ctx, req.SquareChatMid, 0, memberListLimit)
	if err != nil {
		return nil, err
	}
	return &actionResponse{Members: members}, nil
}

// listJoinRequests handles the "listJoinRequests" action.
func (h *Handler) listJoinRequests(ctx context.Context, client platform.Client, req *ActionRequest) (*actionResponse, error) {
	if req.SquareMid == "" {
		return nil, missingField("squareMid")
	}

	requests, err := client.ListJoinRequests(ctx, req.SquareMid, memberListLimit)
	if err != nil {
		return nil, err
	}
	return &actionResponse{Requests: requests}, nil
}
