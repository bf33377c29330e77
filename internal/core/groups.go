package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chatcore/internal/chat"
	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// Group membership invariant: a group with at least one participant must
// retain at least one admin. Every guard below re-checks roles against the
// store at call time; nothing is cached between operations.

func (c *Core) GetParticipants(ctx context.Context, conn *registry.Conn, conversationID string) error {
	if err := c.requireGroup(ctx, conversationID); err != nil {
		return err
	}
	if _, err := c.store.ParticipantOf(ctx, conn.Identity.ID, conversationID); err != nil {
		if chat.IsDomain(err) {
			return chat.Permission("You are not a member of this group!")
		}
		return fmt.Errorf("membership check: %w", err)
	}

	parts, err := c.store.Participants(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	c.emit(conn, events.ParticipantsReceived, events.ParticipantsPayload{
		Success:        true,
		ConversationID: conversationID,
		Participants:   parts,
		Count:          len(parts),
	})
	return nil
}

// AddParticipant adds targetUserID to a group with the default member
// role, force-subscribes every live connection of the target and
// converges the room on the refreshed roster.
func (c *Core) AddParticipant(ctx context.Context, conn *registry.Conn, conversationID, targetUserID string) error {
	conv, err := c.store.ConversationByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return chat.Validation("Conversation isn't a group!")
	}
	if err := c.requireAdmin(ctx, conn.Identity.ID, conversationID, "Only admin can add members!"); err != nil {
		return err
	}
	if _, err := c.store.UserByID(ctx, targetUserID); err != nil {
		if chat.IsDomain(err) {
			return chat.NotFound("User not found!")
		}
		return fmt.Errorf("user lookup: %w", err)
	}

	participant, err := c.store.AddParticipant(ctx, conversationID, targetUserID)
	if err != nil {
		return err
	}

	c.emit(conn, events.ParticipantAdded, events.ParticipantAddedPayload{
		Success:     true,
		Message:     "Member successfully added to group!",
		Participant: participant,
	})
	c.broadcastRoomExcept(conversationID, conn.ID, events.NewParticipant, events.NewParticipantPayload{
		ConversationID: conversationID,
		Participant:    participant,
	})

	groupName := conv.Name
	if groupName == "" {
		groupName = "Group Chat"
	}
	for _, target := range c.reg.Connections(targetUserID) {
		c.reg.Subscribe(target.ID, conversationID)
	}
	c.broadcastUser(targetUserID, events.AddedToGroup, events.AddedToGroupPayload{
		ConversationID: conversationID,
		GroupName:      groupName,
		AddedBy:        conn.Identity.ID,
	})

	c.notifyParticipantsChange(ctx, conversationID)
	c.logger.Info("participant added",
		slog.String("conversationID", conversationID),
		slog.String("userID", targetUserID),
		slog.String("addedBy", conn.Identity.ID),
	)
	return nil
}

// RemoveParticipant removes a participant from a group. Removing the last
// admin is rejected and leaves the store unchanged.
func (c *Core) RemoveParticipant(ctx context.Context, conn *registry.Conn, conversationID, participantID string) error {
	if err := c.requireGroup(ctx, conversationID); err != nil {
		return err
	}
	if err := c.requireAdmin(ctx, conn.Identity.ID, conversationID, "Only admin can remove members!"); err != nil {
		return err
	}

	target, err := c.store.ParticipantByID(ctx, participantID, conversationID)
	if err != nil {
		return err
	}
	if target.Role == chat.RoleAdmin {
		if n, err := c.adminCount(ctx, conversationID); err != nil {
			return err
		} else if n <= 1 {
			return chat.Invariant("Cannot remove the last admin, assign admin role to another member first!")
		}
	}

	if err := c.store.RemoveParticipant(ctx, conversationID, participantID); err != nil {
		return err
	}

	c.emit(conn, events.ParticipantRemoved, events.ParticipantRemovedPayload{
		Success:       true,
		Message:       "Member successfully removed from group!",
		RemovedUserID: target.UserID,
	})

	removedName := target.UserID
	if target.User != nil {
		removedName = target.User.Name
	}
	c.broadcastRoom(conversationID, events.GroupNotification, events.GroupNotificationPayload{
		Type:           events.NotifyMemberRemoved,
		ConversationID: conversationID,
		Message:        fmt.Sprintf("%s has been removed from the group", removedName),
		Timestamp:      time.Now(),
		Metadata: map[string]string{
			"removedUserId":   target.UserID,
			"removedByUserId": conn.Identity.ID,
		},
	})

	c.unsubscribeUser(target.UserID, conversationID)
	c.broadcastUser(target.UserID, events.RemovedFromGroup, events.RemovedFromGroupPayload{
		ConversationID: conversationID,
		RemovedBy:      conn.Identity.ID,
	})

	c.notifyParticipantsChange(ctx, conversationID)
	c.logger.Info("participant removed",
		slog.String("conversationID", conversationID),
		slog.String("userID", target.UserID),
		slog.String("removedBy", conn.Identity.ID),
	)
	return nil
}

// UpdateRole promotes or demotes a participant. Demoting the sole admin
// falls under the same last-admin invariant as removal.
func (c *Core) UpdateRole(ctx context.Context, conn *registry.Conn, conversationID, participantID string, role chat.Role) error {
	if err := c.requireGroup(ctx, conversationID); err != nil {
		return err
	}
	if err := c.requireAdmin(ctx, conn.Identity.ID, conversationID, "Only admin can change member roles!"); err != nil {
		return err
	}

	target, err := c.store.ParticipantByID(ctx, participantID, conversationID)
	if err != nil {
		return err
	}
	if target.Role == chat.RoleAdmin && role == chat.RoleMember {
		if n, err := c.adminCount(ctx, conversationID); err != nil {
			return err
		} else if n <= 1 {
			return chat.Invariant("Cannot demote the last admin, assign admin role to another member first!")
		}
	}

	updated, err := c.store.UpdateParticipantRole(ctx, conversationID, participantID, role)
	if err != nil {
		return err
	}

	c.broadcastRoom(conversationID, events.GroupNotification, events.GroupNotificationPayload{
		Type:           events.NotifyRoleChanged,
		ConversationID: conversationID,
		Message:        fmt.Sprintf("Member role changed to %s", role),
		Timestamp:      time.Now(),
		Metadata: map[string]string{
			"userId":    updated.UserID,
			"role":      string(role),
			"changedBy": conn.Identity.ID,
		},
	})
	c.notifyParticipantsChange(ctx, conversationID)
	return nil
}

// LeaveGroup is the actor-initiated departure. The sole admin may only
// leave when also the sole participant, in which case the group itself is
// deleted.
func (c *Core) LeaveGroup(ctx context.Context, conn *registry.Conn, conversationID string) error {
	if err := c.requireGroup(ctx, conversationID); err != nil {
		return err
	}

	actor, err := c.store.ParticipantOf(ctx, conn.Identity.ID, conversationID)
	if err != nil {
		return err
	}

	parts, err := c.store.Participants(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	admins := lo.CountBy(parts, func(p chat.Participant) bool { return p.Role == chat.RoleAdmin })

	if actor.Role == chat.RoleAdmin && admins <= 1 {
		if len(parts) > 1 {
			return chat.Invariant("You are the last admin, assign admin roles to other members first!")
		}

		// Sole admin and sole participant: the group dissolves.
		if err := c.store.RemoveParticipant(ctx, conversationID, actor.ID); err != nil {
			return err
		}
		if err := c.store.DeleteConversation(ctx, conversationID); err != nil {
			return err
		}
		c.unsubscribeUser(conn.Identity.ID, conversationID)
		c.emit(conn, events.LeftGroup, events.LeftGroupPayload{
			Success: true,
			Message: "You have left the group and the group has been deleted because there are no more members!",
		})
		c.logger.Info("group dissolved",
			slog.String("conversationID", conversationID),
			slog.String("userID", conn.Identity.ID),
		)
		return nil
	}

	if err := c.store.RemoveParticipant(ctx, conversationID, actor.ID); err != nil {
		return err
	}

	c.unsubscribeUser(conn.Identity.ID, conversationID)
	c.emit(conn, events.LeftGroup, events.LeftGroupPayload{
		Success:        true,
		Message:        "You successfully left the group!",
		ConversationID: conversationID,
	})

	leftName := conn.Identity.Name
	if leftName == "" {
		leftName = "A member"
	}
	c.broadcastRoom(conversationID, events.GroupNotification, events.GroupNotificationPayload{
		Type:           events.NotifyMemberLeft,
		ConversationID: conversationID,
		Message:        fmt.Sprintf("%s has left the group", leftName),
		Timestamp:      time.Now(),
		Metadata:       map[string]string{"leftUserId": conn.Identity.ID},
	})

	c.notifyParticipantsChange(ctx, conversationID)
	return nil
}

// notifyParticipantsChange re-broadcasts the full roster so every
// observer converges on the same membership view without applying
// deltas.
func (c *Core) notifyParticipantsChange(ctx context.Context, conversationID string) {
	parts, err := c.store.Participants(ctx, conversationID)
	if err != nil {
		c.logger.Warn("failed to load roster for broadcast",
			slog.String("conversationID", conversationID),
			slog.Any("error", err),
		)
		return
	}
	c.broadcastRoom(conversationID, events.ParticipantsUpdated, events.ParticipantsPayload{
		ConversationID: conversationID,
		Participants:   parts,
	})
}

func (c *Core) requireGroup(ctx context.Context, conversationID string) error {
	isGroup, err := c.store.IsGroup(ctx, conversationID)
	if err != nil {
		return err
	}
	if !isGroup {
		return chat.Validation("Conversation isn't a group!")
	}
	return nil
}

func (c *Core) requireAdmin(ctx context.Context, userID, conversationID, denied string) error {
	isAdmin, err := c.store.IsAdmin(ctx, userID, conversationID)
	if err != nil {
		return fmt.Errorf("admin check: %w", err)
	}
	if !isAdmin {
		return chat.Permission(denied)
	}
	return nil
}

func (c *Core) adminCount(ctx context.Context, conversationID string) (int, error) {
	parts, err := c.store.Participants(ctx, conversationID)
	if err != nil {
		return 0, fmt.Errorf("list participants: %w", err)
	}
	return lo.CountBy(parts, func(p chat.Participant) bool { return p.Role == chat.RoleAdmin }), nil
}

func (c *Core) unsubscribeUser(userID, conversationID string) {
	for _, conn := range c.reg.Connections(userID) {
		c.reg.Unsubscribe(conn.ID, conversationID)
	}
}
