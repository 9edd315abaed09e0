// Package workspace defines the live workspace the builder materializes
// templates into and extracts templates from.
package workspace

import (
	"context"
	"fmt"

	"github.com/rcliao/layoutkit/internal/perms"
)

// ChannelKind distinguishes category containers from text and voice channels.
type ChannelKind string

const (
	KindCategory ChannelKind = "category"
	KindText     ChannelKind = "text"
	KindVoice    ChannelKind = "voice"
)

// TargetKind is what an overwrite applies to.
type TargetKind string

const (
	TargetRole   TargetKind = "role"
	TargetMember TargetKind = "member"
)

// Role is a live role.
type Role struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Color       int            `json:"color"`
	Hoist       bool           `json:"hoist"`
	Mentionable bool           `json:"mentionable"`
	Permissions perms.Bitfield `json:"permissions"`
	Position    int            `json:"position"`
}

// Overwrite is a live per-channel permission exception.
type Overwrite struct {
	TargetID   string         `json:"target_id"`
	TargetKind TargetKind     `json:"target_kind"`
	Allow      perms.Bitfield `json:"allow"`
	Deny       perms.Bitfield `json:"deny"`
}

// Channel is a live channel or category container.
// ParentID is empty for categories and uncategorized channels.
type Channel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       ChannelKind `json:"kind"`
	ParentID   string      `json:"parent_id,omitempty"`
	Position   int         `json:"position"`
	Topic      string      `json:"topic,omitempty"`
	Private    bool        `json:"private,omitempty"`
	NSFW       bool        `json:"nsfw,omitempty"`
	Slowmode   int         `json:"slowmode,omitempty"`
	Overwrites []Overwrite `json:"overwrites,omitempty"`
}

// RoleParams holds parameters for creating a role.
type RoleParams struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
	Permissions perms.Bitfield
	Reason      string
}

// ChannelParams holds parameters for creating a text or voice channel.
type ChannelParams struct {
	Kind       ChannelKind
	Name       string
	CategoryID string
	Position   int // index among the category's children
	Topic      string
	Private    bool
	NSFW       bool
	Slowmode   int
	Overwrites []Overwrite
	Reason     string
}

// Workspace is a live workspace. Every call may fail with a transport error.
type Workspace interface {
	// CreateRole creates a role and returns its identity.
	CreateRole(ctx context.Context, p RoleParams) (string, error)

	// CreateCategory creates a category container and returns its identity.
	CreateCategory(ctx context.Context, name string) (string, error)

	// CreateChannel creates a text or voice channel under a category.
	CreateChannel(ctx context.Context, p ChannelParams) (string, error)

	// ListRoles returns all roles in native order.
	ListRoles(ctx context.Context) ([]Role, error)

	// ListChannels returns all categories and channels in native order.
	ListChannels(ctx context.Context) ([]Channel, error)

	// DefaultRoleID returns the identity of the implicit everyone role.
	DefaultRoleID() string
}

// FieldError reports that a create call rejected one optional field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s rejected: %s", e.Field, e.Reason)
}
