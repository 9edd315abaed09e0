// Package store provides a SQLite-backed implementation of live workspaces.
package store

import (
	"context"
	"time"
)

// Platform limits the store enforces on create calls.
const (
	maxNameLength  = 100
	maxTopicLength = 1024
	maxSlowmode    = 21600
)

// WorkspaceInfo describes a stored workspace.
type WorkspaceInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	DefaultRoleID string    `json:"default_role_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store manages named workspaces.
type Store interface {
	// Workspace opens the named workspace, creating it when missing.
	Workspace(ctx context.Context, name string) (*Workspace, error)

	// Create creates a new, empty workspace. Fails if the name is taken.
	Create(ctx context.Context, name string) (*Workspace, error)

	// Workspaces lists stored workspaces by name.
	Workspaces(ctx context.Context) ([]WorkspaceInfo, error)

	// Drop deletes a workspace and everything in it.
	Drop(ctx context.Context, name string) error

	// Close closes the store.
	Close() error
}
