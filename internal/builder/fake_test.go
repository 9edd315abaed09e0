package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rcliao/layoutkit/internal/workspace"
)

// fakeWorkspace records every create call in order.
type fakeWorkspace struct {
	mu       sync.Mutex
	next     int
	calls    []string
	reasons  []string
	roles    []workspace.Role
	channels []workspace.Channel

	failTopic bool            // reject text channels that carry a topic
	failNames map[string]bool // reject channels with these names
	onCreate  func(name string)
}

func newFakeWorkspace() *fakeWorkspace {
	f := &fakeWorkspace{}
	f.roles = append(f.roles, workspace.Role{ID: "default", Name: "@everyone"})
	return f
}

func (f *fakeWorkspace) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s-%d", prefix, f.next)
}

func (f *fakeWorkspace) DefaultRoleID() string { return "default" }

func (f *fakeWorkspace) CreateRole(_ context.Context, p workspace.RoleParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("r")
	f.calls = append(f.calls, "role:"+p.Name)
	f.reasons = append(f.reasons, p.Reason)
	f.roles = append(f.roles, workspace.Role{
		ID: id, Name: p.Name, Color: p.Color, Hoist: p.Hoist,
		Mentionable: p.Mentionable, Permissions: p.Permissions, Position: len(f.roles),
	})
	return id, nil
}

func (f *fakeWorkspace) CreateCategory(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("c")
	f.calls = append(f.calls, "category:"+name)
	f.channels = append(f.channels, workspace.Channel{ID: id, Name: name, Kind: workspace.KindCategory, Position: len(f.channels)})
	return id, nil
}

func (f *fakeWorkspace) CreateChannel(_ context.Context, p workspace.ChannelParams) (string, error) {
	if f.onCreate != nil {
		f.onCreate(p.Name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNames[p.Name] {
		return "", errors.New("boom")
	}
	if f.failTopic && p.Topic != "" {
		return "", &workspace.FieldError{Field: "topic", Reason: "rejected"}
	}
	id := f.id("ch")
	f.calls = append(f.calls, string(p.Kind)+":"+p.Name)
	f.channels = append(f.channels, workspace.Channel{
		ID: id, Name: p.Name, Kind: p.Kind, ParentID: p.CategoryID, Position: len(f.channels),
		Topic: p.Topic, Private: p.Private, NSFW: p.NSFW, Slowmode: p.Slowmode, Overwrites: p.Overwrites,
	})
	return id, nil
}

func (f *fakeWorkspace) ListRoles(context.Context) ([]workspace.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]workspace.Role(nil), f.roles...), nil
}

func (f *fakeWorkspace) ListChannels(context.Context) ([]workspace.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]workspace.Channel(nil), f.channels...), nil
}

func (f *fakeWorkspace) channel(name string) (workspace.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels {
		if c.Name == name {
			return c, true
		}
	}
	return workspace.Channel{}, false
}
