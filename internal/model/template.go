// Package model defines the canonical workspace template types.
package model

import (
	"fmt"

	"github.com/rcliao/layoutkit/internal/perms"
)

// Platform ceilings enforced at validation time.
const (
	MaxChannels = 500
	MaxRoles    = 200
)

// EveryoneRef is the overwrite target that always resolves to the
// workspace's implicit default role.
const EveryoneRef = "everyone"

// Default names used when normalization leaves nothing behind.
const (
	DefaultCategoryName = "Category"
	DefaultChannelName  = "channel"
)

// ChannelKind is the kind of a channel.
type ChannelKind string

const (
	KindText  ChannelKind = "text"
	KindVoice ChannelKind = "voice"
)

// Template is the platform-agnostic structure of a workspace.
// Categories are in materialization order.
type Template struct {
	Categories []Category `json:"categories" yaml:"categories"`
	Roles      []RoleSpec `json:"roles,omitempty" yaml:"roles,omitempty"`
	Summary    string     `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Category is a named group of channels.
type Category struct {
	Name     string        `json:"name" yaml:"name"`
	Channels []ChannelSpec `json:"channels" yaml:"channels"`
}

// ChannelSpec describes one text or voice channel.
type ChannelSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Kind       ChannelKind     `json:"type" yaml:"type"`
	Topic      string          `json:"topic,omitempty" yaml:"topic,omitempty"`
	Private    bool            `json:"private" yaml:"private"`
	NSFW       bool            `json:"nsfw,omitempty" yaml:"nsfw,omitempty"`
	Slowmode   int             `json:"slowmode,omitempty" yaml:"slowmode,omitempty"`
	Overwrites []OverwriteSpec `json:"overwrites,omitempty" yaml:"overwrites,omitempty"`
}

// OverwriteSpec is a per-channel allow/deny exception for a role.
// RoleRef is EveryoneRef or the RefID of a RoleSpec in the same Template.
type OverwriteSpec struct {
	RoleRef string         `json:"roleRefId" yaml:"roleRefId"`
	Allow   perms.Bitfield `json:"allow" yaml:"allow"`
	Deny    perms.Bitfield `json:"deny" yaml:"deny"`
}

// RoleSpec describes a permission group. RefID is unique within its
// Template and carries no meaning outside it.
type RoleSpec struct {
	RefID       string         `json:"refId" yaml:"refId"`
	Name        string         `json:"name" yaml:"name"`
	Color       int            `json:"color" yaml:"color"`
	Hoist       bool           `json:"hoist" yaml:"hoist"`
	Mentionable bool           `json:"mentionable" yaml:"mentionable"`
	Permissions perms.Bitfield `json:"permissions" yaml:"permissions"`
	Position    int            `json:"position,omitempty" yaml:"position,omitempty"`
	IsEveryone  bool           `json:"isEveryone" yaml:"isEveryone"`
}

// ChannelCount returns the number of channels across all categories.
func ChannelCount(t Template) int {
	n := 0
	for _, c := range t.Categories {
		n += len(c.Channels)
	}
	return n
}

// Summarize returns the human-readable count line for t.
func Summarize(t Template) string {
	return fmt.Sprintf("%d categories / %d channels", len(t.Categories), ChannelCount(t))
}

// Degraded reports whether t came out of parsing with no categories.
// Callers usually show a fallback instead.
func Degraded(t Template) bool {
	return len(t.Categories) == 0
}

// Starter returns the canned three-channel template used when a layout
// could not be recovered.
func Starter(reason string) Template {
	return Template{
		Categories: []Category{
			{
				Name: "from-image",
				Channels: []ChannelSpec{
					{Name: "welcome", Kind: KindText, Topic: "Welcome channel with info."},
					{Name: "rules", Kind: KindText, Topic: "Server rules."},
					{Name: "hangout", Kind: KindVoice, Topic: "Simple voice channel."},
				},
			},
		},
		Roles:   []RoleSpec{},
		Summary: fmt.Sprintf("Fallback template (%s)", reason),
	}
}

// Platform field limits applied when names and topics are materialized.
const (
	NameLimit  = 90
	TopicLimit = 1024
)

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
