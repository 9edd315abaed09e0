package builder

import (
	"context"
	"fmt"

	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/workspace"
)

// Extract reads the live structure of ws back into a template. Live ids
// become role refIds, so the result materializes unchanged into another
// workspace. Channels outside any category and member overwrites are
// skipped.
func Extract(ctx context.Context, ws workspace.Workspace) (model.Template, error) {
	roles, err := ws.ListRoles(ctx)
	if err != nil {
		return model.Template{}, fmt.Errorf("list roles: %w", err)
	}
	channels, err := ws.ListChannels(ctx)
	if err != nil {
		return model.Template{}, fmt.Errorf("list channels: %w", err)
	}

	t := model.Template{
		Categories: []model.Category{},
		Roles:      make([]model.RoleSpec, 0, len(roles)),
	}

	defaultID := ws.DefaultRoleID()
	for _, r := range roles {
		t.Roles = append(t.Roles, model.RoleSpec{
			RefID:       r.ID,
			Name:        r.Name,
			Color:       r.Color,
			Hoist:       r.Hoist,
			Mentionable: r.Mentionable,
			Permissions: r.Permissions,
			Position:    r.Position,
			IsEveryone:  r.ID == defaultID,
		})
	}

	index := map[string]int{}
	for _, c := range channels {
		if c.Kind == workspace.KindCategory {
			index[c.ID] = len(t.Categories)
			t.Categories = append(t.Categories, model.Category{Name: c.Name, Channels: []model.ChannelSpec{}})
		}
	}

	for _, c := range channels {
		if c.Kind == workspace.KindCategory || c.ParentID == "" {
			continue
		}
		i, ok := index[c.ParentID]
		if !ok {
			continue
		}
		cat := &t.Categories[i]
		cat.Channels = append(cat.Channels, extractChannel(c))
	}

	t.Summary = fmt.Sprintf("%d categories copied", len(t.Categories))
	return t, nil
}

func extractChannel(c workspace.Channel) model.ChannelSpec {
	spec := model.ChannelSpec{
		Name:     c.Name,
		Kind:     model.KindText,
		Topic:    c.Topic,
		Private:  c.Private,
		NSFW:     c.NSFW,
		Slowmode: c.Slowmode,
	}
	if c.Kind == workspace.KindVoice {
		spec.Kind = model.KindVoice
	}
	for _, ow := range c.Overwrites {
		if ow.TargetKind != workspace.TargetRole {
			continue
		}
		spec.Overwrites = append(spec.Overwrites, model.OverwriteSpec{
			RoleRef: ow.TargetID,
			Allow:   ow.Allow,
			Deny:    ow.Deny,
		})
	}
	return spec
}
