package builder

import (
	"fmt"

	"github.com/rcliao/layoutkit/internal/model"
)

// Validate checks t against the platform ceilings and basic structure.
// It never modifies t.
func Validate(t model.Template) error {
	if t.Categories == nil {
		return &InvalidError{Reason: "missing categories"}
	}

	if n := model.ChannelCount(t); n > model.MaxChannels {
		return &InvalidError{Reason: fmt.Sprintf("%d channels exceeds the limit of %d", n, model.MaxChannels)}
	}
	if n := len(t.Roles); n > model.MaxRoles {
		return &InvalidError{Reason: fmt.Sprintf("%d roles exceeds the limit of %d", n, model.MaxRoles)}
	}

	refs := make(map[string]bool, len(t.Roles))
	for i, r := range t.Roles {
		if r.RefID == "" {
			return &InvalidError{Reason: fmt.Sprintf("role %d (%q) has no refId", i, r.Name)}
		}
		if refs[r.RefID] {
			return &InvalidError{Reason: fmt.Sprintf("duplicate role refId %q", r.RefID)}
		}
		refs[r.RefID] = true
		if r.Color < 0 || r.Color > 0xffffff {
			return &InvalidError{Reason: fmt.Sprintf("role %q color %d is not a 24-bit RGB value", r.Name, r.Color)}
		}
	}

	for _, c := range t.Categories {
		for _, ch := range c.Channels {
			switch ch.Kind {
			case model.KindText, model.KindVoice:
			default:
				return &InvalidError{Reason: fmt.Sprintf("channel %s/%s has unknown type %q", c.Name, ch.Name, ch.Kind)}
			}
		}
	}
	return nil
}
