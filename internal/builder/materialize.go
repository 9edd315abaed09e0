package builder

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/workspace"
)

const defaultReason = "layoutkit"

// Option configures a materialization run.
type Option func(*materializer)

// WithLogger sets the run logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *materializer) { m.log = l }
}

// WithConcurrency lets up to n channel creates of one category run at
// once. Values below 2 keep creation strictly sequential.
func WithConcurrency(n int) Option {
	return func(m *materializer) {
		if n < 1 {
			n = 1
		}
		m.concurrency = n
	}
}

// WithReason sets the audit reason attached to every create call.
func WithReason(reason string) Option {
	return func(m *materializer) { m.reason = reason }
}

// ChannelResult is one created channel.
type ChannelResult struct {
	Name         string            `json:"name"`
	ID           string            `json:"id"`
	Kind         model.ChannelKind `json:"type"`
	TopicDropped bool              `json:"topic_dropped,omitempty"`
}

// CategoryResult is one created category and the channels created under it.
type CategoryResult struct {
	Name     string          `json:"name"`
	ID       string          `json:"id"`
	Channels []ChannelResult `json:"channels"`
}

// Result describes what a run created. It is returned even when the run
// fails part way; nothing it lists is rolled back.
type Result struct {
	RoleIDs    map[string]string `json:"role_ids"`
	Categories []CategoryResult  `json:"categories"`
	Roles      int               `json:"roles"`
	Channels   int               `json:"channels"`
}

type materializer struct {
	ws          workspace.Workspace
	log         zerolog.Logger
	concurrency int
	reason      string
}

func newMaterializer(ws workspace.Workspace, opts []Option) *materializer {
	m := &materializer{ws: ws, log: zerolog.Nop(), concurrency: 1, reason: defaultReason}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Materialize creates the roles, categories and channels of t in ws.
//
// Roles are created first and recorded in a reference table, then each
// category followed by its channels. An overwrite naming a role that is
// not in t stops the run with an *UnresolvedReferenceError before that
// channel is created. A rejected create stops the run with a
// *CreationError. Resources created before a failure stay in place.
// Materializing the same template twice creates duplicates.
func Materialize(ctx context.Context, t model.Template, ws workspace.Workspace, opts ...Option) (*Result, error) {
	m := newMaterializer(ws, opts)
	res := &Result{RoleIDs: map[string]string{}}

	m.log.Info().Int("roles", len(t.Roles)).Int("categories", len(t.Categories)).
		Int("channels", model.ChannelCount(t)).Msg("materialize start")

	if err := m.resolveRoles(ctx, t.Roles, res); err != nil {
		return res, err
	}
	for _, c := range t.Categories {
		if err := m.buildCategory(ctx, c, res); err != nil {
			m.log.Error().Err(err).Int("channels", res.Channels).Msg("materialize stopped")
			return res, err
		}
	}

	m.log.Info().Int("roles", res.Roles).Int("categories", len(res.Categories)).
		Int("channels", res.Channels).Msg("materialize done")
	return res, nil
}

// resolveRoles fills the reference table. The default role is reused for
// the everyone sentinel and for specs that describe it.
func (m *materializer) resolveRoles(ctx context.Context, roles []model.RoleSpec, res *Result) error {
	defaultID := m.ws.DefaultRoleID()
	res.RoleIDs[model.EveryoneRef] = defaultID

	for _, r := range roles {
		if r.IsEveryone || r.RefID == defaultID {
			res.RoleIDs[r.RefID] = defaultID
			continue
		}
		id, err := m.createRole(ctx, r)
		if err != nil {
			return err
		}
		res.RoleIDs[r.RefID] = id
		res.Roles++
	}
	return nil
}

func (m *materializer) createRole(ctx context.Context, r model.RoleSpec) (string, error) {
	name := sanitize(r.Name, "role")
	id, err := m.ws.CreateRole(ctx, workspace.RoleParams{
		Name:        name,
		Color:       r.Color,
		Hoist:       r.Hoist,
		Mentionable: r.Mentionable,
		Permissions: r.Permissions,
		Reason:      m.reason,
	})
	if err != nil {
		return "", &CreationError{Kind: "role", Name: name, Err: err}
	}
	m.log.Debug().Str("role", name).Str("id", id).Msg("created role")
	return id, nil
}

func (m *materializer) buildCategory(ctx context.Context, c model.Category, res *Result) error {
	name := sanitize(c.Name, model.DefaultCategoryName)
	catID, err := m.ws.CreateCategory(ctx, name)
	if err != nil {
		return &CreationError{Kind: "category", Name: name, Err: err}
	}
	m.log.Debug().Str("category", name).Str("id", catID).Msg("created category")

	res.Categories = append(res.Categories, CategoryResult{
		Name:     name,
		ID:       catID,
		Channels: make([]ChannelResult, 0, len(c.Channels)),
	})
	cr := &res.Categories[len(res.Categories)-1]

	created := make([]*ChannelResult, len(c.Channels))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	var stop error
	for i, spec := range c.Channels {
		i, spec := i, spec
		// Resolve before dispatch: a bad reference never creates its channel.
		ows, missing := resolveOverwrites(spec.Overwrites, res.RoleIDs)
		if missing != "" {
			stop = &UnresolvedReferenceError{RoleRef: missing, Category: name, Channel: spec.Name}
			break
		}
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ch, err := m.createChannel(gctx, catID, i, spec, ows)
			if err != nil {
				return err
			}
			mu.Lock()
			created[i] = ch
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	for _, ch := range created {
		if ch != nil {
			cr.Channels = append(cr.Channels, *ch)
			res.Channels++
		}
	}
	if err != nil {
		return err
	}
	return stop
}

// resolveOverwrites maps role references to live ids. It returns the
// first reference missing from roleIDs, if any.
func resolveOverwrites(specs []model.OverwriteSpec, roleIDs map[string]string) ([]workspace.Overwrite, string) {
	if len(specs) == 0 {
		return nil, ""
	}
	out := make([]workspace.Overwrite, 0, len(specs))
	for _, ow := range specs {
		id, ok := roleIDs[ow.RoleRef]
		if !ok {
			return nil, ow.RoleRef
		}
		out = append(out, workspace.Overwrite{
			TargetID:   id,
			TargetKind: workspace.TargetRole,
			Allow:      ow.Allow,
			Deny:       ow.Deny,
		})
	}
	return out, ""
}

func (m *materializer) createChannel(ctx context.Context, catID string, index int, spec model.ChannelSpec, ows []workspace.Overwrite) (*ChannelResult, error) {
	p := workspace.ChannelParams{
		Kind:       workspace.KindText,
		Name:       sanitize(spec.Name, model.DefaultChannelName),
		CategoryID: catID,
		Position:   index,
		Private:    spec.Private,
		Overwrites: ows,
		Reason:     m.reason,
	}
	if spec.Kind == model.KindVoice {
		p.Kind = workspace.KindVoice
		id, err := m.ws.CreateChannel(ctx, p)
		if err != nil {
			return nil, &CreationError{Kind: string(p.Kind), Name: p.Name, Err: err}
		}
		m.log.Debug().Str("channel", p.Name).Str("id", id).Msg("created voice channel")
		return &ChannelResult{Name: p.Name, ID: id, Kind: model.KindVoice}, nil
	}

	p.Topic = model.Truncate(spec.Topic, model.TopicLimit)
	p.NSFW = spec.NSFW
	if spec.Slowmode > 0 {
		p.Slowmode = spec.Slowmode
	}

	res := &ChannelResult{Name: p.Name, Kind: model.KindText}
	id, err := m.ws.CreateChannel(ctx, p)
	if err != nil && p.Topic != "" {
		m.log.Warn().Err(err).Str("channel", p.Name).Msg("retrying text channel without topic")
		p.Topic = ""
		res.TopicDropped = true
		id, err = m.ws.CreateChannel(ctx, p)
	}
	if err != nil {
		return nil, &CreationError{Kind: string(p.Kind), Name: p.Name, Err: err}
	}
	m.log.Debug().Str("channel", p.Name).Str("id", id).Msg("created text channel")
	res.ID = id
	return res, nil
}

// CreateRoles creates one live role per RoleSpec, in order, without mapping
// any of them onto the default role. It returns the ids created so far.
func CreateRoles(ctx context.Context, roles []model.RoleSpec, ws workspace.Workspace, opts ...Option) ([]string, error) {
	m := newMaterializer(ws, opts)
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		id, err := m.createRole(ctx, r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	m.log.Info().Int("roles", len(ids)).Msg("roles imported")
	return ids, nil
}

func sanitize(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return model.Truncate(name, model.NameLimit)
}
