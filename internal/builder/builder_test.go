package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/layoutkit/internal/model"
	"github.com/rcliao/layoutkit/internal/perms"
	"github.com/rcliao/layoutkit/internal/workspace"
)

func channels(n int) []model.ChannelSpec {
	out := make([]model.ChannelSpec, n)
	for i := range out {
		out[i] = model.ChannelSpec{Name: fmt.Sprintf("c%d", i), Kind: model.KindText}
	}
	return out
}

func TestValidate_ChannelCeiling(t *testing.T) {
	ok := model.Template{Categories: []model.Category{
		{Name: "a", Channels: channels(250)},
		{Name: "b", Channels: channels(250)},
	}}
	require.NoError(t, Validate(ok))

	over := model.Template{Categories: []model.Category{
		{Name: "a", Channels: channels(250)},
		{Name: "b", Channels: channels(250)},
		{Name: "c", Channels: channels(1)},
	}}
	err := Validate(over)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateInvalid))
	assert.Contains(t, err.Error(), "501 channels")
}

func TestValidate_Rejects(t *testing.T) {
	roles := make([]model.RoleSpec, 201)
	for i := range roles {
		roles[i] = model.RoleSpec{RefID: fmt.Sprintf("r%d", i), Name: "r"}
	}

	tests := []struct {
		name   string
		tpl    model.Template
		reason string
	}{
		{"missing categories", model.Template{}, "missing categories"},
		{"too many roles", model.Template{Categories: []model.Category{}, Roles: roles}, "201 roles"},
		{"duplicate ref", model.Template{Categories: []model.Category{}, Roles: []model.RoleSpec{
			{RefID: "x", Name: "a"}, {RefID: "x", Name: "b"},
		}}, "duplicate"},
		{"empty ref", model.Template{Categories: []model.Category{}, Roles: []model.RoleSpec{{Name: "a"}}}, "no refId"},
		{"bad color", model.Template{Categories: []model.Category{}, Roles: []model.RoleSpec{{RefID: "x", Name: "a", Color: 0x1000000}}}, "24-bit"},
		{"bad kind", model.Template{Categories: []model.Category{
			{Name: "a", Channels: []model.ChannelSpec{{Name: "x", Kind: "stage"}}},
		}}, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tpl)
			var inv *InvalidError
			require.ErrorAs(t, err, &inv)
			assert.Contains(t, inv.Reason, tt.reason)
		})
	}
}

func TestValidate_AcceptsEmptyAndStarter(t *testing.T) {
	assert.NoError(t, Validate(model.Template{Categories: []model.Category{}}))
	assert.NoError(t, Validate(model.Starter("test")))
}

func sampleTemplate() model.Template {
	return model.Template{
		Roles: []model.RoleSpec{
			{RefID: "everyone-live", Name: "@everyone", IsEveryone: true},
			{RefID: "role-mod", Name: "Moderator", Color: 0xff944d, Mentionable: true, Permissions: perms.KickMembers | perms.BanMembers},
		},
		Categories: []model.Category{
			{Name: "INFO", Channels: []model.ChannelSpec{
				{Name: "welcome", Kind: model.KindText, Topic: "Welcome channel with server info."},
				{Name: "mod-log", Kind: model.KindText, Overwrites: []model.OverwriteSpec{
					{RoleRef: model.EveryoneRef, Deny: perms.ViewChannel},
					{RoleRef: "role-mod", Allow: perms.ViewChannel},
				}},
			}},
			{Name: "VOICE", Channels: []model.ChannelSpec{
				{Name: "general-hangout", Kind: model.KindVoice, Topic: "A voice channel for talking."},
			}},
		},
	}
}

func TestMaterialize_Order(t *testing.T) {
	ws := newFakeWorkspace()
	res, err := Materialize(context.Background(), sampleTemplate(), ws)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"role:Moderator",
		"category:INFO",
		"text:welcome",
		"text:mod-log",
		"category:VOICE",
		"voice:general-hangout",
	}, ws.calls)

	assert.Equal(t, 1, res.Roles)
	assert.Equal(t, 3, res.Channels)
	require.Len(t, res.Categories, 2)
	assert.Equal(t, "default", res.RoleIDs[model.EveryoneRef])
	assert.Equal(t, "default", res.RoleIDs["everyone-live"])

	modLog, ok := ws.channel("mod-log")
	require.True(t, ok)
	require.Len(t, modLog.Overwrites, 2)
	assert.Equal(t, "default", modLog.Overwrites[0].TargetID)
	assert.Equal(t, perms.ViewChannel, modLog.Overwrites[0].Deny)
	assert.Equal(t, res.RoleIDs["role-mod"], modLog.Overwrites[1].TargetID)
	assert.Equal(t, workspace.TargetRole, modLog.Overwrites[1].TargetKind)

	voice, _ := ws.channel("general-hangout")
	assert.Empty(t, voice.Topic, "voice channels carry no topic")
}

func TestMaterialize_UnresolvedReference(t *testing.T) {
	tpl := model.Template{Categories: []model.Category{
		{Name: "first", Channels: []model.ChannelSpec{{Name: "ok", Kind: model.KindText}}},
		{Name: "second", Channels: []model.ChannelSpec{
			{Name: "before", Kind: model.KindText},
			{Name: "broken", Kind: model.KindText, Overwrites: []model.OverwriteSpec{{RoleRef: "role-missing"}}},
			{Name: "after", Kind: model.KindText},
		}},
		{Name: "third", Channels: channels(1)},
	}}

	for _, n := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", n), func(t *testing.T) {
			ws := newFakeWorkspace()
			res, err := Materialize(context.Background(), tpl, ws, WithConcurrency(n))

			var ure *UnresolvedReferenceError
			require.ErrorAs(t, err, &ure)
			assert.True(t, errors.Is(err, ErrUnresolvedReference))
			assert.Equal(t, "role-missing", ure.RoleRef)
			assert.Equal(t, "second", ure.Category)
			assert.Equal(t, "broken", ure.Channel)

			_, ok := ws.channel("ok")
			assert.True(t, ok)
			_, ok = ws.channel("before")
			assert.True(t, ok)
			_, ok = ws.channel("broken")
			assert.False(t, ok)
			_, ok = ws.channel("after")
			assert.False(t, ok)
			assert.NotContains(t, ws.calls, "category:third")

			assert.Equal(t, 2, res.Channels)
			require.Len(t, res.Categories, 2)
		})
	}
}

func TestMaterialize_TopicRetry(t *testing.T) {
	ws := newFakeWorkspace()
	ws.failTopic = true

	res, err := Materialize(context.Background(), sampleTemplate(), ws)
	require.NoError(t, err)

	welcome, ok := ws.channel("welcome")
	require.True(t, ok)
	assert.Empty(t, welcome.Topic)
	assert.True(t, res.Categories[0].Channels[0].TopicDropped)
	assert.False(t, res.Categories[0].Channels[1].TopicDropped)
}

func TestMaterialize_CreationFailure(t *testing.T) {
	ws := newFakeWorkspace()
	ws.failNames = map[string]bool{"mod-log": true}

	res, err := Materialize(context.Background(), sampleTemplate(), ws)
	var ce *CreationError
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, ErrResourceCreation))
	assert.Equal(t, "text", ce.Kind)
	assert.Equal(t, "mod-log", ce.Name)

	assert.Equal(t, 1, res.Channels)
	assert.NotContains(t, ws.calls, "category:VOICE")
}

func TestMaterialize_SanitizesFields(t *testing.T) {
	tpl := model.Template{Categories: []model.Category{
		{Name: "   ", Channels: []model.ChannelSpec{
			{Name: "", Kind: model.KindText, Topic: strings.Repeat("t", 2000), Slowmode: -5, NSFW: true},
			{Name: strings.Repeat("n", 120), Kind: model.KindText},
		}},
	}}
	ws := newFakeWorkspace()
	_, err := Materialize(context.Background(), tpl, ws)
	require.NoError(t, err)

	assert.Equal(t, "category:Category", ws.calls[0])
	ch, ok := ws.channel("channel")
	require.True(t, ok)
	assert.Len(t, ch.Topic, model.TopicLimit)
	assert.Equal(t, 0, ch.Slowmode)
	assert.True(t, ch.NSFW)
	_, ok = ws.channel(strings.Repeat("n", model.NameLimit))
	assert.True(t, ok)
}

func TestMaterialize_ConcurrentWithinCategory(t *testing.T) {
	var inFlight, peak int32
	ws := newFakeWorkspace()
	ws.onCreate = func(string) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		defer atomic.AddInt32(&inFlight, -1)
	}

	tpl := model.Template{Categories: []model.Category{
		{Name: "a", Channels: channels(20)},
		{Name: "b", Channels: channels(20)},
	}}
	res, err := Materialize(context.Background(), tpl, ws, WithConcurrency(4))
	require.NoError(t, err)
	assert.Equal(t, 40, res.Channels)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))

	// Results keep template order regardless of completion order.
	for i, ch := range res.Categories[0].Channels {
		assert.Equal(t, fmt.Sprintf("c%d", i), ch.Name)
	}
	// Every channel of a lands before category b exists.
	catB := -1
	for i, c := range ws.calls {
		if c == "category:b" {
			catB = i
		}
	}
	assert.Equal(t, 21, catB)
}

func TestCreateRoles(t *testing.T) {
	ws := newFakeWorkspace()
	ids, err := CreateRoles(context.Background(), []model.RoleSpec{
		{Name: "Admin", Permissions: perms.Administrator},
		{Name: "@everyone", IsEveryone: true},
	}, ws, WithReason("role import"))
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, []string{"role:Admin", "role:@everyone"}, ws.calls)
	assert.Equal(t, []string{"role import", "role import"}, ws.reasons)
}

func TestExtract(t *testing.T) {
	ws := newFakeWorkspace()
	ctx := context.Background()
	modID, _ := ws.CreateRole(ctx, workspace.RoleParams{Name: "Mod", Color: 0x123456, Permissions: perms.KickMembers})
	catID, _ := ws.CreateCategory(ctx, "INFO")
	ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: "orphan"})
	ws.CreateChannel(ctx, workspace.ChannelParams{
		Kind: workspace.KindText, Name: "staff", CategoryID: catID, Topic: "Staff only.", Slowmode: 5,
		Overwrites: []workspace.Overwrite{
			{TargetID: "default", TargetKind: workspace.TargetRole, Deny: perms.ViewChannel},
			{TargetID: "user-1", TargetKind: workspace.TargetMember, Allow: perms.ViewChannel},
			{TargetID: modID, TargetKind: workspace.TargetRole, Allow: perms.ViewChannel},
		},
	})
	ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindVoice, Name: "lounge", CategoryID: catID})
	ws.CreateCategory(ctx, "EMPTY")

	tpl, err := Extract(ctx, ws)
	require.NoError(t, err)

	assert.Equal(t, "2 categories copied", tpl.Summary)
	require.Len(t, tpl.Roles, 2)
	assert.True(t, tpl.Roles[0].IsEveryone)
	assert.Equal(t, "default", tpl.Roles[0].RefID)
	assert.Equal(t, modID, tpl.Roles[1].RefID)
	assert.Equal(t, perms.KickMembers, tpl.Roles[1].Permissions)

	require.Len(t, tpl.Categories, 2)
	info := tpl.Categories[0]
	require.Len(t, info.Channels, 2)
	staff := info.Channels[0]
	assert.Equal(t, "Staff only.", staff.Topic)
	assert.Equal(t, 5, staff.Slowmode)
	require.Len(t, staff.Overwrites, 2)
	assert.Equal(t, "default", staff.Overwrites[0].RoleRef)
	assert.Equal(t, modID, staff.Overwrites[1].RoleRef)
	assert.Equal(t, model.KindVoice, info.Channels[1].Kind)
	assert.NotNil(t, tpl.Categories[1].Channels)

	require.NoError(t, Validate(tpl))
}
