package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rcliao/layoutkit/internal/perms"
	"github.com/rcliao/layoutkit/internal/workspace"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestWorkspace(t *testing.T, s *SQLiteStore) *Workspace {
	t.Helper()
	ws, err := s.Create(context.Background(), "test")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	return ws
}

func TestCreateHasEveryoneRole(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ws := newTestWorkspace(t, s)

	if ws.DefaultRoleID() == "" {
		t.Fatal("expected default role id")
	}
	roles, err := ws.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 1 {
		t.Fatalf("expected 1 role, got %d", len(roles))
	}
	if roles[0].ID != ws.DefaultRoleID() || roles[0].Name != "@everyone" {
		t.Errorf("unexpected default role %+v", roles[0])
	}
}

func TestWorkspaceOpensExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Workspace(ctx, "guild")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := s.Workspace(ctx, "guild")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first.ID() != second.ID() || first.DefaultRoleID() != second.DefaultRoleID() {
		t.Error("expected the same workspace on reopen")
	}

	if _, err := s.Create(ctx, "guild"); err == nil {
		t.Error("expected create to fail for a taken name")
	}
	padded, err := s.Workspace(ctx, "  guild ")
	if err != nil {
		t.Fatalf("open padded name: %v", err)
	}
	if padded.ID() != first.ID() {
		t.Error("expected padded name to open the same workspace")
	}

	list, err := s.Workspaces(ctx)
	if err != nil {
		t.Fatalf("workspaces: %v", err)
	}
	if len(list) != 1 || list[0].Name != "guild" {
		t.Errorf("unexpected workspaces %+v", list)
	}
}

func TestRolePositions(t *testing.T) {
	ctx := context.Background()
	ws := newTestWorkspace(t, newTestStore(t))

	for _, name := range []string{"Admin", "Mod", "Helper"} {
		if _, err := ws.CreateRole(ctx, workspace.RoleParams{Name: name, Permissions: perms.KickMembers}); err != nil {
			t.Fatalf("create role %s: %v", name, err)
		}
	}

	roles, _ := ws.ListRoles(ctx)
	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	if got := strings.Join(names, ","); got != "@everyone,Admin,Mod,Helper" {
		t.Errorf("unexpected role order %s", got)
	}
	if roles[1].Permissions != perms.KickMembers {
		t.Errorf("expected kick members bit, got %d", roles[1].Permissions)
	}
}

func TestChannelsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	ws := newTestWorkspace(t, newTestStore(t))

	roleID, _ := ws.CreateRole(ctx, workspace.RoleParams{Name: "Staff"})
	catID, err := ws.CreateCategory(ctx, "INFO")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	chID, err := ws.CreateChannel(ctx, workspace.ChannelParams{
		Kind:       workspace.KindText,
		Name:       "staff-only",
		CategoryID: catID,
		Topic:      "Private.",
		Private:    true,
		Slowmode:   10,
		Overwrites: []workspace.Overwrite{
			{TargetID: ws.DefaultRoleID(), TargetKind: workspace.TargetRole, Deny: perms.ViewChannel},
			{TargetID: roleID, TargetKind: workspace.TargetRole, Allow: perms.ViewChannel},
			{TargetID: "member-1", TargetKind: workspace.TargetMember, Allow: perms.SendMessages},
		},
	})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if _, err := ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindVoice, Name: "lounge", CategoryID: catID, Position: 1}); err != nil {
		t.Fatalf("create voice: %v", err)
	}

	chs, err := ws.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(chs) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(chs))
	}
	if chs[0].Kind != workspace.KindCategory || chs[0].ParentID != "" {
		t.Errorf("expected category first, got %+v", chs[0])
	}
	text := chs[1]
	if text.ID != chID || text.ParentID != catID || text.Topic != "Private." || !text.Private || text.Slowmode != 10 {
		t.Errorf("unexpected text channel %+v", text)
	}
	if len(text.Overwrites) != 3 {
		t.Fatalf("expected 3 overwrites, got %d", len(text.Overwrites))
	}
	if text.Overwrites[0].Deny != perms.ViewChannel || text.Overwrites[2].TargetKind != workspace.TargetMember {
		t.Errorf("unexpected overwrites %+v", text.Overwrites)
	}
	if chs[2].Kind != workspace.KindVoice || chs[2].Position <= text.Position {
		t.Errorf("unexpected voice channel %+v", chs[2])
	}
}

func TestChannelPositionsFollowParams(t *testing.T) {
	ctx := context.Background()
	ws := newTestWorkspace(t, newTestStore(t))

	first, _ := ws.CreateCategory(ctx, "first")
	for _, i := range []int{2, 0, 3, 1} {
		name := string(rune('a' + i))
		if _, err := ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: name, CategoryID: first, Position: i}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	second, _ := ws.CreateCategory(ctx, "second")
	ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: "z", CategoryID: second})

	chs, err := ws.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	var names []string
	for _, c := range chs {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "first,a,b,c,d,second,z" {
		t.Errorf("unexpected channel order %s", got)
	}
}

func TestCreateChannelLimits(t *testing.T) {
	ctx := context.Background()
	ws := newTestWorkspace(t, newTestStore(t))
	catID, _ := ws.CreateCategory(ctx, "cat")

	_, err := ws.CreateChannel(ctx, workspace.ChannelParams{
		Kind: workspace.KindText, Name: "long", CategoryID: catID, Topic: strings.Repeat("x", 1025),
	})
	var fe *workspace.FieldError
	if !errors.As(err, &fe) || fe.Field != "topic" {
		t.Fatalf("expected topic field error, got %v", err)
	}

	_, err = ws.CreateChannel(ctx, workspace.ChannelParams{
		Kind: workspace.KindText, Name: "slow", CategoryID: catID, Slowmode: -1,
	})
	if !errors.As(err, &fe) || fe.Field != "slowmode" {
		t.Fatalf("expected slowmode field error, got %v", err)
	}

	if _, err := ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: strings.Repeat("n", 101)}); err == nil {
		t.Error("expected error for long name")
	}
	if _, err := ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: "orphan", CategoryID: "missing"}); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := ws.CreateChannel(ctx, workspace.ChannelParams{
		Kind: workspace.KindText, Name: "bad-ow", CategoryID: catID,
		Overwrites: []workspace.Overwrite{{TargetID: "nope", TargetKind: workspace.TargetRole}},
	}); err == nil {
		t.Error("expected error for unknown overwrite role")
	}

	chs, _ := ws.ListChannels(ctx)
	if len(chs) != 1 {
		t.Errorf("failed creates must not leave rows, got %d channels", len(chs))
	}
}

func TestConcurrentChannelCreates(t *testing.T) {
	ctx := context.Background()
	ws := newTestWorkspace(t, newTestStore(t))
	catID, _ := ws.CreateCategory(ctx, "cat")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: "c", CategoryID: catID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	chs, _ := ws.ListChannels(ctx)
	if len(chs) != 21 {
		t.Errorf("expected 21 channels, got %d", len(chs))
	}
}

func TestDropAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ws := newTestWorkspace(t, s)
	catID, _ := ws.CreateCategory(ctx, "cat")
	ws.CreateChannel(ctx, workspace.ChannelParams{Kind: workspace.KindText, Name: "a", CategoryID: catID})
	s.Create(ctx, "other")

	dbPath := filepath.Join(t.TempDir(), "missing.db")
	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRoles != 2 || st.TotalChannels != 1 || len(st.Workspaces) != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.Workspaces[1].Name != "test" || st.Workspaces[1].Categories != 1 {
		t.Errorf("unexpected workspace stats %+v", st.Workspaces[1])
	}

	if err := s.Drop(ctx, "test"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := s.Drop(ctx, "test"); err == nil {
		t.Error("expected error dropping a missing workspace")
	}
	st, _ = s.Stats(ctx, dbPath)
	if st.TotalRoles != 1 || st.TotalChannels != 0 {
		t.Errorf("expected cascade delete, got %+v", st)
	}
}
