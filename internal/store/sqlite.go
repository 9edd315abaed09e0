package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rcliao/layoutkit/internal/perms"
	"github.com/rcliao/layoutkit/internal/workspace"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Channel creation may be dispatched concurrently; one connection
	// serializes writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func newID() string {
	return uuid.New().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		default_role_id TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS roles (
		id           TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		color        INTEGER NOT NULL DEFAULT 0,
		hoist        INTEGER NOT NULL DEFAULT 0,
		mentionable  INTEGER NOT NULL DEFAULT 0,
		permissions  INTEGER NOT NULL DEFAULT 0,
		position     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_roles_workspace ON roles(workspace_id, position);

	CREATE TABLE IF NOT EXISTS channels (
		id           TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		kind         TEXT NOT NULL,
		parent_id    TEXT REFERENCES channels(id) ON DELETE CASCADE,
		position     INTEGER NOT NULL DEFAULT 0,
		topic        TEXT,
		private      INTEGER NOT NULL DEFAULT 0,
		nsfw         INTEGER NOT NULL DEFAULT 0,
		slowmode     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_channels_workspace ON channels(workspace_id, position);

	CREATE TABLE IF NOT EXISTS overwrites (
		channel_id  TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		target_id   TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		allow       INTEGER NOT NULL DEFAULT 0,
		deny        INTEGER NOT NULL DEFAULT 0,
		seq         INTEGER NOT NULL,
		PRIMARY KEY (channel_id, target_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Workspace opens the named workspace, creating it when missing.
func (s *SQLiteStore) Workspace(ctx context.Context, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	var w Workspace
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, default_role_id FROM workspaces WHERE name = ?`, name).
		Scan(&w.id, &w.name, &w.defaultRoleID)
	if errors.Is(err, sql.ErrNoRows) {
		return s.Create(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("open workspace %q: %w", name, err)
	}
	w.db = s.db
	return &w, nil
}

// Create creates a new workspace with its implicit everyone role.
func (s *SQLiteStore) Create(ctx context.Context, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}

	w := &Workspace{db: s.db, id: newID(), name: name, defaultRoleID: newID()}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, default_role_id, created_at) VALUES (?, ?, ?, ?)`,
		w.id, w.name, w.defaultRoleID, now)
	if err != nil {
		return nil, fmt.Errorf("insert workspace %q: %w", name, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO roles (id, workspace_id, name, mentionable, permissions, position)
		 VALUES (?, ?, '@everyone', 0, ?, 0)`,
		w.defaultRoleID, w.id, int64(perms.ViewChannel|perms.SendMessages|perms.ReadMessageHistory|perms.Connect|perms.Speak))
	if err != nil {
		return nil, fmt.Errorf("insert default role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// Workspaces lists stored workspaces by name.
func (s *SQLiteStore) Workspaces(ctx context.Context) ([]WorkspaceInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, default_role_id, created_at FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkspaceInfo
	for rows.Next() {
		var info WorkspaceInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Name, &info.DefaultRoleID, &createdAt); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Drop deletes a workspace and everything in it.
func (s *SQLiteStore) Drop(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workspace not found: %s", name)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Workspace is one stored workspace. It implements workspace.Workspace.
type Workspace struct {
	db            *sql.DB
	id            string
	name          string
	defaultRoleID string
}

var _ workspace.Workspace = (*Workspace)(nil)

// ID returns the workspace identity.
func (w *Workspace) ID() string { return w.id }

// Name returns the workspace name.
func (w *Workspace) Name() string { return w.name }

func (w *Workspace) DefaultRoleID() string { return w.defaultRoleID }

func checkName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is required", kind)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%s name longer than %d characters", kind, maxNameLength)
	}
	return nil
}

func (w *Workspace) CreateRole(ctx context.Context, p workspace.RoleParams) (string, error) {
	if err := checkName("role", p.Name); err != nil {
		return "", err
	}
	if p.Color < 0 || p.Color > 0xffffff {
		return "", &workspace.FieldError{Field: "color", Reason: fmt.Sprintf("%d is not a 24-bit color", p.Color)}
	}

	id := newID()
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO roles (id, workspace_id, name, color, hoist, mentionable, permissions, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM roles WHERE workspace_id = ?))`,
		id, w.id, p.Name, p.Color, p.Hoist, p.Mentionable, int64(p.Permissions), w.id)
	if err != nil {
		return "", fmt.Errorf("insert role: %w", err)
	}
	return id, nil
}

func (w *Workspace) CreateCategory(ctx context.Context, name string) (string, error) {
	if err := checkName("category", name); err != nil {
		return "", err
	}

	id := newID()
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO channels (id, workspace_id, name, kind, position)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM channels WHERE workspace_id = ?))`,
		id, w.id, name, string(workspace.KindCategory), w.id)
	if err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

func (w *Workspace) CreateChannel(ctx context.Context, p workspace.ChannelParams) (string, error) {
	if p.Kind != workspace.KindText && p.Kind != workspace.KindVoice {
		return "", fmt.Errorf("unsupported channel kind %q", p.Kind)
	}
	if err := checkName("channel", p.Name); err != nil {
		return "", err
	}
	if utf8.RuneCountInString(p.Topic) > maxTopicLength {
		return "", &workspace.FieldError{Field: "topic", Reason: fmt.Sprintf("longer than %d characters", maxTopicLength)}
	}
	if p.Kind == workspace.KindVoice && p.Topic != "" {
		return "", &workspace.FieldError{Field: "topic", Reason: "voice channels have no topic"}
	}
	if p.Slowmode < 0 || p.Slowmode > maxSlowmode {
		return "", &workspace.FieldError{Field: "slowmode", Reason: fmt.Sprintf("must be 0..%d seconds", maxSlowmode)}
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// Children sit right after their category, ordered by p.Position.
	// Parentless channels go to the end.
	var position int
	if p.CategoryID != "" {
		var kind string
		var catPos int
		err := tx.QueryRowContext(ctx,
			`SELECT kind, position FROM channels WHERE id = ? AND workspace_id = ?`, p.CategoryID, w.id).Scan(&kind, &catPos)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("category not found: %s", p.CategoryID)
		}
		if err != nil {
			return "", fmt.Errorf("lookup category %s: %w", p.CategoryID, err)
		}
		if kind != string(workspace.KindCategory) {
			return "", fmt.Errorf("parent %s is a %s channel, not a category", p.CategoryID, kind)
		}
		position = catPos + 1 + max(p.Position, 0)
	} else {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM channels WHERE workspace_id = ?`, w.id).Scan(&position)
		if err != nil {
			return "", fmt.Errorf("next channel position: %w", err)
		}
	}

	var parent *string
	if p.CategoryID != "" {
		parent = &p.CategoryID
	}
	var topic *string
	if p.Topic != "" {
		topic = &p.Topic
	}

	id := newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO channels (id, workspace_id, name, kind, parent_id, position, topic, private, nsfw, slowmode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, w.id, p.Name, string(p.Kind), parent, position, topic, p.Private, p.NSFW, p.Slowmode)
	if err != nil {
		return "", fmt.Errorf("insert channel: %w", err)
	}

	for i, ow := range p.Overwrites {
		if ow.TargetKind == workspace.TargetRole {
			var n int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM roles WHERE id = ? AND workspace_id = ?`, ow.TargetID, w.id).Scan(&n)
			if err != nil {
				return "", fmt.Errorf("check overwrite target %s: %w", ow.TargetID, err)
			}
			if n == 0 {
				return "", fmt.Errorf("overwrite target role not found: %s", ow.TargetID)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO overwrites (channel_id, target_id, target_kind, allow, deny, seq)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(channel_id, target_id) DO UPDATE SET allow = excluded.allow, deny = excluded.deny`,
			id, ow.TargetID, string(ow.TargetKind), int64(ow.Allow), int64(ow.Deny), i)
		if err != nil {
			return "", fmt.Errorf("insert overwrite: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (w *Workspace) ListRoles(ctx context.Context) ([]workspace.Role, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, name, color, hoist, mentionable, permissions, position
		 FROM roles WHERE workspace_id = ? ORDER BY position, id`, w.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []workspace.Role
	for rows.Next() {
		var r workspace.Role
		var bits int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Color, &r.Hoist, &r.Mentionable, &bits, &r.Position); err != nil {
			return nil, err
		}
		r.Permissions = perms.Bitfield(bits)
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (w *Workspace) ListChannels(ctx context.Context) ([]workspace.Channel, error) {
	rows, err := w.db.QueryContext(ctx,
		`SELECT id, name, kind, parent_id, position, topic, private, nsfw, slowmode
		 FROM channels WHERE workspace_id = ? ORDER BY position, id`, w.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []workspace.Channel
	index := map[string]int{}
	for rows.Next() {
		var c workspace.Channel
		var kind string
		var parent, topic sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &kind, &parent, &c.Position, &topic, &c.Private, &c.NSFW, &c.Slowmode); err != nil {
			return nil, err
		}
		c.Kind = workspace.ChannelKind(kind)
		c.ParentID = parent.String
		c.Topic = topic.String
		index[c.ID] = len(channels)
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	owRows, err := w.db.QueryContext(ctx,
		`SELECT o.channel_id, o.target_id, o.target_kind, o.allow, o.deny
		 FROM overwrites o JOIN channels c ON c.id = o.channel_id
		 WHERE c.workspace_id = ? ORDER BY o.channel_id, o.seq`, w.id)
	if err != nil {
		return nil, err
	}
	defer owRows.Close()

	for owRows.Next() {
		var channelID, targetKind string
		var ow workspace.Overwrite
		var allow, deny int64
		if err := owRows.Scan(&channelID, &ow.TargetID, &targetKind, &allow, &deny); err != nil {
			return nil, err
		}
		ow.TargetKind = workspace.TargetKind(targetKind)
		ow.Allow, ow.Deny = perms.Bitfield(allow), perms.Bitfield(deny)
		if i, ok := index[channelID]; ok {
			channels[i].Overwrites = append(channels[i].Overwrites, ow)
		}
	}
	return channels, owRows.Err()
}
