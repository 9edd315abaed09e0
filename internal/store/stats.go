package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string           `json:"db_path"`
	DBSizeBytes   int64            `json:"db_size_bytes"`
	TotalRoles    int              `json:"total_roles"`
	TotalChannels int              `json:"total_channels"`
	Workspaces    []WorkspaceStats `json:"workspaces"`
}

// WorkspaceStats holds per-workspace counts.
type WorkspaceStats struct {
	Name       string `json:"name"`
	Roles      int    `json:"roles"`
	Categories int    `json:"categories"`
	Channels   int    `json:"channels"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`).Scan(&st.TotalRoles)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels WHERE kind != 'category'`).Scan(&st.TotalChannels)

	rows, err := s.db.QueryContext(ctx, `
		SELECT w.name,
			(SELECT COUNT(*) FROM roles r WHERE r.workspace_id = w.id),
			(SELECT COUNT(*) FROM channels c WHERE c.workspace_id = w.id AND c.kind = 'category'),
			(SELECT COUNT(*) FROM channels c WHERE c.workspace_id = w.id AND c.kind != 'category')
		FROM workspaces w ORDER BY w.name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ws WorkspaceStats
		rows.Scan(&ws.Name, &ws.Roles, &ws.Categories, &ws.Channels)
		st.Workspaces = append(st.Workspaces, ws)
	}

	return st, rows.Err()
}
