package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage local workspaces",
	}

	initCmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create an empty workspace",
		Args:  cobra.MaximumNArgs(1),
		Run:   runWorkspaceInit,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Run:   runWorkspaceList,
	}
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runWorkspaceStats,
	}
	dropCmd := &cobra.Command{
		Use:   "drop <name>",
		Short: "Delete a workspace and everything in it",
		Args:  cobra.ExactArgs(1),
		Run:   runWorkspaceDrop,
	}

	cmd.AddCommand(initCmd, listCmd, statsCmd, dropCmd)
	RootCmd.AddCommand(cmd)
}

func runWorkspaceInit(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	name := e.cfg.Workspace
	if len(args) > 0 {
		name = args[0]
	}

	s := e.openStore()
	defer s.Close()

	ws, err := s.Create(cmd.Context(), name)
	if err != nil {
		exitErr("create workspace", err)
	}
	writeValue(cmd.OutOrStdout(), map[string]any{
		"ok":              true,
		"id":              ws.ID(),
		"name":            ws.Name(),
		"default_role_id": ws.DefaultRoleID(),
	})
}

func runWorkspaceList(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	s := e.openStore()
	defer s.Close()

	list, err := s.Workspaces(cmd.Context())
	if err != nil {
		exitErr("list workspaces", err)
	}
	writeValue(cmd.OutOrStdout(), list)
}

func runWorkspaceStats(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	s := e.openStore()
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), e.cfg.DB)
	if err != nil {
		exitErr("stats", err)
	}
	writeValue(cmd.OutOrStdout(), stats)
}

func runWorkspaceDrop(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	s := e.openStore()
	defer s.Close()

	if err := s.Drop(cmd.Context(), args[0]); err != nil {
		exitErr("drop workspace", err)
	}
	writeValue(cmd.OutOrStdout(), map[string]any{"ok": true, "dropped": args[0]})
}
