package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "roles [file]",
		Short: "Import only the roles of a template",
		Long: "Create one role per template role, including any marked as everyone. " +
			"Categories and channels are ignored.",
		Args: cobra.MaximumNArgs(1),
		Run:  runRoles,
	}

	RootCmd.AddCommand(cmd)
}

func runRoles(cmd *cobra.Command, args []string) {
	t := readTemplate(cmd, args)
	if len(t.Roles) == 0 {
		exitErr("roles", fmt.Errorf("template has no roles"))
	}

	e := setup()
	defer e.Close()

	s := e.openStore()
	defer s.Close()

	ws, err := s.Workspace(cmd.Context(), e.cfg.Workspace)
	if err != nil {
		exitErr("open workspace", err)
	}

	ids, err := e.svc.ImportRoles(cmd.Context(), t, ws)
	if err != nil {
		exitErr("import roles", err)
	}
	writeValue(cmd.OutOrStdout(), map[string]any{"ok": true, "imported": len(ids), "ids": ids})
}
