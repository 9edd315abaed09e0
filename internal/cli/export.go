package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a workspace as a template",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	s := e.openStore()
	defer s.Close()

	ws, err := s.Workspace(cmd.Context(), e.cfg.Workspace)
	if err != nil {
		exitErr("open workspace", err)
	}

	t, err := e.svc.ExportTemplate(cmd.Context(), ws)
	if err != nil {
		exitErr("export", err)
	}
	if err := writeTemplate(cmd.OutOrStdout(), t); err != nil {
		exitErr("write template", err)
	}
}
