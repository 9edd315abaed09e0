package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Create a template's roles, categories and channels in a workspace",
		Long: "Validate a template and materialize it into the workspace. Applying the same template " +
			"twice creates duplicates. On failure, resources created so far are kept and reported.",
		Args: cobra.MaximumNArgs(1),
		Run:  runApply,
	}

	cmd.Flags().Bool("new", false, "Fail if the workspace already exists")

	RootCmd.AddCommand(cmd)
}

func runApply(cmd *cobra.Command, args []string) {
	fresh, _ := cmd.Flags().GetBool("new")
	t := readTemplate(cmd, args)

	e := setup()
	defer e.Close()

	// Reject bad input before touching the database.
	if err := e.svc.ValidateTemplate(t); err != nil {
		exitErr("validate", err)
	}

	s := e.openStore()
	defer s.Close()

	open := s.Workspace
	if fresh {
		open = s.Create
	}
	ws, err := open(cmd.Context(), e.cfg.Workspace)
	if err != nil {
		exitErr("open workspace", err)
	}

	res, err := e.svc.ApplyTemplate(cmd.Context(), t, ws)
	if err != nil {
		writeValue(cmd.ErrOrStderr(), res)
		exitErr("apply", err)
	}
	writeValue(cmd.OutOrStdout(), res)
}
