package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/layoutkit/internal/service"
)

func init() {
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Summarize a template",
		Args:  cobra.MaximumNArgs(1),
		Run:   runPreview,
	}

	RootCmd.AddCommand(cmd)
}

func runPreview(cmd *cobra.Command, args []string) {
	t := readTemplate(cmd, args)
	fmt.Fprint(cmd.OutOrStdout(), service.Preview(t))
}
