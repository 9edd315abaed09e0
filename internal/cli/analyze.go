package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Build a template from a channel list screenshot",
		Long: "Download a screenshot, recognize its text with the configured OCR service and build a " +
			"template. Any failure prints the starter template with the reason in its summary.",
		Args: cobra.ExactArgs(1),
		Run:  runAnalyze,
	}

	RootCmd.AddCommand(cmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	e := setup()
	defer e.Close()

	t := e.svc.AnalyzeImage(cmd.Context(), args[0])
	if err := writeTemplate(cmd.OutOrStdout(), t); err != nil {
		exitErr("write template", err)
	}
}
