package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/layoutkit/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a text layout into a template",
		Long: "Parse a free-form channel layout into a template. The layout is read from the file, " +
			"or from stdin when no file is given.",
		Args: cobra.MaximumNArgs(1),
		Run:  runParse,
	}

	cmd.Flags().Bool("fallback", false, "Emit the starter template when nothing usable is found")

	RootCmd.AddCommand(cmd)
}

func runParse(cmd *cobra.Command, args []string) {
	fallback, _ := cmd.Flags().GetBool("fallback")

	data, _, err := readInput(cmd, args)
	if err != nil {
		exitErr("read layout", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		exitErr("parse", fmt.Errorf("layout is required (file or stdin)"))
	}

	e := setup()
	defer e.Close()

	t := e.svc.ParseLayout(string(data))
	if model.Degraded(t) {
		e.log.Warn().Msg("no categories found in layout")
		if fallback {
			t = model.Starter("no categories found")
		}
	}

	if err := writeTemplate(cmd.OutOrStdout(), t); err != nil {
		exitErr("write template", err)
	}
}
