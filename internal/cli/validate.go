package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/layoutkit/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a template against the platform limits",
		Long:  "Check a JSON or YAML template. Exits 2 when the template is invalid.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runValidate,
	}

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	t := readTemplate(cmd, args)

	e := setup()
	defer e.Close()

	if err := e.svc.ValidateTemplate(t); err != nil {
		exitErr("validate", err)
	}

	writeValue(cmd.OutOrStdout(), map[string]any{
		"ok":         true,
		"categories": len(t.Categories),
		"channels":   model.ChannelCount(t),
		"roles":      len(t.Roles),
		"summary":    fmt.Sprintf("%d categories / %d channels / %d roles", len(t.Categories), model.ChannelCount(t), len(t.Roles)),
	})
}
