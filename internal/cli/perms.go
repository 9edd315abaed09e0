package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/layoutkit/internal/perms"
)

func init() {
	cmd := &cobra.Command{
		Use:   "perms [bitfield]",
		Short: "Show the permission vocabulary or decode a bitfield",
		Long: "Without arguments, list every permission phrase the parser understands with its " +
			"canonical name and bit. With a decimal bitfield, list the names of the bits it sets.",
		Args: cobra.MaximumNArgs(1),
		Run:  runPerms,
	}

	RootCmd.AddCommand(cmd)
}

type phraseEntry struct {
	Phrase string `json:"phrase" yaml:"phrase"`
	Name   string `json:"name" yaml:"name"`
	Bit    string `json:"bit" yaml:"bit"`
}

func runPerms(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			exitErr("parse bitfield", err)
		}
		writeValue(cmd.OutOrStdout(), perms.Names(perms.Bitfield(v)))
		return
	}

	var entries []phraseEntry
	for _, p := range perms.Phrases() {
		name, _ := perms.Lookup(p)
		bit, _ := perms.Bit(name)
		entries = append(entries, phraseEntry{Phrase: p, Name: name, Bit: fmt.Sprint(uint64(bit))})
	}
	writeValue(cmd.OutOrStdout(), entries)
}
