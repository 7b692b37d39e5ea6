package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable name...",
	Short: "Enable mods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable name...",
	Short: "Disable mods",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(args, false)
	},
}

func setEnabled(names []string, enabled bool) error {
	dir := newDirectory()
	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}

	for _, name := range names {
		changed, err := dir.SetEnabled(name, enabled)
		if err != nil {
			return err
		}
		if changed {
			fmt.Printf("%s is now %s\n", name, verb)
		} else {
			fmt.Printf("%s is already %s\n", name, verb)
		}
	}
	return nil
}
