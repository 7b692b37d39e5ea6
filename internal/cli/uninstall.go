package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall name [version]",
	Aliases: []string{"remove"},
	Short:   "Uninstall mods",
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	name := args[0]
	version := ""
	if len(args) > 1 {
		version = args[1]
	}

	client := newPortalClient()
	dir := newDirectory()
	inst := newInstaller(client, dir)

	removed, err := inst.Uninstall(name, version)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("no installed mod matches %s", name)
	}
	return nil
}
