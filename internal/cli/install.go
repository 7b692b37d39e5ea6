package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/yamm/internal/installer"
	"github.com/frederic-klein/yamm/internal/portal"
	"github.com/frederic-klein/yamm/internal/requirement"
	"github.com/frederic-klein/yamm/internal/resolver"
)

var (
	installHeld      bool
	installReinstall bool
	installDowngrade bool
	installUnpack    bool
	installNoDeps    bool
)

var installCmd = &cobra.Command{
	Use:   "install [requirement...]",
	Short: "Install (or update) mods",
	Long: `Install mods matching the given requirements using this format:
    name
    name==version
    name>=version
    name<version

If the version is not specified, the latest compatible version is selected.
Outdated versions are replaced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installHeld, "held", false, "allow updating held mods")
	installCmd.Flags().BoolVar(&installReinstall, "reinstall", false, "allow reinstalling mods")
	installCmd.Flags().BoolVar(&installDowngrade, "downgrade", false, "allow downgrading mods")
	installCmd.Flags().BoolVar(&installUnpack, "unpack", false, "unpack mod zip files after installing")
	installCmd.Flags().BoolVarP(&installNoDeps, "no-deps", "d", false, "do not install any dependencies")
}

func runInstall(cmd *cobra.Command, args []string) error {
	client := newPortalClient()
	dir := newDirectory()
	res := newResolver(client, dir)
	inst := newInstaller(client, dir)

	opts := resolver.Options{
		Held:      installHeld,
		Reinstall: installReinstall,
		Downgrade: installDowngrade,
		NoDeps:    installNoDeps,
	}

	var unpack *bool
	if cmd.Flags().Changed("unpack") {
		unpack = &installUnpack
	}

	failed := false
	for _, arg := range args {
		req, err := requirement.Parse(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			failed = true
			continue
		}

		plan, err := res.Plan(req, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", req.Name, err)
			failed = true
			continue
		}

		if err := installPlan(inst, plan, unpack); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", req.Name, err)
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("some requirements could not be installed")
	}
	return nil
}

func installPlan(inst *installer.Installer, plan []portal.Release, unpack *bool) error {
	for _, release := range plan {
		fmt.Printf("Installing: %s %s...\n", release.InfoJSON.Name, release.Version)
		if err := inst.Install(release, installer.Options{Unpack: unpack}); err != nil {
			return err
		}
	}
	return nil
}
