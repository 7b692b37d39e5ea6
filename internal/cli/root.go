package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/yamm/internal/config"
	"github.com/frederic-klein/yamm/internal/credentials"
	"github.com/frederic-klein/yamm/internal/installer"
	"github.com/frederic-klein/yamm/internal/moddir"
	"github.com/frederic-klein/yamm/internal/portal"
	"github.com/frederic-klein/yamm/internal/resolver"
)

var (
	cfgFile     string
	modsPath    string
	gameVersion string
	verbose     bool
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "yamm",
	Short: "Yet Another Mod Manager - installs and manages game mods",
	Long: `YAMM resolves version-constrained mod requirements against the mod portal,
downloads matching releases with their dependencies and maintains the local
mods directory and its enable manifest.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/yamm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modsPath, "mods-path", "", "mods directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&gameVersion, "game-version", "", "game version to filter releases by (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(loginCmd)
}

func initConfig() {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if modsPath != "" {
		cfg.ModsPath = modsPath
	}
	if gameVersion != "" {
		cfg.GameVersion = gameVersion
	}
}

func newPortalClient() *portal.Client {
	return portal.NewClient(cfg.PortalURL)
}

func newDirectory() *moddir.Directory {
	return moddir.New(cfg.ModsPath)
}

func newCredentialProvider(client *portal.Client) credentials.Provider {
	return &credentials.Interactive{
		Store: credentials.NewStore(cfg.PlayerDataPath),
		Auth:  client,
	}
}

func newResolver(client *portal.Client, dir *moddir.Directory) *resolver.Resolver {
	return resolver.New(client, dir, cfg)
}

func newInstaller(client *portal.Client, dir *moddir.Directory) *installer.Installer {
	return installer.New(client, dir, newCredentialProvider(client))
}
