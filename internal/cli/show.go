package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show name",
	Short: "Show remote details about a mod",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "output format (text, yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	client := newPortalClient()

	mod, err := client.GetMod(args[0])
	if err != nil {
		return err
	}

	if showFormat == "yaml" {
		out, err := yaml.Marshal(mod)
		if err != nil {
			return fmt.Errorf("encoding mod: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	fmt.Printf("Name: %s\n", mod.Name)
	if mod.Title != "" {
		fmt.Printf("Title: %s\n", mod.Title)
	}
	if mod.Owner != "" {
		fmt.Printf("Owner: %s\n", mod.Owner)
	}
	if mod.Summary != "" {
		fmt.Printf("Summary: %s\n", mod.Summary)
	}
	fmt.Println("Releases:")
	for _, rel := range mod.Releases {
		fmt.Printf("    %s (game %s)\n", rel.Version, rel.GameVersion)
	}
	return nil
}
