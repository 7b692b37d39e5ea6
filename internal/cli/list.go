package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed mods and their status",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "output format (text, yaml)")
}

type listEntry struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Enabled bool   `yaml:"enabled"`
	Packed  bool   `yaml:"packed"`
}

func runList(cmd *cobra.Command, args []string) error {
	dir := newDirectory()

	records, err := dir.Scan("", "")
	if err != nil {
		return err
	}

	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		enabled, err := rec.Enabled()
		if err != nil {
			return err
		}
		entries = append(entries, listEntry{
			Name:    rec.Name,
			Version: rec.Version,
			Enabled: enabled,
			Packed:  rec.Packed,
		})
	}

	// enabled mods first, then by name
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Enabled != entries[j].Enabled {
			return entries[i].Enabled
		}
		return entries[i].Name < entries[j].Name
	})

	switch listFormat {
	case "yaml":
		out, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encoding mod list: %w", err)
		}
		fmt.Print(string(out))
		return nil
	case "text":
		if len(entries) == 0 {
			fmt.Println("No installed mods.")
			return nil
		}
		fmt.Println("Installed mods:")
		for _, e := range entries {
			var tags []string
			if !e.Enabled {
				tags = append(tags, "disabled")
			}
			if !e.Packed {
				tags = append(tags, "unpacked")
			}
			suffix := ""
			if len(tags) > 0 {
				suffix = " (" + strings.Join(tags, ", ") + ")"
			}
			fmt.Printf("    %s %s%s\n", e.Name, e.Version, suffix)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", listFormat)
	}
}
