package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search query",
	Short: "Search the mod portal",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 25, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	client := newPortalClient()

	results, err := client.Search(args[0], searchLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No mods found.")
		return nil
	}

	for _, r := range results {
		title := r.Title
		if title == "" {
			title = r.Name
		}
		fmt.Printf("%s (%s) by %s\n", title, r.Name, r.Owner)
		if r.Summary != "" {
			fmt.Printf("    %s\n", r.Summary)
		}
	}
	return nil
}
