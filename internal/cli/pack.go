package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/yamm/internal/moddir"
)

var packCmd = &cobra.Command{
	Use:   "pack name",
	Short: "Pack an unpacked mod back into a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := findRecord(args[0], false)
		if err != nil {
			return err
		}
		_, err = rec.Pack()
		return err
	},
}

var unpackCmd = &cobra.Command{
	Use:   "unpack name",
	Short: "Unpack a mod archive into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := findRecord(args[0], true)
		if err != nil {
			return err
		}
		_, err = rec.Unpack()
		return err
	},
}

// findRecord returns the first installed record for name in the wanted
// layout.
func findRecord(name string, packed bool) (*moddir.Record, error) {
	dir := newDirectory()
	records, err := dir.Scan(name, "")
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Name == name && rec.Packed == packed {
			return rec, nil
		}
	}
	layout := "unpacked"
	if packed {
		layout = "packed"
	}
	return nil, fmt.Errorf("no %s mod named %s is installed", layout, name)
}
