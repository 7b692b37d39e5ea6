package moddir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

const manifestName = "mod-list.json"

// manifestEntry is one row of mod-list.json. The game serializes the flag
// as the strings "true" and "false"; a name absent from the list is
// implicitly enabled.
type manifestEntry struct {
	Name    string `json:"name"`
	Enabled string `json:"enabled"`
}

type manifest struct {
	Mods []*manifestEntry `json:"mods"`
}

// Directory provides access to the local mods directory and its enable
// manifest. The manifest is loaded once per Directory and rewritten after
// every effective mutation.
type Directory struct {
	root     string
	manifest *manifest
}

// New creates a Directory rooted at the given mods path.
func New(root string) *Directory {
	return &Directory{root: root}
}

// Root returns the mods path.
func (d *Directory) Root() string {
	return d.root
}

// Scan enumerates local mods matching the name and version filters; an
// empty filter matches everything. Packed records are listed before
// unpacked ones. Entries that fail validation are logged and skipped, never
// fatal to the scan.
func (d *Directory) Scan(name, version string) ([]*Record, error) {
	if name == "" {
		name = "*"
	}
	if version == "" {
		version = "*"
	}

	var records []*Record

	zips, err := filepath.Glob(filepath.Join(d.root, name+"_"+version+".zip"))
	if err != nil {
		return nil, fmt.Errorf("scanning mods directory: %w", err)
	}
	for _, location := range zips {
		if info, err := os.Stat(location); err != nil || info.IsDir() {
			continue
		}
		rec, err := newPackedRecord(d, location)
		if err != nil {
			log.Warn("Skipping invalid mod", "path", location, "err", err)
			continue
		}
		records = append(records, rec)
	}

	dirs, err := filepath.Glob(filepath.Join(d.root, name+"_"+version))
	if err != nil {
		return nil, fmt.Errorf("scanning mods directory: %w", err)
	}
	for _, location := range dirs {
		if info, err := os.Stat(location); err != nil || !info.IsDir() {
			continue
		}
		rec, err := newUnpackedRecord(d, location)
		if err != nil {
			log.Warn("Skipping invalid mod", "path", location, "err", err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// RecordFromArchive builds a validated packed record for an archive that
// was just written under the mods root.
func (d *Directory) RecordFromArchive(location string) (*Record, error) {
	return newPackedRecord(d, location)
}

// Find returns the first record whose declared name is exactly name.
func (d *Directory) Find(name string) (*Record, bool, error) {
	records, err := d.Scan(name, "")
	if err != nil {
		return nil, false, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// Enabled returns the effective enabled state for a mod name. Mods never
// mentioned in the manifest are enabled by default.
func (d *Directory) Enabled(name string) (bool, error) {
	m, err := d.loadManifest()
	if err != nil {
		return false, err
	}
	for _, entry := range m.Mods {
		if entry.Name == name {
			return entry.Enabled != "false", nil
		}
	}
	return true, nil
}

// SetEnabled updates the manifest entry for name. It reports whether the
// effective state changed; an unchanged state is not rewritten.
func (d *Directory) SetEnabled(name string, enabled bool) (bool, error) {
	current, err := d.Enabled(name)
	if err != nil {
		return false, err
	}
	if current == enabled {
		return false, nil
	}

	m, _ := d.loadManifest()
	var entry *manifestEntry
	for _, e := range m.Mods {
		if e.Name == name {
			entry = e
			break
		}
	}
	if entry == nil {
		entry = &manifestEntry{Name: name}
		m.Mods = append(m.Mods, entry)
	}
	if enabled {
		entry.Enabled = "true"
	} else {
		entry.Enabled = "false"
	}

	if err := d.saveManifest(); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Directory) manifestPath() string {
	return filepath.Join(d.root, manifestName)
}

func (d *Directory) loadManifest() (*manifest, error) {
	if d.manifest != nil {
		return d.manifest, nil
	}

	m := &manifest{}
	data, err := os.ReadFile(d.manifestPath())
	switch {
	case os.IsNotExist(err):
		// no manifest yet: everything is enabled
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", manifestName, err)
	default:
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", manifestName, err)
		}
	}

	d.manifest = m
	return m, nil
}

func (d *Directory) saveManifest() error {
	data, err := json.MarshalIndent(d.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", manifestName, err)
	}
	data = append(data, '\n')

	tmpPath := d.manifestPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", manifestName, err)
	}
	if err := os.Rename(tmpPath, d.manifestPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", manifestName, err)
	}
	return nil
}
