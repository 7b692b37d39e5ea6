package moddir

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrCorruptRecord indicates a local mod whose file name does not match
	// its declared metadata, or whose info.json is unreadable.
	ErrCorruptRecord = errors.New("corrupt local mod")

	// ErrAlreadyExists indicates a pack or unpack destination collision.
	ErrAlreadyExists = errors.New("destination already exists")
)

// Info is the metadata every mod carries in its info.json. GameVersion is
// the major.minor game version the mod targets; older mods may omit it.
type Info struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	GameVersion  string   `json:"factorio_version,omitempty"`
	Dependencies []string `json:"dependencies"`
}

// Record is one on-disk mod, either a zip archive (packed) or an extracted
// directory (unpacked). Records are transient views built by scanning the
// mods directory; the enabled flag lives in the shared manifest, never on
// the record itself.
type Record struct {
	Name     string
	Version  string
	Basename string
	Location string
	Packed   bool

	dir *Directory
}

func newPackedRecord(dir *Directory, location string) (*Record, error) {
	basename := strings.TrimSuffix(filepath.Base(location), ".zip")
	rec := &Record{Basename: basename, Location: location, Packed: true, dir: dir}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func newUnpackedRecord(dir *Directory, location string) (*Record, error) {
	basename := filepath.Base(filepath.Clean(location))
	rec := &Record{Basename: basename, Location: location, Packed: false, dir: dir}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// validate reads info.json and checks the basename invariant:
// the file or directory must be named exactly "{name}_{version}".
func (r *Record) validate() error {
	info, err := r.Info()
	if err != nil {
		return err
	}
	expected := info.Name + "_" + info.Version
	if r.Basename != expected {
		return fmt.Errorf("%w: %s: file name %q, expected %q",
			ErrCorruptRecord, r.Location, r.Basename, expected)
	}
	r.Name = info.Name
	r.Version = info.Version
	return nil
}

// Info reads the mod's info.json from the archive or directory.
func (r *Record) Info() (*Info, error) {
	var data []byte
	if r.Packed {
		zr, err := zip.OpenReader(r.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, r.Location, err)
		}
		defer zr.Close()

		f, err := zr.Open(r.Basename + "/info.json")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: missing %s/info.json", ErrCorruptRecord, r.Location, r.Basename)
		}
		defer f.Close()

		data, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, r.Location, err)
		}
	} else {
		var err error
		data, err = os.ReadFile(filepath.Join(r.Location, "info.json"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, r.Location, err)
		}
	}

	info := &Info{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("%w: %s: bad info.json: %v", ErrCorruptRecord, r.Location, err)
	}
	return info, nil
}

// Enabled reads the mod's effective enabled state from the shared manifest.
func (r *Record) Enabled() (bool, error) {
	return r.dir.Enabled(r.Name)
}

// SetEnabled writes through to the shared manifest.
func (r *Record) SetEnabled(enabled bool) (bool, error) {
	return r.dir.SetEnabled(r.Name, enabled)
}

// Remove deletes the backing file or directory. A missing target is an error.
func (r *Record) Remove() error {
	if _, err := os.Stat(r.Location); err != nil {
		return fmt.Errorf("removing %s: %w", r.Location, err)
	}
	if r.Packed {
		log.Info("Removing file", "path", r.Location)
		if err := os.Remove(r.Location); err != nil {
			return fmt.Errorf("removing %s: %w", r.Location, err)
		}
		return nil
	}
	log.Info("Removing directory", "path", r.Location)
	if err := os.RemoveAll(r.Location); err != nil {
		return fmt.Errorf("removing %s: %w", r.Location, err)
	}
	return nil
}

// Unpack extracts a packed record into a directory under the mods root and
// removes the original archive. Archive entries outside the "{basename}/"
// prefix are skipped with a warning so a hostile archive can never write
// outside the mods directory.
func (r *Record) Unpack() (*Record, error) {
	if !r.Packed {
		return nil, fmt.Errorf("unpack %s: not a packed mod", r.Basename)
	}

	dest := filepath.Join(r.dir.Root(), r.Basename)
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
	}

	log.Info("Unpacking", "path", r.Location)

	zr, err := zip.OpenReader(r.Location)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", r.Location, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	prefix := r.Basename + "/"
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) {
			log.Warn("Ignoring out-of-directory archive entry", "entry", f.Name)
			continue
		}
		target := filepath.Join(r.dir.Root(), filepath.FromSlash(f.Name))
		if rel, err := filepath.Rel(dest, target); err != nil || strings.HasPrefix(rel, "..") {
			log.Warn("Ignoring out-of-directory archive entry", "entry", f.Name)
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
	}

	if err := r.Remove(); err != nil {
		return nil, err
	}
	return newUnpackedRecord(r.dir, dest)
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// Pack archives an unpacked record into "{basename}.zip" under the mods
// root, rooted at the "{basename}/" prefix, and removes the directory.
func (r *Record) Pack() (*Record, error) {
	if r.Packed {
		return nil, fmt.Errorf("pack %s: already packed", r.Basename)
	}

	dest := filepath.Join(r.dir.Root(), r.Basename+".zip")
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dest)
	}

	log.Info("Packing", "path", r.Location)

	if err := r.writeArchive(dest); err != nil {
		os.Remove(dest)
		return nil, err
	}
	if err := r.Remove(); err != nil {
		return nil, err
	}
	return newPackedRecord(r.dir, dest)
}

func (r *Record) writeArchive(dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(r.Location, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.Location, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(r.Basename + "/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archiving %s: %w", r.Location, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", dest, err)
	}
	return out.Close()
}
