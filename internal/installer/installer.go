package installer

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamm/internal/credentials"
	"github.com/frederic-klein/yamm/internal/moddir"
	"github.com/frederic-klein/yamm/internal/portal"
)

var (
	// ErrInvalidRelease indicates a catalog entry with a file name that is
	// not a plain zip name. Guards against a hostile or broken portal.
	ErrInvalidRelease = errors.New("invalid release file name")

	// ErrSizeMismatch indicates the downloaded byte count differs from the
	// size the catalog declared.
	ErrSizeMismatch = errors.New("download size mismatch")
)

// Fetcher downloads raw bytes from a portal URL. *portal.Client satisfies it.
type Fetcher interface {
	Fetch(rawURL string, params url.Values) ([]byte, error)
}

// Options select the post-install state of a mod. Nil means "keep the
// current behavior": Enable nil leaves the manifest untouched, Unpack nil
// inherits the packing choice of the previously installed copy.
type Options struct {
	Enable *bool
	Unpack *bool
}

// Installer persists resolved releases into the mods directory.
type Installer struct {
	fetcher Fetcher
	dir     *moddir.Directory
	creds   credentials.Provider
}

// New creates an Installer.
func New(fetcher Fetcher, dir *moddir.Directory, creds credentials.Provider) *Installer {
	return &Installer{fetcher: fetcher, dir: dir, creds: creds}
}

// Install downloads one release and replaces any prior local copy of the
// same mod. The archive is staged next to its final path and only renamed
// into place after the size check, so a failed download never leaves a
// partial mod behind.
func (i *Installer) Install(release portal.Release, opts Options) error {
	fileName := release.FileName
	modName := release.InfoJSON.Name

	if strings.ContainsAny(fileName, `/\`) || !strings.HasSuffix(fileName, ".zip") {
		return fmt.Errorf("%w: %q", ErrInvalidRelease, fileName)
	}

	prior, hasPrior, err := i.dir.Find(modName)
	if err != nil {
		return err
	}

	unpack := opts.Unpack
	if unpack == nil && hasPrior {
		// preserve the user's prior packing choice across upgrades
		wasUnpacked := !prior.Packed
		unpack = &wasUnpacked
	}

	creds, err := i.creds.Credentials()
	if err != nil {
		return err
	}

	log.Info("Downloading", "url", release.DownloadURL)
	data, err := i.fetcher.Fetch(release.DownloadURL, url.Values{
		"username": {creds.Username},
		"token":    {creds.Token},
	})
	if err != nil {
		return err
	}

	if int64(len(data)) != release.FileSize {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrSizeMismatch, len(data), release.FileSize)
	}

	finalPath := filepath.Join(i.dir.Root(), fileName)
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", finalPath, err)
	}

	rec, err := i.dir.RecordFromArchive(finalPath)
	if err != nil {
		os.Remove(finalPath)
		return err
	}

	// at most one on-disk copy per mod name survives an install
	if hasPrior && (prior.Basename != rec.Basename || !prior.Packed) {
		if err := prior.Remove(); err != nil {
			return err
		}
	}

	if opts.Enable != nil {
		if _, err := rec.SetEnabled(*opts.Enable); err != nil {
			return err
		}
	}

	if unpack != nil && *unpack {
		if _, err := rec.Unpack(); err != nil {
			return err
		}
	}
	return nil
}

// Uninstall removes every local record matching name, narrowed to a single
// version when version is non-empty. It returns how many records were
// removed.
func (i *Installer) Uninstall(name, version string) (int, error) {
	records, err := i.dir.Scan(name, version)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range records {
		if rec.Name != name {
			continue
		}
		if err := rec.Remove(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
