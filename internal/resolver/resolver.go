package resolver

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yamm/internal/config"
	"github.com/frederic-klein/yamm/internal/moddir"
	"github.com/frederic-klein/yamm/internal/portal"
	"github.com/frederic-klein/yamm/internal/requirement"
)

var (
	// ErrNoMatch indicates the constraint and game-version filters left no
	// installable release.
	ErrNoMatch = errors.New("no matching release")

	// ErrHeld indicates the requirement names a held mod and the held
	// override was not set.
	ErrHeld = errors.New("mod is held")

	// ErrAlreadyInstalled indicates the chosen release is already installed
	// and reinstall was not requested.
	ErrAlreadyInstalled = errors.New("already installed")

	// ErrNewerInstalled indicates a more recent version is installed locally
	// and downgrade was not requested.
	ErrNewerInstalled = errors.New("more recent version installed")

	// ErrUnresolvable indicates no remote candidate survived dependency
	// expansion.
	ErrUnresolvable = errors.New("dependencies cannot be met")
)

// Options control how Plan treats local state and dependencies.
type Options struct {
	Held      bool // allow planning held mods
	Reinstall bool // allow reinstalling the exact installed version
	Downgrade bool // allow replacing a newer installed version
	NoDeps    bool // skip dependency expansion entirely
}

// Catalog is the remote lookup surface Plan needs. *portal.Client
// satisfies it; tests supply fakes.
type Catalog interface {
	GetMod(name string) (*portal.Mod, error)
}

// Resolver turns a requirement into an ordered, dependency-complete list
// of releases to install.
//
// Resolution is greedy and does not backtrack: candidates are tried in
// portal order (newest first), each dependency takes the first release the
// portal offers, and a failing dependency abandons the current candidate
// rather than reconsidering earlier sibling choices.
type Resolver struct {
	catalog Catalog
	dir     *moddir.Directory
	cfg     *config.Config
}

// New creates a Resolver over the given catalog, mods directory and config.
func New(catalog Catalog, dir *moddir.Directory, cfg *config.Config) *Resolver {
	return &Resolver{catalog: catalog, dir: dir, cfg: cfg}
}

// ResolveRemote fetches the named mod's releases and filters them by the
// requirement's constraint and by game-version compatibility. Portal order
// is preserved so the first element is the preferred (newest) candidate.
func (r *Resolver) ResolveRemote(req requirement.Requirement) ([]portal.Release, error) {
	mod, err := r.catalog.GetMod(req.Name)
	if err != nil {
		return nil, err
	}

	gameVer := r.cfg.GameVersionMajor()
	var matches []portal.Release
	for _, rel := range mod.Releases {
		if rel.GameVersion == gameVer && req.Spec.Match(rel.Version) {
			matches = append(matches, rel)
		}
	}
	return matches, nil
}

// ResolveLocal filters installed records by the requirement's constraint
// and game-version compatibility.
func (r *Resolver) ResolveLocal(req requirement.Requirement) ([]*moddir.Record, error) {
	records, err := r.dir.Scan(req.Name, "")
	if err != nil {
		return nil, err
	}

	gameVer := r.cfg.GameVersionMajor()
	var matches []*moddir.Record
	for _, rec := range records {
		if rec.Name != req.Name || !req.Spec.Match(rec.Version) {
			continue
		}
		info, err := rec.Info()
		if err != nil {
			continue
		}
		if info.GameVersion != "" && info.GameVersion != gameVer {
			continue
		}
		matches = append(matches, rec)
	}
	return matches, nil
}

// Plan resolves a single requirement into the ordered release list to
// install: newly-needed dependencies first, the chosen candidate last.
// The first candidate whose dependencies all resolve wins.
func (r *Resolver) Plan(req requirement.Requirement, opts Options) ([]portal.Release, error) {
	releases, err := r.ResolveRemote(req)
	if err != nil {
		return nil, err
	}

	if !opts.Held && r.cfg.Held(req.Name) {
		return nil, fmt.Errorf("%w: %s (use --held to install it anyway)", ErrHeld, req.Name)
	}

	if len(releases) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, req.String())
	}

	local, hasLocal, err := r.dir.Find(req.Name)
	if err != nil {
		return nil, err
	}

	for _, release := range releases {
		if hasLocal {
			cmp := requirement.Compare(release.Version, local.Version)
			if cmp == 0 && !opts.Reinstall {
				return nil, fmt.Errorf("%w: %s==%s (use --reinstall to reinstall it)",
					ErrAlreadyInstalled, local.Name, local.Version)
			}
			if cmp < 0 && !opts.Downgrade {
				return nil, fmt.Errorf("%w: %s (use --downgrade to downgrade it)",
					ErrNewerInstalled, local.Name)
			}
		}

		deps, ok := r.expandDependencies(release, opts)
		if !ok {
			// candidate cannot be satisfied; try the next (older) one
			continue
		}
		return append(deps, release), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnresolvable, req.String())
}

// expandDependencies resolves a candidate's declared dependencies against
// local state first, then the portal. It returns the releases that still
// need installing, or ok=false when the candidate must be abandoned.
func (r *Resolver) expandDependencies(release portal.Release, opts Options) ([]portal.Release, bool) {
	if opts.NoDeps {
		return nil, true
	}

	var needed []portal.Release
	for _, dep := range release.InfoJSON.Dependencies {
		depReq, err := requirement.Parse(dep)
		if err != nil {
			log.Warn("Skipping candidate with malformed dependency",
				"mod", release.InfoJSON.Name, "dependency", dep, "err", err)
			return nil, false
		}

		if depReq.Optional {
			continue
		}

		// "base" is the game itself: validated against the configured game
		// version, never resolved through the catalog.
		if depReq.Name == "base" {
			if depReq.Spec.Match(r.cfg.GameVersion) {
				continue
			}
			log.Warn("Candidate is incompatible with game version",
				"dependency", depReq.String(), "game_version", r.cfg.GameVersion)
			return nil, false
		}

		locals, err := r.ResolveLocal(depReq)
		if err != nil {
			log.Warn("Local dependency lookup failed", "dependency", depReq.String(), "err", err)
			return nil, false
		}
		if len(locals) > 0 {
			continue
		}

		remotes, err := r.ResolveRemote(depReq)
		if err != nil {
			log.Warn("Dependency not found", "dependency", depReq.Name)
			return nil, false
		}
		if len(remotes) == 0 {
			log.Warn("Dependency cannot be met", "dependency", depReq.String())
			return nil, false
		}

		// Greedy: only the first release of the dependency is considered.
		depRel := remotes[0]
		log.Info("Adding dependency", "name", depReq.Name, "version", depRel.Version)
		needed = append(needed, depRel)
	}
	return needed, true
}
