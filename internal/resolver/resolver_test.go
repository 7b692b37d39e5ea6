package resolver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamm/internal/config"
	"github.com/frederic-klein/yamm/internal/moddir"
	"github.com/frederic-klein/yamm/internal/portal"
	"github.com/frederic-klein/yamm/internal/requirement"
)

// fakeCatalog serves canned mods and records which names were looked up.
type fakeCatalog struct {
	mods    map[string]*portal.Mod
	lookups []string
}

func (f *fakeCatalog) GetMod(name string) (*portal.Mod, error) {
	f.lookups = append(f.lookups, name)
	mod, ok := f.mods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", portal.ErrModNotFound, name)
	}
	return mod, nil
}

func release(name, version, gameVersion string, deps ...string) portal.Release {
	if deps == nil {
		deps = []string{}
	}
	return portal.Release{
		Version:     version,
		GameVersion: gameVersion,
		DownloadURL: "/download/" + name + "/" + version,
		FileName:    name + "_" + version + ".zip",
		FileSize:    100,
		InfoJSON:    portal.InfoJSON{Name: name, Version: version, Dependencies: deps},
	}
}

func writeLocalMod(t *testing.T, root, name, version string) {
	t.Helper()
	basename := name + "_" + version
	dir := filepath.Join(root, basename)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(moddir.Info{Name: name, Version: version, Dependencies: []string{}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.json"), data, 0o644))
}

func newTestResolver(t *testing.T, catalog *fakeCatalog, hold ...string) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{ModsPath: root, GameVersion: "1.1.53", Hold: hold}
	return New(catalog, moddir.New(root), cfg), root
}

func mustParse(t *testing.T, text string) requirement.Requirement {
	t.Helper()
	req, err := requirement.Parse(text)
	require.NoError(t, err)
	return req
}

func TestResolveRemote_Filters(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "2.0.0", "1.2"), // wrong game version
			release("foo", "1.2.0", "1.1"),
			release("foo", "1.1.0", "1.1"),
			release("foo", "0.9.0", "1.1"), // below constraint
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	releases, err := r.ResolveRemote(mustParse(t, "foo>=1.0.0"))
	require.NoError(t, err)
	require.Len(t, releases, 2)
	// portal order preserved: newest first
	assert.Equal(t, "1.2.0", releases[0].Version)
	assert.Equal(t, "1.1.0", releases[1].Version)
}

func TestResolveRemote_NotFound(t *testing.T) {
	r, _ := newTestResolver(t, &fakeCatalog{mods: map[string]*portal.Mod{}})

	_, err := r.ResolveRemote(mustParse(t, "ghost"))
	assert.True(t, errors.Is(err, portal.ErrModNotFound))
}

func TestResolveLocal(t *testing.T) {
	r, root := newTestResolver(t, &fakeCatalog{})
	writeLocalMod(t, root, "foo", "1.0.0")
	writeLocalMod(t, root, "foo", "2.0.0")

	matches, err := r.ResolveLocal(mustParse(t, "foo>=1.5.0"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "2.0.0", matches[0].Version)

	matches, err = r.ResolveLocal(mustParse(t, "bar"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPlan_SingleModNoDeps(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{release("foo", "1.0.0", "1.1")}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "1.0.0", plan[0].Version)
}

func TestPlan_AlreadyInstalled(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{release("foo", "1.0.0", "1.1")}},
	}}
	r, root := newTestResolver(t, catalog)
	writeLocalMod(t, root, "foo", "1.0.0")

	_, err := r.Plan(mustParse(t, "foo"), Options{})
	assert.True(t, errors.Is(err, ErrAlreadyInstalled))

	plan, err := r.Plan(mustParse(t, "foo"), Options{Reinstall: true})
	require.NoError(t, err)
	assert.Len(t, plan, 1)
}

func TestPlan_NewerInstalled(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{release("foo", "1.0.0", "1.1")}},
	}}
	r, root := newTestResolver(t, catalog)
	writeLocalMod(t, root, "foo", "2.0.0")

	_, err := r.Plan(mustParse(t, "foo>=1.0.0"), Options{})
	assert.True(t, errors.Is(err, ErrNewerInstalled))

	plan, err := r.Plan(mustParse(t, "foo>=1.0.0"), Options{Downgrade: true})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "1.0.0", plan[0].Version)
}

func TestPlan_Held(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{release("foo", "1.0.0", "1.1")}},
	}}
	r, _ := newTestResolver(t, catalog, "foo")

	_, err := r.Plan(mustParse(t, "foo"), Options{})
	assert.True(t, errors.Is(err, ErrHeld))

	plan, err := r.Plan(mustParse(t, "foo"), Options{Held: true})
	require.NoError(t, err)
	assert.Len(t, plan, 1)
}

func TestPlan_NoMatch(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{release("foo", "1.0.0", "0.17")}},
	}}
	r, _ := newTestResolver(t, catalog)

	_, err := r.Plan(mustParse(t, "foo"), Options{})
	assert.True(t, errors.Is(err, ErrNoMatch))
}

func TestPlan_BaseDependencyNeverResolved(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "base>=1.1"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	assert.Len(t, plan, 1)
	assert.NotContains(t, catalog.lookups, "base", "base must never hit the catalog")
}

func TestPlan_BaseDependencyIncompatible(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "base>=2.0"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	_, err := r.Plan(mustParse(t, "foo"), Options{})
	assert.True(t, errors.Is(err, ErrUnresolvable))
	assert.NotContains(t, catalog.lookups, "base")
}

func TestPlan_DependencyFromPortal(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "libmod>=0.2.0"),
		}},
		"libmod": {Name: "libmod", Releases: []portal.Release{
			release("libmod", "0.3.0", "1.1"),
			release("libmod", "0.2.0", "1.1"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	require.Len(t, plan, 2)
	// dependencies come first, and only the first (newest) release is taken
	assert.Equal(t, "libmod", plan[0].InfoJSON.Name)
	assert.Equal(t, "0.3.0", plan[0].Version)
	assert.Equal(t, "foo", plan[1].InfoJSON.Name)
}

func TestPlan_DependencySatisfiedLocally(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "libmod>=0.2.0"),
		}},
	}}
	r, root := newTestResolver(t, catalog)
	writeLocalMod(t, root, "libmod", "0.2.5")

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "foo", plan[0].InfoJSON.Name)
}

func TestPlan_OptionalDependencySkipped(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "? fancy-graphics>=1.0.0"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	assert.Len(t, plan, 1)
	assert.NotContains(t, catalog.lookups, "fancy-graphics")
}

func TestPlan_NoDeps(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "1.0.0", "1.1", "libmod>=0.2.0"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{NoDeps: true})
	require.NoError(t, err)
	assert.Len(t, plan, 1)
	assert.NotContains(t, catalog.lookups, "libmod")
}

func TestPlan_FallsBackToOlderCandidate(t *testing.T) {
	// the newest candidate needs a dependency the portal cannot meet; the
	// older one is self-contained and must win without backtracking.
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "2.0.0", "1.1", "ghostlib>=1.0.0"),
			release("foo", "1.0.0", "1.1"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	plan, err := r.Plan(mustParse(t, "foo"), Options{})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "1.0.0", plan[0].Version)
}

func TestPlan_AllCandidatesFail(t *testing.T) {
	catalog := &fakeCatalog{mods: map[string]*portal.Mod{
		"foo": {Name: "foo", Releases: []portal.Release{
			release("foo", "2.0.0", "1.1", "ghostlib>=1.0.0"),
			release("foo", "1.0.0", "1.1", "ghostlib>=0.5.0"),
		}},
	}}
	r, _ := newTestResolver(t, catalog)

	_, err := r.Plan(mustParse(t, "foo"), Options{})
	assert.True(t, errors.Is(err, ErrUnresolvable))
}
