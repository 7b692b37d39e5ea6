package installer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamm/internal/credentials"
	"github.com/frederic-klein/yamm/internal/moddir"
	"github.com/frederic-klein/yamm/internal/portal"
)

type fakeFetcher struct {
	data   []byte
	err    error
	calls  int
	params url.Values
}

func (f *fakeFetcher) Fetch(rawURL string, params url.Values) ([]byte, error) {
	f.calls++
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func modArchive(t *testing.T, name, version string) []byte {
	t.Helper()
	basename := name + "_" + version
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	w, err := zw.Create(basename + "/info.json")
	require.NoError(t, err)
	info, err := json.Marshal(moddir.Info{Name: name, Version: version, Dependencies: []string{}})
	require.NoError(t, err)
	_, err = w.Write(info)
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testRelease(name, version string, size int64) portal.Release {
	return portal.Release{
		Version:     version,
		GameVersion: "1.1",
		DownloadURL: "/download/" + name + "/" + version,
		FileName:    name + "_" + version + ".zip",
		FileSize:    size,
		InfoJSON:    portal.InfoJSON{Name: name, Version: version},
	}
}

var testCreds = credentials.Static{Username: "alice", Token: "tok"}

func TestInstall_Fresh(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)
	data := modArchive(t, "foo", "1.0.0")
	fetcher := &fakeFetcher{data: data}

	inst := New(fetcher, dir, testCreds)
	err := inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{})
	require.NoError(t, err)

	rec, ok, err := dir.Find("foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Packed)
	assert.Equal(t, "1.0.0", rec.Version)

	// download was authenticated
	assert.Equal(t, "alice", fetcher.params.Get("username"))
	assert.Equal(t, "tok", fetcher.params.Get("token"))

	// no staging file left behind
	_, statErr := os.Stat(filepath.Join(root, "foo_1.0.0.zip.tmp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_InvalidFileName(t *testing.T) {
	dir := moddir.New(t.TempDir())
	fetcher := &fakeFetcher{}
	inst := New(fetcher, dir, testCreds)

	for _, fileName := range []string{"../evil.zip", `sub\evil.zip`, "foo_1.0.0.tar.gz"} {
		release := testRelease("foo", "1.0.0", 10)
		release.FileName = fileName
		err := inst.Install(release, Options{})
		assert.True(t, errors.Is(err, ErrInvalidRelease), "file name %q", fileName)
	}
	assert.Equal(t, 0, fetcher.calls, "nothing should be downloaded")
}

func TestInstall_SizeMismatch(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)
	data := modArchive(t, "foo", "1.0.0")
	fetcher := &fakeFetcher{data: data}

	inst := New(fetcher, dir, testCreds)
	err := inst.Install(testRelease("foo", "1.0.0", int64(len(data))+1), Options{})
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	// nothing may exist at the final path
	_, statErr := os.Stat(filepath.Join(root, "foo_1.0.0.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_ReplacesOlderVersion(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)

	old := modArchive(t, "foo", "0.9.0")
	require.NoError(t, os.WriteFile(filepath.Join(root, "foo_0.9.0.zip"), old, 0o644))

	data := modArchive(t, "foo", "1.0.0")
	inst := New(&fakeFetcher{data: data}, dir, testCreds)
	require.NoError(t, inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{}))

	_, statErr := os.Stat(filepath.Join(root, "foo_0.9.0.zip"))
	assert.True(t, os.IsNotExist(statErr), "superseded archive must be removed")

	records, err := dir.Scan("foo", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1.0.0", records[0].Version)
}

func TestInstall_InheritsUnpackedLayout(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)

	// prior copy is unpacked
	oldDir := filepath.Join(root, "foo_0.9.0")
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	info, err := json.Marshal(moddir.Info{Name: "foo", Version: "0.9.0", Dependencies: []string{}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(oldDir, "info.json"), info, 0o644))

	data := modArchive(t, "foo", "1.0.0")
	inst := New(&fakeFetcher{data: data}, dir, testCreds)
	require.NoError(t, inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{}))

	// new copy is unpacked too, prior copy and interim archive are gone
	fi, err := os.Stat(filepath.Join(root, "foo_1.0.0"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	_, statErr := os.Stat(oldDir)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(root, "foo_1.0.0.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_ExplicitEnableFlag(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)
	data := modArchive(t, "foo", "1.0.0")
	inst := New(&fakeFetcher{data: data}, dir, testCreds)

	disabled := false
	require.NoError(t, inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{Enable: &disabled}))

	enabled, err := dir.Enabled("foo")
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestInstall_ReinstallSameVersion(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)
	data := modArchive(t, "foo", "1.0.0")
	inst := New(&fakeFetcher{data: data}, dir, testCreds)

	require.NoError(t, inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{}))
	require.NoError(t, inst.Install(testRelease("foo", "1.0.0", int64(len(data))), Options{}))

	records, err := dir.Scan("foo", "")
	require.NoError(t, err)
	assert.Len(t, records, 1, "reinstall must not duplicate the mod")
}

func TestUninstall(t *testing.T) {
	root := t.TempDir()
	dir := moddir.New(root)

	for _, version := range []string{"1.0.0", "1.1.0"} {
		data := modArchive(t, "foo", version)
		require.NoError(t, os.WriteFile(filepath.Join(root, "foo_"+version+".zip"), data, 0o644))
	}

	inst := New(&fakeFetcher{}, dir, testCreds)

	removed, err := inst.Uninstall("foo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = inst.Uninstall("foo", "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = inst.Uninstall("foo", "")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
