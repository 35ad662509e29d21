package addons

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotDir captures relative path -> content for the whole tree.
func snapshotDir(t *testing.T, dir string) map[string]string {
	t.Helper()
	snap := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			snap[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		snap[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return snap
}

func makeZip(t *testing.T, dest string, files map[string]string) {
	t.Helper()
	out, err := os.Create(dest)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestImportDirectoryUsesDeclaredName(t *testing.T) {
	r, _ := testRegistry(t)
	src := writeAddon(t, t.TempDir(), "whatever", map[string]string{EntrypointFile: legacyEntrypoint})

	d, err := r.ImportLocal(src)
	require.NoError(t, err)
	assert.Equal(t, "dev-pack", d.Name, "declared name wins over the source base name")

	assert.True(t, HasEntrypoint(filepath.Join(r.Root(), "dev-pack")))
}

func TestImportDirectoryFallsBackToBaseName(t *testing.T) {
	r, _ := testRegistry(t)
	src := writeAddon(t, t.TempDir(), "plain-pack", map[string]string{EntrypointFile: "// no declarations"})

	d, err := r.ImportLocal(src)
	require.NoError(t, err)
	assert.Equal(t, "plain-pack", d.Name)
}

func TestImportZip(t *testing.T) {
	r, _ := testRegistry(t)

	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	makeZip(t, zipPath, map[string]string{
		"dev-pack/" + EntrypointFile: legacyEntrypoint,
		"dev-pack/helpers.js":        "// helpers",
	})

	d, err := r.ImportLocal(zipPath)
	require.NoError(t, err)
	assert.Equal(t, "dev-pack", d.Name)
	assert.FileExists(t, filepath.Join(r.Root(), "dev-pack", "helpers.js"))
}

func TestImportWithoutEntrypointLeavesRootUntouched(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "existing", map[string]string{EntrypointFile: "// keep me"})
	before := snapshotDir(t, r.Root())

	src := writeAddon(t, t.TempDir(), "broken", map[string]string{"README.md": "no entrypoint"})
	_, err := r.ImportLocal(src)
	require.ErrorIs(t, err, ErrNoEntrypoint)

	assert.Equal(t, before, snapshotDir(t, r.Root()), "failed validation must not mutate the addons root")
}

func TestImportBadZipLeavesRootUntouched(t *testing.T) {
	r, _ := testRegistry(t)
	before := snapshotDir(t, r.Root())

	bad := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))

	_, err := r.ImportLocal(bad)
	require.Error(t, err)
	assert.Equal(t, before, snapshotDir(t, r.Root()))
}

func TestImportReplacesExistingAddon(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "dev-pack", map[string]string{
		EntrypointFile: "// old version",
		"stale.js":     "// should disappear",
	})

	src := writeAddon(t, t.TempDir(), "ignored", map[string]string{EntrypointFile: legacyEntrypoint})
	_, err := r.ImportLocal(src)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(r.Root(), "dev-pack", EntrypointFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "dev-pack")
	assert.NoFileExists(t, filepath.Join(r.Root(), "dev-pack", "stale.js"), "old contents are replaced, not merged")
}

func TestImportResurrectsHiddenAddon(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "dev-pack", map[string]string{EntrypointFile: legacyEntrypoint})
	require.NoError(t, r.Remove("dev-pack"))
	require.Empty(t, r.List())

	src := writeAddon(t, t.TempDir(), "x", map[string]string{EntrypointFile: legacyEntrypoint})
	_, err := r.ImportLocal(src)
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "dev-pack", list[0].Name)
	assert.True(t, list[0].Enabled)
}

func TestExportImportRoundTrip(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "dev-pack", map[string]string{
		EntrypointFile: legacyEntrypoint,
		"helpers.js":   "// helpers",
	})

	original, err := os.ReadFile(filepath.Join(r.Root(), "dev-pack", EntrypointFile))
	require.NoError(t, err)

	zipPath := filepath.Join(t.TempDir(), "dev-pack.zip")
	require.NoError(t, r.ExportZip("dev-pack", zipPath))

	require.NoError(t, r.Remove("dev-pack"))
	require.Empty(t, r.List())

	d, err := r.ImportLocal(zipPath)
	require.NoError(t, err)
	require.Equal(t, "dev-pack", d.Name)

	restored, err := os.ReadFile(filepath.Join(r.Root(), "dev-pack", EntrypointFile))
	require.NoError(t, err)
	assert.Equal(t, original, restored, "round-tripped entrypoint must be identical")
}

func TestExportUnknownAddon(t *testing.T) {
	r, _ := testRegistry(t)
	err := r.ExportZip("ghost", filepath.Join(t.TempDir(), "out.zip"))
	assert.Error(t, err)
}

func TestExtractZipRejectsPathTraversal(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	makeZip(t, zipPath, map[string]string{"../escape.txt": "owned"})

	err := extractZip(zipPath, t.TempDir())
	assert.Error(t, err)
}
