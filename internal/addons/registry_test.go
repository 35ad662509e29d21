package addons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxbar/internal/config"
	"voxbar/internal/logger"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(cmd string) error {
	f.sent = append(f.sent, cmd)
	return nil
}

func testRegistry(t *testing.T) (*Registry, *fakeNotifier) {
	t.Helper()
	dir := t.TempDir()
	n := &fakeNotifier{}
	r := NewRegistry(filepath.Join(dir, "addons"), filepath.Join(dir, "addons.json"), n, logger.New(logger.ERROR, "test"))
	require.NoError(t, os.MkdirAll(r.Root(), 0o755))
	return r, n
}

func writeAddon(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for fname, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644))
	}
	return dir
}

const legacyEntrypoint = `
module.exports = {
  name: 'dev-pack',
  displayName: "Dev Pack",
  description: 'developer commands',
  modeCommand: 'dev',
  version: '1.2.0',
};
`

func TestListDiscoversManifestAddons(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "weather", map[string]string{
		EntrypointFile: "// entry",
		ManifestFile:   `{"name": "weather", "displayName": "Weather", "description": "forecasts", "version": "0.3.1"}`,
	})

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "weather", list[0].Name)
	assert.Equal(t, "Weather", list[0].DisplayName)
	assert.Equal(t, "forecasts", list[0].Description)
	assert.Equal(t, "0.3.1", list[0].Version)
	assert.True(t, list[0].Enabled, "enable defaults to true")
}

func TestListDiscoversLegacyAddons(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "dev-pack", map[string]string{EntrypointFile: legacyEntrypoint})

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Dev Pack", list[0].DisplayName)
	assert.Equal(t, "developer commands", list[0].Description)
	assert.Equal(t, "dev", list[0].ModeCommand)
	assert.Equal(t, "1.2.0", list[0].Version)
}

func TestListSkipsDirsWithoutEntrypoint(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "notes", map[string]string{"README.md": "not an addon"})
	writeAddon(t, r.Root(), "real", map[string]string{EntrypointFile: "// x"})

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "real", list[0].Name)
}

func TestBadManifestFallsBackToLegacyFields(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "dev-pack", map[string]string{
		EntrypointFile: legacyEntrypoint,
		ManifestFile:   `{"version": 3}`, // schema violation: missing name, wrong type
	})

	// one bad addon never aborts the discovery pass
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "dev-pack", list[0].Name)
	assert.Equal(t, "Dev Pack", list[0].DisplayName)
}

func TestRemoveHidesButPreservesFiles(t *testing.T) {
	r, _ := testRegistry(t)
	dir := writeAddon(t, r.Root(), "dev-pack", map[string]string{EntrypointFile: legacyEntrypoint})

	require.NoError(t, r.Remove("dev-pack"))

	assert.Empty(t, r.List(), "hidden addons are excluded entirely")
	_, err := os.Stat(filepath.Join(dir, EntrypointFile))
	assert.NoError(t, err, "files must remain on disk")

	_, found := r.Get("dev-pack")
	assert.False(t, found)
}

func TestSetEnabledOverlay(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "a", map[string]string{EntrypointFile: "// x"})

	require.NoError(t, r.SetEnabled("a", false))
	list := r.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)

	require.NoError(t, r.SetEnabled("a", true))
	assert.True(t, r.List()[0].Enabled)
}

func TestSettingsMergeDeclaredDefaultsAndOverlay(t *testing.T) {
	r, _ := testRegistry(t)
	writeAddon(t, r.Root(), "weather", map[string]string{
		EntrypointFile: "// entry",
		ManifestFile: `{
			"name": "weather",
			"defaults": {
				"commandsOnly": true,
				"ttsEnabled": true,
				"customCommands": {"forecast": "show-forecast"}
			}
		}`,
	})

	// no overlay: declared defaults
	s, err := r.SettingsFor("weather")
	require.NoError(t, err)
	assert.True(t, s.CommandsOnly)
	assert.True(t, s.TTSEnabled)
	assert.Equal(t, "show-forecast", s.CustomCommands["forecast"])

	// overlay wins on conflict, untouched defaults survive
	off := false
	require.NoError(t, r.SaveSettings("weather", config.AddonSettingsOverlay{
		TTSEnabled:     &off,
		CustomCommands: map[string]string{"radar": "show-radar"},
	}))

	s, err = r.SettingsFor("weather")
	require.NoError(t, err)
	assert.True(t, s.CommandsOnly)
	assert.False(t, s.TTSEnabled)
	assert.Equal(t, "show-forecast", s.CustomCommands["forecast"])
	assert.Equal(t, "show-radar", s.CustomCommands["radar"])
}

func TestSaveSettingsSignalsReload(t *testing.T) {
	r, n := testRegistry(t)
	writeAddon(t, r.Root(), "a", map[string]string{EntrypointFile: "// x"})

	require.NoError(t, r.SaveSettings("a", config.AddonSettingsOverlay{}))
	assert.Equal(t, []string{"reload-addons"}, n.sent)
}

func TestSettingsForUnknownAddon(t *testing.T) {
	r, _ := testRegistry(t)
	_, err := r.SettingsFor("ghost")
	assert.Error(t, err)
}
