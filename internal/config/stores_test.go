package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHotkeysMissingFileReturnsDefaults(t *testing.T) {
	bindings, err := LoadHotkeys(filepath.Join(t.TempDir(), "hotkeys.json"))
	require.NoError(t, err)

	assert.Len(t, bindings, 4)
	for _, action := range []string{HotkeyToggle, HotkeyToggleTTS, HotkeyPushToTalk, HotkeyStopTTS} {
		assert.Contains(t, bindings, action)
	}
}

func TestHotkeyOverlayMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotkeys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"toggle": {"modifiers": ["ctrl"], "key": "space", "description": "Toggle listening"}
	}`), 0o644))

	bindings, err := LoadHotkeys(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"ctrl"}, bindings[HotkeyToggle].Modifiers)
	assert.Equal(t, "space", bindings[HotkeyToggle].Key)
	// untouched actions keep their defaults
	assert.Equal(t, DefaultHotkeys()[HotkeyStopTTS], bindings[HotkeyStopTTS])
}

func TestHotkeyOverlayIgnoresUnknownActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotkeys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"selfDestruct": {"modifiers": [], "key": "x", "description": ""}}`), 0o644))

	bindings, err := LoadHotkeys(path)
	require.NoError(t, err)
	assert.Len(t, bindings, 4)
	assert.NotContains(t, bindings, "selfDestruct")
}

func TestSaveHotkeysPersistsOnlyChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotkeys.json")

	bindings := DefaultHotkeys()
	b := bindings[HotkeyToggle]
	b.Key = "v"
	bindings[HotkeyToggle] = b
	require.NoError(t, SaveHotkeys(path, bindings))

	overlay := map[string]HotkeyBinding{}
	_, err := readJSONFile(path, &overlay)
	require.NoError(t, err)
	assert.Len(t, overlay, 1)
	assert.Equal(t, "v", overlay[HotkeyToggle].Key)

	// reload round-trips
	reloaded, err := LoadHotkeys(path)
	require.NoError(t, err)
	assert.Equal(t, bindings, reloaded)
}

func TestLoadLaunchRulesMissingFile(t *testing.T) {
	rules, err := LoadLaunchRules(filepath.Join(t.TempDir(), "mode-launch.json"))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLaunchRulesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode-launch.json")

	rules := map[string]ModeLaunchRule{
		"music": {Enabled: true, ProcessName: "Music", LaunchCommand: "open -a Music"},
	}
	require.NoError(t, SaveLaunchRules(path, rules))

	reloaded, err := LoadLaunchRules(path)
	require.NoError(t, err)
	assert.Equal(t, rules, reloaded)
}

func TestLoadAddonConfigMissingFile(t *testing.T) {
	cfg, err := LoadAddonConfig(filepath.Join(t.TempDir(), "addons.json"))
	require.NoError(t, err)
	assert.NotNil(t, cfg.Enabled)
	assert.NotNil(t, cfg.Hidden)
	assert.NotNil(t, cfg.Settings)
}

func TestLoadAddonConfigMalformedReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addons.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	cfg, err := LoadAddonConfig(path)
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.Enabled)
}

func TestAddonSettingsOverlayMerge(t *testing.T) {
	def := AddonSettings{
		CommandsOnly:   true,
		TTSEnabled:     true,
		CustomCommands: map[string]string{"a": "1", "b": "2"},
	}

	off := false
	merged := AddonSettingsOverlay{
		TTSEnabled:     &off,
		CustomCommands: map[string]string{"b": "override", "c": "3"},
	}.MergeOver(def)

	assert.True(t, merged.CommandsOnly, "unset overlay fields keep declared defaults")
	assert.False(t, merged.TTSEnabled, "overlay wins on conflict")
	assert.Equal(t, map[string]string{"a": "1", "b": "override", "c": "3"}, merged.CustomCommands)

	// merge never mutates the declared defaults
	assert.Equal(t, "2", def.CustomCommands["b"])
}

func TestEmptyOverlayIsIdentity(t *testing.T) {
	def := AddonSettings{PushToTalk: true, CustomCommands: map[string]string{"x": "y"}}
	assert.Equal(t, def, AddonSettingsOverlay{}.MergeOver(def))
}
