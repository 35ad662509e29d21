package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Secondary config stores. Every write is a whole-file rewrite and
// every read tolerates a missing file by returning the compiled-in
// defaults.

func readJSONFile(path string, v interface{}) (missing bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return false, nil
}

func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// hotkeys

// Fixed hotkey actions.
const (
	HotkeyToggle     = "toggle"
	HotkeyToggleTTS  = "toggleTTS"
	HotkeyPushToTalk = "pushToTalk"
	HotkeyStopTTS    = "stopTTS"
)

type HotkeyBinding struct {
	Modifiers   []string `json:"modifiers"`
	Key         string   `json:"key,omitempty"`
	Description string   `json:"description"`
}

// DefaultHotkeys returns the compiled-in bindings for all four actions.
func DefaultHotkeys() map[string]HotkeyBinding {
	return map[string]HotkeyBinding{
		HotkeyToggle:     {Modifiers: []string{"cmd", "shift"}, Key: "l", Description: "Toggle listening"},
		HotkeyToggleTTS:  {Modifiers: []string{"cmd", "shift"}, Key: "t", Description: "Toggle speech output"},
		HotkeyPushToTalk: {Modifiers: []string{"cmd"}, Key: "`", Description: "Push to talk"},
		HotkeyStopTTS:    {Modifiers: []string{"cmd"}, Key: ".", Description: "Stop speaking"},
	}
}

// LoadHotkeys merges the persisted partial map over the defaults.
func LoadHotkeys(path string) (map[string]HotkeyBinding, error) {
	bindings := DefaultHotkeys()

	overlay := map[string]HotkeyBinding{}
	if _, err := readJSONFile(path, &overlay); err != nil {
		return bindings, err
	}
	for action, b := range overlay {
		if _, known := bindings[action]; known {
			bindings[action] = b
		}
	}
	return bindings, nil
}

// SaveHotkeys persists only entries that differ from the defaults.
func SaveHotkeys(path string, bindings map[string]HotkeyBinding) error {
	defaults := DefaultHotkeys()
	overlay := map[string]HotkeyBinding{}
	for action, b := range bindings {
		d, known := defaults[action]
		if !known {
			continue
		}
		if !bindingsEqual(b, d) {
			overlay[action] = b
		}
	}
	return writeJSONFile(path, overlay)
}

func bindingsEqual(a, b HotkeyBinding) bool {
	if a.Key != b.Key || a.Description != b.Description || len(a.Modifiers) != len(b.Modifiers) {
		return false
	}
	for i := range a.Modifiers {
		if a.Modifiers[i] != b.Modifiers[i] {
			return false
		}
	}
	return true
}

// mode-launch rules

// ModeLaunchRule auto-launches a companion app when its mode is
// entered, gated on a process-presence check.
type ModeLaunchRule struct {
	Enabled       bool   `json:"enabled"`
	ProcessName   string `json:"processName"`
	LaunchCommand string `json:"launchCommand"`
}

func LoadLaunchRules(path string) (map[string]ModeLaunchRule, error) {
	rules := map[string]ModeLaunchRule{}
	if _, err := readJSONFile(path, &rules); err != nil {
		return map[string]ModeLaunchRule{}, err
	}
	return rules, nil
}

func SaveLaunchRules(path string, rules map[string]ModeLaunchRule) error {
	return writeJSONFile(path, rules)
}

// addon config

// AddonSettings is the fully-resolved per-addon settings view.
type AddonSettings struct {
	CommandsOnly   bool              `json:"commandsOnly"`
	PushToTalk     bool              `json:"pushToTalk"`
	TTSEnabled     bool              `json:"ttsEnabled"`
	CustomCommands map[string]string `json:"customCommands"`
}

// AddonSettingsOverlay is the persisted per-addon overlay. Pointer
// fields record only what the user actually changed; nil means
// "use the addon's declared default".
type AddonSettingsOverlay struct {
	CommandsOnly   *bool             `json:"commandsOnly,omitempty"`
	PushToTalk     *bool             `json:"pushToTalk,omitempty"`
	TTSEnabled     *bool             `json:"ttsEnabled,omitempty"`
	CustomCommands map[string]string `json:"customCommands,omitempty"`
}

// MergeOver resolves the overlay against declared defaults; the
// overlay wins on conflict.
func (o AddonSettingsOverlay) MergeOver(def AddonSettings) AddonSettings {
	out := def
	if o.CommandsOnly != nil {
		out.CommandsOnly = *o.CommandsOnly
	}
	if o.PushToTalk != nil {
		out.PushToTalk = *o.PushToTalk
	}
	if o.TTSEnabled != nil {
		out.TTSEnabled = *o.TTSEnabled
	}
	if len(o.CustomCommands) > 0 {
		out.CustomCommands = map[string]string{}
		for phrase, action := range def.CustomCommands {
			out.CustomCommands[phrase] = action
		}
		for phrase, action := range o.CustomCommands {
			out.CustomCommands[phrase] = action
		}
	}
	return out
}

// AddonConfig is the single persisted file covering every addon,
// keyed by addon (directory) name.
type AddonConfig struct {
	Enabled  map[string]bool                 `json:"enabled"`
	Hidden   map[string]bool                 `json:"hidden"`
	Settings map[string]AddonSettingsOverlay `json:"settings"`
}

func newAddonConfig() *AddonConfig {
	return &AddonConfig{
		Enabled:  map[string]bool{},
		Hidden:   map[string]bool{},
		Settings: map[string]AddonSettingsOverlay{},
	}
}

func LoadAddonConfig(path string) (*AddonConfig, error) {
	cfg := newAddonConfig()
	if _, err := readJSONFile(path, cfg); err != nil {
		return newAddonConfig(), err
	}
	if cfg.Enabled == nil {
		cfg.Enabled = map[string]bool{}
	}
	if cfg.Hidden == nil {
		cfg.Hidden = map[string]bool{}
	}
	if cfg.Settings == nil {
		cfg.Settings = map[string]AddonSettingsOverlay{}
	}
	return cfg, nil
}

func SaveAddonConfig(path string, cfg *AddonConfig) error {
	return writeJSONFile(path, cfg)
}
