package addons

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"voxbar/internal/channel"
	"voxbar/internal/config"
	"voxbar/internal/logger"
)

// Descriptor is one discoverable addon.
type Descriptor struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
	ModeCommand string `json:"modeCommand,omitempty"`
	Version     string `json:"version,omitempty"`
	Enabled     bool   `json:"enabled"`
	Hidden      bool   `json:"hidden"`
	DocsPath    string `json:"docsPath,omitempty"`
	Path        string `json:"path"`
}

// Notifier signals the service process over the command channel.
type Notifier interface {
	Send(cmd string) error
}

// Registry discovers and manages addon directories under a single
// root. Identity is the directory name. Addons are never hard-deleted
// here: removal hides and disables, preserving files on disk.
type Registry struct {
	mu         sync.Mutex
	root       string
	configPath string
	notifier   Notifier
	client     *http.Client
	log        logger.Logger
}

func NewRegistry(root, configPath string, notifier Notifier, log logger.Logger) *Registry {
	return &Registry{
		root:       root,
		configPath: configPath,
		notifier:   notifier,
		client:     http.DefaultClient,
		log:        log,
	}
}

// SetHTTPClient overrides the archive-download client.
func (r *Registry) SetHTTPClient(c *http.Client) {
	r.client = c
}

// Root returns the addons root directory.
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) loadConfig() *config.AddonConfig {
	cfg, err := config.LoadAddonConfig(r.configPath)
	if err != nil {
		r.log.W("addon config unreadable, using defaults: %v", err)
	}
	return cfg
}

// List enumerates every addon directory with an entrypoint. Hidden
// addons are excluded from the result entirely, not merely flagged.
// One bad addon never aborts the pass.
func (r *Registry) List() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(r.loadConfig())
}

func (r *Registry) list(cfg *config.AddonConfig) []Descriptor {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.W("failed to read addons root: %v", err)
		}
		return nil
	}

	var out []Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name[0] == '.' || cfg.Hidden[name] {
			continue
		}

		dir := filepath.Join(r.root, name)
		if !HasEntrypoint(dir) {
			continue
		}

		m, err := ReadMetadata(dir)
		if err != nil {
			r.log.W("addon %s: %v", name, err)
		}

		d := Descriptor{
			Name:        name,
			DisplayName: m.DisplayName,
			Description: m.Description,
			ModeCommand: m.ModeCommand,
			Version:     m.Version,
			Enabled:     true,
			Path:        dir,
		}
		if d.DisplayName == "" {
			d.DisplayName = name
		}
		if enabled, ok := cfg.Enabled[name]; ok {
			d.Enabled = enabled
		}
		if m.Docs != "" {
			d.DocsPath = filepath.Join(dir, m.Docs)
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the addon named name, if discoverable.
func (r *Registry) Get(name string) (Descriptor, bool) {
	for _, d := range r.List() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// SetEnabled flips the enable overlay for name. Enable defaults to
// true when no overlay entry exists.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.loadConfig()
	cfg.Enabled[name] = enabled
	return config.SaveAddonConfig(r.configPath, cfg)
}

// Remove hides and disables name. The addon's files stay on disk and
// a later import under the same name resurrects it.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.loadConfig()
	cfg.Hidden[name] = true
	cfg.Enabled[name] = false
	return config.SaveAddonConfig(r.configPath, cfg)
}

// unhide clears the hidden flag after a successful (re-)import.
func (r *Registry) unhide(cfg *config.AddonConfig, name string) {
	delete(cfg.Hidden, name)
	cfg.Enabled[name] = true
}

// SettingsFor resolves name's settings: declared defaults overlaid by
// the persisted per-addon settings.
func (r *Registry) SettingsFor(name string) (config.AddonSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Join(r.root, name)
	if !HasEntrypoint(dir) {
		return config.AddonSettings{}, fmt.Errorf("addon %q not found", name)
	}

	m, err := ReadMetadata(dir)
	if err != nil {
		r.log.D("addon %s metadata degraded: %v", name, err)
	}

	cfg := r.loadConfig()
	return cfg.Settings[name].MergeOver(m.Settings()), nil
}

// SaveSettings persists name's settings overlay and signals the
// service to reload addons without a restart.
func (r *Registry) SaveSettings(name string, overlay config.AddonSettingsOverlay) error {
	r.mu.Lock()
	cfg := r.loadConfig()
	cfg.Settings[name] = overlay
	err := config.SaveAddonConfig(r.configPath, cfg)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if r.notifier != nil {
		if err := r.notifier.Send(channel.CmdReloadAddons); err != nil {
			r.log.W("failed to signal addon reload: %v", err)
		}
	}
	return nil
}
