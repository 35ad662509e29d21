package addons

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxbar/internal/config"
)

const (
	// EntrypointFile must exist for a directory to count as an addon.
	EntrypointFile = "index.js"

	// ManifestFile is the declarative metadata source. Addons without
	// one fall back to legacy extraction from the entrypoint text.
	ManifestFile = "addon.json"
)

// ErrNoEntrypoint is the user-visible validation failure for imports.
var ErrNoEntrypoint = errors.New("no entrypoint found in addon")

//go:embed addon.schema.json
var manifestSchemaData []byte

var manifestSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("addon.json", strings.NewReader(string(manifestSchemaData))); err != nil {
		panic(fmt.Sprintf("failed to add embedded manifest schema: %v", err))
	}
	schema, err := compiler.Compile("addon.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile embedded manifest schema: %v", err))
	}
	return schema
}()

// Manifest is an addon's declared metadata and settings defaults.
type Manifest struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName,omitempty"`
	Description string           `json:"description,omitempty"`
	ModeCommand string           `json:"modeCommand,omitempty"`
	Version     string           `json:"version,omitempty"`
	Docs        string           `json:"docs,omitempty"`
	Defaults    ManifestDefaults `json:"defaults,omitempty"`
}

type ManifestDefaults struct {
	CommandsOnly   bool              `json:"commandsOnly,omitempty"`
	PushToTalk     bool              `json:"pushToTalk,omitempty"`
	TTSEnabled     bool              `json:"ttsEnabled,omitempty"`
	CustomCommands map[string]string `json:"customCommands,omitempty"`
}

// Settings converts declared defaults to the resolved settings shape.
func (m *Manifest) Settings() config.AddonSettings {
	return config.AddonSettings{
		CommandsOnly:   m.Defaults.CommandsOnly,
		PushToTalk:     m.Defaults.PushToTalk,
		TTSEnabled:     m.Defaults.TTSEnabled,
		CustomCommands: m.Defaults.CustomCommands,
	}
}

// HasEntrypoint reports whether dir contains the addon entrypoint.
func HasEntrypoint(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, EntrypointFile))
	return err == nil && !info.IsDir()
}

// loadManifest reads and schema-validates dir's addon.json.
func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := manifestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// legacy metadata extraction: pattern-match the entrypoint source for
// declared fields. A missing field falls back to its default; no
// single bad addon aborts a discovery pass.

var legacyFieldPatterns = map[string]*regexp.Regexp{
	"name":        regexp.MustCompile(`(?m)name\s*:\s*['"]([^'"]+)['"]`),
	"displayName": regexp.MustCompile(`(?m)displayName\s*:\s*['"]([^'"]+)['"]`),
	"description": regexp.MustCompile(`(?m)description\s*:\s*['"]([^'"]+)['"]`),
	"modeCommand": regexp.MustCompile(`(?m)modeCommand\s*:\s*['"]([^'"]+)['"]`),
	"version":     regexp.MustCompile(`(?m)version\s*:\s*['"]([^'"]+)['"]`),
}

func extractLegacy(dir string) Manifest {
	var m Manifest

	src, err := os.ReadFile(filepath.Join(dir, EntrypointFile))
	if err != nil {
		return m
	}

	fields := map[string]*string{
		"name":        &m.Name,
		"displayName": &m.DisplayName,
		"description": &m.Description,
		"modeCommand": &m.ModeCommand,
		"version":     &m.Version,
	}
	for field, re := range legacyFieldPatterns {
		if match := re.FindSubmatch(src); match != nil {
			*fields[field] = string(match[1])
		}
	}
	return m
}

// ReadMetadata returns dir's declared metadata: the schema-validated
// manifest when present, else legacy extraction from the entrypoint.
// The error is a non-fatal note when a manifest existed but was
// rejected; the legacy fields still come back so one bad manifest
// never aborts a discovery pass.
func ReadMetadata(dir string) (Manifest, error) {
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		m, err := loadManifest(dir)
		if err == nil {
			return *m, nil
		}
		return extractLegacy(dir), err
	}
	return extractLegacy(dir), nil
}
