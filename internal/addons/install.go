package addons

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"voxbar/internal/config"
)

// Import flow: extract or copy the source into a temp directory
// outside the addons root, validate it there, then stage a copy as a
// hidden sibling inside the root and swap it into place with a
// rename. A failed validation never mutates the addons root.

// ImportLocal installs an addon from a zip file or a directory.
func (r *Registry) ImportLocal(path string) (Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read import source: %w", err)
	}

	tmp, err := os.MkdirTemp("", "voxbar-import-")
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	var src string
	if info.IsDir() {
		src = filepath.Join(tmp, "addon")
		if err := copyDir(path, src); err != nil {
			return Descriptor{}, fmt.Errorf("failed to copy addon source: %w", err)
		}
	} else {
		if err := extractZip(path, tmp); err != nil {
			return Descriptor{}, fmt.Errorf("failed to extract archive: %w", err)
		}
		src, err = locateEntrypointRoot(tmp)
		if err != nil {
			return Descriptor{}, err
		}
	}

	return r.install(src, fallbackName(path))
}

// install validates src, derives the target name, and swaps src into
// the addons root. src must live outside the root.
func (r *Registry) install(src, fallback string) (Descriptor, error) {
	if !HasEntrypoint(src) {
		return Descriptor{}, ErrNoEntrypoint
	}

	m, err := ReadMetadata(src)
	if err != nil {
		r.log.W("import metadata degraded: %v", err)
	}

	// declared name wins; else the source's base name
	name := m.Name
	if name == "" {
		name = fallback
	}
	if name == "" {
		return Descriptor{}, fmt.Errorf("could not derive addon name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return Descriptor{}, fmt.Errorf("failed to create addons root: %w", err)
	}

	// stage inside the root so the final rename is a single
	// same-filesystem operation
	stage := filepath.Join(r.root, ".stage-"+uuid.New().String())
	if err := copyDir(src, stage); err != nil {
		os.RemoveAll(stage)
		return Descriptor{}, fmt.Errorf("failed to stage addon: %w", err)
	}

	target := filepath.Join(r.root, name)
	var displaced string
	if _, err := os.Stat(target); err == nil {
		displaced = filepath.Join(r.root, ".old-"+uuid.New().String())
		if err := os.Rename(target, displaced); err != nil {
			os.RemoveAll(stage)
			return Descriptor{}, fmt.Errorf("failed to displace existing addon: %w", err)
		}
	}

	if err := os.Rename(stage, target); err != nil {
		if displaced != "" {
			os.Rename(displaced, target)
		}
		os.RemoveAll(stage)
		return Descriptor{}, fmt.Errorf("failed to install addon: %w", err)
	}
	if displaced != "" {
		os.RemoveAll(displaced)
	}

	cfg := r.loadConfig()
	r.unhide(cfg, name)
	if err := config.SaveAddonConfig(r.configPath, cfg); err != nil {
		r.log.W("failed to update addon config after import: %v", err)
	}

	r.log.I("installed addon %q", name)

	for _, d := range r.list(cfg) {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{Name: name, DisplayName: name, Enabled: true, Path: target}, nil
}

// ExportZip packages the addon named name into a zip at dest. The
// source directory is read-only to this operation.
func (r *Registry) ExportZip(name, dest string) error {
	dir := filepath.Join(r.root, name)
	if !HasEntrypoint(dir) {
		return fmt.Errorf("addon %q not found", name)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		zipPath := filepath.ToSlash(filepath.Join(name, rel))
		if info.IsDir() {
			_, err := zw.Create(zipPath + "/")
			return err
		}

		w, err := zw.Create(zipPath)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to export addon %q: %w", name, err)
	}

	return nil
}

// locateEntrypointRoot finds the addon directory within an extracted
// archive: the extraction root itself, or its single subdirectory.
func locateEntrypointRoot(dir string) (string, error) {
	if HasEntrypoint(dir) {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted archive: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dir, e.Name()))
		}
	}
	if len(dirs) == 1 {
		if HasEntrypoint(dirs[0]) {
			return dirs[0], nil
		}
	}
	return "", ErrNoEntrypoint
}

func fallbackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction root: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func copyDir(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, in)
		return err
	})
}
