package addons

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultBranch is assumed when the URL carries no /tree/ segment.
const DefaultBranch = "main"

// RepoRef is a parsed archive-host repository reference.
type RepoRef struct {
	Host    string
	Owner   string
	Repo    string
	Branch  string
	Subpath string
}

// ParseRepoURL parses https://host/owner/repo[/tree/branch[/subpath]].
func ParseRepoURL(raw string) (RepoRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return RepoRef{}, fmt.Errorf("invalid repository url: %w", err)
	}
	if u.Host == "" {
		return RepoRef{}, fmt.Errorf("invalid repository url: missing host")
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, fmt.Errorf("invalid repository url: expected /owner/repo")
	}

	ref := RepoRef{
		Host:   u.Host,
		Owner:  parts[0],
		Repo:   strings.TrimSuffix(parts[1], ".git"),
		Branch: DefaultBranch,
	}

	if len(parts) > 2 {
		if parts[2] != "tree" || len(parts) < 4 {
			return RepoRef{}, fmt.Errorf("invalid repository url: expected /tree/<branch>")
		}
		ref.Branch = parts[3]
		if len(parts) > 4 {
			ref.Subpath = path.Join(parts[4:]...)
		}
	}

	return ref, nil
}

// ArchiveURL is the zip download location for the referenced branch.
func (r RepoRef) ArchiveURL() string {
	return fmt.Sprintf("https://%s/%s/%s/archive/refs/heads/%s.zip", r.Host, r.Owner, r.Repo, r.Branch)
}

// ImportRemote downloads a repository archive, locates the addon
// within it, and installs it like a local import. Any failure leaves
// the addons root untouched.
func (r *Registry) ImportRemote(rawURL string) (Descriptor, error) {
	ref, err := ParseRepoURL(rawURL)
	if err != nil {
		return Descriptor{}, err
	}
	return r.importRef(ref, ref.ArchiveURL())
}

func (r *Registry) importRef(ref RepoRef, archiveURL string) (Descriptor, error) {
	tmp, err := os.MkdirTemp("", "voxbar-remote-")
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	zipPath := filepath.Join(tmp, "archive.zip")
	if err := r.download(archiveURL, zipPath); err != nil {
		return Descriptor{}, err
	}

	extracted := filepath.Join(tmp, "extracted")
	if err := extractZip(zipPath, extracted); err != nil {
		return Descriptor{}, fmt.Errorf("failed to extract archive: %w", err)
	}

	// archives unpack to a single <repo>-<branch> directory
	root, err := archiveRoot(extracted)
	if err != nil {
		return Descriptor{}, err
	}

	src := root
	if ref.Subpath != "" {
		src = filepath.Join(root, filepath.FromSlash(ref.Subpath))
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			return Descriptor{}, fmt.Errorf("path %q not found in archive", ref.Subpath)
		}
	}

	fallback := ref.Repo
	if ref.Subpath != "" {
		fallback = path.Base(ref.Subpath)
	}

	return r.install(src, fallback)
}

func (r *Registry) download(rawURL, dest string) error {
	r.log.D("downloading %s", rawURL)

	resp, err := r.client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("archive download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive download failed: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("archive download failed: %w", err)
	}
	return nil
}

func archiveRoot(dir string) (string, error) {
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
	if len(dirs) != 1 {
		return "", fmt.Errorf("unexpected archive layout: %d top-level directories", len(dirs))
	}
	return dirs[0], nil
}
