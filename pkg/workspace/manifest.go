package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// manifestFile is the subset of a Cargo.toml that matters for planning a
// release. Dependency tables are decoded as maps because only the names
// matter; declaration order is recovered from toml.MetaData.
type manifestFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Publish any    `toml:"publish"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
		Exclude []string `toml:"exclude"`
	} `toml:"workspace"`
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// LoadManifests builds a workspace by reading Cargo.toml files directly,
// without invoking cargo. The workspace manifest's `members` globs are
// expanded relative to root; `exclude` entries are honored. If the root
// manifest also declares a package, it becomes a member too.
//
// Member iteration order is the glob expansion order (lexicographic per
// pattern), which keeps the resulting release plan deterministic.
func LoadManifests(root string) (*Workspace, error) {
	rootManifest := filepath.Join(root, "Cargo.toml")
	mf, meta, err := readManifest(rootManifest)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Root: root}

	if mf.Package.Name != "" {
		ws.Packages = append(ws.Packages, memberPackage(rootManifest, mf, meta))
	}

	if mf.Workspace == nil {
		if mf.Package.Name == "" {
			return nil, fmt.Errorf("manifest %s: neither [package] nor [workspace]", rootManifest)
		}
		return ws, nil
	}

	excluded := make(map[string]bool)
	for _, pattern := range mf.Workspace.Exclude {
		matches, _ := filepath.Glob(filepath.Join(root, pattern))
		for _, m := range matches {
			excluded[m] = true
		}
	}

	for _, pattern := range mf.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("workspace members %q: %w", pattern, err)
		}
		for _, dir := range matches {
			if excluded[dir] {
				continue
			}
			path := filepath.Join(dir, "Cargo.toml")
			if _, err := os.Stat(path); err != nil {
				continue
			}
			m, md, err := readManifest(path)
			if err != nil {
				return nil, err
			}
			if m.Package.Name == "" {
				continue
			}
			ws.Packages = append(ws.Packages, memberPackage(path, m, md))
		}
	}

	if len(ws.Packages) == 0 {
		return nil, fmt.Errorf("workspace %s has no members", root)
	}
	return ws, nil
}

func readManifest(path string) (*manifestFile, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read manifest: %w", err)
	}
	var mf manifestFile
	meta, err := toml.Decode(string(data), &mf)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &mf, meta, nil
}

func memberPackage(path string, mf *manifestFile, meta toml.MetaData) *Package {
	return &Package{
		Name:         mf.Package.Name,
		Version:      mf.Package.Version,
		ManifestPath: path,
		Dependencies: declaredDeps(meta),
		Publishable:  publishable(mf.Package.Publish),
	}
}

// dependencyTables lists the Cargo.toml tables whose keys count as
// declared dependencies, in the order cargo documents them.
var dependencyTables = []string{"dependencies", "dev-dependencies", "build-dependencies"}

// declaredDeps extracts dependency names in the order they appear in the
// manifest file. Decoding into a map would randomize the order, so the
// names are pulled from the decoder's key metadata instead.
func declaredDeps(meta toml.MetaData) []string {
	var deps []string
	for _, key := range meta.Keys() {
		if len(key) != 2 || !slices.Contains(dependencyTables, key[0]) {
			continue
		}
		if !slices.Contains(deps, key[1]) {
			deps = append(deps, key[1])
		}
	}
	return deps
}

// publishable interprets the `package.publish` manifest value: absent or
// true means publish anywhere; false or a registry allow-list excludes the
// package from this tool's release plan.
func publishable(v any) bool {
	switch pub := v.(type) {
	case nil:
		return true
	case bool:
		return pub
	default:
		return false
	}
}
