// Package workspace loads the set of publishable packages from a Cargo
// workspace.
//
// Two loading paths are supported:
//
//   - [Load] shells out to `cargo metadata --no-deps` and decodes the JSON
//     it produces. This is the primary path and matches what cargo itself
//     considers a workspace member.
//   - [LoadManifests] scans the workspace Cargo.toml and parses each member
//     manifest directly. It needs no cargo binary and is used with
//     --no-cargo or for read-only commands like `crateship graph`.
//
// Both paths produce the same [Package] values: a name, a version, the
// declared dependency names in declaration order, and whether the package
// may be published at all.
package workspace

import "path/filepath"

// Package is one workspace member as seen by the release pipeline.
// Dependencies holds the declared dependency names in declaration order;
// the slice may reference packages outside the workspace, which the
// resolver ignores.
type Package struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	ManifestPath string   `json:"manifest_path,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	// Publishable is false when the manifest sets `publish = false` or
	// restricts publishing to a registry allow-list. Such packages are
	// excluded from the release plan before ordering begins.
	Publishable bool `json:"publishable"`
}

// Workspace is the loaded package set for one project root.
type Workspace struct {
	Root     string
	Packages []*Package
}

// Publishable returns the packages eligible for publishing, preserving the
// workspace member order.
func (w *Workspace) Publishable() []*Package {
	var out []*Package
	for _, p := range w.Packages {
		if p.Publishable {
			out = append(out, p)
		}
	}
	return out
}

// Package returns the member with the given name, or nil.
func (w *Workspace) Package(name string) *Package {
	for _, p := range w.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Dir returns the directory containing the package's manifest.
func (p *Package) Dir() string {
	if p.ManifestPath == "" {
		return ""
	}
	return filepath.Dir(p.ManifestPath)
}
