package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"
)

// Load runs `cargo metadata --no-deps` at root and decodes the result.
// The returned workspace contains every member, publishable or not.
// A missing cargo binary, a bad root, or malformed JSON are all fatal;
// no partial workspace is ever returned.
func Load(ctx context.Context, root string) (*Workspace, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--no-deps", "--format-version", "1")
	cmd.Dir = root

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("cargo metadata: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}
	return parseMetadata(out)
}

// metadataDoc mirrors the subset of `cargo metadata --format-version 1`
// output that the release pipeline needs.
type metadataDoc struct {
	Packages []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Version      string `json:"version"`
		ManifestPath string `json:"manifest_path"`
		// Publish is null when the package may be published anywhere,
		// an empty list for `publish = false`, and a registry list
		// otherwise.
		Publish      *[]string `json:"publish"`
		Dependencies []struct {
			Name string `json:"name"`
		} `json:"dependencies"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	WorkspaceRoot    string   `json:"workspace_root"`
}

func parseMetadata(data []byte) (*Workspace, error) {
	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cargo metadata: decode: %w", err)
	}

	ws := &Workspace{Root: doc.WorkspaceRoot}
	for _, p := range doc.Packages {
		// With --no-deps the package list is already restricted to
		// workspace members, but older cargo versions are not strict
		// about it.
		if len(doc.WorkspaceMembers) > 0 && !slices.Contains(doc.WorkspaceMembers, p.ID) {
			continue
		}
		deps := make([]string, 0, len(p.Dependencies))
		for _, d := range p.Dependencies {
			deps = append(deps, d.Name)
		}
		ws.Packages = append(ws.Packages, &Package{
			Name:         p.Name,
			Version:      p.Version,
			ManifestPath: p.ManifestPath,
			Dependencies: deps,
			Publishable:  p.Publish == nil,
		})
	}
	return ws, nil
}
