// Package crates provides an HTTP client for the crates.io API.
//
// The release pipeline uses it to answer one question cheaply: is this
// exact crate version already published? [Client.VersionExists] backs the
// --skip-published flag. [Client.FetchCrate] additionally exposes crate
// metadata for diagnostics.
//
// Responses are cached through the shared registry client; pass
// refresh=true to bypass the cache. crates.io requires a User-Agent
// header, which this client sets automatically.
package crates

import (
	"context"
	"errors"
	"fmt"

	"github.com/crateship/crateship/pkg/httputil"
	"github.com/crateship/crateship/pkg/registry"
)

// CrateInfo holds metadata for a crate from crates.io. Version is the
// registry's max_version; Dependencies lists normal (non-dev,
// non-optional) dependency names.
type CrateInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies,omitempty"`
	Description  string   `json:"description,omitempty"`
	Repository   string   `json:"repository,omitempty"`
	License      string   `json:"license,omitempty"`
}

// Client accesses the crates.io registry API.
// All methods are safe for concurrent use.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a crates.io client backed by the given response cache.
func NewClient(cache *httputil.Cache) *Client {
	headers := map[string]string{
		"User-Agent": "crateship (https://github.com/crateship/crateship)",
	}
	return &Client{
		Client:  registry.NewClient(cache.Namespace("crates:"), headers),
		baseURL: "https://crates.io/api/v1",
	}
}

// FetchCrate retrieves metadata for a crate. Returns
// [registry.ErrNotFound] if the crate has never been published and
// [registry.ErrNetwork] for HTTP failures.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, crate, refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// VersionExists reports whether the exact crate version is already
// published on crates.io. A missing crate or missing version both report
// false without error; other failures are returned as-is.
func (c *Client) VersionExists(ctx context.Context, crate, version string, refresh bool) (bool, error) {
	key := crate + "@" + version
	var exists bool
	err := c.Cached(ctx, key, refresh, &exists, func() error {
		err := c.Head(ctx, fmt.Sprintf("%s/crates/%s/%s", c.baseURL, crate, version))
		if errors.Is(err, registry.ErrNotFound) {
			exists = false
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (c *Client) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, crate), &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}

	deps, _ := c.fetchDeps(ctx, crate, data.Crate.MaxVersion)

	*info = CrateInfo{
		Name:         data.Crate.Name,
		Version:      data.Crate.MaxVersion,
		Dependencies: deps,
		Description:  data.Crate.Description,
		Repository:   data.Crate.Repository,
		License:      data.Crate.License,
	}
	return nil
}

func (c *Client) fetchDeps(ctx context.Context, crate, version string) ([]string, error) {
	url := fmt.Sprintf("%s/crates/%s/%s/dependencies", c.baseURL, crate, version)

	var data depsResponse
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}

	var deps []string
	for _, d := range data.Dependencies {
		if d.Kind == "normal" && !d.Optional {
			deps = append(deps, d.CrateID)
		}
	}
	return deps, nil
}

type crateResponse struct {
	Crate struct {
		Name        string `json:"name"`
		MaxVersion  string `json:"max_version"`
		Description string `json:"description"`
		Repository  string `json:"repository"`
		License     string `json:"license"`
	} `json:"crate"`
}

type depsResponse struct {
	Dependencies []struct {
		CrateID  string `json:"crate_id"`
		Kind     string `json:"kind"`
		Optional bool   `json:"optional"`
	} `json:"dependencies"`
}
