package crates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crateship/crateship/pkg/httputil"
	"github.com/crateship/crateship/pkg/registry"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cache, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	c := NewClient(cache)
	c.baseURL = serverURL
	return c
}

func TestClient_FetchCrate(t *testing.T) {
	crateResp := crateResponse{}
	crateResp.Crate.Name = "serde"
	crateResp.Crate.MaxVersion = "1.0.0"
	crateResp.Crate.Description = "A serialization framework"
	crateResp.Crate.License = "MIT"

	depsResp := depsResponse{
		Dependencies: []struct {
			CrateID  string `json:"crate_id"`
			Kind     string `json:"kind"`
			Optional bool   `json:"optional"`
		}{
			{CrateID: "serde_derive", Kind: "normal", Optional: false},
			{CrateID: "test_dep", Kind: "dev", Optional: false},
			{CrateID: "optional_dep", Kind: "normal", Optional: true},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/serde":
			json.NewEncoder(w).Encode(crateResp)
		case "/crates/serde/1.0.0/dependencies":
			json.NewEncoder(w).Encode(depsResp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	info, err := c.FetchCrate(context.Background(), "serde", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}
	if info.Name != "serde" || info.Version != "1.0.0" {
		t.Errorf("got %s %s, want serde 1.0.0", info.Name, info.Version)
	}
	if len(info.Dependencies) != 1 || info.Dependencies[0] != "serde_derive" {
		t.Errorf("dependencies = %v, want [serde_derive]", info.Dependencies)
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestClient_VersionExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/serde/1.0.0":
			w.Write([]byte(`{"version":{"num":"1.0.0"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	ctx := context.Background()

	exists, err := c.VersionExists(ctx, "serde", "1.0.0", true)
	if err != nil {
		t.Fatalf("VersionExists failed: %v", err)
	}
	if !exists {
		t.Error("published version reported missing")
	}

	exists, err = c.VersionExists(ctx, "serde", "9.9.9", true)
	if err != nil {
		t.Fatalf("VersionExists failed: %v", err)
	}
	if exists {
		t.Error("unpublished version reported as existing")
	}
}

func TestClient_VersionExists_Cached(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	ctx := context.Background()

	for range 3 {
		if _, err := c.VersionExists(ctx, "serde", "1.0.0", false); err != nil {
			t.Fatalf("VersionExists failed: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("expected 1 upstream request, got %d", hits)
	}
}
