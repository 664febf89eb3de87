// Package observability provides hooks for instrumenting a release run.
//
// The package uses a simple hooks pattern: interfaces for each event
// category, no-op defaults, and a global registry populated by main at
// startup. Library packages emit events without depending on any metrics
// or tracing framework; consumers that want telemetry register their own
// implementations.
//
//	func main() {
//	    observability.SetReleaseHooks(&myReleaseHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// ReleaseHooks receives events from the release pipeline.
type ReleaseHooks interface {
	// OnResolveComplete fires after the release order is computed (or
	// resolution fails).
	OnResolveComplete(ctx context.Context, packages []string, err error)

	// Verification events around the pre-publish check.
	OnCheckStart(ctx context.Context)
	OnCheckComplete(ctx context.Context, duration time.Duration, err error)

	// Publish events, once per package in release order.
	OnPublishStart(ctx context.Context, pkg string)
	OnPublishComplete(ctx context.Context, pkg string, duration time.Duration, err error)
}

// CommandHooks receives events for every subprocess invocation.
type CommandHooks interface {
	OnCommandStart(ctx context.Context, bin string, args []string)
	OnCommandComplete(ctx context.Context, bin string, args []string, err error)
}

// HTTPHooks receives events from registry HTTP clients.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, url string)
	OnResponse(ctx context.Context, method, url string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, url string, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, key string)
	OnCacheMiss(ctx context.Context, key string)
	OnCacheSet(ctx context.Context, key string, size int)
}

// NoopReleaseHooks is a no-op implementation of ReleaseHooks.
type NoopReleaseHooks struct{}

func (NoopReleaseHooks) OnResolveComplete(context.Context, []string, error)              {}
func (NoopReleaseHooks) OnCheckStart(context.Context)                                    {}
func (NoopReleaseHooks) OnCheckComplete(context.Context, time.Duration, error)           {}
func (NoopReleaseHooks) OnPublishStart(context.Context, string)                          {}
func (NoopReleaseHooks) OnPublishComplete(context.Context, string, time.Duration, error) {}

// NoopCommandHooks is a no-op implementation of CommandHooks.
type NoopCommandHooks struct{}

func (NoopCommandHooks) OnCommandStart(context.Context, string, []string)           {}
func (NoopCommandHooks) OnCommandComplete(context.Context, string, []string, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	releaseHooks ReleaseHooks = NoopReleaseHooks{}
	commandHooks CommandHooks = NoopCommandHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetReleaseHooks registers custom release hooks.
// Call once at startup before any pipeline work.
func SetReleaseHooks(h ReleaseHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		releaseHooks = h
	}
}

// SetCommandHooks registers custom subprocess hooks.
func SetCommandHooks(h CommandHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		commandHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Release returns the registered release hooks.
func Release() ReleaseHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return releaseHooks
}

// Commands returns the registered subprocess hooks.
func Commands() CommandHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return commandHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	releaseHooks = NoopReleaseHooks{}
	commandHooks = NoopCommandHooks{}
	httpHooks = NoopHTTPHooks{}
	cacheHooks = NoopCacheHooks{}
}
