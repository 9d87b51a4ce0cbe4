// Package observability provides hooks for metrics, tracing, and logging.
//
// Hook interfaces cover the layout pipeline, the cache and the HTTP
// server. Each has a no-op default; main registers real implementations
// at startup so library packages never import a metrics backend.
//
//	func main() {
//	    observability.SetPipelineHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// Libraries call the registered hooks:
//
//	observability.Pipeline().OnLayoutStart(ctx, "auto", f.NodeCount())
//	err := f.AutoLayout(w, h)
//	observability.Pipeline().OnLayoutComplete(ctx, "auto", time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the load, layout and render stages.
type PipelineHooks interface {
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, nodes, links, rejected int, duration time.Duration, err error)

	OnLayoutStart(ctx context.Context, mode string, nodeCount int)
	OnLayoutComplete(ctx context.Context, mode string, duration time.Duration, err error)

	OnRenderStart(ctx context.Context, format string)
	OnRenderComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives cache lookups by key type ("layout" or "artifact").
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives one pair of calls per HTTP request. route is the
// matched pattern, such as "/nodes/{id}", not the raw path.
type ServerHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

type noop struct{}

func (noop) OnLoadStart(context.Context, string)                                         {}
func (noop) OnLoadComplete(context.Context, string, int, int, int, time.Duration, error) {}
func (noop) OnLayoutStart(context.Context, string, int)                                  {}
func (noop) OnLayoutComplete(context.Context, string, time.Duration, error)              {}
func (noop) OnRenderStart(context.Context, string)                                       {}
func (noop) OnRenderComplete(context.Context, string, int, time.Duration, error)         {}
func (noop) OnCacheHit(context.Context, string)                                          {}
func (noop) OnCacheMiss(context.Context, string)                                         {}
func (noop) OnCacheSet(context.Context, string, int)                                     {}
func (noop) OnRequest(context.Context, string, string)                                   {}
func (noop) OnResponse(context.Context, string, string, int, time.Duration)              {}

// Noop implements every hook interface and does nothing.
var Noop = noop{}

// slot holds the registered implementation of one hook interface.
type slot[T any] struct {
	v atomic.Pointer[T]
}

func (s *slot[T]) get() T {
	if p := s.v.Load(); p != nil {
		return *p
	}
	var def any = Noop
	return def.(T)
}

func (s *slot[T]) set(h T) { s.v.Store(&h) }

func (s *slot[T]) reset() { s.v.Store(nil) }

var (
	pipelineSlot slot[PipelineHooks]
	cacheSlot    slot[CacheHooks]
	serverSlot   slot[ServerHooks]
)

// SetPipelineHooks registers pipeline hooks. Nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		pipelineSlot.set(h)
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		cacheSlot.set(h)
	}
}

// SetServerHooks registers server hooks. Nil is ignored.
func SetServerHooks(h ServerHooks) {
	if h != nil {
		serverSlot.set(h)
	}
}

func Pipeline() PipelineHooks { return pipelineSlot.get() }
func Cache() CacheHooks       { return cacheSlot.get() }
func Server() ServerHooks     { return serverSlot.get() }

// Reset restores the no-op defaults.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	serverSlot.reset()
}
