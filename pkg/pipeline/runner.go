package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmaker/pkg/cache"
)

// Runner executes pipeline stages with caching. It holds no per-run state,
// so one Runner can serve concurrent runs on different flows.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides cache.LayoutTTL and cache.ArtifactTTL when positive.
	TTL time.Duration
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses [cache.DefaultKeyer] and a nil logger uses the default logger.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs load → layout → render for opts.Source.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	loadStart := time.Now()
	f, rejected, err := r.Load(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Flow = f
	result.Rejected = rejected
	if result.FlowHash, err = HashFlow(f); err != nil {
		return nil, err
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = f.NodeCount()
	result.Stats.LinkCount = f.LinkCount()

	r.Logger.Info("loaded flow",
		"nodes", f.NodeCount(),
		"links", f.LinkCount(),
		"rejected", len(rejected),
		"duration", result.Stats.LoadTime)

	layoutStart := time.Now()
	hit, err := r.LayoutWithCacheInfo(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = hit

	r.Logger.Info("computed layout",
		"mode", opts.Mode,
		"cached", hit,
		"duration", result.Stats.LayoutTime)

	renderStart := time.Now()
	out, hit, err := r.RenderWithCacheInfo(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Output = out
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered output",
		"format", opts.Format,
		"bytes", len(out),
		"duration", result.Stats.RenderTime)

	return result, nil
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
