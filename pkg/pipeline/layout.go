package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matzehuels/flowmaker/pkg/cache"
	"github.com/matzehuels/flowmaker/pkg/flow"
	"github.com/matzehuels/flowmaker/pkg/observability"
)

// positions is the cached form of a layout: node id to (x, y).
type positions map[string][2]float64

func capture(f *flow.Flow) positions {
	p := make(positions, f.NodeCount())
	for _, n := range f.Nodes() {
		x, y := n.Position()
		p[n.ID()] = [2]float64{x, y}
	}
	return p
}

// apply moves the flow's nodes to cached positions. It fails without
// moving anything when the cache entry does not cover every node.
func (p positions) apply(f *flow.Flow) error {
	if len(p) != f.NodeCount() {
		return fmt.Errorf("cached layout has %d nodes, flow has %d", len(p), f.NodeCount())
	}
	nodes := f.Nodes()
	for _, n := range nodes {
		if _, ok := p[n.ID()]; !ok {
			return fmt.Errorf("cached layout misses node %q", n.ID())
		}
	}
	for _, n := range nodes {
		xy := p[n.ID()]
		if err := f.MoveNode(n.ID(), xy[0], xy[1]); err != nil {
			return err
		}
	}
	return nil
}

// GenerateLayout positions the flow's nodes according to opts.Mode.
func GenerateLayout(f *flow.Flow, opts Options) error {
	switch opts.Mode {
	case ModeAuto:
		return f.AutoLayout(opts.CellWidth, opts.CellHeight)
	case ModeSnap:
		return f.SnapToGrid(opts.CellWidth, opts.CellHeight)
	case ModeNone:
		return nil
	}
	return ValidateMode(opts.Mode)
}

// LayoutWithCacheInfo lays out f, reading and writing the cache, and
// reports whether the positions came from the cache.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, f *flow.Flow, opts Options) (bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return false, err
	}
	if opts.Mode == ModeNone {
		return false, nil
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Mode, f.NodeCount())
	start := time.Now()

	hash, err := HashFlow(f)
	if err != nil {
		hooks.OnLayoutComplete(ctx, opts.Mode, time.Since(start), err)
		return false, err
	}
	key := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached positions
			if err := json.Unmarshal(data, &cached); err == nil && cached.apply(f) == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				hooks.OnLayoutComplete(ctx, opts.Mode, time.Since(start), nil)
				return true, nil
			}
		} else if err != nil {
			r.Logger.Warn("layout cache read failed", "err", err)
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	if err := GenerateLayout(f, opts); err != nil {
		hooks.OnLayoutComplete(ctx, opts.Mode, time.Since(start), err)
		return false, err
	}

	if data, err := json.Marshal(capture(f)); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.LayoutTTL)); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	hooks.OnLayoutComplete(ctx, opts.Mode, time.Since(start), nil)
	return false, nil
}

// Layout is LayoutWithCacheInfo without the cache flag.
func (r *Runner) Layout(ctx context.Context, f *flow.Flow, opts Options) error {
	_, err := r.LayoutWithCacheInfo(ctx, f, opts)
	return err
}
