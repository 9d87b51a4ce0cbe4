package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/matzehuels/flowmaker/pkg/cache"
	"github.com/matzehuels/flowmaker/pkg/flow"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
	"github.com/matzehuels/flowmaker/pkg/observability"
	"github.com/matzehuels/flowmaker/pkg/render/nodelink"
)

// Render produces the flow in the requested format. Document formats
// carry the current positions; dot and svg pin nodes to them.
func Render(ctx context.Context, f *flow.Flow, opts Options) ([]byte, error) {
	nodelinkOpts := nodelink.Options{Pinned: true, Detailed: opts.Detailed}
	switch opts.Format {
	case FormatDOT:
		return []byte(nodelink.ToDOT(f, nodelinkOpts)), nil
	case FormatSVG:
		return nodelink.Render(ctx, f, nodelinkOpts)
	case FormatJSON, FormatTOML, FormatYAML:
		var buf bytes.Buffer
		if err := flowio.Write(flowio.FromFlow(f), &buf, flowio.Format(opts.Format)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, ValidateFormat(opts.Format)
}

// RenderWithCacheInfo renders f, caching SVG output by the flow's content
// hash. Other formats are cheap and always rendered.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, f *flow.Flow, opts Options) ([]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Format)
	start := time.Now()

	var key string
	if opts.Format == FormatSVG {
		hash, err := HashFlow(f)
		if err != nil {
			hooks.OnRenderComplete(ctx, opts.Format, 0, time.Since(start), err)
			return nil, false, err
		}
		key = r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts())
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				hooks.OnRenderComplete(ctx, opts.Format, len(data), time.Since(start), nil)
				return data, true, nil
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}
	}

	out, err := Render(ctx, f, opts)
	if err != nil {
		hooks.OnRenderComplete(ctx, opts.Format, 0, time.Since(start), err)
		return nil, false, err
	}
	if key != "" {
		if err := r.Cache.Set(ctx, key, out, r.ttl(cache.ArtifactTTL)); err != nil {
			r.Logger.Warn("artifact cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "artifact", len(out))
		}
	}
	hooks.OnRenderComplete(ctx, opts.Format, len(out), time.Since(start), nil)
	return out, false, nil
}
