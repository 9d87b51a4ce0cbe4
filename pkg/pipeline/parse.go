package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/flowmaker/pkg/cache"
	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/flow"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
	"github.com/matzehuels/flowmaker/pkg/observability"
)

// Load reads and builds the document at path. Links the validator rejects
// are returned, not treated as failures.
func (r *Runner) Load(ctx context.Context, path string) (*flow.Flow, []flowio.Rejection, error) {
	if err := errs.ValidatePath(path); err != nil {
		return nil, nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, path)
	start := time.Now()

	doc, err := flowio.ImportFile(path)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, 0, 0, time.Since(start), err)
		return nil, nil, err
	}
	f, rejected, err := r.Build(doc)
	if err != nil {
		hooks.OnLoadComplete(ctx, path, 0, 0, 0, time.Since(start), err)
		return nil, nil, err
	}

	hooks.OnLoadComplete(ctx, path, f.NodeCount(), f.LinkCount(), len(rejected), time.Since(start), nil)
	return f, rejected, nil
}

// Build turns a decoded document into a flow logging through the runner.
func (r *Runner) Build(doc *flowio.Document) (*flow.Flow, []flowio.Rejection, error) {
	f, rejected, err := flowio.Build(doc, flow.WithLogger(r.Logger))
	if err != nil {
		return nil, nil, err
	}
	for _, rj := range rejected {
		r.Logger.Warn("link rejected", "link", rj.Link.Key(), "reason", rj.Err)
	}
	return f, rejected, nil
}

// HashFlow returns the content hash of a flow's current document form. It
// fails when node or link metadata cannot be encoded as JSON.
func HashFlow(f *flow.Flow) (string, error) {
	var buf bytes.Buffer
	if err := flowio.WriteJSON(flowio.FromFlow(f), &buf); err != nil {
		return "", fmt.Errorf("hash flow: %w", err)
	}
	return cache.Hash(buf.Bytes()), nil
}
