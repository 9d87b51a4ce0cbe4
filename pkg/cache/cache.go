// Package cache stores computed layouts and rendered artifacts so repeated
// runs over an unchanged flow document skip the work.
//
// Three backends share the [Cache] interface: [FileCache] for the CLI,
// [RedisCache] for the HTTP server and [NullCache] when caching is off.
// Keys come from a [Keyer] so callers never build key strings by hand.
package cache

import (
	"context"
	"time"
)

// Default lifetimes.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)

// Cache is a byte-oriented key-value store with expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// or unreadable entries count as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// LayoutKeyOpts are the inputs besides the flow that change a layout.
type LayoutKeyOpts struct {
	Mode       string  `json:"mode"`
	CellWidth  float64 `json:"cell_width"`
	CellHeight float64 `json:"cell_height"`
}

// ArtifactKeyOpts are the inputs besides the layout that change a render.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// Keyer builds cache keys.
type Keyer interface {
	LayoutKey(flowHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "layout:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey hashes the flow hash together with the layout options.
func (DefaultKeyer) LayoutKey(flowHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", flowHash, opts)
}

// ArtifactKey hashes the layout hash together with the render options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
