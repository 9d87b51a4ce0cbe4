// Package pipeline runs the load → layout → render pipeline for flow
// documents.
//
// The CLI and the HTTP server both drive flows through a [Runner] so they
// share one caching policy:
//
//  1. Load: decode a TOML/YAML/JSON document and build a [flow.Flow]
//  2. Layout: auto layout, grid snap, or keep the document positions
//  3. Render: write the document back, or emit DOT/SVG
//
// Layouts and SVG artifacts are cached by content hash, so re-running an
// unchanged document is a cache read.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source: "flow.toml",
//	    Mode:   pipeline.ModeAuto,
//	    Format: pipeline.FormatSVG,
//	})
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowmaker/pkg/cache"
	"github.com/matzehuels/flowmaker/pkg/flow"
	flowio "github.com/matzehuels/flowmaker/pkg/io"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultCellWidth is the default grid cell width in pixels.
	DefaultCellWidth = 120.0

	// DefaultCellHeight is the default grid cell height in pixels.
	DefaultCellHeight = 80.0
)

// Layout modes.
const (
	ModeAuto = "auto"
	ModeSnap = "snap"
	ModeNone = "none"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidModes is the set of supported layout modes.
var ValidModes = map[string]bool{
	ModeAuto: true,
	ModeSnap: true,
	ModeNone: true,
}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatTOML: true,
	FormatYAML: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run. It supports JSON for API requests.
type Options struct {
	// Source is the document path.
	Source string `json:"source,omitempty"`

	// Layout options
	Mode       string  `json:"mode,omitempty"`
	CellWidth  float64 `json:"cell_width,omitempty"`
	CellHeight float64 `json:"cell_height,omitempty"`

	// Render options
	Format   string `json:"format,omitempty"`
	Detailed bool   `json:"detailed,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Result holds the outputs of a pipeline run.
type Result struct {
	Flow     *flow.Flow
	Rejected []flowio.Rejection

	// FlowHash identifies the loaded document, positions included.
	FlowHash string

	Output []byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	LinkCount  int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// =============================================================================
// Validation
// =============================================================================

// ValidateMode checks that a layout mode is valid.
func ValidateMode(mode string) error {
	if !ValidModes[mode] {
		return fmt.Errorf("invalid mode: %q (must be one of: auto, snap, none)", mode)
	}
	return nil
}

// ValidateFormat checks that an output format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: json, toml, yaml, dot, svg)", format)
	}
	return nil
}

// SetLayoutDefaults fills unset layout fields.
func (o *Options) SetLayoutDefaults() {
	if o.Mode == "" {
		o.Mode = ModeAuto
	}
	if o.CellWidth == 0 {
		o.CellWidth = DefaultCellWidth
	}
	if o.CellHeight == 0 {
		o.CellHeight = DefaultCellHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout applies layout defaults and validates them.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateMode(o.Mode); err != nil {
		return err
	}
	if o.CellWidth < 0 || o.CellHeight < 0 {
		return fmt.Errorf("cell size must be positive, got %gx%g", o.CellWidth, o.CellHeight)
	}
	return nil
}

// ValidateForRender applies render defaults and validates them.
func (o *Options) ValidateForRender() error {
	if o.Format == "" {
		o.Format = FormatJSON
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return ValidateFormat(o.Format)
}

// Validate checks every field for a full run.
func (o *Options) Validate() error {
	if o.Source == "" {
		return fmt.Errorf("source is required")
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

// LayoutKeyOpts returns the cache key options for the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Mode:       o.Mode,
		CellWidth:  o.CellWidth,
		CellHeight: o.CellHeight,
	}
}

// ArtifactKeyOpts returns the cache key options for the render stage.
func (o *Options) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	format := o.Format
	if o.Detailed {
		format += "+detailed"
	}
	return cache.ArtifactKeyOpts{Format: format}
}
