// Package pipeline runs the complete load → place → export flow that the CLI
// and the HTTP API share.
//
// # Stages
//
//  1. Load: parse Bookshelf .nodes/.nets (and optionally .pl) text
//  2. Place: preplace pads, run global placement, legalize density
//  3. Export: write the requested formats (pl, json, dot, svg, tree)
//
// Placements are cached by netlist hash and configuration; artifacts are
// cached by the hash of the placed .pl text. Freshly computed placements are
// recorded in the run archive when one is configured.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Nodes:   nodesText,
//	    Nets:    netsText,
//	    Formats: []string{pipeline.FormatPL, pipeline.FormatSVG},
//	})
//	pl := res.Artifacts[pipeline.FormatPL]
package pipeline

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gordian/pkg/cache"
	"github.com/matzehuels/gordian/pkg/config"
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/place"
)

// Format constants for output formats.
const (
	FormatPL   = "pl"
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatTree = "tree"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPL:   true,
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatTree: true,
}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run. It doubles as the API request body.
type Options struct {
	// Design names the run in logs and the archive.
	Design string `json:"design,omitempty"`

	// Bookshelf inputs. Pl is optional and supplies fixed-cell positions.
	Nodes string `json:"nodes"`
	Nets  string `json:"nets"`
	Pl    string `json:"pl,omitempty"`

	// Overrides applied on top of Config.
	Utilization float64 `json:"utilization,omitempty"`
	Bins        int     `json:"bins,omitempty"`
	Bisector    string  `json:"bisector,omitempty"`

	// Refresh skips the placement cache lookup.
	Refresh bool `json:"refresh,omitempty"`

	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Config is the base placement configuration, usually from a TOML file.
	// The zero value selects place.DefaultConfig.
	Config place.Config `json:"-"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	DB         *netlist.DB
	CoreBounds geom.Rect
	PadBounds  geom.Rect

	// Placement summarizes the run that produced the positions. On a cache
	// hit it is the summary stored with the cached placement.
	Placement *place.Result

	// Tree is the partition tree, nil on a placement cache hit.
	Tree *partition.Tree

	NetlistHash   string
	PlacementHash string

	// Artifacts holds the exported outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Cells      int
	Nets       int
	LoadTime   time.Duration
	PlaceTime  time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	PlaceHit  bool
	ExportHit bool // every requested artifact came from the cache
}

// =============================================================================
// Validation
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format %q (must be one of: pl, json, dot, svg, tree)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields, folds the overrides into
// Config and validates it. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if strings.TrimSpace(o.Nodes) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "nodes input is required")
	}
	if strings.TrimSpace(o.Nets) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "nets input is required")
	}
	if err := o.ValidateForExport(); err != nil {
		return err
	}

	if o.Config == (place.Config{}) {
		o.Config = place.DefaultConfig()
	}
	o.Config.SetDefaults()
	if o.Utilization != 0 {
		o.Config.Utilization = o.Utilization
	}
	if o.Bins != 0 {
		o.Config.Density.Bins = o.Bins
	}
	if o.Bisector != "" {
		o.Config.Bisector = o.Bisector
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

// ValidateForExport defaults and validates the output formats.
func (o *Options) ValidateForExport() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPL}
	}
	o.Formats = slices.Compact(slices.Sorted(slices.Values(o.Formats)))
	return ValidateFormats(o.Formats)
}

// ConfigHash returns the hash of the effective configuration as TOML.
func (o *Options) ConfigHash() string {
	var buf bytes.Buffer
	if err := config.Write(&buf, o.Config); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}

// NetlistHash returns the content hash of the Bookshelf inputs.
func (o *Options) NetlistHash() string {
	return cache.HashParts([]byte(o.Nodes), []byte(o.Nets), []byte(o.Pl))
}

// PlacementKeyOpts returns cache key options for the place stage.
func (o *Options) PlacementKeyOpts() cache.PlacementKeyOpts {
	return cache.PlacementKeyOpts{
		Utilization: o.Config.Utilization,
		ConfigHash:  o.ConfigHash(),
	}
}

// ArtifactKeyOpts returns cache key options for one exported format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Detailed: o.Detailed}
}
