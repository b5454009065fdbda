package place

import (
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/qps"
)

// Default driver parameters.
const (
	DefaultUtilization   = 0.7
	DefaultCliquePenalty = 1.0
	DefaultIgnoreNetSize = 20
	DefaultDensityBins   = 25
	DefaultMovementRows  = 5.0
	DefaultBisector      = "fm"
)

// Bisector names accepted by [Config.Bisector].
const (
	BisectorArea = "area"
	BisectorFM   = "fm"
)

// Config holds every tunable of a placement run. It is the document decoded
// by the config package, so field tags double as TOML keys.
type Config struct {
	// Utilization is the target fraction of the core filled by cell area.
	Utilization float64 `toml:"utilization"`

	// CliquePenalty scales the clique-model edge weight:
	// w / (1 + CliquePenalty/(n-1)) for an n-terminal net.
	CliquePenalty float64 `toml:"clique_penalty"`

	// IgnoreNetSize drops nets with more terminals from the quadratic problem.
	IgnoreNetSize int `toml:"ignore_net_size"`

	// LegacyCOGCount drops the last center-of-gravity constraint so results
	// match placements made before that constraint was counted.
	LegacyCOGCount bool `toml:"legacy_cog_count"`

	// ReallocatePartitions re-partitions the whole tree from the solved
	// positions before each refinement.
	ReallocatePartitions bool `toml:"reallocate_partitions"`

	// Bisector selects the min-cut strategy: "area" or "fm".
	Bisector string `toml:"bisector"`

	Partition partition.Config `toml:"partition"`
	Solver    qps.Options      `toml:"solver"`
	Density   DensityConfig    `toml:"density"`
}

// DensityConfig controls the legalizer run at the end of global placement.
type DensityConfig struct {
	Bins int `toml:"bins"`

	// MovementRows bounds per-cell movement in row heights.
	MovementRows float64 `toml:"movement_rows"`

	// SpreadY adds a vertical pass after the horizontal one.
	SpreadY bool `toml:"spread_y"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	c := Config{Solver: qps.DefaultOptions()}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Utilization == 0 {
		c.Utilization = DefaultUtilization
	}
	if c.CliquePenalty == 0 {
		c.CliquePenalty = DefaultCliquePenalty
	}
	if c.IgnoreNetSize == 0 {
		c.IgnoreNetSize = DefaultIgnoreNetSize
	}
	if c.Bisector == "" {
		c.Bisector = DefaultBisector
	}
	if c.Density.Bins == 0 {
		c.Density.Bins = DefaultDensityBins
	}
	if c.Density.MovementRows == 0 {
		c.Density.MovementRows = DefaultMovementRows
	}
	c.Partition.SetDefaults()
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := errors.ValidateUtilization(c.Utilization); err != nil {
		return err
	}
	if c.CliquePenalty < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "clique_penalty must be >= 0, got %v", c.CliquePenalty)
	}
	if c.IgnoreNetSize < 2 {
		return errors.New(errors.ErrCodeInvalidConfig, "ignore_net_size must be >= 2, got %d", c.IgnoreNetSize)
	}
	if c.Density.Bins < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "density bins must be >= 1, got %d", c.Density.Bins)
	}
	if c.Density.MovementRows < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "density movement_rows must be >= 0, got %v", c.Density.MovementRows)
	}
	if _, err := NewBisector(c.Bisector); err != nil {
		return err
	}
	return nil
}

// NewBisector returns the bisector registered under name.
func NewBisector(name string) (partition.Bisector, error) {
	switch name {
	case BisectorArea:
		return partition.AreaBisector{}, nil
	case BisectorFM, "":
		return partition.FMBisector{}, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown bisector %q (want %q or %q)", name, BisectorArea, BisectorFM)
	}
}
