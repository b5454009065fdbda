package qps

import (
	"io"

	"github.com/charmbracelet/log"
)

// Default solver tolerances and limits.
const (
	DefaultTol          = 1.0e-3
	DefaultLoopTol      = 1.0e-3
	DefaultMaxTol       = 0.1
	DefaultRelaxIter    = 180
	DefaultMaxIter      = 200
	DefaultMinStep      = 1.0e-6
	DefaultDecChange    = 0.01
	DefaultStepRetries  = 2
	DefaultPreconEps    = 1.0e-9
	DefaultBoundPenalty = 1.0
)

// Options tunes [Solve]. The zero value selects every default; use
// [DefaultOptions] to start from explicit defaults and override fields.
type Options struct {
	// Tol is the relative objective change that ends a CG run. The inner
	// loop actually tests against Tol*Tol.
	Tol float64 `toml:"tol"`

	// LoopTol and MaxTol are the complementary-slackness tolerances for loop
	// constraints (relative to the loop maximum) and for the bounding box
	// (in layout units).
	LoopTol float64 `toml:"loop_tol"`
	MaxTol  float64 `toml:"max_tol"`

	// RelaxIter is the outer iteration after which the multiplier step is
	// halved every iteration; MaxIter caps the outer loop.
	RelaxIter int `toml:"relax_iter"`
	MaxIter   int `toml:"max_iter"`

	// MinStep is the smallest multiplier step before the outer loop gives up.
	MinStep float64 `toml:"min_step"`

	// DecChange is the minimum fractional violation decrease that counts as
	// progress between outer iterations.
	DecChange float64 `toml:"dec_change"`

	// StepRetries is the number of step halvings tried when a CG step fails
	// to decrease the objective.
	StepRetries int `toml:"step_retries"`

	Precondition bool    `toml:"precondition"`
	PreconEps    float64 `toml:"precon_eps"`

	// BoundPenalty is the augmented-Lagrangian weight for the bounding box.
	BoundPenalty float64 `toml:"bound_penalty"`

	Logger *log.Logger `toml:"-"`
}

// DefaultOptions returns the solver defaults with preconditioning enabled.
func DefaultOptions() Options {
	o := Options{Precondition: true}
	o.setDefaults()
	return o
}

var discard = log.New(io.Discard)

func (o *Options) setDefaults() {
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	if o.LoopTol <= 0 {
		o.LoopTol = DefaultLoopTol
	}
	if o.MaxTol <= 0 {
		o.MaxTol = DefaultMaxTol
	}
	if o.RelaxIter <= 0 {
		o.RelaxIter = DefaultRelaxIter
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.MinStep <= 0 {
		o.MinStep = DefaultMinStep
	}
	if o.DecChange <= 0 {
		o.DecChange = DefaultDecChange
	}
	if o.StepRetries <= 0 {
		o.StepRetries = DefaultStepRetries
	}
	if o.PreconEps <= 0 {
		o.PreconEps = DefaultPreconEps
	}
	if o.BoundPenalty <= 0 {
		o.BoundPenalty = DefaultBoundPenalty
	}
	if o.Logger == nil {
		o.Logger = discard
	}
}
