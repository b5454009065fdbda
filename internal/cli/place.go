package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gordian/pkg/config"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/pipeline"
)

// placeFlags holds the flags shared by commands that run the pipeline.
type placeFlags struct {
	backend     backendFlags
	configPath  string
	utilization float64
	bins        int
	bisector    string
	refresh     bool
	detailed    bool
	output      string
}

func (f *placeFlags) register(cmd *cobra.Command) {
	f.backend.register(cmd)
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "placement config file (TOML)")
	cmd.Flags().Float64VarP(&f.utilization, "utilization", "u", 0, "target core utilization in (0, 1]")
	cmd.Flags().IntVar(&f.bins, "bins", 0, "density bins per axis")
	cmd.Flags().StringVar(&f.bisector, "bisector", "", "partition bisector: fm or area")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore a cached placement and recompute")
	cmd.Flags().BoolVar(&f.detailed, "detailed", false, "label cells and partitions in DOT/SVG output")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output base path (default: <design>-placed)")
}

// options reads the design at path and applies the flags.
func (f *placeFlags) options(path string) (pipeline.Options, error) {
	opts, err := readDesign(path)
	if err != nil {
		return opts, err
	}
	if f.configPath != "" {
		cfg, err := config.Load(f.configPath)
		if err != nil {
			return opts, err
		}
		opts.Config = cfg
	}
	opts.Utilization = f.utilization
	opts.Bins = f.bins
	opts.Bisector = f.bisector
	opts.Refresh = f.refresh
	opts.Detailed = f.detailed
	return opts, nil
}

func (f *placeFlags) outputBase(opts pipeline.Options) string {
	if f.output != "" {
		return f.output
	}
	return opts.Design + "-placed"
}

// placeCommand creates the place command.
func (c *CLI) placeCommand() *cobra.Command {
	var (
		flags   placeFlags
		formats string
		tui     bool
	)

	cmd := &cobra.Command{
		Use:   "place <design>",
		Short: "Run global placement on a Bookshelf design",
		Long: `Run global placement on a Bookshelf design.

<design> is the base path of the .nodes and .nets files; a .pl file next to
them, if present, supplies the positions of fixed cells.

Output formats:
  pl     Bookshelf placement
  json   cell positions and convergence trace
  dot    placement as a Graphviz graph with pinned positions
  svg    rendered placement
  tree   final partition tree as DOT`,
		Example: `  gordian place designs/ibm01
  gordian place designs/ibm01 -f pl,svg -o out/ibm01 --utilization 0.6
  gordian place designs/ibm01 --config gordian.toml --tui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(args[0])
			if err != nil {
				return err
			}
			opts.Formats = parseFormats(formats)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}

			runner, err := c.newRunner(cmd.Context(), flags.backend)
			if err != nil {
				return err
			}
			defer runner.Close(context.WithoutCancel(cmd.Context()))

			var res *pipeline.Result
			if tui {
				restore := c.silence()
				res, err = runWithTUI(cmd.Context(), runner, opts, tea.WithOutput(os.Stderr))
				restore()
			} else {
				res, err = c.runWithSpinner(cmd.Context(), runner, opts)
			}
			if err != nil {
				return err
			}

			written, err := writeArtifacts(res, flags.outputBase(opts))
			if err != nil {
				return err
			}
			printPlaceSummary(opts.Design, res, written)
			printNextStep("Inspect the partition tree", "gordian partition "+args[0])
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&formats, "formats", "f", "", "comma-separated output formats: pl,json,dot,svg,tree (default: pl)")
	cmd.Flags().BoolVar(&tui, "tui", false, "show a live convergence view")

	return cmd
}

// runWithSpinner executes the pipeline with an iteration counter on stderr.
func (c *CLI) runWithSpinner(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	spinner := newSpinnerWithContext(ctx, "Placing "+opts.Design+"...")
	observability.SetPlacementHooks(spinnerHooks{spinner: spinner})
	defer observability.SetPlacementHooks(observability.NoopPlacementHooks{})

	spinner.Start()
	res, err := runner.Execute(ctx, opts)
	spinner.Stop()
	return res, err
}

// spinnerHooks shows the latest iteration next to the spinner.
type spinnerHooks struct {
	observability.NoopPlacementHooks
	spinner *Spinner
}

func (h spinnerHooks) OnIteration(_ context.Context, _ string, i, partitions int, hpwl float64) {
	h.spinner.SetMessage("iteration %d · %d partitions · hpwl %.4g", i, partitions, hpwl)
}

// silence mutes the logger while a full-screen view owns the terminal and
// returns a func that restores it.
func (c *CLI) silence() func() {
	c.Logger.SetOutput(io.Discard)
	return func() { c.Logger.SetOutput(c.out) }
}

// writeArtifacts writes every artifact of res under base and returns the
// paths in format order.
func writeArtifacts(res *pipeline.Result, base string) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	formats := make([]string, 0, len(res.Artifacts))
	for f := range res.Artifacts {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	var paths []string
	for _, f := range formats {
		path := outputPath(base, f)
		if err := os.WriteFile(path, res.Artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printPlaceSummary(design string, res *pipeline.Result, files []string) {
	p := res.Placement
	printSuccess("Placed %s", design)
	printStats(res.Stats.Cells, res.Stats.Nets, res.CacheInfo.PlaceHit)
	printKeyValue("hpwl", formatHPWL(p.InitialHPWL, p.FinalHPWL))
	printKeyValue("partitions", fmt.Sprintf("%d", p.Partitions))
	printKeyValue("iterations", fmt.Sprintf("%d", len(p.Trace)))
	if !p.Converged {
		printWarning("last solve did not converge; consider raising solver.max_iter")
	}
	printKeyValue("run", p.RunID)
	for _, f := range files {
		printFile(f)
	}
}
