package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gordian/pkg/pipeline"
	"github.com/matzehuels/gordian/pkg/render"
)

// partitionCommand creates the partition command, which renders the final
// partition tree of a placement.
func (c *CLI) partitionCommand() *cobra.Command {
	var (
		flags placeFlags
		svg   bool
	)

	cmd := &cobra.Command{
		Use:   "partition <design>",
		Short: "Render the partition tree of a placement",
		Long: `Place a Bookshelf design and render its final partition tree.

Each node is one partition with its level, movable cell count and split
direction; leaves are shaded. Use --detailed to add partition bounds.`,
		Example: `  gordian partition designs/ibm01
  gordian partition designs/ibm01 --svg --detailed -o out/ibm01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(args[0])
			if err != nil {
				return err
			}
			opts.Formats = []string{pipeline.FormatTree}

			runner, err := c.newRunner(cmd.Context(), flags.backend)
			if err != nil {
				return err
			}
			defer runner.Close(context.WithoutCancel(cmd.Context()))

			prog := newProgress(c.Logger)
			res, err := c.runWithSpinner(cmd.Context(), runner, opts)
			if err != nil {
				return err
			}
			prog.done("Partitioned " + opts.Design)

			base := flags.outputBase(opts)
			files, err := writeArtifacts(res, base)
			if err != nil {
				return err
			}
			if svg {
				path, err := writeTreeSVG(cmd.Context(), res.Artifacts[pipeline.FormatTree], base)
				if err != nil {
					return err
				}
				files = append(files, path)
			}

			printSuccess("Partition tree for %s", opts.Design)
			printStats(res.Stats.Cells, res.Stats.Nets, res.CacheInfo.PlaceHit)
			printKeyValue("partitions", fmt.Sprintf("%d", res.Placement.Partitions))
			for _, f := range files {
				printFile(f)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&svg, "svg", false, "also render the tree to SVG")

	return cmd
}

func writeTreeSVG(ctx context.Context, dot []byte, base string) (string, error) {
	data, err := render.RenderSVG(ctx, string(dot), render.EngineDot)
	if err != nil {
		return "", err
	}
	path := base + ".tree.svg"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
