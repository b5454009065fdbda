package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gordian/pkg/api"
)

// serveCommand creates the serve command, which exposes the pipeline over
// HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		backend backendFlags
		addr    string
		timeout time.Duration
		maxBody int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the placement API over HTTP",
		Long: `Serve the placement API over HTTP.

Routes:
  GET  /healthz
  POST /v1/place
  GET  /v1/runs
  GET  /v1/runs/{id}

Runs are archived only when --archive or --mongo is given; without one the
run endpoints return nothing.`,
		Example: `  gordian serve --addr :8080 --archive ./runs
  gordian serve --redis redis://localhost:6379/0 --mongo mongodb://localhost:27017`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(cmd.Context(), backend)
			if err != nil {
				return err
			}
			defer runner.Close(context.WithoutCancel(cmd.Context()))

			srv := api.New(runner, c.Logger)
			srv.Timeout = timeout
			srv.MaxBodyBytes = maxBody
			printInfo("Listening on %s", StyleValue.Render(addr))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	backend.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", api.DefaultTimeout, "per-request timeout")
	cmd.Flags().Int64Var(&maxBody, "max-body", api.DefaultMaxBodyBytes, "maximum request body in bytes")

	return cmd
}
