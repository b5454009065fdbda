package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gordian/pkg/archive"
	"github.com/matzehuels/gordian/pkg/buildinfo"
	"github.com/matzehuels/gordian/pkg/cache"
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "gordian"

	// redisPrefix namespaces every key the CLI writes to a shared Redis.
	redisPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	out io.Writer // log destination, restored after the TUI
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: w}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Gordian places standard-cell netlists",
		Long: `Gordian is a global placer for Bookshelf netlists. It alternates quadratic
wirelength minimization with recursive min-cut partitioning, then spreads
cells to even out density.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.placeCommand())
	root.AddCommand(c.partitionCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// backendFlags selects the cache and archive behind a runner.
type backendFlags struct {
	noCache    bool
	redisURL   string
	archiveDir string
	mongoURI   string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the placement cache")
	cmd.Flags().StringVar(&f.redisURL, "redis", "", "cache in Redis at this URL instead of on disk")
	cmd.Flags().StringVar(&f.archiveDir, "archive", "", "archive runs as JSON files in this directory")
	cmd.Flags().StringVar(&f.mongoURI, "mongo", "", "archive runs in MongoDB at this URI")
}

// newRunner creates a pipeline runner for CLI use. The caller closes it.
func (c *CLI) newRunner(ctx context.Context, f backendFlags) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, f)
	if err != nil {
		return nil, err
	}
	store, err := newArchive(ctx, f)
	if err != nil {
		cc.Close()
		return nil, err
	}
	r := pipeline.NewRunner(cc, nil, c.Logger)
	r.Archive = store
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, f backendFlags) (cache.Cache, error) {
	if f.noCache {
		return cache.NewNullCache(), nil
	}
	if f.redisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: f.redisURL, Prefix: redisPrefix})
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using redis cache", "url", f.redisURL)
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory; caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func newArchive(ctx context.Context, f backendFlags) (archive.Store, error) {
	switch {
	case f.mongoURI != "" && f.archiveDir != "":
		return nil, errors.New(errors.ErrCodeInvalidInput, "--archive and --mongo are mutually exclusive")
	case f.mongoURI != "":
		return archive.NewMongoStore(ctx, archive.MongoConfig{URI: f.mongoURI})
	case f.archiveDir != "":
		return archive.NewFileStore(f.archiveDir)
	default:
		return archive.NullStore{}, nil
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/gordian/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Input Helpers
// =============================================================================

// readDesign loads base.nodes, base.nets and, if present, base.pl into
// pipeline options. The design name is the base name of the path.
func readDesign(base string) (pipeline.Options, error) {
	base = strings.TrimSuffix(base, filepath.Ext(base))
	opts := pipeline.Options{Design: filepath.Base(base)}

	read := func(ext string, optional bool) (string, error) {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			if os.IsNotExist(err) {
				if optional {
					return "", nil
				}
				return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "%s%s", base, ext)
			}
			return "", err
		}
		return string(data), nil
	}

	var err error
	if opts.Nodes, err = read(".nodes", false); err != nil {
		return opts, err
	}
	if opts.Nets, err = read(".nets", false); err != nil {
		return opts, err
	}
	if opts.Pl, err = read(".pl", true); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatPL}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPath returns the file an artifact of format is written to.
func outputPath(base, format string) string {
	switch format {
	case pipeline.FormatTree:
		return base + ".tree.dot"
	default:
		return base + "." + format
	}
}
