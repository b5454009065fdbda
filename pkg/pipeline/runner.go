package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gordian/pkg/archive"
	"github.com/matzehuels/gordian/pkg/bookshelf"
	"github.com/matzehuels/gordian/pkg/cache"
	"github.com/matzehuels/gordian/pkg/geom"
	"github.com/matzehuels/gordian/pkg/netlist"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/partition"
	"github.com/matzehuels/gordian/pkg/place"
	"github.com/matzehuels/gordian/pkg/render"
)

// Cache key types reported to observability hooks.
const (
	keyTypePlacement = "placement"
	keyTypeArtifact  = "artifact"
)

// Runner executes the pipeline with caching and optional archiving.
// It keeps no per-run state, so one Runner may serve concurrent runs.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Archive archive.Store
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// selects [cache.DefaultKeyer] and a nil logger discards output. Archive
// starts as [archive.NullStore].
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Archive: archive.NullStore{},
		Logger:  logger,
	}
}

// Execute runs the load → place → export pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{NetlistHash: opts.NetlistHash()}

	// Stage 1: Load
	loadStart := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.Design)
	db, err := Load(opts)
	result.Stats.LoadTime = time.Since(loadStart)
	if err != nil {
		observability.Pipeline().OnLoadComplete(ctx, opts.Design, 0, 0, result.Stats.LoadTime, err)
		return nil, fmt.Errorf("load: %w", err)
	}
	result.DB = db
	result.Stats.Cells = len(db.Cells())
	result.Stats.Nets = len(db.Nets())
	observability.Pipeline().OnLoadComplete(ctx, opts.Design, result.Stats.Cells, result.Stats.Nets, result.Stats.LoadTime, nil)

	r.Logger.Info("loaded netlist",
		"design", opts.Design,
		"cells", result.Stats.Cells,
		"nets", result.Stats.Nets,
		"duration", result.Stats.LoadTime)

	// Stage 2: Place
	placeStart := time.Now()
	st, hit, err := r.placeWithCacheInfo(ctx, db, opts)
	if err != nil {
		return nil, fmt.Errorf("place: %w", err)
	}
	result.Stats.PlaceTime = time.Since(placeStart)
	result.CacheInfo.PlaceHit = hit
	result.CoreBounds = st.Core
	result.PadBounds = st.Pads
	result.Placement = &st.Result
	result.Tree = st.tree
	result.PlacementHash = cache.Hash([]byte(st.Pl))

	r.Logger.Info("placed netlist",
		"hpwl", st.Result.FinalHPWL,
		"partitions", st.Result.Partitions,
		"cached", hit,
		"duration", result.Stats.PlaceTime)

	if !hit {
		r.record(ctx, opts, result, st.Pl)
	}

	// Stage 3: Export
	exportStart := time.Now()
	p := placed{
		db:       db,
		core:     st.Core,
		result:   result.Placement,
		tree:     st.tree,
		treeDOT:  st.TreeDOT,
		detailed: opts.Detailed,
	}
	artifacts, exportHit, err := r.exportWithCacheInfo(ctx, p, result.PlacementHash, opts)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ExportTime = time.Since(exportStart)
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("exported outputs",
		"formats", opts.Formats,
		"duration", result.Stats.ExportTime)

	return result, nil
}

// placementEntry is the cached form of a finished placement.
type placementEntry struct {
	Core    geom.Rect    `json:"core"`
	Pads    geom.Rect    `json:"pads"`
	Result  place.Result `json:"result"`
	Pl      string       `json:"pl"`
	TreeDOT string       `json:"tree_dot,omitempty"`

	// tree is set only for a fresh run.
	tree *partition.Tree
}

// placeWithCacheInfo places db, or restores the cached positions of an
// identical earlier run, and reports whether the cache was hit.
func (r *Runner) placeWithCacheInfo(ctx context.Context, db *netlist.DB, opts Options) (*placementEntry, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.PlacementKey(opts.NetlistHash(), opts.PlacementKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var entry placementEntry
			if err := json.Unmarshal(data, &entry); err == nil {
				if err := bookshelf.ReadPlacement(db, strings.NewReader(entry.Pl)); err == nil {
					observability.Cache().OnCacheHit(ctx, keyTypePlacement)
					return &entry, true, nil
				}
			}
			r.Logger.Warn("discarding unreadable cached placement", "key", key)
		}
		observability.Cache().OnCacheMiss(ctx, keyTypePlacement)
	}

	pc, res, err := Place(ctx, db, opts)
	if err != nil {
		return nil, false, err
	}
	var pl bytes.Buffer
	if err := bookshelf.WritePlacement(db, &pl); err != nil {
		return nil, false, err
	}
	entry := &placementEntry{
		Core:    pc.CoreBounds,
		Pads:    pc.PadBounds,
		Result:  *res,
		Pl:      pl.String(),
		TreeDOT: render.TreeDOT(pc.Tree, render.Options{Detailed: opts.Detailed}),
		tree:    pc.Tree,
	}

	if data, err := json.Marshal(entry); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLPlacement); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypePlacement, len(data))
		} else {
			r.Logger.Debug("cache set failed", "key", key, "err", err)
		}
	}
	return entry, false, nil
}

// exportWithCacheInfo renders every requested format, reusing cached
// artifacts, and reports whether all of them came from the cache.
func (r *Runner) exportWithCacheInfo(ctx context.Context, p placed, placementHash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForExport(); err != nil {
		return nil, false, err
	}
	start := time.Now()
	observability.Pipeline().OnExportStart(ctx, opts.Formats)

	artifacts := make(map[string][]byte, len(opts.Formats))
	allCached := true
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(placementHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
			continue
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		allCached = false

		data, err := export(ctx, p, format)
		if err != nil {
			observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), err)
			return nil, false, fmt.Errorf("%s: %w", format, err)
		}
		artifacts[format] = data
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}
	observability.Pipeline().OnExportComplete(ctx, opts.Formats, time.Since(start), nil)
	return artifacts, allCached, nil
}

func (r *Runner) record(ctx context.Context, opts Options, res *Result, pl string) {
	if r.Archive == nil {
		return
	}
	run := &archive.Run{
		ID:          res.Placement.RunID,
		Design:      opts.Design,
		NetlistHash: res.NetlistHash,
		Cells:       res.Stats.Cells,
		Nets:        res.Stats.Nets,
		InitialHPWL: res.Placement.InitialHPWL,
		FinalHPWL:   res.Placement.FinalHPWL,
		Partitions:  res.Placement.Partitions,
		Converged:   res.Placement.Converged,
		Duration:    res.Placement.Duration,
		Placement:   pl,
	}
	for _, it := range res.Placement.Trace {
		run.Trace = append(run.Trace, archive.Iteration{Index: it.Index, Partitions: it.Partitions, HPWL: it.HPWL})
	}
	if err := r.Archive.Save(ctx, run); err != nil {
		r.Logger.Warn("archive run failed", "run", run.ID, "err", err)
		return
	}
	r.Logger.Debug("archived run", "run", run.ID)
}

// Close releases the cache and the archive.
func (r *Runner) Close(ctx context.Context) error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Archive != nil {
		if aerr := r.Archive.Close(ctx); err == nil {
			err = aerr
		}
	}
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
