package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/gordian/pkg/archive"
	"github.com/matzehuels/gordian/pkg/cache"
	"github.com/matzehuels/gordian/pkg/errors"
	"github.com/matzehuels/gordian/pkg/observability"
	"github.com/matzehuels/gordian/pkg/place"
)

// Four pads around four unit cells connected in a ring.
const (
	ringNodes = `UCLA nodes 1.0
NumNodes : 8
NumTerminals : 4
pn 1 1 terminal
ps 1 1 terminal
pe 1 1 terminal
pw 1 1 terminal
n 1 1
s 1 1
e 1 1
w 1 1
`
	ringNets = `UCLA nets 1.0
NumNets : 8
NumPins : 16
NetDegree : 2
pn B
n B
NetDegree : 2
ps B
s B
NetDegree : 2
pe B
e B
NetDegree : 2
pw B
w B
NetDegree : 2
n B
e B
NetDegree : 2
e B
s B
NetDegree : 2
s B
w B
NetDegree : 2
w B
n B
`
)

func ringOptions(formats ...string) Options {
	return Options{
		Design:      "ring",
		Nodes:       ringNodes,
		Nets:        ringNets,
		Utilization: 1,
		Bisector:    place.BisectorArea,
		Formats:     formats,
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"pl", false},
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"tree", false},
		{"png", true},
		{"PL", true}, // case-sensitive
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := ringOptions("svg", "pl", "svg")
	opts.Bins = 7
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(opts.Formats, ","); got != "pl,svg" {
		t.Errorf("formats = %s, want pl,svg", got)
	}
	if opts.Config.Utilization != 1 || opts.Config.Density.Bins != 7 || opts.Config.Bisector != place.BisectorArea {
		t.Errorf("overrides not applied: %+v", opts.Config)
	}
	if opts.Config.Partition.LargestFinalSize == 0 {
		t.Error("config defaults missing")
	}
	if opts.Logger == nil {
		t.Error("logger not defaulted")
	}

	defaults := Options{Nodes: ringNodes, Nets: ringNets}
	if err := defaults.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(defaults.Formats) != 1 || defaults.Formats[0] != FormatPL {
		t.Errorf("default formats = %v", defaults.Formats)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no nodes", Options{Nets: ringNets}, errors.ErrCodeInvalidInput},
		{"no nets", Options{Nodes: ringNodes}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Nodes: ringNodes, Nets: ringNets, Formats: []string{"gif"}}, errors.ErrCodeInvalidInput},
		{"bad bisector", Options{Nodes: ringNodes, Nets: ringNets, Bisector: "kl"}, errors.ErrCodeInvalidConfig},
		{"bad utilization", Options{Nodes: ringNodes, Nets: ringNets, Utilization: 2}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestConfigHashTracksConfig(t *testing.T) {
	a, b := ringOptions(), ringOptions()
	b.Bins = 3
	for _, o := range []*Options{&a, &b} {
		if err := o.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
	}
	if a.ConfigHash() == "" || a.ConfigHash() == b.ConfigHash() {
		t.Error("config hash ignores density bins")
	}
	if a.NetlistHash() != b.NetlistHash() {
		t.Error("netlist hash depends on config")
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), ringOptions(FormatPL, FormatJSON, FormatDOT, FormatTree))
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Cells != 8 || res.Stats.Nets != 8 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Placement == nil || res.Placement.Partitions != 2 || res.Tree == nil {
		t.Fatalf("placement = %+v", res.Placement)
	}
	if res.CacheInfo.PlaceHit || res.CacheInfo.ExportHit {
		t.Error("null cache reported a hit")
	}
	if !bytes.HasPrefix(res.Artifacts[FormatPL], []byte("UCLA pl 1.0")) {
		t.Errorf("pl = %q", res.Artifacts[FormatPL])
	}
	if !bytes.Contains(res.Artifacts[FormatJSON], []byte(`"run_id": "`+res.Placement.RunID+`"`)) {
		t.Error("json lacks run id")
	}
	if !bytes.HasPrefix(res.Artifacts[FormatDOT], []byte("graph P {")) {
		t.Error("dot output is not a placement graph")
	}
	if !bytes.Contains(res.Artifacts[FormatTree], []byte("p0 -> p1")) {
		t.Error("tree output lacks edges")
	}
	core := res.CoreBounds
	for _, c := range res.DB.Cells() {
		if c.Movable() && (c.X < core.X || c.X > core.Right() || c.Y < core.Y || c.Y > core.Top()) {
			t.Errorf("%s at (%v, %v) outside core %+v", c.Label, c.X, c.Y, core)
		}
	}
}

func TestExecuteLoadError(t *testing.T) {
	opts := ringOptions()
	opts.Nodes = "UCLA nodes 1.0\nx notanumber 1\n"
	_, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestExecuteCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := archive.NewMemoryStore()
	r := NewRunner(fc, nil, nil)
	r.Archive = store

	first, err := r.Execute(ctx, ringOptions(FormatPL))
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, ringOptions(FormatPL))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.PlaceHit || !second.CacheInfo.ExportHit {
		t.Errorf("second run cache info = %+v", second.CacheInfo)
	}
	if second.Tree != nil {
		t.Error("cached placement has a live tree")
	}
	if !bytes.Equal(first.Artifacts[FormatPL], second.Artifacts[FormatPL]) {
		t.Error("cached pl differs")
	}
	if second.Placement.RunID != first.Placement.RunID {
		t.Error("cached summary lost the run id")
	}
	if second.PlacementHash != first.PlacementHash {
		t.Error("placement hash changed")
	}

	runs, _ := store.List(ctx, 0)
	if len(runs) != 1 || runs[0].ID != first.Placement.RunID {
		t.Fatalf("archive holds %d runs, want the first only", len(runs))
	}
	if runs[0].Placement != string(first.Artifacts[FormatPL]) || runs[0].Design != "ring" {
		t.Error("archived run incomplete")
	}

	// A new format on a cached placement still renders the tree.
	third, err := r.Execute(ctx, ringOptions(FormatTree))
	if err != nil {
		t.Fatal(err)
	}
	if !third.CacheInfo.PlaceHit || third.CacheInfo.ExportHit {
		t.Errorf("third run cache info = %+v", third.CacheInfo)
	}
	if !bytes.HasPrefix(third.Artifacts[FormatTree], []byte("digraph G {")) {
		t.Errorf("tree = %q", third.Artifacts[FormatTree])
	}

	refresh := ringOptions(FormatPL)
	refresh.Refresh = true
	fourth, err := r.Execute(ctx, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheInfo.PlaceHit {
		t.Error("refresh used the placement cache")
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	mu               sync.Mutex
	hits, miss, sets map[string]int
}

func newCountingHooks() *countingHooks {
	return &countingHooks{hits: map[string]int{}, miss: map[string]int{}, sets: map[string]int{}}
}

func (h *countingHooks) OnCacheHit(_ context.Context, k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits[k]++
}

func (h *countingHooks) OnCacheMiss(_ context.Context, k string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.miss[k]++
}

func (h *countingHooks) OnCacheSet(_ context.Context, k string, _ int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets[k]++
}

func TestCacheHooks(t *testing.T) {
	hooks := newCountingHooks()
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	for range 2 {
		if _, err := r.Execute(context.Background(), ringOptions(FormatPL, FormatJSON)); err != nil {
			t.Fatal(err)
		}
	}
	if hooks.miss[keyTypePlacement] != 1 || hooks.hits[keyTypePlacement] != 1 || hooks.sets[keyTypePlacement] != 1 {
		t.Errorf("placement hooks: miss=%d hit=%d set=%d", hooks.miss[keyTypePlacement], hooks.hits[keyTypePlacement], hooks.sets[keyTypePlacement])
	}
	if hooks.miss[keyTypeArtifact] != 2 || hooks.hits[keyTypeArtifact] != 2 || hooks.sets[keyTypeArtifact] != 2 {
		t.Errorf("artifact hooks: miss=%d hit=%d set=%d", hooks.miss[keyTypeArtifact], hooks.hits[keyTypeArtifact], hooks.sets[keyTypeArtifact])
	}
}
