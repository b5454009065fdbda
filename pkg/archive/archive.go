// Package archive records finished placement runs so they can be listed and
// fetched later, for example by the HTTP API.
//
// Backends:
//   - [NullStore]: discards everything
//   - [MemoryStore]: process-local, for tests and single-instance servers
//   - [FileStore]: one JSON file per run, for the CLI
//   - [MongoStore]: shared store for API deployments
package archive

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by [Store.Get] for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Iteration is one solve of a recorded run.
type Iteration struct {
	Index      int     `json:"index" bson:"index"`
	Partitions int     `json:"partitions" bson:"partitions"`
	HPWL       float64 `json:"hpwl" bson:"hpwl"`
}

// Run is the archived summary of a placement.
type Run struct {
	ID          string        `json:"id" bson:"_id"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	Design      string        `json:"design,omitempty" bson:"design,omitempty"`
	NetlistHash string        `json:"netlist_hash" bson:"netlist_hash"`
	Cells       int           `json:"cells" bson:"cells"`
	Nets        int           `json:"nets" bson:"nets"`
	InitialHPWL float64       `json:"initial_hpwl" bson:"initial_hpwl"`
	FinalHPWL   float64       `json:"final_hpwl" bson:"final_hpwl"`
	Partitions  int           `json:"partitions" bson:"partitions"`
	Converged   bool          `json:"converged" bson:"converged"`
	Duration    time.Duration `json:"duration_ns" bson:"duration_ns"`
	Trace       []Iteration   `json:"trace,omitempty" bson:"trace,omitempty"`

	// Placement is the .pl text of the result.
	Placement string `json:"placement,omitempty" bson:"placement,omitempty"`
}

// Store persists runs. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces r. An empty ID is filled with a new UUID and
	// a zero CreatedAt with the current time.
	Save(ctx context.Context, r *Run) error

	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Run, error)

	Close(ctx context.Context) error
}

func prepare(r *Run) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

// ValidID reports whether id looks like a run id. Stores reject anything
// else before touching the backend.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil && !strings.ContainsAny(id, `/\.`)
}

func newestFirst(runs []*Run, limit int) []*Run {
	slices.SortFunc(runs, func(a, b *Run) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// =============================================================================
// Null and memory stores
// =============================================================================

// NullStore discards runs.
type NullStore struct{}

func (NullStore) Save(_ context.Context, r *Run) error { prepare(r); return nil }
func (NullStore) Get(context.Context, string) (*Run, error) {
	return nil, ErrNotFound
}
func (NullStore) List(context.Context, int) ([]*Run, error) { return nil, nil }
func (NullStore) Close(context.Context) error               { return nil }

// MemoryStore keeps runs in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

func (s *MemoryStore) Save(_ context.Context, r *Run) error {
	prepare(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = *r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*Run, error) {
	s.mu.RLock()
	out := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, &r)
	}
	s.mu.RUnlock()
	return newestFirst(out, limit), nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

var (
	_ Store = NullStore{}
	_ Store = (*MemoryStore)(nil)
)
