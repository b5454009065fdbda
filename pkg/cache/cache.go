// Package cache stores placement results and rendered artifacts by content
// key.
//
// Backends:
//   - [NullCache]: never stores anything (caching disabled)
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for API deployments
//
// Keys come from a [Keyer], which hashes the inputs that determine a result:
// the netlist content and every placement option for placements, the
// placement and output format for artifacts.
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	TTLPlacement = 7 * 24 * time.Hour
	TTLArtifact  = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored bytes and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// PlacementKeyOpts lists the inputs besides the netlist that change a
// placement result.
type PlacementKeyOpts struct {
	Utilization float64 `json:"utilization"`
	ConfigHash  string  `json:"config_hash"`
}

// ArtifactKeyOpts lists the inputs besides the placement that change a
// rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	PlacementKey(netlistHash string, opts PlacementKeyOpts) string
	ArtifactKey(placementHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes every key component into a prefixed SHA-256 key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PlacementKey returns "placement:<hash>".
func (DefaultKeyer) PlacementKey(netlistHash string, opts PlacementKeyOpts) string {
	return hashKey("placement", netlistHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(placementHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", placementHash, opts)
}
