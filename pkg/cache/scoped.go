package cache

// ScopedKeyer prefixes every key of an inner keyer, giving each tenant of a
// shared cache its own namespace:
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "team:asic:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// PlacementKey returns the prefixed placement key.
func (k *ScopedKeyer) PlacementKey(netlistHash string, opts PlacementKeyOpts) string {
	return k.prefix + k.inner.PlacementKey(netlistHash, opts)
}

// ArtifactKey returns the prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(placementHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(placementHash, opts)
}
