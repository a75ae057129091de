package cache

// ScopedKeyer wraps a Keyer with a prefix so that several payloads or
// deployments can share one backend without colliding.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "team-data:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(payloadHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(payloadHash, opts)
}

// PayloadKey generates a prefixed payload key.
func (k *ScopedKeyer) PayloadKey(name string) string {
	return k.prefix + k.inner.PayloadKey(name)
}
