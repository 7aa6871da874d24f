package cache

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey returns the key for a downloaded response body.
	HTTPKey(namespace, key string) string

	// PosterKey returns the key for an encoded poster.
	PosterKey(opts PosterKeyOpts) string
}

// PosterKeyOpts identifies a rendered poster. Everything that changes the
// pixels must be part of the key.
type PosterKeyOpts struct {
	PoolHash string   `json:"pool"`
	Keywords []string `json:"keywords"`
	Seed     uint64   `json:"seed"`
	Format   string   `json:"format"`
	Settings string   `json:"settings"` // hash of the transform and text settings
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// PosterKey returns "poster:<hash of opts>".
func (DefaultKeyer) PosterKey(opts PosterKeyOpts) string {
	return hashKey("poster", opts)
}
