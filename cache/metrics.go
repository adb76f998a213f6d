package cache

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	// Expired reports items removed by a partition sweep.
	Expired(n int)
	// IndexPruned reports stale index members dropped during Find.
	IndexPruned(n int)
	// Corrupt reports a stored value that failed to decode.
	Corrupt()
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()            {}
func (NoopMetrics) Miss()           {}
func (NoopMetrics) Expired(int)     {}
func (NoopMetrics) IndexPruned(int) {}
func (NoopMetrics) Corrupt()        {}

var _ Metrics = NoopMetrics{}
