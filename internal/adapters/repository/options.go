package repository

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithMetrics toggles publishing ledger gauges on every credit.
func WithMetrics(enabled bool) Option {
	return func(l *Ledger) {
		l.metrics = enabled
	}
}
