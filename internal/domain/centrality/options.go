package centrality

// Option configures an Engine.
type Option func(*Engine)

// WithMaxIterations fixes the eigenvector power iteration cap. Zero keeps
// the automatic cap, which scales with the node count.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxIter = n
		}
	}
}

// WithTolerance sets the eigenvector convergence tolerance per node.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tol = tol
		}
	}
}
