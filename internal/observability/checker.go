package observability

import "context"

// Checker is the contract for a component that reports its health status.
// Implementations must be safe for concurrent use and respect the context
// deadline.
type Checker interface {
	// Name returns the unique identifier of the component (e.g., "postgres").
	Name() string
	// Check performs the health verification. Returns nil if healthy.
	Check(ctx context.Context) error
}
