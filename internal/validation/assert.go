// Package validation provides helpers for constructor contract enforcement.
package validation

import "fmt"

// AssertNotNil panics if the provided pointer is nil. Constructors use it for
// mandatory dependencies, so a miswired service fails at startup instead of
// on the first request.
//
// Usage:
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}
