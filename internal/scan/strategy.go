package scan

import "context"

// Strategy is one way of recovering the external package identifiers a
// single source file references. Implementations return raw root candidates;
// the Scanner owns keyword/std filtering and the test-artifact post-pass, so
// strategies can be swapped without touching any consumer.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, content []byte) ([]string, error)
}
