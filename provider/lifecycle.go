package provider

import "context"

// Closeable is implemented by providers that hold resources (HTTP clients,
// broker connections) and need explicit cleanup.
type Closeable interface {
	Close(ctx context.Context) error
}

// CloseIfCloseable closes p when it implements Closeable.
func CloseIfCloseable(ctx context.Context, p any) error {
	if c, ok := p.(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}
