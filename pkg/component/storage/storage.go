// Package storage provides a unified interface for storage backends.
// Redis and Milvus clients implement Client so the application can health
// check and shut them down uniformly.
package storage

import (
	"context"
	"time"
)

// Client is the base interface implemented by every storage client.
type Client interface {
	// Name returns the storage type identifier (e.g. "redis", "milvus").
	Name() string

	// Ping performs a lightweight connectivity check.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// Health returns a HealthChecker bound to this client.
	Health() HealthChecker
}

// Factory creates storage clients from pre-bound configuration.
type Factory interface {
	Create(ctx context.Context) (Client, error)
}

// HealthChecker verifies a client's connection status.
type HealthChecker func() error

// HealthStatus is the result of a health check.
type HealthStatus struct {
	Name    string
	Healthy bool
	Latency time.Duration
	Error   error
}
