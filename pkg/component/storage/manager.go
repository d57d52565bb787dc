package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coursechat-io/coursechat/pkg/infra/pool"
)

// Manager is a registry of storage clients with centralized health
// checking and lifecycle management. It is safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates a new storage manager instance.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]Client),
	}
}

// Register registers a storage client under a unique name.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage(fmt.Sprintf("client %q is already registered", name))
	}

	m.clients[name] = client
	return nil
}

// MustRegister registers a client and panics on failure. For init code
// where failure should be fatal.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("failed to register storage client: %v", err))
	}
}

// Get retrieves a storage client by name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, ErrClientNotFound.WithMessage(fmt.Sprintf("client %q not found", name))
	}

	return client, nil
}

// Has checks if a client with the given name is registered.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.clients[name]
	return exists
}

// List returns all registered client names.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

// HealthCheck performs a health check on a specific client.
func (m *Manager) HealthCheck(ctx context.Context, name string) HealthStatus {
	client, err := m.Get(name)
	if err != nil {
		return HealthStatus{
			Name:    name,
			Healthy: false,
			Error:   err,
		}
	}

	start := time.Now()
	err = client.Ping(ctx)

	return HealthStatus{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheckAll checks every registered client concurrently on the
// background pool, falling back to plain goroutines when the pool is
// unavailable.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	bgPool, err := pool.GetByType(pool.BackgroundPool)
	usePool := err == nil && bgPool != nil

	for name, client := range clients {
		wg.Add(1)
		task := func(n string, c Client) {
			defer wg.Done()

			start := time.Now()
			err := c.Ping(ctx)

			statusMu.Lock()
			statuses[n] = HealthStatus{
				Name:    n,
				Healthy: err == nil,
				Latency: time.Since(start),
				Error:   err,
			}
			statusMu.Unlock()
		}

		if usePool {
			n, c := name, client
			if submitErr := bgPool.Submit(func() { task(n, c) }); submitErr != nil {
				go task(name, client)
			}
		} else {
			go task(name, client)
		}
	}

	wg.Wait()
	return statuses
}

// AllHealthy reports whether every registered client passes its check.
func (m *Manager) AllHealthy(ctx context.Context) bool {
	statuses := m.HealthCheckAll(ctx)
	for _, status := range statuses {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// CloseAll closes all registered clients and returns the first error.
// Call it during application shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client %q: %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}
