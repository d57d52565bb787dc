package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/coursechat-io/coursechat/pkg/logger"
)

// Type names a predefined worker pool.
type Type string

const (
	// DefaultPool is the general-purpose pool.
	DefaultPool Type = "default"
	// IngestPool runs document parsing and embedding batches.
	IngestPool Type = "ingest"
	// BackgroundPool runs housekeeping tasks such as session sweeps
	// and cache maintenance.
	BackgroundPool Type = "background"
)

// Config defines the configuration for a worker pool.
type Config struct {
	// Capacity is the maximum number of concurrent goroutines.
	Capacity int
	// ExpiryDuration is how long idle workers are kept alive.
	ExpiryDuration time.Duration
	// PreAlloc preallocates worker slots.
	PreAlloc bool
	// Nonblocking makes Submit fail with ErrPoolOverload when full.
	Nonblocking bool
	// MaxBlockingTasks caps queued tasks when Nonblocking is false.
	MaxBlockingTasks int
	// PanicHandler handles panics escaping worker tasks.
	PanicHandler func(interface{})
}

// DefaultPoolConfig returns the general-purpose pool configuration.
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       1000,
		ExpiryDuration: 10 * time.Second,
	}
}

// IngestPoolConfig returns the ingestion pool configuration. Ingestion
// batches are CPU and network heavy so the pool is small and blocking.
func IngestPoolConfig() *Config {
	return &Config{
		Capacity:         8,
		ExpiryDuration:   60 * time.Second,
		MaxBlockingTasks: 256,
	}
}

// BackgroundPoolConfig returns the housekeeping pool configuration.
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         50,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 100,
	}
}

// Pool is a named worker pool with task accounting.
type Pool struct {
	name     string
	typ      Type
	pool     *ants.Pool
	config   *Config
	stats    *statsCounter
	closed   atomic.Bool
	closedMu sync.Mutex
}

type statsCounter struct {
	SubmittedTasks  atomic.Int64
	CompletedTasks  atomic.Int64
	FailedTasks     atomic.Int64
	RejectedTasks   atomic.Int64
	PanicRecovered  atomic.Int64
	TotalWaitTimeNs atomic.Int64
}

// Stats is an atomic snapshot of pool counters.
type Stats struct {
	SubmittedTasks  int64
	CompletedTasks  int64
	FailedTasks     int64
	RejectedTasks   int64
	PanicRecovered  int64
	TotalWaitTimeNs int64
}

// NewPool creates a worker pool with the given configuration.
func NewPool(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	p := &Pool{
		name:   name,
		typ:    typ,
		config: config,
		stats:  &statsCounter{},
	}

	opts := buildAntsOptions(name, config)
	pool, err := ants.NewPool(config.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	p.pool = pool

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
	)

	return p, nil
}

func buildAntsOptions(name string, config *Config) []ants.Option {
	opts := []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
	}

	if config.PanicHandler != nil {
		opts = append(opts, ants.WithPanicHandler(config.PanicHandler))
	} else {
		opts = append(opts, ants.WithPanicHandler(func(p interface{}) {
			logger.Errorw("Worker panic recovered",
				"pool", name,
				"panic", p,
			)
		}))
	}

	return opts
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Type returns the pool type.
func (p *Pool) Type() Type { return p.typ }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running returns the number of running workers.
func (p *Pool) Running() int { return p.pool.Running() }

// Free returns the number of available worker slots.
func (p *Pool) Free() int { return p.pool.Free() }

// Waiting returns the number of queued tasks.
func (p *Pool) Waiting() int { return p.pool.Waiting() }

// Submit schedules task on the pool.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	startTime := time.Now()
	err := p.pool.Submit(func() {
		p.stats.TotalWaitTimeNs.Add(int64(time.Since(startTime)))
		p.stats.SubmittedTasks.Add(1)

		defer func() {
			if r := recover(); r != nil {
				p.stats.PanicRecovered.Add(1)
				p.stats.FailedTasks.Add(1)
				// Re-panic so the ants panic handler sees it.
				panic(r)
			}
			p.stats.CompletedTasks.Add(1)
		}()

		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.RejectedTasks.Add(1)
			return ErrPoolOverload
		}
		p.stats.FailedTasks.Add(1)
		return err
	}

	return nil
}

// SubmitWithContext schedules task on the pool unless ctx is already
// cancelled. Cancellation after submission skips the task if it has not
// started yet.
func (p *Pool) SubmitWithContext(ctx context.Context, task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.Submit(func() {
		select {
		case <-ctx.Done():
			return
		default:
			task()
		}
	})
}

// Release closes the pool and frees its workers.
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}

	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout closes the pool, waiting up to timeout for running tasks.
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}

	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Tune adjusts the pool capacity at runtime.
func (p *Pool) Tune(size int) {
	p.pool.Tune(size)
	p.config.Capacity = size
	logger.Infow("Worker pool tuned", "name", p.name, "new_capacity", size)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks:  p.stats.SubmittedTasks.Load(),
		CompletedTasks:  p.stats.CompletedTasks.Load(),
		FailedTasks:     p.stats.FailedTasks.Load(),
		RejectedTasks:   p.stats.RejectedTasks.Load(),
		PanicRecovered:  p.stats.PanicRecovered.Load(),
		TotalWaitTimeNs: p.stats.TotalWaitTimeNs.Load(),
	}
}
