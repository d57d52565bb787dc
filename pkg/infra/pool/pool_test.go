package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", DefaultPool, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("pool name mismatch: want test, got %s", p.Name())
	}

	if p.Cap() != 1000 {
		t.Errorf("pool capacity mismatch: want 1000, got %d", p.Cap())
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("failed to submit task: %v", err)
			wg.Done()
		}
	}

	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("executed task count mismatch: want 100, got %d", counter.Load())
	}
}

func TestPoolSubmitWithContext(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Release()

	var executed atomic.Bool
	ctx := context.Background()
	err = p.SubmitWithContext(ctx, func() {
		executed.Store(true)
	})
	if err != nil {
		t.Errorf("failed to submit task: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if !executed.Load() {
		t.Error("task did not execute")
	}

	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(canceledCtx, func() {
		t.Error("task should not run with a canceled context")
	})
	if err != context.Canceled {
		t.Errorf("want context.Canceled, got: %v", err)
	}
}

func TestPoolPanicRecovery(t *testing.T) {
	var panicCaught atomic.Bool

	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
		PanicHandler: func(r interface{}) {
			panicCaught.Store(true)
		},
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Release()

	err = p.Submit(func() {
		panic("test panic")
	})
	if err != nil {
		t.Errorf("failed to submit task: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if !panicCaught.Load() {
		t.Error("panic was not caught")
	}
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       5,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}

	p.Release()

	err = p.Submit(func() {
		t.Error("closed pool should not execute tasks")
	})
	if err != ErrPoolClosed {
		t.Errorf("want ErrPoolClosed, got: %v", err)
	}
}

func TestManager(t *testing.T) {
	mgr := NewManager()
	defer func() {
		_ = mgr.Close()
	}()

	err := mgr.Register("test-pool", DefaultPool, &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to register pool: %v", err)
	}

	err = mgr.Register("test-pool", DefaultPool, DefaultPoolConfig())
	if err == nil {
		t.Error("duplicate registration should return an error")
	}

	p, err := mgr.Get("test-pool")
	if err != nil {
		t.Errorf("failed to get pool: %v", err)
	}
	if p == nil {
		t.Error("pool should not be nil")
	}

	_, err = mgr.Get("non-existent")
	if err == nil {
		t.Error("getting an unknown pool should return an error")
	}

	var executed atomic.Bool
	err = mgr.Submit("test-pool", func() {
		executed.Store(true)
	})
	if err != nil {
		t.Errorf("failed to submit task: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if !executed.Load() {
		t.Error("task did not execute")
	}

	list := mgr.List()
	if len(list) != 1 {
		t.Errorf("pool list length mismatch: want 1, got %d", len(list))
	}

	stats := mgr.Stats()
	if len(stats) != 1 {
		t.Errorf("stats length mismatch: want 1, got %d", len(stats))
	}
}

func TestGlobalPool(t *testing.T) {
	ResetGlobal()

	err := InitGlobal()
	if err != nil {
		t.Fatalf("failed to initialize global pools: %v", err)
	}
	defer func() {
		_ = CloseGlobal()
	}()

	mgr := GetGlobal()
	if mgr == nil {
		t.Fatal("global manager should not be nil")
	}

	pools := mgr.List()
	expectedPools := []string{
		string(DefaultPool),
		string(IngestPool),
		string(BackgroundPool),
	}

	if len(pools) != len(expectedPools) {
		t.Errorf("predefined pool count mismatch: want %d, got %d", len(expectedPools), len(pools))
	}

	var executed atomic.Bool
	err = Submit(func() {
		executed.Store(true)
	})
	if err != nil {
		t.Errorf("failed to submit task: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if !executed.Load() {
		t.Error("task did not execute")
	}
}

func TestPoolNonblocking(t *testing.T) {
	p, err := NewPool("test", DefaultPool, &Config{
		Capacity:       1,
		ExpiryDuration: 5 * time.Second,
		Nonblocking:    true,
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	defer p.Release()

	done := make(chan struct{})
	err = p.Submit(func() {
		<-done
	})
	if err != nil {
		t.Errorf("failed to submit task: %v", err)
	}

	err = p.Submit(func() {
		t.Error("a full nonblocking pool should not execute tasks")
	})
	if err == nil {
		t.Error("a full nonblocking pool should return an error")
	}

	close(done)
}
