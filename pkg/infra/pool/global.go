package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coursechat-io/coursechat/pkg/logger"
)

var (
	globalManager            *Manager
	globalManagerMu          sync.Mutex
	globalManagerInitialized uint32
)

// GlobalConfig configures the set of pools registered at startup.
type GlobalConfig struct {
	DefaultPool    *Config
	IngestPool     *Config
	BackgroundPool *Config
	// CustomPools maps extra pool names to their configurations.
	CustomPools map[string]*Config
}

// DefaultGlobalConfig returns the standard pool set.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DefaultPool:    DefaultPoolConfig(),
		IngestPool:     IngestPoolConfig(),
		BackgroundPool: BackgroundPoolConfig(),
		CustomPools:    make(map[string]*Config),
	}
}

// InitGlobal initializes the global pool manager with defaults.
func InitGlobal() error {
	return InitGlobalWithConfig(nil)
}

// InitGlobalWithConfig initializes the global pool manager. Calling it
// more than once is a no-op.
func InitGlobalWithConfig(config *GlobalConfig) error {
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()

	if atomic.LoadUint32(&globalManagerInitialized) == 1 {
		return nil
	}

	if config == nil {
		config = DefaultGlobalConfig()
	}

	manager := NewManager()

	pools := map[Type]*Config{
		DefaultPool:    config.DefaultPool,
		IngestPool:     config.IngestPool,
		BackgroundPool: config.BackgroundPool,
	}

	for poolType, poolConfig := range pools {
		if poolConfig == nil {
			continue
		}
		if err := manager.RegisterWithType(poolType, poolConfig); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	for name, poolConfig := range config.CustomPools {
		if err := manager.Register(name, DefaultPool, poolConfig); err != nil {
			manager.ReleaseAll()
			return err
		}
	}

	globalManager = manager
	atomic.StoreUint32(&globalManagerInitialized, 1)

	logger.Infow("Global pool manager initialized", "pools", manager.List())

	return nil
}

// GetGlobal returns the global manager, initializing it on first use.
func GetGlobal() *Manager {
	if atomic.LoadUint32(&globalManagerInitialized) == 0 {
		if err := InitGlobal(); err != nil {
			logger.Errorw("Failed to auto-initialize global pool manager", "error", err)
			return nil
		}
	}
	return globalManager
}

// CloseGlobal releases every pool and resets the global manager.
func CloseGlobal() error {
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()

	if atomic.LoadUint32(&globalManagerInitialized) == 0 {
		return nil
	}

	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
	atomic.StoreUint32(&globalManagerInitialized, 0)

	logger.Info("Global pool manager closed")
	return nil
}

// CloseGlobalTimeout releases every pool, waiting up to timeout.
func CloseGlobalTimeout(timeout time.Duration) error {
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()

	if atomic.LoadUint32(&globalManagerInitialized) == 0 {
		return nil
	}

	var err error
	if globalManager != nil {
		err = globalManager.ReleaseAllTimeout(timeout)
		globalManager = nil
	}
	atomic.StoreUint32(&globalManagerInitialized, 0)

	logger.Infow("Global pool manager closed", "timeout", timeout)
	return err
}

// ResetGlobal resets the global manager. Test helper.
func ResetGlobal() {
	globalManagerMu.Lock()
	defer globalManagerMu.Unlock()

	if globalManager != nil {
		globalManager.ReleaseAll()
		globalManager = nil
	}
	atomic.StoreUint32(&globalManagerInitialized, 0)
}

// Submit schedules task on the default pool.
func Submit(task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitToDefault(task)
}

// SubmitTo schedules task on the named pool.
func SubmitTo(poolName string, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.Submit(poolName, task)
}

// SubmitToType schedules task on the pool for a predefined type.
func SubmitToType(poolType Type, task func()) error {
	return SubmitTo(string(poolType), task)
}

// SubmitWithContext schedules a context-aware task on the default pool.
func SubmitWithContext(ctx context.Context, task func()) error {
	mgr := GetGlobal()
	if mgr == nil {
		return ErrManagerNotInitialized
	}
	return mgr.SubmitWithContext(ctx, string(DefaultPool), task)
}

// Get returns the named pool from the global manager.
func Get(name string) (*Pool, error) {
	mgr := GetGlobal()
	if mgr == nil {
		return nil, ErrManagerNotInitialized
	}
	return mgr.Get(name)
}

// GetByType returns the pool for a predefined type.
func GetByType(poolType Type) (*Pool, error) {
	return Get(string(poolType))
}

// StatsGlobal returns statistics for all registered pools.
func StatsGlobal() map[string]Info {
	mgr := GetGlobal()
	if mgr == nil {
		return nil
	}
	return mgr.Stats()
}
