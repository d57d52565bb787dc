// Package pool provides named goroutine worker pools built on ants.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolNotFound is returned when the named pool is not registered.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolAlreadyExists is returned when registering a duplicate name.
	ErrPoolAlreadyExists = errors.New("pool already exists")

	// ErrManagerNotInitialized is returned before InitGlobal has run.
	ErrManagerNotInitialized = errors.New("pool manager not initialized")

	// ErrPoolOverload is returned by nonblocking pools at capacity.
	ErrPoolOverload = errors.New("pool overloaded")
)
