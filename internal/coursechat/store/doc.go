// Package store provides the vector storage layer for the course catalog
// and course content collections.
package store
