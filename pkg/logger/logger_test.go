package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsInvalidLevel(t *testing.T) {
	err := Init(&Config{Level: "noisy"})
	assert.Error(t, err)
}

func TestGlobalLoggerWritesFields(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	prev := L()
	SetGlobal(zap.New(core))
	defer SetGlobal(prev.Desugar())

	Infow("course ingested", "title", "Go Basics", "chunks", 7)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "course ingested", entries[0].Message)
	assert.Equal(t, "Go Basics", entries[0].ContextMap()["title"])
}

func TestSyncFlushesWithoutError(t *testing.T) {
	core, _ := observer.New(zap.InfoLevel)
	prev := L()
	SetGlobal(zap.New(core))
	defer SetGlobal(prev.Desugar())

	assert.NoError(t, Sync())
}
