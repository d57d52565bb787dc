// Package metrics provides business metric collection for the course
// assistant service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the service counters. All counters are updated with
// atomic operations; durations are guarded by durationMu because they
// accumulate as float64.
type Metrics struct {
	queriesTotal       uint64
	queriesCacheHits   uint64
	queriesCacheMisses uint64
	queriesErrors      uint64

	searchesTotal   uint64
	searchDuration  float64
	searchesErrors  uint64

	llmCallsTotal       uint64
	llmCallsDuration    float64
	llmCallsErrors      uint64
	llmCallsRetries     uint64
	llmTokensPrompt     uint64
	llmTokensCompletion uint64

	circuitBreakerOpens uint64
	circuitBreakerState int32 // 0=closed, 1=open, 2=half-open

	documentsIndexed uint64
	chunksIndexed    uint64
	indexErrors      uint64

	sessionsCreated uint64
	sessionsEvicted uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Get returns the global metrics instance.
func Get() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{startTime: time.Now()}
	})
	return globalMetrics
}

// RecordQuery records one query round trip.
func (m *Metrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordSearch records one content search executed by a tool.
func (m *Metrics) RecordSearch(duration time.Duration, err error) {
	atomic.AddUint64(&m.searchesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.searchesErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.searchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records one chat completion call.
func (m *Metrics) RecordLLMCall(duration time.Duration, promptTokens, completionTokens int, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()

	if promptTokens > 0 {
		atomic.AddUint64(&m.llmTokensPrompt, uint64(promptTokens))
	}
	if completionTokens > 0 {
		atomic.AddUint64(&m.llmTokensCompletion, uint64(completionTokens))
	}
}

// RecordLLMRetry records one provider retry.
func (m *Metrics) RecordLLMRetry() {
	atomic.AddUint64(&m.llmCallsRetries, 1)
}

// RecordCircuitBreakerOpen records a circuit breaker trip.
func (m *Metrics) RecordCircuitBreakerOpen() {
	atomic.AddUint64(&m.circuitBreakerOpens, 1)
	atomic.StoreInt32(&m.circuitBreakerState, 1)
}

// RecordCircuitBreakerClosed records the breaker closing.
func (m *Metrics) RecordCircuitBreakerClosed() {
	atomic.StoreInt32(&m.circuitBreakerState, 0)
}

// RecordCircuitBreakerHalfOpen records the breaker probing.
func (m *Metrics) RecordCircuitBreakerHalfOpen() {
	atomic.StoreInt32(&m.circuitBreakerState, 2)
}

// RecordIndexing records an ingestion outcome.
func (m *Metrics) RecordIndexing(documents, chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, uint64(documents))
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// RecordSessionCreated records a new session.
func (m *Metrics) RecordSessionCreated() {
	atomic.AddUint64(&m.sessionsCreated, 1)
}

// RecordSessionsEvicted records idle sessions removed by the sweeper.
func (m *Metrics) RecordSessionsEvicted(n int) {
	atomic.AddUint64(&m.sessionsEvicted, uint64(n))
}

// Export renders the counters in Prometheus text exposition format.
func (m *Metrics) Export(namespace string) string {
	var sb strings.Builder

	counter := func(name, help string, value uint64) {
		full := namespace + "_" + name
		sb.WriteString(fmt.Sprintf("# HELP %s %s\n", full, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s counter\n", full))
		sb.WriteString(fmt.Sprintf("%s %d\n\n", full, value))
	}
	gauge := func(name, help string, value float64) {
		full := namespace + "_" + name
		sb.WriteString(fmt.Sprintf("# HELP %s %s\n", full, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s gauge\n", full))
		sb.WriteString(fmt.Sprintf("%s %.4f\n\n", full, value))
	}

	counter("queries_total", "Total number of queries.", atomic.LoadUint64(&m.queriesTotal))
	counter("queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	counter("queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	counter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))

	hits := atomic.LoadUint64(&m.queriesCacheHits)
	misses := atomic.LoadUint64(&m.queriesCacheMisses)
	rate := 0.0
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	gauge("cache_hit_rate", "Cache hit rate (0-1).", rate)

	counter("searches_total", "Total number of content searches.", atomic.LoadUint64(&m.searchesTotal))
	counter("searches_errors_total", "Number of search errors.", atomic.LoadUint64(&m.searchesErrors))

	m.durationMu.Lock()
	searchDuration := m.searchDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()
	gauge("search_duration_seconds_total", "Total search duration.", searchDuration)

	counter("llm_calls_total", "Total number of LLM calls.", atomic.LoadUint64(&m.llmCallsTotal))
	gauge("llm_calls_duration_seconds_total", "Total LLM call duration.", llmDuration)
	counter("llm_calls_errors_total", "Number of LLM call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	counter("llm_calls_retries_total", "Number of LLM call retries.", atomic.LoadUint64(&m.llmCallsRetries))
	counter("llm_tokens_prompt_total", "Total prompt tokens.", atomic.LoadUint64(&m.llmTokensPrompt))
	counter("llm_tokens_completion_total", "Total completion tokens.", atomic.LoadUint64(&m.llmTokensCompletion))

	counter("circuit_breaker_opens_total", "Number of circuit breaker opens.", atomic.LoadUint64(&m.circuitBreakerOpens))
	gauge("circuit_breaker_state", "Circuit breaker state (0=closed, 1=open, 2=half-open).", float64(atomic.LoadInt32(&m.circuitBreakerState)))

	counter("documents_indexed_total", "Total documents indexed.", atomic.LoadUint64(&m.documentsIndexed))
	counter("chunks_indexed_total", "Total chunks indexed.", atomic.LoadUint64(&m.chunksIndexed))
	counter("index_errors_total", "Number of indexing errors.", atomic.LoadUint64(&m.indexErrors))

	counter("sessions_created_total", "Total sessions created.", atomic.LoadUint64(&m.sessionsCreated))
	counter("sessions_evicted_total", "Total idle sessions evicted.", atomic.LoadUint64(&m.sessionsEvicted))

	gauge("uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats returns a snapshot for the stats API.
func (m *Metrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	searchDuration := m.searchDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	hits := atomic.LoadUint64(&m.queriesCacheHits)
	misses := atomic.LoadUint64(&m.queriesCacheMisses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	searches := atomic.LoadUint64(&m.searchesTotal)
	avgSearch := 0.0
	if searches > 0 {
		avgSearch = searchDuration / float64(searches)
	}

	llmCalls := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLM := 0.0
	if llmCalls > 0 {
		avgLLM = llmDuration / float64(llmCalls)
	}

	state := "closed"
	switch atomic.LoadInt32(&m.circuitBreakerState) {
	case 1:
		state = "open"
	case 2:
		state = "half-open"
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     hits,
			"cache_misses":   misses,
			"cache_hit_rate": hitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
		},
		"searches": map[string]interface{}{
			"total":               searches,
			"total_duration_secs": searchDuration,
			"avg_duration_secs":   avgSearch,
			"errors":              atomic.LoadUint64(&m.searchesErrors),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmCalls,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLM,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
			"retries":             atomic.LoadUint64(&m.llmCallsRetries),
			"tokens_prompt":       atomic.LoadUint64(&m.llmTokensPrompt),
			"tokens_completion":   atomic.LoadUint64(&m.llmTokensCompletion),
		},
		"circuit_breaker": map[string]interface{}{
			"state": state,
			"opens": atomic.LoadUint64(&m.circuitBreakerOpens),
		},
		"indexing": map[string]interface{}{
			"documents_indexed": atomic.LoadUint64(&m.documentsIndexed),
			"chunks_indexed":    atomic.LoadUint64(&m.chunksIndexed),
			"errors":            atomic.LoadUint64(&m.indexErrors),
		},
		"sessions": map[string]interface{}{
			"created": atomic.LoadUint64(&m.sessionsCreated),
			"evicted": atomic.LoadUint64(&m.sessionsEvicted),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Only used by tests.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.searchesTotal, 0)
	atomic.StoreUint64(&m.searchesErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmCallsRetries, 0)
	atomic.StoreUint64(&m.llmTokensPrompt, 0)
	atomic.StoreUint64(&m.llmTokensCompletion, 0)
	atomic.StoreUint64(&m.circuitBreakerOpens, 0)
	atomic.StoreInt32(&m.circuitBreakerState, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.indexErrors, 0)
	atomic.StoreUint64(&m.sessionsCreated, 0)
	atomic.StoreUint64(&m.sessionsEvicted, 0)

	m.durationMu.Lock()
	m.searchDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
