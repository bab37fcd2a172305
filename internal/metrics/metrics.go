// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when the API server is running.
package metrics

import "expvar"

// Operation counters.
var (
	AnalyzeTotal    = expvar.NewInt("loanguard_analyze_total")
	ChunksExtracted = expvar.NewInt("loanguard_chunks_extracted_total")
	ChunksFailed    = expvar.NewInt("loanguard_chunks_failed_total")
	OracleRetries   = expvar.NewInt("loanguard_oracle_retries_total")
	QueriesTotal    = expvar.NewInt("loanguard_queries_total")
	AsksTotal       = expvar.NewInt("loanguard_asks_total")
	AlertsEmitted   = expvar.NewInt("loanguard_alerts_emitted_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
