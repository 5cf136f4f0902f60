// Package stats maintains the engine's statistics (spec §4.8): a
// global byte counter, document count, max-depth/max-size-ever-seen,
// defrag counters, and five histograms over 11 exponential buckets
// tracking document-size steady-state and per-operation byte deltas.
//
// Counters are exposed two ways: an in-process Snapshot consumed by
// DEBUG MEMORY, and Prometheus collectors for external scraping.
package stats
