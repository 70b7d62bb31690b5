// Package crawler implements the crawl orchestration engine: a
// priority frontier with per-domain admission control, a concurrent
// worker pool that drains it, a shared crawl-state store, a fetch
// discipline layer (politeness delays, adaptive backoff, redirect-loop
// detection, URL normalization against crawler traps), and the
// cooperative shutdown machinery.
//
// # Components
//
//   - Normalizer: URL canonicalization and admissibility rules
//   - Classifier: URL priority scoring from configured pattern tables
//   - State: the shared crawl-state store (visited set, counters,
//     domain statistics, candidate pages, running flag)
//   - RedirectTracker: per-origin redirect chains with loop detection
//   - Frontier: bounded priority queue with dequeue-time pacing
//   - Fetcher: the per-task fetch/decode/analyze/expand state machine
//   - Pool: the worker pool
//   - ShutdownController: stop flag plus in-flight task registry
//   - Monitor: progress reporting and queue-empty stop detection
//
// # Concurrency
//
// State, Frontier, and RedirectTracker are the only shared mutable
// structures. Each exposes a narrow synchronized API, and no caller
// holds one of their locks across an I/O operation. Network fetches
// and politeness sleeps are the only blocking operations; everything
// else is a short lock-bounded section.
package crawler
