// Package capability provides the lazy-loading registry of inference
// capabilities. It is structured into small files by concern:
//
//   - capability.go: capability kinds, states, invoker interfaces, Spec/Strategy.
//   - registry.go: Registry type, double-checked lazy load, typed invoke
//     entry points, snapshot/status reporting.
//   - errors.go: error types and helpers (IsNotFound, IsUnavailable,
//     IsInvocationFailure).
//   - builtin.go: DefaultSpecs wiring the standard capability set and its
//     primary/fallback strategy chains.
//   - heuristics.go: pure-Go degraded-mode invokers (lexicon classifiers,
//     hashing embedder, extractive summarizer, template generator).
//   - vision.go: built-in image classifier over pixel statistics.
//   - metrics.go: prometheus counters for loads and invocations.
//
// Build tags and runtimes:
//
//   - In-process llama generator: uses go-llama.cpp, enabled with
//     `-tags=llama` (files llama.go, llama_cgo.go). Without the tag the
//     stub in llama_stub.go fails the primary strategy so the registry
//     falls back to the degraded template generator.
//
// Each capability loads at most once per process. A load failure is
// permanent: the triggering caller sees the load error, later callers get a
// fast "unavailable" without re-running the strategies. Invocation-time
// failures never change lifecycle state.
package capability
