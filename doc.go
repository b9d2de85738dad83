// Package multicore is the multicore execution core of the Lyra
// array-language compiler. The code generated by the compiler links against
// this module to run scans, reductions, and bucketed accumulations across a
// fixed pool of worker threads on a single machine. While Go is primarily
// designed for concurrent programming, the worker pool, work-stealing deques,
// and atomic update protocols in this module use it for parallel programming:
// the goal is to keep every logical core busy with useful work.
//
// The root package holds the descriptors through which generated code talks
// to the runtime: iteration domains, combining operators with their neutral
// elements, and per-iteration bodies. The runtime never inspects how an
// operator or body was derived; it only relies on the declared shapes,
// neutral elements, and the associativity of the combining function.
//
// multicore provides the following subpackages:
//
// multicore/scheduler provides the worker pool: task submission, static and
// dynamic scheduling policies, per-worker work-stealing deques, and failure
// aggregation.
//
// multicore/scan provides the parallel inclusive scan protocols: a
// three-phase protocol for flat domains and a single-pass protocol for
// segmented domains, together with a sequential reference implementation for
// testing and debugging purposes.
//
// multicore/histo provides concurrent bucketed accumulation: a per-operator
// choice between native atomic updates, compare-and-swap retry loops, and an
// explicit lock table.
//
// multicore/telemetry exposes scheduler execution counters as Prometheus
// metrics.
//
// The scheduler design has been influenced by Cilk-style work stealing; see
// http://supertech.csail.mit.edu/papers/steal.pdf for some theoretical
// background.
package multicore
