// Package stream provides lazy, pull-based pipelines with explicit
// concurrency boundaries.
//
// A Pipeline describes a sequence of values; no work happens until a
// terminal (Collect, ForEach) pulls from it. Stages compose on the calling
// goroutine by default. OffThread moves production of a stage onto a
// dedicated worker goroutine connected through a bounded channel, so
// adjacent stages run concurrently with backpressure limited to the
// channel capacity.
//
// Fallible stages yield Try values. DivertErrors splits a Try stream into
// its successful values while forwarding every failure to a shared
// ErrorSink exactly once, letting the main dataflow carry only successes.
//
// Accumulate folds a stream into a running state and emits the state
// early whenever the caller's step function decides it is ready, flushing
// whatever remains when input ends.
package stream
