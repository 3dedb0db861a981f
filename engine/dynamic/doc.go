// Package dynamic edits the topology of running graphs.
//
// A Transactor owns the authoritative copy of a graph. Every edit is first
// applied to that copy, then translated into Transforms and queued to each
// running Operator created from the Transactor. Operators apply queued
// transforms at the start of Execute, on the render goroutine, so edits
// never block rendering and rendering never takes a lock.
//
// One edit is queued as one AtomicTransform and therefore becomes visible
// to Execute all at once. Edits that swap operators out are followed by an
// ExecuteFence, which holds later transforms back until at least one block
// has run.
package dynamic
