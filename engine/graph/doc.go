// Package graph defines the static side of the engine: the Node and
// Operator contracts, the Graph that connects node vertices with data
// edges and exposes some of them as the graph's own inputs and outputs,
// the BuildError list every build and lint pass reports into, and the
// dependency ordering shared by the builder and the transactor.
//
// A Graph is plain data. It is not safe for concurrent mutation; the
// dynamic transactor serializes access to the copy it owns.
package graph
