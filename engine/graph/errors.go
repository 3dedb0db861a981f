package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a BuildError.
type ErrorKind uint8

const (
	KindDanglingVertex ErrorKind = iota + 1

	KindMissingVertex
	KindDuplicateInput
	KindGraphCycle
	KindInvalidEdgeDataType
	KindMissingInputReference
	KindInvalidLiteral
	KindFactoryFailure
	KindInvalidSettings
	KindInternal
)

var kindNames = map[ErrorKind]string{
	KindDanglingVertex:        "dangling-vertex",
	KindMissingVertex:         "missing-vertex",
	KindDuplicateInput:        "duplicate-input",
	KindGraphCycle:            "graph-cycle",
	KindInvalidEdgeDataType:   "invalid-edge-data-type",
	KindMissingInputReference: "missing-input-reference",
	KindInvalidLiteral:        "invalid-literal",
	KindFactoryFailure:        "factory-failure",
	KindInvalidSettings:       "invalid-settings",
	KindInternal:              "internal",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// BuildError is one diagnostic produced while linting or building a graph.
type BuildError struct {
	Kind    ErrorKind
	Message string
	Nodes   []NodeID
	Edges   []Edge
	Vertex  string
}

// NewError creates a BuildError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithNodes attaches the offending nodes.
func (e *BuildError) WithNodes(ids ...NodeID) *BuildError {
	e.Nodes = append(e.Nodes, ids...)

	return e
}

// WithEdges attaches the offending edges.
func (e *BuildError) WithEdges(edges ...Edge) *BuildError {
	e.Edges = append(e.Edges, edges...)

	return e
}

// WithVertex attaches the offending vertex name.
func (e *BuildError) WithVertex(name string) *BuildError {
	e.Vertex = name

	return e
}

func (e *BuildError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

// BuildErrors is the ordered error collection build and lint passes append
// to. A nil *BuildErrors discards everything added to it.
type BuildErrors struct {
	list []*BuildError
}

// Add appends err.
func (b *BuildErrors) Add(err *BuildError) {
	if b == nil || err == nil {
		return
	}

	b.list = append(b.list, err)
}

// Append appends every error of other.
func (b *BuildErrors) Append(other *BuildErrors) {
	if b == nil || other == nil {
		return
	}

	b.list = append(b.list, other.list...)
}

// Len returns the number of errors.
func (b *BuildErrors) Len() int {
	if b == nil {
		return 0
	}

	return len(b.list)
}

// All returns the errors in the order they were added.
func (b *BuildErrors) All() []*BuildError {
	if b == nil {
		return nil
	}

	return append([]*BuildError(nil), b.list...)
}

// OfKind returns the errors of one kind.
func (b *BuildErrors) OfKind(kind ErrorKind) []*BuildError {
	var out []*BuildError

	for _, e := range b.All() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

// Err joins all errors, or returns nil if there are none.
func (b *BuildErrors) Err() error {
	if b.Len() == 0 {
		return nil
	}

	errs := make([]error, len(b.list))

	for i, e := range b.list {
		errs[i] = e
	}

	return errors.Join(errs...)
}

func (b *BuildErrors) String() string {
	lines := make([]string, 0, b.Len())

	for _, e := range b.All() {
		lines = append(lines, e.Error())
	}

	return strings.Join(lines, "\n")
}
