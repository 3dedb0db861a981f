package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// NodeID identifies one node instance within a graph.
type NodeID = uuid.UUID

// NewNodeID returns a random node ID.
func NewNodeID() NodeID { return uuid.New() }

// ClassName names a node class.
type ClassName struct {
	Namespace string
	Name      string
	Variant   string
}

func (c ClassName) String() string {
	s := c.Name

	if c.Namespace != "" {
		s = c.Namespace + "." + s
	}

	if c.Variant != "" {
		s += "." + c.Variant
	}

	return s
}

// ClassInfo is the registration identity of a node class.
type ClassInfo struct {
	Name         ClassName
	MajorVersion int
	MinorVersion int
}

func (c ClassInfo) String() string {
	return fmt.Sprintf("%s v%d.%d", c.Name, c.MajorVersion, c.MinorVersion)
}

// Node is the static description of one graph vertex owner and the factory
// for its runtime Operator. Nodes hold no state across builds.
type Node interface {
	ID() NodeID
	InstanceName() string
	Class() ClassInfo
	VertexInterface() vertex.Interface
	// IsVertexInterfaceSupported reports whether SetVertexInterface would
	// accept iface.
	IsVertexInterfaceSupported(iface vertex.Interface) bool
	SetVertexInterface(iface vertex.Interface) bool
	DefaultOperatorFactory() OperatorFactory
}

// Operator is the runtime instance of one node. Operators that do per-block
// work implement Executor; those that do not are left out of the execution
// stack entirely.
type Operator interface {
	// BindInputs replaces the references of every input vertex present in
	// inputs. Output references are owned by the operator and stay stable.
	BindInputs(inputs *data.Collection)
	Inputs() *data.Collection
	Outputs() *data.Collection
}

// Executor is implemented by operators with per-block work.
type Executor interface {
	Execute()
}

// PostExecutor is implemented by operators that need a hook after every
// operator of the block has executed.
type PostExecutor interface {
	PostExecute()
}

// ResetParams is passed to Resetter.Reset.
type ResetParams struct {
	Settings    core.OperatorSettings
	Environment core.Environment
}

// Resetter is implemented by operators with state to clear between plays.
type Resetter interface {
	Reset(params ResetParams)
}

// BuildParams is everything a factory receives for one operator.
type BuildParams struct {
	Node        Node
	Settings    core.OperatorSettings
	Environment core.Environment
	// Inputs holds the already-resolved references wired into the node.
	// Unconnected inputs are absent.
	Inputs *data.Collection
	Types  *data.Registry
}

// OperatorFactory creates an operator for a node. On failure it returns nil
// and appends at least one BuildError.
type OperatorFactory interface {
	CreateOperator(params BuildParams, errs *BuildErrors) Operator
}

// FactoryFunc adapts a function to OperatorFactory.
type FactoryFunc func(params BuildParams, errs *BuildErrors) Operator

// CreateOperator calls f.
func (f FactoryFunc) CreateOperator(params BuildParams, errs *BuildErrors) Operator {
	return f(params, errs)
}

// InputOrDefault returns the reference wired into the named input vertex,
// or constructs one from the vertex default literal. Failures are recorded
// in errs.
func InputOrDefault[T any](params BuildParams, name string, errs *BuildErrors) (data.ReadRef[T], bool) {
	in, ok := params.Node.VertexInterface().Input(name)
	if !ok {
		errs.Add(NewError(KindMissingVertex, "node %q has no input vertex %q", params.Node.InstanceName(), name).
			WithNodes(params.Node.ID()).WithVertex(name))

		return data.ReadRef[T]{}, false
	}

	if ref, ok := params.Inputs.Get(name); ok {
		r, ok := data.Read[T](ref)
		if !ok || ref.TypeName() != in.TypeName {
			errs.Add(NewError(KindInvalidEdgeDataType, "input %q of node %q expects %s, got %s",
				name, params.Node.InstanceName(), in.TypeName, ref.TypeName()).
				WithNodes(params.Node.ID()).WithVertex(name))

			return data.ReadRef[T]{}, false
		}

		return r, true
	}

	ref, err := params.Types.Create(in.TypeName, params.Settings, in.Default)
	if err != nil {
		errs.Add(NewError(KindInvalidLiteral, "default for input %q of node %q: %v",
			name, params.Node.InstanceName(), err).WithNodes(params.Node.ID()).WithVertex(name))

		return data.ReadRef[T]{}, false
	}

	r, ok := data.Read[T](ref)
	if !ok {
		errs.Add(NewError(KindInvalidEdgeDataType, "input %q of node %q does not hold the operator's value type",
			name, params.Node.InstanceName()).WithNodes(params.Node.ID()).WithVertex(name))

		return data.ReadRef[T]{}, false
	}

	return r, true
}

// NewOutput constructs the reference an operator owns for the named output
// vertex. Failures are recorded in errs.
func NewOutput[T any](params BuildParams, name string, lit data.Literal, errs *BuildErrors) (data.WriteRef[T], bool) {
	out, ok := params.Node.VertexInterface().Output(name)
	if !ok {
		errs.Add(NewError(KindMissingVertex, "node %q has no output vertex %q", params.Node.InstanceName(), name).
			WithNodes(params.Node.ID()).WithVertex(name))

		return data.WriteRef[T]{}, false
	}

	w, err := data.CreateWrite[T](params.Types, out.TypeName, params.Settings, lit)
	if err != nil {
		errs.Add(NewError(KindInvalidLiteral, "output %q of node %q: %v", name, params.Node.InstanceName(), err).
			WithNodes(params.Node.ID()).WithVertex(name))

		return data.WriteRef[T]{}, false
	}

	return w, true
}
