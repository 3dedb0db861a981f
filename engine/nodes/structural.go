package nodes

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// Structural class names.
const (
	ClassInput   = "Input"
	ClassOutput  = "Output"
	ClassLiteral = "Literal"
)

// LiteralVertex is the output vertex name of literal nodes.
const LiteralVertex = "Value"

// NewInput creates the node behind a graph input. Its single input and
// output vertex are both called name, so the graph input can be declared
// as NewInput(...).ID() / name. The operator owns a writable reference
// initialised from def and passes it through unchanged.
func NewInput(name, typeName string, def data.Literal) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{{Name: name, TypeName: typeName, Default: def}},
		[]vertex.Output{{Name: name, TypeName: typeName}},
	)

	return newNode(name, ClassInput, iface, graph.FactoryFunc(createPassThrough))
}

// NewOutput creates the node behind a graph output. Its operator exposes
// the reference wired into its input as its output.
func NewOutput(name, typeName string) *Node {
	iface := vertex.MustInterface(
		[]vertex.Input{{Name: name, TypeName: typeName}},
		[]vertex.Output{{Name: name, TypeName: typeName}},
	)

	return newNode(name, ClassOutput, iface, graph.FactoryFunc(createPassThrough))
}

// NewLiteral creates a node with a single output holding value.
func NewLiteral(name, typeName string, value data.Literal) *Node {
	iface := vertex.MustInterface(nil, []vertex.Output{{Name: LiteralVertex, TypeName: typeName}})

	return newNode(name, ClassLiteral, iface, graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			ref, err := params.Types.Create(typeName, params.Settings, value)
			if err != nil {
				errs.Add(graph.NewError(graph.KindInvalidLiteral, "literal %q: %v", params.Node.InstanceName(), err).
					WithNodes(params.Node.ID()).WithVertex(LiteralVertex))

				return nil
			}

			op := &literalOperator{}
			op.SetOutput(LiteralVertex, ref)

			return op
		}))
}

type literalOperator struct {
	graph.IO
}

// passThroughOperator exposes one reference as both its input and its
// output. It has no per-block work.
type passThroughOperator struct {
	in, out  *data.Collection
	name     string
	typeName string
}

// createPassThrough builds the operator of Input and Output nodes. The
// reference is the one wired into the vertex, or a fresh one holding the
// vertex default.
func createPassThrough(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
	inputs := params.Node.VertexInterface().Inputs()
	if len(inputs) != 1 {
		errs.Add(graph.NewError(graph.KindInternal, "pass-through node %q needs exactly one input", params.Node.InstanceName()).
			WithNodes(params.Node.ID()))

		return nil
	}

	in := inputs[0]

	ref, ok := params.Inputs.Get(in.Name)
	if !ok {
		var err error

		ref, err = params.Types.Create(in.TypeName, params.Settings, in.Default)
		if err != nil {
			errs.Add(graph.NewError(graph.KindInvalidLiteral, "default of %q: %v", params.Node.InstanceName(), err).
				WithNodes(params.Node.ID()).WithVertex(in.Name))

			return nil
		}
	} else if ref.TypeName() != in.TypeName {
		errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "node %q expects %s, got %s",
			params.Node.InstanceName(), in.TypeName, ref.TypeName()).
			WithNodes(params.Node.ID()).WithVertex(in.Name))

		return nil
	}

	op := &passThroughOperator{
		in:       data.NewCollection(),
		out:      data.NewCollection(),
		name:     in.Name,
		typeName: in.TypeName,
	}
	op.set(ref)

	return op
}

func (o *passThroughOperator) set(ref data.Reference) {
	o.in.Add(o.name, ref)
	o.out.AddRead(o.name, ref)
}

func (o *passThroughOperator) BindInputs(inputs *data.Collection) {
	if ref, ok := inputs.Get(o.name); ok && ref.TypeName() == o.typeName {
		o.set(ref)
	}
}

func (o *passThroughOperator) Inputs() *data.Collection  { return o.in }
func (o *passThroughOperator) Outputs() *data.Collection { return o.out }
